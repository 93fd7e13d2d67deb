package search

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"

	"github.com/rs/zerolog"
)

const googleBaseURL = "https://www.google.com/search"

// googleQueries are the query variants tried per title, most specific first.
var googleQueries = []string{
	`"%s" movie still landscape`,
	`"%s" movie backdrop`,
	`%s movie wallpaper`,
}

// Result markup changes without notice, so several extraction patterns are
// tried against each page.
var googlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`"ou":"([^"]+)"`),
	regexp.MustCompile(`imgurl=([^&"]+)`),
	regexp.MustCompile(`(?i)"(?:src|url)":"(https?://[^"]+\.(?:jpe?g|png|webp)[^"]*)"`),
}

// GoogleProvider scrapes Google Images result pages. The markup is opaque and
// unstable; extraction is best-effort string matching against known patterns.
type GoogleProvider struct {
	BaseURL    string
	httpClient *http.Client
	userAgent  string
	logger     zerolog.Logger
}

// NewGoogleProvider creates a Google Images search provider.
func NewGoogleProvider(httpClient *http.Client, userAgent string, logger zerolog.Logger) *GoogleProvider {
	return &GoogleProvider{
		BaseURL:    googleBaseURL,
		httpClient: httpClient,
		userAgent:  userAgent,
		logger:     logger.With().Str("component", "search").Str("provider", "google").Logger(),
	}
}

// Name returns the provider name.
func (p *GoogleProvider) Name() string {
	return "google"
}

// Search returns candidate image URLs for the title. Each query variant is
// independently best-effort; the provider fails only when every variant does.
func (p *GoogleProvider) Search(ctx context.Context, title string) ([]string, error) {
	var urls []string
	var lastErr error

	for _, q := range googleQueries {
		page, err := p.fetchResults(ctx, fmt.Sprintf(q, title))
		if err != nil {
			lastErr = err
			continue
		}
		urls = append(urls, extractGoogleURLs(page)...)
	}

	if len(urls) == 0 && lastErr != nil {
		return nil, lastErr
	}

	p.logger.Debug().Str("title", title).Int("results", len(urls)).Msg("Google search completed")
	return urls, nil
}

func (p *GoogleProvider) fetchResults(ctx context.Context, query string) (string, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("tbm", "isch")
	params.Set("tbs", "isz:l,iar:w") // large, wide

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrSourceUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return string(body), nil
}

// extractGoogleURLs runs every known pattern over the result page and keeps
// decoded, non-thumbnail candidates.
func extractGoogleURLs(page string) []string {
	var urls []string
	for _, re := range googlePatterns {
		for _, m := range re.FindAllStringSubmatch(page, -1) {
			raw := html.UnescapeString(m[1])
			if decoded, err := url.QueryUnescape(raw); err == nil {
				raw = decoded
			}
			if usableCandidate(raw) {
				urls = append(urls, raw)
			}
		}
	}
	return urls
}
