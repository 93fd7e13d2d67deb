package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

const duckDuckGoBaseURL = "https://duckduckgo.com/html/"

var duckQueries = []string{
	`"%s" movie still landscape`,
	`%s movie backdrop`,
}

// DuckDuckGoProvider scrapes the DuckDuckGo HTML endpoint, which serves
// parseable markup without JavaScript.
type DuckDuckGoProvider struct {
	BaseURL    string
	httpClient *http.Client
	userAgent  string
	logger     zerolog.Logger
}

// NewDuckDuckGoProvider creates a DuckDuckGo search provider.
func NewDuckDuckGoProvider(httpClient *http.Client, userAgent string, logger zerolog.Logger) *DuckDuckGoProvider {
	return &DuckDuckGoProvider{
		BaseURL:    duckDuckGoBaseURL,
		httpClient: httpClient,
		userAgent:  userAgent,
		logger:     logger.With().Str("component", "search").Str("provider", "duckduckgo").Logger(),
	}
}

// Name returns the provider name.
func (p *DuckDuckGoProvider) Name() string {
	return "duckduckgo"
}

// Search returns candidate image URLs for the title.
func (p *DuckDuckGoProvider) Search(ctx context.Context, title string) ([]string, error) {
	var urls []string
	var lastErr error

	for _, q := range duckQueries {
		found, err := p.fetchResults(ctx, fmt.Sprintf(q, title))
		if err != nil {
			lastErr = err
			continue
		}
		urls = append(urls, found...)
	}

	if len(urls) == 0 && lastErr != nil {
		return nil, lastErr
	}

	p.logger.Debug().Str("title", title).Int("results", len(urls)).Msg("DuckDuckGo search completed")
	return urls, nil
}

func (p *DuckDuckGoProvider) fetchResults(ctx context.Context, query string) ([]string, error) {
	params := url.Values{}
	params.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrSourceUnavailable, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	var urls []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		target := resolveDuckRedirect(href)
		if imageURLRe.MatchString(target) && usableCandidate(target) {
			urls = append(urls, target)
		}
	})

	return urls, nil
}

// resolveDuckRedirect unwraps DuckDuckGo's /l/?uddg= redirect links to the
// destination URL. Non-redirect links pass through unchanged.
func resolveDuckRedirect(href string) string {
	if !strings.Contains(href, "uddg=") {
		return href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}
