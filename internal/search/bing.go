package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

const bingBaseURL = "https://www.bing.com/images/search"

var bingQueries = []string{
	`"%s" movie still landscape`,
	`%s movie backdrop`,
}

// BingProvider scrapes Bing image search. Each result tile carries a JSON
// attribute with the original media URL, which survives markup churn better
// than scraping rendered img tags.
type BingProvider struct {
	BaseURL    string
	httpClient *http.Client
	userAgent  string
	logger     zerolog.Logger
}

// NewBingProvider creates a Bing image search provider.
func NewBingProvider(httpClient *http.Client, userAgent string, logger zerolog.Logger) *BingProvider {
	return &BingProvider{
		BaseURL:    bingBaseURL,
		httpClient: httpClient,
		userAgent:  userAgent,
		logger:     logger.With().Str("component", "search").Str("provider", "bing").Logger(),
	}
}

// Name returns the provider name.
func (p *BingProvider) Name() string {
	return "bing"
}

// bingTile is the JSON payload Bing embeds in each result tile's m attribute.
type bingTile struct {
	MediaURL string `json:"murl"`
}

// Search returns candidate image URLs for the title.
func (p *BingProvider) Search(ctx context.Context, title string) ([]string, error) {
	var urls []string
	var lastErr error

	for _, q := range bingQueries {
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

	p.logger.Debug().Str("title", title).Int("results", len(urls)).Msg("Bing search completed")
	return urls, nil
}

func (p *BingProvider) fetchResults(ctx context.Context, query string) ([]string, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("qft", "+filterui:imagesize-large+filterui:aspect-wide")

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
	doc.Find("a.iusc").Each(func(_ int, sel *goquery.Selection) {
		meta, ok := sel.Attr("m")
		if !ok {
			return
		}
		var tile bingTile
		if err := json.Unmarshal([]byte(meta), &tile); err != nil {
			return
		}
		if usableCandidate(tile.MediaURL) {
			urls = append(urls, tile.MediaURL)
		}
	})

	return urls, nil
}
