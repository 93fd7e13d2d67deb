package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"
)

const unsplashBaseURL = "https://unsplash.com/napi/search/photos"

// UnsplashProvider queries Unsplash's public search endpoint, the one
// structured JSON source in the chain that needs no API key.
type UnsplashProvider struct {
	BaseURL    string
	httpClient *http.Client
	userAgent  string
	logger     zerolog.Logger
}

// NewUnsplashProvider creates an Unsplash search provider.
func NewUnsplashProvider(httpClient *http.Client, userAgent string, logger zerolog.Logger) *UnsplashProvider {
	return &UnsplashProvider{
		BaseURL:    unsplashBaseURL,
		httpClient: httpClient,
		userAgent:  userAgent,
		logger:     logger.With().Str("component", "search").Str("provider", "unsplash").Logger(),
	}
}

// Name returns the provider name.
func (p *UnsplashProvider) Name() string {
	return "unsplash"
}

type unsplashResponse struct {
	Results []struct {
		URLs struct {
			Full    string `json:"full"`
			Regular string `json:"regular"`
		} `json:"urls"`
	} `json:"results"`
}

// Search returns candidate image URLs for the title.
func (p *UnsplashProvider) Search(ctx context.Context, title string) ([]string, error) {
	params := url.Values{}
	params.Set("query", title+" movie film cinema")
	params.Set("per_page", "20")
	params.Set("orientation", "landscape")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrSourceUnavailable, resp.StatusCode)
	}

	var parsed unsplashResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	var urls []string
	for _, r := range parsed.Results {
		switch {
		case r.URLs.Full != "":
			urls = append(urls, r.URLs.Full)
		case r.URLs.Regular != "":
			urls = append(urls, r.URLs.Regular)
		}
	}

	p.logger.Debug().Str("title", title).Int("results", len(urls)).Msg("Unsplash search completed")
	return urls, nil
}
