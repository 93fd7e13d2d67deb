// Package imdb locates poster image URLs through IMDb's public suggestion
// endpoint. No API key is required.
package imdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

var (
	ErrTitleNotFound = errors.New("title not found")
	ErrSuggestFailed = errors.New("imdb suggestion lookup failed")
)

const suggestBaseURL = "https://v2.sg.media-imdb.com/suggestion"

// Title is one suggestion entry.
type Title struct {
	ID        string // IMDb title id, tt-prefixed for films
	Name      string
	Year      int
	PosterURL string
}

// Client queries the IMDb suggestion feed.
type Client struct {
	BaseURL    string
	httpClient *http.Client
	userAgent  string
	logger     zerolog.Logger
}

// NewClient creates an IMDb suggestion client.
func NewClient(httpClient *http.Client, userAgent string, logger zerolog.Logger) *Client {
	return &Client{
		BaseURL:    suggestBaseURL,
		httpClient: httpClient,
		userAgent:  userAgent,
		logger:     logger.With().Str("component", "imdb").Logger(),
	}
}

// suggestion mirrors the relevant parts of the suggestion feed's JSON.
type suggestion struct {
	ID    string `json:"id"`
	Label string `json:"l"`
	Year  int    `json:"y"`
	QID   string `json:"qid"`
	Q     string `json:"q"`
	Image struct {
		URL string `json:"imageUrl"`
	} `json:"i"`
}

type suggestResponse struct {
	Entries []suggestion `json:"d"`
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// FindTitle resolves a film title to its best suggestion match.
func (c *Client) FindTitle(ctx context.Context, title string) (*Title, error) {
	slug := whitespaceRe.ReplaceAllString(strings.TrimSpace(title), "_")
	if slug == "" {
		return nil, ErrTitleNotFound
	}

	// The endpoint shards by the title's first character; slice the first
	// rune, not the first byte, so non-ASCII titles resolve too.
	first, _ := utf8.DecodeRuneInString(slug)
	letter := strings.ToLower(string(first))
	endpoint := fmt.Sprintf("%s/%s/%s.json", c.BaseURL, letter, url.PathEscape(slug))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSuggestFailed, err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSuggestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrSuggestFailed, resp.StatusCode)
	}

	var parsed suggestResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSuggestFailed, err)
	}

	picked := pickTitle(parsed.Entries, title)
	if picked == nil {
		return nil, ErrTitleNotFound
	}

	c.logger.Debug().
		Str("query", title).
		Str("id", picked.ID).
		Str("name", picked.Label).
		Int("year", picked.Year).
		Msg("Resolved title")

	return &Title{
		ID:        picked.ID,
		Name:      picked.Label,
		Year:      picked.Year,
		PosterURL: picked.Image.URL,
	}, nil
}

// pickTitle prefers feature films whose name matches the query exactly, then
// prefix matches, then newer releases.
func pickTitle(entries []suggestion, query string) *suggestion {
	if len(entries) == 0 {
		return nil
	}

	q := strings.ToLower(strings.TrimSpace(query))

	films := make([]suggestion, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.ID, "tt") && isFilmKind(e) {
			films = append(films, e)
		}
	}
	if len(films) == 0 {
		films = entries
	}

	sort.SliceStable(films, func(i, j int) bool {
		return titleRank(films[i], q) > titleRank(films[j], q)
	})
	return &films[0]
}

func isFilmKind(e suggestion) bool {
	switch e.QID {
	case "feature", "movie", "title":
		return true
	}
	switch e.Q {
	case "feature", "movie":
		return true
	}
	return false
}

// titleRank orders candidates: exact name match outranks prefix match
// outranks release year.
func titleRank(e suggestion, query string) int {
	name := strings.ToLower(e.Label)
	rank := e.Year
	if strings.HasPrefix(name, query) {
		rank += 1 << 20
	}
	if name == query {
		rank += 1 << 21
	}
	return rank
}
