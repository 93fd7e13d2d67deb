// Package search turns a film title into candidate landscape-image URLs by
// querying a fixed priority order of public, keyless web sources.
package search

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// ErrSourceUnavailable indicates a search backend errored or returned
// unparsable content. The source contributes zero candidates; the run
// continues with the remaining sources.
var ErrSourceUnavailable = errors.New("search source unavailable")

// Provider is a single interchangeable search strategy: it accepts a title
// and returns zero or more raw candidate URLs in the source's own relevance
// order. Duplicates within and across providers are allowed; the
// orchestrator deduplicates.
type Provider interface {
	// Name returns the provider name for logging.
	Name() string

	// Search returns candidate image URLs for the title.
	Search(ctx context.Context, title string) ([]string, error)
}

// imageURLRe matches direct image URLs embedded in result HTML.
var imageURLRe = regexp.MustCompile(`(?i)https?://[^"'\s<>\\]+\.(?:jpe?g|png|webp)(?:\?[^"'\s<>\\]*)?`)

// thumbnailHosts serve search-engine thumbnails and CDN caches rather than
// original images; candidates on these hosts are dropped at search time.
var thumbnailHosts = []string{
	"gstatic.com",
	"googleusercontent.com",
	"encrypted-tbn0",
	"ggpht.com",
	"th.bing.com",
	"mm.bing.net",
	"duckduckgo.com",
}

// thumbnailTokens are URL substrings that indicate a downscaled or non-still
// asset regardless of host.
var thumbnailTokens = []string{
	"thumb", "icon", "avatar", "sprite", "favicon",
}

// usableCandidate reports whether a discovered URL is worth probing.
func usableCandidate(rawURL string) bool {
	if !strings.HasPrefix(rawURL, "http") {
		return false
	}
	lower := strings.ToLower(rawURL)
	for _, host := range thumbnailHosts {
		if strings.Contains(lower, host) {
			return false
		}
	}
	for _, token := range thumbnailTokens {
		if strings.Contains(lower, token) {
			return false
		}
	}
	return true
}

// Dedupe merges provider outputs in priority order, keeping the first
// occurrence of each URL and preserving first-seen order. A URL seen again
// under a later, lower-priority provider is dropped, not reordered.
func Dedupe(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var ordered []string
	for _, list := range lists {
		for _, u := range list {
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			ordered = append(ordered, u)
		}
	}
	return ordered
}
