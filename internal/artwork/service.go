// Package artwork orchestrates the two halves of a fetch run: the IMDb
// poster lookup and the multi-source landscape search ranked against the
// poster's average color.
package artwork

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/reelframe/reelframe/internal/colorspace"
	"github.com/reelframe/reelframe/internal/imdb"
	"github.com/reelframe/reelframe/internal/probe"
	"github.com/reelframe/reelframe/internal/rank"
	"github.com/reelframe/reelframe/internal/retry"
	"github.com/reelframe/reelframe/internal/search"
)

// ErrNoPoster indicates no poster variant met the portrait and minimum
// height requirements.
var ErrNoPoster = errors.New("no acceptable poster")

// Image is a fetched artifact: payload plus its inferred extension.
type Image struct {
	Data      []byte
	Extension string
	Width     int
	Height    int
}

// Result is the outcome of a full fetch run. Either half may be nil; partial
// success is expected, not an error state.
type Result struct {
	Title     string
	Poster    *Image
	Landscape *Image
}

// TitleResolver resolves a film title to its suggestion entry.
type TitleResolver interface {
	FindTitle(ctx context.Context, title string) (*imdb.Title, error)
}

// Collector gathers candidate landscape URLs for a title.
type Collector interface {
	Collect(ctx context.Context, title string) []string
}

// Selector ranks candidate URLs against an optional poster reference color.
type Selector interface {
	SelectBest(ctx context.Context, urls []string, posterColor *colorspace.Lab) (*rank.Selection, error)
}

// Prober fetches and measures a single image URL.
type Prober interface {
	Probe(ctx context.Context, url string) (*probe.Image, error)
}

// Config holds the poster acceptance floor.
type Config struct {
	MinPosterHeight int
}

// Service runs poster and landscape fetches.
type Service struct {
	resolver  TitleResolver
	collector Collector
	selector  Selector
	prober    Prober
	cfg       Config
	retryCfg  retry.Config
	logger    zerolog.Logger
}

// NewService creates an artwork service.
func NewService(resolver TitleResolver, collector Collector, selector Selector, prober Prober, cfg Config, logger zerolog.Logger) *Service {
	return &Service{
		resolver:  resolver,
		collector: collector,
		selector:  selector,
		prober:    prober,
		cfg:       cfg,
		retryCfg:  retry.DefaultConfig(),
		logger:    logger.With().Str("component", "artwork").Logger(),
	}
}

// Fetch runs both halves for a title. A poster failure does not abort the
// landscape search: the ranking proceeds with a neutral color distance.
func (s *Service) Fetch(ctx context.Context, title string) (*Result, error) {
	result := &Result{Title: title}

	var posterColor *colorspace.Lab
	poster, color, err := s.FetchPoster(ctx, title)
	switch {
	case err == nil:
		result.Poster = poster
		posterColor = color
	case isCancellation(err):
		// An interrupted run aborts outright; nothing gets saved.
		return nil, err
	default:
		s.logger.Warn().Err(err).Str("title", title).Msg("Poster fetch failed, landscape ranking will use a neutral color distance")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	landscape, err := s.FetchLandscape(ctx, title, posterColor)
	switch {
	case err == nil:
		result.Landscape = landscape
	case isCancellation(err):
		return nil, err
	default:
		s.logger.Warn().Err(err).Str("title", title).Msg("Landscape fetch failed")
	}

	if result.Poster == nil && result.Landscape == nil {
		return result, fmt.Errorf("nothing found for %q", title)
	}
	return result, nil
}

// FetchPoster resolves the title on IMDb, probes hi-res poster variants from
// largest down and returns the first portrait image at least MinPosterHeight
// tall, together with its average Lab color.
func (s *Service) FetchPoster(ctx context.Context, title string) (*Image, *colorspace.Lab, error) {
	// The suggest endpoint occasionally drops connections; transient network
	// failures are retried with backoff, real lookup failures are not.
	var entry *imdb.Title
	err := retry.Do(ctx, "title lookup", s.retryCfg, func() error {
		var findErr error
		entry, findErr = s.resolver.FindTitle(ctx, title)
		return findErr
	}, s.logger)
	if err != nil {
		return nil, nil, err
	}
	if entry.PosterURL == "" {
		return nil, nil, ErrNoPoster
	}

	for _, url := range imdb.HiResVariants(entry.PosterURL) {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}

		img, err := s.prober.Probe(ctx, url)
		if err != nil {
			continue
		}
		if img.Height < s.cfg.MinPosterHeight || img.Height <= img.Width {
			continue
		}

		color, err := colorspace.AverageColor(img.Data)
		if err != nil {
			s.logger.Debug().Err(err).Str("url", url).Msg("Poster color extraction failed")
			continue
		}

		s.logger.Info().
			Str("title", title).
			Str("url", url).
			Int("width", img.Width).
			Int("height", img.Height).
			Msg("Poster selected")

		return &Image{
			Data:      img.Data,
			Extension: probe.InferExtension(url, img.ContentType),
			Width:     img.Width,
			Height:    img.Height,
		}, &color, nil
	}

	return nil, nil, ErrNoPoster
}

// FetchLandscape collects candidates from the search sources and returns the
// best-ranked one. posterColor may be nil (see rank.Engine.SelectBest).
func (s *Service) FetchLandscape(ctx context.Context, title string, posterColor *colorspace.Lab) (*Image, error) {
	candidates := s.collector.Collect(ctx, title)
	if len(candidates) == 0 {
		return nil, rank.ErrNoCandidate
	}

	selection, err := s.selector.SelectBest(ctx, candidates, posterColor)
	if err != nil {
		return nil, err
	}

	return &Image{
		Data:      selection.Data,
		Extension: selection.Extension,
		Width:     selection.Width,
		Height:    selection.Height,
	}, nil
}

// isCancellation reports whether err stems from the caller cancelling the
// run rather than from a failed lookup or download.
func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

var (
	unsafeFilenameRe = regexp.MustCompile(`[\\/:*?"<>|]`)
	trailingParenRe  = regexp.MustCompile(`\s+\(.*?\)$`)
)

// SanitizeTitle strips filesystem-unsafe characters and a trailing
// parenthesized qualifier (usually a year) from a title for use in filenames.
func SanitizeTitle(title string) string {
	clean := trailingParenRe.ReplaceAllString(title, "")
	clean = unsafeFilenameRe.ReplaceAllString(clean, "")
	return strings.Join(strings.Fields(clean), " ")
}

// Ensure the concrete implementations satisfy the service seams.
var (
	_ TitleResolver = (*imdb.Client)(nil)
	_ Collector     = (*search.Orchestrator)(nil)
	_ Selector      = (*rank.Engine)(nil)
	_ Prober        = (*probe.Prober)(nil)
)
