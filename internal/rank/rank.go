// Package rank scans an ordered candidate list, measures each image, filters
// by landscape floors and selects the best-scoring candidate under a
// composite objective with an early-termination rule.
package rank

import (
	"context"
	"errors"
	"math"

	"github.com/rs/zerolog"

	"github.com/reelframe/reelframe/internal/colorspace"
	"github.com/reelframe/reelframe/internal/probe"
)

// ErrNoCandidate indicates the scan completed with zero qualifying
// candidates. This is a clean not-found, not a failure of the run.
var ErrNoCandidate = errors.New("no acceptable candidate")

// Prober abstracts candidate fetching so the engine can be tested against
// stubs and later parallelized behind the same seam.
type Prober interface {
	Probe(ctx context.Context, url string) (*probe.Image, error)
}

// Params are the tuning knobs of the composite objective. All values are
// empirically tuned, not learned; they come from configuration so they stay
// easy to inspect and adjust.
type Params struct {
	MinWidth          int     // hard floor: candidates narrower than this never qualify
	MinAspect         float64 // hard floor: width/height below this is not landscape enough
	TargetAspect      float64 // ideal width/height, nominally 16:9
	AspectWeight      float64 // penalty per unit of aspect deviation
	ColorNormalizer   float64 // divides the Lab delta-E before it enters the score
	ColorFailPenalty  float64 // delta-E stand-in when color cannot be computed
	EarlyExitScore    float64 // stop scanning once best score drops below this...
	EarlyExitMinValid int     // ...and at least this many valid candidates were seen
	MaxProbes         int     // hard cap on probe attempts, successful or not
}

// Selection is the winning candidate: payload, inferred extension and the
// measurements that earned it the spot.
type Selection struct {
	URL       string
	Data      []byte
	Extension string
	Width     int
	Height    int
	Score     float64
}

// scanState describes why the candidate loop stopped.
type scanState int

const (
	scanExhausted scanState = iota // ordered candidate list consumed
	scanSatisfied                  // best candidate good enough, stopped early
	scanCapped                     // hard probe cap reached
	scanCancelled                  // caller cancelled the run
)

func (s scanState) String() string {
	switch s {
	case scanSatisfied:
		return "satisfied"
	case scanCapped:
		return "capped"
	case scanCancelled:
		return "cancelled"
	default:
		return "exhausted"
	}
}

// Engine ranks probed candidates against a poster reference color.
type Engine struct {
	prober Prober
	params Params
	logger zerolog.Logger
}

// New creates a ranking engine.
func New(prober Prober, params Params, logger zerolog.Logger) *Engine {
	return &Engine{
		prober: prober,
		params: params,
		logger: logger.With().Str("component", "rank").Logger(),
	}
}

// SelectBest probes candidates one at a time in list order and returns the
// best-scoring one. posterColor may be nil: the scan still runs, scoring
// every candidate with the fixed ColorFailPenalty in place of a measured
// color distance, so aspect and resolution decide alone.
//
// Candidates that fail to download, fail the minimum width or fail the
// aspect floor never influence the result. Ties keep the first-discovered
// candidate: only a strictly lower score replaces the running best.
func (e *Engine) SelectBest(ctx context.Context, urls []string, posterColor *colorspace.Lab) (*Selection, error) {
	var best *Selection
	probed := 0
	valid := 0
	state := scanExhausted

scan:
	for _, url := range urls {
		if ctx.Err() != nil {
			state = scanCancelled
			break
		}
		if probed >= e.params.MaxProbes {
			state = scanCapped
			break
		}
		probed++

		img, err := e.prober.Probe(ctx, url)
		if err != nil {
			// Dead links and blocked hosts are routine; skip and move on.
			e.logger.Debug().Err(err).Str("url", url).Msg("Candidate probe failed")
			continue
		}

		if img.Width < e.params.MinWidth {
			continue
		}
		ratio := img.AspectRatio()
		if ratio < e.params.MinAspect {
			continue
		}

		valid++
		score := e.score(img, posterColor)

		if best == nil || score < best.Score {
			best = &Selection{
				URL:       url,
				Data:      img.Data,
				Extension: probe.InferExtension(url, img.ContentType),
				Width:     img.Width,
				Height:    img.Height,
				Score:     score,
			}
			e.logger.Info().
				Str("url", url).
				Int("width", img.Width).
				Int("height", img.Height).
				Float64("aspect", ratio).
				Float64("score", score).
				Msg("New best candidate")
		}

		if best.Score < e.params.EarlyExitScore && valid >= e.params.EarlyExitMinValid {
			state = scanSatisfied
			break scan
		}
	}

	e.logger.Info().
		Str("state", state.String()).
		Int("probed", probed).
		Int("valid", valid).
		Msg("Candidate scan finished")

	// A cancelled run yields nothing, even when a qualifying candidate was
	// already in hand: the caller asked to stop, not to settle.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if best == nil {
		return nil, ErrNoCandidate
	}
	return best, nil
}

// score computes the composite objective, lower is better:
// normalized color distance plus aspect deviation penalty, minus logarithmic
// size and capped width bonuses.
func (e *Engine) score(img *probe.Image, posterColor *colorspace.Lab) float64 {
	de := e.params.ColorFailPenalty
	if posterColor != nil {
		if lab, err := colorspace.AverageColor(img.Data); err == nil {
			de = colorspace.DeltaE(lab, *posterColor)
		} else {
			e.logger.Debug().Err(err).Msg("Candidate color extraction failed, applying penalty")
		}
	}

	aspectPenalty := math.Abs(img.AspectRatio()-e.params.TargetAspect) * e.params.AspectWeight

	// Reward larger widths with slow saturation; the reference width for the
	// bonuses is 1.5x the hard floor, matching 1920 over a 1280 floor.
	refWidth := float64(e.params.MinWidth) * 1.5
	w := float64(img.Width)
	sizeBonus := math.Log2(math.Max(w, refWidth)) / 15.0
	widthBonus := math.Min(math.Max(0, (w-refWidth)/10000.0), 0.5)

	return de/e.params.ColorNormalizer + aspectPenalty - sizeBonus - widthBonus
}
