package search

import (
	"context"

	"github.com/rs/zerolog"
)

// SourceRule binds a provider to its cost controls: a cap on how many of its
// results are kept and an accumulation threshold past which the provider is
// not queried at all. SkipAt <= 0 means the provider is always queried.
type SourceRule struct {
	Provider Provider
	Cap      int
	SkipAt   int
}

// Orchestrator queries providers in a fixed priority order, short-circuits
// lower-priority sources once enough unique candidates have accumulated, and
// merges results into a deduplicated first-seen-order list.
type Orchestrator struct {
	rules  []SourceRule
	logger zerolog.Logger
}

// NewOrchestrator creates an Orchestrator. Rule order is priority order,
// most reliable and structured source first.
func NewOrchestrator(rules []SourceRule, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		rules:  rules,
		logger: logger.With().Str("component", "search").Logger(),
	}
}

// Collect returns the deduplicated candidate list for a title. A provider
// failure never aborts the collection; the source simply contributes nothing.
func (o *Orchestrator) Collect(ctx context.Context, title string) []string {
	var merged []string

	for _, rule := range o.rules {
		if ctx.Err() != nil {
			break
		}

		if rule.SkipAt > 0 && len(merged) >= rule.SkipAt {
			o.logger.Debug().
				Str("provider", rule.Provider.Name()).
				Int("accumulated", len(merged)).
				Msg("Skipping source, enough candidates collected")
			continue
		}

		urls, err := rule.Provider.Search(ctx, title)
		if err != nil {
			o.logger.Warn().
				Err(err).
				Str("provider", rule.Provider.Name()).
				Msg("Source failed, continuing with remaining sources")
			continue
		}

		if rule.Cap > 0 && len(urls) > rule.Cap {
			urls = urls[:rule.Cap]
		}

		before := len(merged)
		merged = Dedupe(merged, urls)
		o.logger.Debug().
			Str("provider", rule.Provider.Name()).
			Int("returned", len(urls)).
			Int("added", len(merged)-before).
			Msg("Source queried")
	}

	o.logger.Info().Str("title", title).Int("candidates", len(merged)).Msg("Candidate collection completed")
	return merged
}
