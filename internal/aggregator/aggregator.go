// Package aggregator fans a single query out over the configured
// bibliographic registries, merges the normalized results in a fixed
// source order, and deduplicates them by DOI.
package aggregator

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/scholarmeta/metadata-service/internal/domain"
	"github.com/scholarmeta/metadata-service/internal/observability"
	"github.com/scholarmeta/metadata-service/internal/papersources"
)

// SourceFailure records a failed upstream call so partial results can be
// attributed without aborting the sibling source.
type SourceFailure struct {
	Source domain.SourceType
	Err    error
}

// Result holds the merged papers of one aggregation run together with
// the failures of any source that did not contribute.
type Result struct {
	Papers   []domain.Paper
	Failures []SourceFailure

	// queried is the number of sources the run fanned out to.
	queried int
}

// AllFailed reports whether every queried source failed.
func (r *Result) AllFailed() bool {
	return len(r.Failures) > 0 && len(r.Failures) == r.queried
}

// Aggregator coordinates concurrent searches across an ordered list of
// paper sources. The order determines merge precedence: all papers from
// the first source appear before any from the second, regardless of
// which upstream call finishes first.
type Aggregator struct {
	sources []papersources.PaperSource
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// New creates an Aggregator over the given sources. Source order is
// significant and preserved in merged output.
func New(sources []papersources.PaperSource, logger zerolog.Logger, metrics *observability.Metrics) *Aggregator {
	return &Aggregator{
		sources: sources,
		logger:  logger.With().Str("component", "aggregator").Logger(),
		metrics: metrics,
	}
}

// SplitLimit returns the per-source result cap for a search that
// merges two sources: half the requested limit rounded up, never less
// than one.
func SplitLimit(limit int) int {
	perSource := (limit + 1) / 2
	if perSource < 1 {
		perSource = 1
	}
	return perSource
}

// Search fans the request out to every enabled source concurrently and
// merges the results. With split true (the search path) each source is
// asked for ceil(limit/2) papers and the merged, deduplicated list is
// truncated to the requested limit. With split false (the trends path)
// each source receives the full limit and nothing is truncated.
//
// A failing source never aborts its sibling; its error is recorded as a
// SourceFailure and the surviving papers are returned. When every source
// fails the result carries an empty slice plus one failure per source,
// and the caller decides how to surface that.
func (a *Aggregator) Search(ctx context.Context, req domain.SearchRequest, split bool) *Result {
	sources := a.enabledSources()
	if len(sources) == 0 {
		return &Result{}
	}

	perSource := req.Limit
	if split {
		perSource = SplitLimit(req.Limit)
	}

	params := papersources.SearchParams{
		Query:      req.Query,
		FromYear:   req.FromYear,
		ToYear:     req.ToYear,
		MaxResults: perSource,
	}

	type outcome struct {
		papers []domain.Paper
		err    error
	}

	// Indexed slice instead of a channel so merge order follows source
	// order, not completion order.
	outcomes := make([]outcome, len(sources))
	var wg sync.WaitGroup

	for i, source := range sources {
		wg.Add(1)
		go func(i int, s papersources.PaperSource) {
			defer wg.Done()

			label := string(s.SourceType())
			a.metrics.SearchesStarted.WithLabelValues(label).Inc()
			start := time.Now()

			papers, err := s.Search(ctx, params)
			a.metrics.SearchDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())

			if err != nil {
				a.metrics.SearchesFailed.WithLabelValues(label).Inc()
			} else {
				a.metrics.SearchesCompleted.WithLabelValues(label).Inc()
				a.metrics.PapersPerSearch.WithLabelValues(label).Observe(float64(len(papers)))
			}

			outcomes[i] = outcome{papers: papers, err: err}
		}(i, source)
	}

	wg.Wait()

	result := &Result{queried: len(sources)}
	merged := make([]domain.Paper, 0, perSource*len(sources))
	for i, out := range outcomes {
		if out.err != nil {
			a.logger.Warn().
				Err(out.err).
				Str("source", sources[i].Name()).
				Str("query", req.Query).
				Msg("source search failed")
			result.Failures = append(result.Failures, SourceFailure{
				Source: sources[i].SourceType(),
				Err:    out.err,
			})
			continue
		}
		merged = append(merged, out.papers...)
	}

	merged = domain.DeduplicateByDOI(merged)
	if split && len(merged) > req.Limit {
		merged = merged[:req.Limit]
	}
	result.Papers = merged

	return result
}

// Lookup resolves a single DOI by trying each source in order. A source
// error or an absent record both fall through to the next source; the
// error is downgraded to a warning so masked outages stay visible in the
// logs. When every source is exhausted the caller gets a NotFoundError
// regardless of why individual sources came up empty.
func (a *Aggregator) Lookup(ctx context.Context, doi string) (*domain.Paper, domain.SourceType, error) {
	normalized := domain.NormalizeDOI(doi)
	a.metrics.LookupsStarted.Inc()

	for i, source := range a.enabledSources() {
		if i > 0 {
			a.metrics.LookupFallbacks.Inc()
		}

		paper, err := source.GetByDOI(ctx, normalized)
		if err != nil {
			a.logger.Warn().
				Err(err).
				Str("source", source.Name()).
				Str("doi", normalized).
				Msg("lookup failed, trying next source")
			continue
		}
		return paper, source.SourceType(), nil
	}

	a.metrics.LookupsNotFound.Inc()
	return nil, "", domain.NewNotFoundError("paper", normalized)
}

// enabledSources filters the configured sources down to the enabled
// ones, preserving order.
func (a *Aggregator) enabledSources() []papersources.PaperSource {
	enabled := make([]papersources.PaperSource, 0, len(a.sources))
	for _, source := range a.sources {
		if source.IsEnabled() {
			enabled = append(enabled, source)
		}
	}
	return enabled
}
