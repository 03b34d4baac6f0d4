package aggregator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarmeta/metadata-service/internal/domain"
	"github.com/scholarmeta/metadata-service/internal/observability"
	"github.com/scholarmeta/metadata-service/internal/papersources"
)

// testMetrics is shared across tests because promauto registers with the
// default registry and duplicate registration panics.
var (
	testMetrics     *observability.Metrics
	testMetricsOnce sync.Once
)

func metricsForTest() *observability.Metrics {
	testMetricsOnce.Do(func() {
		testMetrics = observability.NewMetrics("aggregatortest")
	})
	return testMetrics
}

// stubSource is a scripted PaperSource for exercising the aggregator
// without network access.
type stubSource struct {
	sourceType domain.SourceType
	name       string
	enabled    bool
	delay      time.Duration

	searchPapers []domain.Paper
	searchErr    error
	gotParams    papersources.SearchParams

	lookupPaper *domain.Paper
	lookupErr   error
	lookupDOI   string
}

func (s *stubSource) Search(ctx context.Context, params papersources.SearchParams) ([]domain.Paper, error) {
	s.gotParams = params
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.searchPapers, s.searchErr
}

func (s *stubSource) GetByDOI(ctx context.Context, doi string) (*domain.Paper, error) {
	s.lookupDOI = doi
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	return s.lookupPaper, nil
}

func (s *stubSource) SourceType() domain.SourceType { return s.sourceType }
func (s *stubSource) Name() string                  { return s.name }
func (s *stubSource) IsEnabled() bool               { return s.enabled }

func paper(doi, title string) domain.Paper {
	return domain.Paper{Title: title, DOI: "https://doi.org/" + doi, Year: 2021}
}

func newTestAggregator(sources ...papersources.PaperSource) *Aggregator {
	return New(sources, zerolog.Nop(), metricsForTest())
}

func TestSplitLimit(t *testing.T) {
	tests := []struct {
		limit int
		want  int
	}{
		{limit: 1, want: 1},
		{limit: 2, want: 1},
		{limit: 3, want: 2},
		{limit: 20, want: 10},
		{limit: 21, want: 11},
		{limit: 0, want: 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SplitLimit(tt.limit), "limit %d", tt.limit)
	}
}

func TestAggregator_Search(t *testing.T) {
	t.Run("merge order follows source order not completion order", func(t *testing.T) {
		first := &stubSource{
			sourceType:   domain.SourceTypeOpenAlex,
			name:         "OpenAlex",
			enabled:      true,
			delay:        50 * time.Millisecond, // finishes second
			searchPapers: []domain.Paper{paper("10.1/a", "A"), paper("10.1/b", "B")},
		}
		second := &stubSource{
			sourceType:   domain.SourceTypeCrossRef,
			name:         "CrossRef",
			enabled:      true,
			searchPapers: []domain.Paper{paper("10.1/c", "C")},
		}

		agg := newTestAggregator(first, second)
		result := agg.Search(context.Background(), domain.SearchRequest{Query: "q", Limit: 10}, true)

		require.Len(t, result.Papers, 3)
		assert.Equal(t, "https://doi.org/10.1/a", result.Papers[0].DOI)
		assert.Equal(t, "https://doi.org/10.1/b", result.Papers[1].DOI)
		assert.Equal(t, "https://doi.org/10.1/c", result.Papers[2].DOI)
		assert.Empty(t, result.Failures)
	})

	t.Run("splits limit per source on the search path", func(t *testing.T) {
		first := &stubSource{sourceType: domain.SourceTypeOpenAlex, name: "OpenAlex", enabled: true}
		second := &stubSource{sourceType: domain.SourceTypeCrossRef, name: "CrossRef", enabled: true}

		agg := newTestAggregator(first, second)
		agg.Search(context.Background(), domain.SearchRequest{Query: "q", Limit: 5}, true)

		assert.Equal(t, 3, first.gotParams.MaxResults)
		assert.Equal(t, 3, second.gotParams.MaxResults)
	})

	t.Run("passes full limit when not splitting", func(t *testing.T) {
		first := &stubSource{sourceType: domain.SourceTypeOpenAlex, name: "OpenAlex", enabled: true}

		agg := newTestAggregator(first)
		agg.Search(context.Background(), domain.SearchRequest{Query: "q", Limit: 20}, false)

		assert.Equal(t, 20, first.gotParams.MaxResults)
	})

	t.Run("deduplicates across sources case-insensitively", func(t *testing.T) {
		first := &stubSource{
			sourceType:   domain.SourceTypeOpenAlex,
			name:         "OpenAlex",
			enabled:      true,
			searchPapers: []domain.Paper{paper("10.1/ABC", "From OpenAlex")},
		}
		second := &stubSource{
			sourceType:   domain.SourceTypeCrossRef,
			name:         "CrossRef",
			enabled:      true,
			searchPapers: []domain.Paper{paper("10.1/abc", "From CrossRef"), paper("10.1/other", "Other")},
		}

		agg := newTestAggregator(first, second)
		result := agg.Search(context.Background(), domain.SearchRequest{Query: "q", Limit: 10}, true)

		require.Len(t, result.Papers, 2)
		// First occurrence wins.
		assert.Equal(t, "From OpenAlex", result.Papers[0].Title)
	})

	t.Run("truncates to requested limit only when splitting", func(t *testing.T) {
		papers := []domain.Paper{paper("10.1/a", "A"), paper("10.1/b", "B"), paper("10.1/c", "C")}
		first := &stubSource{sourceType: domain.SourceTypeOpenAlex, name: "OpenAlex", enabled: true, searchPapers: papers}
		second := &stubSource{sourceType: domain.SourceTypeCrossRef, name: "CrossRef", enabled: true,
			searchPapers: []domain.Paper{paper("10.1/d", "D")}}

		agg := newTestAggregator(first, second)

		split := agg.Search(context.Background(), domain.SearchRequest{Query: "q", Limit: 2}, true)
		assert.Len(t, split.Papers, 2)

		full := agg.Search(context.Background(), domain.SearchRequest{Query: "q", Limit: 2}, false)
		assert.Len(t, full.Papers, 4)
	})

	t.Run("partial failure keeps surviving source results", func(t *testing.T) {
		first := &stubSource{
			sourceType: domain.SourceTypeOpenAlex,
			name:       "OpenAlex",
			enabled:    true,
			searchErr:  domain.NewExternalAPIError(domain.SourceTypeOpenAlex, 503, "unavailable", nil),
		}
		second := &stubSource{
			sourceType:   domain.SourceTypeCrossRef,
			name:         "CrossRef",
			enabled:      true,
			searchPapers: []domain.Paper{paper("10.1/ok", "Survivor")},
		}

		agg := newTestAggregator(first, second)
		result := agg.Search(context.Background(), domain.SearchRequest{Query: "q", Limit: 10}, true)

		require.Len(t, result.Papers, 1)
		assert.Equal(t, "Survivor", result.Papers[0].Title)
		require.Len(t, result.Failures, 1)
		assert.Equal(t, domain.SourceTypeOpenAlex, result.Failures[0].Source)
		assert.False(t, result.AllFailed())
	})

	t.Run("all sources failing is reported to the caller", func(t *testing.T) {
		first := &stubSource{sourceType: domain.SourceTypeOpenAlex, name: "OpenAlex", enabled: true,
			searchErr: errors.New("down")}
		second := &stubSource{sourceType: domain.SourceTypeCrossRef, name: "CrossRef", enabled: true,
			searchErr: errors.New("also down")}

		agg := newTestAggregator(first, second)
		result := agg.Search(context.Background(), domain.SearchRequest{Query: "q", Limit: 10}, true)

		assert.Empty(t, result.Papers)
		assert.Len(t, result.Failures, 2)
		assert.True(t, result.AllFailed())
	})

	t.Run("disabled sources are skipped", func(t *testing.T) {
		first := &stubSource{sourceType: domain.SourceTypeOpenAlex, name: "OpenAlex", enabled: false}
		second := &stubSource{
			sourceType:   domain.SourceTypeCrossRef,
			name:         "CrossRef",
			enabled:      true,
			searchPapers: []domain.Paper{paper("10.1/x", "X")},
		}

		agg := newTestAggregator(first, second)
		result := agg.Search(context.Background(), domain.SearchRequest{Query: "q", Limit: 10}, true)

		require.Len(t, result.Papers, 1)
		assert.Zero(t, first.gotParams.Query)
	})
}

func TestAggregator_Lookup(t *testing.T) {
	found := paper("10.1/hit", "Found")

	t.Run("first source hit", func(t *testing.T) {
		first := &stubSource{sourceType: domain.SourceTypeOpenAlex, name: "OpenAlex", enabled: true, lookupPaper: &found}
		second := &stubSource{sourceType: domain.SourceTypeCrossRef, name: "CrossRef", enabled: true}

		agg := newTestAggregator(first, second)
		p, source, err := agg.Lookup(context.Background(), "10.1/hit")

		require.NoError(t, err)
		assert.Equal(t, &found, p)
		assert.Equal(t, domain.SourceTypeOpenAlex, source)
		// The second source is never consulted.
		assert.Empty(t, second.lookupDOI)
	})

	t.Run("falls back to second source on not found", func(t *testing.T) {
		first := &stubSource{sourceType: domain.SourceTypeOpenAlex, name: "OpenAlex", enabled: true,
			lookupErr: domain.NewNotFoundError("paper", "10.1/hit")}
		second := &stubSource{sourceType: domain.SourceTypeCrossRef, name: "CrossRef", enabled: true, lookupPaper: &found}

		agg := newTestAggregator(first, second)
		p, source, err := agg.Lookup(context.Background(), "10.1/hit")

		require.NoError(t, err)
		assert.Equal(t, &found, p)
		assert.Equal(t, domain.SourceTypeCrossRef, source)
	})

	t.Run("falls back to second source on upstream error", func(t *testing.T) {
		first := &stubSource{sourceType: domain.SourceTypeOpenAlex, name: "OpenAlex", enabled: true,
			lookupErr: domain.NewExternalAPIError(domain.SourceTypeOpenAlex, 500, "boom", nil)}
		second := &stubSource{sourceType: domain.SourceTypeCrossRef, name: "CrossRef", enabled: true, lookupPaper: &found}

		agg := newTestAggregator(first, second)
		p, _, err := agg.Lookup(context.Background(), "10.1/hit")

		require.NoError(t, err)
		assert.Equal(t, &found, p)
	})

	t.Run("exhaustion yields not found even when sources errored", func(t *testing.T) {
		first := &stubSource{sourceType: domain.SourceTypeOpenAlex, name: "OpenAlex", enabled: true,
			lookupErr: domain.NewExternalAPIError(domain.SourceTypeOpenAlex, 500, "boom", nil)}
		second := &stubSource{sourceType: domain.SourceTypeCrossRef, name: "CrossRef", enabled: true,
			lookupErr: domain.NewNotFoundError("paper", "10.1/gone")}

		agg := newTestAggregator(first, second)
		_, _, err := agg.Lookup(context.Background(), "10.1/gone")

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("normalizes resolver-prefixed DOI before querying", func(t *testing.T) {
		first := &stubSource{sourceType: domain.SourceTypeOpenAlex, name: "OpenAlex", enabled: true, lookupPaper: &found}

		agg := newTestAggregator(first)
		_, _, err := agg.Lookup(context.Background(), "https://doi.org/10.1/hit")

		require.NoError(t, err)
		assert.Equal(t, "10.1/hit", first.lookupDOI)
	})
}
