// Package service implements the cache-gated request pipeline: every
// operation checks the cache first, computes on miss through the
// aggregator (and, for trends, the extractor), and stores the fresh
// response only when it is eligible.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/scholarmeta/metadata-service/internal/aggregator"
	"github.com/scholarmeta/metadata-service/internal/cache"
	"github.com/scholarmeta/metadata-service/internal/domain"
	"github.com/scholarmeta/metadata-service/internal/observability"
	"github.com/scholarmeta/metadata-service/internal/trends"
)

// Cache key namespaces.
const (
	namespaceSearch = "search"
	namespaceTrends = "trends"
	namespaceLookup = "lookup"
)

// TTLConfig holds the cache lifetime per response kind.
type TTLConfig struct {
	Search time.Duration
	Trends time.Duration
	Lookup time.Duration
}

// applyDefaults sets default TTLs for unset fields.
func (c *TTLConfig) applyDefaults() {
	if c.Search == 0 {
		c.Search = cache.DefaultSearchTTL
	}
	if c.Trends == 0 {
		c.Trends = cache.DefaultTrendsTTL
	}
	if c.Lookup == 0 {
		c.Lookup = cache.DefaultLookupTTL
	}
}

// Filters echoes the year bounds of a request in responses. Unset
// bounds serialize as null.
type Filters struct {
	FromYear *int `json:"from_year"`
	ToYear   *int `json:"to_year"`
}

// SearchResponse is the payload of the search operation.
type SearchResponse struct {
	Query   string         `json:"query"`
	Filters Filters        `json:"filters"`
	Count   int            `json:"count"`
	Results []domain.Paper `json:"results"`
}

// TrendsResponse is the payload of the trends operation.
type TrendsResponse struct {
	Query       string                `json:"query"`
	Filters     Filters               `json:"filters"`
	TotalPapers int                   `json:"total_papers"`
	Top         int                   `json:"top"`
	Unigrams    []trends.TermCount    `json:"unigrams"`
	Bigrams     []trends.TermCount    `json:"bigrams"`
	Trigrams    []trends.TermCount    `json:"trigrams"`
	PerYear     map[int]trends.Table `json:"per_year"`
}

// LookupResponse is the payload of the lookup operation, tagging the
// paper with the source that resolved it.
type LookupResponse struct {
	Source domain.SourceType `json:"source"`
	Paper  *domain.Paper     `json:"paper"`
}

// Service orchestrates search, trends, and lookup over the aggregator
// with the cache gate in front.
type Service struct {
	aggregator *aggregator.Aggregator
	gate       *cache.Gate
	ttls       TTLConfig
	logger     zerolog.Logger
	metrics    *observability.Metrics
}

// New creates a Service.
func New(agg *aggregator.Aggregator, gate *cache.Gate, ttls TTLConfig, logger zerolog.Logger, metrics *observability.Metrics) *Service {
	ttls.applyDefaults()
	return &Service{
		aggregator: agg,
		gate:       gate,
		ttls:       ttls,
		logger:     logger.With().Str("component", "service").Logger(),
		metrics:    metrics,
	}
}

// Search runs a cache-gated split search across both registries.
func (s *Service) Search(ctx context.Context, req domain.SearchRequest) (*SearchResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	key := searchKey(req)
	if payload, hit := s.gate.Get(ctx, namespaceSearch, key); hit {
		var resp SearchResponse
		if err := json.Unmarshal(payload, &resp); err == nil {
			return &resp, nil
		}
		s.logger.Warn().Str("key", key).Msg("discarding undecodable cache entry")
	}

	result := s.aggregator.Search(ctx, req, true)
	if err := s.checkAllFailed(result, req.Query); err != nil {
		return nil, err
	}

	resp := &SearchResponse{
		Query:   req.Query,
		Filters: filtersFor(req),
		Count:   len(result.Papers),
		Results: result.Papers,
	}

	s.storeIfCacheable(ctx, namespaceSearch, key, resp, len(resp.Results), s.ttls.Search)
	return resp, nil
}

// Trends runs a cache-gated full-limit aggregation and derives n-gram
// frequency tables from the merged titles.
func (s *Service) Trends(ctx context.Context, req domain.TrendsRequest) (*TrendsResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	key := trendsKey(req)
	if payload, hit := s.gate.Get(ctx, namespaceTrends, key); hit {
		var resp TrendsResponse
		if err := json.Unmarshal(payload, &resp); err == nil {
			return &resp, nil
		}
		s.logger.Warn().Str("key", key).Msg("discarding undecodable cache entry")
	}

	result := s.aggregator.Search(ctx, req.SearchRequest, false)
	if err := s.checkAllFailed(result, req.Query); err != nil {
		return nil, err
	}

	titles := make([]string, 0, len(result.Papers))
	for _, p := range result.Papers {
		if p.Title != "" {
			titles = append(titles, p.Title)
		}
	}

	table := trends.Extract(titles, req.Top)
	resp := &TrendsResponse{
		Query:       req.Query,
		Filters:     filtersFor(req.SearchRequest),
		TotalPapers: len(result.Papers),
		Top:         req.Top,
		Unigrams:    table.Unigrams,
		Bigrams:     table.Bigrams,
		Trigrams:    table.Trigrams,
		PerYear:     trends.PerYear(result.Papers, req.Top),
	}

	s.storeIfCacheable(ctx, namespaceTrends, key, resp, resp.TotalPapers, s.ttls.Trends)
	return resp, nil
}

// Lookup resolves a single DOI through the source fallback chain.
func (s *Service) Lookup(ctx context.Context, doi string) (*LookupResponse, error) {
	normalized := domain.NormalizeDOI(doi)
	if normalized == "" {
		return nil, domain.NewValidationError("doi", "must not be empty")
	}

	key := cache.Key(namespaceLookup, map[string]string{"doi": normalized})
	if payload, hit := s.gate.Get(ctx, namespaceLookup, key); hit {
		var resp LookupResponse
		if err := json.Unmarshal(payload, &resp); err == nil {
			return &resp, nil
		}
		s.logger.Warn().Str("key", key).Msg("discarding undecodable cache entry")
	}

	paper, source, err := s.aggregator.Lookup(ctx, normalized)
	if err != nil {
		// Not-found responses are never cached.
		return nil, err
	}

	resp := &LookupResponse{Source: source, Paper: paper}
	count := 0
	if paper != nil {
		count = 1
	}
	s.storeIfCacheable(ctx, namespaceLookup, key, resp, count, s.ttls.Lookup)
	return resp, nil
}

// checkAllFailed maps a run where every source failed and nothing was
// produced to a gateway-style upstream failure.
func (s *Service) checkAllFailed(result *aggregator.Result, query string) error {
	if !result.AllFailed() {
		return nil
	}

	for _, failure := range result.Failures {
		s.logger.Error().
			Err(failure.Err).
			Str("source", string(failure.Source)).
			Str("query", query).
			Msg("source failed with no surviving sibling")
	}
	return fmt.Errorf("all upstream sources failed: %w", domain.ErrServiceUnavailable)
}

// storeIfCacheable serializes the response and stores it when the
// eligibility policy allows. Empty result sets are never stored.
func (s *Service) storeIfCacheable(ctx context.Context, namespace, key string, resp interface{}, resultCount int, ttl time.Duration) {
	payload, err := json.Marshal(resp)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("response not serializable, skipping cache store")
		return
	}
	if !cache.Cacheable(payload, resultCount) {
		return
	}
	s.gate.Set(ctx, namespace, key, payload, ttl)
}

// searchKey derives the cache key from the canonicalized search
// parameters.
func searchKey(req domain.SearchRequest) string {
	return cache.Key(namespaceSearch, map[string]string{
		"query": req.Query,
		"from":  strconv.Itoa(req.FromYear),
		"to":    strconv.Itoa(req.ToYear),
		"limit": strconv.Itoa(req.Limit),
	})
}

// trendsKey derives the cache key from the canonicalized trends
// parameters.
func trendsKey(req domain.TrendsRequest) string {
	return cache.Key(namespaceTrends, map[string]string{
		"query": req.Query,
		"from":  strconv.Itoa(req.FromYear),
		"to":    strconv.Itoa(req.ToYear),
		"limit": strconv.Itoa(req.Limit),
		"top":   strconv.Itoa(req.Top),
	})
}

// filtersFor echoes the optional year bounds, mapping zero to null.
func filtersFor(req domain.SearchRequest) Filters {
	var f Filters
	if req.FromYear != 0 {
		from := req.FromYear
		f.FromYear = &from
	}
	if req.ToYear != 0 {
		to := req.ToYear
		f.ToYear = &to
	}
	return f
}
