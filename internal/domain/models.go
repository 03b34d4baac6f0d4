// Package domain contains the core types shared across the metadata
// aggregation service: the canonical Paper record, request parameters,
// source identifiers, and error types.
package domain

// SourceType identifies the upstream registry that provided paper data.
type SourceType string

const (
	// SourceTypeOpenAlex is the OpenAlex scholarly works index.
	SourceTypeOpenAlex SourceType = "openalex"

	// SourceTypeCrossRef is the CrossRef citation-metadata registry.
	SourceTypeCrossRef SourceType = "crossref"
)

// Request parameter bounds shared by search and trends.
const (
	// MinLimit is the smallest accepted result limit.
	MinLimit = 1

	// MaxLimit is the largest accepted result limit.
	MaxLimit = 50

	// DefaultLimit is the result limit applied when the client omits one.
	DefaultLimit = 20

	// MinTop is the smallest accepted frequency-table size.
	MinTop = 1

	// MaxTop is the largest accepted frequency-table size.
	MaxTop = 50

	// DefaultTop is the frequency-table size applied when omitted.
	DefaultTop = 10
)

// SearchRequest carries validated parameters for a paper search.
// Year bounds use zero to mean "unset".
type SearchRequest struct {
	// Query is the free-text search query. Never empty past validation.
	Query string

	// FromYear is the inclusive lower publication-year bound, 0 if open.
	FromYear int

	// ToYear is the inclusive upper publication-year bound, 0 if open.
	ToYear int

	// Limit caps the number of results, within [MinLimit, MaxLimit].
	Limit int
}

// Validate checks the request parameters against the accepted bounds.
func (r *SearchRequest) Validate() error {
	if r.Query == "" {
		return NewValidationError("query", "must not be empty")
	}
	if r.Limit < MinLimit || r.Limit > MaxLimit {
		return NewValidationError("limit", "must be between 1 and 50")
	}
	if r.FromYear != 0 && r.ToYear != 0 && r.FromYear > r.ToYear {
		return NewValidationError("from_year", "must not exceed to_year")
	}
	return nil
}

// TrendsRequest carries validated parameters for a trend extraction.
type TrendsRequest struct {
	SearchRequest

	// Top caps each frequency table, within [MinTop, MaxTop].
	Top int
}

// Validate checks the request parameters against the accepted bounds.
func (r *TrendsRequest) Validate() error {
	if err := r.SearchRequest.Validate(); err != nil {
		return err
	}
	if r.Top < MinTop || r.Top > MaxTop {
		return NewValidationError("top", "must be between 1 and 50")
	}
	return nil
}
