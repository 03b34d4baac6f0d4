// Package papersources provides interfaces and types for bibliographic
// registry clients.
//
// This package defines the foundational abstractions that all registry
// implementations must follow. Each registry (OpenAlex, CrossRef)
// implements the PaperSource interface, allowing the aggregator to fan a
// single query out over multiple sources with a unified API.
//
// Example usage:
//
//	source := openalex.New(cfg)
//	params := papersources.SearchParams{
//		Query:      "graph neural networks",
//		MaxResults: 25,
//	}
//	papers, err := source.Search(ctx, params)
package papersources

import (
	"context"

	"github.com/scholarmeta/metadata-service/internal/domain"
)

// MaxResultsPerCall is the hard per-call result cap applied by every
// source regardless of the requested maximum.
const MaxResultsPerCall = 25

// SearchParams defines the parameters for searching a registry.
type SearchParams struct {
	// Query is the free-text search query (required).
	Query string

	// FromYear filters papers published in or after this year.
	// Zero means no lower bound.
	FromYear int

	// ToYear filters papers published in or before this year.
	// Zero means no upper bound.
	ToYear int

	// MaxResults limits the number of papers returned in a single request.
	// Every source additionally caps the effective value at
	// MaxResultsPerCall. A value of 0 uses the source's default limit.
	MaxResults int
}

// EffectiveLimit returns the per-call result count to request from a
// source, applying the source default and the hard per-call cap.
func (p SearchParams) EffectiveLimit(sourceDefault int) int {
	limit := p.MaxResults
	if limit <= 0 {
		limit = sourceDefault
	}
	if limit > MaxResultsPerCall {
		limit = MaxResultsPerCall
	}
	return limit
}

// PaperSource defines the interface that all registry clients implement.
type PaperSource interface {
	// Search queries the registry for papers matching the given parameters.
	// Implementations normalize every raw item into a domain.Paper and drop
	// records lacking a DOI. The context should be used for cancellation
	// and deadline propagation.
	//
	// Returns a domain.ExternalAPIError (tagged with the source) when the
	// transport fails or the registry returns a non-success status.
	Search(ctx context.Context, params SearchParams) ([]domain.Paper, error)

	// GetByDOI retrieves a single paper by its bare DOI (10.xxxx/... form).
	// Returns domain.ErrNotFound (via NotFoundError) when the registry
	// reports no record for the DOI; any other transport or status failure
	// is a domain.ExternalAPIError.
	GetByDOI(ctx context.Context, doi string) (*domain.Paper, error)

	// SourceType returns the type identifier for this source.
	// Used for attribution and failure tagging.
	SourceType() domain.SourceType

	// Name returns a human-readable name for this source.
	// Used for logging and metrics.
	Name() string

	// IsEnabled returns whether this source is currently enabled.
	IsEnabled() bool
}
