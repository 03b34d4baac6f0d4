package httpserver

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/scholarmeta/metadata-service/internal/domain"
)

// searchPapers handles GET /v1/papers/search.
func (s *Server) searchPapers(w http.ResponseWriter, r *http.Request) {
	req, err := parseSearchRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := s.service.Search(r.Context(), req)
	if err != nil {
		s.logger.Error().Err(err).Str("query", req.Query).Msg("search failed")
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// getTrends handles GET /v1/trends.
func (s *Server) getTrends(w http.ResponseWriter, r *http.Request) {
	searchReq, err := parseSearchRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	top, err := parseBoundedInt(r, "top", domain.DefaultTop, domain.MinTop, domain.MaxTop)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req := domain.TrendsRequest{SearchRequest: searchReq, Top: top}

	resp, err := s.service.Trends(r.Context(), req)
	if err != nil {
		s.logger.Error().Err(err).Str("query", req.Query).Msg("trends failed")
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// lookupPaper handles GET /v1/papers/lookup.
func (s *Server) lookupPaper(w http.ResponseWriter, r *http.Request) {
	doi := strings.TrimSpace(r.URL.Query().Get("doi"))
	if doi == "" {
		writeError(w, http.StatusBadRequest, "doi parameter is required")
		return
	}

	resp, err := s.service.Lookup(r.Context(), doi)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// parseSearchRequest extracts and validates the shared search parameters.
func parseSearchRequest(r *http.Request) (domain.SearchRequest, error) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		return domain.SearchRequest{}, fmt.Errorf("query parameter is required")
	}

	limit, err := parseBoundedInt(r, "limit", domain.DefaultLimit, domain.MinLimit, domain.MaxLimit)
	if err != nil {
		return domain.SearchRequest{}, err
	}

	fromYear, err := parseOptionalInt(r, "from_year")
	if err != nil {
		return domain.SearchRequest{}, err
	}
	toYear, err := parseOptionalInt(r, "to_year")
	if err != nil {
		return domain.SearchRequest{}, err
	}
	if fromYear != 0 && toYear != 0 && fromYear > toYear {
		return domain.SearchRequest{}, fmt.Errorf("from_year must not exceed to_year")
	}

	return domain.SearchRequest{
		Query:    query,
		FromYear: fromYear,
		ToYear:   toYear,
		Limit:    limit,
	}, nil
}

// parseBoundedInt reads an integer query parameter with a default and an
// inclusive valid range.
func parseBoundedInt(r *http.Request, name string, def, min, max int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	if value < min || value > max {
		return 0, fmt.Errorf("%s must be between %d and %d", name, min, max)
	}
	return value, nil
}

// parseOptionalInt reads an integer query parameter, with absence
// mapping to zero.
func parseOptionalInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return value, nil
}
