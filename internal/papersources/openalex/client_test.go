package openalex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarmeta/metadata-service/internal/domain"
	"github.com/scholarmeta/metadata-service/internal/papersources"
)

// newTestClient creates a client configured for testing with the given server URL.
func newTestClient(serverURL string) *Client {
	cfg := Config{
		BaseURL:    serverURL,
		Email:      "test@example.com",
		Timeout:    5 * time.Second,
		RateLimit:  100, // High rate for testing
		BurstSize:  100,
		MaxResults: 25,
		Enabled:    true,
	}

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		UserAgent: "TestClient/1.0",
	})

	return NewWithHTTPClient(cfg, httpClient)
}

// sampleSearchResponse returns a sample OpenAlex search response for testing.
func sampleSearchResponse() SearchResponse {
	return SearchResponse{
		Meta: Meta{Count: 3, Page: 1, PerPage: 25},
		Results: []Work{
			{
				ID:              "https://openalex.org/W2741809807",
				DOI:             "https://doi.org/10.1038/nature12373",
				Title:           "CRISPR-Cas Systems for Editing Genomes",
				PublicationYear: 2014,
				Authorships: []Authorship{
					{
						AuthorPosition: "first",
						Author:         &AuthorInfo{ID: "https://openalex.org/A1", DisplayName: "John Smith"},
					},
					{
						AuthorPosition: "middle",
						Author:         &AuthorInfo{ID: "https://openalex.org/A2", DisplayName: ""},
					},
					{
						AuthorPosition: "last",
						Author:         nil,
					},
				},
			},
			{
				ID:              "https://openalex.org/W2741809808",
				DOI:             "",
				Title:           "Work Without DOI",
				PublicationYear: 2020,
			},
			{
				ID:              "https://openalex.org/W2741809809",
				DOI:             "https://doi.org/10.1126/science.1234567",
				Title:           "Gene Therapy Advances",
				PublicationYear: 2023,
				Authorships: []Authorship{
					{
						AuthorPosition: "first",
						Author:         &AuthorInfo{ID: "https://openalex.org/A3", DisplayName: "Alice Johnson"},
					},
				},
			},
		},
	}
}

func TestNew(t *testing.T) {
	t.Run("creates client with default config", func(t *testing.T) {
		client := New(Config{Enabled: true})

		require.NotNil(t, client)
		assert.Equal(t, DefaultBaseURL, client.config.BaseURL)
		assert.Equal(t, DefaultTimeout, client.config.Timeout)
		assert.Equal(t, DefaultRateLimit, client.config.RateLimit)
		assert.Equal(t, DefaultBurstSize, client.config.BurstSize)
		assert.Equal(t, DefaultMaxResults, client.config.MaxResults)
		assert.True(t, client.IsEnabled())
	})

	t.Run("disabled client", func(t *testing.T) {
		client := New(Config{Enabled: false})
		assert.False(t, client.IsEnabled())
	})
}

func TestClient_SourceType(t *testing.T) {
	client := New(Config{Enabled: true})
	assert.Equal(t, domain.SourceTypeOpenAlex, client.SourceType())
	assert.Equal(t, "OpenAlex", client.Name())
}

func TestClient_Search(t *testing.T) {
	t.Run("successful search normalizes and drops records without DOI", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/works", r.URL.Path)
			assert.Equal(t, "CRISPR", r.URL.Query().Get("search"))
			assert.Equal(t, "25", r.URL.Query().Get("per-page"))
			assert.Equal(t, "test@example.com", r.URL.Query().Get("mailto"))

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(sampleSearchResponse())
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		papers, err := client.Search(context.Background(), papersources.SearchParams{
			Query:      "CRISPR",
			MaxResults: 25,
		})
		require.NoError(t, err)

		// The record without a DOI is dropped.
		require.Len(t, papers, 2)

		assert.Equal(t, "CRISPR-Cas Systems for Editing Genomes", papers[0].Title)
		assert.Equal(t, "https://doi.org/10.1038/nature12373", papers[0].DOI)
		assert.Equal(t, 2014, papers[0].Year)
		// Authorships without a display name are skipped.
		assert.Equal(t, []string{"John Smith"}, papers[0].Authors)

		assert.Equal(t, "https://doi.org/10.1126/science.1234567", papers[1].DOI)
	})

	t.Run("caps requested limit at 25", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "25", r.URL.Query().Get("per-page"))
			json.NewEncoder(w).Encode(SearchResponse{})
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		_, err := client.Search(context.Background(), papersources.SearchParams{
			Query:      "anything",
			MaxResults: 50,
		})
		require.NoError(t, err)
	})

	t.Run("closed year range filter", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "publication_year:2020-2023", r.URL.Query().Get("filter"))
			json.NewEncoder(w).Encode(SearchResponse{})
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		_, err := client.Search(context.Background(), papersources.SearchParams{
			Query:    "q",
			FromYear: 2020,
			ToYear:   2023,
		})
		require.NoError(t, err)
	})

	t.Run("open-ended year bounds", func(t *testing.T) {
		assert.Equal(t, "publication_year:2020-9999", yearFilter(2020, 0))
		assert.Equal(t, "publication_year:0-2023", yearFilter(0, 2023))
		assert.Equal(t, "", yearFilter(0, 0))
	})

	t.Run("non-success status yields ExternalAPIError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		_, err := client.Search(context.Background(), papersources.SearchParams{Query: "q"})

		var apiErr *domain.ExternalAPIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, domain.SourceTypeOpenAlex, apiErr.Source)
		assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	})

	t.Run("transport failure yields ExternalAPIError", func(t *testing.T) {
		client := newTestClient("http://127.0.0.1:1")
		_, err := client.Search(context.Background(), papersources.SearchParams{Query: "q"})

		var apiErr *domain.ExternalAPIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, domain.SourceTypeOpenAlex, apiErr.Source)
	})
}

func TestClient_GetByDOI(t *testing.T) {
	t.Run("found via doi filter", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/works", r.URL.Path)
			assert.Equal(t, "doi:10.1038/nature12373", r.URL.Query().Get("filter"))

			resp := sampleSearchResponse()
			resp.Results = resp.Results[:1]
			json.NewEncoder(w).Encode(resp)
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		paper, err := client.GetByDOI(context.Background(), "10.1038/nature12373")
		require.NoError(t, err)
		require.NotNil(t, paper)
		assert.Equal(t, "https://doi.org/10.1038/nature12373", paper.DOI)
	})

	t.Run("lowercases DOI in filter", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "doi:10.1038/nature12373x", r.URL.Query().Get("filter"))
			resp := sampleSearchResponse()
			resp.Results = resp.Results[:1]
			json.NewEncoder(w).Encode(resp)
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		_, err := client.GetByDOI(context.Background(), "10.1038/NATURE12373X")
		require.NoError(t, err)
	})

	t.Run("empty results means not found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(SearchResponse{})
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		_, err := client.GetByDOI(context.Background(), "10.1/nonexistent")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestWorkToPaper(t *testing.T) {
	t.Run("nil work", func(t *testing.T) {
		assert.Nil(t, workToPaper(nil))
	})

	t.Run("missing subfields degrade to absent values", func(t *testing.T) {
		work := &Work{DOI: "https://doi.org/10.1/x"}
		paper := workToPaper(work)
		require.NotNil(t, paper)
		assert.Empty(t, paper.Title)
		assert.Empty(t, paper.Authors)
		assert.Zero(t, paper.Year)
	})
}
