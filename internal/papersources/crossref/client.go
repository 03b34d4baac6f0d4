package crossref

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/scholarmeta/metadata-service/internal/domain"
	"github.com/scholarmeta/metadata-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default CrossRef API base URL.
	DefaultBaseURL = "https://api.crossref.org"

	// DefaultRateLimit is the default rate limit for requests per second.
	// CrossRef's polite pool (identified by mailto) tolerates this rate.
	DefaultRateLimit = 10.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 10

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 15 * time.Second

	// DefaultMaxResults is the default maximum results per search request.
	DefaultMaxResults = 25
)

// Config holds configuration for the CrossRef client.
type Config struct {
	// BaseURL is the CrossRef API base URL.
	// Defaults to https://api.crossref.org
	BaseURL string

	// Email is the contact email sent in the User-Agent for the
	// polite pool.
	Email string

	// Timeout is the request timeout.
	// Defaults to 15 seconds.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxResults is the default maximum results per search request.
	// The hard per-call cap of 25 applies regardless.
	MaxResults int

	// Enabled indicates whether this source is enabled for searches.
	Enabled bool
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
	if c.MaxResults == 0 {
		c.MaxResults = DefaultMaxResults
	}
}

// Client implements the papersources.PaperSource interface for CrossRef.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

// Ensure Client implements PaperSource interface.
var _ papersources.PaperSource = (*Client)(nil)

// New creates a new CrossRef client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		UserAgent: "ScholarMeta-MetadataService/1.0 (mailto:" + cfg.Email + ")",
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a new CrossRef client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Search queries CrossRef for works matching the given parameters.
func (c *Client) Search(ctx context.Context, params papersources.SearchParams) ([]domain.Paper, error) {
	searchURL, err := c.buildSearchURL(params)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	var searchResp SearchResponse
	if err := c.getJSON(ctx, searchURL, &searchResp); err != nil {
		return nil, err
	}

	papers := make([]domain.Paper, 0, len(searchResp.Message.Items))
	for i := range searchResp.Message.Items {
		if paper := itemToPaper(&searchResp.Message.Items[i]); paper != nil {
			papers = append(papers, *paper)
		}
	}

	return papers, nil
}

// GetByDOI retrieves a single work by its bare DOI from the works
// endpoint. Returns domain.ErrNotFound (via NotFoundError) when CrossRef
// has no record for the DOI.
func (c *Client) GetByDOI(ctx context.Context, doi string) (*domain.Paper, error) {
	lookupURL, err := c.buildLookupURL(doi)
	if err != nil {
		return nil, fmt.Errorf("building lookup URL: %w", err)
	}

	var workResp WorkResponse
	if err := c.getJSON(ctx, lookupURL, &workResp); err != nil {
		var apiErr *domain.ExternalAPIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, domain.NewNotFoundError("paper", doi)
		}
		return nil, err
	}

	paper := itemToPaper(workResp.Message)
	if paper == nil {
		return nil, domain.NewNotFoundError("paper", doi)
	}

	return paper, nil
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeCrossRef
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return "CrossRef"
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// getJSON executes a GET request and decodes the JSON response body.
func (c *Client) getJSON(ctx context.Context, rawURL string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewExternalAPIError(domain.SourceTypeCrossRef, 0, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return domain.NewExternalAPIError(domain.SourceTypeCrossRef, resp.StatusCode, string(body), nil)
	}

	// Limit body to 10MB to prevent resource exhaustion.
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// buildSearchURL constructs the works search URL with query parameters.
func (c *Client) buildSearchURL(params papersources.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = "/works"

	query := url.Values{}
	query.Set("query", params.Query)
	query.Set("rows", strconv.Itoa(params.EffectiveLimit(c.config.MaxResults)))

	if filter := dateFilter(params.FromYear, params.ToYear); filter != "" {
		query.Set("filter", filter)
	}

	if c.config.Email != "" {
		query.Set("mailto", c.config.Email)
	}

	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}

// buildLookupURL constructs the URL for a single work addressed by DOI.
func (c *Client) buildLookupURL(doi string) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = "/works/" + doi
	if c.config.Email != "" {
		baseURL.RawQuery = url.Values{"mailto": {c.config.Email}}.Encode()
	}
	return baseURL.String(), nil
}

// dateFilter builds the comma-joined publication date filter. CrossRef
// filters by full dates, so year bounds map to January 1st of the from
// year and December 31st of the to year.
func dateFilter(fromYear, toYear int) string {
	var parts []string
	if fromYear != 0 {
		parts = append(parts, fmt.Sprintf("from-pub-date:%d-01-01", fromYear))
	}
	if toYear != 0 {
		parts = append(parts, fmt.Sprintf("until-pub-date:%d-12-31", toYear))
	}
	return strings.Join(parts, ",")
}

// itemToPaper converts a CrossRef work item to a canonical Paper.
// Returns nil when the item has no DOI.
func itemToPaper(item *WorkItem) *domain.Paper {
	if item == nil {
		return nil
	}

	doi := strings.TrimSpace(item.DOI)
	if doi == "" {
		return nil
	}

	var title string
	if len(item.Title) > 0 {
		title = item.Title[0]
	}

	authors := make([]string, 0, len(item.Author))
	for _, author := range item.Author {
		name := strings.TrimSpace(author.Given + " " + author.Family)
		if name != "" {
			authors = append(authors, name)
		}
	}

	return &domain.Paper{
		Title:   title,
		Authors: authors,
		Year:    item.Issued.Year(),
		DOI:     domain.CanonicalDOIURL(doi),
	}
}
