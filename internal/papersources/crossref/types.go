// Package crossref provides a client for the CrossRef REST API.
//
// CrossRef is a citation-metadata registry for published scholarly
// content. This package implements the PaperSource interface for
// searching works by free text and looking them up by DOI.
//
// API Documentation: https://api.crossref.org/swagger-ui/index.html
package crossref

// SearchResponse represents the top-level response from the CrossRef works
// search endpoint.
type SearchResponse struct {
	Status  string        `json:"status"`
	Message SearchMessage `json:"message"`
}

// SearchMessage contains the search result items.
type SearchMessage struct {
	TotalResults int        `json:"total-results"`
	Items        []WorkItem `json:"items"`
}

// WorkResponse represents the response from the single-work endpoint.
type WorkResponse struct {
	Status  string    `json:"status"`
	Message *WorkItem `json:"message"`
}

// WorkItem represents a single work in the CrossRef schema.
// CrossRef returns the title as a list and the publication date as a
// nested date-parts structure.
type WorkItem struct {
	DOI    string   `json:"DOI"`
	Title  []string `json:"title"`
	Author []Author `json:"author"`
	Issued DateInfo `json:"issued"`
}

// Author holds the name parts of a work contributor.
type Author struct {
	Given  string `json:"given"`
	Family string `json:"family"`
}

// DateInfo holds CrossRef's date-parts representation: an array of
// [year, month, day] arrays, any suffix of which may be absent.
type DateInfo struct {
	DateParts [][]int `json:"date-parts"`
}

// Year returns the year component of the first date-parts entry, or 0
// when the structure is empty.
func (d DateInfo) Year() int {
	if len(d.DateParts) == 0 || len(d.DateParts[0]) == 0 {
		return 0
	}
	return d.DateParts[0][0]
}
