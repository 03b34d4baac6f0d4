package domain

import (
	"strings"
)

// DOIResolverPrefix is the canonical DOI resolver URL prefix.
// Papers carry their DOI in this fully-qualified URL form.
const DOIResolverPrefix = "https://doi.org/"

// Paper is the canonical record produced by normalizing an upstream
// registry item. A paper without a DOI is dropped at the source-client
// boundary and never reaches aggregation output.
type Paper struct {
	// Title is the paper title. Empty when the upstream omits it.
	Title string `json:"title"`

	// Authors holds author display names in source order.
	Authors []string `json:"authors"`

	// Year is the publication year. Zero when unknown.
	Year int `json:"year,omitempty"`

	// DOI is the persistent identifier in canonical resolver-URL form
	// (https://doi.org/10.xxxx/...). Used as the deduplication key.
	DOI string `json:"doi"`
}

// HasDOI reports whether the paper carries a persistent identifier.
func (p *Paper) HasDOI() bool {
	return p.DOI != ""
}

// NormalizeDOI strips the resolver-URL prefix and surrounding whitespace
// from a DOI, yielding the bare registry form (10.xxxx/...).
func NormalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	doi = strings.TrimPrefix(doi, DOIResolverPrefix)
	doi = strings.TrimPrefix(doi, "http://doi.org/")
	return strings.TrimSpace(doi)
}

// CanonicalDOIURL rewrites a bare DOI into the canonical resolver-URL form.
// A DOI that already carries the prefix is returned unchanged; an empty
// DOI stays empty.
func CanonicalDOIURL(doi string) string {
	doi = strings.TrimSpace(doi)
	if doi == "" {
		return ""
	}
	if strings.HasPrefix(doi, DOIResolverPrefix) {
		return doi
	}
	return DOIResolverPrefix + doi
}

// DeduplicateByDOI removes papers whose DOI was already seen, comparing
// case-insensitively. The first occurrence wins and the order of first
// occurrences is preserved.
func DeduplicateByDOI(papers []Paper) []Paper {
	seen := make(map[string]struct{}, len(papers))
	unique := make([]Paper, 0, len(papers))

	for _, p := range papers {
		key := strings.ToLower(p.DOI)
		if key != "" {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}
		unique = append(unique, p)
	}

	return unique
}
