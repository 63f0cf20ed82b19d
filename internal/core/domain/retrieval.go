package domain

import "time"

// SearchRequest is the request-scoped input of every retrieval operation.
// Facet selection travels with the request; nothing is remembered between
// calls.
type SearchRequest struct {
	Strategy Strategy
	Term     string
	ImageURI string
	Facets   SelectedFacets
	AIFilter string
}

// RetrievalResult is always well formed: on failure Data is empty and
// ErrorDetail says why.
type RetrievalResult struct {
	Query             string       `json:"query,omitempty"`
	InterpolatedQuery string       `json:"interpolatedQuery,omitempty"`
	Data              []Row        `json:"data"`
	TotalCount        int64        `json:"totalCount"`
	ErrorDetail       string       `json:"errorDetail,omitempty"`
	SearchType        string       `json:"searchType"`
	Facets            []FacetGroup `json:"facets,omitempty"`
}

type ExplainResult struct {
	Query       string `json:"query,omitempty"`
	Data        []Row  `json:"data"`
	ErrorDetail string `json:"errorDetail,omitempty"`
}

// SearchEvent is published after every search for offline analytics.
type SearchEvent struct {
	ID         string         `json:"id"`
	Strategy   Strategy       `json:"strategy"`
	Term       string         `json:"term,omitempty"`
	ImageURI   string         `json:"image_uri,omitempty"`
	Facets     SelectedFacets `json:"facets,omitempty"`
	AIFilter   bool           `json:"ai_filter"`
	Rows       int            `json:"rows"`
	TotalCount int64          `json:"total_count"`
	Failed     bool           `json:"failed"`
	DurationMS float64        `json:"duration_ms"`
	At         time.Time      `json:"at"`
}
