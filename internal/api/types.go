// Package api is the viewer's data fetch layer: a client for the citation
// graph backend's REST endpoints.
package api

import "github.com/matsen/citegraph/internal/graph"

// PaperRequest is the body of POST /api/papers. Authors and cited papers
// are comma-separated; the backend splits them.
type PaperRequest struct {
	Title       string `json:"title"`
	Authors     string `json:"authors"`
	Journal     string `json:"journal"`
	Year        string `json:"year"`
	CitedPapers string `json:"cited_papers"`
}

// MessageResponse is the success body of POST /api/papers and /api/upload.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// errorBody is the error body the backend sends with non-2xx responses.
type errorBody struct {
	Error string `json:"error"`
}

// PaperSummary is a paper as returned by the query endpoints.
type PaperSummary struct {
	Title   string           `json:"title"`
	Year    graph.FlexString `json:"year"`
	Journal string           `json:"journal"`
	Authors graph.StringList `json:"authors"`
}

// AuthorResult is the body of GET /api/query/author/:name.
type AuthorResult struct {
	Author string         `json:"author"`
	Count  int            `json:"count"`
	Papers []PaperSummary `json:"papers"`
}

// CitationResult is the body of GET /api/query/citations/:title.
type CitationResult struct {
	Paper          string   `json:"paper"`
	CitationsCount int      `json:"citations_count"`
	CitedByCount   int      `json:"cited_by_count"`
	Cites          []string `json:"cites"`
	CitedBy        []string `json:"cited_by"`
}

// InfluentialPaper is one entry of GET /api/influential, in rank order.
type InfluentialPaper struct {
	Title         string           `json:"title"`
	CitationCount int              `json:"citation_count"`
	Year          graph.FlexString `json:"year"`
	Journal       string           `json:"journal"`
	Authors       graph.StringList `json:"authors"`
}
