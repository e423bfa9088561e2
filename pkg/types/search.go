// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// SearchResult is one ranked hit from POST /search.
type SearchResult struct {
	// DocumentID identifies the matched document.
	DocumentID int64 `json:"document_id" yaml:"document_id"`

	// Score is the backend relevance score. Higher is more relevant; the
	// range is not bounded to [0,1].
	Score float64 `json:"score" yaml:"score"`

	// Snippet is the matched text excerpt.
	Snippet string `json:"snippet" yaml:"snippet"`

	// Classification echoes the document label when the backend has one.
	Classification string `json:"classification,omitempty" yaml:"classification,omitempty"`
}

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}
