// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package api

import (
	"context"
	"encoding/json"

	"github.com/pdiddy/idp-client/pkg/types"
)

type searchResultPayload struct {
	DocumentID     int64           `json:"document_id"`
	Score          float64         `json:"score"`
	Snippet        string          `json:"snippet"`
	Classification json.RawMessage `json:"classification"`
}

// Search runs a semantic query with POST /search. Results keep the backend
// order, which is descending relevance.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]types.SearchResult, error) {
	var out struct {
		Results []searchResultPayload `json:"results"`
	}
	if err := c.postJSON(ctx, "search", "/search", types.SearchRequest{Query: query, Limit: limit}, &out); err != nil {
		return nil, err
	}

	results := make([]types.SearchResult, len(out.Results))
	for i, r := range out.Results {
		results[i] = types.SearchResult{
			DocumentID:     r.DocumentID,
			Score:          r.Score,
			Snippet:        r.Snippet,
			Classification: labelString(r.Classification),
		}
	}
	return results, nil
}
