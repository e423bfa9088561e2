// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/idp-client/pkg/types"
)

type fakeClient struct {
	calls   int
	queries []string
	limits  []int
	results []types.SearchResult
	err     error
}

func (f *fakeClient) Search(_ context.Context, query string, limit int) ([]types.SearchResult, error) {
	f.calls++
	f.queries = append(f.queries, query)
	f.limits = append(f.limits, limit)
	return f.results, f.err
}

func TestSearch_EmptyQueryNoRequest(t *testing.T) {
	client := &fakeClient{}
	s := New(client)

	for _, q := range []string{"", "   ", "\t\n"} {
		_, err := s.Search(context.Background(), q, 10)
		assert.ErrorIs(t, err, ErrEmptyQuery)
	}
	assert.Zero(t, client.calls)
	assert.False(t, s.HasSearched())
	assert.ErrorIs(t, s.Err(), ErrEmptyQuery)
}

func TestSearch_RanksInResponseOrder(t *testing.T) {
	client := &fakeClient{results: []types.SearchResult{
		{DocumentID: 7, Score: 1.8, Snippet: "invoice total"},
		{DocumentID: 3, Score: 0.9, Snippet: "invoice date"},
		{DocumentID: 11, Score: 0.2, Snippet: "billing"},
	}}
	s := New(client)

	var got []int64
	s.OnResults(func(ids []int64) { got = ids })

	ranked, err := s.Search(context.Background(), "  invoice ", 5)
	require.NoError(t, err)

	assert.Equal(t, []string{"invoice"}, client.queries)
	assert.Equal(t, []int{5}, client.limits)
	require.Len(t, ranked, 3)
	for i, r := range ranked {
		assert.Equal(t, i+1, r.Rank)
		assert.Equal(t, client.results[i], r.SearchResult)
	}
	assert.Equal(t, []int64{7, 3, 11}, got)
	assert.True(t, s.HasSearched())
	assert.Empty(t, s.EmptyMessage())
	assert.Equal(t, "invoice", s.Query())
}

func TestSearch_TruncatesToLimit(t *testing.T) {
	var results []types.SearchResult
	for i := range 8 {
		results = append(results, types.SearchResult{DocumentID: int64(i + 1)})
	}
	s := New(&fakeClient{results: results})

	ranked, err := s.Search(context.Background(), "contract", 5)
	require.NoError(t, err)
	assert.Len(t, ranked, 5)
	assert.Equal(t, 5, ranked[4].Rank)
}

func TestSearch_Limits(t *testing.T) {
	tests := []struct {
		limit   int
		want    int
		wantErr bool
	}{
		{0, DefaultLimit, false},
		{5, 5, false},
		{10, 10, false},
		{20, 20, false},
		{50, 50, false},
		{7, 0, true},
		{-1, 0, true},
		{100, 0, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.limit), func(t *testing.T) {
			client := &fakeClient{}
			s := New(client)
			_, err := s.Search(context.Background(), "q", tt.limit)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidLimit)
				assert.Zero(t, client.calls)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []int{tt.want}, client.limits)
		})
	}
}

func TestSearch_EmptyMessages(t *testing.T) {
	client := &fakeClient{}
	s := New(client)
	assert.Equal(t, "Enter a query to search your documents.", s.EmptyMessage())

	_, err := s.Search(context.Background(), "nothing matches", 10)
	require.NoError(t, err)
	assert.True(t, s.HasSearched())
	assert.Equal(t, "No results found. Try a different query.", s.EmptyMessage())

	s.Clear()
	assert.False(t, s.HasSearched())
	assert.Empty(t, s.Query())
	assert.Empty(t, s.Results())
	assert.NoError(t, s.Err())
	assert.Equal(t, "Enter a query to search your documents.", s.EmptyMessage())
}

func TestSearch_FailureClearsResults(t *testing.T) {
	client := &fakeClient{results: []types.SearchResult{{DocumentID: 1}}}
	s := New(client)
	_, err := s.Search(context.Background(), "first", 10)
	require.NoError(t, err)

	var notified int
	s.OnResults(func([]int64) { notified++ })
	client.err = errors.New("Search failed")
	_, err = s.Search(context.Background(), "second", 10)
	assert.EqualError(t, err, "Search failed")
	assert.Empty(t, s.Results())
	assert.Zero(t, notified)
	assert.EqualError(t, s.Err(), "Search failed")
}
