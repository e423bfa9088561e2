// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search runs semantic queries against the backend and keeps the
// ranked results of the most recent one.
package search

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/pdiddy/idp-client/pkg/types"
)

// DefaultLimit is used when no limit is given.
const DefaultLimit = 10

// Limits are the selectable result counts.
var Limits = []int{5, 10, 20, 50}

var (
	ErrEmptyQuery   = errors.New("please enter a search query")
	ErrInvalidLimit = errors.New("invalid result limit")
)

// Client is the search half of the API client.
type Client interface {
	Search(ctx context.Context, query string, limit int) ([]types.SearchResult, error)
}

// Ranked is a result with its 1-based position.
type Ranked struct {
	Rank int `json:"rank" yaml:"rank"`
	types.SearchResult `yaml:",inline"`
}

// Searcher holds the state of the search panel. It is safe for concurrent
// use; results are never cached across queries.
type Searcher struct {
	client Client

	mu          sync.Mutex
	query       string
	limit       int
	results     []Ranked
	err         error
	hasSearched bool
	listeners   []func(ids []int64)
}

// New returns a Searcher that queries c.
func New(c Client) *Searcher {
	return &Searcher{client: c, limit: DefaultLimit}
}

// OnResults registers fn to receive the ordered document ids of every
// successful search.
func (s *Searcher) OnResults(fn func(ids []int64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// ValidateLimit returns the effective limit: 0 means DefaultLimit, anything
// outside Limits is an error.
func ValidateLimit(limit int) (int, error) {
	if limit == 0 {
		return DefaultLimit, nil
	}
	if !slices.Contains(Limits, limit) {
		return 0, fmt.Errorf("%w %d: choose one of 5, 10, 20, 50", ErrInvalidLimit, limit)
	}
	return limit, nil
}

// Search submits query. Blank queries and unknown limits fail without a
// request. The backend is asked for limit results and the list is also cut
// to limit locally.
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]Ranked, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		s.setErr(ErrEmptyQuery)
		return nil, ErrEmptyQuery
	}
	limit, err := ValidateLimit(limit)
	if err != nil {
		s.setErr(err)
		return nil, err
	}

	s.mu.Lock()
	s.query, s.limit, s.err = query, limit, nil
	s.mu.Unlock()

	results, err := s.client.Search(ctx, query, limit)
	if err != nil {
		s.mu.Lock()
		s.err, s.results = err, nil
		s.mu.Unlock()
		return nil, err
	}
	if len(results) > limit {
		results = results[:limit]
	}

	ranked := make([]Ranked, len(results))
	ids := make([]int64, len(results))
	for i, r := range results {
		ranked[i] = Ranked{Rank: i + 1, SearchResult: r}
		ids[i] = r.DocumentID
	}

	s.mu.Lock()
	s.results, s.hasSearched = ranked, true
	listeners := append([]func([]int64){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(ids)
	}
	return append([]Ranked(nil), ranked...), nil
}

// Results returns the ranked results of the last successful search.
func (s *Searcher) Results() []Ranked {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Ranked(nil), s.results...)
}

// Query returns the last submitted query.
func (s *Searcher) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Err returns the error from the last Search, or nil.
func (s *Searcher) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// HasSearched reports whether a search has succeeded since the last Clear.
func (s *Searcher) HasSearched() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasSearched
}

// EmptyMessage is the text to show when there are no results. It is empty
// when there are results to show.
func (s *Searcher) EmptyMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case len(s.results) > 0:
		return ""
	case s.hasSearched:
		return "No results found. Try a different query."
	default:
		return "Enter a query to search your documents."
	}
}

// Clear resets the query, results, error, and searched flag.
func (s *Searcher) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query, s.results, s.err, s.hasSearched = "", nil, nil, false
	s.limit = DefaultLimit
}

func (s *Searcher) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}
