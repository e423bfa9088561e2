// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package doclist holds the user's document collection as last fetched
// from the backend, plus the dashboard aggregations over it.
package doclist

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pdiddy/idp-client/pkg/types"
)

// Phase describes what the list is doing.
type Phase int

const (
	// Idle means no fetch is in flight.
	Idle Phase = iota
	// Loading is the first fetch; there is no list to show yet.
	Loading
	// Refreshing is a later fetch; the stale list stays visible.
	Refreshing
)

func (p Phase) String() string {
	switch p {
	case Loading:
		return "loading"
	case Refreshing:
		return "refreshing"
	default:
		return "idle"
	}
}

// Lister fetches the collection. *api.Client satisfies it.
type Lister interface {
	ListDocuments(ctx context.Context) ([]types.Document, error)
}

// List caches the last applied document collection. Responses are applied
// in request order: a fetch that completes after a newer one was applied is
// dropped.
type List struct {
	lister Lister

	mu       sync.Mutex
	docs     []types.Document
	loaded   bool
	inflight int
	err      error
	issued   uint64
	applied  uint64
}

// New returns an empty List.
func New(l Lister) *List {
	return &List{lister: l}
}

// Refresh fetches the collection. On error the previous list is kept and
// the error recorded. The returned slice is the list after the call, which
// may come from a newer concurrent fetch.
func (l *List) Refresh(ctx context.Context) ([]types.Document, error) {
	l.mu.Lock()
	l.issued++
	seq := l.issued
	l.inflight++
	l.mu.Unlock()

	docs, err := l.lister.ListDocuments(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.inflight--
	if seq <= l.applied {
		slog.Debug("discarding stale document list", "seq", seq, "applied", l.applied)
		return l.snapshot(), err
	}
	l.applied = seq
	if err != nil {
		l.err = err
		return l.snapshot(), err
	}
	l.docs, l.loaded, l.err = docs, true, nil
	return l.snapshot(), nil
}

// Run fetches once and again on every value received from refresh, until
// ctx is done or refresh is closed. onUpdate, if non-nil, receives each
// result.
func (l *List) Run(ctx context.Context, refresh <-chan struct{}, onUpdate func([]types.Document, error)) error {
	for {
		docs, err := l.Refresh(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if onUpdate != nil {
			onUpdate(docs, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-refresh:
			if !ok {
				return nil
			}
		}
	}
}

// Documents returns a copy of the held list.
func (l *List) Documents() []types.Document {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshot()
}

// Phase reports Loading while the first fetch is in flight, Refreshing while
// a later fetch is in flight, and Idle otherwise.
func (l *List) Phase() Phase {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case l.inflight == 0:
		return Idle
	case l.loaded:
		return Refreshing
	default:
		return Loading
	}
}

// Err returns the error of the last applied fetch.
func (l *List) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

func (l *List) snapshot() []types.Document {
	if l.docs == nil {
		return nil
	}
	return append([]types.Document(nil), l.docs...)
}

// Stats counts documents per status. The result does not depend on order.
func Stats(docs []types.Document) types.DashboardStats {
	s := types.DashboardStats{Total: len(docs), ByStatus: make(map[types.DocumentStatus]int)}
	for _, d := range docs {
		s.ByStatus[d.Status]++
	}
	return s
}

// Filter returns the documents whose ids appear in ids, in the order of
// ids. Unknown ids are skipped.
func Filter(docs []types.Document, ids []int64) []types.Document {
	byID := make(map[int64]types.Document, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}
	out := make([]types.Document, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if d, ok := byID[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, d)
		}
	}
	return out
}
