// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import "context"

type contextKey struct{}

// NewContext returns a copy of ctx carrying m.
func NewContext(ctx context.Context, m *Manager) context.Context {
	return context.WithValue(ctx, contextKey{}, m)
}

// FromContext returns the Manager installed by NewContext. It panics when
// none is present: reaching for the session outside a wired command is a
// programming error.
func FromContext(ctx context.Context) *Manager {
	m, ok := ctx.Value(contextKey{}).(*Manager)
	if !ok || m == nil {
		panic("session: no Manager in context; wrap the context with session.NewContext")
	}
	return m
}
