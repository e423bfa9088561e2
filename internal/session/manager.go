// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session owns the authenticated session: a bearer token and the
// user it belongs to. Every mutation goes through Manager, which keeps the
// token and user either both present or both absent in memory and in the
// backing Store.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pdiddy/idp-client/internal/api"
	"github.com/pdiddy/idp-client/pkg/types"
)

const defaultLogoutTimeout = 5 * time.Second

// Authenticator is the subset of the API client the session needs.
// *api.Client satisfies it.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (types.LoginResponse, error)
	Register(ctx context.Context, email, password string) (types.User, error)
	Logout(ctx context.Context, token string) error
	Me(ctx context.Context) (types.User, error)
}

// Manager holds the session state for the process. It is safe for
// concurrent use. Login and Register calls are not deduplicated.
type Manager struct {
	store Store
	auth  Authenticator

	logoutTimeout time.Duration
	notify        sync.WaitGroup

	mu    sync.RWMutex
	token string
	user  *types.User
}

// ManagerOption customizes a Manager.
type ManagerOption func(*Manager)

// WithLogoutTimeout bounds the background server logout call.
func WithLogoutTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.logoutTimeout = d
		}
	}
}

// NewManager loads the persisted session from store. A partial pair (token
// without user or the reverse) or unreadable data is cleared and the
// manager starts unauthenticated.
func NewManager(store Store, auth Authenticator, opts ...ManagerOption) (*Manager, error) {
	m := &Manager{store: store, auth: auth, logoutTimeout: defaultLogoutTimeout}
	for _, opt := range opts {
		opt(m)
	}

	token, user, err := store.Load()
	switch {
	case err != nil && errors.Is(err, ErrCorrupt):
		slog.Warn("discarding unreadable session", "error", err)
		if err := store.Clear(); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("loading session: %w", err)
	case token != "" && user != nil:
		m.token, m.user = token, user
	case token != "" || user != nil:
		slog.Warn("clearing partial session", "has_token", token != "", "has_user", user != nil)
		if err := store.Clear(); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Token returns the bearer token, or "" when unauthenticated. It lets the
// Manager act as the API client's token source.
func (m *Manager) Token() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

// User returns a copy of the current user, or nil.
func (m *Manager) User() *types.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// Session returns a snapshot of the current state.
func (m *Manager) Session() types.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := types.Session{Token: m.token}
	if m.user != nil {
		u := *m.user
		s.User = &u
	}
	return s
}

// IsAuthenticated reports whether both token and user are present.
func (m *Manager) IsAuthenticated() bool {
	return m.Session().IsAuthenticated()
}

// Login authenticates and persists the resulting session. The user record
// is built locally from the response's user id and the given username. A
// failed auth call clears the session; missing credentials leave it as is.
func (m *Manager) Login(ctx context.Context, username, password string) (types.User, error) {
	if username == "" || password == "" {
		return types.User{}, ErrMissingCredentials
	}

	resp, err := m.auth.Login(ctx, username, password)
	if err != nil {
		m.fail()
		return types.User{}, err
	}

	user := types.User{ID: resp.UserID, Username: username}
	if err := m.activate(resp.AccessToken, user); err != nil {
		m.fail()
		return types.User{}, err
	}
	slog.Info("logged in", "username", username, "user_id", user.ID)
	return user, nil
}

// Register creates an account and then logs in with email as the username.
// A failure at either step clears the session. Invalid input is rejected
// before any request and leaves the session untouched.
func (m *Manager) Register(ctx context.Context, email, password, confirm string) (types.User, error) {
	if err := ValidateRegistration(email, password, confirm); err != nil {
		return types.User{}, err
	}

	created, err := m.auth.Register(ctx, email, password)
	if err != nil {
		m.fail()
		return types.User{}, err
	}

	user, err := m.Login(ctx, email, password)
	if err != nil {
		return types.User{}, err
	}
	if user.ID == 0 {
		user.ID = created.ID
	}
	user.Email = email
	if err := m.activate(m.Token(), user); err != nil {
		m.fail()
		return types.User{}, err
	}
	return user, nil
}

// Logout clears the session locally and then notifies the server in the
// background. The notification's outcome never affects local state.
func (m *Manager) Logout() error {
	m.mu.Lock()
	token := m.token
	m.token, m.user = "", nil
	err := m.store.Clear()
	m.mu.Unlock()

	if token != "" {
		m.notify.Add(1)
		go func() {
			defer m.notify.Done()
			ctx, cancel := context.WithTimeout(context.Background(), m.logoutTimeout)
			defer cancel()
			if err := m.auth.Logout(ctx, token); err != nil {
				slog.Debug("server logout failed", "error", err)
			}
		}()
	}
	if err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

// Whoami asks the server who the current token belongs to. An
// unauthorized answer clears the session.
func (m *Manager) Whoami(ctx context.Context) (types.User, error) {
	if !m.IsAuthenticated() {
		return types.User{}, ErrNotAuthenticated
	}
	u, err := m.auth.Me(ctx)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			m.fail()
		}
		return types.User{}, err
	}
	return u, nil
}

// Invalidate drops the session after the server rejected the token.
func (m *Manager) Invalidate() {
	m.fail()
}

// Close waits for any pending logout notification, bounded by the logout
// timeout, then closes the store.
func (m *Manager) Close() error {
	done := make(chan struct{})
	go func() {
		m.notify.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(m.logoutTimeout):
	}
	return m.store.Close()
}

func (m *Manager) activate(token string, user types.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if token == "" {
		return errors.New("empty session token")
	}
	if err := m.store.Save(token, user); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	m.token, m.user = token, &user
	return nil
}

// fail clears state after an auth failure. Store errors are logged since
// the caller already has a more relevant error to report.
func (m *Manager) fail() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.user = "", nil
	if err := m.store.Clear(); err != nil {
		slog.Error("clearing session", "error", err)
	}
}
