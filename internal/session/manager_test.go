// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/idp-client/internal/api"
	"github.com/pdiddy/idp-client/pkg/types"
)

// fakeAuth scripts Authenticator responses and records calls.
type fakeAuth struct {
	mu sync.Mutex

	loginResp   types.LoginResponse
	loginErr    error
	registerErr error
	logoutErr   error
	meErr       error

	logins       []string
	registers    []string
	logoutTokens []string
	logoutDone   chan struct{}
}

func (f *fakeAuth) Login(_ context.Context, username, _ string) (types.LoginResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins = append(f.logins, username)
	return f.loginResp, f.loginErr
}

func (f *fakeAuth) Register(_ context.Context, email, _ string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registers = append(f.registers, email)
	if f.registerErr != nil {
		return types.User{}, f.registerErr
	}
	return types.User{ID: 42, Username: email, Email: email}, nil
}

func (f *fakeAuth) Logout(_ context.Context, token string) error {
	f.mu.Lock()
	f.logoutTokens = append(f.logoutTokens, token)
	f.mu.Unlock()
	if f.logoutDone != nil {
		close(f.logoutDone)
	}
	return f.logoutErr
}

func (f *fakeAuth) Me(context.Context) (types.User, error) {
	if f.meErr != nil {
		return types.User{}, f.meErr
	}
	return types.User{ID: 1, Username: "alice"}, nil
}

func newTestManager(t *testing.T, auth *fakeAuth) (*Manager, Store) {
	t.Helper()
	st := NewFileStore(filepath.Join(t.TempDir(), "session.yaml"))
	m, err := NewManager(st, auth, WithLogoutTimeout(time.Second))
	require.NoError(t, err)
	return m, st
}

func assertCleared(t *testing.T, m *Manager, st Store) {
	t.Helper()
	assert.False(t, m.IsAuthenticated())
	assert.Empty(t, m.Token())
	assert.Nil(t, m.User())
	token, user, err := st.Load()
	require.NoError(t, err)
	assert.Empty(t, token, "token must not be persisted")
	assert.Nil(t, user, "user must not be persisted")
}

func TestManager_LoginSuccess(t *testing.T) {
	auth := &fakeAuth{loginResp: types.LoginResponse{AccessToken: "tok", UserID: 3}}
	m, st := newTestManager(t, auth)

	u, err := m.Login(context.Background(), "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, types.User{ID: 3, Username: "alice"}, u)
	assert.True(t, m.IsAuthenticated())
	assert.Equal(t, "tok", m.Token())

	token, user, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
	assert.Equal(t, "alice", user.Username)
}

func TestManager_FailuresNeverLeavePartialState(t *testing.T) {
	unauthorized := &api.Error{Operation: "auth.login", StatusCode: http.StatusUnauthorized, Detail: "Incorrect username or password"}

	tests := []struct {
		name string
		auth *fakeAuth
		run  func(*Manager) error
	}{
		{
			name: "login rejected",
			auth: &fakeAuth{loginErr: unauthorized},
			run: func(m *Manager) error {
				_, err := m.Login(context.Background(), "alice", "wrong")
				return err
			},
		},
		{
			name: "register rejected",
			auth: &fakeAuth{registerErr: errors.New("Email already registered")},
			run: func(m *Manager) error {
				_, err := m.Register(context.Background(), "a@example.com", "secret1", "secret1")
				return err
			},
		},
		{
			name: "register ok then login fails",
			auth: &fakeAuth{loginErr: unauthorized},
			run: func(m *Manager) error {
				_, err := m.Register(context.Background(), "a@example.com", "secret1", "secret1")
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, st := newTestManager(t, tt.auth)

			// Start from an authenticated session so the failure has something to clear.
			require.NoError(t, st.Save("old", types.User{ID: 1, Username: "old"}))
			m, err := NewManager(st, tt.auth)
			require.NoError(t, err)
			require.True(t, m.IsAuthenticated())

			require.Error(t, tt.run(m))
			assertCleared(t, m, st)
		})
	}
}

func TestManager_RegisterLogsInWithEmail(t *testing.T) {
	auth := &fakeAuth{loginResp: types.LoginResponse{AccessToken: "tok"}}
	m, _ := newTestManager(t, auth)

	u, err := m.Register(context.Background(), "a@example.com", "secret1", "secret1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com"}, auth.registers)
	assert.Equal(t, []string{"a@example.com"}, auth.logins)
	assert.Equal(t, int64(42), u.ID)
	assert.Equal(t, "a@example.com", u.Email)
	assert.True(t, m.IsAuthenticated())
}

func TestManager_RegisterValidationSkipsNetwork(t *testing.T) {
	auth := &fakeAuth{}
	m, _ := newTestManager(t, auth)

	_, err := m.Register(context.Background(), "a@example.com", "abc", "abc")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
	assert.Empty(t, auth.registers)
	assert.Empty(t, auth.logins)
}

func TestManager_InvalidInputKeepsSession(t *testing.T) {
	tests := []struct {
		name string
		run  func(*Manager) error
		want error
	}{
		{
			name: "login missing password",
			run: func(m *Manager) error {
				_, err := m.Login(context.Background(), "alice", "")
				return err
			},
			want: ErrMissingCredentials,
		},
		{
			name: "register mismatch",
			run: func(m *Manager) error {
				_, err := m.Register(context.Background(), "a@example.com", "secret1", "secret2")
				return err
			},
			want: ErrPasswordMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := &fakeAuth{}
			_, st := newTestManager(t, auth)
			require.NoError(t, st.Save("old", types.User{ID: 1, Username: "old"}))
			m, err := NewManager(st, auth)
			require.NoError(t, err)

			assert.ErrorIs(t, tt.run(m), tt.want)
			assert.Empty(t, auth.logins)
			assert.Empty(t, auth.registers)

			assert.True(t, m.IsAuthenticated())
			assert.Equal(t, "old", m.Token())
			token, user, err := st.Load()
			require.NoError(t, err)
			assert.Equal(t, "old", token)
			require.NotNil(t, user)
			assert.Equal(t, "old", user.Username)
		})
	}
}

func TestManager_LogoutClearsEvenWhenServerFails(t *testing.T) {
	auth := &fakeAuth{
		loginResp:  types.LoginResponse{AccessToken: "tok", UserID: 3},
		logoutErr:  errors.New("connection refused"),
		logoutDone: make(chan struct{}),
	}
	m, st := newTestManager(t, auth)
	_, err := m.Login(context.Background(), "alice", "secret1")
	require.NoError(t, err)

	require.NoError(t, m.Logout())
	assertCleared(t, m, st)

	select {
	case <-auth.logoutDone:
	case <-time.After(2 * time.Second):
		t.Fatal("server logout was never attempted")
	}
	require.NoError(t, m.Close())
	assert.Equal(t, []string{"tok"}, auth.logoutTokens)
}

func TestManager_LogoutWhenSignedOutSkipsServer(t *testing.T) {
	auth := &fakeAuth{}
	m, st := newTestManager(t, auth)

	require.NoError(t, m.Logout())
	require.NoError(t, m.Close())
	assertCleared(t, m, st)
	assert.Empty(t, auth.logoutTokens)
}

func TestNewManager_ClearsPartialState(t *testing.T) {
	dir := t.TempDir()
	st, err := NewSQLiteStore(filepath.Join(dir, "session.db"))
	require.NoError(t, err)
	defer st.Close()

	_, err = st.db.Exec(`INSERT INTO kv (key, value) VALUES (?, ?)`, keyToken, "dangling")
	require.NoError(t, err)

	m, err := NewManager(st, &fakeAuth{})
	require.NoError(t, err)
	assertCleared(t, m, st)
}

func TestManager_WhoamiUnauthorizedClears(t *testing.T) {
	auth := &fakeAuth{loginResp: types.LoginResponse{AccessToken: "tok"}}
	m, st := newTestManager(t, auth)

	_, err := m.Whoami(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = m.Login(context.Background(), "alice", "secret1")
	require.NoError(t, err)

	u, err := m.Whoami(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	auth.meErr = &api.Error{Operation: "auth.me", StatusCode: http.StatusUnauthorized}
	_, err = m.Whoami(context.Background())
	assert.ErrorIs(t, err, api.ErrUnauthorized)
	assertCleared(t, m, st)
}

func TestFromContext(t *testing.T) {
	m, _ := newTestManager(t, &fakeAuth{})
	ctx := NewContext(context.Background(), m)
	assert.Same(t, m, FromContext(ctx))

	assert.Panics(t, func() { FromContext(context.Background()) })
}

func TestValidateRegistration(t *testing.T) {
	tests := []struct {
		name                     string
		email, password, confirm string
		want                     error
	}{
		{"ok", "a@example.com", "secret1", "secret1", nil},
		{"empty email", " ", "secret1", "secret1", ErrMissingCredentials},
		{"empty confirm", "a@example.com", "secret1", "", ErrMissingCredentials},
		{"mismatch", "a@example.com", "secret1", "secret2", ErrPasswordMismatch},
		{"too short", "a@example.com", "abcde", "abcde", ErrPasswordTooShort},
		{"exactly six", "a@example.com", "abcdef", "abcdef", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRegistration(tt.email, tt.password, tt.confirm)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
