// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/pdiddy/idp-client/pkg/types"
)

// Persisted keys. Both are always written and cleared together.
const (
	keyToken = "auth_token"
	keyUser  = "user"
)

// ErrCorrupt reports persisted session data that could not be decoded.
var ErrCorrupt = errors.New("corrupt session data")

// Store persists the session pair. Implementations must write and clear the
// token and user together so that no reader observes one without the other
// as the result of a single call.
type Store interface {
	// Load returns whatever is persisted. Either value may be missing; the
	// caller decides what a partial pair means.
	Load() (token string, user *types.User, err error)

	// Save persists token and user as one unit.
	Save(token string, user types.User) error

	// Clear removes both keys.
	Clear() error

	// Close releases resources held by the store.
	Close() error
}

// OpenStore opens the store selected by cfg.
func OpenStore(cfg types.SessionConfig) (Store, error) {
	switch cfg.Backend {
	case types.SessionFile, "":
		return NewFileStore(filepath.Join(cfg.Dir, "session.yaml")), nil
	case types.SessionSQLite:
		return NewSQLiteStore(filepath.Join(cfg.Dir, "session.db"))
	default:
		return nil, fmt.Errorf("unsupported session backend %q: use file or sqlite", cfg.Backend)
	}
}
