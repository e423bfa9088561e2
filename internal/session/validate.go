// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"errors"
	"strings"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 6

var (
	ErrMissingCredentials = errors.New("please fill in all fields")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters")
	ErrNotAuthenticated   = errors.New("not logged in")
)

// ValidateRegistration checks the registration form before any network call.
func ValidateRegistration(email, password, confirm string) error {
	if strings.TrimSpace(email) == "" || password == "" || confirm == "" {
		return ErrMissingCredentials
	}
	if password != confirm {
		return ErrPasswordMismatch
	}
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}
