// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key
// name and the file contents (trimmed) are the value.
//
// Recognised keys: idp-username, idp-password.
package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultDir is the secrets directory relative to the working directory.
const DefaultDir = ".secrets"

// Key names and the environment variables that override them.
const (
	Username = "idp-username"
	Password = "idp-password"
)

var envOverrides = map[string]string{
	Username: "IDP_USERNAME",
	Password: "IDP_PASSWORD",
}

// Set maps secret names to values.
type Set map[string]string

// Load reads all files in dir and returns a Set of filename to trimmed
// contents. A missing directory is not an error; Load returns an empty Set.
// Unreadable files are logged and skipped.
func Load(dir string) (Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Set{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	set := make(Set)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			slog.Warn("could not read secret", "name", name, "error", err)
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			set[name] = value
		}
	}
	return set, nil
}

// Lookup returns the value for key. The key's environment variable, when
// set, takes precedence over the file.
func (s Set) Lookup(key string) (string, bool) {
	if env, ok := envOverrides[key]; ok {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v, true
		}
	}
	v, ok := s[key]
	return v, ok
}

// Default returns value when non-empty, otherwise the secret for key.
func (s Set) Default(key, value string) string {
	if value != "" {
		return value
	}
	v, _ := s.Lookup(key)
	return v
}

// Keys returns the loaded secret names, sorted. Values are never listed.
func (s Set) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
