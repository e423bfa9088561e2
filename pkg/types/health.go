// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Health is the liveness payload from GET /health.
type Health struct {
	Status  string `json:"status" yaml:"status"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// Readiness is the payload from GET /ready. The backend answers 503 with
// the same shape when a dependency is down.
type Readiness struct {
	Ready  bool            `json:"ready" yaml:"ready"`
	Checks map[string]bool `json:"checks" yaml:"checks"`
	Errors []string        `json:"errors,omitempty" yaml:"errors,omitempty"`
}
