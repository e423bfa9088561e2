// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package api

import (
	"context"
	"net/http"

	"github.com/pdiddy/idp-client/pkg/types"
)

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (types.Health, error) {
	var out types.Health
	err := c.getJSON(ctx, "health", "/health", &out)
	return out, err
}

// Ready calls GET /ready. A 503 still carries the readiness breakdown, so
// it is decoded rather than returned as an error.
func (c *Client) Ready(ctx context.Context) (types.Readiness, error) {
	var out types.Readiness
	err := c.getJSON(ctx, "ready", "/ready", &out, http.StatusServiceUnavailable)
	return out, err
}
