// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pdiddy/idp-client/pkg/types"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userPayload struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

func (p userPayload) user() types.User {
	u := types.User{ID: p.ID, Username: p.Username, Email: p.Email}
	if u.Username == "" {
		u.Username = p.Email
	}
	return u
}

// Register creates an account with POST /auth/register.
func (c *Client) Register(ctx context.Context, email, password string) (types.User, error) {
	var out userPayload
	if err := c.postJSON(ctx, "auth.register", "/auth/register", registerRequest{Email: email, Password: password}, &out); err != nil {
		return types.User{}, err
	}
	return out.user(), nil
}

// Login exchanges credentials for a bearer token with POST /auth/login.
// The backend expects an OAuth2 password form, not JSON.
func (c *Client) Login(ctx context.Context, username, password string) (types.LoginResponse, error) {
	form := url.Values{
		"username": {username},
		"password": {password},
	}
	var out types.LoginResponse
	if err := c.postForm(ctx, "auth.login", "/auth/login", form, &out); err != nil {
		return types.LoginResponse{}, err
	}
	if out.AccessToken == "" {
		return types.LoginResponse{}, fmt.Errorf("auth.login: response carried no access token")
	}
	return out, nil
}

// Logout tells the backend to invalidate token. The call is best effort:
// sessions are cleared locally regardless of the outcome.
func (c *Client) Logout(ctx context.Context, token string) error {
	req, err := c.newRequest(ctx, http.MethodPost, "/auth/logout", nil, "")
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.send(ctx, "auth.logout", req, nil)
}

// Me returns the server's view of the authenticated user (GET /auth/me).
func (c *Client) Me(ctx context.Context) (types.User, error) {
	var out userPayload
	if err := c.getJSON(ctx, "auth.me", "/auth/me", &out); err != nil {
		return types.User{}, err
	}
	return out.user(), nil
}
