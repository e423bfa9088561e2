// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// User is the minimal identity record kept alongside a session token.
type User struct {
	ID       int64  `json:"id" yaml:"id"`
	Username string `json:"username" yaml:"username"`
	Email    string `json:"email,omitempty" yaml:"email,omitempty"`
}

// Session pairs a bearer token with the user it belongs to.
type Session struct {
	Token string `json:"token" yaml:"token"`
	User  *User  `json:"user,omitempty" yaml:"user,omitempty"`
}

// IsAuthenticated reports whether both the token and the user are present.
// A token without a user, or a user without a token, is not a session.
func (s Session) IsAuthenticated() bool {
	return s.Token != "" && s.User != nil
}

// LoginResponse is the token grant returned by POST /auth/login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	UserID      int64  `json:"user_id,omitempty"`
}
