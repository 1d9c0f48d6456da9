package models

import "time"

// LoginRequest is the JSON body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the JSON body of POST /api/auth/refresh.
// RefreshToken may be empty when the refresh cookie is used instead.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	TokenType        string    `json:"tokenType"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// RefreshResponse is returned after a successful refresh exchange.
// The refresh fields are only present when the refresh token was rotated.
type RefreshResponse struct {
	AccessToken      string     `json:"accessToken"`
	TokenType        string     `json:"tokenType"`
	AccessExpiresAt  time.Time  `json:"accessExpiresAt"`
	RefreshToken     string     `json:"refreshToken,omitempty"`
	RefreshExpiresAt *time.Time `json:"refreshExpiresAt,omitempty"`
}

// RefreshResult is what the gateway returns from a refresh exchange.
type RefreshResult struct {
	Access  Token
	Refresh *Token
}

// ErrorResponse is the body of every failed auth call. Message is coarse and
// never echoes identifiers.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// RequestMeta is the request information copied into audit entries.
type RequestMeta struct {
	IP        string
	UserAgent string
	Method    string
	Path      string
}
