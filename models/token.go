package models

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKind distinguishes access credentials from refresh credentials.
// It is carried in the "kind" claim and checked on verification in addition
// to the per-kind signing secret.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// Claims is the JWT claim set issued by the token service.
//
// Access tokens carry Email and Role; refresh tokens leave them empty.
// Both kinds carry SessionID ("sid"), the identifier of the session record
// that was current when the token was issued.
type Claims struct {
	jwt.RegisteredClaims

	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role,omitempty"`
	SessionID string    `json:"sid"`
	Kind      TokenKind `json:"kind"`
}

// GetAccountID parses the "sub" claim as a base-10 int64.
func (c *Claims) GetAccountID() (int64, error) {
	accountIDString, err := c.GetSubject()
	if err != nil {
		return 0, fmt.Errorf("error extracting AccountID from token: %w", err)
	}

	accountID, err := strconv.ParseInt(accountIDString, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("error converting AccountID from token to int64: %w", err)
	}

	return accountID, nil
}

// Token is a signed credential together with its decoded claims.
type Token struct {
	// SignedString is the compact JWS representation of the token
	// (base64url-encoded header.payload.signature).
	SignedString string `json:"-"`

	// Claims are the claims the token was signed with, or the claims decoded
	// from it after successful verification.
	Claims Claims `json:"-"`

	// AccountID is the parsed "sub" claim.
	AccountID int64 `json:"-"`

	// ExpiresAt mirrors the "exp" claim.
	ExpiresAt time.Time `json:"-"`
}

// String returns the compact JWS serialization of the token.
// It implements the [fmt.Stringer] interface.
func (t Token) String() string {
	return t.SignedString
}

// TokenPair is the result of a successful login.
type TokenPair struct {
	Access  Token
	Refresh Token
}

// Principal is the authenticated identity attached to a request after the
// access token and its session passed the gate.
type Principal struct {
	AccountID int64  `json:"accountId"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	SessionID string `json:"sessionId"`
}

// Account returns the audit actor for the principal.
func (p Principal) Account() Account {
	return Account{AccountID: p.AccountID, Email: p.Email, Role: p.Role}
}
