package models

import "time"

// Session is the persisted record of the single refresh credential that is
// currently authorized for an account.
//
// The refresh token itself is never stored; TokenHash holds its SHA-256 hex
// digest. SessionID is generated before the tokens are minted so it can be
// embedded in both of them as the "sid" claim.
type Session struct {
	SessionID string
	AccountID int64
	TokenHash string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Revoked   bool
	RevokedAt *time.Time
}

// TableName returns the name of the database table
// associated with the Session model.
func (s Session) TableName() string {
	return "sessions"
}

// IsValidAt reports whether the session is neither revoked nor expired at now.
func (s Session) IsValidAt(now time.Time) bool {
	return !s.Revoked && s.ExpiresAt.After(now)
}
