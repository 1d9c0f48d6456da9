package models

import "time"

// Roles known to the authentication core. The role is copied into access
// tokens and denormalized into every audit entry.
const (
	RoleAdmin  = "admin"
	RoleDoctor = "doctor"
	RoleNurse  = "nurse"
	RoleStaff  = "staff"
)

// Account is the subset of the clinic user record that the authentication
// core reads and mutates. Profile fields owned by the wider application are
// intentionally absent.
type Account struct {
	// AccountID is the internal identifier of the account.
	AccountID int64 `json:"-"`

	// Email is the unique login identifier, compared case-insensitively.
	Email string `json:"email"`

	// PasswordHash is the bcrypt hash of the account password.
	// It is never serialized.
	PasswordHash string `json:"-"`

	// Role is one of the Role* constants.
	Role string `json:"role"`

	// IsActive is false for deactivated accounts.
	IsActive bool `json:"is_active"`

	// IsVerified is false until the account owner confirmed their email.
	IsVerified bool `json:"is_verified"`

	// FailedAttempts counts consecutive failed logins since the last success
	// or unlock.
	FailedAttempts int `json:"-"`

	// LockedUntil is the lock expiry. Nil when the account was never locked
	// or the lock has been cleared.
	LockedUntil *time.Time `json:"-"`
}

// TableName returns the name of the database table
// associated with the Account model.
func (a Account) TableName() string {
	return "accounts"
}

// IsLockedAt reports whether the account has a lock expiry later than now.
func (a Account) IsLockedAt(now time.Time) bool {
	return a.LockedUntil != nil && a.LockedUntil.After(now)
}

// HasExpiredLockAt reports whether a lock expiry is recorded but already
// elapsed at now, meaning it must be cleared before the next check.
func (a Account) HasExpiredLockAt(now time.Time) bool {
	return a.LockedUntil != nil && !a.LockedUntil.After(now)
}
