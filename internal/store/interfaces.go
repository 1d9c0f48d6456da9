package store

import (
	"context"
	"time"

	"github.com/MKhiriev/go-clinic-auth/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/store_mock.go -package=mock

// AccountRepository reads accounts and mutates the lockout columns. Every
// mutation is a single atomic statement.
type AccountRepository interface {
	// FindAccountByEmail matches the email case-insensitively.
	FindAccountByEmail(ctx context.Context, email string) (models.Account, error)
	// FindAccountByID returns the account with the given identifier.
	FindAccountByID(ctx context.Context, accountID int64) (models.Account, error)
	// ClearExpiredLock resets the counter and expiry if the lock expired at
	// or before now. It reports whether a row was changed.
	ClearExpiredLock(ctx context.Context, accountID int64, now time.Time) (bool, error)
	// RecordFailedAttempt increments the counter and sets locked_until to
	// lockUntil when the new value reaches threshold. It returns the updated
	// account.
	RecordFailedAttempt(ctx context.Context, accountID int64, threshold int, lockUntil time.Time) (models.Account, error)
	// ResetFailedAttempts zeroes the counter and clears the expiry.
	ResetFailedAttempts(ctx context.Context, accountID int64) error
	// DeleteAccount removes the account. Sessions cascade and audit rows
	// lose their account_id.
	DeleteAccount(ctx context.Context, accountID int64) error
}

// SessionRepository persists the single live refresh session of an account.
type SessionRepository interface {
	// ReplaceSession revokes every live session of the account and inserts
	// the given one in the same transaction.
	ReplaceSession(ctx context.Context, session models.Session) error
	// IsCurrent reports whether the session is live at now and still holds
	// tokenHash.
	IsCurrent(ctx context.Context, accountID int64, sessionID, tokenHash string, now time.Time) (bool, error)
	// IsActive reports whether the session is live at now.
	IsActive(ctx context.Context, accountID int64, sessionID string, now time.Time) (bool, error)
	// RotateSession swaps oldHash for newHash on a live session. It returns
	// ErrSessionNotFound when the session is gone or the hash moved on.
	RotateSession(ctx context.Context, sessionID, oldHash, newHash string, expiresAt, now time.Time) error
	// RevokeSessions revokes every live session of the account.
	RevokeSessions(ctx context.Context, accountID int64, now time.Time) error
	// PurgeSessions deletes sessions revoked or expired before cutoff and
	// returns the number of removed rows.
	PurgeSessions(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuditRepository appends to and reads the hash-chained audit log.
type AuditRepository interface {
	// AppendEntry links the entry to the current chain head, computes its
	// content hash and inserts it. It returns the stored entry.
	AppendEntry(ctx context.Context, entry models.AuditEntry) (models.AuditEntry, error)
	// ListEntries returns entries matching filter, newest first.
	ListEntries(ctx context.Context, filter models.AuditFilter) ([]models.AuditEntry, error)
	// ChainEntries returns up to limit entries with id > afterID in id order.
	ChainEntries(ctx context.Context, afterID int64, limit uint64) ([]models.AuditEntry, error)
}
