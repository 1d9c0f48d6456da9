package service

import (
	"context"

	"github.com/MKhiriev/go-clinic-auth/models"
)

// TokenService mints and verifies access and refresh credentials. It performs
// no I/O.
type TokenService interface {
	IssueAccessToken(account models.Account, sessionID string) (models.Token, error)
	IssueRefreshToken(account models.Account, sessionID string) (models.Token, error)
	IssuePair(account models.Account, sessionID string) (models.TokenPair, error)

	// VerifyAccess and VerifyRefresh fail with ErrTokenInvalid or
	// ErrTokenExpired.
	VerifyAccess(tokenString string) (models.Token, error)
	VerifyRefresh(tokenString string) (models.Token, error)
}

// LockoutGuard owns the failed-attempt counter and the timed lock of an
// account.
type LockoutGuard interface {
	Evaluate(ctx context.Context, email string) (LockState, error)
	RecordFailure(ctx context.Context, account models.Account) (LockState, error)
	RecordSuccess(ctx context.Context, accountID int64) error
}

// AuditLedger records security events in the hash-chained audit log.
type AuditLedger interface {
	// Record appends entry with a single bounded attempt. Failures are
	// logged and never returned.
	Record(ctx context.Context, entry models.AuditEntry)
	// List returns entries matching filter and records the export.
	List(ctx context.Context, actor models.Principal, filter models.AuditFilter) ([]models.AuditEntry, error)
	// Verify recomputes the chain from genesis and records the check.
	Verify(ctx context.Context, actor models.Principal) (models.ChainReport, error)
}

// AuthGateway coordinates the login, refresh and logout flows and the
// authenticated request gate. Every error it returns is an *AuthError.
type AuthGateway interface {
	Login(ctx context.Context, request models.LoginRequest) (models.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (models.RefreshResult, error)
	Logout(ctx context.Context, principal models.Principal) error
	Authenticate(ctx context.Context, accessToken string) (models.Principal, error)
	DeleteAccount(ctx context.Context, principal models.Principal) error
}

// AuthGatewayWrapper defines middleware composition for AuthGateway.
// Implementations wrap an existing AuthGateway to add behavior such as
// validating.
type AuthGatewayWrapper interface {
	Wrap(AuthGateway) AuthGateway // returns a decorated AuthGateway applying additional behavior
}

// IDGenerator produces unique identifiers for sessions and token ids.
type IDGenerator interface {
	Generate() string
}
