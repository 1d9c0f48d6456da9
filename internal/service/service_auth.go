package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/MKhiriev/go-clinic-auth/internal/config"
	"github.com/MKhiriev/go-clinic-auth/internal/logger"
	"github.com/MKhiriev/go-clinic-auth/internal/store"
	"github.com/MKhiriev/go-clinic-auth/internal/utils"
	"github.com/MKhiriev/go-clinic-auth/models"
)

// dummyHashCost is the bcrypt cost of the hash compared against when the
// login email matches no account. It must equal the cost of stored hashes.
var dummyHashCost = bcrypt.DefaultCost

// authGateway is the concrete implementation of AuthGateway.
// It coordinates the lockout guard, the token service, the session and
// account repositories and the audit ledger. It keeps no mutable state of
// its own; all coordination happens in the database.
type authGateway struct {
	tokens   TokenService
	lockout  LockoutGuard
	ledger   AuditLedger
	accounts store.AccountRepository
	sessions store.SessionRepository

	// ids generates session identifiers.
	ids IDGenerator

	// refreshRotation replaces the refresh token on every refresh exchange.
	refreshRotation bool

	// lockoutPolicy applies when the lockout state cannot be read during login.
	lockoutPolicy config.FailPolicy

	// sessionPolicy applies when the request gate cannot read the session.
	sessionPolicy config.FailPolicy

	// dummyHash is compared against for unknown emails so that the
	// response time does not reveal whether an account exists.
	dummyHash []byte

	now    func() time.Time
	logger *logger.Logger
}

// NewAuthGateway constructs the AuthGateway from its collaborators and the
// policy settings in cfg.
func NewAuthGateway(
	tokens TokenService,
	lockout LockoutGuard,
	ledger AuditLedger,
	accounts store.AccountRepository,
	sessions store.SessionRepository,
	ids IDGenerator,
	cfg config.App,
	log *logger.Logger,
) AuthGateway {
	dummyHash, err := bcrypt.GenerateFromPassword([]byte("clinic-auth-dummy-password"), dummyHashCost)
	if err != nil {
		log.Err(err).Msg("error generating dummy password hash")
	}

	return &authGateway{
		tokens:          tokens,
		lockout:         lockout,
		ledger:          ledger,
		accounts:        accounts,
		sessions:        sessions,
		ids:             ids,
		refreshRotation: cfg.RefreshRotation,
		lockoutPolicy:   cfg.LockoutCheckPolicy,
		sessionPolicy:   cfg.SessionCheckPolicy,
		dummyHash:       dummyHash,
		now:             time.Now,
		logger:          log,
	}
}

// Login verifies the credentials and, on success, starts a new session that
// supersedes every earlier session of the account.
//
// Errors:
//   - ErrAccountLocked while the lock expiry lies in the future, even for
//     the correct password. RetryAt carries the expiry.
//   - ErrInvalidCredentials for an unknown email or a wrong password.
//   - ErrAccountInactive / ErrAccountUnverified for a correct password on an
//     account that may not sign in.
//   - ErrUnavailable when storage fails.
func (g *authGateway) Login(ctx context.Context, request models.LoginRequest) (models.TokenPair, error) {
	log := logger.FromContext(ctx)
	email := strings.TrimSpace(request.Email)

	state, err := g.lockout.Evaluate(ctx, email)
	if err != nil {
		state, err = g.resolveLockoutFailure(ctx, email, err)
		if err != nil {
			return models.TokenPair{}, err
		}
	}

	if state.Locked {
		log.Info().Int64("account_id", state.Account.AccountID).Msg("login attempt on locked account")
		g.ledger.Record(ctx, models.AuditEntry{
			Action:       models.AuditLoginBlocked,
			ResourceType: models.Account{}.TableName(),
			ResourceID:   strconv.FormatInt(state.Account.AccountID, 10),
			Status:       models.AuditStatusBlocked,
			ErrorCode:    KindAccountLocked.String(),
			ErrorMessage: "account is locked",
			Metadata:     map[string]string{"locked_until": state.RetryAt.UTC().Format(time.RFC3339)},
		}.WithActor(*state.Account))
		return models.TokenPair{}, accountLockedUntil(state.RetryAt)
	}

	if state.Account == nil {
		// equalize timing with the known-account path
		_ = bcrypt.CompareHashAndPassword(g.dummyHash, []byte(request.Password))
		g.ledger.Record(ctx, models.AuditEntry{
			AccountEmail: email,
			Action:       models.AuditLoginFailure,
			ResourceType: models.Account{}.TableName(),
			Status:       models.AuditStatusFailure,
			ErrorCode:    KindInvalidCredentials.String(),
			ErrorMessage: "unknown account",
		})
		return models.TokenPair{}, ErrInvalidCredentials
	}

	account := *state.Account
	if err = bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(request.Password)); err != nil {
		return models.TokenPair{}, g.rejectPassword(ctx, account)
	}

	if !account.IsActive {
		g.ledger.Record(ctx, g.loginRefused(account, KindAccountInactive, "account is inactive"))
		return models.TokenPair{}, ErrAccountInactive
	}
	if !account.IsVerified {
		g.ledger.Record(ctx, g.loginRefused(account, KindAccountUnverified, "account is not verified"))
		return models.TokenPair{}, ErrAccountUnverified
	}

	sessionID := g.ids.Generate()
	pair, err := g.tokens.IssuePair(account, sessionID)
	if err != nil {
		log.Err(err).Int64("account_id", account.AccountID).Msg("error issuing token pair")
		return models.TokenPair{}, err
	}

	session := models.Session{
		SessionID: sessionID,
		AccountID: account.AccountID,
		TokenHash: utils.HashToken(pair.Refresh.SignedString),
		IssuedAt:  g.now(),
		ExpiresAt: pair.Refresh.ExpiresAt,
	}
	if err = g.sessions.ReplaceSession(ctx, session); err != nil {
		log.Err(err).Int64("account_id", account.AccountID).Msg("error replacing session")
		return models.TokenPair{}, newAuthError(KindUnavailable, err)
	}

	if err = g.lockout.RecordSuccess(ctx, account.AccountID); err != nil {
		log.Warn().Err(err).Int64("account_id", account.AccountID).Msg("failed login counter not reset")
	}

	g.ledger.Record(ctx, models.AuditEntry{
		Action:       models.AuditLoginSuccess,
		ResourceType: models.Session{}.TableName(),
		ResourceID:   sessionID,
		Status:       models.AuditStatusSuccess,
	}.WithActor(account))

	log.Info().Int64("account_id", account.AccountID).Str("session_id", sessionID).Msg("login succeeded")
	return pair, nil
}

// resolveLockoutFailure applies the lockout check policy after Evaluate
// failed. Under fail-open the account is still loaded, so a lock that is
// visible on the row keeps blocking.
func (g *authGateway) resolveLockoutFailure(ctx context.Context, email string, cause error) (LockState, error) {
	log := logger.FromContext(ctx)

	if g.lockoutPolicy != config.FailOpen {
		log.Err(cause).Msg("lockout state unreadable, refusing login")
		return LockState{}, newAuthError(KindUnavailable, cause)
	}

	log.Warn().Err(cause).Msg("lockout state unreadable, continuing without lockout check")

	account, err := g.accounts.FindAccountByEmail(ctx, email)
	if errors.Is(err, store.ErrAccountNotFound) {
		return LockState{}, nil
	}
	if err != nil {
		log.Err(err).Msg("error loading account")
		return LockState{}, newAuthError(KindUnavailable, err)
	}

	state := LockState{Account: &account}
	if account.IsLockedAt(g.now()) {
		state.Locked = true
		state.RetryAt = *account.LockedUntil
	}
	return state, nil
}

// rejectPassword counts the failure, audits it and, when this failure locked
// the account, audits the lock.
func (g *authGateway) rejectPassword(ctx context.Context, account models.Account) error {
	log := logger.FromContext(ctx)

	state, err := g.lockout.RecordFailure(ctx, account)
	if err != nil {
		log.Err(err).Int64("account_id", account.AccountID).Msg("error recording failed login")
		return newAuthError(KindUnavailable, err)
	}

	attempts := strconv.Itoa(state.Account.FailedAttempts)
	g.ledger.Record(ctx, models.AuditEntry{
		Action:       models.AuditLoginFailure,
		ResourceType: models.Account{}.TableName(),
		ResourceID:   strconv.FormatInt(account.AccountID, 10),
		Status:       models.AuditStatusFailure,
		ErrorCode:    KindInvalidCredentials.String(),
		ErrorMessage: "wrong password",
		Metadata:     map[string]string{"failed_attempts": attempts},
	}.WithActor(account))

	if state.Locked {
		g.ledger.Record(ctx, models.AuditEntry{
			Action:       models.AuditAccountLocked,
			ResourceType: models.Account{}.TableName(),
			ResourceID:   strconv.FormatInt(account.AccountID, 10),
			Status:       models.AuditStatusBlocked,
			ErrorCode:    KindAccountLocked.String(),
			Metadata: map[string]string{
				"failed_attempts": attempts,
				"locked_until":    state.RetryAt.UTC().Format(time.RFC3339),
			},
		}.WithActor(account))
	}

	return ErrInvalidCredentials
}

func (g *authGateway) loginRefused(account models.Account, kind ErrorKind, message string) models.AuditEntry {
	return models.AuditEntry{
		Action:       models.AuditLoginFailure,
		ResourceType: models.Account{}.TableName(),
		ResourceID:   strconv.FormatInt(account.AccountID, 10),
		Status:       models.AuditStatusFailure,
		ErrorCode:    kind.String(),
		ErrorMessage: message,
	}.WithActor(account)
}

// Refresh exchanges a refresh token for a new access token. The exchange
// always fails closed: storage errors yield ErrUnavailable.
//
// With rotation enabled the refresh token is replaced as well, and the old
// one stops working.
func (g *authGateway) Refresh(ctx context.Context, refreshToken string) (models.RefreshResult, error) {
	log := logger.FromContext(ctx)

	token, err := g.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		kind, _ := KindOf(err)
		g.ledger.Record(ctx, models.AuditEntry{
			Action:       models.AuditRefreshFailure,
			ResourceType: models.Session{}.TableName(),
			Status:       models.AuditStatusFailure,
			ErrorCode:    kind.String(),
			ErrorMessage: "refresh token rejected",
		})
		return models.RefreshResult{}, err
	}

	sessionID := token.Claims.SessionID
	account, err := g.accounts.FindAccountByID(ctx, token.AccountID)
	if errors.Is(err, store.ErrAccountNotFound) {
		g.ledger.Record(ctx, g.sessionTerminated(models.Account{}, sessionID, "account no longer exists"))
		return models.RefreshResult{}, newAuthError(KindSessionTerminated, err)
	}
	if err != nil {
		log.Err(err).Int64("account_id", token.AccountID).Msg("error loading account for refresh")
		return models.RefreshResult{}, newAuthError(KindUnavailable, err)
	}

	tokenHash := utils.HashToken(refreshToken)
	current, err := g.sessions.IsCurrent(ctx, account.AccountID, sessionID, tokenHash, g.now())
	if err != nil {
		log.Err(err).Str("session_id", sessionID).Msg("error checking session for refresh")
		return models.RefreshResult{}, newAuthError(KindUnavailable, err)
	}
	if !current {
		g.ledger.Record(ctx, g.sessionTerminated(account, sessionID, "session superseded or revoked"))
		return models.RefreshResult{}, ErrSessionTerminated
	}

	if !account.IsActive {
		g.ledger.Record(ctx, models.AuditEntry{
			Action:       models.AuditRefreshFailure,
			ResourceType: models.Session{}.TableName(),
			ResourceID:   sessionID,
			Status:       models.AuditStatusFailure,
			ErrorCode:    KindAccountInactive.String(),
			ErrorMessage: "account is inactive",
		}.WithActor(account))
		return models.RefreshResult{}, ErrAccountInactive
	}

	access, err := g.tokens.IssueAccessToken(account, sessionID)
	if err != nil {
		log.Err(err).Int64("account_id", account.AccountID).Msg("error issuing access token")
		return models.RefreshResult{}, err
	}
	result := models.RefreshResult{Access: access}

	if g.refreshRotation {
		refresh, err := g.tokens.IssueRefreshToken(account, sessionID)
		if err != nil {
			log.Err(err).Int64("account_id", account.AccountID).Msg("error issuing refresh token")
			return models.RefreshResult{}, err
		}

		err = g.sessions.RotateSession(ctx, sessionID, tokenHash, utils.HashToken(refresh.SignedString), refresh.ExpiresAt, g.now())
		if errors.Is(err, store.ErrSessionNotFound) {
			g.ledger.Record(ctx, g.sessionTerminated(account, sessionID, "session changed during rotation"))
			return models.RefreshResult{}, newAuthError(KindSessionTerminated, err)
		}
		if err != nil {
			log.Err(err).Str("session_id", sessionID).Msg("error rotating refresh token")
			return models.RefreshResult{}, newAuthError(KindUnavailable, err)
		}
		result.Refresh = &refresh
	}

	g.ledger.Record(ctx, models.AuditEntry{
		Action:       models.AuditRefreshSuccess,
		ResourceType: models.Session{}.TableName(),
		ResourceID:   sessionID,
		Status:       models.AuditStatusSuccess,
		Metadata:     map[string]string{"rotated": strconv.FormatBool(result.Refresh != nil)},
	}.WithActor(account))

	return result, nil
}

func (g *authGateway) sessionTerminated(account models.Account, sessionID, message string) models.AuditEntry {
	return models.AuditEntry{
		Action:       models.AuditSessionTerminated,
		ResourceType: models.Session{}.TableName(),
		ResourceID:   sessionID,
		Status:       models.AuditStatusBlocked,
		ErrorCode:    KindSessionTerminated.String(),
		ErrorMessage: message,
	}.WithActor(account)
}

// Logout revokes every live session of the principal's account.
func (g *authGateway) Logout(ctx context.Context, principal models.Principal) error {
	log := logger.FromContext(ctx)

	if err := g.sessions.RevokeSessions(ctx, principal.AccountID, g.now()); err != nil {
		log.Err(err).Int64("account_id", principal.AccountID).Msg("error revoking sessions")
		return newAuthError(KindUnavailable, err)
	}

	g.ledger.Record(ctx, models.AuditEntry{
		Action:       models.AuditLogout,
		ResourceType: models.Session{}.TableName(),
		ResourceID:   principal.SessionID,
		Status:       models.AuditStatusSuccess,
	}.WithActor(principal.Account()))

	return nil
}

// Authenticate is the request gate. The access token must verify and the
// session it was issued for must still be live; a newer login therefore
// invalidates the access tokens of the session it superseded.
func (g *authGateway) Authenticate(ctx context.Context, accessToken string) (models.Principal, error) {
	log := logger.FromContext(ctx)

	token, err := g.tokens.VerifyAccess(accessToken)
	if err != nil {
		return models.Principal{}, err
	}

	principal := models.Principal{
		AccountID: token.AccountID,
		Email:     token.Claims.Email,
		Role:      token.Claims.Role,
		SessionID: token.Claims.SessionID,
	}

	active, err := g.sessions.IsActive(ctx, principal.AccountID, principal.SessionID, g.now())
	if err != nil {
		if g.sessionPolicy == config.FailOpen {
			log.Warn().Err(err).Str("session_id", principal.SessionID).Msg("session unreadable, admitting request")
			return principal, nil
		}
		log.Err(err).Str("session_id", principal.SessionID).Msg("session unreadable, refusing request")
		return models.Principal{}, newAuthError(KindUnavailable, err)
	}
	if !active {
		return models.Principal{}, ErrSessionTerminated
	}

	return principal, nil
}

// DeleteAccount erases the principal's account and records one
// account.deleted entry carrying the outcome. Once the account row is gone
// the entry can no longer reference it by account_id, so it is written in
// the erased form: no account_id, only the account reference.
func (g *authGateway) DeleteAccount(ctx context.Context, principal models.Principal) error {
	log := logger.FromContext(ctx)

	entry := models.AuditEntry{
		Action:       models.AuditAccountDeleted,
		ResourceType: models.Account{}.TableName(),
		ResourceID:   strconv.FormatInt(principal.AccountID, 10),
		Status:       models.AuditStatusSuccess,
	}.WithActor(principal.Account())

	err := g.accounts.DeleteAccount(ctx, principal.AccountID)
	switch {
	case err == nil:
		g.ledger.Record(ctx, erased(entry))
		log.Info().Int64("account_id", principal.AccountID).Msg("account deleted")
		return nil

	case errors.Is(err, store.ErrAccountNotFound):
		entry = erased(entry)
		entry.Status = models.AuditStatusFailure
		entry.ErrorCode = KindSessionTerminated.String()
		entry.ErrorMessage = "account no longer exists"
		g.ledger.Record(ctx, entry)
		return newAuthError(KindSessionTerminated, err)
	}

	log.Err(err).Int64("account_id", principal.AccountID).Msg("error deleting account")
	entry.Status = models.AuditStatusFailure
	entry.ErrorCode = KindUnavailable.String()
	entry.ErrorMessage = "account could not be deleted"
	g.ledger.Record(ctx, entry)
	return newAuthError(KindUnavailable, err)
}

// erased moves the account id of entry into its account reference.
func erased(entry models.AuditEntry) models.AuditEntry {
	entry.AccountRef = utils.AuditAccountRef(entry.AccountID)
	entry.AccountID = nil
	return entry
}
