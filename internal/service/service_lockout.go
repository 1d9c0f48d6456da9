package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/go-clinic-auth/internal/config"
	"github.com/MKhiriev/go-clinic-auth/internal/logger"
	"github.com/MKhiriev/go-clinic-auth/internal/store"
	"github.com/MKhiriev/go-clinic-auth/models"
)

// LockState is the lockout view of an account at one instant.
type LockState struct {
	// Account is nil when no account matches the evaluated email.
	Account *models.Account
	// Locked is true while the lock expiry lies in the future.
	Locked bool
	// RetryAt is the lock expiry. Zero unless Locked.
	RetryAt time.Time
}

// lockoutGuard keeps the failed-attempt state machine of an account on top of
// AccountRepository. Every transition is a single atomic statement, so
// concurrent logins never lose an increment.
type lockoutGuard struct {
	accounts store.AccountRepository

	threshold int
	duration  time.Duration

	now    func() time.Time
	logger *logger.Logger
}

func NewLockoutGuard(accounts store.AccountRepository, cfg config.App, logger *logger.Logger) LockoutGuard {
	return &lockoutGuard{
		accounts:  accounts,
		threshold: cfg.LockoutThreshold,
		duration:  cfg.LockoutDuration,
		now:       time.Now,
		logger:    logger,
	}
}

// Evaluate loads the account by email and reports whether it is locked.
//
// A lock expiry that already elapsed is cleared, together with the failure
// counter, before the state is returned. An unknown email yields a zero
// LockState.
func (g *lockoutGuard) Evaluate(ctx context.Context, email string) (LockState, error) {
	log := logger.FromContext(ctx)

	account, err := g.accounts.FindAccountByEmail(ctx, email)
	if errors.Is(err, store.ErrAccountNotFound) {
		return LockState{}, nil
	}
	if err != nil {
		return LockState{}, fmt.Errorf("%w: %w", ErrLockoutStateUnreadable, err)
	}

	now := g.now()
	if account.IsLockedAt(now) {
		return LockState{Account: &account, Locked: true, RetryAt: *account.LockedUntil}, nil
	}

	if account.HasExpiredLockAt(now) {
		cleared, err := g.accounts.ClearExpiredLock(ctx, account.AccountID, now)
		if err != nil {
			return LockState{}, fmt.Errorf("%w: %w", ErrLockoutStateUnreadable, err)
		}
		if cleared {
			log.Info().Int64("account_id", account.AccountID).Msg("expired account lock cleared")
		}
		account.FailedAttempts = 0
		account.LockedUntil = nil
	}

	return LockState{Account: &account}, nil
}

// RecordFailure counts one failed login of account. The returned state is
// Locked when this failure reached the threshold.
func (g *lockoutGuard) RecordFailure(ctx context.Context, account models.Account) (LockState, error) {
	now := g.now()

	updated, err := g.accounts.RecordFailedAttempt(ctx, account.AccountID, g.threshold, now.Add(g.duration))
	if err != nil {
		return LockState{}, fmt.Errorf("error recording failed login attempt: %w", err)
	}

	state := LockState{Account: &updated}
	if updated.IsLockedAt(now) {
		state.Locked = true
		state.RetryAt = *updated.LockedUntil
		logger.FromContext(ctx).Warn().
			Int64("account_id", updated.AccountID).
			Int("failed_attempts", updated.FailedAttempts).
			Time("locked_until", state.RetryAt).
			Msg("account locked after repeated login failures")
	}

	return state, nil
}

// RecordSuccess resets the failure counter and lock expiry.
func (g *lockoutGuard) RecordSuccess(ctx context.Context, accountID int64) error {
	if err := g.accounts.ResetFailedAttempts(ctx, accountID); err != nil {
		return fmt.Errorf("error resetting failed login attempts: %w", err)
	}
	return nil
}
