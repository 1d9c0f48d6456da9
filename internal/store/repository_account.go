package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/go-clinic-auth/internal/logger"
	"github.com/MKhiriev/go-clinic-auth/models"
	"github.com/jackc/pgerrcode"
)

// accountRepository is the PostgreSQL-backed implementation of
// [AccountRepository] over the "accounts" table.
//
// All methods obtain a context-scoped logger via [logger.FromContext] for
// structured, request-level tracing of database interactions.
type accountRepository struct {
	logger *logger.Logger
	db     *DB
}

// NewAccountRepository constructs an [AccountRepository] backed by the
// provided database connection and logger.
func NewAccountRepository(db *DB, logger *logger.Logger) AccountRepository {
	logger.Debug().Msg("creating account repository")
	return &accountRepository{
		db:     db,
		logger: logger,
	}
}

// FindAccountByEmail returns the account whose email matches ignoring case.
//
// Error handling:
//   - no row → [ErrAccountNotFound].
//   - any other driver-level error → wrapped [ErrExecutingQuery].
func (r *accountRepository) FindAccountByEmail(ctx context.Context, email string) (models.Account, error) {
	log := logger.FromContext(ctx)

	account, err := scanAccount(r.db.QueryRowContext(ctx, findAccountByEmail, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Account{}, ErrAccountNotFound
		}
		log.Err(err).Str("func", "*accountRepository.FindAccountByEmail").Msg("error finding account")
		return models.Account{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return account, nil
}

func (r *accountRepository) FindAccountByID(ctx context.Context, accountID int64) (models.Account, error) {
	account, err := scanAccount(r.db.QueryRowContext(ctx, findAccountByID, accountID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Account{}, ErrAccountNotFound
		}
		logger.FromContext(ctx).Err(err).Str("func", "*accountRepository.FindAccountByID").Int64("account_id", accountID).Msg("error finding account")
		return models.Account{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return account, nil
}

func (r *accountRepository) ClearExpiredLock(ctx context.Context, accountID int64, now time.Time) (bool, error) {
	log := logger.FromContext(ctx)

	result, err := r.db.ExecContext(ctx, clearExpiredLock, accountID, now)
	if err != nil {
		log.Err(err).Str("func", "*accountRepository.ClearExpiredLock").Int64("account_id", accountID).Msg("error clearing expired lock")
		return false, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	if affected > 0 {
		log.Info().Str("func", "*accountRepository.ClearExpiredLock").Int64("account_id", accountID).Msg("expired lock cleared")
	}

	return affected > 0, nil
}

// RecordFailedAttempt increments failed_attempts and, when the incremented
// value reaches threshold, sets locked_until in the same UPDATE.
func (r *accountRepository) RecordFailedAttempt(ctx context.Context, accountID int64, threshold int, lockUntil time.Time) (models.Account, error) {
	log := logger.FromContext(ctx)

	account, err := scanAccount(r.db.QueryRowContext(ctx, recordFailedAttempt, accountID, threshold, lockUntil))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Account{}, ErrAccountNotFound
		}
		log.Err(err).Str("func", "*accountRepository.RecordFailedAttempt").Int64("account_id", accountID).Msg("error recording failed attempt")
		return models.Account{}, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	log.Debug().Str("func", "*accountRepository.RecordFailedAttempt").
		Int64("account_id", accountID).
		Int("failed_attempts", account.FailedAttempts).
		Msg("failed attempt recorded")

	return account, nil
}

func (r *accountRepository) ResetFailedAttempts(ctx context.Context, accountID int64) error {
	if _, err := r.db.ExecContext(ctx, resetFailedAttempts, accountID); err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "*accountRepository.ResetFailedAttempts").Int64("account_id", accountID).Msg("error resetting failed attempts")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return nil
}

func (r *accountRepository) DeleteAccount(ctx context.Context, accountID int64) error {
	log := logger.FromContext(ctx)

	result, err := r.db.ExecContext(ctx, deleteAccount, accountID)
	if err != nil {
		log.Err(err).Str("func", "*accountRepository.DeleteAccount").Int64("account_id", accountID).Msg("error deleting account")
		// the ON DELETE SET NULL of audit_log.account_id goes through the
		// audit_log_guard trigger
		if postgresError(err) == pgerrcode.RaiseException {
			return fmt.Errorf("%w: %w", ErrAuditImmutable, err)
		}
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	if affected == 0 {
		return ErrAccountNotFound
	}

	log.Info().Str("func", "*accountRepository.DeleteAccount").Int64("account_id", accountID).Msg("account deleted")

	return nil
}

func scanAccount(row *sql.Row) (models.Account, error) {
	var (
		account     models.Account
		lockedUntil *time.Time
	)

	err := row.Scan(
		&account.AccountID,
		&account.Email,
		&account.PasswordHash,
		&account.Role,
		&account.IsActive,
		&account.IsVerified,
		&account.FailedAttempts,
		&lockedUntil,
	)
	if err != nil {
		return models.Account{}, err
	}
	account.LockedUntil = lockedUntil

	return account, nil
}
