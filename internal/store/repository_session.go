package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/go-clinic-auth/internal/logger"
	"github.com/MKhiriev/go-clinic-auth/models"
)

// sessionRepository is the PostgreSQL-backed implementation of
// [SessionRepository] over the "sessions" table.
//
// The partial unique index sessions_one_live_per_account_uidx guarantees at
// most one non-revoked row per account; ReplaceSession additionally locks
// the account row so concurrent logins queue instead of failing on it.
type sessionRepository struct {
	logger *logger.Logger
	db     *DB
}

// NewSessionRepository constructs a [SessionRepository] backed by the
// provided database connection and logger.
func NewSessionRepository(db *DB, logger *logger.Logger) SessionRepository {
	logger.Debug().Msg("creating session repository")
	return &sessionRepository{
		db:     db,
		logger: logger,
	}
}

// ReplaceSession revokes all live sessions of session.AccountID and inserts
// session inside one transaction. The transaction is rolled back
// automatically (via defer) on every failure path. Returns
// [ErrAccountNotFound] if the account row does not exist.
func (r *sessionRepository) ReplaceSession(ctx context.Context, session models.Session) error {
	log := logger.FromContext(ctx)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).Str("func", "*sessionRepository.ReplaceSession").Msg("failed to begin transaction")
		return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	// concurrent logins of the same account serialize here
	var lockedID int64
	if err = tx.QueryRowContext(ctx, lockAccountForSession, session.AccountID).Scan(&lockedID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAccountNotFound
		}
		log.Err(err).Str("func", "*sessionRepository.ReplaceSession").Int64("account_id", session.AccountID).Msg("failed to lock account row")
		return fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	result, err := tx.ExecContext(ctx, revokeLiveSessions, session.AccountID, session.IssuedAt)
	if err != nil {
		log.Err(err).Str("func", "*sessionRepository.ReplaceSession").Int64("account_id", session.AccountID).Msg("failed to revoke previous sessions")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	revoked, _ := result.RowsAffected()

	_, err = tx.ExecContext(ctx, insertSession,
		session.SessionID,
		session.AccountID,
		session.TokenHash,
		session.IssuedAt,
		session.ExpiresAt,
	)
	if err != nil {
		log.Err(err).Str("func", "*sessionRepository.ReplaceSession").Int64("account_id", session.AccountID).Msg("failed to insert session")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	if commitErr := tx.Commit(); commitErr != nil {
		log.Err(commitErr).Str("func", "*sessionRepository.ReplaceSession").Int64("account_id", session.AccountID).Msg("failed to commit transaction")
		return fmt.Errorf("%w: %w", ErrCommitingTransaction, commitErr)
	}

	log.Info().Str("func", "*sessionRepository.ReplaceSession").
		Int64("account_id", session.AccountID).
		Str("session_id", session.SessionID).
		Int64("revoked_sessions", revoked).
		Msg("session replaced")

	return nil
}

func (r *sessionRepository) IsCurrent(ctx context.Context, accountID int64, sessionID, tokenHash string, now time.Time) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, isCurrentSession, sessionID, accountID, tokenHash, now).Scan(&exists); err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "*sessionRepository.IsCurrent").Int64("account_id", accountID).Msg("error checking current session")
		return false, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return exists, nil
}

func (r *sessionRepository) IsActive(ctx context.Context, accountID int64, sessionID string, now time.Time) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, isActiveSession, sessionID, accountID, now).Scan(&exists); err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "*sessionRepository.IsActive").Int64("account_id", accountID).Msg("error checking active session")
		return false, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return exists, nil
}

// RotateSession is a compare-and-swap on token_hash: it only succeeds while
// the session is live and still holds oldHash.
func (r *sessionRepository) RotateSession(ctx context.Context, sessionID, oldHash, newHash string, expiresAt, now time.Time) error {
	log := logger.FromContext(ctx)

	result, err := r.db.ExecContext(ctx, rotateSession, sessionID, oldHash, newHash, expiresAt, now)
	if err != nil {
		log.Err(err).Str("func", "*sessionRepository.RotateSession").Str("session_id", sessionID).Msg("error rotating session")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}
	if affected == 0 {
		log.Warn().Str("func", "*sessionRepository.RotateSession").Str("session_id", sessionID).Msg("rotation lost: session no longer current")
		return ErrSessionNotFound
	}

	return nil
}

func (r *sessionRepository) RevokeSessions(ctx context.Context, accountID int64, now time.Time) error {
	log := logger.FromContext(ctx)

	result, err := r.db.ExecContext(ctx, revokeLiveSessions, accountID, now)
	if err != nil {
		log.Err(err).Str("func", "*sessionRepository.RevokeSessions").Int64("account_id", accountID).Msg("error revoking sessions")
		return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	revoked, _ := result.RowsAffected()
	log.Info().Str("func", "*sessionRepository.RevokeSessions").
		Int64("account_id", accountID).
		Int64("revoked_sessions", revoked).
		Msg("sessions revoked")

	return nil
}

func (r *sessionRepository) PurgeSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	log := logger.FromContext(ctx)

	result, err := r.db.ExecContext(ctx, purgeDeadSessions, cutoff)
	if err != nil {
		log.Err(err).Str("func", "*sessionRepository.PurgeSessions").Time("cutoff", cutoff).Msg("error purging sessions")
		return 0, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	purged, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	return purged, nil
}
