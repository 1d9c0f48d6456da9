package store

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/MKhiriev/go-clinic-auth/internal/logger"
	"github.com/MKhiriev/go-clinic-auth/models"
)

const (
	findAccountByEmail = `SELECT id, email, password_hash, role, is_active, is_verified, failed_attempts, locked_until
    FROM accounts
    WHERE lower(email) = lower($1);`

	findAccountByID = `SELECT id, email, password_hash, role, is_active, is_verified, failed_attempts, locked_until
    FROM accounts
    WHERE id = $1;`

	clearExpiredLock = `UPDATE accounts
    SET failed_attempts = 0, locked_until = NULL
    WHERE id = $1 AND locked_until IS NOT NULL AND locked_until <= $2;`

	// the counter and the lock are decided in one statement so concurrent
	// failures can neither lose an increment nor skip the threshold
	recordFailedAttempt = `UPDATE accounts
    SET failed_attempts = failed_attempts + 1,
        locked_until = CASE WHEN failed_attempts + 1 >= $2 THEN $3 ELSE locked_until END
    WHERE id = $1
    RETURNING id, email, password_hash, role, is_active, is_verified, failed_attempts, locked_until;`

	resetFailedAttempts = `UPDATE accounts
    SET failed_attempts = 0, locked_until = NULL
    WHERE id = $1;`

	deleteAccount = `DELETE FROM accounts WHERE id = $1;`

	lockAccountForSession = `SELECT id FROM accounts WHERE id = $1 FOR UPDATE;`

	revokeLiveSessions = `UPDATE sessions
    SET revoked = TRUE, revoked_at = $2
    WHERE account_id = $1 AND NOT revoked;`

	insertSession = `INSERT INTO sessions (id, account_id, token_hash, issued_at, expires_at, revoked)
    VALUES ($1, $2, $3, $4, $5, FALSE);`

	isCurrentSession = `SELECT EXISTS (
        SELECT 1 FROM sessions
        WHERE id = $1 AND account_id = $2 AND token_hash = $3 AND NOT revoked AND expires_at > $4
    );`

	isActiveSession = `SELECT EXISTS (
        SELECT 1 FROM sessions
        WHERE id = $1 AND account_id = $2 AND NOT revoked AND expires_at > $3
    );`

	rotateSession = `UPDATE sessions
    SET token_hash = $3, expires_at = $4
    WHERE id = $1 AND token_hash = $2 AND NOT revoked AND expires_at > $5;`

	purgeDeadSessions = `DELETE FROM sessions
    WHERE (revoked AND revoked_at < $1) OR expires_at < $1;`

	// serializes chain appends across every instance sharing the database
	lockAuditChain = `SELECT pg_advisory_xact_lock(hashtext('audit_log_chain'));`

	selectAuditChainHead = `SELECT content_hash FROM audit_log ORDER BY id DESC LIMIT 1;`

	insertAuditEntry = `INSERT INTO audit_log (
        created_at, account_id, account_ref, account_email, account_role, action,
        resource_type, resource_id, ip, user_agent, method, path,
        status, error_code, error_message, metadata, previous_hash, content_hash
    ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
    RETURNING id;`
)

const (
	defaultAuditListLimit uint64 = 50
	maxAuditListLimit     uint64 = 500
)

var auditColumns = []string{
	"id", "created_at", "account_id", "account_ref", "account_email", "account_role", "action",
	"resource_type", "resource_id", "ip", "user_agent", "method", "path",
	"status", "error_code", "error_message", "metadata", "previous_hash", "content_hash",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// buildListAuditEntriesQuery builds the admin listing query: optional
// equality filters, a descending id cursor and a bounded limit.
func buildListAuditEntriesQuery(ctx context.Context, filter models.AuditFilter) (string, []any, error) {
	query := psql.Select(auditColumns...).From(models.AuditEntry{}.TableName())

	if filter.AccountEmail != "" {
		query = query.Where("lower(account_email) = lower(?)", filter.AccountEmail)
	}
	if filter.Action != "" {
		query = query.Where(sq.Eq{"action": string(filter.Action)})
	}
	if filter.Status != "" {
		query = query.Where(sq.Eq{"status": string(filter.Status)})
	}
	if filter.BeforeID > 0 {
		query = query.Where(sq.Lt{"id": filter.BeforeID})
	}

	limit := filter.Limit
	switch {
	case limit == 0:
		limit = defaultAuditListLimit
	case limit > maxAuditListLimit:
		limit = maxAuditListLimit
	}

	sqlQuery, args, err := query.OrderBy("id DESC").Limit(limit).ToSql()
	if err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "buildListAuditEntriesQuery").Msg("error building query")
		return "", nil, err
	}

	return sqlQuery, args, nil
}

// buildChainEntriesQuery builds the ascending page query used when the
// chain is verified.
func buildChainEntriesQuery(ctx context.Context, afterID int64, limit uint64) (string, []any, error) {
	if limit == 0 || limit > maxAuditListLimit {
		limit = maxAuditListLimit
	}

	sqlQuery, args, err := psql.Select(auditColumns...).
		From(models.AuditEntry{}.TableName()).
		Where(sq.Gt{"id": afterID}).
		OrderBy("id ASC").
		Limit(limit).
		ToSql()
	if err != nil {
		logger.FromContext(ctx).Err(err).Str("func", "buildChainEntriesQuery").Msg("error building query")
		return "", nil, err
	}

	return sqlQuery, args, nil
}
