// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-clinic-auth/internal/logger"
	"github.com/MKhiriev/go-clinic-auth/internal/utils"
	"github.com/MKhiriev/go-clinic-auth/models"
	"github.com/jackc/pgerrcode"
)

// auditRepository is the PostgreSQL-backed implementation of
// [AuditRepository] over the append-only "audit_log" table.
type auditRepository struct {
	logger *logger.Logger
	db     *DB
}

// NewAuditRepository constructs an [AuditRepository] backed by the provided
// database connection and logger.
func NewAuditRepository(db *DB, logger *logger.Logger) AuditRepository {
	logger.Debug().Msg("creating audit repository")
	return &auditRepository{
		db:     db,
		logger: logger,
	}
}

// AppendEntry appends entry to the hash chain.
//
// Inside one transaction it takes the chain advisory lock, reads the
// content_hash of the newest row (or [models.GenesisHash] for an empty log),
// computes the entry's own hash with [utils.AuditContentHash] and inserts
// it. CreatedAt is normalized to UTC microseconds and text fields are
// sanitized first so the stored row hashes to the same value on
// verification. AccountRef is derived from AccountID when one is set;
// otherwise a preset reference is kept for entries written in erased form.
func (r *auditRepository) AppendEntry(ctx context.Context, entry models.AuditEntry) (models.AuditEntry, error) {
	log := logger.FromContext(ctx)

	entry = utils.SanitizeAuditEntry(entry)
	entry.CreatedAt = utils.AuditTimestamp(entry.CreatedAt)
	if entry.AccountID != nil {
		entry.AccountRef = utils.AuditAccountRef(entry.AccountID)
	}
	metadata, err := encodeMetadata(entry.Metadata)
	if err != nil {
		return models.AuditEntry{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).Str("func", "*auditRepository.AppendEntry").Msg("failed to begin transaction")
		return models.AuditEntry{}, fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, lockAuditChain); err != nil {
		log.Err(err).Str("func", "*auditRepository.AppendEntry").Msg("failed to lock audit chain")
		return models.AuditEntry{}, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	var previousHash string
	err = tx.QueryRowContext(ctx, selectAuditChainHead).Scan(&previousHash)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		previousHash = models.GenesisHash
	case err != nil:
		log.Err(err).Str("func", "*auditRepository.AppendEntry").Msg("failed to read audit chain head")
		return models.AuditEntry{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	entry.PreviousHash = previousHash
	entry.ContentHash = utils.AuditContentHash(entry)

	err = tx.QueryRowContext(ctx, insertAuditEntry,
		entry.CreatedAt,
		entry.AccountID,
		entry.AccountRef,
		entry.AccountEmail,
		entry.AccountRole,
		string(entry.Action),
		entry.ResourceType,
		entry.ResourceID,
		entry.IP,
		entry.UserAgent,
		entry.Method,
		entry.Path,
		string(entry.Status),
		entry.ErrorCode,
		entry.ErrorMessage,
		metadata,
		entry.PreviousHash,
		entry.ContentHash,
	).Scan(&entry.ID)
	if err != nil {
		log.Err(err).Str("func", "*auditRepository.AppendEntry").Str("action", string(entry.Action)).Msg("failed to insert audit entry")
		if postgresError(err) == pgerrcode.RaiseException {
			return models.AuditEntry{}, fmt.Errorf("%w: %w", ErrAuditImmutable, err)
		}
		return models.AuditEntry{}, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	if commitErr := tx.Commit(); commitErr != nil {
		log.Err(commitErr).Str("func", "*auditRepository.AppendEntry").Msg("failed to commit transaction")
		return models.AuditEntry{}, fmt.Errorf("%w: %w", ErrCommitingTransaction, commitErr)
	}

	log.Debug().Str("func", "*auditRepository.AppendEntry").
		Int64("audit_id", entry.ID).
		Str("action", string(entry.Action)).
		Msg("audit entry appended")

	return entry, nil
}

func (r *auditRepository) ListEntries(ctx context.Context, filter models.AuditFilter) ([]models.AuditEntry, error) {
	query, args, err := buildListAuditEntriesQuery(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return r.queryEntries(ctx, "*auditRepository.ListEntries", query, args)
}

func (r *auditRepository) ChainEntries(ctx context.Context, afterID int64, limit uint64) ([]models.AuditEntry, error) {
	query, args, err := buildChainEntriesQuery(ctx, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	return r.queryEntries(ctx, "*auditRepository.ChainEntries", query, args)
}

func (r *auditRepository) queryEntries(ctx context.Context, funcName, query string, args []any) ([]models.AuditEntry, error) {
	log := logger.FromContext(ctx)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", funcName).Msg("error querying audit entries")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	entries := make([]models.AuditEntry, 0)
	for rows.Next() {
		var (
			entry    models.AuditEntry
			metadata []byte
		)
		if err = rows.Scan(
			&entry.ID,
			&entry.CreatedAt,
			&entry.AccountID,
			&entry.AccountRef,
			&entry.AccountEmail,
			&entry.AccountRole,
			&entry.Action,
			&entry.ResourceType,
			&entry.ResourceID,
			&entry.IP,
			&entry.UserAgent,
			&entry.Method,
			&entry.Path,
			&entry.Status,
			&entry.ErrorCode,
			&entry.ErrorMessage,
			&metadata,
			&entry.PreviousHash,
			&entry.ContentHash,
		); err != nil {
			log.Err(err).Str("func", funcName).Msg("error scanning audit entry")
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
		}

		if entry.Metadata, err = decodeMetadata(metadata); err != nil {
			log.Err(err).Str("func", funcName).Int64("audit_id", entry.ID).Msg("error decoding audit metadata")
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		log.Err(err).Str("func", funcName).Msg("error iterating audit entries")
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, err)
	}

	return entries, nil
}

func encodeMetadata(metadata map[string]string) (string, error) {
	if len(metadata) == 0 {
		return "{}", nil
	}

	b, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrEncodingMetadata, err)
	}

	return string(b), nil
}

func decodeMetadata(raw []byte) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var metadata map[string]string
	if err := json.Unmarshal(raw, &metadata); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodingMetadata, err)
	}
	if len(metadata) == 0 {
		return nil, nil
	}

	return metadata, nil
}
