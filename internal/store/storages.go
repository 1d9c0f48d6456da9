package store

import (
	"context"
	"fmt"

	"github.com/MKhiriev/go-clinic-auth/internal/config"
	"github.com/MKhiriev/go-clinic-auth/internal/logger"
)

// Storages bundles the repositories sharing one connection pool.
type Storages struct {
	AccountRepository AccountRepository
	SessionRepository SessionRepository
	AuditRepository   AuditRepository

	db *DB
}

// NewStorages connects to PostgreSQL, applies migrations and builds the
// repositories. The caller owns the returned value and must Close it.
func NewStorages(ctx context.Context, cfg config.Storage, log *logger.Logger) (*Storages, error) {
	db, err := NewConnectPostgres(ctx, cfg.DB, log)
	if err != nil {
		return nil, err
	}

	if err = db.Migrate(ctx); err != nil {
		log.Err(err).Str("func", "NewStorages").Msg("error applying migrations")
		_ = db.Close()
		return nil, fmt.Errorf("error applying migrations: %w", err)
	}

	return newStorages(db, log), nil
}

func newStorages(db *DB, log *logger.Logger) *Storages {
	return &Storages{
		AccountRepository: NewAccountRepository(db, log),
		SessionRepository: NewSessionRepository(db, log),
		AuditRepository:   NewAuditRepository(db, log),
		db:                db,
	}
}

// Close drains the connection pool.
func (s *Storages) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
