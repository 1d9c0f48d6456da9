package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func pgError(code string) error {
	return &pgconn.PgError{Code: code}
}

func TestPostgresErrorClassifier_Classify(t *testing.T) {
	c := NewPostgresErrorClassifier()

	tests := []struct {
		name string
		err  error
		want ErrorClassification
	}{
		{"nil", nil, NonRetryable},
		{"dial error", errors.New("dial tcp: connection refused"), Retryable},
		{"wrapped trigger exception", fmt.Errorf("%w: %w", ErrAuditImmutable, pgError(pgerrcode.RaiseException)), NonRetryable},
		{"check violation", pgError(pgerrcode.CheckViolation), NonRetryable},
		{"invalid byte sequence", pgError(pgerrcode.CharacterNotInRepertoire), NonRetryable},
		{"connection failure", pgError(pgerrcode.ConnectionFailure), Retryable},
		{"deadlock", pgError(pgerrcode.DeadlockDetected), Retryable},
		{"serialization", pgError(pgerrcode.SerializationFailure), Retryable},
		{"too many connections", pgError(pgerrcode.TooManyConnections), Retryable},
		{"wrapped cannot connect", fmt.Errorf("wrap: %w", pgError(pgerrcode.CannotConnectNow)), Retryable},
		{"unique violation", pgError(pgerrcode.UniqueViolation), NonRetryable},
		{"trigger exception", pgError(pgerrcode.RaiseException), NonRetryable},
		{"unknown code", pgError("XX999"), NonRetryable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.err))
		})
	}
}

func TestPostgresError(t *testing.T) {
	assert.Equal(t, pgerrcode.UniqueViolation, postgresError(fmt.Errorf("x: %w", pgError(pgerrcode.UniqueViolation))))
	assert.Empty(t, postgresError(errors.New("plain")))
}
