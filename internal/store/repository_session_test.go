package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/MKhiriev/go-clinic-auth/internal/logger"
	"github.com/MKhiriev/go-clinic-auth/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sessionNow = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

func newTestSessionRepo(t *testing.T) (*sessionRepository, sqlmock.Sqlmock) {
	db, mock := newTestDB(t)
	return &sessionRepository{db: db, logger: logger.Nop()}, mock
}

func testSession() models.Session {
	return models.Session{
		SessionID: "0192f0a4-7c1e-7000-8000-000000000001",
		AccountID: 7,
		TokenHash: "hash-r2",
		IssuedAt:  sessionNow,
		ExpiresAt: sessionNow.Add(7 * 24 * time.Hour),
	}
}

func TestReplaceSession_Success(t *testing.T) {
	repo, mock := newTestSessionRepo(t)
	s := testSession()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(s.AccountID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(s.AccountID))
	mock.ExpectExec(regexp.QuoteMeta("SET revoked = TRUE")).
		WithArgs(s.AccountID, s.IssuedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sessions")).
		WithArgs(s.SessionID, s.AccountID, s.TokenHash, s.IssuedAt, s.ExpiresAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.ReplaceSession(context.Background(), s))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceSession_RollsBackOnInsertFailure(t *testing.T) {
	repo, mock := newTestSessionRepo(t)
	s := testSession()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(s.AccountID))
	mock.ExpectExec(regexp.QuoteMeta("SET revoked = TRUE")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sessions")).
		WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	err := repo.ReplaceSession(context.Background(), s)

	assert.ErrorIs(t, err, ErrExecutingStatement)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceSession_Errors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "begin fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))
			},
			wantErr: ErrBeginningTransaction,
		},
		{
			name: "account missing",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WillReturnError(sql.ErrNoRows)
				mock.ExpectRollback()
			},
			wantErr: ErrAccountNotFound,
		},
		{
			name: "revoke fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
				mock.ExpectExec(regexp.QuoteMeta("SET revoked = TRUE")).WillReturnError(errors.New("boom"))
				mock.ExpectRollback()
			},
			wantErr: ErrExecutingStatement,
		},
		{
			name: "commit fails",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
				mock.ExpectExec(regexp.QuoteMeta("SET revoked = TRUE")).WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sessions")).WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit().WillReturnError(errors.New("serialization"))
			},
			wantErr: ErrCommitingTransaction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newTestSessionRepo(t)
			tt.setup(mock)

			err := repo.ReplaceSession(context.Background(), testSession())
			assert.ErrorIs(t, err, tt.wantErr)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestIsCurrent(t *testing.T) {
	for _, want := range []bool{true, false} {
		repo, mock := newTestSessionRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta("token_hash = $3")).
			WithArgs("sid-1", int64(7), "hash-r1", sessionNow).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(want))

		got, err := repo.IsCurrent(context.Background(), 7, "sid-1", "hash-r1", sessionNow)

		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	}
}

func TestIsActive(t *testing.T) {
	repo, mock := newTestSessionRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("expires_at > $3")).
		WithArgs("sid-1", int64(7), sessionNow).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	active, err := repo.IsActive(context.Background(), 7, "sid-1", sessionNow)

	require.NoError(t, err)
	assert.True(t, active)
}

func TestSessionChecks_DBError(t *testing.T) {
	repo, mock := newTestSessionRepo(t)
	mock.ExpectQuery("SELECT EXISTS").WillReturnError(errors.New("boom"))
	mock.ExpectQuery("SELECT EXISTS").WillReturnError(errors.New("boom"))

	_, err := repo.IsActive(context.Background(), 7, "sid-1", sessionNow)
	assert.ErrorIs(t, err, ErrExecutingQuery)

	_, err = repo.IsCurrent(context.Background(), 7, "sid-1", "h", sessionNow)
	assert.ErrorIs(t, err, ErrExecutingQuery)
}

func TestRotateSession(t *testing.T) {
	expires := sessionNow.Add(24 * time.Hour)

	tests := []struct {
		name     string
		affected int64
		wantErr  error
	}{
		{"swapped", 1, nil},
		{"lost the race", 0, ErrSessionNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newTestSessionRepo(t)
			mock.ExpectExec(regexp.QuoteMeta("SET token_hash = $3")).
				WithArgs("sid-1", "old", "new", expires, sessionNow).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			err := repo.RotateSession(context.Background(), "sid-1", "old", "new", expires, sessionNow)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRevokeSessions(t *testing.T) {
	repo, mock := newTestSessionRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("SET revoked = TRUE")).
		WithArgs(int64(7), sessionNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.RevokeSessions(context.Background(), 7, sessionNow))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokeSessions_DBError(t *testing.T) {
	repo, mock := newTestSessionRepo(t)
	mock.ExpectExec("UPDATE sessions").WillReturnError(errors.New("boom"))

	assert.ErrorIs(t, repo.RevokeSessions(context.Background(), 7, sessionNow), ErrExecutingStatement)
}

func TestPurgeSessions(t *testing.T) {
	cutoff := sessionNow.Add(-24 * time.Hour)

	repo, mock := newTestSessionRepo(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	purged, err := repo.PurgeSessions(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), purged)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPurgeSessions_DBError(t *testing.T) {
	repo, mock := newTestSessionRepo(t)
	mock.ExpectExec("DELETE FROM sessions").WillReturnError(errors.New("boom"))

	_, err := repo.PurgeSessions(context.Background(), sessionNow)
	assert.ErrorIs(t, err, ErrExecutingStatement)
}
