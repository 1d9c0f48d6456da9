package store

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/MKhiriev/go-clinic-auth/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStorages_WiresRepositoriesAndCloses(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	s := newStorages(&DB{DB: sqlDB, logger: logger.Nop()}, logger.Nop())

	assert.NotNil(t, s.AccountRepository)
	assert.NotNil(t, s.SessionRepository)
	assert.NotNil(t, s.AuditRepository)

	require.NoError(t, s.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorages_CloseWithoutDB(t *testing.T) {
	assert.NoError(t, (&Storages{}).Close())
}
