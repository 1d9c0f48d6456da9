package config

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *StructuredConfig {
	return &StructuredConfig{
		App: App{
			AccessTokenSecret:  "access",
			RefreshTokenSecret: "refresh",
			TokenIssuer:        "clinic",
			AccessTokenTTL:     15 * time.Minute,
			RefreshTokenTTL:    7 * 24 * time.Hour,
			LockoutThreshold:   10,
			LockoutDuration:    30 * time.Minute,
			LockoutCheckPolicy: FailClosed,
			SessionCheckPolicy: FailOpen,
			AuditWriteTimeout:  2 * time.Second,
		},
		Storage: Storage{DB: DB{DSN: "postgres://localhost/clinic", MaxConns: 10, MinConns: 2}},
		Server:  Server{HTTPAddress: "0.0.0.0:8080", RequestTimeout: 30 * time.Second},
	}
}

func writeTempJSONConfig(t *testing.T, payload StructuredJSONConfig) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "config-*.json")
	require.NoError(t, err)
	require.NoError(t, json.NewEncoder(f).Encode(payload))
	require.NoError(t, f.Close())
	return f.Name()
}

// ── build ─────────────────────────────────────────────────────────────────────

func TestBuild_ReturnsError_WhenBuilderHasError(t *testing.T) {
	b := newConfigBuilder()
	b.err = assert.AnError

	cfg, err := b.build()
	assert.Nil(t, cfg)
	assert.ErrorIs(t, err, assert.AnError)
}

// TestBuild_LaterSourceOverrides verifies that non-zero fields of later
// sources win over earlier ones while zero fields keep the earlier value.
func TestBuild_LaterSourceOverrides(t *testing.T) {
	b := newConfigBuilder()
	b.configs = append(b.configs,
		validConfig(),
		&StructuredConfig{App: App{TokenIssuer: "flags-issuer", LockoutThreshold: 3}},
	)

	cfg, err := b.build()
	require.NoError(t, err)
	assert.Equal(t, "flags-issuer", cfg.App.TokenIssuer)
	assert.Equal(t, 3, cfg.App.LockoutThreshold)
	assert.Equal(t, "access", cfg.App.AccessTokenSecret)
	assert.Equal(t, 30*time.Minute, cfg.App.LockoutDuration)
}

func TestBuild_ValidationFailure(t *testing.T) {
	b := newConfigBuilder()
	b.configs = append(b.configs, &StructuredConfig{})

	_, err := b.build()
	assert.ErrorIs(t, err, ErrInvalidAppConfigs)
}

// ── validate ──────────────────────────────────────────────────────────────────

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *StructuredConfig)
		wantErr error
	}{
		{name: "valid", mutate: func(*StructuredConfig) {}},
		{
			name:    "missing refresh secret",
			mutate:  func(cfg *StructuredConfig) { cfg.App.RefreshTokenSecret = "" },
			wantErr: ErrInvalidAppConfigs,
		},
		{
			name:    "equal secrets",
			mutate:  func(cfg *StructuredConfig) { cfg.App.RefreshTokenSecret = cfg.App.AccessTokenSecret },
			wantErr: ErrTokenSecretsMustDiffer,
		},
		{
			name:    "access outlives refresh",
			mutate:  func(cfg *StructuredConfig) { cfg.App.AccessTokenTTL = 8 * 24 * time.Hour },
			wantErr: ErrInvalidAppConfigs,
		},
		{
			name:    "zero threshold",
			mutate:  func(cfg *StructuredConfig) { cfg.App.LockoutThreshold = 0 },
			wantErr: ErrInvalidLockoutConfigs,
		},
		{
			name:    "unknown policy",
			mutate:  func(cfg *StructuredConfig) { cfg.App.SessionCheckPolicy = "sometimes" },
			wantErr: ErrInvalidFailPolicy,
		},
		{
			name:    "negative retention",
			mutate:  func(cfg *StructuredConfig) { cfg.App.SessionRetention = -time.Hour },
			wantErr: ErrInvalidAppConfigs,
		},
		{
			name:    "empty dsn",
			mutate:  func(cfg *StructuredConfig) { cfg.Storage.DB.DSN = "" },
			wantErr: ErrInvalidStorageConfigs,
		},
		{
			name:    "min conns above max",
			mutate:  func(cfg *StructuredConfig) { cfg.Storage.DB.MinConns = 20 },
			wantErr: ErrInvalidStorageConfigs,
		},
		{
			name:    "no address",
			mutate:  func(cfg *StructuredConfig) { cfg.Server.HTTPAddress = "" },
			wantErr: ErrInvalidServerConfigs,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// ── sources ───────────────────────────────────────────────────────────────────

func TestWithEnv_ReadsEnvVars(t *testing.T) {
	t.Setenv("APP_TOKEN_ISSUER", "env-issuer")

	b := newConfigBuilder()
	assert.Same(t, b, b.withEnv())

	require.Len(t, b.configs, 1)
	assert.Equal(t, "env-issuer", b.configs[0].App.TokenIssuer)
	assert.NoError(t, b.err)
}

func TestWithFlags_SetsError_OnBadFlag(t *testing.T) {
	b := newConfigBuilder()
	b.withFlags([]string{"-nope"})

	assert.Error(t, b.err)
	assert.Empty(t, b.configs)
}

func TestWithJSON_NoOp_WhenNoPathSet(t *testing.T) {
	b := newConfigBuilder()
	b.configs = append(b.configs, &StructuredConfig{})
	b.withJSON()

	assert.Len(t, b.configs, 1)
	assert.NoError(t, b.err)
}

func TestWithJSON_AppendsConfig_WhenValidFile(t *testing.T) {
	payload := StructuredJSONConfig{}
	payload.App.TokenIssuer = "json-issuer"
	payload.App.LockoutCheckPolicy = FailOpen
	payload.App.SessionCheckPolicy = FailOpen
	path := writeTempJSONConfig(t, payload)

	b := newConfigBuilder()
	b.configs = append(b.configs, &StructuredConfig{JSONFilePath: path})
	b.withJSON()

	require.NoError(t, b.err)
	require.Len(t, b.configs, 2)
	assert.Equal(t, "json-issuer", b.configs[1].App.TokenIssuer)
}

func TestWithJSON_SetsError_WhenFileNotFound(t *testing.T) {
	b := newConfigBuilder()
	b.configs = append(b.configs, &StructuredConfig{JSONFilePath: "/nonexistent/config.json"})
	b.withJSON()

	assert.Error(t, b.err)
}

func TestGetStructuredConfig_EnvFlagsJSON(t *testing.T) {
	payload := StructuredJSONConfig{}
	payload.App.LockoutCheckPolicy = FailOpen
	payload.App.SessionCheckPolicy = FailClosed
	payload.App.LockoutThreshold = 7
	path := writeTempJSONConfig(t, payload)

	t.Setenv("APP_ACCESS_TOKEN_SECRET", "env-access")
	t.Setenv("APP_REFRESH_TOKEN_SECRET", "env-refresh")
	t.Setenv("STORAGE_DB_DATABASE_URI", "postgres://env/clinic")
	t.Setenv("APP_LOCKOUT_THRESHOLD", "4")

	cfg, err := GetStructuredConfig([]string{"-token-issuer", "flag-issuer", "-c", path})
	require.NoError(t, err)

	assert.Equal(t, "env-access", cfg.App.AccessTokenSecret)
	assert.Equal(t, "flag-issuer", cfg.App.TokenIssuer)
	assert.Equal(t, 7, cfg.App.LockoutThreshold)
	assert.Equal(t, FailOpen, cfg.App.LockoutCheckPolicy)
	assert.Equal(t, FailClosed, cfg.App.SessionCheckPolicy)
	assert.Equal(t, 7*24*time.Hour, cfg.App.RefreshTokenTTL)
}
