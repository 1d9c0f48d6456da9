// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import "fmt"

// validate checks that the final merged [StructuredConfig] satisfies all
// application invariants before it is used at startup.
//
// Returns nil if the configuration is valid, or one of the ErrInvalid*
// sentinels (wrapped with detail) otherwise.
func (cfg *StructuredConfig) validate() error {
	app := cfg.App

	if app.AccessTokenSecret == "" || app.RefreshTokenSecret == "" {
		return fmt.Errorf("%w: both token secrets are required", ErrInvalidAppConfigs)
	}
	if app.AccessTokenSecret == app.RefreshTokenSecret {
		return ErrTokenSecretsMustDiffer
	}
	if app.TokenIssuer == "" {
		return fmt.Errorf("%w: token issuer is empty", ErrInvalidAppConfigs)
	}
	if app.AccessTokenTTL <= 0 || app.RefreshTokenTTL <= 0 {
		return fmt.Errorf("%w: token lifetimes must be positive", ErrInvalidAppConfigs)
	}
	if app.AccessTokenTTL >= app.RefreshTokenTTL {
		return fmt.Errorf("%w: access token must expire before the refresh token", ErrInvalidAppConfigs)
	}
	if app.LockoutThreshold < 1 || app.LockoutDuration <= 0 {
		return ErrInvalidLockoutConfigs
	}
	if !app.LockoutCheckPolicy.IsValid() || !app.SessionCheckPolicy.IsValid() {
		return ErrInvalidFailPolicy
	}
	if app.AuditWriteTimeout <= 0 {
		return fmt.Errorf("%w: audit write timeout must be positive", ErrInvalidAppConfigs)
	}
	if app.SessionPurgeInterval < 0 || app.SessionRetention < 0 {
		return fmt.Errorf("%w: session purge settings must not be negative", ErrInvalidAppConfigs)
	}

	if cfg.Storage.DB.DSN == "" {
		return ErrInvalidStorageConfigs
	}
	if cfg.Storage.DB.MaxConns < 1 || cfg.Storage.DB.MinConns < 0 || cfg.Storage.DB.MinConns > cfg.Storage.DB.MaxConns {
		return fmt.Errorf("%w: pool bounds are inconsistent", ErrInvalidStorageConfigs)
	}

	if cfg.Server.HTTPAddress == "" || cfg.Server.RequestTimeout <= 0 {
		return ErrInvalidServerConfigs
	}

	return nil
}
