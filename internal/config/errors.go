package config

import "errors"

// Validation errors returned by [StructuredConfig.validate] when required
// configuration groups are incomplete or invalid.
var (
	// ErrInvalidAppConfigs indicates invalid authentication settings
	// (for example, a missing token secret or a non-positive lifetime).
	ErrInvalidAppConfigs = errors.New("invalid app configuration")
	// ErrTokenSecretsMustDiffer indicates that the access and refresh token
	// secrets are equal.
	ErrTokenSecretsMustDiffer = errors.New("access and refresh token secrets must differ")
	// ErrInvalidLockoutConfigs indicates a lockout threshold below one or a
	// non-positive lockout duration.
	ErrInvalidLockoutConfigs = errors.New("invalid lockout configuration")
	// ErrInvalidFailPolicy indicates an unknown fail policy value.
	ErrInvalidFailPolicy = errors.New("invalid fail policy")
	// ErrInvalidStorageConfigs indicates invalid storage settings
	// (for example, an empty DSN).
	ErrInvalidStorageConfigs = errors.New("invalid storage configuration")
	// ErrInvalidServerConfigs indicates invalid HTTP server settings.
	ErrInvalidServerConfigs = errors.New("invalid server configuration")
)
