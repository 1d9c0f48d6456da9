// Package utils provides general-purpose helper utilities
// used across different parts of the service.
// Includes tools for working with context, type-safe keys, hashing,
// HTTP response writing, JWT token generation and validation, and
// identifier generation.
package utils

import (
	"context"

	"github.com/MKhiriev/go-clinic-auth/models"
)

// contextKey is a private type for context keys.
// Using a dedicated type instead of a plain string prevents key collisions
// with other packages that may use string-based keys in the context.
type contextKey string

// String returns the string representation of the context key.
// Implements the fmt.Stringer interface.
func (c contextKey) String() string {
	return string(c)
}

var (
	// PrincipalCtxKey stores the authenticated models.Principal.
	PrincipalCtxKey = contextKey("principal")
	// RequestMetaCtxKey stores the models.RequestMeta of the inbound request.
	RequestMetaCtxKey = contextKey("requestMeta")
)

// WithPrincipal returns a copy of ctx carrying the principal.
func WithPrincipal(ctx context.Context, principal models.Principal) context.Context {
	return context.WithValue(ctx, PrincipalCtxKey, principal)
}

// GetPrincipalFromContext retrieves the authenticated principal from the context.
//
// Returns ok == false when the request never passed the authentication gate.
//
// Example usage:
//
//	principal, ok := utils.GetPrincipalFromContext(ctx)
//	if !ok {
//	    // handle unauthenticated request
//	}
func GetPrincipalFromContext(ctx context.Context) (models.Principal, bool) {
	principal, ok := ctx.Value(PrincipalCtxKey).(models.Principal)
	return principal, ok
}

// WithRequestMeta returns a copy of ctx carrying the request metadata.
func WithRequestMeta(ctx context.Context, meta models.RequestMeta) context.Context {
	return context.WithValue(ctx, RequestMetaCtxKey, meta)
}

// GetRequestMetaFromContext returns the request metadata, or the zero value
// when none was attached.
func GetRequestMetaFromContext(ctx context.Context) models.RequestMeta {
	meta, _ := ctx.Value(RequestMetaCtxKey).(models.RequestMeta)
	return meta
}
