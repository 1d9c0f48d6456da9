package http

import (
	"net/http"

	"github.com/MKhiriev/go-clinic-auth/internal/logger"
	"github.com/MKhiriev/go-clinic-auth/internal/service"
	"github.com/MKhiriev/go-clinic-auth/internal/utils"
)

// auth is an HTTP middleware that enforces bearer-token authentication.
//
// It extracts the access token from the "Authorization" header and passes it
// to [service.AuthGateway.Authenticate], which verifies the token and checks
// that the session it was issued for is still live. On success the
// resulting principal is stored in the request context (see
// [utils.WithPrincipal]) before delegating to the next handler.
//
// A missing or malformed header is answered like an invalid token; every
// other rejection is rendered by writeError from the gateway's error kind.
func (h *Handler) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromRequest(r)

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			log.Debug().Err(ErrEmptyAuthorizationHeader).Send()
			writeError(w, r, &service.AuthError{Kind: service.KindTokenInvalid, Err: ErrEmptyAuthorizationHeader})
			return
		}

		tokenString, err := utils.ParseBearerToken(authHeader)
		if err != nil {
			log.Debug().Err(err).Send()
			writeError(w, r, &service.AuthError{Kind: service.KindTokenInvalid, Err: ErrInvalidAuthorizationHeader})
			return
		}

		ctx := r.Context()
		principal, err := h.services.AuthGateway.Authenticate(ctx, tokenString)
		if err != nil {
			writeError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(utils.WithPrincipal(ctx, principal)))
	})
}

// requireRole admits only principals whose role is one of roles. It must be
// mounted behind auth.
func requireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := utils.GetPrincipalFromContext(r.Context())
			if !ok {
				writeError(w, r, &service.AuthError{Kind: service.KindTokenInvalid, Err: ErrNoPrincipal})
				return
			}

			for _, role := range roles {
				if principal.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			logger.FromRequest(r).Warn().
				Int64("account_id", principal.AccountID).
				Str("role", principal.Role).
				Msg("role not allowed for route")
			writeError(w, r, service.ErrForbidden)
		})
	}
}
