package http

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/MKhiriev/go-clinic-auth/internal/logger"
	"github.com/MKhiriev/go-clinic-auth/internal/service"
	"github.com/MKhiriev/go-clinic-auth/internal/utils"
	"github.com/MKhiriev/go-clinic-auth/models"
)

// statusFromKind maps every service.ErrorKind to an HTTP status and a coarse
// client-facing message. Messages never carry identifiers or causes.
func statusFromKind(kind service.ErrorKind) (int, string) {
	switch kind {
	case service.KindInvalidInput:
		return http.StatusBadRequest, "invalid request"
	case service.KindInvalidCredentials:
		return http.StatusUnauthorized, "invalid email or password"
	case service.KindAccountLocked:
		return http.StatusLocked, "account is temporarily locked"
	case service.KindAccountInactive:
		return http.StatusForbidden, "account is inactive"
	case service.KindAccountUnverified:
		return http.StatusForbidden, "account is not verified"
	case service.KindTokenInvalid:
		return http.StatusUnauthorized, "invalid token"
	case service.KindTokenExpired:
		return http.StatusUnauthorized, "token expired"
	case service.KindSessionTerminated:
		return http.StatusUnauthorized, "session terminated"
	case service.KindForbidden:
		return http.StatusForbidden, "access denied"
	case service.KindUnavailable:
		return http.StatusServiceUnavailable, "service temporarily unavailable"
	default:
		return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
	}
}

// writeError writes the JSON error body for err. Locked accounts get a
// Retry-After header in whole seconds.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromRequest(r)

	kind, ok := service.KindOf(err)
	if !ok {
		log.Err(err).Msg("unclassified error reached the http layer")
	}
	status, message := statusFromKind(kind)

	var authErr *service.AuthError
	if errors.As(err, &authErr) && kind == service.KindAccountLocked {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(authErr.RetryAt, time.Now())))
	}

	if status >= http.StatusInternalServerError {
		log.Err(err).Int("status", status).Msg("request failed")
	} else {
		log.Debug().Err(err).Int("status", status).Msg("request rejected")
	}

	utils.WriteJSON(w, models.ErrorResponse{Error: kind.String(), Message: message}, status)
}

func retryAfterSeconds(retryAt, now time.Time) int {
	seconds := int(math.Ceil(retryAt.Sub(now).Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}

// invalidInput tags a transport-level decoding failure with KindInvalidInput.
func invalidInput(cause error) error {
	return &service.AuthError{Kind: service.KindInvalidInput, Err: cause}
}
