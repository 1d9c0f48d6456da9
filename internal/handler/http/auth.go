package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/MKhiriev/go-clinic-auth/internal/logger"
	"github.com/MKhiriev/go-clinic-auth/internal/service"
	"github.com/MKhiriev/go-clinic-auth/internal/utils"
	"github.com/MKhiriev/go-clinic-auth/models"
)

const (
	refreshCookieName = "refresh_token"
	tokenTypeBearer   = "Bearer"

	// maxAuthBodyBytes caps login and refresh request bodies.
	maxAuthBodyBytes = 16 << 10
)

type cookieSettings struct {
	enabled bool
	domain  string
	secure  bool
	maxAge  time.Duration
}

func (c cookieSettings) refreshCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     refreshCookieName,
		Value:    value,
		Path:     "/",
		Domain:   c.domain,
		MaxAge:   maxAge,
		Secure:   c.secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, token models.Token) {
	if !h.cookies.enabled {
		return
	}
	http.SetCookie(w, h.cookies.refreshCookie(token.SignedString, int(h.cookies.maxAge.Seconds())))
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter) {
	if !h.cookies.enabled {
		return
	}
	http.SetCookie(w, h.cookies.refreshCookie("", -1))
}

func decodeJSON(r *http.Request, dst any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxAuthBodyBytes)).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		return invalidInput(errors.Join(ErrInvalidJSON, err))
	}
	return nil
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	var request models.LoginRequest
	if err := decodeJSON(r, &request); err != nil {
		log.Debug().Err(err).Msg("invalid login body")
		writeError(w, r, err)
		return
	}

	pair, err := h.services.AuthGateway.Login(ctx, request)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.setRefreshCookie(w, pair.Refresh)
	utils.WriteJSON(w, models.LoginResponse{
		AccessToken:      pair.Access.SignedString,
		RefreshToken:     pair.Refresh.SignedString,
		TokenType:        tokenTypeBearer,
		AccessExpiresAt:  pair.Access.ExpiresAt,
		RefreshExpiresAt: pair.Refresh.ExpiresAt,
	}, http.StatusOK)
}

// refresh reads the refresh token from the JSON body and falls back to the
// refresh cookie when the body carries none.
func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	var request models.RefreshRequest
	if err := decodeJSON(r, &request); err != nil {
		log.Debug().Err(err).Msg("invalid refresh body")
		writeError(w, r, err)
		return
	}

	if request.RefreshToken == "" {
		if cookie, err := r.Cookie(refreshCookieName); err == nil {
			request.RefreshToken = cookie.Value
		}
	}

	result, err := h.services.AuthGateway.Refresh(ctx, request.RefreshToken)
	if err != nil {
		if kind, _ := service.KindOf(err); kind == service.KindSessionTerminated || kind == service.KindTokenExpired {
			h.clearRefreshCookie(w)
		}
		writeError(w, r, err)
		return
	}

	response := models.RefreshResponse{
		AccessToken:     result.Access.SignedString,
		TokenType:       tokenTypeBearer,
		AccessExpiresAt: result.Access.ExpiresAt,
	}
	if result.Refresh != nil {
		h.setRefreshCookie(w, *result.Refresh)
		response.RefreshToken = result.Refresh.SignedString
		response.RefreshExpiresAt = &result.Refresh.ExpiresAt
	}

	utils.WriteJSON(w, response, http.StatusOK)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	principal, ok := utils.GetPrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, &service.AuthError{Kind: service.KindTokenInvalid, Err: ErrNoPrincipal})
		return
	}

	if err := h.services.AuthGateway.Logout(r.Context(), principal); err != nil {
		writeError(w, r, err)
		return
	}

	h.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) {
	principal, ok := utils.GetPrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, &service.AuthError{Kind: service.KindTokenInvalid, Err: ErrNoPrincipal})
		return
	}

	utils.WriteJSON(w, principal, http.StatusOK)
}

func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	principal, ok := utils.GetPrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, &service.AuthError{Kind: service.KindTokenInvalid, Err: ErrNoPrincipal})
		return
	}

	if err := h.services.AuthGateway.DeleteAccount(r.Context(), principal); err != nil {
		writeError(w, r, err)
		return
	}

	h.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
