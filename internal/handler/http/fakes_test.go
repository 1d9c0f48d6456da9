package http

import (
	"context"
	"net/http"
	"time"

	"github.com/MKhiriev/go-clinic-auth/internal/logger"
	"github.com/MKhiriev/go-clinic-auth/internal/service"
	"github.com/MKhiriev/go-clinic-auth/models"
)

type mockAuthGateway struct {
	LoginFunc         func(ctx context.Context, request models.LoginRequest) (models.TokenPair, error)
	RefreshFunc       func(ctx context.Context, refreshToken string) (models.RefreshResult, error)
	LogoutFunc        func(ctx context.Context, principal models.Principal) error
	AuthenticateFunc  func(ctx context.Context, accessToken string) (models.Principal, error)
	DeleteAccountFunc func(ctx context.Context, principal models.Principal) error
}

func (m *mockAuthGateway) Login(ctx context.Context, request models.LoginRequest) (models.TokenPair, error) {
	return m.LoginFunc(ctx, request)
}

func (m *mockAuthGateway) Refresh(ctx context.Context, refreshToken string) (models.RefreshResult, error) {
	return m.RefreshFunc(ctx, refreshToken)
}

func (m *mockAuthGateway) Logout(ctx context.Context, principal models.Principal) error {
	return m.LogoutFunc(ctx, principal)
}

func (m *mockAuthGateway) Authenticate(ctx context.Context, accessToken string) (models.Principal, error) {
	return m.AuthenticateFunc(ctx, accessToken)
}

func (m *mockAuthGateway) DeleteAccount(ctx context.Context, principal models.Principal) error {
	return m.DeleteAccountFunc(ctx, principal)
}

type mockAuditLedger struct {
	ListFunc   func(ctx context.Context, actor models.Principal, filter models.AuditFilter) ([]models.AuditEntry, error)
	VerifyFunc func(ctx context.Context, actor models.Principal) (models.ChainReport, error)
}

func (m *mockAuditLedger) Record(context.Context, models.AuditEntry) {}

func (m *mockAuditLedger) List(ctx context.Context, actor models.Principal, filter models.AuditFilter) ([]models.AuditEntry, error) {
	return m.ListFunc(ctx, actor, filter)
}

func (m *mockAuditLedger) Verify(ctx context.Context, actor models.Principal) (models.ChainReport, error) {
	return m.VerifyFunc(ctx, actor)
}

// tokenPrincipals maps bearer tokens to principals for fake authentication.
var tokenPrincipals = map[string]models.Principal{
	"admin-token":  {AccountID: 1, Email: "admin@clinic.example", Role: models.RoleAdmin, SessionID: "s-admin"},
	"doctor-token": {AccountID: 2, Email: "house@clinic.example", Role: models.RoleDoctor, SessionID: "s-doctor"},
}

// newAuthenticatingGateway returns a gateway whose Authenticate resolves the
// tokens in tokenPrincipals and rejects everything else as invalid.
func newAuthenticatingGateway() *mockAuthGateway {
	return &mockAuthGateway{
		AuthenticateFunc: func(_ context.Context, accessToken string) (models.Principal, error) {
			principal, ok := tokenPrincipals[accessToken]
			if !ok {
				return models.Principal{}, service.ErrTokenInvalid
			}
			return principal, nil
		},
	}
}

func newTestHandler(gateway service.AuthGateway, ledger service.AuditLedger) *Handler {
	return &Handler{
		services:  &service.Services{AuthGateway: gateway, AuditLedger: ledger},
		cookies:   cookieSettings{enabled: true, domain: "clinic.example", secure: true, maxAge: 7 * 24 * time.Hour},
		buildInfo: models.NewAppBuildInfo("1.2.3", "2026-10-01", "abc123"),
		logger:    logger.Nop(),
	}
}

// injectNopLogger puts a nop logger into the request context the same way
// withTraceID does.
func injectNopLogger(r *http.Request) *http.Request {
	nop := logger.Nop()
	return r.WithContext(nop.Logger.WithContext(r.Context()))
}
