package http

import (
	"time"

	"github.com/MKhiriev/go-clinic-auth/internal/config"
	"github.com/MKhiriev/go-clinic-auth/internal/logger"
	"github.com/MKhiriev/go-clinic-auth/internal/service"
	"github.com/MKhiriev/go-clinic-auth/models"
)

type Handler struct {
	services *service.Services

	// cookies configures delivery of the refresh token as a cookie.
	cookies cookieSettings

	// requestTimeout bounds every request through chi's Timeout middleware.
	requestTimeout time.Duration

	buildInfo models.AppBuildInfo

	logger *logger.Logger
}

func NewHandler(services *service.Services, cfg config.StructuredConfig, buildInfo models.AppBuildInfo, logger *logger.Logger) *Handler {
	logger.Info().Msg("http handler created")
	return &Handler{
		services: services,
		cookies: cookieSettings{
			enabled: cfg.App.RefreshCookieEnabled,
			domain:  cfg.App.CookieDomain,
			secure:  !cfg.App.IsDevelopment(),
			maxAge:  cfg.App.RefreshTokenTTL,
		},
		requestTimeout: cfg.Server.RequestTimeout,
		buildInfo:      buildInfo,
		logger:         logger,
	}
}
