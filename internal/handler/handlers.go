package handler

import (
	"github.com/MKhiriev/go-clinic-auth/internal/config"
	"github.com/MKhiriev/go-clinic-auth/internal/handler/http"
	"github.com/MKhiriev/go-clinic-auth/internal/logger"
	"github.com/MKhiriev/go-clinic-auth/internal/service"
	"github.com/MKhiriev/go-clinic-auth/models"
)

type Handlers struct {
	HTTP *http.Handler
}

func NewHandlers(services *service.Services, cfg config.StructuredConfig, buildInfo models.AppBuildInfo, logger *logger.Logger) (*Handlers, error) {
	logger.Info().Msg("creating new handlers...")

	if cfg.Server.HTTPAddress == "" {
		return nil, errNoHandlersAreCreated
	}

	return &Handlers{HTTP: http.NewHandler(services, cfg, buildInfo, logger)}, nil
}
