package service

import (
	"github.com/MKhiriev/go-clinic-auth/internal/config"
	"github.com/MKhiriev/go-clinic-auth/internal/logger"
	"github.com/MKhiriev/go-clinic-auth/internal/store"
	"github.com/MKhiriev/go-clinic-auth/internal/utils"
)

type Services struct {
	AuthGateway  AuthGateway
	AuditLedger  AuditLedger
	TokenService TokenService
	LockoutGuard LockoutGuard
}

func NewServices(storages *store.Storages, cfg config.App, logger *logger.Logger) *Services {
	ids := utils.NewUUIDGenerator()

	tokens := NewTokenService(cfg, ids)
	lockout := NewLockoutGuard(storages.AccountRepository, cfg, logger)
	ledger := NewAuditLedger(storages.AuditRepository, cfg, logger)
	gateway := NewAuthGateway(tokens, lockout, ledger, storages.AccountRepository, storages.SessionRepository, ids, cfg, logger)

	return &Services{
		AuthGateway:  NewAuthValidationService().Wrap(gateway),
		AuditLedger:  ledger,
		TokenService: tokens,
		LockoutGuard: lockout,
	}
}
