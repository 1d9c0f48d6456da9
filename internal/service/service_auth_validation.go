package service

import (
	"context"
	"strings"

	"github.com/MKhiriev/go-clinic-auth/internal/validators"
	"github.com/MKhiriev/go-clinic-auth/models"
)

// AuthValidationService rejects malformed requests with ErrInvalidInput
// before they reach the wrapped AuthGateway.
type AuthValidationService struct {
	inner     AuthGateway
	validator validators.Validator
}

func NewAuthValidationService() AuthGatewayWrapper {
	return &AuthValidationService{
		validator: validators.NewAuthValidator(),
	}
}

func (v *AuthValidationService) Login(ctx context.Context, request models.LoginRequest) (models.TokenPair, error) {
	if err := v.validator.Validate(ctx, request); err != nil {
		return models.TokenPair{}, newAuthError(KindInvalidInput, err)
	}

	request.Email = strings.TrimSpace(request.Email)
	return v.inner.Login(ctx, request)
}

func (v *AuthValidationService) Refresh(ctx context.Context, refreshToken string) (models.RefreshResult, error) {
	if err := v.validator.Validate(ctx, models.RefreshRequest{RefreshToken: refreshToken}); err != nil {
		return models.RefreshResult{}, newAuthError(KindInvalidInput, err)
	}

	return v.inner.Refresh(ctx, strings.TrimSpace(refreshToken))
}

func (v *AuthValidationService) Logout(ctx context.Context, principal models.Principal) error {
	if err := v.validator.Validate(ctx, principal); err != nil {
		return newAuthError(KindTokenInvalid, err)
	}

	return v.inner.Logout(ctx, principal)
}

// Authenticate has nothing to check ahead of token verification.
func (v *AuthValidationService) Authenticate(ctx context.Context, accessToken string) (models.Principal, error) {
	return v.inner.Authenticate(ctx, accessToken)
}

func (v *AuthValidationService) DeleteAccount(ctx context.Context, principal models.Principal) error {
	if err := v.validator.Validate(ctx, principal); err != nil {
		return newAuthError(KindTokenInvalid, err)
	}

	return v.inner.DeleteAccount(ctx, principal)
}

func (v *AuthValidationService) Wrap(wrapped AuthGateway) AuthGateway {
	v.inner = wrapped
	return v
}
