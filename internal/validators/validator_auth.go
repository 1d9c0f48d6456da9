package validators

import (
	"context"
	"net/mail"
	"strings"

	"github.com/MKhiriev/go-clinic-auth/models"
)

const (
	FieldEmail        = "email"
	FieldPassword     = "password"
	FieldRefreshToken = "refresh_token"
	FieldAccountID    = "account_id"
	FieldSessionID    = "session_id"
	FieldStatus       = "status"
	FieldLimit        = "limit"
	FieldBeforeID     = "before_id"
)

const (
	// maxEmailLength is the longest address allowed by RFC 5321.
	maxEmailLength = 254
	// maxPasswordBytes is the input limit of bcrypt.
	maxPasswordBytes = 72
	// MaxAuditLimit is the largest page an audit listing may request.
	MaxAuditLimit = 500
)

var allowedAuditStatuses = []models.AuditStatus{
	models.AuditStatusSuccess,
	models.AuditStatusFailure,
	models.AuditStatusBlocked,
}

type AuthValidator struct {
}

func NewAuthValidator() Validator {
	return &AuthValidator{}
}

func (v *AuthValidator) Validate(ctx context.Context, obj any, fields ...string) error {
	switch value := obj.(type) {
	case models.LoginRequest:
		return v.validateLoginRequest(ctx, value, fields...)
	case *models.LoginRequest:
		return v.validateLoginRequest(ctx, *value, fields...)

	case models.RefreshRequest:
		return v.validateRefreshRequest(ctx, value, fields...)
	case *models.RefreshRequest:
		return v.validateRefreshRequest(ctx, *value, fields...)

	case models.Principal:
		return v.validatePrincipal(ctx, value, fields...)
	case *models.Principal:
		return v.validatePrincipal(ctx, *value, fields...)

	case models.AuditFilter:
		return v.validateAuditFilter(ctx, value, fields...)
	case *models.AuditFilter:
		return v.validateAuditFilter(ctx, *value, fields...)

	default:
		return ErrUnsupportedType
	}
}

func (v *AuthValidator) validateLoginRequest(ctx context.Context, request models.LoginRequest, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldEmail, FieldPassword}
	}

	for _, f := range fields {
		switch f {
		case FieldEmail:
			email := strings.TrimSpace(request.Email)
			if email == "" {
				return ErrEmptyEmail
			}
			if len(email) > maxEmailLength {
				return ErrInvalidEmail
			}
			// a bare address only: no display name, comments or angle brackets
			if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
				return ErrInvalidEmail
			}
		case FieldPassword:
			if request.Password == "" {
				return ErrEmptyPassword
			}
			if len(request.Password) > maxPasswordBytes {
				return ErrPasswordTooLong
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}

func (v *AuthValidator) validateRefreshRequest(ctx context.Context, request models.RefreshRequest, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldRefreshToken}
	}

	for _, f := range fields {
		switch f {
		case FieldRefreshToken:
			if strings.TrimSpace(request.RefreshToken) == "" {
				return ErrEmptyRefreshToken
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}

func (v *AuthValidator) validatePrincipal(ctx context.Context, principal models.Principal, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldAccountID, FieldSessionID}
	}

	for _, f := range fields {
		switch f {
		case FieldAccountID:
			if principal.AccountID <= 0 {
				return ErrInvalidAccountID
			}
		case FieldSessionID:
			if principal.SessionID == "" {
				return ErrEmptySessionID
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}

func (v *AuthValidator) validateAuditFilter(ctx context.Context, filter models.AuditFilter, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldStatus, FieldLimit, FieldBeforeID}
	}

	for _, f := range fields {
		switch f {
		case FieldStatus:
			if filter.Status != "" && !isValidAuditStatus(filter.Status) {
				return ErrInvalidStatus
			}
		case FieldLimit:
			if filter.Limit > MaxAuditLimit {
				return ErrInvalidLimit
			}
		case FieldBeforeID:
			if filter.BeforeID < 0 {
				return ErrInvalidCursor
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}

func isValidAuditStatus(status models.AuditStatus) bool {
	for _, s := range allowedAuditStatuses {
		if status == s {
			return true
		}
	}
	return false
}
