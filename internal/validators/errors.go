package validators

import "errors"

var (
	ErrUnsupportedType = errors.New("unsupported type for validation")
	ErrUnknownField    = errors.New("unknown field for validation")

	ErrEmptyEmail        = errors.New("email is required")
	ErrInvalidEmail      = errors.New("invalid email")
	ErrEmptyPassword     = errors.New("password is required")
	ErrPasswordTooLong   = errors.New("password exceeds 72 bytes")
	ErrEmptyRefreshToken = errors.New("refresh token is required")
	ErrInvalidAccountID  = errors.New("invalid account ID")
	ErrEmptySessionID    = errors.New("session ID is required")
	ErrInvalidStatus     = errors.New("invalid audit status")
	ErrInvalidLimit      = errors.New("invalid limit")
	ErrInvalidCursor     = errors.New("invalid before_id cursor")
)
