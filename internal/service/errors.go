package service

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind is the closed set of outcomes the authentication core reports
// to its callers. Transport layers switch over it exhaustively.
type ErrorKind int

const (
	KindInvalidInput ErrorKind = iota + 1
	KindInvalidCredentials
	KindAccountLocked
	KindAccountInactive
	KindAccountUnverified
	KindTokenInvalid
	KindTokenExpired
	KindSessionTerminated
	KindForbidden
	KindUnavailable
)

// Kinds lists every ErrorKind in declaration order.
func Kinds() []ErrorKind {
	return []ErrorKind{
		KindInvalidInput,
		KindInvalidCredentials,
		KindAccountLocked,
		KindAccountInactive,
		KindAccountUnverified,
		KindTokenInvalid,
		KindTokenExpired,
		KindSessionTerminated,
		KindForbidden,
		KindUnavailable,
	}
}

// String returns the stable machine-readable code of the kind, used as the
// "error" field of HTTP error bodies and as the audit error_code.
func (k ErrorKind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindAccountLocked:
		return "account_locked"
	case KindAccountInactive:
		return "account_inactive"
	case KindAccountUnverified:
		return "account_unverified"
	case KindTokenInvalid:
		return "token_invalid"
	case KindTokenExpired:
		return "token_expired"
	case KindSessionTerminated:
		return "session_terminated"
	case KindForbidden:
		return "forbidden"
	case KindUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("error_kind_%d", int(k))
	}
}

// AuthError is the error type returned by the authentication core.
// errors.Is matches it against the sentinel values below by Kind only, so
// callers may test errors.Is(err, ErrAccountLocked) regardless of RetryAt or
// the wrapped cause.
type AuthError struct {
	Kind ErrorKind
	// RetryAt is set for KindAccountLocked.
	RetryAt time.Time
	// Err is the internal cause. It is logged, never shown to clients.
	Err error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Kind == e.Kind
}

var (
	ErrInvalidInput       = &AuthError{Kind: KindInvalidInput}
	ErrInvalidCredentials = &AuthError{Kind: KindInvalidCredentials}
	ErrAccountLocked      = &AuthError{Kind: KindAccountLocked}
	ErrAccountInactive    = &AuthError{Kind: KindAccountInactive}
	ErrAccountUnverified  = &AuthError{Kind: KindAccountUnverified}
	ErrTokenInvalid       = &AuthError{Kind: KindTokenInvalid}
	ErrTokenExpired       = &AuthError{Kind: KindTokenExpired}
	ErrSessionTerminated  = &AuthError{Kind: KindSessionTerminated}
	ErrForbidden          = &AuthError{Kind: KindForbidden}
	ErrUnavailable        = &AuthError{Kind: KindUnavailable}
)

func newAuthError(kind ErrorKind, cause error) *AuthError {
	return &AuthError{Kind: kind, Err: cause}
}

func accountLockedUntil(retryAt time.Time) *AuthError {
	return &AuthError{Kind: KindAccountLocked, RetryAt: retryAt}
}

// KindOf extracts the ErrorKind of err. Errors that are not an *AuthError
// report KindUnavailable and ok == false.
func KindOf(err error) (ErrorKind, bool) {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Kind, true
	}
	return KindUnavailable, false
}

// ErrLockoutStateUnreadable wraps storage errors raised while evaluating the
// lockout state. The login flow resolves it through the lockout check policy.
var ErrLockoutStateUnreadable = errors.New("lockout state could not be read")
