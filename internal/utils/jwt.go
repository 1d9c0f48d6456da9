package utils

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MKhiriev/go-clinic-auth/models"
	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenExpired is returned for a well-formed, correctly signed token
	// whose "exp" claim lies in the past.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid covers every other verification failure: bad
	// signature, wrong algorithm, wrong issuer, wrong kind, missing claims.
	ErrTokenInvalid = errors.New("token invalid")
)

// JWTParams describes a token to be minted by GenerateJWTToken.
type JWTParams struct {
	Issuer    string
	AccountID int64
	Kind      models.TokenKind
	SessionID string
	// TokenID is the "jti" claim. Every minted token gets a fresh one so two
	// tokens issued within the same second never collide.
	TokenID string
	Email   string
	Role    string
	TTL     time.Duration
	SignKey string
	IssueAt time.Time
}

// GenerateJWTToken creates a signed HMAC-SHA256 JWT token with the given parameters.
//
// The token includes the following claims:
//   - Issuer    (iss): identifies the service that issued the token
//   - Subject   (sub): the account ID encoded as a string
//   - ID        (jti): unique token identifier
//   - IssuedAt  (iat): params.IssueAt
//   - ExpiresAt (exp): params.IssueAt plus params.TTL
//   - sid, kind, and for access tokens email and role
//
// Returns an error if the issuer, sign key, kind or session are empty, or if
// the TTL is not positive.
func GenerateJWTToken(params JWTParams) (models.Token, error) {
	if params.Issuer == "" || params.TTL <= 0 || params.SignKey == "" ||
		params.Kind == "" || params.SessionID == "" {
		return models.Token{}, errors.New("invalid params for generating JWT Token")
	}

	claims := models.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    params.Issuer,
			Subject:   strconv.FormatInt(params.AccountID, 10),
			ID:        params.TokenID,
			ExpiresAt: jwt.NewNumericDate(params.IssueAt.Add(params.TTL)),
			IssuedAt:  jwt.NewNumericDate(params.IssueAt),
		},
		Email:     params.Email,
		Role:      params.Role,
		SessionID: params.SessionID,
		Kind:      params.Kind,
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims).SignedString([]byte(params.SignKey))
	if err != nil {
		return models.Token{}, fmt.Errorf("error occurred during singing JWT token: %w", err)
	}

	return models.Token{
		SignedString: tokenString,
		Claims:       claims,
		AccountID:    params.AccountID,
		ExpiresAt:    claims.ExpiresAt.Time,
	}, nil
}

// ValidateAndParseJWTToken validates the given JWT token string and extracts its claims.
//
// Validation includes:
//   - Signature verification with HS256 only, using the provided sign key
//   - Issuer (iss) claim check against tokenIssuer
//   - Expiration (exp) claim presence and check against now
//   - kind claim check against the expected kind
//   - Subject (sub) claim conversion to the int64 AccountID and sid presence
//
// Expired tokens yield an error wrapping ErrTokenExpired; every other failure
// wraps ErrTokenInvalid.
func ValidateAndParseJWTToken(tokenString, tokenSignKey, tokenIssuer string, kind models.TokenKind, now time.Time) (models.Token, error) {
	claims := &models.Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return []byte(tokenSignKey), nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.Token{}, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return models.Token{}, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	if claims.Kind != kind {
		return models.Token{}, fmt.Errorf("%w: expected %s token, got %q", ErrTokenInvalid, kind, claims.Kind)
	}
	if claims.SessionID == "" {
		return models.Token{}, fmt.Errorf("%w: missing session claim", ErrTokenInvalid)
	}

	accountID, err := claims.GetAccountID()
	if err != nil {
		return models.Token{}, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	return models.Token{
		SignedString: tokenString,
		Claims:       *claims,
		AccountID:    accountID,
		ExpiresAt:    claims.ExpiresAt.Time,
	}, nil
}

// ParseBearerToken extracts the credential from an "Authorization: Bearer <token>"
// header value. The scheme is matched case-insensitively.
func ParseBearerToken(authorizationHeader string) (string, error) {
	parts := strings.Fields(authorizationHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header")
	}
	return parts[1], nil
}
