package service

import (
	"errors"
	"time"

	"github.com/MKhiriev/go-clinic-auth/internal/config"
	"github.com/MKhiriev/go-clinic-auth/internal/utils"
	"github.com/MKhiriev/go-clinic-auth/models"
)

// tokenService is the concrete implementation of TokenService.
// Access and refresh tokens are HS256 JWTs signed with distinct secrets and
// tagged with a "kind" claim, so one kind never verifies as the other.
type tokenService struct {
	// issuer is the "iss" claim embedded in and required from every token.
	issuer string

	accessSecret  string
	refreshSecret string

	accessTTL  time.Duration
	refreshTTL time.Duration

	// ids generates the "jti" of every token.
	ids IDGenerator

	now func() time.Time
}

// NewTokenService constructs a TokenService from the token settings in cfg.
// The returned service is safe for concurrent use; all state is read-only
// after construction.
func NewTokenService(cfg config.App, ids IDGenerator) TokenService {
	return &tokenService{
		issuer:        cfg.TokenIssuer,
		accessSecret:  cfg.AccessTokenSecret,
		refreshSecret: cfg.RefreshTokenSecret,
		accessTTL:     cfg.AccessTokenTTL,
		refreshTTL:    cfg.RefreshTokenTTL,
		ids:           ids,
		now:           time.Now,
	}
}

// IssueAccessToken mints a short-lived access token carrying the account's
// id, email and role and the session it belongs to.
func (t *tokenService) IssueAccessToken(account models.Account, sessionID string) (models.Token, error) {
	token, err := utils.GenerateJWTToken(utils.JWTParams{
		Issuer:    t.issuer,
		AccountID: account.AccountID,
		Kind:      models.TokenKindAccess,
		SessionID: sessionID,
		TokenID:   t.ids.Generate(),
		Email:     account.Email,
		Role:      account.Role,
		TTL:       t.accessTTL,
		SignKey:   t.accessSecret,
		IssueAt:   t.now(),
	})
	if err != nil {
		return models.Token{}, newAuthError(KindUnavailable, err)
	}

	return token, nil
}

// IssueRefreshToken mints a long-lived refresh token carrying only the
// account id and the session.
func (t *tokenService) IssueRefreshToken(account models.Account, sessionID string) (models.Token, error) {
	token, err := utils.GenerateJWTToken(utils.JWTParams{
		Issuer:    t.issuer,
		AccountID: account.AccountID,
		Kind:      models.TokenKindRefresh,
		SessionID: sessionID,
		TokenID:   t.ids.Generate(),
		TTL:       t.refreshTTL,
		SignKey:   t.refreshSecret,
		IssueAt:   t.now(),
	})
	if err != nil {
		return models.Token{}, newAuthError(KindUnavailable, err)
	}

	return token, nil
}

func (t *tokenService) IssuePair(account models.Account, sessionID string) (models.TokenPair, error) {
	access, err := t.IssueAccessToken(account, sessionID)
	if err != nil {
		return models.TokenPair{}, err
	}

	refresh, err := t.IssueRefreshToken(account, sessionID)
	if err != nil {
		return models.TokenPair{}, err
	}

	return models.TokenPair{Access: access, Refresh: refresh}, nil
}

func (t *tokenService) VerifyAccess(tokenString string) (models.Token, error) {
	return t.verify(tokenString, t.accessSecret, models.TokenKindAccess)
}

func (t *tokenService) VerifyRefresh(tokenString string) (models.Token, error) {
	return t.verify(tokenString, t.refreshSecret, models.TokenKindRefresh)
}

func (t *tokenService) verify(tokenString, secret string, kind models.TokenKind) (models.Token, error) {
	if tokenString == "" {
		return models.Token{}, newAuthError(KindTokenInvalid, errors.New("empty token"))
	}

	token, err := utils.ValidateAndParseJWTToken(tokenString, secret, t.issuer, kind, t.now())
	if err != nil {
		if errors.Is(err, utils.ErrTokenExpired) {
			return models.Token{}, newAuthError(KindTokenExpired, err)
		}
		return models.Token{}, newAuthError(KindTokenInvalid, err)
	}

	return token, nil
}
