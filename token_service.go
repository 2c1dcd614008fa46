package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	logger     Logger
}

// NewTokenService creates a new TokenService instance. A missing or
// empty signing key is a startup failure, not a per-request one.
func NewTokenService(cfg Config, logger Logger) (*TokenServiceImpl, error) {
	if cfg.GetSigningKey() == "" {
		return nil, errors.New("missing token signing key", errors.CategoryInternal)
	}
	if logger == nil {
		logger = defLogger{}
	}

	accessTTL := cfg.GetAccessTokenTTL()
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	refreshTTL := cfg.GetRefreshTokenTTL()
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}

	return &TokenServiceImpl{
		signingKey: []byte(cfg.GetSigningKey()),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		issuer:     cfg.GetIssuer(),
		audience:   jwt.ClaimStrings(cfg.GetAudience()),
		logger:     logger,
	}, nil
}

// Issue signs a short-lived access token and a long-lived refresh token
// from the same claim snapshot.
func (ts *TokenServiceImpl) Issue(identity TokenIdentity) (*TokenPair, error) {
	access, err := ts.sign(identity, ts.accessTTL)
	if err != nil {
		return nil, err
	}

	refresh, err := ts.sign(identity, ts.refreshTTL)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

// AccessTTL returns the configured access token lifetime
func (ts *TokenServiceImpl) AccessTTL() time.Duration {
	return ts.accessTTL
}

// RefreshTTL returns the configured refresh token lifetime
func (ts *TokenServiceImpl) RefreshTTL() time.Duration {
	return ts.refreshTTL
}

func (ts *TokenServiceImpl) sign(identity TokenIdentity, ttl time.Duration) (string, error) {
	now := time.Now()

	var aud jwt.ClaimStrings
	if len(ts.audience) > 0 {
		aud = make(jwt.ClaimStrings, len(ts.audience))
		copy(aud, ts.audience)
	}

	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   identity.UserID,
			Audience:  aud,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		UID:   identity.UserID,
		Email: identity.Email,
		Roles: append([]string(nil), identity.Roles...),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signed, nil
}

// Validate parses and validates a token string, returning structured
// claims. Expiry and malformed/invalid-signature surface as distinct
// sentinel errors so callers can branch.
func (ts *TokenServiceImpl) Validate(tokenString string) (*JWTClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode).
			WithCode(errors.CodeUnauthorized)
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenService validate could not decode or validate claims")
	return nil, ErrTokenMalformed
}

var (
	_ TokenService   = (*TokenServiceImpl)(nil)
	_ TokenValidator = (*TokenServiceImpl)(nil)
)
