package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenType string

const (
	AccessTokenType  TokenType = "access"
	RefreshTokenType TokenType = "refresh"
)

var (
	ErrTokenInvalidSignature = errors.New("token is malformed or its signature is invalid")
	ErrTokenExpired          = errors.New("token has expired")
	ErrTokenWrongType        = errors.New("token has the wrong type")
)

// Claims carries the token discriminator on top of the registered claims (sub, iat, exp, jti).
type Claims struct {
	Type TokenType `json:"typ"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"accessTokenExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshTokenExpiresAt"`
}

// TokenIssuer signs and verifies access and refresh tokens. Each type has its own HMAC secret.
type TokenIssuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewTokenIssuer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// WithClock replaces the time source. Used by tests.
func (i *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	i.now = now
	return i
}

// Mint signs a fresh access/refresh pair for userID. It does not touch the ledger.
func (i *TokenIssuer) Mint(userID string) (TokenPair, error) {
	now := i.now()

	access, accessExp, err := i.sign(userID, AccessTokenType, now)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, refreshExp, err := i.sign(userID, RefreshTokenType, now)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (i *TokenIssuer) sign(userID string, typ TokenType, now time.Time) (string, time.Time, error) {
	secret, ttl := i.accessSecret, i.accessTTL
	if typ == RefreshTokenType {
		secret, ttl = i.refreshSecret, i.refreshTTL
	}
	expiresAt := now.Add(ttl)

	claims := Claims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign %s token: %w", typ, err)
	}
	return signed, expiresAt.Truncate(time.Second), nil
}

// Verify checks signature, expiry and type. Errors are ErrTokenInvalidSignature, ErrTokenExpired or ErrTokenWrongType.
func (i *TokenIssuer) Verify(token string, want TokenType) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		// The secret is chosen by the declared type; a forged typ fails the signature check.
		switch t.Claims.(*Claims).Type {
		case AccessTokenType:
			return i.accessSecret, nil
		case RefreshTokenType:
			return i.refreshSecret, nil
		default:
			return nil, ErrTokenInvalidSignature
		}
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now), jwt.WithExpirationRequired())

	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	default:
		return nil, ErrTokenInvalidSignature
	}

	if claims.Type != want {
		return nil, ErrTokenWrongType
	}
	if claims.Subject == "" {
		return nil, ErrTokenInvalidSignature
	}
	return claims, nil
}
