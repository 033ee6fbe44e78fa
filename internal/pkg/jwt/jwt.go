package jwt

import (
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMissingSecret = errors.New("jwt: signing secret is not configured")
	ErrInvalidTTL    = errors.New("jwt: token ttl must be positive")
	ErrMissingUserID = errors.New("jwt: token has no user id")
)

// Claims is the payload of both access and refresh tokens.
type Claims struct {
	UserID string `json:"id"`
	jwtlib.RegisteredClaims
}

// Issuer signs access and refresh tokens with separate secrets and lifetimes.
type Issuer struct {
	accessSecret  []byte
	accessTTL     time.Duration
	refreshSecret []byte
	refreshTTL    time.Duration
	now           func() time.Time
}

func New(accessSecret string, accessTTL time.Duration, refreshSecret string, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		accessSecret:  []byte(accessSecret),
		accessTTL:     accessTTL,
		refreshSecret: []byte(refreshSecret),
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

func (s *Issuer) IssueAccessToken(userID string) (string, error) {
	return s.sign(userID, s.accessSecret, s.accessTTL)
}

func (s *Issuer) IssueRefreshToken(userID string) (string, error) {
	return s.sign(userID, s.refreshSecret, s.refreshTTL)
}

func (s *Issuer) VerifyAccess(token string) (*Claims, error) {
	return Verify(token, s.accessSecret)
}

func (s *Issuer) VerifyRefresh(token string) (*Claims, error) {
	return Verify(token, s.refreshSecret)
}

func (s *Issuer) RefreshTTL() time.Duration { return s.refreshTTL }

func (s *Issuer) AccessTTL() time.Duration { return s.accessTTL }

func (s *Issuer) sign(userID string, secret []byte, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", ErrMissingSecret
	}
	if ttl <= 0 {
		return "", ErrInvalidTTL
	}

	now := s.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwtlib.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// Verify checks signature and expiry of tokenStr against secret. It never
// consults any store.
func Verify(tokenStr string, secret []byte) (*Claims, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}

	claims := &Claims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (any, error) {
		return secret, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwtlib.ErrTokenSignatureInvalid
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: %w", jwtlib.ErrTokenInvalidClaims, ErrMissingUserID)
	}

	return claims, nil
}
