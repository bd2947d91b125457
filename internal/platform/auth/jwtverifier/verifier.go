package jwtverifier

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/peraluna/trip-planner-api/internal/platform/config"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Verifier checks HS256 bearer tokens and yields the owner id from the sub claim.
type Verifier struct {
	cfg    config.JWTConfig
	clock  Clock
	parser *jwt.Parser
}

func New(cfg config.JWTConfig) *Verifier {
	return NewWithOptions(cfg, nil)
}

func NewWithOptions(cfg config.JWTConfig, clock Clock) *Verifier {
	if clock == nil {
		clock = realClock{}
	}
	v := &Verifier{cfg: cfg, clock: clock}
	v.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithAudience(cfg.Audience),
		jwt.WithLeeway(cfg.ClockSkew),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return v.clock.Now() }),
	)
	return v
}

// Verify validates signature, iss, aud, exp and nbf, and returns the subject.
func (v *Verifier) Verify(ctx context.Context, token string) (string, error) {
	_ = ctx
	var claims jwt.RegisteredClaims
	_, err := v.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return []byte(v.cfg.Secret), nil
	})
	if err != nil {
		return "", ErrUnauthorized
	}
	if claims.Subject == "" {
		return "", ErrUnauthorized
	}
	return claims.Subject, nil
}

// Mint issues a token for sub valid for ttl from now. Used by cmd/devjwt and tests.
func Mint(cfg config.JWTConfig, sub string, now time.Time, ttl time.Duration) (string, error) {
	if sub == "" {
		return "", errors.New("missing subject")
	}
	claims := jwt.RegisteredClaims{
		Issuer:    cfg.Issuer,
		Subject:   sub,
		Audience:  jwt.ClaimStrings{cfg.Audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
}
