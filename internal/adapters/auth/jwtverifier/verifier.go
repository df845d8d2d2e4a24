package jwtverifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"health-consent/internal/ports/auth"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNotConfigured = errors.New("jwt verifier not configured")
	ErrTokenEmpty    = errors.New("token is empty")
	ErrMissingUserID = errors.New("token missing subject")
)

// Config del verificador. Solo HS256.
type Config struct {
	Secret string
	Issuer string

	// Leeway tolera relojes desfasados al validar exp/nbf.
	Leeway time.Duration
}

// tokenClaims: sub es el NIK o el id del hospital; provider es opcional.
type tokenClaims struct {
	Name     string `json:"name,omitempty"`
	Provider string `json:"provider,omitempty"`
	jwt.RegisteredClaims
}

// Verifier implementa auth.AuthVerifier con tokens firmados HS256.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func New(cfg Config) *Verifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if iss := strings.TrimSpace(cfg.Issuer); iss != "" {
		opts = append(opts, jwt.WithIssuer(iss))
	}
	if cfg.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(cfg.Leeway))
	}

	return &Verifier{
		secret: []byte(cfg.Secret),
		parser: jwt.NewParser(opts...),
	}
}

func (v *Verifier) Verify(ctx context.Context, token string) (auth.Claims, error) {
	if v == nil || len(v.secret) == 0 {
		return auth.Claims{}, ErrNotConfigured
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Claims{}, ErrTokenEmpty
	}

	var tc tokenClaims
	_, err := v.parser.ParseWithClaims(token, &tc, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return auth.Claims{}, fmt.Errorf("jwt verify failed: %w", err)
	}

	sub := strings.TrimSpace(tc.Subject)
	if sub == "" {
		return auth.Claims{}, ErrMissingUserID
	}

	return auth.Claims{
		UserID:   sub,
		Name:     strings.TrimSpace(tc.Name),
		Provider: strings.TrimSpace(tc.Provider),
	}, nil
}

// Sign emite un token para sub. Lo usan los tests y las herramientas de desarrollo.
func Sign(secret, issuer string, c auth.Claims, ttl time.Duration, now time.Time) (string, error) {
	tc := tokenClaims{
		Name:     c.Name,
		Provider: c.Provider,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.UserID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, tc).SignedString([]byte(secret))
}
