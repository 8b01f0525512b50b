// Package auth verifies identity tokens issued by the external auth service
// and enforces role requirements on routes.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/irsalhamdi/pos-kiosk/api/web"
	"github.com/irsalhamdi/pos-kiosk/api/weberr"
	"github.com/irsalhamdi/pos-kiosk/core/claims"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

type tokenClaims struct {
	Role claims.Role `json:"role"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

func (v *Verifier) Verify(raw string) (claims.Claims, error) {
	var tc tokenClaims
	_, err := v.parser.ParseWithClaims(raw, &tc, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return claims.Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if tc.Subject == "" {
		return claims.Claims{}, fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}
	if !tc.Role.Valid() {
		return claims.Claims{}, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, tc.Role)
	}

	return claims.Claims{UserID: tc.Subject, Role: tc.Role}, nil
}

// Sign issues a token the Verifier accepts. Used by operator tooling and
// tests; end-user tokens come from the auth service.
func Sign(secret string, c claims.Claims, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	tc := tokenClaims{
		Role: c.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, tc).SignedString([]byte(secret))
}

// Authenticate loads the caller's claims from the Authorization header.
func Authenticate(v *Verifier) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			raw, ok := bearer(r)
			if !ok {
				return weberr.NotAuthorized(ErrMissingToken)
			}

			clm, err := v.Verify(raw)
			if err != nil {
				return weberr.NotAuthorized(err)
			}

			ctx = claims.Set(ctx, clm)
			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

// Require rejects authenticated callers whose role does not satisfy role.
// It must run after Authenticate.
func Require(role claims.Role) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			clm, err := claims.Get(ctx)
			if err != nil {
				return weberr.NotAuthorized(err)
			}

			if !clm.Role.Satisfies(role) {
				err := fmt.Errorf("user[%s] with role %s requires %s", clm.UserID, clm.Role, role)
				return weberr.Forbidden(err)
			}

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}

func bearer(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "bearer") || token == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}
