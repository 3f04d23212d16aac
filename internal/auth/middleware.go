package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"parkingapp/internal/db"
	apperr "parkingapp/internal/errors"
	applog "parkingapp/internal/log"
)

type ctxKey struct{}

// Claims is the token payload: the subject is the user id.
type Claims struct {
	Role db.Role `json:"role"`
	jwt.RegisteredClaims
}

// Middleware rejects requests without a valid HS256 bearer token and puts
// the caller's Actor on the request context.
func Middleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				applog.Security(r.Context(), "auth.missing_token", nil)
				apperr.Render(w, apperr.ErrUnauthorized)
				return
			}
			actor, err := ParseToken(secret, strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				applog.Security(r.Context(), "auth.invalid_token", map[string]any{"err": err.Error()})
				apperr.Render(w, apperr.ErrUnauthorized)
				return
			}
			ctx := WithActor(r.Context(), actor)
			ctx = applog.WithUser(ctx, actor.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ParseToken(secret, tokenString string) (db.Actor, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return db.Actor{}, err
	}
	if claims.Subject == "" {
		return db.Actor{}, errors.New("token has no subject")
	}
	if !claims.Role.Valid() {
		return db.Actor{}, fmt.Errorf("unknown role %q", claims.Role)
	}
	return db.Actor{ID: claims.Subject, Role: claims.Role}, nil
}

// SignToken issues a token for actor valid for ttl. Login flows live
// elsewhere; this serves local runs and tests.
func SignToken(secret string, actor db.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: actor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func WithActor(ctx context.Context, actor db.Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, actor)
}

// ActorFrom returns the actor set by Middleware.
func ActorFrom(ctx context.Context) (db.Actor, bool) {
	actor, ok := ctx.Value(ctxKey{}).(db.Actor)
	return actor, ok
}
