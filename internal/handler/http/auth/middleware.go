// Package auth guards the intake API with HS256 bearer tokens. Tokens are
// issued by the case-management system; this package only verifies them.
package auth

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"casetrack/internal/handler/http/respond"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey string

const ctxUser ctxKey = "user"

// User is the authenticated caller.
type User struct {
	Subject string
	Role    string
}

// Config configures Authz.
type Config struct {
	Secret       []byte
	AllowedRoles []string
	// Now is used for expiry checks; nil means time.Now.
	Now func() time.Time
}

var (
	errMissingToken = errors.New("missing bearer token")
	errInvalidToken = errors.New("invalid token")
)

// UserFromContext returns the caller stored by Authz.
func UserFromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(ctxUser).(User)
	return u, ok
}

// Authz requires a valid bearer token on every non-public path. Callers whose
// role is not in AllowedRoles get 403.
func Authz(cfg Config) func(http.Handler) http.Handler {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if IsPublicEndpoint(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			user, err := validateJWT(r.Header.Get("Authorization"), cfg.Secret, now())
			if err != nil {
				RecordAuthRequest("unknown", "failure")
				respond.SafeError(w, respond.NewAppError(http.StatusUnauthorized, "unauthorized", "unauthorized", err))
				return
			}
			RecordAuthDuration(time.Since(start).Seconds())

			if !slices.Contains(cfg.AllowedRoles, user.Role) {
				RecordAuthRequest(user.Role, "forbidden")
				respond.SafeError(w, respond.NewAppError(http.StatusForbidden, "forbidden", "forbidden", nil))
				return
			}
			RecordAuthRequest(user.Role, "success")

			ctx := context.WithValue(r.Context(), ctxUser, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func validateJWT(authz string, secret []byte, now time.Time) (User, error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(authz, prefix) {
		return User{}, errMissingToken
	}
	if len(secret) == 0 {
		return User{}, errors.New("jwt secret not configured")
	}

	claims := jwt.MapClaims{}
	tok, err := jwt.ParseWithClaims(strings.TrimPrefix(authz, prefix), claims,
		func(t *jwt.Token) (interface{}, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil || !tok.Valid {
		return User{}, errInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return User{}, errors.New("invalid sub claim")
	}
	role, ok := claims["role"].(string)
	if !ok || role == "" {
		return User{}, errors.New("invalid role claim")
	}
	return User{Subject: sub, Role: role}, nil
}
