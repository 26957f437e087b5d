package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testSecret = []byte("test-secret-key-at-least-32-characters-long")
	testNow    = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
)

func signToken(t *testing.T, secret []byte, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString(secret)
	require.NoError(t, err)
	return tok
}

func validClaims(role string) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":  "case-management",
		"role": role,
		"exp":  testNow.Add(time.Hour).Unix(),
	}
}

func newHandler(t *testing.T) (http.Handler, *User) {
	t.Helper()
	var seen User
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u, ok := UserFromContext(r.Context()); ok {
			seen = u
		}
		w.WriteHeader(http.StatusOK)
	})
	mw := Authz(Config{
		Secret:       testSecret,
		AllowedRoles: []string{"dispatcher", "admin"},
		Now:          func() time.Time { return testNow },
	})
	return mw(next), &seen
}

func TestAuthz(t *testing.T) {
	expired := validClaims("dispatcher")
	expired["exp"] = testNow.Add(-time.Minute).Unix()
	noExp := validClaims("dispatcher")
	delete(noExp, "exp")
	noRole := validClaims("")
	delete(noRole, "role")

	tests := []struct {
		name     string
		path     string
		header   string
		wantCode int
		wantRole string
	}{
		{name: "public health", path: "/health", wantCode: http.StatusOK},
		{name: "public metrics", path: "/metrics/", wantCode: http.StatusOK},
		{name: "missing token", path: "/cases/1/notifications", wantCode: http.StatusUnauthorized},
		{name: "not bearer", path: "/cases/1/notifications", header: "Basic abc", wantCode: http.StatusUnauthorized},
		{name: "valid dispatcher", path: "/cases/1/notifications", header: "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, validClaims("dispatcher")), wantCode: http.StatusOK, wantRole: "dispatcher"},
		{name: "role not allowed", path: "/cases/1/notifications", header: "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, validClaims("viewer")), wantCode: http.StatusForbidden},
		{name: "expired", path: "/cases/1/notifications", header: "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, expired), wantCode: http.StatusUnauthorized},
		{name: "exp required", path: "/cases/1/notifications", header: "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, noExp), wantCode: http.StatusUnauthorized},
		{name: "missing role", path: "/cases/1/notifications", header: "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, noRole), wantCode: http.StatusUnauthorized},
		{name: "wrong secret", path: "/cases/1/notifications", header: "Bearer " + signToken(t, []byte("another-secret-another-secret-xx"), jwt.SigningMethodHS256, validClaims("admin")), wantCode: http.StatusUnauthorized},
		{name: "wrong algorithm", path: "/cases/1/notifications", header: "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS512, validClaims("admin")), wantCode: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, seen := newHandler(t)
			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantRole, seen.Role)
		})
	}
}

func TestAuthz_EmptySecretRejects(t *testing.T) {
	mw := Authz(Config{AllowedRoles: []string{"admin"}})
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run")
	}))
	req := httptest.NewRequest(http.MethodGet, "/notification-types", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, []byte("x"), jwt.SigningMethodHS256, jwt.MapClaims{"sub": "a", "role": "admin", "exp": time.Now().Add(time.Hour).Unix()}))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthz_RecordsMetrics(t *testing.T) {
	before := testutil.ToFloat64(authRequestsTotal.WithLabelValues("viewer", "forbidden"))

	h, _ := newHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/notification-types", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, jwt.SigningMethodHS256, validClaims("viewer")))
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, before+1, testutil.ToFloat64(authRequestsTotal.WithLabelValues("viewer", "forbidden")))
}

func TestIsPublicEndpoint(t *testing.T) {
	assert.True(t, IsPublicEndpoint("/health"))
	assert.True(t, IsPublicEndpoint("/health/ready"))
	assert.True(t, IsPublicEndpoint("/metrics"))
	assert.False(t, IsPublicEndpoint("/health/channels"))
	assert.False(t, IsPublicEndpoint("/healthcheck"))
	assert.False(t, IsPublicEndpoint("/cases/1/notifications"))
}
