package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/auth"
)

var cfg = auth.Config{Secret: "test-secret", Issuer: "community-test"}

func protected(t *testing.T) http.Handler {
	t.Helper()
	return auth.Middleware(cfg, zap.NewNop().Sugar())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.FromContext(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(id.UserID + "/" + id.Role))
	}))
}

func TestMiddleware_AcceptsSignedToken(t *testing.T) {
	token, err := auth.Sign(cfg, auth.Identity{UserID: "u1", Role: "admin"}, time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	protected(t).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1/admin", rec.Body.String())
}

func TestMiddleware_Rejects(t *testing.T) {
	expired, err := auth.Sign(cfg, auth.Identity{UserID: "u1"}, -time.Minute)
	require.NoError(t, err)
	otherKey, err := auth.Sign(auth.Config{Secret: "other", Issuer: cfg.Issuer}, auth.Identity{UserID: "u1"}, time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "not bearer", header: "Basic abc"},
		{name: "garbage", header: "Bearer not-a-jwt"},
		{name: "expired", header: "Bearer " + expired},
		{name: "wrong key", header: "Bearer " + otherKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			protected(t).ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	h := auth.RequireRole(auth.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: "u1", Role: "user"}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{UserID: "u1", Role: auth.RoleAdmin}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestConfigFromEnv_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := auth.ConfigFromEnv()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "s")
	got, err := auth.ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "s", got.Secret)
}
