package router

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/assistant"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/comment"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/event"
	"github.com/ovaphlow/pitchfork/service-community-go/internal/order"
)

var authCfg = auth.Config{Secret: "router-test-secret"}

// newTestRouter mounts handlers without backing services: only requests
// that are answered before reaching a handler may be sent.
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), []byte("img"), 0o644))
	return RegisterRoutes(Config{Prefix: "/api"}, authCfg, Handlers{
		Comments:  &comment.Handler{},
		Events:    &event.Handler{},
		Orders:    &order.Handler{},
		Assistant: &assistant.Handler{},
		UploadDir: dir,
	}, zap.NewNop().Sugar())
}

func bearer(t *testing.T, role string) string {
	t.Helper()
	tok, err := auth.Sign(authCfg, auth.Identity{UserID: "u1", Role: role}, time.Minute)
	require.NoError(t, err)
	return "Bearer " + tok
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	_, err := uuid.Parse(rec.Header().Get(RequestIDHeader))
	assert.NoError(t, err)
}

func TestRequestIDIsKept(t *testing.T) {
	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(RequestIDHeader, id)
	rec := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rec, req)
	assert.Equal(t, id, rec.Header().Get(RequestIDHeader))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r := newTestRouter(t)
	routes := []struct{ method, path string }{
		{http.MethodPost, "/api/comments/p1"},
		{http.MethodGet, "/api/comments/p1"},
		{http.MethodPut, "/api/comments/item/c1"},
		{http.MethodDelete, "/api/comments/item/c1"},
		{http.MethodGet, "/api/events/mine"},
		{http.MethodGet, "/api/events/describe/chess"},
		{http.MethodPost, "/api/events"},
		{http.MethodPatch, "/api/events/e1"},
		{http.MethodDelete, "/api/events/e1"},
		{http.MethodPost, "/api/events/e1/participants"},
		{http.MethodDelete, "/api/events/e1/participants"},
		{http.MethodPost, "/api/admin/events"},
		{http.MethodPost, "/api/orders"},
		{http.MethodGet, "/api/orders"},
		{http.MethodGet, "/api/orders/o1"},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(rt.method, rt.path, nil))
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestAdminRouteRequiresRole(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/admin/events", nil)
	req.Header.Set("Authorization", bearer(t, "member"))
	rec := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUploadsAreServed(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/uploads/a.png", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "img", rec.Body.String())
}

func TestUnknownMethod(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/orders", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
