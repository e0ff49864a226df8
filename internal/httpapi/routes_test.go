package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/litepg/litepg-core/internal/authcore"
	"github.com/litepg/litepg-core/internal/domain"
	"github.com/litepg/litepg-core/internal/kernel"
)

func newMountedRouter(t *testing.T) http.Handler {
	t.Helper()
	reg := &fakeRegistry{project: &domain.Project{ID: "default"}, engine: &fakeEngine{}}
	codec := &fakeCodec{}
	k := kernel.New(reg, codec, zap.NewNop())
	svc := authcore.NewService(newFakeAuthStore(), codec, authcore.Config{
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 24 * time.Hour,
		Issuer:          "litepg-core",
	})

	return k.Router(func(rt chi.Router) {
		Mount(rt, k, svc, codec)
	})
}

func TestMountHealthEndpoint(t *testing.T) {
	router := newMountedRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestMountJWKSEndpoint(t *testing.T) {
	router := newMountedRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/v1/.well-known/jwks.json", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "keys")
}

func TestMountDataAPIReachableThroughFullChain(t *testing.T) {
	router := newMountedRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/rest/v1/widgets", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}
