package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/litepg/litepg-core/internal/authcore"
	"github.com/litepg/litepg-core/internal/domain"
	"github.com/litepg/litepg-core/internal/kernel"
)

// Mount registers the data API, auth API, and debug API route families
// onto r, plus the health and JWKS endpoints.
func Mount(r chi.Router, k *kernel.Kernel, auth *authcore.Service, codec domain.TokenCodec) {
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Get("/auth/v1/.well-known/jwks.json", func(w http.ResponseWriter, r *http.Request) {
		jwks, err := codec.JWKS()
		if err != nil {
			kernel.WriteError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(jwks)
	})

	NewDataExecutor(k).RegisterRoutes(r)
	NewAuthExecutor(auth).RegisterRoutes(r)
	NewDebugExecutor(k, codec).RegisterRoutes(r)
}
