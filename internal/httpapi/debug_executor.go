package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/litepg/litepg-core/internal/domain"
	"github.com/litepg/litepg-core/internal/kernel"
)

// DebugExecutor hosts the service-role-only `/debug/sql` raw-query escape
// hatch and `/debug/introspect` token introspection, a capability exposed
// for test harnesses and seed scripts rather than public clients.
type DebugExecutor struct {
	kernel *kernel.Kernel
	codec  domain.TokenCodec
}

func NewDebugExecutor(k *kernel.Kernel, codec domain.TokenCodec) *DebugExecutor {
	return &DebugExecutor{kernel: k, codec: codec}
}

func (h *DebugExecutor) RegisterRoutes(r chi.Router) {
	r.Route("/debug", func(r chi.Router) {
		r.Post("/sql", h.RawSQL)
		r.Post("/introspect", h.Introspect)
	})
}

func (h *DebugExecutor) requireServiceRole(w http.ResponseWriter, r *http.Request) bool {
	rc := kernel.FromContext(r.Context())
	if rc.SessionContext.Role != domain.RoleServiceRole {
		kernel.WriteError(w, domain.NewRLSDeniedError(rc.SessionContext.Role == domain.RoleAnon))
		return false
	}
	return true
}

func (h *DebugExecutor) RawSQL(w http.ResponseWriter, r *http.Request) {
	if !h.requireServiceRole(w, r) {
		return
	}
	rc := kernel.FromContext(r.Context())

	var body struct {
		SQL    string        `json:"sql"`
		Params []interface{} `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		kernel.WriteError(w, domain.NewValidationError(domain.CodeParseError, "invalid request body"))
		return
	}

	eng, err := h.kernel.EngineFor(r.Context(), rc.ProjectID)
	if err != nil {
		kernel.WriteError(w, err)
		return
	}

	rows, err := eng.Exec(context.Background(), body.SQL, body.Params)
	if err != nil {
		kernel.WriteError(w, err)
		return
	}

	kernel.WriteAuthResult(w, http.StatusOK, rows)
}

func (h *DebugExecutor) Introspect(w http.ResponseWriter, r *http.Request) {
	if !h.requireServiceRole(w, r) {
		return
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		kernel.WriteError(w, domain.NewValidationError(domain.CodeParseError, "invalid request body"))
		return
	}

	claims, err := h.codec.Verify(body.Token)
	if err != nil {
		kernel.WriteAuthResult(w, http.StatusOK, map[string]interface{}{"active": false})
		return
	}

	kernel.WriteAuthResult(w, http.StatusOK, map[string]interface{}{
		"active": true,
		"sub":    claims.Subject,
		"role":   claims.Role,
		"exp":    claims.ExpiresAt.Unix(),
		"iat":    claims.IssuedAt.Unix(),
	})
}
