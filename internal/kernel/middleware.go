package kernel

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/litepg/litepg-core/internal/domain"
)

// instrumentation logs one structured line per request and seeds the
// RequestContext, a zap-backed equivalent of chi's stdlib `middleware.Logger`
// slotted into the same chain position (after Recoverer/RequestID/RealIP/
// Timeout).
func (k *Kernel) instrumentation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := middleware.GetReqID(r.Context())

		rc := &domain.RequestContext{
			RequestID:      reqID,
			StartTime:      start,
			SessionContext: domain.AnonSessionContext(),
		}
		ctx := WithRequestContext(r.Context(), rc)

		next.ServeHTTP(w, r.WithContext(ctx))

		k.logger.Info("request handled",
			zap.String("request_id", reqID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("project_id", rc.ProjectID),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// resolveProject binds the active (or explicitly addressed) project onto
// the RequestContext before any data-API or auth work happens.
func (k *Kernel) resolveProject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc := FromContext(r.Context())

		projectID := r.Header.Get("X-Project-Id")
		var project *domain.Project
		var err error
		if projectID != "" {
			project, err = k.registry.Get(r.Context(), projectID)
		} else {
			project, err = k.registry.Active(r.Context())
		}
		if err != nil {
			WriteError(w, err)
			return
		}

		rc.ProjectID = project.ID
		next.ServeHTTP(w, r)
	})
}

// classifyAuth extracts the bearer access token or apikey header and binds
// the resulting SessionContext, falling back to anon.
func (k *Kernel) classifyAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc := FromContext(r.Context())

		if token := bearerToken(r); token != "" {
			claims, err := k.codec.Verify(token)
			if err != nil {
				WriteError(w, err)
				return
			}
			uid := claims.Subject
			rc.SessionContext = domain.SessionContext{
				Role:   claims.Role,
				UserID: &uid,
				Claims: map[string]interface{}{"jti": claims.JTI},
			}
			next.ServeHTTP(w, r)
			return
		}

		if apiKey := r.Header.Get("apikey"); apiKey != "" {
			role, err := k.codec.ClassifyAPIKey(apiKey)
			if err != nil {
				WriteError(w, err)
				return
			}
			rc.SessionContext = domain.SessionContext{Role: role, Claims: map[string]interface{}{}}
		}

		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(h, "Bearer ")
}
