package kernel

import (
	"context"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/litepg/litepg-core/internal/domain"
	"github.com/litepg/litepg-core/internal/rls"
)

// Kernel owns the middleware chain, the project registry, and one RLS
// binder per project engine, collecting what would otherwise be inline
// main() router wiring into a reusable component.
type Kernel struct {
	registry domain.ProjectRegistry
	codec    domain.TokenCodec
	logger   *zap.Logger

	mu      sync.Mutex
	binders map[string]*rls.Binder

	RequestTimeout time.Duration
	CORSOrigins    []string
}

func New(registry domain.ProjectRegistry, codec domain.TokenCodec, logger *zap.Logger) *Kernel {
	return &Kernel{
		registry:       registry,
		codec:          codec,
		logger:         logger,
		binders:        make(map[string]*rls.Binder),
		RequestTimeout: 60 * time.Second,
		CORSOrigins:    []string{"*"},
	}
}

// Binder returns (creating if needed) the FIFO binder serialising queries
// for projectID, materialising the project's engine on first use.
func (k *Kernel) Binder(ctx context.Context, projectID string) (*rls.Binder, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if b, ok := k.binders[projectID]; ok {
		return b, nil
	}

	eng, err := k.registry.Engine(ctx, projectID)
	if err != nil {
		return nil, err
	}
	b := rls.NewBinder(eng, k.logger)
	k.binders[projectID] = b
	return b, nil
}

// EngineFor exposes the registry's materialised engine for metadata
// lookups (e.g. foreign-key resolution) that must run outside the
// session-bound query binder.
func (k *Kernel) EngineFor(ctx context.Context, projectID string) (domain.EngineAdapter, error) {
	return k.registry.Engine(ctx, projectID)
}

// Router builds the top-level chi.Router: standard chi middleware first
// (RequestID, Recoverer, RealIP, Timeout, CORS), then the Kernel's own
// instrumentation, project-resolution, and auth-classification stages,
// before handing off to mount().
func (k *Kernel) Router(mount func(r chi.Router)) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Timeout(k.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   k.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "apikey", "Prefer", "Range", "X-Project-Id"},
		ExposedHeaders:   []string{"Content-Range", "Range"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(k.instrumentation)
	r.Use(k.resolveProject)
	r.Use(k.classifyAuth)

	mount(r)
	return r
}
