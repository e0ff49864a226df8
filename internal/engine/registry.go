package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/litepg/litepg-core/internal/domain"
)

// DSNFunc builds a project's connection string from its database path.
// Injected so tests can substitute a fixed DSN without touching real
// Postgres configuration.
type DSNFunc func(project *domain.Project) string

// Registry is the sole implementer of domain.ProjectRegistry. It owns the
// at-most-one-active-project invariant and lazily materialises engines,
// draining in-flight requests against the outgoing project before a
// Switch or Delete returns.
type Registry struct {
	mu       sync.RWMutex
	projects map[string]*domain.Project
	engines  map[string]domain.EngineAdapter
	activeID string
	dsnFunc  DSNFunc
	logger   *zap.Logger
	baseDir  string
}

func NewRegistry(baseDir string, dsnFunc DSNFunc, logger *zap.Logger) *Registry {
	return &Registry{
		projects: make(map[string]*domain.Project),
		engines:  make(map[string]domain.EngineAdapter),
		dsnFunc:  dsnFunc,
		logger:   logger,
		baseDir:  baseDir,
	}
}

// drainable is implemented by pgAdapter; Switch/Delete use it to wait out
// in-flight requests without requiring every EngineAdapter implementation
// to support draining (e.g. test doubles need not).
type drainable interface {
	Drain(ctx context.Context) error
}

// Bootstrap registers a pre-existing project (the default project created
// at startup, per config.ProjectsConfig) and marks it active.
func (r *Registry) Bootstrap(p *domain.Project) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.IsActive = true
	r.projects[p.ID] = p
	r.activeID = p.ID
}

func (r *Registry) Active(ctx context.Context) (*domain.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.activeID == "" {
		return nil, domain.NewNotFoundError("no active project")
	}
	return r.projects[r.activeID], nil
}

func (r *Registry) Get(ctx context.Context, id string) (*domain.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, domain.NewNotFoundError(fmt.Sprintf("project %q not found", id))
	}
	return p, nil
}

func (r *Registry) List(ctx context.Context) ([]*domain.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Project, 0, len(r.projects))
	for _, p := range r.projects {
		out = append(out, p)
	}
	return out, nil
}

func (r *Registry) Create(ctx context.Context, name string) (*domain.Project, error) {
	if name == "" {
		return nil, domain.NewValidationError(domain.CodeParseError, "project name is required")
	}

	id := uuid.NewString()
	now := time.Now()
	p := &domain.Project{
		ID:             id,
		Name:           name,
		DatabasePath:   fmt.Sprintf("%s/%s", r.baseDir, id),
		CreatedAt:      now,
		LastAccessedAt: now,
	}

	r.mu.Lock()
	r.projects[id] = p
	r.mu.Unlock()

	return p, nil
}

// Switch makes id the active project, draining any in-flight data-API
// requests against the previously active project before the new project
// is activated.
func (r *Registry) Switch(ctx context.Context, id string) error {
	r.mu.Lock()
	target, ok := r.projects[id]
	if !ok {
		r.mu.Unlock()
		return domain.NewNotFoundError(fmt.Sprintf("project %q not found", id))
	}
	outgoingID := r.activeID
	outgoingEngine := r.engines[outgoingID]
	r.mu.Unlock()

	if d, ok := outgoingEngine.(drainable); ok {
		r.logger.Info("draining in-flight requests before project switch",
			zap.String("outgoing_project_id", outgoingID),
			zap.String("incoming_project_id", id),
		)
		if err := d.Drain(ctx); err != nil {
			return err
		}
	}

	r.mu.Lock()
	if prev, ok := r.projects[r.activeID]; ok {
		prev.IsActive = false
	}
	target.IsActive = true
	target.LastAccessedAt = time.Now()
	r.activeID = id
	r.mu.Unlock()

	return nil
}

func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	if id == r.activeID {
		r.mu.Unlock()
		return domain.NewValidationError(domain.CodeParseError, "cannot delete the active project")
	}
	eng, hasEngine := r.engines[id]
	delete(r.engines, id)
	delete(r.projects, id)
	r.mu.Unlock()

	if hasEngine {
		if d, ok := eng.(drainable); ok {
			if err := d.Drain(ctx); err != nil {
				return err
			}
		}
		return eng.Close()
	}
	return nil
}

// Engine returns the materialised adapter for projectID, opening it with
// bounded retry on first use. The adapter counts its own in-flight calls,
// which Switch/Delete wait out through Drain.
func (r *Registry) Engine(ctx context.Context, projectID string) (domain.EngineAdapter, error) {
	r.mu.RLock()
	if eng, ok := r.engines[projectID]; ok {
		r.mu.RUnlock()
		return eng, nil
	}
	project, ok := r.projects[projectID]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.NewNotFoundError(fmt.Sprintf("project %q not found", projectID))
	}

	eng, err := Open(ctx, projectID, r.dsnFunc(project), r.logger)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if existing, ok := r.engines[projectID]; ok {
		r.mu.Unlock()
		_ = eng.Close()
		return existing, nil
	}
	r.engines[projectID] = eng
	r.mu.Unlock()

	return eng, nil
}
