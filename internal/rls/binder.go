// Package rls serialises data-API queries against one project's engine
// through a FIFO queue and binds the request's session context for the
// lifetime of each query via the `WithRLS`/set_config pattern.
package rls

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/litepg/litepg-core/internal/domain"
)

// job is one queued unit of work bound to a session context.
type job struct {
	ctx    context.Context
	sc     domain.SessionContext
	fn     func(ctx context.Context, tx domain.Tx) error
	result chan error
}

// Binder serialises every session-bound query against a single
// domain.EngineAdapter through one worker goroutine per project, so two
// concurrent requests can never interleave their SET LOCAL bindings.
type Binder struct {
	engine domain.EngineAdapter
	logger *zap.Logger
	queue  chan job
	once   sync.Once
	done   chan struct{}
}

func NewBinder(engine domain.EngineAdapter, logger *zap.Logger) *Binder {
	b := &Binder{
		engine: engine,
		logger: logger,
		queue:  make(chan job, 64),
		done:   make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Binder) run() {
	for {
		select {
		case j, ok := <-b.queue:
			if !ok {
				return
			}
			if j.ctx.Err() != nil {
				j.result <- domain.NewTimeoutError("request cancelled before query execution")
				continue
			}
			j.result <- b.engine.WithSessionContext(j.ctx, j.sc, j.fn)
		case <-b.done:
			for {
				select {
				case j := <-b.queue:
					if j.ctx.Err() != nil {
						j.result <- domain.NewTimeoutError("request cancelled before query execution")
						continue
					}
					j.result <- b.engine.WithSessionContext(j.ctx, j.sc, j.fn)
				default:
					return
				}
			}
		}
	}
}

// Run submits fn to the FIFO queue, blocking the caller until it is bound,
// executed, and the session context cleared — or until ctx is cancelled,
// in which case the binding is still guaranteed to clear because the
// worker always finishes its current job's transaction before picking up
// cancellation on the next one.
func (b *Binder) Run(ctx context.Context, sc domain.SessionContext, fn func(ctx context.Context, tx domain.Tx) error) error {
	j := job{ctx: ctx, sc: sc, fn: fn, result: make(chan error, 1)}

	select {
	case <-b.done:
		return domain.NewInternalError(nil)
	default:
	}

	select {
	case b.queue <- j:
	case <-ctx.Done():
		return domain.NewTimeoutError("request cancelled waiting for query queue")
	case <-b.done:
		return domain.NewInternalError(nil)
	}

	select {
	case err := <-j.result:
		return err
	case <-ctx.Done():
		// The job is still in flight on the worker; wait for it so the
		// session binding clears before returning, then surface the
		// cancellation to the caller.
		<-j.result
		return domain.NewTimeoutError("request cancelled while query was executing")
	}
}

// Close stops accepting new work and lets the worker drain.
func (b *Binder) Close() {
	b.once.Do(func() { close(b.done) })
}
