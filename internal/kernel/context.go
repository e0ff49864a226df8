package kernel

import (
	"context"

	"github.com/litepg/litepg-core/internal/domain"
)

type ctxKey int

const requestContextKey ctxKey = iota

// WithRequestContext stores the per-request state the Kernel's middleware
// chain builds up for executors to read.
func WithRequestContext(ctx context.Context, rc *domain.RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey, rc)
}

// FromContext retrieves the RequestContext a prior middleware attached. It
// panics if called outside the Kernel's chain, treating a missing context
// value as a programmer error rather than a runtime condition to recover
// from.
func FromContext(ctx context.Context) *domain.RequestContext {
	rc, ok := ctx.Value(requestContextKey).(*domain.RequestContext)
	if !ok {
		panic("kernel: RequestContext missing from context; middleware chain misconfigured")
	}
	return rc
}
