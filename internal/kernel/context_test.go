package kernel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/litepg/litepg-core/internal/domain"
)

func TestWithRequestContextRoundTrips(t *testing.T) {
	rc := &domain.RequestContext{RequestID: "req-1", ProjectID: "proj-1"}
	ctx := WithRequestContext(context.Background(), rc)

	got := FromContext(ctx)
	assert.Same(t, rc, got)
	assert.Equal(t, "req-1", got.RequestID)
}

func TestFromContextPanicsWhenMissing(t *testing.T) {
	assert.Panics(t, func() {
		FromContext(context.Background())
	})
}
