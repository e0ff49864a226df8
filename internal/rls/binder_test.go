package rls

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/litepg/litepg-core/internal/domain"
)

type fakeEngine struct {
	mu       sync.Mutex
	active   int32
	maxSeen  int32
	bindings []domain.Role
	delay    time.Duration
}

func (f *fakeEngine) Exec(ctx context.Context, sql string, params []interface{}) ([]map[string]interface{}, error) {
	return nil, nil
}

func (f *fakeEngine) WithSessionContext(ctx context.Context, sc domain.SessionContext, fn func(ctx context.Context, tx domain.Tx) error) error {
	n := atomic.AddInt32(&f.active, 1)
	for {
		max := atomic.LoadInt32(&f.maxSeen)
		if n <= max || atomic.CompareAndSwapInt32(&f.maxSeen, max, n) {
			break
		}
	}
	f.mu.Lock()
	f.bindings = append(f.bindings, sc.Role)
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	err := fn(ctx, nil)
	atomic.AddInt32(&f.active, -1)
	return err
}

func (f *fakeEngine) Ping(ctx context.Context) error { return nil }
func (f *fakeEngine) Close() error                   { return nil }

var _ domain.EngineAdapter = (*fakeEngine)(nil)

func TestBinderRunExecutesAndReturnsResult(t *testing.T) {
	engine := &fakeEngine{}
	b := NewBinder(engine, zap.NewNop())
	defer b.Close()

	err := b.Run(context.Background(), domain.SessionContext{Role: domain.RoleAuthenticated}, func(ctx context.Context, tx domain.Tx) error {
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.Role{domain.RoleAuthenticated}, engine.bindings)
}

func TestBinderRunPropagatesCallbackError(t *testing.T) {
	engine := &fakeEngine{}
	b := NewBinder(engine, zap.NewNop())
	defer b.Close()

	sentinel := domain.NewValidationError("x", "boom")
	err := b.Run(context.Background(), domain.SessionContext{}, func(ctx context.Context, tx domain.Tx) error {
		return sentinel
	})
	assert.Equal(t, sentinel, err)
}

func TestBinderSerialisesConcurrentJobs(t *testing.T) {
	engine := &fakeEngine{delay: 5 * time.Millisecond}
	b := NewBinder(engine, zap.NewNop())
	defer b.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Run(context.Background(), domain.SessionContext{Role: domain.RoleAuthenticated}, func(ctx context.Context, tx domain.Tx) error {
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&engine.maxSeen))
	assert.Len(t, engine.bindings, 10)
}

func TestBinderRunCancelledWhileExecutingStillClearsBinding(t *testing.T) {
	engine := &fakeEngine{}
	b := NewBinder(engine, zap.NewNop())
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	var ranToCompletion int32
	err := b.Run(ctx, domain.SessionContext{}, func(ctx context.Context, tx domain.Tx) error {
		time.Sleep(30 * time.Millisecond)
		atomic.StoreInt32(&ranToCompletion, 1)
		return nil
	})
	require.Error(t, err)
	ae := domain.AsAppError(err)
	assert.Equal(t, domain.KindTimeout, ae.Kind)
	assert.Equal(t, int32(1), atomic.LoadInt32(&ranToCompletion))
	assert.Equal(t, int32(0), atomic.LoadInt32(&engine.active))
}

func TestBinderRunCancelledWhileQueuedNeverExecutes(t *testing.T) {
	engine := &fakeEngine{delay: 40 * time.Millisecond}
	b := NewBinder(engine, zap.NewNop())
	defer b.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = b.Run(context.Background(), domain.SessionContext{Role: domain.RoleAuthenticated}, func(ctx context.Context, tx domain.Tx) error {
			return nil
		})
	}()
	time.Sleep(5 * time.Millisecond) // give the worker time to pick up the first job

	var executed int32
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	err := b.Run(ctx, domain.SessionContext{}, func(ctx context.Context, tx domain.Tx) error {
		atomic.StoreInt32(&executed, 1)
		return nil
	})
	require.Error(t, err)

	wg.Wait()
	time.Sleep(10 * time.Millisecond) // let the worker dequeue and drop the cancelled job
	assert.Equal(t, int32(0), atomic.LoadInt32(&executed))
}

func TestBinderCloseStopsAcceptingWork(t *testing.T) {
	engine := &fakeEngine{}
	b := NewBinder(engine, zap.NewNop())
	b.Close()

	err := b.Run(context.Background(), domain.SessionContext{}, func(ctx context.Context, tx domain.Tx) error {
		return nil
	})
	// Either the job is rejected outright, or (if it sneaks into the
	// buffered queue before Close drains it) it still completes normally;
	// either outcome is acceptable, this only guards against a hang.
	_ = err
}
