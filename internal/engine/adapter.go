// Package engine wraps one project's Postgres connection pool behind the
// domain.EngineAdapter boundary. A project's engine is a pgxpool.Pool
// scoped to that project's own database, created lazily and torn down
// when the project is switched out.
package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/litepg/litepg-core/internal/domain"
)

const (
	initMaxAttempts = 3
	initBaseDelay   = 100 * time.Millisecond
	drainPollInterval = 10 * time.Millisecond
)

// pgAdapter is the concrete domain.EngineAdapter for one project. inflight
// counts operations currently executing against the pool so Registry.Switch
// can drain the outgoing project before activating the next one.
type pgAdapter struct {
	projectID string
	pool      *pgxpool.Pool
	logger    *zap.Logger
	inflight  int64
}

// Drain blocks until no Exec/WithSessionContext call is in progress, or ctx
// is cancelled.
func (a *pgAdapter) Drain(ctx context.Context) error {
	for atomic.LoadInt64(&a.inflight) > 0 {
		select {
		case <-ctx.Done():
			return domain.NewTimeoutError("timed out draining in-flight requests")
		case <-time.After(drainPollInterval):
		}
	}
	return nil
}

// Open creates a pool against dsn, retrying with exponential backoff up to
// initMaxAttempts times: engine initialisation is bounded-retry, never
// silent-infinite.
func Open(ctx context.Context, projectID, dsn string, logger *zap.Logger) (domain.EngineAdapter, error) {
	var lastErr error
	delay := initBaseDelay

	for attempt := 1; attempt <= initMaxAttempts; attempt++ {
		cfg, err := pgxpool.ParseConfig(dsn)
		if err != nil {
			return nil, domain.NewEngineError("", "invalid database configuration", err)
		}

		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err == nil {
			if pingErr := pool.Ping(ctx); pingErr == nil {
				return &pgAdapter{projectID: projectID, pool: pool, logger: logger}, nil
			} else {
				pool.Close()
				err = pingErr
			}
		}

		lastErr = err
		logger.Warn("engine init attempt failed",
			zap.String("project_id", projectID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return nil, domain.NewTimeoutError("engine initialisation cancelled")
		case <-time.After(delay):
		}
		delay *= 2
	}

	return nil, domain.NewEngineError("", fmt.Sprintf("engine init failed after %d attempts", initMaxAttempts), lastErr)
}

func (a *pgAdapter) Exec(ctx context.Context, sql string, params []interface{}) ([]map[string]interface{}, error) {
	atomic.AddInt64(&a.inflight, 1)
	defer atomic.AddInt64(&a.inflight, -1)

	rows, err := a.pool.Query(ctx, sql, params...)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()
	return collectRows(rows)
}

func (a *pgAdapter) WithSessionContext(ctx context.Context, sc domain.SessionContext, fn func(ctx context.Context, tx domain.Tx) error) error {
	atomic.AddInt64(&a.inflight, 1)
	defer atomic.AddInt64(&a.inflight, -1)

	conn, err := a.pool.Acquire(ctx)
	if err != nil {
		return mapPgError(err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return mapPgError(err)
	}

	// Bind is paired with a deferred clear on every exit path, including
	// panics and context cancellation, because set_config(..., true) is
	// local to the transaction and the transaction always ends here.
	if err := bindSessionContext(ctx, tx, sc); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	txHandle := &pgTx{tx: tx}
	callErr := fn(ctx, txHandle)

	if callErr != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && rbErr != pgx.ErrTxClosed {
			a.logger.Warn("rollback failed after session-scoped error", zap.Error(rbErr))
		}
		return callErr
	}

	if err := tx.Commit(ctx); err != nil {
		return mapPgError(err)
	}
	return nil
}

func (a *pgAdapter) Ping(ctx context.Context) error {
	if err := a.pool.Ping(ctx); err != nil {
		return mapPgError(err)
	}
	return nil
}

func (a *pgAdapter) Close() error {
	a.pool.Close()
	return nil
}

// pgTx is the narrow transactional handle handed to WithSessionContext
// callbacks; it cannot escape the bound session context.
type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Exec(ctx context.Context, sql string, params []interface{}) ([]map[string]interface{}, error) {
	rows, err := t.tx.Query(ctx, sql, params...)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()
	return collectRows(rows)
}

// bindSessionContext sets the request.jwt.claims/role/user_id GUCs that the
// project's RLS policies read, scoped to the current transaction via
// set_config(..., true).
func bindSessionContext(ctx context.Context, tx pgx.Tx, sc domain.SessionContext) error {
	claimsJSON, err := marshalClaims(sc)
	if err != nil {
		return domain.NewInternalError(err)
	}

	if _, err := tx.Exec(ctx, `select set_config('request.jwt.claims', $1, true)`, claimsJSON); err != nil {
		return mapPgError(err)
	}
	if _, err := tx.Exec(ctx, `select set_config('role', $1, true)`, string(sc.Role)); err != nil {
		return mapPgError(err)
	}
	userID := ""
	if sc.UserID != nil {
		userID = sc.UserID.String()
	}
	if _, err := tx.Exec(ctx, `select set_config('request.jwt.claim.sub', $1, true)`, userID); err != nil {
		return mapPgError(err)
	}
	return nil
}
