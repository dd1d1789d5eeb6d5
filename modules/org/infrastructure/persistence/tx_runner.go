package persistence

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/f3nation/f3map/pkg/composables"
)

// PoolTxRunner opens transactions on a fixed pool, so callers outside an HTTP
// request (the admin CLI, tests) do not need the pool in their context.
type PoolTxRunner struct {
	pool *pgxpool.Pool
}

func NewPoolTxRunner(pool *pgxpool.Pool) *PoolTxRunner {
	return &PoolTxRunner{pool: pool}
}

func (r *PoolTxRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, err := composables.UsePool(ctx); err != nil && r.pool != nil {
		ctx = composables.WithPool(ctx, r.pool)
	}
	return composables.InTx(ctx, fn)
}

// WithPool returns ctx carrying the runner's pool for reads outside a transaction.
func (r *PoolTxRunner) WithPool(ctx context.Context) context.Context {
	if r.pool == nil {
		return ctx
	}
	return composables.WithPool(ctx, r.pool)
}
