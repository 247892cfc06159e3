package refnum

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Counter hands out per-tenant sequence numbers for the sequential scheme.
// The upsert increments atomically, so concurrent creates in the same
// tenant-year never see the same value.
type Counter struct {
	pool *pgxpool.Pool
}

// NewCounter creates a sequence counter backed by the refnum_counters table.
func NewCounter(pool *pgxpool.Pool) *Counter {
	return &Counter{pool: pool}
}

// Next returns the next sequence number for the tenant, prefix and year.
func (c *Counter) Next(ctx context.Context, orgID uuid.UUID, prefix string, year int) (int, error) {
	const q = `INSERT INTO refnum_counters (organization_id, prefix, year, value)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (organization_id, prefix, year) DO UPDATE SET value = refnum_counters.value + 1
		RETURNING value`
	var seq int
	err := c.pool.QueryRow(ctx, q, orgID, prefix, year).Scan(&seq)
	return seq, err
}
