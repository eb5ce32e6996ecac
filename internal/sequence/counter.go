// Package sequence numbers the enveloped events of each order so consumers
// can spot gaps and reordering.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

var ErrEmptyKey = errors.New("sequence: empty partition key")

// Querier is the part of *pgxpool.Pool the counter uses.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Counter hands out 1, 2, 3 ... per partition key.
type Counter struct {
	db Querier
}

func NewCounter(db Querier) *Counter {
	return &Counter{db: db}
}

const bump = `
	INSERT INTO event_sequence AS s (partition_key, last_sequence)
	VALUES ($1, 1)
	ON CONFLICT (partition_key)
	DO UPDATE SET last_sequence = s.last_sequence + 1, updated_at = now()
	RETURNING s.last_sequence`

// Next reserves the next number for partitionKey. The upsert holds the row
// lock until it returns, so two publishers never share a number.
func (c *Counter) Next(ctx context.Context, partitionKey string) (int64, error) {
	if strings.TrimSpace(partitionKey) == "" {
		return 0, ErrEmptyKey
	}
	var n int64
	if err := c.db.QueryRow(ctx, bump, partitionKey).Scan(&n); err != nil {
		return 0, fmt.Errorf("sequence %s: %w", partitionKey, err)
	}
	return n, nil
}
