package dedup

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// OutcomeProcessing marks an event claimed by a transaction whose final
// outcome has not been written yet.
const OutcomeProcessing = "processing"

// Executor represents the subset of pgx methods required for dedup operations.
type Executor interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type Repository struct {
	executor Executor
}

func NewRepository(exec Executor) *Repository {
	return &Repository{executor: exec}
}

// WithExecutor returns a shallow copy using the provided executor (e.g., a transaction).
func (r *Repository) WithExecutor(exec Executor) *Repository {
	return &Repository{executor: exec}
}

// Claim records a provider event id. It reports false when the event was
// already recorded, in which case nothing is written.
func (r *Repository) Claim(ctx context.Context, eventID, orderID string) (bool, error) {
	tag, err := r.executor.Exec(ctx, `
		INSERT INTO processed_webhook_events (event_id, order_id, outcome)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id) DO NOTHING
	`, eventID, orderID, OutcomeProcessing)
	if err != nil {
		return false, fmt.Errorf("insert processed event: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *Repository) SetOutcome(ctx context.Context, eventID, outcome string) error {
	_, err := r.executor.Exec(ctx, `
		UPDATE processed_webhook_events
		SET outcome=$2
		WHERE event_id=$1
	`, eventID, outcome)
	if err != nil {
		return fmt.Errorf("update processed event: %w", err)
	}
	return nil
}

// Outcome returns the recorded outcome for an event. The boolean indicates
// whether the event was seen before.
func (r *Repository) Outcome(ctx context.Context, eventID string) (string, bool, error) {
	var outcome string
	if err := r.executor.QueryRow(ctx, `
		SELECT outcome
		FROM processed_webhook_events
		WHERE event_id=$1
	`, eventID).Scan(&outcome); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("select processed event: %w", err)
	}
	return outcome, true, nil
}
