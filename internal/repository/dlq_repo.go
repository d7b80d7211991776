package repository

import (
	"context"
	"fmt"

	"recipebox/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DeadLetterRepository stores webhook events that could not be applied so
// they can be replayed by hand.
type DeadLetterRepository interface {
	Create(ctx context.Context, event *model.DeadLetterEvent) error
}

type deadLetterRepo struct {
	pool *pgxpool.Pool
}

func NewDeadLetterRepo(pool *pgxpool.Pool) DeadLetterRepository {
	return &deadLetterRepo{pool: pool}
}

func (r *deadLetterRepo) Create(ctx context.Context, event *model.DeadLetterEvent) error {
	const q = `
        INSERT INTO billing_dead_letters (provider, event_id, event_type, payload, error, status)
        VALUES ($1, $2, $3, $4::jsonb, $5, $6)
        ON CONFLICT (provider, event_id) DO UPDATE
        SET error = EXCLUDED.error,
            status = EXCLUDED.status,
            updated_at = NOW()
    `
	_, err := r.pool.Exec(ctx, q,
		event.Provider,
		event.EventID,
		event.EventType,
		event.Payload,
		event.Error,
		event.Status,
	)
	if err != nil {
		return fmt.Errorf("record dead letter %s: %w", event.EventID, err)
	}
	return nil
}
