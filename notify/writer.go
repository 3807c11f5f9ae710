package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Writer persists an in-app notification.
type Writer interface {
	Write(ctx context.Context, n Notification) error
}

// PGWriter writes notifications into the notifications table.
type PGWriter struct {
	pool *pgxpool.Pool
}

func NewPGWriter(pool *pgxpool.Pool) *PGWriter {
	return &PGWriter{pool: pool}
}

func (w *PGWriter) Write(ctx context.Context, n Notification) error {
	if n.RecipientID == "" {
		return fmt.Errorf("notify: missing recipient id")
	}
	if n.CaseID == "" {
		return fmt.Errorf("notify: missing case id")
	}

	const query = `
		INSERT INTO notifications (id, recipient_id, recipient_type, case_id, category, title, message)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if _, err := w.pool.Exec(ctx, query,
		uuid.NewString(),
		n.RecipientID,
		n.RecipientType,
		n.CaseID,
		n.Category,
		n.Title,
		n.Message,
	); err != nil {
		return fmt.Errorf("notify: insert notification: %w", err)
	}
	return nil
}
