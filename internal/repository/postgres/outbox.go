package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"rentshare-backend/internal/domain"
	"rentshare-backend/internal/logger"
	"rentshare-backend/internal/repository"
)

type outboxRepository struct {
	db *sql.DB
}

func NewOutboxRepository(db *sql.DB) repository.OutboxRepository {
	return &outboxRepository{db: db}
}

func (r *outboxRepository) Enqueue(ctx context.Context, ev *domain.OutboxEvent) error {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	ev.Status = domain.OutboxStatusPending
	ev.CreatedAt = time.Now().UTC()

	var rentalID sql.NullString
	if ev.RentalID != "" {
		rentalID = sql.NullString{String: ev.RentalID, Valid: true}
	}

	query := `INSERT INTO notification_outbox (event_type, rental_id, recipients, title, body, payload, status, attempts, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8) RETURNING id`
	logger.DatabaseCall("INSERT", "notification_outbox", "type", ev.Type, "rentalID", ev.RentalID)
	err = r.db.QueryRowContext(ctx, query, ev.Type, rentalID, pq.Array(ev.Recipients), ev.Title, ev.Body, payload, ev.Status, ev.CreatedAt).
		Scan(&ev.ID)
	logger.DatabaseResult("INSERT", 1, err, "eventID", ev.ID)
	return err
}

// Claim takes pending events, plus processing events whose claim is older
// than staleAfter, in one statement.
func (r *outboxRepository) Claim(ctx context.Context, limit int, staleAfter time.Duration) ([]domain.OutboxEvent, error) {
	now := time.Now().UTC()
	query := `UPDATE notification_outbox SET status = 'processing', attempts = attempts + 1, claimed_at = $1
	          WHERE id IN (
	            SELECT id FROM notification_outbox
	            WHERE status = 'pending' OR (status = 'processing' AND claimed_at < $2)
	            ORDER BY created_at
	            LIMIT $3
	            FOR UPDATE SKIP LOCKED
	          )
	          RETURNING id, event_type, COALESCE(rental_id::text, ''), recipients, title, body, payload, status, attempts,
	                    COALESCE(last_error, ''), created_at`
	rows, err := r.db.QueryContext(ctx, query, now, now.Add(-staleAfter), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.OutboxEvent
	for rows.Next() {
		var ev domain.OutboxEvent
		var payload []byte
		if err := rows.Scan(&ev.ID, &ev.Type, &ev.RentalID, pq.Array(&ev.Recipients), &ev.Title, &ev.Body, &payload,
			&ev.Status, &ev.Attempts, &ev.LastError, &ev.CreatedAt); err != nil {
			return nil, err
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &ev.Payload); err != nil {
				return nil, fmt.Errorf("event %s payload: %w", ev.ID, err)
			}
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (r *outboxRepository) MarkDispatched(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE notification_outbox SET status = 'dispatched', dispatched_at = $2 WHERE id = $1`,
		id, time.Now().UTC())
	return err
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id string, remaining []string, lastErr string, maxAttempts int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE notification_outbox
	    SET status = CASE WHEN attempts >= $3 THEN 'failed' ELSE 'pending' END, last_error = $2, recipients = $4
	    WHERE id = $1`, id, lastErr, maxAttempts, pq.Array(remaining))
	return err
}
