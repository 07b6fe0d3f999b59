package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"rentshare-backend/internal/domain"
	"rentshare-backend/internal/repository"
)

type messageRepository struct {
	db *sql.DB
}

func NewMessageRepository(db *sql.DB) repository.MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, m *domain.Message) error {
	m.CreatedAt = time.Now().UTC()
	query := `INSERT INTO messages (sender_id, recipient_id, rental_id, body, created_at)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id`
	return r.db.QueryRowContext(ctx, query, m.SenderID, m.RecipientID, m.RentalID, m.Body, m.CreatedAt).Scan(&m.ID)
}

// List returns messages the user sent or received, newest first.
func (r *messageRepository) List(ctx context.Context, userID string, f domain.MessageFilter) ([]domain.Message, error) {
	query := `SELECT id, sender_id, recipient_id, rental_id, body, read_at, created_at
	          FROM messages WHERE (sender_id = $1 OR recipient_id = $1)`
	args := []any{userID}
	if f.WithUserID != "" {
		args = append(args, f.WithUserID)
		query += fmt.Sprintf(" AND (sender_id = $%d OR recipient_id = $%d)", len(args), len(args))
	}
	if f.RentalID != "" {
		args = append(args, f.RentalID)
		query += fmt.Sprintf(" AND rental_id = $%d", len(args))
	}
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.RentalID, &m.Body, &m.ReadAt, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// MarkRead stamps read_at on the given messages addressed to userID.
func (r *messageRepository) MarkRead(ctx context.Context, userID string, ids []string, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET read_at = $3
	    WHERE recipient_id = $1 AND id::text = ANY($2) AND read_at IS NULL`, userID, pq.Array(ids), at)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
