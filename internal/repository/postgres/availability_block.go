package postgres

import (
	"context"
	"database/sql"
	"time"

	"rentshare-backend/internal/domain"
	"rentshare-backend/internal/logger"
	"rentshare-backend/internal/repository"
)

const blockColumns = `id, item_id, owner_id, start_date, end_date, COALESCE(reason, ''), COALESCE(notes, ''), created_at`

type availabilityBlockRepository struct {
	db *sql.DB
}

func NewAvailabilityBlockRepository(db *sql.DB) repository.AvailabilityBlockRepository {
	return &availabilityBlockRepository{db: db}
}

func scanBlock(row rowScanner) (*domain.AvailabilityBlock, error) {
	b := &domain.AvailabilityBlock{}
	if err := row.Scan(&b.ID, &b.ItemID, &b.OwnerID, &b.StartDate, &b.EndDate, &b.Reason, &b.Notes, &b.CreatedAt); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *availabilityBlockRepository) Create(ctx context.Context, b *domain.AvailabilityBlock) error {
	logger.DatabaseCall("INSERT", "availability_blocks", "itemID", b.ItemID)
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := lockItem(ctx, tx, b.ItemID); err != nil {
			return err
		}
		taken, err := rangeTaken(ctx, tx, b.ItemID, b.StartDate, b.EndDate, "", false)
		if err != nil {
			return err
		}
		if taken {
			return &domain.UnavailableError{}
		}
		b.CreatedAt = time.Now().UTC()
		return tx.QueryRowContext(ctx, `INSERT INTO availability_blocks (item_id, owner_id, start_date, end_date, reason, notes, created_at)
		    VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
			b.ItemID, b.OwnerID, b.StartDate, b.EndDate, b.Reason, b.Notes, b.CreatedAt).Scan(&b.ID)
	})
	logger.DatabaseResult("INSERT", 1, err, "blockID", b.ID)
	return mapError(err, "availability block")
}

func (r *availabilityBlockRepository) GetByID(ctx context.Context, id string) (*domain.AvailabilityBlock, error) {
	b, err := scanBlock(r.db.QueryRowContext(ctx, `SELECT `+blockColumns+` FROM availability_blocks WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, "availability block")
	}
	return b, nil
}

// ListByItem returns the item's blocks ordered by start date, optionally only
// those ending after from.
func (r *availabilityBlockRepository) ListByItem(ctx context.Context, itemID string, from *domain.Date) ([]domain.AvailabilityBlock, error) {
	query := `SELECT ` + blockColumns + ` FROM availability_blocks WHERE item_id = $1`
	args := []any{itemID}
	if from != nil {
		query += ` AND end_date > $2`
		args = append(args, *from)
	}
	query += ` ORDER BY start_date`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blocks []domain.AvailabilityBlock
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, *b)
	}
	return blocks, rows.Err()
}

func (r *availabilityBlockRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM availability_blocks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ok, err := applied(res); err != nil || !ok {
		return mapError(orNoRows(err), "availability block")
	}
	return nil
}
