package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"rentshare-backend/internal/domain"
	"rentshare-backend/internal/logger"
	"rentshare-backend/internal/repository"
)

const itemColumns = `i.id, i.owner_id, i.title, i.description, i.category, i.location, i.price_per_day_cents,
	i.security_deposit_cents, i.late_fee_per_day_cents, i.delivery_available, i.images, i.status, i.created_at, i.updated_at`

type itemRepository struct {
	db *sql.DB
}

func NewItemRepository(db *sql.DB) repository.ItemRepository {
	return &itemRepository{db: db}
}

func scanItem(row rowScanner, extra ...any) (*domain.Item, error) {
	it := &domain.Item{}
	dest := []any{&it.ID, &it.OwnerID, &it.Title, &it.Description, &it.Category, &it.Location, &it.PricePerDayCents,
		&it.SecurityDepositCents, &it.LateFeePerDayCents, &it.DeliveryAvailable, pq.Array(&it.Images), &it.Status,
		&it.CreatedAt, &it.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return it, nil
}

func (r *itemRepository) Create(ctx context.Context, it *domain.Item) error {
	now := time.Now().UTC()
	if it.Status == "" {
		it.Status = domain.ItemStatusActive
	}
	query := `INSERT INTO items (owner_id, title, description, category, location, price_per_day_cents,
	            security_deposit_cents, late_fee_per_day_cents, delivery_available, images, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING id`
	logger.DatabaseCall("INSERT", "items", "ownerID", it.OwnerID)
	err := r.db.QueryRowContext(ctx, query, it.OwnerID, it.Title, it.Description, it.Category, it.Location,
		it.PricePerDayCents, it.SecurityDepositCents, it.LateFeePerDayCents, it.DeliveryAvailable,
		imageArray(it.Images), it.Status, now, now).Scan(&it.ID)
	logger.DatabaseResult("INSERT", 1, err, "itemID", it.ID)
	if err != nil {
		return err
	}
	it.CreatedAt, it.UpdatedAt = now, now
	return nil
}

// GetByID returns a non-deleted item with a summary of its owner.
func (r *itemRepository) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	query := `SELECT ` + itemColumns + `, p.full_name, COALESCE(p.avatar_url, '')
	          FROM items i JOIN profiles p ON p.id = i.owner_id
	          WHERE i.id = $1 AND i.status <> 'deleted'`
	owner := &domain.Profile{}
	it, err := scanItem(r.db.QueryRowContext(ctx, query, id), &owner.FullName, &owner.AvatarURL)
	if err != nil {
		return nil, mapError(err, "item")
	}
	owner.ID = it.OwnerID
	it.Owner = owner
	return it, nil
}

func (r *itemRepository) Update(ctx context.Context, it *domain.Item) error {
	it.UpdatedAt = time.Now().UTC()
	query := `UPDATE items SET title = $2, description = $3, category = $4, location = $5, price_per_day_cents = $6,
	            security_deposit_cents = $7, late_fee_per_day_cents = $8, delivery_available = $9, images = $10,
	            status = $11, updated_at = $12
	          WHERE id = $1 AND status <> 'deleted'`
	res, err := r.db.ExecContext(ctx, query, it.ID, it.Title, it.Description, it.Category, it.Location,
		it.PricePerDayCents, it.SecurityDepositCents, it.LateFeePerDayCents, it.DeliveryAvailable,
		imageArray(it.Images), it.Status, it.UpdatedAt)
	if err != nil {
		return err
	}
	if ok, err := applied(res); err != nil || !ok {
		return mapError(orNoRows(err), "item")
	}
	return nil
}

// Delete soft-deletes an item so rental history keeps its reference.
func (r *itemRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE items SET status = 'deleted', updated_at = $2 WHERE id = $1 AND status <> 'deleted'`,
		id, time.Now().UTC())
	if err != nil {
		return err
	}
	if ok, err := applied(res); err != nil || !ok {
		return mapError(orNoRows(err), "item")
	}
	return nil
}

func (r *itemRepository) Search(ctx context.Context, s domain.ItemSearch) ([]domain.Item, int, error) {
	page, pageSize := s.Page, s.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	sql := `SELECT ` + itemColumns + ` FROM items i WHERE i.status = 'active'`
	args := []interface{}{}
	argIdx := 1

	if s.Query != "" {
		sql += fmt.Sprintf(" AND (i.title ILIKE $%d OR i.description ILIKE $%d)", argIdx, argIdx)
		args = append(args, "%"+s.Query+"%")
		argIdx++
	}
	if s.Category != "" {
		sql += fmt.Sprintf(" AND i.category = $%d", argIdx)
		args = append(args, s.Category)
		argIdx++
	}
	if s.Location != "" {
		sql += fmt.Sprintf(" AND i.location ILIKE $%d", argIdx)
		args = append(args, "%"+s.Location+"%")
		argIdx++
	}
	if s.MinPriceCents > 0 {
		sql += fmt.Sprintf(" AND i.price_per_day_cents >= $%d", argIdx)
		args = append(args, s.MinPriceCents)
		argIdx++
	}
	if s.MaxPriceCents > 0 {
		sql += fmt.Sprintf(" AND i.price_per_day_cents <= $%d", argIdx)
		args = append(args, s.MaxPriceCents)
		argIdx++
	}
	if s.OwnerID != "" {
		sql += fmt.Sprintf(" AND i.owner_id = $%d", argIdx)
		args = append(args, s.OwnerID)
		argIdx++
	}

	var count int
	countSql := "SELECT count(*) FROM (" + sql + ") as sub"
	if err := r.db.QueryRowContext(ctx, countSql, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	sql += fmt.Sprintf(" ORDER BY i.created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.QueryContext(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *it)
	}
	return items, count, rows.Err()
}

// images is NOT NULL; pq encodes a nil slice as NULL.
func imageArray(images []string) pq.StringArray {
	if images == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(images)
}
