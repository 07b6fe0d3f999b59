package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"rentshare-backend/internal/domain"
	"rentshare-backend/internal/logger"
	"rentshare-backend/internal/repository"
)

const (
	pqUniqueViolation    = "23505"
	pqExclusionViolation = "23P01"
	pqInvalidText        = "22P02"
)

type Store struct {
	db *sql.DB
	repository.RentalRepository
	repository.ItemRepository
	repository.ProfileRepository
	repository.AvailabilityBlockRepository
	repository.ReviewRepository
	repository.MessageRepository
	repository.NotificationRepository
	repository.OutboxRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                          db,
		RentalRepository:            NewRentalRepository(db),
		ItemRepository:              NewItemRepository(db),
		ProfileRepository:           NewProfileRepository(db),
		AvailabilityBlockRepository: NewAvailabilityBlockRepository(db),
		ReviewRepository:            NewReviewRepository(db),
		MessageRepository:           NewMessageRepository(db),
		NotificationRepository:      NewNotificationRepository(db),
		OutboxRepository:            NewOutboxRepository(db),
	}
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Open connects to postgres and verifies the connection.
func Open(ctx context.Context, dsn string, maxConns int) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(maxConns / 2)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Warn("Rollback failed", "error", rbErr)
		}
		return err
	}
	return tx.Commit()
}

// lockItem serialises bookings of one item until the transaction ends.
func lockItem(ctx context.Context, tx *sql.Tx, itemID string) error {
	_, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, itemID)
	return err
}

// rangeTaken reports whether a blocking rental or owner block overlaps [start,end).
func rangeTaken(ctx context.Context, tx *sql.Tx, itemID string, start, end domain.Date, excludeRentalID string, includeBlocks bool) (bool, error) {
	query := `SELECT EXISTS (
	            SELECT 1 FROM rentals
	            WHERE item_id = $1 AND status IN ('pending_pickup', 'active')
	              AND start_date < $3 AND end_date > $2 AND id::text <> $4
	          ) OR ($5 AND EXISTS (
	            SELECT 1 FROM availability_blocks
	            WHERE item_id = $1 AND start_date < $3 AND end_date > $2
	          ))`
	var taken bool
	err := tx.QueryRowContext(ctx, query, itemID, start, end, excludeRentalID, includeBlocks).Scan(&taken)
	return taken, err
}

// mapError translates driver errors into the domain taxonomy.
func mapError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqExclusionViolation:
			return &domain.UnavailableError{}
		case pqUniqueViolation:
			return fmt.Errorf("%s already exists: %w", what, domain.ErrValidation)
		case pqInvalidText:
			// A malformed id cannot name an existing row.
			return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
		}
	}
	return err
}

func applied(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// orNoRows turns a zero-row update into sql.ErrNoRows.
func orNoRows(err error) error {
	if err != nil {
		return err
	}
	return sql.ErrNoRows
}
