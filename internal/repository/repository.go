package repository

import (
	"context"
	"time"

	"rentshare-backend/internal/domain"
)

// RentalRepository persists rentals. Every lifecycle mutation is a conditional
// update guarded by the expected current state; the returned bool reports
// whether the row was changed.
type RentalRepository interface {
	// Create inserts a pending rental while holding the item's booking lock.
	// It fails with domain.ErrUnavailable if the dates are already taken.
	Create(ctx context.Context, rental *domain.Rental) error
	GetByID(ctx context.Context, id string) (*domain.Rental, error)
	List(ctx context.Context, filter domain.RentalFilter) ([]domain.Rental, error)

	// ListBlocking returns rentals in a blocking status whose range ends after from.
	ListBlocking(ctx context.Context, itemID string, from domain.Date) ([]domain.Rental, error)
	ListOverdue(ctx context.Context, today domain.Date) ([]domain.OverdueRental, error)
	ListPickupsOn(ctx context.Context, day domain.Date) ([]domain.Rental, error)
	ListReturnsDueOn(ctx context.Context, day domain.Date) ([]domain.Rental, error)

	// MarkPaid moves a pending rental to pending_pickup under the item's booking lock.
	// It fails with domain.ErrUnavailable if a blocking rental or block now overlaps.
	MarkPaid(ctx context.Context, id, paymentIntentID string, at time.Time) (bool, error)
	ConfirmPickup(ctx context.Context, id, by string, at time.Time) (bool, error)
	InitiateReturn(ctx context.Context, id, by string, at time.Time, lateDays int) (bool, error)
	ConfirmReturn(ctx context.Context, id string, s domain.ReturnSettlement) (bool, error)
	// Cancel moves the rental to cancelled if its status is one of from.
	// An empty payment status leaves payment_status untouched.
	Cancel(ctx context.Context, id string, from []domain.RentalStatus, reason string, payment domain.PaymentStatus) (bool, error)
	SetPaymentStatus(ctx context.Context, id string, status domain.PaymentStatus) error
	SetCheckoutSession(ctx context.Context, id, sessionID string) error

	// SaveAgreement stores the text only if none has been stored yet.
	SaveAgreement(ctx context.Context, id, text string, at time.Time) (bool, error)
	// AcceptAgreement sets the party's flag and stamps agreement_signed_at in the
	// same statement when the other party has already accepted.
	AcceptAgreement(ctx context.Context, id string, party domain.Party, at time.Time) (accepted bool, signedAt *time.Time, err error)

	NextAvailableDate(ctx context.Context, itemID string) (*domain.Date, error)
}

type ItemRepository interface {
	Create(ctx context.Context, item *domain.Item) error
	GetByID(ctx context.Context, id string) (*domain.Item, error)
	Update(ctx context.Context, item *domain.Item) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, search domain.ItemSearch) ([]domain.Item, int, error)
}

type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
	GetByTelegramChat(ctx context.Context, chatID int64) (*domain.Profile, error)
	SetStripeAccount(ctx context.Context, id, accountID string) error
	SetStripeOnboarding(ctx context.Context, accountID string, complete bool) error
	SetTelegramChat(ctx context.Context, id string, chatID *int64) error
}

type AvailabilityBlockRepository interface {
	// Create inserts the block under the item's booking lock and fails with
	// domain.ErrUnavailable if a blocking rental overlaps it.
	Create(ctx context.Context, block *domain.AvailabilityBlock) error
	GetByID(ctx context.Context, id string) (*domain.AvailabilityBlock, error)
	ListByItem(ctx context.Context, itemID string, from *domain.Date) ([]domain.AvailabilityBlock, error)
	Delete(ctx context.Context, id string) error
}

type ReviewRepository interface {
	Create(ctx context.Context, review *domain.Review) error
	List(ctx context.Context, filter domain.ReviewFilter) ([]domain.Review, error)
	Stats(ctx context.Context, filter domain.ReviewFilter) (*domain.ReviewStats, error)
}

type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	List(ctx context.Context, userID string, filter domain.MessageFilter) ([]domain.Message, error)
	MarkRead(ctx context.Context, userID string, ids []string, at time.Time) (int64, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, note *domain.Notification) error
	List(ctx context.Context, userID string, limit, offset int) ([]domain.Notification, int, error)
	MarkAsRead(ctx context.Context, id, userID string) error
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, event *domain.OutboxEvent) error
	// Claim marks up to limit pending events as processing and returns them.
	// Rows locked by another dispatcher are skipped.
	Claim(ctx context.Context, limit int, staleAfter time.Duration) ([]domain.OutboxEvent, error)
	MarkDispatched(ctx context.Context, id string) error
	// MarkFailed records the error and returns the event to pending, or to
	// failed once maxAttempts is reached. remaining replaces the recipient
	// list so a retry only reaches users who were not yet notified.
	MarkFailed(ctx context.Context, id string, remaining []string, lastErr string, maxAttempts int) error
}
