package service

import (
	"context"
	"io"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"rentshare-backend/internal/ai"
	"rentshare-backend/internal/domain"
	"rentshare-backend/internal/messaging"
	"rentshare-backend/internal/payments"
)

type AvailabilityService interface {
	Check(ctx context.Context, itemID string, start, end domain.Date, excludeRentalID string) (*domain.AvailabilityResult, error)
	ListBlocks(ctx context.Context, itemID string) ([]domain.AvailabilityBlock, error)
	CreateBlock(ctx context.Context, ownerID string, in domain.AvailabilityBlockInput) (*domain.AvailabilityBlock, error)
	DeleteBlock(ctx context.Context, ownerID, blockID string) error
}

type RentalService interface {
	CreateRental(ctx context.Context, renterID string, req domain.NewRentalRequest) (*domain.Rental, error)
	GetRental(ctx context.Context, userID, rentalID string) (*domain.Rental, error)
	ListRentals(ctx context.Context, userID string, role domain.RentalRole, status domain.RentalStatus) ([]domain.Rental, error)
	ConfirmPickup(ctx context.Context, renterID, rentalID string) (*domain.Rental, error)
	InitiateReturn(ctx context.Context, renterID, rentalID string) (*domain.Rental, error)
	ConfirmReturn(ctx context.Context, ownerID, rentalID string, in domain.ReturnConfirmation) (*domain.Rental, error)
	Cancel(ctx context.Context, userID, rentalID, reason string) (*domain.Rental, error)
	ListOverdue(ctx context.Context) ([]domain.OverdueRental, error)
	// NotifyOverdue lists overdue rentals and queues a notice for each renter and owner.
	NotifyOverdue(ctx context.Context) ([]domain.OverdueRental, error)
	// SendReminders queues reminders for pickups and returns due tomorrow.
	SendReminders(ctx context.Context) (int, error)
}

type CheckoutService interface {
	CreateCheckoutSession(ctx context.Context, renterID, rentalID string) (*payments.CheckoutSession, error)
	CreateConnectOnboarding(ctx context.Context, ownerID string) (string, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type AgreementService interface {
	Generate(ctx context.Context, userID, rentalID string) (*domain.Rental, error)
	Accept(ctx context.Context, userID, rentalID string) (*domain.Rental, error)
}

type ReviewService interface {
	Create(ctx context.Context, reviewerID string, in domain.ReviewInput) (*domain.Review, error)
	List(ctx context.Context, filter domain.ReviewFilter) ([]domain.Review, error)
	Stats(ctx context.Context, filter domain.ReviewFilter) (*domain.ReviewStats, error)
}

type MessageService interface {
	Send(ctx context.Context, senderID string, in domain.MessageInput) (*domain.Message, error)
	List(ctx context.Context, userID string, filter domain.MessageFilter) ([]domain.Message, error)
	MarkRead(ctx context.Context, userID string, ids []string) (int64, error)
}

type ItemService interface {
	Create(ctx context.Context, ownerID string, in domain.ItemInput) (*domain.Item, error)
	Get(ctx context.Context, id string) (*domain.Item, error)
	Update(ctx context.Context, ownerID, id string, in domain.ItemInput) (*domain.Item, error)
	Delete(ctx context.Context, ownerID, id string) error
	Search(ctx context.Context, search domain.ItemSearch) ([]domain.Item, int, error)
}

type NotificationService interface {
	GetNotifications(ctx context.Context, userID string, page, pageSize int) ([]domain.Notification, int, error)
	MarkAsRead(ctx context.Context, userID, notificationID string) error
}

// DispatchStats summarises one outbox dispatch pass.
type DispatchStats struct {
	Claimed    int
	Dispatched int
	Failed     int
}

type NotificationDispatcher interface {
	DispatchPending(ctx context.Context) (DispatchStats, error)
}

type TelegramService interface {
	CreateLinkToken(ctx context.Context, userID string) (string, error)
	HandleUpdate(ctx context.Context, update tgbotapi.Update) error
}

// UploadFile is one part of a multipart image upload.
type UploadFile struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

type ImageService interface {
	Upload(ctx context.Context, userID string, files []UploadFile) ([]string, error)
}

type AdminService interface {
	Dashboard(ctx context.Context) (*domain.AdminDashboard, error)
}

// External collaborators, satisfied by the adapters in payments, ai,
// messaging, cache and realtime.

type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, p payments.CheckoutParams) (*payments.CheckoutSession, error)
	CreateConnectAccount(ctx context.Context, email string) (string, error)
	CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error)
	Refund(ctx context.Context, paymentIntentID string, amountCents int64) error
	ParseWebhook(payload []byte, signature string) (*payments.Event, error)
}

type AgreementGenerator interface {
	Generate(ctx context.Context, in ai.AgreementInput) (string, error)
}

type LinkTokenStore interface {
	Put(ctx context.Context, token, userID string, ttl time.Duration) error
	Consume(ctx context.Context, token string) (string, error)
}

type EventDeduper interface {
	FirstSeen(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

type Broadcaster interface {
	SendToUser(userID, eventType string, data any) error
}

type BotSender interface {
	SendText(ctx context.Context, chatID int64, text string, buttons []messaging.Button) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// Channel delivers an outbox event to one recipient over an external medium.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, p *domain.Profile, ev *domain.OutboxEvent) error
}

// EventPublisher records notification intents. It never fails the caller.
type EventPublisher interface {
	Publish(ctx context.Context, ev *domain.OutboxEvent)
}
