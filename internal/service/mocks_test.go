package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"rentshare-backend/internal/ai"
	"rentshare-backend/internal/domain"
	"rentshare-backend/internal/messaging"
	"rentshare-backend/internal/payments"
)

// MockRentalRepo
type MockRentalRepo struct {
	mock.Mock
}

func (m *MockRentalRepo) Create(ctx context.Context, rental *domain.Rental) error {
	args := m.Called(ctx, rental)
	return args.Error(0)
}
func (m *MockRentalRepo) GetByID(ctx context.Context, id string) (*domain.Rental, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Rental), args.Error(1)
}
func (m *MockRentalRepo) List(ctx context.Context, filter domain.RentalFilter) ([]domain.Rental, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Rental), args.Error(1)
}
func (m *MockRentalRepo) ListBlocking(ctx context.Context, itemID string, from domain.Date) ([]domain.Rental, error) {
	args := m.Called(ctx, itemID, from)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Rental), args.Error(1)
}
func (m *MockRentalRepo) ListOverdue(ctx context.Context, today domain.Date) ([]domain.OverdueRental, error) {
	args := m.Called(ctx, today)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.OverdueRental), args.Error(1)
}
func (m *MockRentalRepo) ListPickupsOn(ctx context.Context, day domain.Date) ([]domain.Rental, error) {
	args := m.Called(ctx, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Rental), args.Error(1)
}
func (m *MockRentalRepo) ListReturnsDueOn(ctx context.Context, day domain.Date) ([]domain.Rental, error) {
	args := m.Called(ctx, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Rental), args.Error(1)
}
func (m *MockRentalRepo) MarkPaid(ctx context.Context, id, paymentIntentID string, at time.Time) (bool, error) {
	args := m.Called(ctx, id, paymentIntentID, at)
	return args.Bool(0), args.Error(1)
}
func (m *MockRentalRepo) ConfirmPickup(ctx context.Context, id, by string, at time.Time) (bool, error) {
	args := m.Called(ctx, id, by, at)
	return args.Bool(0), args.Error(1)
}
func (m *MockRentalRepo) InitiateReturn(ctx context.Context, id, by string, at time.Time, lateDays int) (bool, error) {
	args := m.Called(ctx, id, by, at, lateDays)
	return args.Bool(0), args.Error(1)
}
func (m *MockRentalRepo) ConfirmReturn(ctx context.Context, id string, s domain.ReturnSettlement) (bool, error) {
	args := m.Called(ctx, id, s)
	return args.Bool(0), args.Error(1)
}
func (m *MockRentalRepo) Cancel(ctx context.Context, id string, from []domain.RentalStatus, reason string, payment domain.PaymentStatus) (bool, error) {
	args := m.Called(ctx, id, from, reason, payment)
	return args.Bool(0), args.Error(1)
}
func (m *MockRentalRepo) SetPaymentStatus(ctx context.Context, id string, status domain.PaymentStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}
func (m *MockRentalRepo) SetCheckoutSession(ctx context.Context, id, sessionID string) error {
	args := m.Called(ctx, id, sessionID)
	return args.Error(0)
}
func (m *MockRentalRepo) SaveAgreement(ctx context.Context, id, text string, at time.Time) (bool, error) {
	args := m.Called(ctx, id, text, at)
	return args.Bool(0), args.Error(1)
}
func (m *MockRentalRepo) AcceptAgreement(ctx context.Context, id string, party domain.Party, at time.Time) (bool, *time.Time, error) {
	args := m.Called(ctx, id, party, at)
	var signedAt *time.Time
	if v := args.Get(1); v != nil {
		signedAt = v.(*time.Time)
	}
	return args.Bool(0), signedAt, args.Error(2)
}
func (m *MockRentalRepo) NextAvailableDate(ctx context.Context, itemID string) (*domain.Date, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Date), args.Error(1)
}

// MockItemRepo
type MockItemRepo struct {
	mock.Mock
}

func (m *MockItemRepo) Create(ctx context.Context, item *domain.Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}
func (m *MockItemRepo) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Item), args.Error(1)
}
func (m *MockItemRepo) Update(ctx context.Context, item *domain.Item) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}
func (m *MockItemRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockItemRepo) Search(ctx context.Context, search domain.ItemSearch) ([]domain.Item, int, error) {
	args := m.Called(ctx, search)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.Item), args.Int(1), args.Error(2)
}

// MockProfileRepo
type MockProfileRepo struct {
	mock.Mock
}

func (m *MockProfileRepo) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}
func (m *MockProfileRepo) GetByTelegramChat(ctx context.Context, chatID int64) (*domain.Profile, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}
func (m *MockProfileRepo) SetStripeAccount(ctx context.Context, id, accountID string) error {
	args := m.Called(ctx, id, accountID)
	return args.Error(0)
}
func (m *MockProfileRepo) SetStripeOnboarding(ctx context.Context, accountID string, complete bool) error {
	args := m.Called(ctx, accountID, complete)
	return args.Error(0)
}
func (m *MockProfileRepo) SetTelegramChat(ctx context.Context, id string, chatID *int64) error {
	args := m.Called(ctx, id, chatID)
	return args.Error(0)
}

// MockBlockRepo
type MockBlockRepo struct {
	mock.Mock
}

func (m *MockBlockRepo) Create(ctx context.Context, block *domain.AvailabilityBlock) error {
	args := m.Called(ctx, block)
	return args.Error(0)
}
func (m *MockBlockRepo) GetByID(ctx context.Context, id string) (*domain.AvailabilityBlock, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AvailabilityBlock), args.Error(1)
}
func (m *MockBlockRepo) ListByItem(ctx context.Context, itemID string, from *domain.Date) ([]domain.AvailabilityBlock, error) {
	args := m.Called(ctx, itemID, from)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AvailabilityBlock), args.Error(1)
}
func (m *MockBlockRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockReviewRepo
type MockReviewRepo struct {
	mock.Mock
}

func (m *MockReviewRepo) Create(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}
func (m *MockReviewRepo) List(ctx context.Context, filter domain.ReviewFilter) ([]domain.Review, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Review), args.Error(1)
}
func (m *MockReviewRepo) Stats(ctx context.Context, filter domain.ReviewFilter) (*domain.ReviewStats, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReviewStats), args.Error(1)
}

// MockMessageRepo
type MockMessageRepo struct {
	mock.Mock
}

func (m *MockMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}
func (m *MockMessageRepo) List(ctx context.Context, userID string, filter domain.MessageFilter) ([]domain.Message, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Message), args.Error(1)
}
func (m *MockMessageRepo) MarkRead(ctx context.Context, userID string, ids []string, at time.Time) (int64, error) {
	args := m.Called(ctx, userID, ids, at)
	return args.Get(0).(int64), args.Error(1)
}

// MockNotificationRepo
type MockNotificationRepo struct {
	mock.Mock
}

func (m *MockNotificationRepo) Create(ctx context.Context, note *domain.Notification) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}
func (m *MockNotificationRepo) List(ctx context.Context, userID string, limit, offset int) ([]domain.Notification, int, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.Notification), args.Int(1), args.Error(2)
}
func (m *MockNotificationRepo) MarkAsRead(ctx context.Context, id, userID string) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

// MockOutboxRepo
type MockOutboxRepo struct {
	mock.Mock
}

func (m *MockOutboxRepo) Enqueue(ctx context.Context, event *domain.OutboxEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
func (m *MockOutboxRepo) Claim(ctx context.Context, limit int, staleAfter time.Duration) ([]domain.OutboxEvent, error) {
	args := m.Called(ctx, limit, staleAfter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.OutboxEvent), args.Error(1)
}
func (m *MockOutboxRepo) MarkDispatched(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockOutboxRepo) MarkFailed(ctx context.Context, id string, remaining []string, lastErr string, maxAttempts int) error {
	args := m.Called(ctx, id, remaining, lastErr, maxAttempts)
	return args.Error(0)
}

// MockGateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateCheckoutSession(ctx context.Context, p payments.CheckoutParams) (*payments.CheckoutSession, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.CheckoutSession), args.Error(1)
}
func (m *MockGateway) CreateConnectAccount(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}
func (m *MockGateway) CreateAccountLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	args := m.Called(ctx, accountID, refreshURL, returnURL)
	return args.String(0), args.Error(1)
}
func (m *MockGateway) Refund(ctx context.Context, paymentIntentID string, amountCents int64) error {
	args := m.Called(ctx, paymentIntentID, amountCents)
	return args.Error(0)
}
func (m *MockGateway) ParseWebhook(payload []byte, signature string) (*payments.Event, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.Event), args.Error(1)
}

// MockGenerator
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, in ai.AgreementInput) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}

// MockTokenStore
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) Put(ctx context.Context, token, userID string, ttl time.Duration) error {
	args := m.Called(ctx, token, userID, ttl)
	return args.Error(0)
}
func (m *MockTokenStore) Consume(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

// MockDeduper
type MockDeduper struct {
	mock.Mock
}

func (m *MockDeduper) FirstSeen(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}
func (m *MockDeduper) Forget(ctx context.Context, eventID string) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

// MockBroadcaster
type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) SendToUser(userID, eventType string, data any) error {
	args := m.Called(userID, eventType, data)
	return args.Error(0)
}

// MockBot
type MockBot struct {
	mock.Mock
}

func (m *MockBot) SendText(ctx context.Context, chatID int64, text string, buttons []messaging.Button) error {
	args := m.Called(ctx, chatID, text, buttons)
	return args.Error(0)
}
func (m *MockBot) AnswerCallback(ctx context.Context, callbackID, text string) error {
	args := m.Called(ctx, callbackID, text)
	return args.Error(0)
}

// MockChannel
type MockChannel struct {
	mock.Mock
}

func (m *MockChannel) Name() string { return "mock" }
func (m *MockChannel) Deliver(ctx context.Context, p *domain.Profile, ev *domain.OutboxEvent) error {
	args := m.Called(ctx, p, ev)
	return args.Error(0)
}

// MockPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, ev *domain.OutboxEvent) {
	m.Called(ctx, ev)
}

// published returns the event types recorded by a MockPublisher.
func (m *MockPublisher) published() []domain.EventType {
	var types []domain.EventType
	for _, c := range m.Calls {
		if c.Method == "Publish" {
			types = append(types, c.Arguments.Get(1).(*domain.OutboxEvent).Type)
		}
	}
	return types
}

// fixedNow pins a service clock.
func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
