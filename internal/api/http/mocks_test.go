package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"rentshare-backend/internal/domain"
	"rentshare-backend/internal/metrics"
	"rentshare-backend/internal/payments"
	"rentshare-backend/internal/security"
	"rentshare-backend/internal/service"
	"rentshare-backend/internal/validator"
)

// MockAvailabilityService
type MockAvailabilityService struct {
	mock.Mock
}

func (m *MockAvailabilityService) Check(ctx context.Context, itemID string, start, end domain.Date, excludeRentalID string) (*domain.AvailabilityResult, error) {
	args := m.Called(ctx, itemID, start, end, excludeRentalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AvailabilityResult), args.Error(1)
}
func (m *MockAvailabilityService) ListBlocks(ctx context.Context, itemID string) ([]domain.AvailabilityBlock, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AvailabilityBlock), args.Error(1)
}
func (m *MockAvailabilityService) CreateBlock(ctx context.Context, ownerID string, in domain.AvailabilityBlockInput) (*domain.AvailabilityBlock, error) {
	args := m.Called(ctx, ownerID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AvailabilityBlock), args.Error(1)
}
func (m *MockAvailabilityService) DeleteBlock(ctx context.Context, ownerID, blockID string) error {
	args := m.Called(ctx, ownerID, blockID)
	return args.Error(0)
}

// MockRentalService
type MockRentalService struct {
	mock.Mock
}

func (m *MockRentalService) rental(args mock.Arguments) (*domain.Rental, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Rental), args.Error(1)
}
func (m *MockRentalService) CreateRental(ctx context.Context, renterID string, req domain.NewRentalRequest) (*domain.Rental, error) {
	return m.rental(m.Called(ctx, renterID, req))
}
func (m *MockRentalService) GetRental(ctx context.Context, userID, rentalID string) (*domain.Rental, error) {
	return m.rental(m.Called(ctx, userID, rentalID))
}
func (m *MockRentalService) ListRentals(ctx context.Context, userID string, role domain.RentalRole, status domain.RentalStatus) ([]domain.Rental, error) {
	args := m.Called(ctx, userID, role, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Rental), args.Error(1)
}
func (m *MockRentalService) ConfirmPickup(ctx context.Context, renterID, rentalID string) (*domain.Rental, error) {
	return m.rental(m.Called(ctx, renterID, rentalID))
}
func (m *MockRentalService) InitiateReturn(ctx context.Context, renterID, rentalID string) (*domain.Rental, error) {
	return m.rental(m.Called(ctx, renterID, rentalID))
}
func (m *MockRentalService) ConfirmReturn(ctx context.Context, ownerID, rentalID string, in domain.ReturnConfirmation) (*domain.Rental, error) {
	return m.rental(m.Called(ctx, ownerID, rentalID, in))
}
func (m *MockRentalService) Cancel(ctx context.Context, userID, rentalID, reason string) (*domain.Rental, error) {
	return m.rental(m.Called(ctx, userID, rentalID, reason))
}
func (m *MockRentalService) ListOverdue(ctx context.Context) ([]domain.OverdueRental, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.OverdueRental), args.Error(1)
}
func (m *MockRentalService) NotifyOverdue(ctx context.Context) ([]domain.OverdueRental, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.OverdueRental), args.Error(1)
}
func (m *MockRentalService) SendReminders(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

// MockCheckoutService
type MockCheckoutService struct {
	mock.Mock
}

func (m *MockCheckoutService) CreateCheckoutSession(ctx context.Context, renterID, rentalID string) (*payments.CheckoutSession, error) {
	args := m.Called(ctx, renterID, rentalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.CheckoutSession), args.Error(1)
}
func (m *MockCheckoutService) CreateConnectOnboarding(ctx context.Context, ownerID string) (string, error) {
	args := m.Called(ctx, ownerID)
	return args.String(0), args.Error(1)
}
func (m *MockCheckoutService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	args := m.Called(ctx, payload, signature)
	return args.Error(0)
}

// MockAgreementService
type MockAgreementService struct {
	mock.Mock
}

func (m *MockAgreementService) Generate(ctx context.Context, userID, rentalID string) (*domain.Rental, error) {
	args := m.Called(ctx, userID, rentalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Rental), args.Error(1)
}
func (m *MockAgreementService) Accept(ctx context.Context, userID, rentalID string) (*domain.Rental, error) {
	args := m.Called(ctx, userID, rentalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Rental), args.Error(1)
}

// MockReviewService
type MockReviewService struct {
	mock.Mock
}

func (m *MockReviewService) Create(ctx context.Context, reviewerID string, in domain.ReviewInput) (*domain.Review, error) {
	args := m.Called(ctx, reviewerID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}
func (m *MockReviewService) List(ctx context.Context, filter domain.ReviewFilter) ([]domain.Review, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Review), args.Error(1)
}
func (m *MockReviewService) Stats(ctx context.Context, filter domain.ReviewFilter) (*domain.ReviewStats, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReviewStats), args.Error(1)
}

// MockMessageService
type MockMessageService struct {
	mock.Mock
}

func (m *MockMessageService) Send(ctx context.Context, senderID string, in domain.MessageInput) (*domain.Message, error) {
	args := m.Called(ctx, senderID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}
func (m *MockMessageService) List(ctx context.Context, userID string, filter domain.MessageFilter) ([]domain.Message, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Message), args.Error(1)
}
func (m *MockMessageService) MarkRead(ctx context.Context, userID string, ids []string) (int64, error) {
	args := m.Called(ctx, userID, ids)
	return args.Get(0).(int64), args.Error(1)
}

// MockItemService
type MockItemService struct {
	mock.Mock
}

func (m *MockItemService) Create(ctx context.Context, ownerID string, in domain.ItemInput) (*domain.Item, error) {
	args := m.Called(ctx, ownerID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Item), args.Error(1)
}
func (m *MockItemService) Get(ctx context.Context, id string) (*domain.Item, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Item), args.Error(1)
}
func (m *MockItemService) Update(ctx context.Context, ownerID, id string, in domain.ItemInput) (*domain.Item, error) {
	args := m.Called(ctx, ownerID, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Item), args.Error(1)
}
func (m *MockItemService) Delete(ctx context.Context, ownerID, id string) error {
	args := m.Called(ctx, ownerID, id)
	return args.Error(0)
}
func (m *MockItemService) Search(ctx context.Context, search domain.ItemSearch) ([]domain.Item, int, error) {
	args := m.Called(ctx, search)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Item), args.Int(1), args.Error(2)
}

// MockNotificationService
type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) GetNotifications(ctx context.Context, userID string, page, pageSize int) ([]domain.Notification, int, error) {
	args := m.Called(ctx, userID, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Notification), args.Int(1), args.Error(2)
}
func (m *MockNotificationService) MarkAsRead(ctx context.Context, userID, notificationID string) error {
	args := m.Called(ctx, userID, notificationID)
	return args.Error(0)
}

// MockTelegramService
type MockTelegramService struct {
	mock.Mock
}

func (m *MockTelegramService) CreateLinkToken(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}
func (m *MockTelegramService) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	args := m.Called(ctx, update)
	return args.Error(0)
}

// MockImageService
type MockImageService struct {
	mock.Mock
}

func (m *MockImageService) Upload(ctx context.Context, userID string, files []service.UploadFile) ([]string, error) {
	args := m.Called(ctx, userID, files)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockAdminService
type MockAdminService struct {
	mock.Mock
}

func (m *MockAdminService) Dashboard(ctx context.Context) (*domain.AdminDashboard, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AdminDashboard), args.Error(1)
}

// MockWebsocket
type MockWebsocket struct {
	mock.Mock
}

func (m *MockWebsocket) ServeWS(w http.ResponseWriter, r *http.Request, userID string) {
	m.Called(userID)
	w.WriteHeader(http.StatusSwitchingProtocols)
}

const (
	testJWTSecret  = "test-jwt-secret"
	testAudience   = "authenticated"
	testCronSecret = "cron-secret"
	testTGSecret   = "tg-secret"
)

type testServer struct {
	handler       http.Handler
	tokens        security.TokenManager
	availability  *MockAvailabilityService
	rentals       *MockRentalService
	checkout      *MockCheckoutService
	agreements    *MockAgreementService
	reviews       *MockReviewService
	messages      *MockMessageService
	items         *MockItemService
	notifications *MockNotificationService
	telegram      *MockTelegramService
	images        *MockImageService
	admin         *MockAdminService
	ws            *MockWebsocket
	metrics       *metrics.Metrics
}

func newTestServer(t *testing.T, opts ...func(*Dependencies)) *testServer {
	t.Helper()
	ts := &testServer{
		tokens:        security.NewTokenManager(testJWTSecret, testAudience),
		availability:  new(MockAvailabilityService),
		rentals:       new(MockRentalService),
		checkout:      new(MockCheckoutService),
		agreements:    new(MockAgreementService),
		reviews:       new(MockReviewService),
		messages:      new(MockMessageService),
		items:         new(MockItemService),
		notifications: new(MockNotificationService),
		telegram:      new(MockTelegramService),
		images:        new(MockImageService),
		admin:         new(MockAdminService),
		ws:            new(MockWebsocket),
		metrics:       metrics.New(),
	}
	deps := Dependencies{
		Availability:          ts.availability,
		Rentals:               ts.rentals,
		Checkout:              ts.checkout,
		Agreements:            ts.agreements,
		Reviews:               ts.reviews,
		Messages:              ts.messages,
		Items:                 ts.items,
		Notifications:         ts.notifications,
		Telegram:              ts.telegram,
		Images:                ts.images,
		Admin:                 ts.admin,
		Tokens:                ts.tokens,
		Websocket:             ts.ws,
		Validator:             validator.New(),
		Metrics:               ts.metrics,
		CronSecret:            testCronSecret,
		TelegramWebhookSecret: testTGSecret,
		MaxUploadBytes:        60 << 20,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	ts.handler = NewHandler(deps)
	return ts
}

func (ts *testServer) token(t *testing.T, userID string, admin bool) string {
	t.Helper()
	tok, err := ts.tokens.GenerateAccessToken(userID, userID+"@example.com", admin, time.Hour)
	require.NoError(t, err)
	return tok
}

// do sends req through the full handler chain. A non-empty userID signs the request.
func (ts *testServer) do(t *testing.T, req *http.Request, userID string) *httptest.ResponseRecorder {
	t.Helper()
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+ts.token(t, userID, false))
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}
