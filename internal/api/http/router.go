package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"rentshare-backend/internal/metrics"
	"rentshare-backend/internal/security"
	"rentshare-backend/internal/service"
	"rentshare-backend/internal/storage"
	"rentshare-backend/internal/validator"
)

// Dependencies is everything the HTTP surface needs.
type Dependencies struct {
	Availability  service.AvailabilityService
	Rentals       service.RentalService
	Checkout      service.CheckoutService
	Agreements    service.AgreementService
	Reviews       service.ReviewService
	Messages      service.MessageService
	Items         service.ItemService
	Notifications service.NotificationService
	Telegram      service.TelegramService
	Images        service.ImageService
	Admin         service.AdminService

	Tokens    security.TokenManager
	Websocket WebsocketServer
	Validator *validator.Validator
	Metrics   *metrics.Metrics
	Limiter   *RateLimiter

	// Files is served under /files/ when set (filesystem storage only).
	Files storage.StorageInterface

	CronSecret            string
	TelegramWebhookSecret string
	MaxUploadBytes        int64
}

// NewRouter registers every named route. Route names select the security
// level in config.EndpointSecurityConfig.
func NewRouter(deps Dependencies) *mux.Router {
	d := decoder{validator: deps.Validator}

	availability := NewAvailabilityHandler(deps.Availability, d)
	rentals := NewRentalHandler(deps.Rentals, deps.Metrics, d)
	payments := NewPaymentHandler(deps.Checkout, deps.Metrics, d)
	agreements := NewAgreementHandler(deps.Agreements, deps.Metrics, d)
	reviews := NewReviewHandler(deps.Reviews, d)
	messages := NewMessageHandler(deps.Messages, deps.Websocket, d)
	items := NewItemHandler(deps.Items, d)
	notifications := NewNotificationHandler(deps.Notifications)
	telegram := NewTelegramHandler(deps.Telegram, deps.TelegramWebhookSecret, deps.Metrics)
	uploads := NewImageUploadHandler(deps.Images, deps.Files, deps.MaxUploadBytes)
	admin := NewAdminHandler(deps.Admin)
	cron := NewCronHandler(deps.Rentals, deps.Metrics)

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "Route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
	})

	if deps.Metrics != nil {
		r.Use(Instrument(deps.Metrics))
	}
	r.Use(NewAuthenticator(deps.Tokens, deps.CronSecret).Middleware)
	if deps.Limiter != nil {
		r.Use(deps.Limiter.Handler)
	}

	// Operational
	r.HandleFunc("/healthz", Health).Methods(http.MethodGet).Name("healthz")
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler()).Methods(http.MethodGet).Name("metrics")
	}
	if deps.Files != nil {
		r.HandleFunc(storage.MockStoragePrefix+"{key:.+}", uploads.HandleDownload).Methods(http.MethodGet).Name("files")
	}

	api := r.PathPrefix("/api").Subrouter()

	// Availability
	api.HandleFunc("/check-availability", availability.Check).Methods(http.MethodGet, http.MethodPost).Name("check-availability")
	api.HandleFunc("/availability-blocks", availability.ListBlocks).Methods(http.MethodGet).Name("list-blocks")
	api.HandleFunc("/availability-blocks", availability.CreateBlock).Methods(http.MethodPost).Name("create-block")
	api.HandleFunc("/availability-blocks", availability.DeleteBlock).Methods(http.MethodDelete).Name("delete-block")

	// Rental lifecycle
	api.HandleFunc("/rentals", rentals.Create).Methods(http.MethodPost).Name("create-rental")
	api.HandleFunc("/rentals", rentals.List).Methods(http.MethodGet).Name("list-rentals")
	api.HandleFunc("/rentals/{id}", rentals.Get).Methods(http.MethodGet).Name("get-rental")
	api.HandleFunc("/confirm-pickup", rentals.ConfirmPickup).Methods(http.MethodPost).Name("confirm-pickup")
	api.HandleFunc("/initiate-return", rentals.InitiateReturn).Methods(http.MethodPost).Name("initiate-return")
	api.HandleFunc("/confirm-return", rentals.ConfirmReturn).Methods(http.MethodPost).Name("confirm-return")
	api.HandleFunc("/cancel-rental", rentals.Cancel).Methods(http.MethodPost).Name("cancel-rental")

	// Agreements
	api.HandleFunc("/generate-agreement", agreements.Generate).Methods(http.MethodPost).Name("generate-agreement")
	api.HandleFunc("/accept-agreement", agreements.Accept).Methods(http.MethodPost).Name("accept-agreement")

	// Payments
	api.HandleFunc("/create-checkout-session", payments.CreateCheckoutSession).Methods(http.MethodPost).Name("create-checkout-session")
	api.HandleFunc("/stripe/connect", payments.ConnectOnboarding).Methods(http.MethodPost).Name("stripe-connect")
	api.HandleFunc("/webhooks/stripe", payments.StripeWebhook).Methods(http.MethodPost).Name("stripe-webhook")

	// Messages
	api.HandleFunc("/messages/ws", messages.Stream).Methods(http.MethodGet).Name("messages-ws")
	api.HandleFunc("/messages", messages.List).Methods(http.MethodGet).Name("list-messages")
	api.HandleFunc("/messages", messages.Send).Methods(http.MethodPost).Name("send-message")
	api.HandleFunc("/messages", messages.MarkRead).Methods(http.MethodPatch).Name("mark-messages-read")

	// Reviews
	api.HandleFunc("/reviews/stats", reviews.Stats).Methods(http.MethodGet).Name("review-stats")
	api.HandleFunc("/reviews", reviews.List).Methods(http.MethodGet).Name("list-reviews")
	api.HandleFunc("/reviews", reviews.Create).Methods(http.MethodPost).Name("create-review")

	// Items
	api.HandleFunc("/items", items.Search).Methods(http.MethodGet).Name("list-items")
	api.HandleFunc("/items", items.Create).Methods(http.MethodPost).Name("create-item")
	api.HandleFunc("/items/{id}", items.Get).Methods(http.MethodGet).Name("get-item")
	api.HandleFunc("/items/{id}", items.Update).Methods(http.MethodPatch).Name("update-item")
	api.HandleFunc("/items/{id}", items.Delete).Methods(http.MethodDelete).Name("delete-item")

	// Notifications
	api.HandleFunc("/notifications", notifications.List).Methods(http.MethodGet).Name("list-notifications")
	api.HandleFunc("/notifications/{id}/read", notifications.MarkRead).Methods(http.MethodPatch).Name("read-notification")

	// Telegram
	api.HandleFunc("/telegram/link", telegram.Link).Methods(http.MethodPost).Name("telegram-link")
	api.HandleFunc("/webhooks/telegram", telegram.Webhook).Methods(http.MethodPost).Name("telegram-webhook")

	// Uploads
	api.HandleFunc("/upload", uploads.HandleUpload).Methods(http.MethodPost).Name("upload-images")

	// Admin
	api.HandleFunc("/admin/dashboard", admin.Dashboard).Methods(http.MethodGet).Name("admin-dashboard")

	// Cron
	api.HandleFunc("/cron/telegram-reminders", cron.TelegramReminders).Methods(http.MethodGet).Name("cron-telegram-reminders")
	api.HandleFunc("/overdue-rentals", cron.OverdueRentals).Methods(http.MethodGet).Name("cron-overdue-rentals")

	return r
}

// NewHandler wraps the router with the middleware that must also see
// unmatched requests.
func NewHandler(deps Dependencies) http.Handler {
	var h http.Handler = NewRouter(deps)
	h = Recovery(h)
	h = Logging(h)
	return RequestID(h)
}

// Health reports liveness.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
