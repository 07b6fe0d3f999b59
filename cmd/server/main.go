package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rentshare-backend/internal/ai"
	httpapi "rentshare-backend/internal/api/http"
	"rentshare-backend/internal/cache"
	"rentshare-backend/internal/config"
	"rentshare-backend/internal/jobs"
	"rentshare-backend/internal/logger"
	"rentshare-backend/internal/messaging"
	"rentshare-backend/internal/metrics"
	"rentshare-backend/internal/payments"
	"rentshare-backend/internal/realtime"
	"rentshare-backend/internal/repository/postgres"
	"rentshare-backend/internal/scheduler"
	"rentshare-backend/internal/security"
	"rentshare-backend/internal/service"
	"rentshare-backend/internal/storage"
	"rentshare-backend/internal/utils"
	"rentshare-backend/internal/validator"
)

const (
	webhookDedupeTTL = 72 * time.Hour
	shutdownTimeout  = 20 * time.Second
	// room for multipart framing around the files themselves
	uploadSlack = 1 << 20
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting RentShare backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress(), "run_scheduler", cfg.Server.RunScheduler)
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)
	logger.Info("Storage configuration", "type", cfg.Storage.Type, "max_files", cfg.Storage.MaxFiles, "max_file_size_mb", cfg.Storage.MaxFileSize)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize Database
	db, err := postgres.Open(ctx, cfg.GetDatabaseConnectionString(), cfg.Database.MaxConns)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize Redis
	rdb := cache.NewRedisClient(cfg.Redis)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis is not reachable, link tokens and webhook dedupe will fail until it is", "error", err)
	}

	// Initialize Storage Service
	fileStore, err := storage.New(cfg.Storage)
	if err != nil {
		logger.Error("Failed to initialize storage", "error", err)
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	var localFiles storage.StorageInterface
	if _, ok := fileStore.(*storage.MockStorageService); ok {
		logger.Info("Serving uploaded files from local filesystem", "upload_dir", cfg.Storage.UploadDir)
		localFiles = fileStore
	}

	// Initialize external adapters
	gateway := payments.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret)
	generator := ai.NewAgreementGenerator(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	hub := realtime.NewHub()
	go hub.Run(ctx)

	channels := []service.Channel{}
	var bot service.BotSender
	botUsername := cfg.Telegram.BotUsername
	telegramSecret := cfg.Telegram.WebhookSecret
	if cfg.Telegram.BotToken != "" {
		tgBot, err := messaging.NewTelegramBot(cfg.Telegram.BotToken)
		if err != nil {
			logger.Error("Failed to initialize telegram bot", "error", err)
			log.Fatalf("Failed to initialize telegram bot: %v", err)
		}
		bot = tgBot
		if botUsername == "" {
			botUsername = tgBot.Username()
		}
		channels = append(channels, messaging.NewTelegramChannel(tgBot))
		logger.Info("Telegram bot connected", "username", botUsername)
	} else {
		// without a bot every webhook call is rejected
		telegramSecret = ""
		logger.Warn("Telegram bot token not set, telegram delivery disabled")
	}
	if sender := messaging.NewEmailSender(cfg.Email); sender != nil {
		channels = append(channels, messaging.NewEmailChannel(sender, cfg.App.BaseURL))
		logger.Info("E-mail delivery enabled", "provider", cfg.Email.Provider)
	}
	if cfg.Firebase.CredentialsFile != "" {
		pushSender, err := messaging.NewPushSender(ctx, cfg.Firebase.CredentialsFile)
		if err != nil {
			logger.Error("Failed to initialize push notifications", "error", err)
			log.Fatalf("Failed to initialize push notifications: %v", err)
		}
		channels = append(channels, messaging.NewPushChannel(pushSender))
		logger.Info("Push delivery enabled")
	}

	// Initialize Services
	fees := utils.FeePolicy{
		ServiceFeeBps:    cfg.Fees.ServiceFeeBps,
		InsuranceFeeBps:  cfg.Fees.InsuranceFeeBps,
		DeliveryFeeCents: cfg.Fees.DeliveryFeeCents,
	}
	publisher := service.NewEventPublisher(store.OutboxRepository)
	availabilitySvc := service.NewAvailabilityService(store.RentalRepository, store.AvailabilityBlockRepository, store.ItemRepository)
	rentalSvc := service.NewRentalService(
		store.RentalRepository,
		store.ItemRepository,
		store.AvailabilityBlockRepository,
		publisher,
		gateway,
		fees,
	)
	checkoutSvc := service.NewCheckoutService(
		store.RentalRepository,
		store.ItemRepository,
		store.ProfileRepository,
		gateway,
		cache.NewEventDeduper(rdb, webhookDedupeTTL),
		publisher,
		cfg.Stripe.Currency,
		cfg.App.BaseURL,
	)
	agreementSvc := service.NewAgreementService(
		store.RentalRepository,
		store.ItemRepository,
		store.ProfileRepository,
		generator,
		publisher,
	)
	reviewSvc := service.NewReviewService(store.ReviewRepository, store.RentalRepository, publisher)
	messageSvc := service.NewMessageService(
		store.MessageRepository,
		store.RentalRepository,
		store.ProfileRepository,
		hub,
		publisher,
	)
	itemSvc := service.NewItemService(store.ItemRepository)
	noteSvc := service.NewNotificationService(store.NotificationRepository)
	telegramSvc := service.NewTelegramService(
		bot,
		cache.NewLinkTokenStore(rdb),
		store.ProfileRepository,
		store.RentalRepository,
		botUsername,
	)
	imageSvc := service.NewImageService(fileStore, cfg.Storage.MaxFiles, cfg.Storage.MaxFileSize)
	adminSvc := service.NewAdminService()
	dispatcher := service.NewNotificationDispatcher(
		store.OutboxRepository,
		store.NotificationRepository,
		store.ProfileRepository,
		channels...,
	)

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Audience)

	m := metrics.New()
	limiter := httpapi.NewRateLimiter(cfg.RateLimit, m)
	limiter.StartCleanup(ctx, time.Minute)

	handler := httpapi.NewHandler(httpapi.Dependencies{
		Availability:          availabilitySvc,
		Rentals:               rentalSvc,
		Checkout:              checkoutSvc,
		Agreements:            agreementSvc,
		Reviews:               reviewSvc,
		Messages:              messageSvc,
		Items:                 itemSvc,
		Notifications:         noteSvc,
		Telegram:              telegramSvc,
		Images:                imageSvc,
		Admin:                 adminSvc,
		Tokens:                tokenManager,
		Websocket:             hub,
		Validator:             validator.New(),
		Metrics:               m,
		Limiter:               limiter,
		Files:                 localFiles,
		CronSecret:            cfg.Cron.Secret,
		TelegramWebhookSecret: telegramSecret,
		MaxUploadBytes:        int64(cfg.Storage.MaxFiles)*cfg.Storage.MaxFileSize<<20 + uploadSlack,
	})

	// In-process scheduler for single-instance deployments
	if cfg.Server.RunScheduler {
		jobRunner := jobs.NewJobRunner(&jobs.Services{Rental: rentalSvc, Dispatcher: dispatcher}, cfg, m)
		cronScheduler, err := scheduler.NewScheduler(jobRunner)
		if err != nil {
			logger.Error("Failed to initialize scheduler", "error", err)
			log.Fatalf("Failed to initialize scheduler: %v", err)
		}
		cronScheduler.Start()
		defer cronScheduler.Stop()
	}

	srv := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			logger.Error("HTTP server error", "error", err)
			log.Fatalf("Failed to serve: %v", err)
		}
	case <-ctx.Done():
	}

	// Graceful shutdown
	logger.Info("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
	logger.Info("Server stopped. Goodbye!")
}
