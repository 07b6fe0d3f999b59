package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"rentshare-backend/internal/config"
	"rentshare-backend/internal/jobs"
	"rentshare-backend/internal/logger"
	"rentshare-backend/internal/messaging"
	"rentshare-backend/internal/metrics"
	"rentshare-backend/internal/payments"
	"rentshare-backend/internal/repository/postgres"
	"rentshare-backend/internal/scheduler"
	"rentshare-backend/internal/service"
	"rentshare-backend/internal/utils"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'dispatch-outbox', 'send-rental-reminders', 'all')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting RentShare cronjob runner...", "log_level", cfg.Log.Level)

	ctx := context.Background()

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
	db, err := postgres.Open(ctx, cfg.GetDatabaseConnectionString(), cfg.Database.MaxConns)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Delivery channels
	var channels []service.Channel
	if cfg.Telegram.BotToken != "" {
		bot, err := messaging.NewTelegramBot(cfg.Telegram.BotToken)
		if err != nil {
			logger.Error("Failed to initialize telegram bot", "error", err)
			log.Fatalf("Failed to initialize telegram bot: %v", err)
		}
		channels = append(channels, messaging.NewTelegramChannel(bot))
	}
	if sender := messaging.NewEmailSender(cfg.Email); sender != nil {
		channels = append(channels, messaging.NewEmailChannel(sender, cfg.App.BaseURL))
	}
	if cfg.Firebase.CredentialsFile != "" {
		pushSender, err := messaging.NewPushSender(ctx, cfg.Firebase.CredentialsFile)
		if err != nil {
			logger.Error("Failed to initialize push notifications", "error", err)
			log.Fatalf("Failed to initialize push notifications: %v", err)
		}
		channels = append(channels, messaging.NewPushChannel(pushSender))
	}

	// Initialize Services
	publisher := service.NewEventPublisher(store.OutboxRepository)
	rentalService := service.NewRentalService(
		store.RentalRepository,
		store.ItemRepository,
		store.AvailabilityBlockRepository,
		publisher,
		payments.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret),
		utils.FeePolicy{
			ServiceFeeBps:    cfg.Fees.ServiceFeeBps,
			InsuranceFeeBps:  cfg.Fees.InsuranceFeeBps,
			DeliveryFeeCents: cfg.Fees.DeliveryFeeCents,
		},
	)
	dispatcher := service.NewNotificationDispatcher(
		store.OutboxRepository,
		store.NotificationRepository,
		store.ProfileRepository,
		channels...,
	)

	jobServices := &jobs.Services{
		Rental:     rentalService,
		Dispatcher: dispatcher,
	}

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(jobServices, cfg, metrics.New())

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		if !runJobOnce(jobRunner, *runOnce) {
			logger.Error("Job execution failed", "job", *runOnce)
			os.Exit(1)
		}
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		logger.Error("Failed to initialize scheduler", "error", err)
		log.Fatalf("Failed to initialize scheduler: %v", err)
	}

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.", "jobs", cronScheduler.Entries())

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once and reports whether it succeeded
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) bool {
	switch jobName {
	case "dispatch-outbox":
		return jobRunner.DispatchOutbox()
	case "send-rental-reminders":
		return jobRunner.SendRentalReminders()
	case "send-overdue-reminders":
		return jobRunner.SendOverdueReminders()
	case "all":
		if err := jobRunner.RunAll(); err != nil {
			logger.Error("Some jobs failed", "error", err)
			return false
		}
		return true
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - dispatch-outbox\n")
		fmt.Printf("  - send-rental-reminders\n")
		fmt.Printf("  - send-overdue-reminders\n")
		fmt.Printf("  - all\n")
		os.Exit(1)
	}
	return false
}
