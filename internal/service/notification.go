package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rentshare-backend/internal/domain"
	"rentshare-backend/internal/logger"
	"rentshare-backend/internal/repository"
)

const (
	defaultDispatchBatch = 50
	maxDispatchAttempts  = 5
	// A claim older than this is assumed abandoned by a crashed dispatcher.
	claimStaleAfter = 10 * time.Minute
)

type notificationService struct {
	noteRepo repository.NotificationRepository
}

func NewNotificationService(noteRepo repository.NotificationRepository) NotificationService {
	return &notificationService{noteRepo: noteRepo}
}

func (s *notificationService) GetNotifications(ctx context.Context, userID string, page, pageSize int) ([]domain.Notification, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize
	return s.noteRepo.List(ctx, userID, pageSize, offset)
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID, notificationID string) error {
	return s.noteRepo.MarkAsRead(ctx, notificationID, userID)
}

type outboxPublisher struct {
	outboxRepo repository.OutboxRepository
}

func NewEventPublisher(outboxRepo repository.OutboxRepository) EventPublisher {
	return &outboxPublisher{outboxRepo: outboxRepo}
}

// Publish runs after the state change has been committed. A failure here is
// logged and swallowed so the transition is still reported as successful.
func (p *outboxPublisher) Publish(ctx context.Context, ev *domain.OutboxEvent) {
	if len(ev.Recipients) == 0 {
		return
	}
	if err := p.outboxRepo.Enqueue(ctx, ev); err != nil {
		logger.ErrorContext(ctx, "Failed to enqueue notification event",
			"type", ev.Type, "rentalID", ev.RentalID, "error", err)
	}
}

type notificationDispatcher struct {
	outboxRepo  repository.OutboxRepository
	noteRepo    repository.NotificationRepository
	profileRepo repository.ProfileRepository
	channels    []Channel
	batchSize   int
}

// NewNotificationDispatcher delivers outbox events to in-app notifications and
// every configured channel. Nil channels are ignored.
func NewNotificationDispatcher(
	outboxRepo repository.OutboxRepository,
	noteRepo repository.NotificationRepository,
	profileRepo repository.ProfileRepository,
	channels ...Channel,
) NotificationDispatcher {
	d := &notificationDispatcher{
		outboxRepo:  outboxRepo,
		noteRepo:    noteRepo,
		profileRepo: profileRepo,
		batchSize:   defaultDispatchBatch,
	}
	for _, ch := range channels {
		if ch != nil {
			d.channels = append(d.channels, ch)
		}
	}
	return d
}

func (d *notificationDispatcher) DispatchPending(ctx context.Context) (DispatchStats, error) {
	var stats DispatchStats
	events, err := d.outboxRepo.Claim(ctx, d.batchSize, claimStaleAfter)
	if err != nil {
		return stats, fmt.Errorf("failed to claim outbox events: %w", err)
	}
	stats.Claimed = len(events)

	for i := range events {
		ev := &events[i]
		if remaining, err := d.deliver(ctx, ev); err != nil {
			stats.Failed++
			logger.Warn("Outbox event delivery failed", "eventID", ev.ID, "type", ev.Type, "attempt", ev.Attempts+1, "error", err)
			if markErr := d.outboxRepo.MarkFailed(ctx, ev.ID, remaining, err.Error(), maxDispatchAttempts); markErr != nil {
				logger.Error("Failed to record outbox failure", "eventID", ev.ID, "error", markErr)
			}
			continue
		}
		if err := d.outboxRepo.MarkDispatched(ctx, ev.ID); err != nil {
			logger.Error("Failed to mark outbox event dispatched", "eventID", ev.ID, "error", err)
			continue
		}
		stats.Dispatched++
	}
	return stats, nil
}

// deliver fails only when an in-app notification cannot be stored, which is
// what a retry can fix. It returns the recipients still owed the event.
// External channel failures are logged per recipient.
func (d *notificationDispatcher) deliver(ctx context.Context, ev *domain.OutboxEvent) ([]string, error) {
	var errs, remaining []string
	for _, userID := range ev.Recipients {
		note := &domain.Notification{
			UserID:     userID,
			Title:      ev.Title,
			Message:    ev.Body,
			Attributes: notificationAttributes(ev),
		}
		if err := d.noteRepo.Create(ctx, note); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", userID, err))
			remaining = append(remaining, userID)
			continue
		}

		if len(d.channels) == 0 {
			continue
		}
		profile, err := d.profileRepo.GetByID(ctx, userID)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				logger.Warn("Failed to load recipient profile", "userID", userID, "error", err)
			}
			continue
		}
		for _, ch := range d.channels {
			if err := ch.Deliver(ctx, profile, ev); err != nil {
				logger.Warn("Notification channel failed", "channel", ch.Name(), "userID", userID, "type", ev.Type, "error", err)
			}
		}
	}
	if len(errs) > 0 {
		return remaining, errors.New(strings.Join(errs, "; "))
	}
	return nil, nil
}

func notificationAttributes(ev *domain.OutboxEvent) map[string]string {
	attrs := map[string]string{"type": string(ev.Type)}
	if ev.RentalID != "" {
		attrs["rental_id"] = ev.RentalID
	}
	for k, v := range ev.Payload {
		attrs[k] = v
	}
	return attrs
}
