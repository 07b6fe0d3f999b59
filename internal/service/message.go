package service

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"rentshare-backend/internal/domain"
	"rentshare-backend/internal/logger"
	"rentshare-backend/internal/repository"
)

const (
	realtimeMessageNew = "message.new"
	messagePreviewLen  = 120
	defaultMessagePage = 50
	maxMessagePage     = 200
)

type messageService struct {
	messageRepo repository.MessageRepository
	rentalRepo  repository.RentalRepository
	profileRepo repository.ProfileRepository
	hub         Broadcaster
	publisher   EventPublisher
	now         func() time.Time
}

// NewMessageService builds the chat service. hub may be nil when realtime
// delivery is disabled.
func NewMessageService(
	messageRepo repository.MessageRepository,
	rentalRepo repository.RentalRepository,
	profileRepo repository.ProfileRepository,
	hub Broadcaster,
	publisher EventPublisher,
) MessageService {
	return &messageService{
		messageRepo: messageRepo,
		rentalRepo:  rentalRepo,
		profileRepo: profileRepo,
		hub:         hub,
		publisher:   publisher,
		now:         time.Now,
	}
}

func (s *messageService) Send(ctx context.Context, senderID string, in domain.MessageInput) (*domain.Message, error) {
	if in.RecipientID == senderID {
		return nil, domain.NewValidationError("you cannot message yourself")
	}
	if in.Body == "" {
		return nil, domain.NewValidationError("message body is required")
	}

	if in.RentalID != nil && *in.RentalID != "" {
		r, err := s.rentalRepo.GetByID(ctx, *in.RentalID)
		if err != nil {
			return nil, fmt.Errorf("failed to get rental: %w", err)
		}
		if !r.IsParticipant(senderID) || r.Counterparty(senderID) != in.RecipientID {
			return nil, fmt.Errorf("rental messages are limited to its participants: %w", domain.ErrForbidden)
		}
	} else {
		in.RentalID = nil
		if _, err := s.profileRepo.GetByID(ctx, in.RecipientID); err != nil {
			return nil, fmt.Errorf("failed to get recipient: %w", err)
		}
	}

	msg := &domain.Message{
		SenderID:    senderID,
		RecipientID: in.RecipientID,
		RentalID:    in.RentalID,
		Body:        in.Body,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	if s.hub != nil {
		if err := s.hub.SendToUser(msg.RecipientID, realtimeMessageNew, msg); err != nil {
			logger.Warn("Realtime push failed", "messageID", msg.ID, "error", err)
		}
	}

	ev := &domain.OutboxEvent{
		Type:       domain.EventMessageReceived,
		Recipients: []string{msg.RecipientID},
		Title:      "New message",
		Body:       preview(msg.Body),
		Payload:    map[string]string{"message_id": msg.ID, "sender_id": senderID},
	}
	if msg.RentalID != nil {
		ev.RentalID = *msg.RentalID
	}
	s.publisher.Publish(ctx, ev)
	return msg, nil
}

func preview(body string) string {
	if utf8.RuneCountInString(body) <= messagePreviewLen {
		return body
	}
	runes := []rune(body)
	return string(runes[:messagePreviewLen]) + "..."
}

func (s *messageService) List(ctx context.Context, userID string, filter domain.MessageFilter) ([]domain.Message, error) {
	if filter.RentalID != "" {
		r, err := s.rentalRepo.GetByID(ctx, filter.RentalID)
		if err != nil {
			return nil, fmt.Errorf("failed to get rental: %w", err)
		}
		if !r.IsParticipant(userID) {
			return nil, fmt.Errorf("not a participant of this rental: %w", domain.ErrForbidden)
		}
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultMessagePage
	}
	if filter.Limit > maxMessagePage {
		filter.Limit = maxMessagePage
	}
	msgs, err := s.messageRepo.List(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return msgs, nil
}

// MarkRead only touches messages addressed to userID.
func (s *messageService) MarkRead(ctx context.Context, userID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, domain.NewValidationError("message_ids is required")
	}
	n, err := s.messageRepo.MarkRead(ctx, userID, ids, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}
	return n, nil
}
