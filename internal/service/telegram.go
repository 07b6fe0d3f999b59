package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"rentshare-backend/internal/cache"
	"rentshare-backend/internal/domain"
	"rentshare-backend/internal/logger"
	"rentshare-backend/internal/messaging"
	"rentshare-backend/internal/repository"
	"rentshare-backend/internal/utils"
)

const (
	linkTokenTTL        = 15 * time.Minute
	maxRentalsInReply   = 10
	telegramHelpMessage = "Available commands:\n" +
		"/rentals - your current rentals\n" +
		"/unlink - stop receiving notifications here\n" +
		"/help - show this message\n\n" +
		"To link this chat, use the Telegram button on your account page."
)

type telegramService struct {
	bot         BotSender
	tokens      LinkTokenStore
	profileRepo repository.ProfileRepository
	rentalRepo  repository.RentalRepository
	botUsername string
}

func NewTelegramService(
	bot BotSender,
	tokens LinkTokenStore,
	profileRepo repository.ProfileRepository,
	rentalRepo repository.RentalRepository,
	botUsername string,
) TelegramService {
	return &telegramService{
		bot:         bot,
		tokens:      tokens,
		profileRepo: profileRepo,
		rentalRepo:  rentalRepo,
		botUsername: botUsername,
	}
}

// CreateLinkToken issues a one-time token and returns the bot deep link that redeems it.
func (s *telegramService) CreateLinkToken(ctx context.Context, userID string) (string, error) {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := s.tokens.Put(ctx, token, userID, linkTokenTTL); err != nil {
		return "", fmt.Errorf("failed to create link token: %w", err)
	}
	return fmt.Sprintf("https://t.me/%s?start=%s", s.botUsername, token), nil
}

func (s *telegramService) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	if update.CallbackQuery != nil {
		return s.handleCallback(ctx, update.CallbackQuery)
	}
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return nil
	}
	chatID := msg.Chat.ID
	if !msg.IsCommand() {
		return s.reply(ctx, chatID, "Send /help to see what I can do.")
	}

	switch msg.Command() {
	case "start":
		return s.handleStart(ctx, chatID, strings.TrimSpace(msg.CommandArguments()))
	case "help":
		return s.reply(ctx, chatID, telegramHelpMessage)
	case "rentals":
		return s.handleRentals(ctx, chatID)
	case "unlink":
		return s.handleUnlink(ctx, chatID)
	}
	return s.reply(ctx, chatID, "Unknown command. Send /help for the list of commands.")
}

func (s *telegramService) reply(ctx context.Context, chatID int64, text string) error {
	return s.bot.SendText(ctx, chatID, text, nil)
}

func (s *telegramService) handleStart(ctx context.Context, chatID int64, token string) error {
	if token == "" {
		return s.reply(ctx, chatID, "Welcome to RentShare!\n\n"+telegramHelpMessage)
	}
	userID, err := s.tokens.Consume(ctx, token)
	if errors.Is(err, cache.ErrTokenNotFound) {
		return s.reply(ctx, chatID, "This link is invalid or has expired. Please request a new one from your account page.")
	}
	if err != nil {
		return fmt.Errorf("failed to redeem link token: %w", err)
	}
	if err := s.profileRepo.SetTelegramChat(ctx, userID, &chatID); err != nil {
		return fmt.Errorf("failed to link telegram chat: %w", err)
	}
	logger.Info("Telegram chat linked", "userID", userID)
	return s.reply(ctx, chatID, "Your account is linked. You will receive rental notifications here.")
}

// linkedProfile returns nil when the chat is not linked to any account.
func (s *telegramService) linkedProfile(ctx context.Context, chatID int64) (*domain.Profile, error) {
	p, err := s.profileRepo.GetByTelegramChat(ctx, chatID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up linked profile: %w", err)
	}
	return p, nil
}

const notLinkedMessage = "This chat is not linked to a RentShare account yet."

func (s *telegramService) handleRentals(ctx context.Context, chatID int64) error {
	p, err := s.linkedProfile(ctx, chatID)
	if err != nil {
		return err
	}
	if p == nil {
		return s.reply(ctx, chatID, notLinkedMessage)
	}

	all, err := s.rentalRepo.List(ctx, domain.RentalFilter{UserID: p.ID})
	if err != nil {
		return fmt.Errorf("failed to list rentals: %w", err)
	}
	var lines []string
	var buttons []messaging.Button
	for i := range all {
		r := &all[i]
		if r.Status.Terminal() {
			continue
		}
		if len(buttons) == maxRentalsInReply {
			break
		}
		lines = append(lines, fmt.Sprintf("%d. %s to %s (%s, %s)", len(lines)+1, r.StartDate, r.EndDate, r.Phase(), r.PartyOf(p.ID)))
		buttons = append(buttons, messaging.Button{
			Text: fmt.Sprintf("%d. %s", len(buttons)+1, r.StartDate),
			Data: messaging.RentalCallbackData(r.ID),
		})
	}
	if len(lines) == 0 {
		return s.reply(ctx, chatID, "You have no current rentals.")
	}
	return s.bot.SendText(ctx, chatID, "Your current rentals:\n"+strings.Join(lines, "\n"), buttons)
}

func (s *telegramService) handleUnlink(ctx context.Context, chatID int64) error {
	p, err := s.linkedProfile(ctx, chatID)
	if err != nil {
		return err
	}
	if p == nil {
		return s.reply(ctx, chatID, notLinkedMessage)
	}
	if err := s.profileRepo.SetTelegramChat(ctx, p.ID, nil); err != nil {
		return fmt.Errorf("failed to unlink telegram chat: %w", err)
	}
	logger.Info("Telegram chat unlinked", "userID", p.ID)
	return s.reply(ctx, chatID, "This chat is unlinked. You will no longer receive notifications here.")
}

func (s *telegramService) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) error {
	var chatID int64
	if cq.From != nil {
		chatID = cq.From.ID
	}
	if cq.Message != nil && cq.Message.Chat != nil {
		chatID = cq.Message.Chat.ID
	}

	rentalID, ok := messaging.ParseRentalCallback(cq.Data)
	if !ok {
		return s.bot.AnswerCallback(ctx, cq.ID, "Unknown action")
	}
	p, err := s.linkedProfile(ctx, chatID)
	if err != nil {
		return err
	}
	if p == nil {
		return s.bot.AnswerCallback(ctx, cq.ID, notLinkedMessage)
	}

	r, err := s.rentalRepo.GetByID(ctx, rentalID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("failed to get rental: %w", err)
	}
	if r == nil || !r.IsParticipant(p.ID) {
		return s.bot.AnswerCallback(ctx, cq.ID, "Rental not found")
	}

	if err := s.bot.AnswerCallback(ctx, cq.ID, ""); err != nil {
		logger.Warn("Failed to answer callback", "error", err)
	}
	return s.reply(ctx, chatID, rentalDetails(r, p.ID))
}

func rentalDetails(r *domain.Rental, viewerID string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Rental %s\n", r.ID)
	fmt.Fprintf(&b, "You are the %s\n", r.PartyOf(viewerID))
	fmt.Fprintf(&b, "Status: %s\n", r.Phase())
	fmt.Fprintf(&b, "Dates: %s to %s (%d day(s))\n", r.StartDate, r.EndDate, r.TotalDays)
	fmt.Fprintf(&b, "Total: %s\n", utils.FormatCents(r.TotalAmountCents))
	fmt.Fprintf(&b, "Deposit: %s\n", utils.FormatCents(r.SecurityDepositCents))
	fmt.Fprintf(&b, "Payment: %s", r.PaymentStatus)
	if r.AgreementSignedAt != nil {
		b.WriteString("\nAgreement: signed")
	} else if r.AgreementText != nil {
		b.WriteString("\nAgreement: awaiting acceptance")
	}
	return b.String()
}
