package messaging

import (
	"context"
	"fmt"
	"strings"

	"rentshare-backend/internal/domain"
	"rentshare-backend/internal/logger"
)

// TelegramChannel, EmailChannel and PushChannel deliver an outbox event to a
// single recipient. A recipient without an address on a channel is skipped
// without error.

type TelegramChannel struct {
	bot *TelegramBot
}

func NewTelegramChannel(bot *TelegramBot) *TelegramChannel {
	return &TelegramChannel{bot: bot}
}

func (c *TelegramChannel) Name() string { return "telegram" }

func (c *TelegramChannel) Deliver(ctx context.Context, p *domain.Profile, ev *domain.OutboxEvent) error {
	if p.TelegramChatID == nil {
		return nil
	}
	var buttons []Button
	if ev.RentalID != "" {
		buttons = append(buttons, Button{Text: "View rental", Data: RentalCallbackData(ev.RentalID)})
	}
	return c.bot.SendText(ctx, *p.TelegramChatID, ev.Title+"\n\n"+ev.Body, buttons)
}

// RentalCallbackData is the inline-button payload that asks the bot for rental details.
func RentalCallbackData(rentalID string) string {
	return "rental:" + rentalID
}

// ParseRentalCallback is the inverse of RentalCallbackData.
func ParseRentalCallback(data string) (string, bool) {
	id, ok := strings.CutPrefix(data, "rental:")
	return id, ok && id != ""
}

type EmailChannel struct {
	sender  EmailSender
	baseURL string
}

func NewEmailChannel(sender EmailSender, baseURL string) *EmailChannel {
	return &EmailChannel{sender: sender, baseURL: strings.TrimRight(baseURL, "/")}
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Deliver(ctx context.Context, p *domain.Profile, ev *domain.OutboxEvent) error {
	if p.Email == "" {
		return nil
	}
	body := fmt.Sprintf("Hello %s,\n\n%s", p.DisplayName(), ev.Body)
	if ev.RentalID != "" && c.baseURL != "" {
		body += fmt.Sprintf("\n\nView the rental: %s/rentals/%s", c.baseURL, ev.RentalID)
	}
	return c.sender.Send(ctx, p.Email, p.DisplayName(), ev.Title, body)
}

type pushSender interface {
	Send(ctx context.Context, deviceToken, title, body string, data map[string]string) error
}

type PushChannel struct {
	sender pushSender
}

func NewPushChannel(sender pushSender) *PushChannel {
	return &PushChannel{sender: sender}
}

func (c *PushChannel) Name() string { return "push" }

func (c *PushChannel) Deliver(ctx context.Context, p *domain.Profile, ev *domain.OutboxEvent) error {
	if p.PushToken == "" {
		logger.Debug("No push token, skipping", "userID", p.ID, "event", ev.Type)
		return nil
	}
	data := map[string]string{"type": string(ev.Type)}
	if ev.RentalID != "" {
		data["rental_id"] = ev.RentalID
	}
	for k, v := range ev.Payload {
		data[k] = v
	}
	return c.sender.Send(ctx, p.PushToken, ev.Title, ev.Body, data)
}
