package messaging

import (
	"context"
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"rentshare-backend/internal/logger"
)

// Button is an inline keyboard button carrying callback data.
type Button struct {
	Text string
	Data string
}

type TelegramBot struct {
	api *tgbotapi.BotAPI
}

// NewTelegramBot authenticates the token against the Bot API.
func NewTelegramBot(token string) (*TelegramBot, error) {
	return newTelegramBot(token, tgbotapi.APIEndpoint, http.DefaultClient)
}

func newTelegramBot(token, endpoint string, client *http.Client) (*TelegramBot, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to connect telegram bot: %w", err)
	}
	return &TelegramBot{api: api}, nil
}

func (b *TelegramBot) Username() string {
	return b.api.Self.UserName
}

// SendText sends a message, laying buttons out one per row.
func (b *TelegramBot) SendText(ctx context.Context, chatID int64, text string, buttons []Button) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if len(buttons) > 0 {
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
		for _, btn := range buttons {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.Data)))
		}
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	}

	logger.ExternalServiceCall("telegram", "sendMessage", "chatID", chatID)
	_, err := b.api.Send(msg)
	logger.ExternalServiceResult("telegram", "sendMessage", err, "chatID", chatID)
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

func (b *TelegramBot) AnswerCallback(ctx context.Context, callbackID, text string) error {
	logger.ExternalServiceCall("telegram", "answerCallbackQuery")
	_, err := b.api.Request(tgbotapi.NewCallback(callbackID, text))
	logger.ExternalServiceResult("telegram", "answerCallbackQuery", err)
	if err != nil {
		return fmt.Errorf("failed to answer callback: %w", err)
	}
	return nil
}
