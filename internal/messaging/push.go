package messaging

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"rentshare-backend/internal/logger"
)

type fcmClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

type PushSender struct {
	client fcmClient
}

// NewPushSender initialises Firebase Cloud Messaging from a service account file.
func NewPushSender(ctx context.Context, credentialsFile string) (*PushSender, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialise firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create messaging client: %w", err)
	}
	return &PushSender{client: client}, nil
}

func (p *PushSender) Send(ctx context.Context, deviceToken, title, body string, data map[string]string) error {
	msg := &messaging.Message{
		Token:        deviceToken,
		Notification: &messaging.Notification{Title: title, Body: body},
		Data:         data,
	}

	logger.ExternalServiceCall("fcm", "send")
	_, err := p.client.Send(ctx, msg)
	logger.ExternalServiceResult("fcm", "send", err)
	if err != nil {
		return fmt.Errorf("failed to send push notification: %w", err)
	}
	return nil
}
