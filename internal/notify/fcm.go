package notify

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// FCMDispatcher delivers notifications through Firebase Cloud Messaging.
type FCMDispatcher struct {
	client *messaging.Client
	log    *zerolog.Logger
}

// NewFCMDispatcher builds a dispatcher from a service-account credentials file.
func NewFCMDispatcher(ctx context.Context, credentialsFile string, logger *zerolog.Logger) (*FCMDispatcher, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init messaging client: %w", err)
	}

	return &FCMDispatcher{client: client, log: logger}, nil
}

// Send pushes one multicast message to the given tokens. Per-token failures
// are reported by FCM inside a successful call and only logged here.
func (d *FCMDispatcher) Send(ctx context.Context, tokens []string, title, body string) error {
	if len(tokens) == 0 {
		return nil
	}

	resp, err := d.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
	})
	if err != nil {
		return fmt.Errorf("send multicast: %w", err)
	}

	d.log.Debug().
		Int("success", resp.SuccessCount).
		Int("failure", resp.FailureCount).
		Int("tokens", len(tokens)).
		Msg("notification dispatched")

	return nil
}
