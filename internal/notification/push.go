package notification

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"astroconsult-backend/internal/domain"
)

type messagingClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// PushSender delivers notifications to the recipient's device through FCM.
type PushSender struct {
	client messagingClient
}

// NewPushSender builds an FCM client from a service account file.
func NewPushSender(ctx context.Context, credentialsFile, projectID string) (*PushSender, error) {
	var conf *firebase.Config
	if projectID != "" {
		conf = &firebase.Config{ProjectID: projectID}
	}
	app, err := firebase.NewApp(ctx, conf, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase messaging: %w", err)
	}
	return &PushSender{client: client}, nil
}

func (s *PushSender) Channel() string { return ChannelPush }

func (s *PushSender) Send(ctx context.Context, recipient *domain.User, n domain.Notification) error {
	if recipient == nil || recipient.DeviceToken == nil || *recipient.DeviceToken == "" {
		return errNoAddress
	}
	data := map[string]string{"kind": string(n.Kind), "notification_id": n.ID}
	for k, v := range n.Attributes {
		data[k] = v
	}
	if n.Amount != "" {
		data["amount"] = n.Amount
	}
	msg := &messaging.Message{
		Token:        *recipient.DeviceToken,
		Notification: &messaging.Notification{Title: n.Title, Body: n.Message},
		Data:         data,
	}
	if _, err := s.client.Send(ctx, msg); err != nil {
		if messaging.IsUnregistered(err) {
			return fmt.Errorf("%w: device token unregistered", errNoAddress)
		}
		return fmt.Errorf("failed to send push notification: %w", err)
	}
	return nil
}
