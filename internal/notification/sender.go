// Package notification delivers domain notifications off the settlement path.
package notification

import (
	"context"
	"errors"
	"fmt"

	"astroconsult-backend/internal/domain"
	"astroconsult-backend/internal/logger"
	"astroconsult-backend/internal/repository"
)

const (
	ChannelInApp = "inapp"
	ChannelPush  = "push"
	ChannelEmail = "email"
	ChannelLog   = "log"
)

// errNoAddress means the recipient has no address for the channel; it is not retried.
var errNoAddress = errors.New("recipient has no address for channel")

// Sender delivers a notification over one channel.
type Sender interface {
	Channel() string
	Send(ctx context.Context, recipient *domain.User, n domain.Notification) error
}

// InAppSender stores the notification for the user's in-app inbox.
type InAppSender struct {
	repo repository.NotificationRepository
}

func NewInAppSender(repo repository.NotificationRepository) *InAppSender {
	return &InAppSender{repo: repo}
}

func (s *InAppSender) Channel() string { return ChannelInApp }

func (s *InAppSender) Send(ctx context.Context, _ *domain.User, n domain.Notification) error {
	note := n
	if err := s.repo.Create(ctx, &note); err != nil {
		return fmt.Errorf("failed to store in-app notification: %w", err)
	}
	return nil
}

// LogSender writes the notification to the application log.
type LogSender struct{}

func (LogSender) Channel() string { return ChannelLog }

func (LogSender) Send(_ context.Context, _ *domain.User, n domain.Notification) error {
	logger.Info("Notification", "userID", n.UserID, "kind", n.Kind, "title", n.Title, "message", n.Message)
	return nil
}
