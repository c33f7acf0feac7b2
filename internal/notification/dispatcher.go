package notification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"astroconsult-backend/internal/domain"
	"astroconsult-backend/internal/logger"
	"astroconsult-backend/internal/metrics"
	"astroconsult-backend/internal/repository"
)

// DefaultEnqueueTimeout bounds how long Dispatch may wait on the queue.
const DefaultEnqueueTimeout = 250 * time.Millisecond

// Dispatcher queues notifications and fans each one out to every configured channel.
// It satisfies service.Notifier.
type Dispatcher struct {
	queue    Queue
	users    repository.UserRepository
	senders  map[string]Sender
	channels []string
	now      func() time.Time

	enqueueTimeout time.Duration
}

func NewDispatcher(queue Queue, users repository.UserRepository, senders ...Sender) *Dispatcher {
	d := &Dispatcher{
		queue:   queue,
		users:   users,
		senders: make(map[string]Sender, len(senders)),
		now:     time.Now,

		enqueueTimeout: DefaultEnqueueTimeout,
	}
	for _, s := range senders {
		if _, dup := d.senders[s.Channel()]; dup {
			continue
		}
		d.senders[s.Channel()] = s
		d.channels = append(d.channels, s.Channel())
	}
	return d
}

// Dispatch enqueues n without waiting for delivery.
func (d *Dispatcher) Dispatch(ctx context.Context, n domain.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = d.now()
	}
	job := Job{
		Notification: n,
		Channels:     append([]string(nil), d.channels...),
		Enqueued:     d.now(),
	}
	// Detached from the caller's cancellation but never longer than enqueueTimeout.
	enqueueCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.enqueueTimeout)
	defer cancel()
	if err := d.queue.Enqueue(enqueueCtx, job); err != nil {
		logger.Warn("Failed to enqueue notification", "notificationID", n.ID, "userID", n.UserID, "kind", n.Kind, "error", err)
		return err
	}
	return nil
}

// Run delivers queued notifications until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	d.queue.Run(ctx, d.deliver)
}

func (d *Dispatcher) deliver(ctx context.Context, job Job) []string {
	n := job.Notification

	var (
		recipient *domain.User
		lookupErr error
		looked    bool
	)
	lookup := func() (*domain.User, error) {
		if !looked {
			recipient, lookupErr = d.users.GetByID(ctx, n.UserID)
			looked = true
		}
		return recipient, lookupErr
	}

	var failed []string
	for _, ch := range job.Channels {
		sender, ok := d.senders[ch]
		if !ok {
			continue
		}
		var user *domain.User
		if ch == ChannelPush || ch == ChannelEmail {
			u, err := lookup()
			if err != nil {
				metrics.NotificationsTotal.WithLabelValues(ch, "failed").Inc()
				logger.Warn("Notification recipient lookup failed", "channel", ch, "userID", n.UserID, "error", err)
				if !errors.Is(err, domain.ErrNotFound) {
					failed = append(failed, ch)
				}
				continue
			}
			user = u
		}

		err := sender.Send(ctx, user, n)
		switch {
		case err == nil:
			metrics.NotificationsTotal.WithLabelValues(ch, "sent").Inc()
		case errors.Is(err, errNoAddress):
			metrics.NotificationsTotal.WithLabelValues(ch, "skipped").Inc()
			logger.Debug("Notification skipped", "channel", ch, "userID", n.UserID, "reason", err)
		default:
			metrics.NotificationsTotal.WithLabelValues(ch, "failed").Inc()
			logger.Warn("Notification delivery failed", "channel", ch, "notificationID", n.ID, "userID", n.UserID, "attempt", job.Tries+1, "error", err)
			failed = append(failed, ch)
		}
	}
	return failed
}
