package domain

import "time"

type NotificationKind string

const (
	NotificationSessionCharged  NotificationKind = "SESSION_CHARGED"
	NotificationSessionEarned   NotificationKind = "SESSION_EARNED"
	NotificationSessionMissed   NotificationKind = "SESSION_MISSED"
	NotificationLowBalance      NotificationKind = "LOW_BALANCE"
	NotificationWalletRecharged NotificationKind = "WALLET_RECHARGED"
)

type Notification struct {
	ID         string            `json:"id"`
	UserID     string            `json:"user_id"`
	Kind       NotificationKind  `json:"kind"`
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	Amount     string            `json:"amount,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Tries      int               `json:"tries"`
	CreatedAt  time.Time         `json:"created_at"`
}
