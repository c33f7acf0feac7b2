package service

import (
	"context"
	"fmt"
	"strconv"

	"astroconsult-backend/internal/domain"
	"astroconsult-backend/internal/logger"
)

func sessionAttributes(s *domain.Session) map[string]string {
	return map[string]string{
		"session_id":       s.ID,
		"service_type":     string(s.ServiceType),
		"duration_minutes": strconv.FormatInt(s.DurationMinutes, 10),
	}
}

func settlementNotifications(s *domain.Session, r *domain.SettlementResult, lowBalance bool) []domain.Notification {
	if !r.Applied() {
		return nil
	}
	notes := []domain.Notification{{
		UserID:     s.CustomerID,
		Kind:       domain.NotificationSessionCharged,
		Title:      "Consultation charged",
		Message:    fmt.Sprintf("%s was deducted from your wallet for your %s consultation.", r.Debited.StringFixed(2), s.ServiceType),
		Amount:     r.Debited.StringFixed(2),
		Attributes: sessionAttributes(s),
	}}
	if r.AstrologerShare.IsPositive() {
		notes = append(notes, domain.Notification{
			UserID:     s.AstrologerID,
			Kind:       domain.NotificationSessionEarned,
			Title:      "Consultation earnings",
			Message:    fmt.Sprintf("You earned %s from a %s consultation.", r.AstrologerShare.StringFixed(2), s.ServiceType),
			Amount:     r.AstrologerShare.StringFixed(2),
			Attributes: sessionAttributes(s),
		})
	}
	if lowBalance {
		notes = append(notes, domain.Notification{
			UserID:     s.CustomerID,
			Kind:       domain.NotificationLowBalance,
			Title:      "Low wallet balance",
			Message:    fmt.Sprintf("Your wallet balance is %s. Recharge to keep consulting.", r.CustomerBalance.StringFixed(2)),
			Amount:     r.CustomerBalance.StringFixed(2),
			Attributes: map[string]string{"session_id": s.ID},
		})
	}
	return notes
}

func missedNotifications(s *domain.Session) []domain.Notification {
	attrs := sessionAttributes(s)
	return []domain.Notification{
		{
			UserID:     s.CustomerID,
			Kind:       domain.NotificationSessionMissed,
			Title:      "Consultation missed",
			Message:    "The astrologer did not answer. You have not been charged.",
			Attributes: attrs,
		},
		{
			UserID:     s.AstrologerID,
			Kind:       domain.NotificationSessionMissed,
			Title:      "Missed consultation",
			Message:    fmt.Sprintf("You missed a %s consultation request.", s.ServiceType),
			Attributes: attrs,
		},
	}
}

func rechargeNotification(tx *domain.Transaction, balance string) domain.Notification {
	return domain.Notification{
		UserID:  tx.UserID,
		Kind:    domain.NotificationWalletRecharged,
		Title:   "Wallet recharged",
		Message: fmt.Sprintf("%s was added to your wallet. New balance: %s.", tx.Amount.StringFixed(2), balance),
		Amount:  tx.Amount.StringFixed(2),
		Attributes: map[string]string{
			"transaction_id":    tx.ID,
			"payment_reference": deref(tx.PaymentReference),
		},
	}
}

// dispatchAll fires notifications after the money movement has committed.
// Failures are logged and never reach the caller.
func dispatchAll(ctx context.Context, n Notifier, notes []domain.Notification) {
	if n == nil {
		return
	}
	for _, note := range notes {
		if err := n.Dispatch(ctx, note); err != nil {
			logger.Warn("Failed to dispatch notification", "userID", note.UserID, "kind", note.Kind, "error", err)
		}
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
