package grpc

import (
	"time"

	"github.com/shopspring/decimal"

	pb "astroconsult-backend/api/v1"
	"astroconsult-backend/internal/domain"
)

func formatMoney(d decimal.Decimal) string { return d.StringFixed(2) }

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func MapDomainSessionToProto(s *domain.Session) *pb.Session {
	if s == nil {
		return nil
	}
	out := &pb.Session{
		Id:              s.ID,
		CustomerId:      s.CustomerID,
		AstrologerId:    s.AstrologerID,
		ServiceType:     string(s.ServiceType),
		Status:          string(s.Status),
		RatePerMinute:   formatMoney(s.RatePerMinute),
		ConnectionId:    stringValue(s.ConnectionID),
		StartTime:       formatTimePtr(s.StartTime),
		EndTime:         formatTimePtr(s.EndTime),
		DurationMinutes: s.DurationMinutes,
		TotalAmount:     formatMoney(s.TotalAmount),
		CreatedAt:       formatTime(s.CreatedAt),
		UpdatedAt:       formatTime(s.UpdatedAt),
	}
	if s.Rating != nil {
		out.Rating = *s.Rating
	}
	return out
}

func MapDomainTransactionToProto(t *domain.Transaction) *pb.Transaction {
	if t == nil {
		return nil
	}
	return &pb.Transaction{
		Id:               t.ID,
		UserId:           t.UserID,
		Type:             string(t.Type),
		Status:           string(t.Status),
		Amount:           formatMoney(t.Amount),
		SessionId:        stringValue(t.SessionID),
		ServiceType:      t.ServiceType,
		PaymentReference: stringValue(t.PaymentReference),
		PaymentMethod:    stringValue(t.PaymentMethod),
		Description:      t.Description,
		CreatedAt:        formatTime(t.CreatedAt),
	}
}

func MapSettlementToProto(r *domain.SettlementResult) *pb.EndSessionResponse {
	return &pb.EndSessionResponse{
		Session:             MapDomainSessionToProto(r.Session),
		DurationMinutes:     r.DurationMinutes,
		TotalAmount:         formatMoney(r.TotalAmount),
		Debited:             formatMoney(r.Debited),
		AstrologerShare:     formatMoney(r.AstrologerShare),
		PlatformShare:       formatMoney(r.PlatformShare),
		CustomerBalance:     formatMoney(r.CustomerBalance),
		InsufficientBalance: r.InsufficientBalance,
		Shortfall:           formatMoney(r.Shortfall),
		ReportedMismatch:    r.ReportedMismatch,
	}
}
