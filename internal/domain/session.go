package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ServiceType string

const (
	ServiceTypeCall  ServiceType = "call"
	ServiceTypeChat  ServiceType = "chat"
	ServiceTypeVideo ServiceType = "video"
)

func (t ServiceType) Valid() bool {
	switch t {
	case ServiceTypeCall, ServiceTypeChat, ServiceTypeVideo:
		return true
	}
	return false
}

type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "pending"
	SessionStatusRinging   SessionStatus = "ringing"
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusRejected  SessionStatus = "rejected"
	SessionStatusMissed    SessionStatus = "missed"
)

// Terminal reports whether no further lifecycle transition (other than rate) is possible.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusRejected || s == SessionStatusMissed
}

type SessionAction string

const (
	ActionRing   SessionAction = "ring"
	ActionAnswer SessionAction = "answer"
	ActionReject SessionAction = "reject"
	ActionMissed SessionAction = "missed"
	ActionEnd    SessionAction = "end"
	ActionRate   SessionAction = "rate"

	// ActionBill is interim billing of an active session. It is not a
	// lifecycle transition and never appears in the transition table.
	ActionBill SessionAction = "bill"
)

// transitionTable lists the statuses each action may be applied from.
var transitionTable = map[SessionAction][]SessionStatus{
	ActionRing:   {SessionStatusPending},
	ActionAnswer: {SessionStatusPending, SessionStatusRinging},
	ActionReject: {SessionStatusPending, SessionStatusRinging},
	ActionMissed: {SessionStatusPending, SessionStatusRinging},
	ActionEnd:    {SessionStatusActive},
	ActionRate:   {SessionStatusCompleted},
}

func (a SessionAction) Valid() bool {
	_, ok := transitionTable[a]
	return ok
}

// CanApply reports whether action is allowed from status.
func CanApply(action SessionAction, status SessionStatus) bool {
	for _, from := range transitionTable[action] {
		if from == status {
			return true
		}
	}
	return false
}

// Role of the caller relative to a session.
type Role string

const (
	RoleCustomer   Role = "customer"
	RoleAstrologer Role = "astrologer"
	RolePlatform   Role = "platform"
	// RoleSystem is used by scheduled jobs and trusted service callers.
	RoleSystem Role = "system"
)

type Session struct {
	ID              string          `db:"id" json:"id"`
	CustomerID      string          `db:"customer_id" json:"customer_id"`
	AstrologerID    string          `db:"astrologer_id" json:"astrologer_id"`
	ServiceType     ServiceType     `db:"service_type" json:"service_type"`
	RatePerMinute   decimal.Decimal `db:"rate_per_minute" json:"rate_per_minute"`
	Status          SessionStatus   `db:"status" json:"status"`
	ConnectionID    *string         `db:"connection_id" json:"connection_id,omitempty"`
	StartTime       *time.Time      `db:"start_time" json:"start_time,omitempty"`
	EndTime         *time.Time      `db:"end_time" json:"end_time,omitempty"`
	DurationMinutes int64           `db:"duration_minutes" json:"duration_minutes"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"total_amount"`
	Rating          *int32          `db:"rating" json:"rating,omitempty"`
	SettledAt       *time.Time      `db:"settled_at" json:"settled_at,omitempty"`
	Version         int64           `db:"version" json:"version"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// IsParticipant checks that callerID holds the given role on this session.
func (s *Session) IsParticipant(callerID string, role Role) bool {
	switch role {
	case RoleCustomer:
		return callerID != "" && callerID == s.CustomerID
	case RoleAstrologer:
		return callerID != "" && callerID == s.AstrologerID
	}
	return false
}

// TransitionPayload carries the optional inputs of a transition.
type TransitionPayload struct {
	ConnectionID string
	Rating       *int32
}

type AstrologerRate struct {
	AstrologerID  string          `db:"astrologer_id"`
	ServiceType   ServiceType     `db:"service_type"`
	RatePerMinute decimal.Decimal `db:"rate_per_minute"`
}

// SettlementResult describes the money moved by one settlement call.
type SettlementResult struct {
	Session             *Session        `json:"session"`
	DurationMinutes     int64           `json:"duration_minutes"`
	TotalAmount         decimal.Decimal `json:"total_amount"`
	Delta               decimal.Decimal `json:"delta"`
	Debited             decimal.Decimal `json:"debited"`
	AstrologerShare     decimal.Decimal `json:"astrologer_share"`
	PlatformShare       decimal.Decimal `json:"platform_share"`
	CustomerBalance     decimal.Decimal `json:"customer_balance"`
	InsufficientBalance bool            `json:"insufficient_balance"`
	Shortfall           decimal.Decimal `json:"shortfall"`
	ReportedMismatch    bool            `json:"reported_mismatch"`
}

// Applied reports whether the settlement moved any money.
func (r *SettlementResult) Applied() bool {
	return r.Debited.IsPositive()
}
