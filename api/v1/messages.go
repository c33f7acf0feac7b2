package settlementv1

// Money amounts are decimal strings with two fractional digits.
// Timestamps are RFC 3339 strings.

type Session struct {
	Id              string `json:"id"`
	CustomerId      string `json:"customer_id"`
	AstrologerId    string `json:"astrologer_id"`
	ServiceType     string `json:"service_type"`
	Status          string `json:"status"`
	RatePerMinute   string `json:"rate_per_minute"`
	ConnectionId    string `json:"connection_id,omitempty"`
	StartTime       string `json:"start_time,omitempty"`
	EndTime         string `json:"end_time,omitempty"`
	DurationMinutes int64  `json:"duration_minutes"`
	TotalAmount     string `json:"total_amount"`
	Rating          int32  `json:"rating,omitempty"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

type Transaction struct {
	Id               string `json:"id"`
	UserId           string `json:"user_id"`
	Type             string `json:"type"`
	Status           string `json:"status"`
	Amount           string `json:"amount"`
	SessionId        string `json:"session_id,omitempty"`
	ServiceType      string `json:"service_type"`
	PaymentReference string `json:"payment_reference,omitempty"`
	PaymentMethod    string `json:"payment_method,omitempty"`
	Description      string `json:"description"`
	CreatedAt        string `json:"created_at"`
}

type CreateSessionRequest struct {
	AstrologerId string `json:"astrologer_id" validate:"required,max=64"`
	ServiceType  string `json:"service_type" validate:"required,oneof=call chat video"`
}

type CreateSessionResponse struct {
	Session *Session `json:"session"`
}

type GetSessionRequest struct {
	SessionId string `json:"session_id" validate:"required"`
}

type GetSessionResponse struct {
	Session *Session `json:"session"`
}

type TransitionSessionRequest struct {
	SessionId    string `json:"session_id" validate:"required"`
	Action       string `json:"action" validate:"required"`
	Rating       *int32 `json:"rating,omitempty"`
	ConnectionId string `json:"connection_id,omitempty" validate:"max=128"`
}

type TransitionSessionResponse struct {
	Session *Session `json:"session"`
}

type EndSessionRequest struct {
	SessionId       string `json:"session_id" validate:"required"`
	DurationMinutes int64  `json:"duration_minutes" validate:"gte=0"`
	TotalAmount     string `json:"total_amount" validate:"required,numeric"`
}

type EndSessionResponse struct {
	Session             *Session `json:"session"`
	DurationMinutes     int64    `json:"duration_minutes"`
	TotalAmount         string   `json:"total_amount"`
	Debited             string   `json:"debited"`
	AstrologerShare     string   `json:"astrologer_share"`
	PlatformShare       string   `json:"platform_share"`
	CustomerBalance     string   `json:"customer_balance"`
	InsufficientBalance bool     `json:"insufficient_balance"`
	Shortfall           string   `json:"shortfall"`
	ReportedMismatch    bool     `json:"reported_mismatch"`
}

type GetBalanceRequest struct{}

type GetBalanceResponse struct {
	Balance string `json:"balance"`
}

type ListTransactionsRequest struct {
	Page     int32 `json:"page" validate:"gte=0"`
	PageSize int32 `json:"page_size" validate:"gte=0"`
}

type ListTransactionsResponse struct {
	Transactions []*Transaction `json:"transactions"`
	TotalCount   int32          `json:"total_count"`
}

type InitiateRechargeRequest struct {
	Amount string `json:"amount" validate:"required,numeric"`
}

type InitiateRechargeResponse struct {
	PaymentReference string       `json:"payment_reference"`
	Transaction      *Transaction `json:"transaction"`
}

type RechargeWalletRequest struct {
	Amount           string `json:"amount" validate:"required,numeric"`
	PaymentReference string `json:"payment_reference" validate:"required,max=128"`
}

type RechargeWalletResponse struct {
	NewBalance    string       `json:"new_balance"`
	PaymentMethod string       `json:"payment_method"`
	Transaction   *Transaction `json:"transaction"`
}
