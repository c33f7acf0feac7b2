// Package payment verifies recharge payments against the gateway's REST API.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"astroconsult-backend/internal/domain"
	"astroconsult-backend/internal/logger"
	"astroconsult-backend/internal/metrics"
)

const serviceName = "payment-gateway"

// Config configures the gateway client.
type Config struct {
	BaseURL     string
	KeyID       string
	KeySecret   string
	Timeout     time.Duration
	MaxAttempts int
	Backoff     time.Duration
	HTTPClient  *http.Client
}

// Client implements service.PaymentVerifier.
type Client struct {
	baseURL     string
	keyID       string
	keySecret   string
	timeout     time.Duration
	maxAttempts int
	backoff     time.Duration
	httpClient  *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("payment base_url required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid payment base_url: %w", err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	return &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		keyID:       cfg.KeyID,
		keySecret:   cfg.KeySecret,
		timeout:     cfg.Timeout,
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.Backoff,
		httpClient:  httpClient,
	}, nil
}

// gatewayPayment is the subset of the gateway's payment entity we read.
// Amount is in minor units (paise).
type gatewayPayment struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
	Method   string `json:"method"`
}

type gatewayCollection struct {
	Items []gatewayPayment `json:"items"`
}

type gatewayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// errTerminal marks gateway answers that retrying cannot change.
type errTerminal struct{ err error }

func (e *errTerminal) Error() string { return e.err.Error() }
func (e *errTerminal) Unwrap() error { return e.err }

// Verify asks the gateway about reference, which is either a payment id or an
// order id issued by InitiateRecharge. Only captured payments verify.
func (c *Client) Verify(ctx context.Context, reference string) (*domain.PaymentVerification, error) {
	logger.ExternalServiceCall(serviceName, "Verify", "reference", reference)
	start := time.Now()
	defer func() { metrics.PaymentVerificationDuration.Observe(time.Since(start).Seconds()) }()

	path := "/payments/" + url.PathEscape(reference)
	isOrder := strings.HasPrefix(reference, "order_")
	if isOrder {
		path = "/orders/" + url.PathEscape(reference) + "/payments"
	}

	var body []byte
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := c.wait(ctx, attempt); err != nil {
				lastErr = err
				break
			}
		}
		body, lastErr = c.get(ctx, path)
		if lastErr == nil {
			break
		}
		var terminal *errTerminal
		if errors.As(lastErr, &terminal) {
			logger.ExternalServiceResult(serviceName, "Verify", lastErr, "reference", reference)
			return nil, terminal.err
		}
		logger.Warn("Payment verification attempt failed", "reference", reference, "attempt", attempt, "error", lastErr)
	}
	if lastErr != nil {
		err := fmt.Errorf("%w: %v", domain.ErrVerificationUnavailable, lastErr)
		logger.ExternalServiceResult(serviceName, "Verify", err, "reference", reference)
		return nil, err
	}

	var payment gatewayPayment
	if isOrder {
		var coll gatewayCollection
		if err := json.Unmarshal(body, &coll); err != nil {
			return nil, fmt.Errorf("%w: decode order payments: %v", domain.ErrVerificationUnavailable, err)
		}
		p, ok := pickPayment(coll.Items)
		if !ok {
			result := &domain.PaymentVerification{Verified: false, Status: "no_payment"}
			logger.ExternalServiceResult(serviceName, "Verify", nil, "reference", reference, "status", result.Status)
			return result, nil
		}
		payment = p
	} else if err := json.Unmarshal(body, &payment); err != nil {
		return nil, fmt.Errorf("%w: decode payment: %v", domain.ErrVerificationUnavailable, err)
	}

	result := &domain.PaymentVerification{
		Verified: payment.Status == "captured",
		Method:   payment.Method,
		Amount:   decimal.New(payment.Amount, -2),
		Status:   payment.Status,
	}
	logger.ExternalServiceResult(serviceName, "Verify", nil, "reference", reference,
		"status", result.Status, "amount", result.Amount.StringFixed(2))
	return result, nil
}

// pickPayment prefers a captured payment; otherwise the first one.
func pickPayment(items []gatewayPayment) (gatewayPayment, bool) {
	if len(items) == 0 {
		return gatewayPayment{}, false
	}
	for _, p := range items {
		if p.Status == "captured" {
			return p, true
		}
	}
	return items[0], true
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, &errTerminal{fmt.Errorf("%w: build request: %v", domain.ErrVerificationUnavailable, err)}
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("gateway returned %d", resp.StatusCode)
	default:
		var ge gatewayError
		_ = json.Unmarshal(body, &ge)
		return nil, &errTerminal{fmt.Errorf("%w: gateway returned %d %s %s",
			domain.ErrPaymentVerificationFailed, resp.StatusCode, ge.Error.Code, ge.Error.Description)}
	}
}

func (c *Client) wait(ctx context.Context, attempt int) error {
	d := c.backoff * time.Duration(attempt-1)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Disabled is used when no gateway is configured; every verification is unavailable.
type Disabled struct{}

func (Disabled) Verify(ctx context.Context, reference string) (*domain.PaymentVerification, error) {
	return nil, fmt.Errorf("%w: payment gateway not configured", domain.ErrVerificationUnavailable)
}
