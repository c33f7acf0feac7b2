package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astroconsult-backend/internal/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{
		BaseURL:     srv.URL + "/v1",
		KeyID:       "rzp_test",
		KeySecret:   "secret",
		Timeout:     time.Second,
		MaxAttempts: 3,
		Backoff:     time.Millisecond,
	})
	require.NoError(t, err)
	return c, srv
}

func TestVerify_CapturedPayment(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/pay_123", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_test", user)
		assert.Equal(t, "secret", pass)
		w.Write([]byte(`{"id":"pay_123","amount":25050,"currency":"INR","status":"captured","method":"upi"}`))
	})

	v, err := c.Verify(context.Background(), "pay_123")
	require.NoError(t, err)
	assert.True(t, v.Verified)
	assert.Equal(t, "upi", v.Method)
	assert.Equal(t, "250.5", v.Amount.String())
}

func TestVerify_NotCaptured(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"pay_9","amount":100,"status":"failed","method":"card"}`))
	})

	v, err := c.Verify(context.Background(), "pay_9")
	require.NoError(t, err)
	assert.False(t, v.Verified)
	assert.Equal(t, "failed", v.Status)
}

func TestVerify_OrderReference(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/orders/order_abc/payments", r.URL.Path)
		w.Write([]byte(`{"items":[
			{"id":"pay_1","amount":5000,"status":"failed","method":"card"},
			{"id":"pay_2","amount":5000,"status":"captured","method":"netbanking"}]}`))
	})

	v, err := c.Verify(context.Background(), "order_abc")
	require.NoError(t, err)
	assert.True(t, v.Verified)
	assert.Equal(t, "netbanking", v.Method)
	assert.Equal(t, "50", v.Amount.String())
}

func TestVerify_OrderWithoutPayments(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[]}`))
	})

	v, err := c.Verify(context.Background(), "order_empty")
	require.NoError(t, err)
	assert.False(t, v.Verified)
}

func TestVerify_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"id":"pay_r","amount":1000,"status":"captured","method":"upi"}`))
	})

	v, err := c.Verify(context.Background(), "pay_r")
	require.NoError(t, err)
	assert.True(t, v.Verified)
	assert.Equal(t, int32(3), calls.Load())
}

func TestVerify_ExhaustedRetriesAreUnavailable(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Verify(context.Background(), "pay_x")
	assert.ErrorIs(t, err, domain.ErrVerificationUnavailable)
	assert.True(t, domain.IsRetryable(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestVerify_ClientErrorIsTerminal(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"The id provided does not exist"}}`))
	})

	_, err := c.Verify(context.Background(), "pay_missing")
	assert.ErrorIs(t, err, domain.ErrPaymentVerificationFailed)
	assert.Contains(t, err.Error(), "does not exist")
	assert.Equal(t, int32(1), calls.Load())
}

func TestVerify_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c, err := NewClient(Config{BaseURL: srv.URL, Timeout: 20 * time.Millisecond, MaxAttempts: 2})
	require.NoError(t, err)

	_, err = c.Verify(context.Background(), "pay_slow")
	assert.ErrorIs(t, err, domain.ErrVerificationUnavailable)
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)
}
