package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GRPCRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "astro_grpc_requests_total",
			Help: "Total number of gRPC requests",
		},
		[]string{"method", "code"},
	)

	GRPCRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "astro_grpc_request_duration_seconds",
			Help:    "gRPC request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "astro_rate_limited_total",
			Help: "Requests rejected by the per-caller rate limiter",
		},
	)

	SessionTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "astro_session_transitions_total",
			Help: "Applied session lifecycle transitions",
		},
		[]string{"action", "to_status"},
	)

	SettlementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "astro_settlements_total",
			Help: "Settlement runs by trigger and outcome (applied, noop, error)",
		},
		[]string{"trigger", "outcome"},
	)

	SettledAmountTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "astro_settled_amount_total",
			Help: "Money moved by settlements, by party",
		},
		[]string{"party"},
	)

	SettlementDiscrepanciesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "astro_settlement_discrepancies_total",
			Help: "Reported session totals that disagreed with the server computation",
		},
	)

	InsufficientBalanceTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "astro_insufficient_balance_total",
			Help: "Settlements where the customer could not cover the charge",
		},
		[]string{"policy"},
	)

	RechargesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "astro_wallet_recharges_total",
			Help: "Recharge attempts by outcome",
		},
		[]string{"outcome"},
	)

	PaymentVerificationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "astro_payment_verification_duration_seconds",
			Help:    "Latency of payment gateway verification calls",
			Buckets: prometheus.DefBuckets,
		},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "astro_notifications_total",
			Help: "Notification deliveries by channel and status",
		},
		[]string{"channel", "status"},
	)

	NotificationQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "astro_notification_queue_length",
			Help: "Current length of the notification queue",
		},
	)

	JobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "astro_job_runs_total",
			Help: "Scheduled job runs by job and status",
		},
		[]string{"job", "status"},
	)
)

// ObserveSettlement records the outcome of one settlement call.
func ObserveSettlement(trigger string, applied bool, err error) {
	outcome := "noop"
	switch {
	case err != nil:
		outcome = "error"
	case applied:
		outcome = "applied"
	}
	SettlementsTotal.WithLabelValues(trigger, outcome).Inc()
}
