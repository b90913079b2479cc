package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messenger_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "messenger_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Ledger request metrics
	TransactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messenger_transactions_total",
			Help: "Ledger requests by operation and outcome",
		},
		[]string{"op", "result"}, // result is "committed", "error" or a rejection code
	)

	TransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "messenger_transaction_duration_seconds",
			Help:    "Time from begin to commit of a ledger request",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1},
		},
		[]string{"op"},
	)

	// Business metrics
	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "messenger_messages_sent_total",
			Help: "Total messages relayed",
		},
	)

	MessageBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "messenger_message_bytes",
			Help:    "Ciphertext size of relayed messages",
			Buckets: []float64{32, 64, 128, 256, 512, 900},
		},
	)

	FeesCollected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messenger_fees_collected_lamports_total",
			Help: "Lamports charged to senders",
		},
		[]string{"kind"}, // "protocol" or "recipient"
	)

	RegistryEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messenger_registry_events_total",
			Help: "Encryption registry lifecycle events",
		},
		[]string{"event"},
	)

	NotificationsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messenger_notifications_published_total",
			Help: "MessageSent notifications handed to publishers",
		},
		[]string{"result"},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messenger_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)

	BlockedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messenger_blocked_requests_total",
			Help: "Total blocked requests",
		},
		[]string{"reason"},
	)

	// Infrastructure metrics
	RedisLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "messenger_redis_latency_seconds",
			Help:    "Redis operation latency",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05},
		},
	)
)
