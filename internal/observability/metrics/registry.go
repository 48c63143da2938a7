package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_requests_total",
			Help: "Total number of registry requests",
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registry_requests_in_flight",
			Help: "Number of registry requests currently being processed",
		},
	)

	HTTPRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "registry_request_duration_seconds",
			Help:    "Duration of registry requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HTTPErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_http_errors_total",
			Help: "Total number of HTTP error responses",
		},
		[]string{"status", "path", "method"},
	)

	DomainErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_domain_errors_total",
			Help: "Total number of domain errors by category and code",
		},
		[]string{"category", "code", "status"},
	)

	RateLimitBlocked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_rate_limit_blocked_total",
			Help: "Total number of requests blocked by rate limiting",
		},
		[]string{"path", "limiter"},
	)

	RegistrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nip05_registrations_total",
			Help: "Total number of NIP-05 registration attempts",
		},
		[]string{"outcome"},
	)

	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nip05_resolutions_total",
			Help: "Total number of NIP-05 name resolutions",
		},
		[]string{"kind", "outcome"},
	)

	ProfileUpdatesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nip05_profile_updates_total",
			Help: "Total number of successful profile updates",
		},
	)

	ProfileDeletesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nip05_profile_deletes_total",
			Help: "Total number of profile deletions",
		},
	)

	ZapInvoiceRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zap_invoice_requests_total",
			Help: "Total number of Lightning invoice requests",
		},
		[]string{"outcome"},
	)

	ZapsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "zaps_published_total",
			Help: "Total number of wallet-mediated zap publish attempts",
		},
		[]string{"outcome"},
	)

	RelayProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_probes_total",
			Help: "Total number of relay liveness probes",
		},
		[]string{"status"},
	)

	SessionsStartedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_started_total",
			Help: "Total number of sessions started",
		},
	)

	SessionsExpiredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessions_expired_total",
			Help: "Total number of sessions expired by reason",
		},
		[]string{"reason"},
	)

	LoginLockoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "login_lockouts_total",
			Help: "Total number of login lockouts triggered",
		},
	)
)
