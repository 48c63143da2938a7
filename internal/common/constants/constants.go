package constants

import "time"

const (
	PublicKeyHexLength = 64

	SessionSecretMinLength = 32

	DefaultMaxRequestSize = 1 << 20

	SessionTTL           = 30 * time.Minute
	SessionCheckInterval = 1 * time.Second
	LoginTimeout         = 10 * time.Second
	LockoutThreshold     = 5
	LockoutDuration      = 15 * time.Minute
	ActionWindowLimit    = 10
	ActionWindow         = 60 * time.Minute

	RelayProbeTimeout = 5 * time.Second
	ZapPublishTimeout = 5 * time.Second
	LnurlResponseMax  = 1 << 20
	StatsTimelineDays = 30

	DBPoolMaxOpenConns    = 25
	DBPoolMinOpenConns    = 5
	DBPoolConnMaxLifetime = time.Hour
	DBPoolConnMaxIdleTime = 30 * time.Minute
	DBPoolHealthCheck     = 1 * time.Minute
	DBPoolConnectTimeout  = 5 * time.Second
	DBPoolMaxAttempts     = 10
	DBPoolRetryDelay      = 1 * time.Second
	DBPoolMetricsInterval = 30 * time.Second

	ServerReadHeaderTimeout = 10 * time.Second
	ServerReadTimeout       = 30 * time.Second
	ServerWriteTimeout      = 30 * time.Second
	ServerIdleTimeout       = 120 * time.Second

	ShutdownTimeout = 30 * time.Second
	DrainTimeout    = 10 * time.Second

	DefaultHTTPPort       = "8080"
	DefaultRequestTimeout = 5 * time.Second
	DefaultLnurlTimeout   = 15 * time.Second

	RateLimitCleanupInterval = 5 * time.Minute

	RateLimitRegisterRequestsPerSecond = 0.5
	RateLimitRegisterBurst             = 3
	RateLimitZapRequestsPerSecond      = 1.0
	RateLimitZapBurst                  = 5
	RateLimitGeneralRequestsPerSecond  = 10.0
	RateLimitGeneralBurst              = 20

	LoggerMaxSize    = 100
	LoggerMaxBackups = 3
	LoggerMaxAge     = 28
)

type TraceIDKeyType string

const TraceIDKey TraceIDKeyType = "trace_id"
