package constants

import "time"

const (
	UsernameMaxLength = 64
	EmailMaxLength    = 120
	AboutMeMaxLength  = 140
	PostBodyMaxLength = 140
	PasswordMaxLength = 72

	DefaultAvatarSize      = 128
	DefaultPostAvatarSize  = 36
	DefaultAvatarHost      = "www.gravatar.com"
	DefaultMaxRequestSize  = 1 << 20
	SessionSecretMinLength = 32

	DefaultBcryptCost = 12
	MinBcryptCost     = 10

	Argon2idMemoryKiB   = 64 * 1024
	Argon2idIterations  = 3
	Argon2idParallelism = 2
	Argon2idSaltLength  = 16
	Argon2idKeyLength   = 32

	DefaultSessionTTL    = 24 * time.Hour
	DefaultRememberMeTTL = 365 * 24 * time.Hour
	SessionCookieName    = "microblog_session"
	FlashCookieName      = "microblog_flash"

	DefaultLivenessTimeout         = 2 * time.Second
	LivenessBreakerThreshold       = 5
	LivenessBreakerResetAfter      = 30 * time.Second
	DefaultCircuitBreakerThreshold = 20

	DBPoolMaxConns        = 25
	DBPoolMinConns        = 5
	DBPoolConnMaxLifetime = time.Hour
	DBPoolConnMaxIdleTime = 30 * time.Minute
	DBPoolHealthCheck     = time.Minute
	DBPoolConnectTimeout  = 5 * time.Second
	DBPoolMaxAttempts     = 10
	DBPoolRetryDelay      = time.Second
	DBPoolMetricsInterval = 30 * time.Second

	ServerReadHeaderTimeout = 10 * time.Second
	ServerReadTimeout       = 30 * time.Second
	ServerWriteTimeout      = 30 * time.Second
	ServerIdleTimeout       = 120 * time.Second

	ShutdownTimeout = 30 * time.Second
	DrainTimeout    = 10 * time.Second

	DefaultHTTPPort       = "8080"
	DefaultRequestTimeout = 5 * time.Second

	LoggerMaxSize    = 100
	LoggerMaxBackups = 3
	LoggerMaxAge     = 28
)

type TraceIDKeyType string

const TraceIDKey TraceIDKeyType = "trace_id"
