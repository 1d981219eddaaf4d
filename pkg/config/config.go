package config

import (
	"time"

	"github.com/joho/godotenv"
)

// Config holds the runtime defaults for the trust-boundary components.
// Everything here is operational tuning; credentials themselves are resolved
// through pkg/credentials sources, never from this struct.
type Config struct {
	ServiceName string // e.g. "governance-poller"
	Env         string // e.g. "dev", "uat", "prod"
	LogLevel    string // "debug", "info", etc.

	HTTPTimeout     time.Duration // mandatory outbound request timeout
	DecodeMaxLength int           // max declared payload length accepted by the decoder

	AWSRegion   string        // for the Secrets Manager provider
	SecretTTL   time.Duration // TTL for cached secret maps
	CleanupFreq time.Duration // frequency of the secret cache cleanup goroutine

	NATSURL      string // audit event sink, e.g. nats://localhost:4222
	AuditSubject string // subject for trust-boundary failure events

	RedisAddr   string // last-good payload cache
	RedisDB     int
	RedisPass   string
	LastGoodTTL time.Duration // how long a stale payload stays servable
	MetricsAddr string        // promhttp scrape endpoint, empty disables it
}

// Load loads configuration from environment variables and .env file if present.
func Load() *Config {
	// load .env silently (no error if missing)
	_ = godotenv.Load()

	return &Config{
		ServiceName:     GetEnv("SERVICE_NAME", "trustbound"),
		Env:             GetEnv("ENV", "dev"),
		LogLevel:        GetEnv("LOG_LEVEL", "info"),
		HTTPTimeout:     GetEnvDuration("HTTP_TIMEOUT", 10*time.Second),
		DecodeMaxLength: GetEnvInt("DECODE_MAX_LENGTH", 10000),
		AWSRegion:       GetEnv("AWS_REGION", "us-east-2"),
		SecretTTL:       GetEnvDuration("SECRET_CACHE_TTL", 24*time.Hour),
		CleanupFreq:     GetEnvDuration("SECRET_CACHE_CLEANUP_FREQ", 10*time.Minute),
		NATSURL:         GetEnv("NATS_URL", "nats://localhost:4222"),
		AuditSubject:    GetEnv("AUDIT_SUBJECT", "evt.trustbound.failure.v1"),
		RedisAddr:       GetEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:         GetEnvInt("REDIS_DB", 0),
		RedisPass:       GetEnv("REDIS_PASS", ""),
		LastGoodTTL:     GetEnvDuration("LAST_GOOD_TTL", 1*time.Hour),
		MetricsAddr:     GetEnv("METRICS_ADDR", ""),
	}
}
