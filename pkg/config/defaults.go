package config

import "time"

const (
	DefaultMongoURI             = "mongodb://localhost:27017"
	DefaultMongoDatabaseName    = "staybook"
	DefaultMongoConnTimeout     = 10 * time.Second
	DefaultMongoUseTransactions = false

	DefaultPort     = "5000"
	DefaultLogLevel = "info"

	DefaultJWTTTL = 24 * time.Hour

	DefaultPaymentCurrency       = "inr"
	DefaultPaymentTimeout        = 10 * time.Second
	DefaultPaymentMaxConcurrency = 40

	DefaultClientURL     = "http://localhost:5173"
	DefaultAllowedOrigin = "*"

	// Checkout sessions cannot expire sooner than 30 minutes after creation.
	MinPendingBookingTTL     = 31 * time.Minute
	MaxPendingBookingTTL     = 24 * time.Hour
	DefaultPendingBookingTTL = 45 * time.Minute
	DefaultSweepInterval     = 5 * time.Minute
	DefaultLockTTL           = 15 * time.Second
	MinLockTTL               = 2 * time.Second

	DefaultRedisDB  = 0
	DefaultCacheTTL = 2 * time.Minute

	DefaultKafkaBookingTopic    = "booking-events"
	DefaultKafkaBookingDLQTopic = "booking-events-dlq"

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 35 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
)
