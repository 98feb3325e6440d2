package config

const (
	EnvMongoURI             = "MONGO_URI"
	EnvMongoDatabaseName    = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout     = "MONGO_CONN_TIMEOUT"
	EnvMongoUseTransactions = "MONGO_USE_TRANSACTIONS"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvJWTSecret = "JWT_SECRET"
	EnvJWTTTL    = "JWT_TTL"

	EnvStripeSecretKey       = "STRIPE_SECRET_KEY"
	EnvStripeWebhookSecret   = "STRIPE_WEBHOOK_SECRET"
	EnvPaymentCurrency       = "PAYMENT_CURRENCY"
	EnvPaymentTimeout        = "PAYMENT_TIMEOUT"
	EnvPaymentMaxConcurrency = "PAYMENT_MAX_CONCURRENCY"

	EnvClientURL     = "CLIENT_URL"
	EnvAllowedOrigin = "ALLOWED_ORIGIN"

	EnvPendingBookingTTL = "PENDING_BOOKING_TTL"
	EnvSweepInterval     = "SWEEP_INTERVAL"
	EnvLockTTL           = "LOCK_TTL"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"
	EnvCacheTTL      = "CACHE_TTL"

	EnvKafkaBrokers         = "KAFKA_BROKERS"
	EnvKafkaBookingTopic    = "KAFKA_BOOKING_TOPIC"
	EnvKafkaBookingDLQTopic = "KAFKA_BOOKING_DLQ_TOPIC"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
