package main

import (
	"context"

	"staybook/internal/bookings/events"
	bookingshandler "staybook/internal/bookings/handler"
	bookingsrepo "staybook/internal/bookings/repository"
	bookingsservice "staybook/internal/bookings/service"
	bookingsvalidator "staybook/internal/bookings/validator"
	"staybook/internal/health"
	listingshandler "staybook/internal/listings/handler"
	listingsrepo "staybook/internal/listings/repository"
	listingsservice "staybook/internal/listings/service"
	listingsvalidator "staybook/internal/listings/validator"
	"staybook/internal/payments/gateway"
	paymentshandler "staybook/internal/payments/handler"
	usershandler "staybook/internal/users/handler"
	usersrepo "staybook/internal/users/repository"
	usersservice "staybook/internal/users/service"
	usersvalidator "staybook/internal/users/validator"
	"staybook/pkg/app"
	"staybook/pkg/auth"
	"staybook/pkg/cache"
	"staybook/pkg/config"
	"staybook/pkg/kafka"
	kafka_config "staybook/pkg/kafka/config"
	kafkamw "staybook/pkg/kafka/middleware"
	"staybook/pkg/middleware"

	"golang.org/x/crypto/bcrypt"
)

const ServiceName = "staybook-api"

func main() {
	cfg := config.Load(ServiceName)
	if err := cfg.ValidateSecrets(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}

	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting StayBook API")
	serverApp := app.NewApplication(cfg)

	responseCache := initCache(cfg)
	metrics := kafkamw.NewMetrics()
	publisher := initPublisher(cfg, serverApp, metrics)

	userService := initUserService(cfg)
	requireAuth := middleware.RequireAuth(userService, cfg.Log)

	listingRepo := listingsrepo.NewMongoListingRepository(cfg)
	listingService := listingsservice.NewListingService(
		listingRepo,
		listingsvalidator.NewListingValidator(cfg.Log),
		responseCache,
		cfg,
	)

	paymentGateway := gateway.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	bookingService := bookingsservice.NewBookingService(
		bookingsrepo.NewMongoBookingRepository(cfg),
		bookingsrepo.NewListingLockRepository(cfg),
		listingRepo,
		paymentGateway,
		publisher,
		bookingsvalidator.NewBookingValidator(cfg.Log),
		cfg,
	)

	var idempotencyStore middleware.IdempotencyStore
	if responseCache != nil {
		idempotencyStore = middleware.NewCacheIdempotencyStore(responseCache, cfg.IdempotencyTTL, cfg.Log)
	}

	serverApp.SetAuthenticator(userService)
	serverApp.SetApp(
		health.NewHealthHandler(cfg.Client.Mongo, cfg.Client.Redis, metrics, cfg.Log),
		idempotencyStore,
		usershandler.NewUserHandler(userService, requireAuth, cfg.Log),
		listingshandler.NewListingHandler(listingService, requireAuth, cfg.Log),
		bookingshandler.NewBookingHandler(bookingService, requireAuth, cfg.Log),
		paymentshandler.NewPaymentHandler(paymentGateway, bookingService, cfg.Log),
	)
	serverApp.AddWorker(bookingsservice.NewSweeper(bookingService, cfg.SweepInterval, cfg.Log))
	serverApp.Run()
}

func initUserService(cfg *config.Config) usersservice.UserService {
	userService := usersservice.NewUserService(
		usersrepo.NewMongoUserRepository(cfg),
		usersvalidator.NewUserValidator(cfg.Log),
		auth.NewPasswordHasher(bcrypt.DefaultCost),
		auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL),
		cfg,
	)

	cfg.Log.Info("User service initialized", "database", cfg.MongoDatabaseName)
	return userService
}

// initCache returns nil when Redis is not reachable so callers fall back to
// their uncached paths.
func initCache(cfg *config.Config) cache.Cache {
	if cfg.Client.Redis == nil {
		return nil
	}
	return cache.NewRedisCache(cfg.Client.Redis, cache.Namespace)
}

func initPublisher(cfg *config.Config, serverApp *app.Application, metrics *kafkamw.Metrics) events.Publisher {
	if !cfg.EventsEnabled() {
		cfg.Log.Info("Kafka brokers not configured, booking events disabled")
		return events.Noop{}
	}

	kafkaCfg, err := kafka_config.Load(cfg.KafkaBrokers)
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.KafkaBookingTopic, cfg.KafkaBookingDLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	producer.Use(metrics.ProducerMiddleware())
	producer.Use(kafkamw.LoggingProducerMiddleware(cfg.Log))

	serverApp.OnShutdown(func(context.Context) error {
		return producer.Close()
	})

	cfg.Log.Info("Booking events enabled", "topic", cfg.KafkaBookingTopic)
	return events.NewKafkaPublisher(producer)
}
