package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"staybook/internal/audit"
	"staybook/pkg/config"
	"staybook/pkg/kafka"
	kafka_config "staybook/pkg/kafka/config"
	kafkamw "staybook/pkg/kafka/middleware"
)

const ServiceName = "booking-audit"

func main() {
	cfg := config.Load(ServiceName)
	if !cfg.EventsEnabled() {
		cfg.Log.Fatal("KAFKA_BROKERS must be set for the booking audit consumer")
	}

	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	kafkaCfg, err := kafka_config.Load(cfg.KafkaBrokers)
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	recorder := audit.NewRecorder(audit.NewMongoEventStore(cfg), cfg.Log)
	consumer, err := kafka.NewConsumer(kafkaCfg, cfg.KafkaBookingTopic, cfg.KafkaBookingDLQTopic, recorder.Handle, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	metrics := kafkamw.NewMetrics()
	consumer.Use(metrics.ConsumerMiddleware())
	consumer.Use(kafkamw.LoggingConsumerMiddleware(cfg.Log))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg.Log.Info("Starting booking audit consumer", "topic", cfg.KafkaBookingTopic, "group_id", kafkaCfg.ConsumerGroupID)
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, kafka.ErrConsumerClosed) {
		cfg.Log.Error("Booking audit consumer stopped with error", "error", err)
	}

	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close Kafka consumer", "error", err)
	}
	cfg.Log.Info("Booking audit consumer stopped", "stats", metrics.Snapshot())
}
