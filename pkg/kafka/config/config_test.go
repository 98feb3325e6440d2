package kafka_config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load([]string{" localhost:9092 ", ""})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Brokers) != 1 || cfg.Brokers[0] != "localhost:9092" {
		t.Errorf("Brokers = %v, want [localhost:9092]", cfg.Brokers)
	}
	if cfg.ConsumerGroupID != DefaultConsumerGroupID {
		t.Errorf("ConsumerGroupID = %q, want %q", cfg.ConsumerGroupID, DefaultConsumerGroupID)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvKafkaConsumerMaxRetries, "7")
	t.Setenv(EnvKafkaConsumerRetryBackoff, "2s")
	t.Setenv(EnvKafkaProducerCompression, "zstd")

	cfg, err := Load([]string{"broker:9092"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ConsumerMaxRetries != 7 {
		t.Errorf("ConsumerMaxRetries = %d, want 7", cfg.ConsumerMaxRetries)
	}
	if cfg.ConsumerRetryBackoff != 2*time.Second {
		t.Errorf("ConsumerRetryBackoff = %s, want 2s", cfg.ConsumerRetryBackoff)
	}
	if cfg.ProducerCompression != "zstd" {
		t.Errorf("ProducerCompression = %q, want zstd", cfg.ProducerCompression)
	}
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv(EnvKafkaProducerCompression, "brotli")
	t.Setenv(EnvKafkaProducerRequireAcks, "2")

	_, err := Load(nil)
	if err == nil {
		t.Fatal("Load() expected error")
	}
	for _, want := range []string{"broker", "ProducerCompression", "ProducerRequireAcks"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}
