package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Brokers []string

	ProducerCompression  string
	ProducerRequireAcks  int
	ProducerMaxAttempts  int
	ProducerBatchTimeout time.Duration
	ProducerAsync        bool
}

func Load() *Config {
	return &Config{
		Brokers: splitBrokers(getEnvStr(EnvKafkaBrokers, DefaultKafkaBrokers)),

		ProducerCompression:  getEnvStr(EnvProducerCompression, DefaultProducerCompression),
		ProducerRequireAcks:  getEnvNum(EnvProducerRequireAcks, DefaultProducerRequireAcks),
		ProducerMaxAttempts:  getEnvNum(EnvProducerMaxAttempts, DefaultProducerMaxAttempts),
		ProducerBatchTimeout: getEnvDuration(EnvProducerBatchTimeout, DefaultProducerBatchTimeout),
		ProducerAsync:        getEnvBool(EnvProducerAsync, DefaultProducerAsync),
	}
}

func (cfg *Config) Validate() error {
	if len(cfg.Brokers) == 0 {
		return fmt.Errorf("at least one Kafka broker is required")
	}
	if cfg.ProducerMaxAttempts <= 0 {
		return fmt.Errorf("ProducerMaxAttempts must be positive, got: %d", cfg.ProducerMaxAttempts)
	}
	if cfg.ProducerBatchTimeout <= 0 {
		return fmt.Errorf("ProducerBatchTimeout must be positive, got: %s", cfg.ProducerBatchTimeout)
	}
	return nil
}

func splitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(b); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	return brokers
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}
