package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the tracker reads from the environment. All
// variables carry the TRACKER_ prefix.
type Config struct {
	HTTPAddr string

	WebhookToken      string
	WebhookSecret     string
	AdminPasswordHash string

	KafkaBrokers []string
	KafkaTopic   string

	DatabaseURL string

	OrderTTL      time.Duration
	SweepInterval time.Duration

	SubscriberBuffer int
	LogLevel         string
}

// Load reads a .env file when one is nearby, then assembles and validates
// the configuration from the environment.
func Load() (*Config, error) {
	loadEnv()

	cfg := &Config{
		HTTPAddr:          getenv("TRACKER_HTTP_ADDR", ":8080"),
		WebhookToken:      os.Getenv("TRACKER_WEBHOOK_TOKEN"),
		WebhookSecret:     os.Getenv("TRACKER_WEBHOOK_SECRET"),
		AdminPasswordHash: os.Getenv("TRACKER_ADMIN_PASSWORD_HASH"),
		KafkaTopic:        getenv("TRACKER_KAFKA_TOPIC", "order-status-events"),
		DatabaseURL:       os.Getenv("TRACKER_DATABASE_URL"),
		LogLevel:          getenv("TRACKER_LOG_LEVEL", "info"),
	}

	if brokers := os.Getenv("TRACKER_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	var err error
	if cfg.OrderTTL, err = getduration("TRACKER_ORDER_TTL", 0); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = getduration("TRACKER_SWEEP_INTERVAL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.SubscriberBuffer, err = getint("TRACKER_SUBSCRIBER_BUFFER", 16); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the cross-field rules a bad environment can break.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("TRACKER_HTTP_ADDR must not be empty")
	}
	if c.SubscriberBuffer <= 0 {
		return fmt.Errorf("TRACKER_SUBSCRIBER_BUFFER must be positive, got %d", c.SubscriberBuffer)
	}
	if c.OrderTTL < 0 {
		return fmt.Errorf("TRACKER_ORDER_TTL must not be negative, got %s", c.OrderTTL)
	}
	if c.OrderTTL > 0 && c.SweepInterval <= 0 {
		return fmt.Errorf("TRACKER_SWEEP_INTERVAL must be positive when TRACKER_ORDER_TTL is set")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return fmt.Errorf("TRACKER_KAFKA_TOPIC must not be empty when brokers are configured")
	}
	return nil
}

// loadEnv walks up from the working directory looking for a .env file. Not
// finding one is fine; the process then runs on the environment alone.
func loadEnv() {
	wd, err := os.Getwd()
	if err != nil {
		return
	}

	possiblePaths := []string{
		filepath.Join(wd, ".env"),
		filepath.Join(wd, "..", ".env"),
		filepath.Join(wd, "..", "..", ".env"),
	}

	for _, envPath := range possiblePaths {
		if err := godotenv.Load(envPath); err == nil {
			return
		}
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getduration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func getint(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}
