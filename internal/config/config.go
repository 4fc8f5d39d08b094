// Package config collects all runtime settings from the environment.
// A local .env file is loaded first when present, so development mirrors
// the deployed environment variable surface.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every externally tunable setting for the service.
type Config struct {
	Port string

	// PostgreSQL
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis draft cache
	RedisAddr     string
	RedisPassword string
	DraftTTL      time.Duration

	// Kafka notification stream
	KafkaBrokers []string
	KafkaTopic   string

	// Payment gateway (hosted checkout)
	GatewayBaseURL   string
	GatewaySecretKey string
	CallbackBaseURL  string

	// Badge issuing
	BadgeBaseURL string
	BadgeSecret  string

	// Admin API auth
	JWTSecret string

	// Fair pricing and branching rules
	HomeCountry         string
	Currency            string
	CurrencyMinorFactor int64
	InternationalTicket int64 // major units
	StandPrices         map[string]int64
	PayLaterGrace       time.Duration
}

// Load reads .env (if any) and assembles the Config with local-development
// defaults for anything unset.
func Load() (*Config, error) {
	// Missing .env is fine in production; variables come from the runtime.
	_ = godotenv.Load()

	minorFactor, err := envInt64("CURRENCY_MINOR_FACTOR", 100)
	if err != nil {
		return nil, err
	}
	intlTicket, err := envInt64("TICKET_PRICE_INTERNATIONAL", 1200)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port: getEnv("PORT", "8080"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "bookfair"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		DraftTTL:      24 * time.Hour,

		KafkaBrokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "bookfair.notifications"),

		GatewayBaseURL:   getEnv("GATEWAY_BASE_URL", "https://api.paystack.co"),
		GatewaySecretKey: getEnv("GATEWAY_SECRET_KEY", ""),
		CallbackBaseURL:  getEnv("CALLBACK_BASE_URL", "http://localhost:8080"),

		BadgeBaseURL: getEnv("BADGE_BASE_URL", "https://fair.bookfairhq.com/checkin"),
		BadgeSecret:  getEnv("BADGE_SECRET", "dev-badge-secret"),

		JWTSecret: getEnv("JWT_SECRET", "dev-jwt-secret"),

		HomeCountry:         getEnv("HOME_COUNTRY", "Nigeria"),
		Currency:            getEnv("CURRENCY", "NGN"),
		CurrencyMinorFactor: minorFactor,
		InternationalTicket: intlTicket,
		StandPrices: map[string]int64{
			"2sqm": 40000,
			"4sqm": 70000,
			"8sqm": 120000,
		},
		PayLaterGrace: 48 * time.Hour,
	}
	return cfg, nil
}

// DSN builds a libpq-compatible connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}
