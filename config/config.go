package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration. Every field maps to an
// environment variable; Load applies defaults suitable for local
// development so the service can start with only the Stripe keys set.
type Config struct {
	ServerPort string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	RabbitURL string
	RedisAddr string

	StripeSecretKey     string
	StripeWebhookSecret string

	AdminJWTSecret string

	// PublicBaseURL is used for checkout success/cancel redirects and
	// as the UID namespace in exported calendars.
	PublicBaseURL string
	ICalNamespace string

	SyncInterval time.Duration
	FetchTimeout time.Duration
}

func Load() *Config {
	// .env is optional; real deployments set env vars directly.
	_ = godotenv.Load()

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "booking_db"),

		RabbitURL: getEnv("RABBITMQ_URL", ""),
		RedisAddr: getEnv("REDIS_ADDR", ""),

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", "dev-secret"),

		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		ICalNamespace: getEnv("ICAL_NAMESPACE", "palmhaven.example.com"),

		SyncInterval: time.Duration(getEnvInt("CALENDAR_SYNC_INTERVAL_MIN", 30)) * time.Minute,
		FetchTimeout: time.Duration(getEnvInt("CALENDAR_FETCH_TIMEOUT_SEC", 15)) * time.Second,
	}
}

func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
