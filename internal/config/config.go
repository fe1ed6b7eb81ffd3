package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the binaries read from the environment. A .env
// file is honored in dev; real deployments set the variables directly.
type Config struct {
	Env         string // dev, prod
	HTTPPort    string // default 8080
	MetricsPort string // standalone /metrics listener for the workers

	PostgresDSN   string // required
	RedisAddr     string // host:port
	RedisUsername string
	RedisPassword string

	PaymentTTL      time.Duration // how long a pending payment may stay unconfirmed
	SessionTTL      time.Duration // lifetime of session-scoped booking flow state
	LockTTL         time.Duration // how long a Redis slot lock lives
	ShutdownTimeout time.Duration // graceful shutdown timeout
	WorkerInterval  time.Duration // how often the payment expiry worker runs
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Env:             envOr("APP_ENV", "dev"),
		HTTPPort:        envOr("HTTP_PORT", "8080"),
		MetricsPort:     envOr("METRICS_PORT", "9091"),
		PostgresDSN:     os.Getenv("POSTGRES_DSN"),
		PaymentTTL:      durationOr("PAYMENT_TTL", 15*time.Minute),
		SessionTTL:      durationOr("SESSION_TTL", 30*time.Minute),
		LockTTL:         durationOr("LOCK_TTL", 5*time.Second),
		ShutdownTimeout: durationOr("SHUTDOWN_TIMEOUT", 10*time.Second),
		WorkerInterval:  durationOr("WORKER_INTERVAL", time.Minute),
	}
	if cfg.PostgresDSN == "" {
		return Config{}, errors.New("POSTGRES_DSN is required")
	}
	if err := cfg.loadRedis(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadRedis prefers a single REDIS_URL and falls back to the split
// REDIS_ADDR / REDIS_USERNAME / REDIS_PASSWORD variables.
func (c *Config) loadRedis() error {
	raw := os.Getenv("REDIS_URL")
	if raw == "" {
		c.RedisAddr = envOr("REDIS_ADDR", "127.0.0.1:6379")
		c.RedisUsername = os.Getenv("REDIS_USERNAME")
		c.RedisPassword = os.Getenv("REDIS_PASSWORD")
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	c.RedisAddr = u.Host
	if u.User != nil {
		c.RedisUsername = u.User.Username()
		c.RedisPassword, _ = u.User.Password()
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// durationOr accepts either a bare number of seconds or a Go duration string.
func durationOr(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	fmt.Fprintf(os.Stderr, "invalid duration for %s=%q, using default %s\n", key, v, def)
	return def
}
