// Package config loads runtime configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is everything the server needs at startup.
type Config struct {
	Env      string
	HTTPAddr string

	DatabaseURL string
	RedisURL    string

	JWTSecret  string
	JWTIssuer  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	BcryptCost int

	SentryDSN string

	// SignInRatePerMinute bounds credential attempts per client IP.
	SignInRatePerMinute int
}

// Load reads configuration from environment variables, applying defaults
// where the variable is unset. JWT_SECRET and DATABASE_URL are mandatory.
func Load() (Config, error) {
	cfg := Config{
		Env:                 getenv("APP_ENV", "local"),
		HTTPAddr:            getenv("HTTP_ADDR", ":8080"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		RedisURL:            os.Getenv("REDIS_URL"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		JWTIssuer:           getenv("JWT_ISSUER", "devlog"),
		SentryDSN:           os.Getenv("SENTRY_DSN"),
		SignInRatePerMinute: 10,
	}

	var err error
	if cfg.AccessTTL, err = getduration("ACCESS_TOKEN_TTL", time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTTL, err = getduration("REFRESH_TOKEN_TTL", 7*24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.BcryptCost, err = getint("BCRYPT_COST", 12); err != nil {
		return Config{}, err
	}
	if cfg.SignInRatePerMinute, err = getint("SIGNIN_RATE_PER_MINUTE", 10); err != nil {
		return Config{}, err
	}

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("config: JWT_SECRET is required")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("config: DATABASE_URL is required")
	}
	return cfg, nil
}

// Local reports whether the server runs in a local development environment.
// Cookie hardening (Secure, SameSite=Strict) is relaxed only here.
func (c Config) Local() bool {
	return c.Env == "local" || c.Env == "test"
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer: %w", key, err)
	}
	return n, nil
}

func getduration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be a duration: %w", key, err)
	}
	return d, nil
}
