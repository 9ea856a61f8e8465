package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	OTP       OTPConfig
	Webhook   WebhookConfig
	Dispatch  DispatchConfig
	Bootstrap BootstrapConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret string
	JWTTTL    time.Duration
}

type OTPConfig struct {
	Digits   int
	TTL      time.Duration
	Cooldown time.Duration
}

type WebhookConfig struct {
	VerifyToken string
	DedupWindow time.Duration
}

type DispatchConfig struct {
	// URL of the conversation collaborator that turns routed messages
	// into replies. Empty disables HTTP forwarding.
	CollaboratorURL    string
	CollaboratorSecret string
	Timeout            time.Duration
}

type BootstrapConfig struct {
	SuperadminEmail    string
	SuperadminPassword string
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	otpDigits, err := getEnvInt("OTP_DIGITS", 6)
	if err != nil {
		return nil, fmt.Errorf("invalid OTP_DIGITS: %w", err)
	}

	otpTTL, err := getEnvDuration("OTP_TTL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid OTP_TTL: %w", err)
	}

	otpCooldown, err := getEnvDuration("OTP_COOLDOWN", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid OTP_COOLDOWN: %w", err)
	}

	jwtTTL, err := getEnvDuration("JWT_TTL", 7*24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}

	dedupWindow, err := getEnvDuration("WEBHOOK_DEDUP_WINDOW", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid WEBHOOK_DEDUP_WINDOW: %w", err)
	}

	dispatchTimeout, err := getEnvDuration("DISPATCH_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid DISPATCH_TIMEOUT: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			JWTTTL:    jwtTTL,
		},
		OTP: OTPConfig{
			Digits:   otpDigits,
			TTL:      otpTTL,
			Cooldown: otpCooldown,
		},
		Webhook: WebhookConfig{
			VerifyToken: getEnv("WEBHOOK_VERIFY_TOKEN", ""),
			DedupWindow: dedupWindow,
		},
		Dispatch: DispatchConfig{
			CollaboratorURL:    getEnv("COLLABORATOR_URL", ""),
			CollaboratorSecret: getEnv("COLLABORATOR_SECRET", ""),
			Timeout:            dispatchTimeout,
		},
		Bootstrap: BootstrapConfig{
			SuperadminEmail:    getEnv("SUPERADMIN_EMAIL", ""),
			SuperadminPassword: getEnv("SUPERADMIN_PASSWORD", ""),
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var missing []string
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.Webhook.VerifyToken == "" {
		missing = append(missing, "WEBHOOK_VERIFY_TOKEN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}
