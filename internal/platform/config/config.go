package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DatabasePostgres = "postgres"
	DatabaseSQLite   = "sqlite"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string
	HTTPPort     string
	DatabaseType string
	PostgresDSN  string
	SQLitePath   string

	LogLevel string
	LogFile  string

	CloserInterval  time.Duration
	RelayInterval   time.Duration
	OutboxBatchSize int

	EnableAutoClose     bool
	EnableNotifications bool

	RevalidateURL   string
	RevalidateToken string

	SMTPAddr     string
	SMTPFrom     string
	SMTPUser     string
	SMTPPassword string
}

// Load reads the process environment. A .env file in the working directory
// is applied first when present; real environment variables win over it.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "agora"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	dbType := strings.ToLower(strings.TrimSpace(os.Getenv("DATABASE_TYPE")))
	if dbType == "" {
		dbType = DatabasePostgres
	}
	if dbType != DatabasePostgres && dbType != DatabaseSQLite {
		return Config{}, fmt.Errorf("unsupported DATABASE_TYPE %q", dbType)
	}

	sqlitePath := os.Getenv("SQLITE_PATH")
	if sqlitePath == "" {
		sqlitePath = "agora.db"
	}

	closerInterval, err := envDuration("CLOSER_INTERVAL", time.Minute)
	if err != nil {
		return Config{}, err
	}
	relayInterval, err := envDuration("RELAY_INTERVAL", 5*time.Second)
	if err != nil {
		return Config{}, err
	}
	batchSize, err := envInt("OUTBOX_BATCH_SIZE", 100)
	if err != nil {
		return Config{}, err
	}

	return Config{
		ServiceName:  service,
		HTTPPort:     port,
		DatabaseType: dbType,
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		SQLitePath:   sqlitePath,

		LogLevel: os.Getenv("LOG_LEVEL"),
		LogFile:  os.Getenv("LOG_FILE"),

		CloserInterval:  closerInterval,
		RelayInterval:   relayInterval,
		OutboxBatchSize: batchSize,

		EnableAutoClose:     envBool("ENABLE_AUTO_CLOSE", true),
		EnableNotifications: envBool("ENABLE_NOTIFICATIONS", true),

		RevalidateURL:   strings.TrimSpace(os.Getenv("REVALIDATE_URL")),
		RevalidateToken: os.Getenv("REVALIDATE_TOKEN"),

		SMTPAddr:     strings.TrimSpace(os.Getenv("SMTP_ADDR")),
		SMTPFrom:     strings.TrimSpace(os.Getenv("SMTP_FROM")),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
	}, nil
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envDuration(name string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return value, nil
}

func envInt(name string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return value, nil
}
