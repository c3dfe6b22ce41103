package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, name := range []string{
		"SERVICE_NAME", "HTTP_PORT", "DATABASE_TYPE", "SQLITE_PATH",
		"CLOSER_INTERVAL", "RELAY_INTERVAL", "OUTBOX_BATCH_SIZE",
		"ENABLE_AUTO_CLOSE", "ENABLE_NOTIFICATIONS",
	} {
		t.Setenv(name, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.ServiceName != "agora" || cfg.HTTPPort != "8080" {
		t.Fatalf("unexpected service defaults: %+v", cfg)
	}
	if cfg.DatabaseType != DatabasePostgres {
		t.Fatalf("expected postgres by default, got %s", cfg.DatabaseType)
	}
	if cfg.CloserInterval != time.Minute || cfg.OutboxBatchSize != 100 {
		t.Fatalf("unexpected worker defaults: %+v", cfg)
	}
	if !cfg.EnableAutoClose || !cfg.EnableNotifications {
		t.Fatal("expected feature flags to default on")
	}
}

func TestLoadRejectsUnknownDatabaseType(t *testing.T) {
	t.Setenv("DATABASE_TYPE", "oracle")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unsupported database type")
	}
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	t.Setenv("DATABASE_TYPE", "sqlite")
	t.Setenv("CLOSER_INTERVAL", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid closer interval")
	}
}

func TestEnvBool(t *testing.T) {
	t.Setenv("FLAG_UNDER_TEST", "off")
	if envBool("FLAG_UNDER_TEST", true) {
		t.Fatal("expected off to be false")
	}
	t.Setenv("FLAG_UNDER_TEST", "maybe")
	if !envBool("FLAG_UNDER_TEST", true) {
		t.Fatal("expected unknown value to fall back")
	}
}
