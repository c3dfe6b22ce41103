package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"chatty":  slog.LevelInfo,
	}
	for raw, want := range cases {
		if got := ParseLevel(raw); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestNewFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn := New(Options{Level: "warn", Output: &buf})
	defer func() { _ = closeFn() }()

	logger.Info("hidden", "event", "test_info")
	logger.Warn("shown", "event", "test_warn")

	out := buf.String()
	if strings.Contains(out, "test_info") {
		t.Fatalf("info line should be filtered: %s", out)
	}
	if !strings.Contains(out, `"event":"test_warn"`) {
		t.Fatalf("expected warn line in JSON output: %s", out)
	}
}

func TestNewWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agora.log")
	var buf bytes.Buffer
	logger, closeFn := New(Options{File: path, Output: &buf})
	logger.Info("hello", "event", "test_file")
	if err := closeFn(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "test_file") {
		t.Fatalf("expected log line in file: %s", content)
	}
}
