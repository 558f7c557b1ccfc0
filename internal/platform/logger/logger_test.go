package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ogurasousui/org-directory/internal/platform/config"
)

func TestNew_FileOutput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "app.log")
	log, err := New(config.LoggerConfig{Level: "debug", Format: "json", Output: "file", FilePath: path, MaxSize: 1})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	log.Info("hello")
	_ = log.Sync()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if len(b) == 0 {
		t.Fatalf("expected log output in %s", path)
	}
}

func TestNew_InvalidSettings(t *testing.T) {
	t.Parallel()

	if _, err := New(config.LoggerConfig{Level: "verbose"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if _, err := New(config.LoggerConfig{Level: "info", Output: "syslog"}); err == nil {
		t.Fatalf("expected error for unknown output")
	}
	if _, err := New(config.LoggerConfig{Level: "info", Output: "file"}); err == nil {
		t.Fatalf("expected error for missing file path")
	}
}
