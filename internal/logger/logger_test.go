package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestSetup_EmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	log := Setup(&buf)

	log.Info("hello", slog.String("key", "value"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["msg"] != "hello" {
		t.Errorf("msg = %v, want %q", entry["msg"], "hello")
	}
	if entry["key"] != "value" {
		t.Errorf("key = %v, want %q", entry["key"], "value")
	}
}

func TestSetup_DefaultLevelSuppressesDebug(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	var buf bytes.Buffer
	log := Setup(&buf)

	log.Debug("should not appear")
	if buf.Len() != 0 {
		t.Errorf("debug log emitted at default level: %s", buf.String())
	}
}

func TestSetup_LogLevelFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")

	var buf bytes.Buffer
	log := Setup(&buf)

	log.Debug("visible")
	if buf.Len() == 0 {
		t.Error("expected debug log with LOG_LEVEL=debug")
	}
}
