package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLogger_JSONWithAttributes(t *testing.T) {
	var buf bytes.Buffer

	log := New(&buf, "info", "json").With("publisher", "example_publisher_1")
	log.Debug("hidden")
	log.Info("precleaned", "rows", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}

	if entry["publisher"] != "example_publisher_1" || entry["msg"] != "precleaned" {
		t.Errorf("entry = %v", entry)
	}
}

func TestLogger_SetLevelAffectsChildren(t *testing.T) {
	var buf bytes.Buffer

	parent := New(&buf, "error", "text")
	child := parent.With("unit", "u1")

	child.Info("before")
	parent.SetLevel("debug")
	child.Debug("after")

	out := buf.String()
	if strings.Contains(out, "before") || !strings.Contains(out, "after") {
		t.Errorf("unexpected output: %q", out)
	}

	if !child.Enabled(slog.LevelDebug) {
		t.Error("child should be enabled at debug after SetLevel")
	}
}
