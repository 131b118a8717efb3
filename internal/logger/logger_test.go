package logger

import (
	"bytes"
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
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "json"})
	log.Info("library opened", "path", "/tmp/lib")

	out := buf.String()
	if !strings.Contains(out, `"msg":"library opened"`) {
		t.Errorf("missing message in JSON output: %s", out)
	}
	if !strings.Contains(out, `"path":"/tmp/lib"`) {
		t.Errorf("missing attr in JSON output: %s", out)
	}
}

func TestPrettyFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "pretty"})
	log.Warn("skipping row", "title", "Untitled")

	out := buf.String()
	if !strings.Contains(out, "WRN") {
		t.Errorf("missing level marker: %s", out)
	}
	if !strings.Contains(out, "skipping row") {
		t.Errorf("missing message: %s", out)
	}
	if !strings.Contains(out, "title=Untitled") {
		t.Errorf("missing attr: %s", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Writer: &buf, Format: "pretty", Level: slog.LevelWarn})
	log.Debug("hidden")
	log.Info("also hidden")

	if buf.Len() != 0 {
		t.Errorf("expected no output below warn level, got: %s", buf.String())
	}
}
