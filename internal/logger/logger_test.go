package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, _, err := New(Config{Level: "verbose"}); err == nil {
		t.Fatalf("New() error = nil, want error")
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	z, cleanup, err := newWithStderr(Config{Level: "info"}, &buf)
	if err != nil {
		t.Fatalf("newWithStderr() error = %v", err)
	}
	z.Debug("hidden")
	z.Info("turn appended", zap.Int("ordinal", 3))
	cleanup()

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line written at info level: %q", out)
	}
	if !strings.Contains(out, "turn appended") || !strings.Contains(out, `"ordinal": 3`) {
		t.Fatalf("output = %q, want info line with ordinal field", out)
	}
}

func TestWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "duet.log")
	var buf bytes.Buffer
	z, cleanup, err := newWithStderr(Config{Level: "debug", File: path}, &buf)
	if err != nil {
		t.Fatalf("newWithStderr() error = %v", err)
	}
	z.Warn("speech synthesis failed")
	cleanup()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "speech synthesis failed") {
		t.Fatalf("log file = %q", data)
	}
}
