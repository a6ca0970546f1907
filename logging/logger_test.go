package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dotside-studios/rfid-sfl/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"off", LevelOff},
		{"error", slog.LevelError},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"info", slog.LevelInfo},
		{"Debug", slog.LevelDebug},
		{"trace", LevelTrace},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewWriter_JSONDefaultFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(config.LoggingConfig{Level: "info", Format: "json"}, "1.2.3", &buf)

	log.With("component", "test").Info("hello", "n", 1)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	for key, want := range map[string]any{
		"msg":       "hello",
		"service":   "rfid-sfl",
		"version":   "1.2.3",
		"component": "test",
		"n":         float64(1),
	} {
		if entry[key] != want {
			t.Errorf("entry[%q] = %v, want %v", key, entry[key], want)
		}
	}
}

func TestNewWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(config.LoggingConfig{Level: "warn", Format: "text"}, "dev", &buf)

	log.Info("hidden")
	log.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message logged at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn message missing: %q", out)
	}
}

func TestNewWriter_Off(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(config.LoggingConfig{Level: "off"}, "dev", &buf)

	log.Error("nothing")

	if buf.Len() != 0 {
		t.Errorf("output = %q, want empty", buf.String())
	}
}

func TestTrace(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(config.LoggingConfig{Level: "trace"}, "dev", &buf)

	log.Trace("frame", "bytes", "AABB")

	out := buf.String()
	if !strings.Contains(out, "level=TRACE") {
		t.Errorf("output = %q, want level=TRACE", out)
	}

	buf.Reset()
	NewWriter(config.LoggingConfig{Level: "debug"}, "dev", &buf).Trace("frame")
	if buf.Len() != 0 {
		t.Errorf("trace logged at debug level: %q", buf.String())
	}
}

func TestOpenFile_TruncatesOversizedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rfid_sfl.log")
	if err := os.WriteFile(path, bytes.Repeat([]byte("x"), 2<<20), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := OpenFile(path, 1)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	f.WriteString("fresh\n")
	f.Close()

	data, _ := os.ReadFile(path)
	if string(data) != "fresh\n" {
		t.Errorf("file has %d bytes, want only the new line", len(data))
	}
}

func TestOpenFile_AppendsUnderLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rfid_sfl.log")
	if err := os.WriteFile(path, []byte("old\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := OpenFile(path, 5)
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	f.WriteString("new\n")
	f.Close()

	data, _ := os.ReadFile(path)
	if string(data) != "old\nnew\n" {
		t.Errorf("file = %q, want appended", data)
	}
}

func TestOpen_WithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	log, closer, err := Open(config.LoggingConfig{
		Level:     "info",
		Format:    "text",
		ToFile:    true,
		File:      path,
		MaxSizeMB: 5,
	}, "dev")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	log.Info("to file")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "to file") {
		t.Errorf("log file = %q, want message", data)
	}
}

func TestOpen_WithoutFile(t *testing.T) {
	log, closer, err := Open(config.LoggingConfig{Level: "info"}, "dev")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if log == nil || closer == nil {
		t.Fatal("Open() returned nil logger or closer")
	}
	if err := closer.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
