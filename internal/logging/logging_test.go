package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDailyWriterWriteAndDefaults(t *testing.T) {
	dir := t.TempDir()
	writer, err := NewDailyWriter(dir, "", 0)
	if err != nil {
		t.Fatalf("NewDailyWriter: %v", err)
	}
	defer writer.Close()

	if _, err := writer.Write([]byte("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	path := filepath.Join(dir, "boombot-"+time.Now().Format(dateLayout)+".log")
	if writer.Path() != path {
		t.Fatalf("expected path %q, got %q", path, writer.Path())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Fatalf("log content missing")
	}
	if writer.retentionDays != defaultRetention {
		t.Fatalf("expected default retention, got %d", writer.retentionDays)
	}
}

func TestDailyWriterRotatesAtMidnight(t *testing.T) {
	dir := t.TempDir()
	day := time.Date(2026, 3, 9, 23, 59, 0, 0, time.Local)
	writer, err := NewDailyWriter(dir, "rot", 30)
	if err != nil {
		t.Fatalf("NewDailyWriter: %v", err)
	}
	defer writer.Close()

	writer.now = func() time.Time { return day }
	if _, err := writer.Write([]byte("first\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	writer.now = func() time.Time { return day.Add(2 * time.Minute) }
	if _, err := writer.Write([]byte("second\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	first, err := os.ReadFile(filepath.Join(dir, "rot-20260309.log"))
	if err != nil || string(first) != "first\n" {
		t.Fatalf("unexpected first file %q: %v", first, err)
	}
	second, err := os.ReadFile(filepath.Join(dir, "rot-20260310.log"))
	if err != nil || string(second) != "second\n" {
		t.Fatalf("unexpected second file %q: %v", second, err)
	}
}

func TestDailyWriterCleanup(t *testing.T) {
	dir := t.TempDir()
	prefix := "test"

	oldPath := filepath.Join(dir, prefix+"-"+time.Now().AddDate(0, 0, -3).Format(dateLayout)+".log")
	recentPath := filepath.Join(dir, prefix+"-"+time.Now().Format(dateLayout)+".log")
	otherPath := filepath.Join(dir, "other-20000101.log")
	for _, p := range []string{oldPath, recentPath, otherPath} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}

	writer, err := NewDailyWriter(dir, prefix, 1)
	if err != nil {
		t.Fatalf("NewDailyWriter: %v", err)
	}
	defer writer.Close()

	if _, err := os.Stat(oldPath); err == nil {
		t.Fatalf("expected old log to be removed")
	}
	if _, err := os.Stat(recentPath); err != nil {
		t.Fatalf("expected recent log to remain: %v", err)
	}
	if _, err := os.Stat(otherPath); err != nil {
		t.Fatalf("files with another prefix must be kept: %v", err)
	}
}

func TestDailyWriterCloseNil(t *testing.T) {
	w := &DailyWriter{}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestNewLoggerJSON(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var console bytes.Buffer
	logger, writer, err := NewLogger(Options{Dir: t.TempDir(), Level: "debug", Format: "json", Console: &console})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer writer.Close()

	logger.Debug("sector checked", "layer", "exact")

	var record map[string]any
	if err := json.Unmarshal(console.Bytes(), &record); err != nil {
		t.Fatalf("expected json record, got %q: %v", console.String(), err)
	}
	if record["msg"] != "sector checked" || record["service"] != "boombot" || record["layer"] != "exact" {
		t.Fatalf("unexpected record: %v", record)
	}
	data, err := os.ReadFile(writer.Path())
	if err != nil || !strings.Contains(string(data), "sector checked") {
		t.Fatalf("expected record in log file: %v", err)
	}
}

func TestNewLoggerFiltersByLevel(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var console bytes.Buffer
	logger, writer, err := NewLogger(Options{Dir: t.TempDir(), Level: "warn", Console: &console})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer writer.Close()

	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(console.String(), "hidden") || !strings.Contains(console.String(), "msg=shown") {
		t.Fatalf("unexpected output %q", console.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"-4":      slog.LevelDebug,
		"bogus":   slog.LevelInfo,
	}
	for input, want := range cases {
		if got := ParseLevel(input, slog.LevelInfo); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}
