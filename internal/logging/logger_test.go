package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ballooncd/internal/services"
)

func TestConsoleHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: slog.LevelDebug, Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Warn("tool missing", String("binary", "rar"), Int("checked", 12))

	got := buf.String()
	want := "WARNING: tool missing binary=rar checked=12\n"
	if got != want {
		t.Fatalf("console output = %q, want %q", got, want)
	}
}

func TestConsoleHandlerComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: slog.LevelInfo, Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	NewComponentLogger(logger, "pipeline").Info("staging ready", String("dir", "/tmp/x"))

	got := buf.String()
	if !strings.HasPrefix(got, "INFO: pipeline: staging ready") {
		t.Fatalf("component not hoisted: %q", got)
	}
	if !strings.Contains(got, "dir=/tmp/x") {
		t.Fatalf("attribute missing: %q", got)
	}
}

func TestConsoleHandlerQuoting(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: slog.LevelInfo, Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("copy", String("path", "my disc.iso"), String("empty", ""))

	got := buf.String()
	if !strings.Contains(got, `path="my disc.iso"`) {
		t.Fatalf("value with spaces not quoted: %q", got)
	}
	if !strings.Contains(got, `empty=""`) {
		t.Fatalf("empty value not quoted: %q", got)
	}
}

func TestConsoleHandlerGroups(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: slog.LevelInfo, Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.WithGroup("iso").Info("built", Int("size", 42))

	if got := buf.String(); !strings.Contains(got, "iso.size=42") {
		t.Fatalf("group prefix not flattened: %q", got)
	}
}

func TestConsoleHandlerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: slog.LevelWarn, Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("hidden")
	logger.Debug("hidden too")
	logger.Warn("visible")

	got := buf.String()
	if strings.Contains(got, "hidden") {
		t.Fatalf("records below threshold leaked: %q", got)
	}
	if !strings.Contains(got, "WARNING: visible") {
		t.Fatalf("warning record missing: %q", got)
	}
}

func TestJSONHandlerKeys(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: slog.LevelInfo, Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("recorded", String("volid", "BACKUP"))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	for _, key := range []string{"ts", "level", "msg", "volid"} {
		if _, ok := record[key]; !ok {
			t.Fatalf("missing key %q in %v", key, record)
		}
	}
	if record["level"] != "info" {
		t.Fatalf("level = %v, want info", record["level"])
	}
	if record["msg"] != "recorded" {
		t.Fatalf("msg = %v, want recorded", record["msg"])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewWritesFileCopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "run.log")
	var buf bytes.Buffer
	logger, err := New(Options{Level: slog.LevelInfo, Writer: &buf, FilePath: path})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("mirrored")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "mirrored") {
		t.Fatalf("file copy missing record: %q", string(data))
	}
	if !strings.Contains(buf.String(), "mirrored") {
		t.Fatalf("primary writer missing record: %q", buf.String())
	}
}

func TestVerbosityLevel(t *testing.T) {
	cases := []struct {
		verbose int
		quiet   int
		want    slog.Level
	}{
		{0, 0, slog.LevelWarn},
		{1, 0, slog.LevelInfo},
		{2, 0, slog.LevelDebug},
		{5, 0, slog.LevelDebug},
		{0, 1, slog.LevelError},
		{0, 2, LevelCritical},
		{0, 9, LevelCritical},
		{1, 1, slog.LevelWarn},
	}
	for _, tc := range cases {
		if got := VerbosityLevel(tc.verbose, tc.quiet); got != tc.want {
			t.Fatalf("VerbosityLevel(%d, %d) = %v, want %v", tc.verbose, tc.quiet, got, tc.want)
		}
	}
}

func TestCriticalLabel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: LevelCritical, Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Error("suppressed at this threshold")
	logger.Log(context.Background(), LevelCritical, "iso build failed")

	got := buf.String()
	if strings.Contains(got, "suppressed") {
		t.Fatalf("error leaked past critical threshold: %q", got)
	}
	if !strings.HasPrefix(got, "CRITICAL: iso build failed") {
		t.Fatalf("critical label wrong: %q", got)
	}
}

func TestErrorAttrNil(t *testing.T) {
	if attr := Error(nil); !attr.Equal(Attr{}) {
		t.Fatalf("Error(nil) = %v, want empty attr", attr)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	if logger.Enabled(context.Background(), LevelCritical) {
		t.Fatal("nop logger claims to be enabled")
	}
	logger.Error("goes nowhere")
}

func TestWithContextAddsRunFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: slog.LevelInfo, Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithRunID(context.Background(), "run-7")
	ctx = services.WithStage(ctx, "parity")
	WithContext(ctx, logger).Info("working")

	got := buf.String()
	if !strings.Contains(got, "run_id=run-7") || !strings.Contains(got, "stage=parity") {
		t.Fatalf("context fields missing: %q", got)
	}
}

func TestWithContextNilLogger(t *testing.T) {
	logger := WithContext(context.Background(), nil)
	if logger == nil {
		t.Fatal("expected nop logger, got nil")
	}
}
