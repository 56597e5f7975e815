package clog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ceyewan/gedid/xerrors"
)

// withBuffer 将日志输出到内存缓冲区，仅测试使用
func withBuffer(buf *bytes.Buffer) Option {
	return func(o *options) {
		o.buffer = buf
	}
}

func newBufferLogger(t *testing.T, level string, opts ...Option) (Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger, err := New(&Config{
		Level:  level,
		Format: "json",
		Output: "buffer",
	}, append([]Option{withBuffer(&buf)}, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return logger, &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("line is not valid JSON: %v (%q)", err, line)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{name: "valid config", config: &Config{Level: "info", Format: "console", Output: "stdout"}},
		{name: "nil config", config: nil},
		{name: "invalid level", config: &Config{Level: "invalid"}, wantErr: true},
		{name: "invalid format", config: &Config{Level: "info", Format: "xml"}, wantErr: true},
		{name: "negative backups", config: &Config{Level: "info", MaxBackups: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && logger == nil {
				t.Error("New() returned nil logger on success")
			}
		})
	}
}

func TestLoggerLevels(t *testing.T) {
	logger, buf := newBufferLogger(t, "debug")

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	entries := decodeLines(t, buf)
	want := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	if len(entries) != len(want) {
		t.Fatalf("expected %d lines, got %d", len(want), len(entries))
	}
	for i, entry := range entries {
		if entry["level"] != want[i] {
			t.Errorf("line %d level = %v, want %s", i, entry["level"], want[i])
		}
	}
}

func TestLoggerSetLevel(t *testing.T) {
	logger, buf := newBufferLogger(t, "info")
	child := logger.WithNamespace("idgen")

	logger.Debug("hidden")
	if err := logger.SetLevel(DebugLevel); err != nil {
		t.Fatalf("SetLevel() error = %v", err)
	}
	child.Debug("visible from child")

	entries := decodeLines(t, buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 line, got %d", len(entries))
	}
	if entries[0]["msg"] != "visible from child" {
		t.Errorf("unexpected message %v", entries[0]["msg"])
	}
}

type contextKey string

func TestLoggerContextAndNamespace(t *testing.T) {
	logger, buf := newBufferLogger(t, "debug",
		WithNamespace("gedid"),
		WithContextField(contextKey("request_id"), "request_id"),
	)

	ctx := context.WithValue(context.Background(), contextKey("request_id"), "req-1")
	logger.WithNamespace("idgen", "loader").InfoContext(ctx, "bound")

	entries := decodeLines(t, buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 line, got %d", len(entries))
	}
	if entries[0]["request_id"] != "req-1" {
		t.Errorf("request_id = %v", entries[0]["request_id"])
	}
	if entries[0][NamespaceKey] != "gedid.idgen.loader" {
		t.Errorf("namespace = %v", entries[0][NamespaceKey])
	}
}

func TestLoggerWith_DerivedLoggerDoesNotMutateSiblings(t *testing.T) {
	logger, buf := newBufferLogger(t, "debug")

	base := logger.With(String("k1", "v1"), String("k2", "v2"), String("k3", "v3")).With(String("k4", "v4"))
	a := base.With(String("engine", "redis"))
	_ = base.With(String("engine", "etcd"))

	a.Info("msg")

	entries := decodeLines(t, buf)
	if len(entries) != 1 || entries[0]["engine"] != "redis" {
		t.Fatalf("unexpected entries %v", entries)
	}
}

func TestErrorField(t *testing.T) {
	logger, buf := newBufferLogger(t, "debug")

	logger.Error("plain", Error(errors.New("boom")))
	logger.Error("coded", Error(xerrors.WithCode(errors.New("down"), "backend_failure")))
	logger.Error("nil", Error(nil))

	entries := decodeLines(t, buf)
	if len(entries) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(entries))
	}
	if entries[0]["err_msg"] != "boom" {
		t.Errorf("err_msg = %v", entries[0]["err_msg"])
	}
	group, ok := entries[1]["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected error group, got %T", entries[1]["error"])
	}
	if group["code"] != "backend_failure" {
		t.Errorf("error.code = %v", group["code"])
	}
	if _, ok := entries[2][""]; ok {
		t.Error("nil error should not produce a field")
	}
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "gedid.log")
	logger, err := New(&Config{Level: "info", Format: "json", Output: path, MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Info("written to file", Int64("id", 42))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("log file missing message: %q", data)
	}
}

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"debug", "INFO", "warn", "Error", "fatal"} {
		if _, err := ParseLevel(s); err != nil {
			t.Errorf("ParseLevel(%q) error = %v", s, err)
		}
	}
	if level, err := ParseLevel("verbose"); err == nil || level != InfoLevel {
		t.Errorf("ParseLevel(verbose) = %v, %v", level, err)
	}
	if InfoLevel.String() != "info" || FatalLevel.String() != "fatal" {
		t.Error("unexpected Level.String()")
	}
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	logger.With(String("a", "b")).WithNamespace("x").Info("nothing")
	if err := logger.SetLevel(DebugLevel); err != nil {
		t.Errorf("SetLevel() error = %v", err)
	}
}
