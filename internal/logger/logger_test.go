package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bookinggate/internal/models"
	"bookinggate/internal/version"
)

var testVersion = version.Info{
	Version:    "1.2.3",
	GitCommit:  "abc1234",
	BuildDate:  "2026-01-01T00:00:00Z",
	InstanceID: "test-instance",
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expected  slog.Level
		expectErr bool
	}{
		{name: "debug", input: "debug", expected: slog.LevelDebug},
		{name: "info", input: "info", expected: slog.LevelInfo},
		{name: "warn", input: "warn", expected: slog.LevelWarn},
		{name: "error", input: "error", expected: slog.LevelError},
		{name: "uppercase", input: "DEBUG", expected: slog.LevelDebug},
		{name: "mixed case", input: "Info", expected: slog.LevelInfo},
		{name: "invalid", input: "invalid", expectErr: true},
		{name: "empty", input: "", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, err := parseLevel(tt.input)
			if tt.expectErr {
				if err == nil {
					t.Errorf("expected error for input %q, got nil", tt.input)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error for input %q: %v", tt.input, err)
				return
			}
			if level != tt.expected {
				t.Errorf("expected level %v, got %v", tt.expected, level)
			}
		})
	}
}

func TestSetupFormatsAndOutputs(t *testing.T) {
	tests := []struct {
		name   string
		format string
		output string
	}{
		{"json stdout", "json", "stdout"},
		{"text stdout", "text", "stdout"},
		{"json stderr", "json", "stderr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := models.LoggingConfig{Level: "info", Format: tt.format, Output: tt.output}

			logger, closer, err := Setup(cfg, testVersion)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if closer != nil {
				t.Error("expected nil closer for standard streams")
			}
			if logger == nil {
				t.Fatal("expected non-nil logger")
			}
		})
	}
}

func TestSetupFileOutput(t *testing.T) {
	tmpDir := t.TempDir()
	logFile := filepath.Join(tmpDir, "booking.log")

	cfg := models.LoggingConfig{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: logFile,
	}

	logger, closer, err := Setup(cfg, testVersion)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if closer == nil {
		t.Fatal("expected non-nil closer for file output")
	}
	defer closer.Close()

	logger.Info("booking accepted", "service", "ceramic-coating")

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	content := string(data)
	for _, want := range []string{"booking accepted", "ceramic-coating", `"version":"1.2.3"`, `"git_commit":"abc1234"`, `"instance_id":"test-instance"`} {
		if !strings.Contains(content, want) {
			t.Errorf("log file does not contain %s, got: %s", want, content)
		}
	}
}

func TestSetupErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  models.LoggingConfig
	}{
		{"file without path", models.LoggingConfig{Level: "info", Format: "json", Output: "file"}},
		{"unwritable path", models.LoggingConfig{Level: "info", Format: "json", Output: "file", FilePath: "/nonexistent/directory/path/test.log"}},
		{"invalid level", models.LoggingConfig{Level: "invalid", Format: "json", Output: "stdout"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := Setup(tt.cfg, testVersion); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestOpenWriter(t *testing.T) {
	tests := []struct {
		name      string
		output    string
		filePath  string
		expectErr bool
	}{
		{name: "stdout", output: "stdout"},
		{name: "stderr", output: "stderr"},
		{name: "default fallback", output: "anything"},
		{name: "file missing path", output: "file", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			writer, closer, err := openWriter(tt.output, tt.filePath)
			if tt.expectErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if writer == nil {
				t.Error("expected non-nil writer")
			}
			if closer != nil {
				closer.Close()
			}
		})
	}
}

func TestIsSensitiveKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"password", true},
		{"RESEND_API_KEY", true},
		{"apiKey", true},
		{"Authorization", true},
		{"set_cookie", true},
		{"refresh_token", true},
		{"client_secret", true},
		{"identifier", false},
		{"email", false},
		{"service", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := IsSensitiveKey(tt.key); got != tt.want {
				t.Errorf("IsSensitiveKey(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestHandlerRedactsSensitiveAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, "json", slog.LevelInfo))

	logger.Info("mail provider configured",
		"api_key", "re_live_abcdef",
		"to", "owner@example.com",
		slog.Group("request", slog.String("authorization", "Bearer xyz"), slog.String("path", "/booking")),
	)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON log line: %v", err)
	}

	if entry["api_key"] != RedactedValue {
		t.Errorf("api_key not redacted: %v", entry["api_key"])
	}
	if entry["to"] != "owner@example.com" {
		t.Errorf("non-sensitive attribute altered: %v", entry["to"])
	}
	request, ok := entry["request"].(map[string]any)
	if !ok {
		t.Fatalf("expected request group, got %v", entry["request"])
	}
	if request["authorization"] != RedactedValue {
		t.Errorf("nested authorization not redacted: %v", request["authorization"])
	}
	if request["path"] != "/booking" {
		t.Errorf("nested path altered: %v", request["path"])
	}
	if strings.Contains(buf.String(), "re_live_abcdef") {
		t.Error("raw secret leaked into log output")
	}
}

func TestAPIRequestLevels(t *testing.T) {
	tests := []struct {
		name   string
		status int
		level  string
	}{
		{"success", 200, "INFO"},
		{"no content", 204, "INFO"},
		{"bad request", 400, "WARN"},
		{"rate limited", 429, "WARN"},
		{"server error", 500, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(NewHandler(&buf, "json", slog.LevelDebug))

			APIRequest(context.Background(), logger, "POST", "/booking", tt.status, 42*time.Millisecond, "identifier", "203.0.113.9")

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("invalid JSON log line: %v", err)
			}
			if entry["level"] != tt.level {
				t.Errorf("expected level %s, got %v", tt.level, entry["level"])
			}
			wantMsg := fmt.Sprintf("POST /booking - %d (42ms)", tt.status)
			if entry["msg"] != wantMsg {
				t.Errorf("expected msg %q, got %v", wantMsg, entry["msg"])
			}
			if entry["duration_ms"] != float64(42) {
				t.Errorf("expected duration_ms 42, got %v", entry["duration_ms"])
			}
			if entry["identifier"] != "203.0.113.9" {
				t.Errorf("extra attrs missing: %v", entry)
			}
		})
	}
}

func TestUserAgentAttrs(t *testing.T) {
	t.Run("desktop browser", func(t *testing.T) {
		ua := "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
		attr := UserAgentAttrs(ua)

		if attr.Key != "user_agent" {
			t.Fatalf("expected user_agent group, got %s", attr.Key)
		}
		values := map[string]slog.Value{}
		for _, a := range attr.Value.Group() {
			values[a.Key] = a.Value
		}
		if values["device"].String() != "computer" {
			t.Errorf("expected computer device, got %s", values["device"])
		}
		if !strings.Contains(values["browser"].String(), "120") {
			t.Errorf("expected browser major version, got %s", values["browser"])
		}
		if values["bot"].Bool() {
			t.Error("desktop browser flagged as bot")
		}
	})

	t.Run("empty header", func(t *testing.T) {
		attr := UserAgentAttrs("")
		group := attr.Value.Group()
		if len(group) != 1 || group[0].Value.String() != "none" {
			t.Errorf("unexpected attrs for empty header: %v", group)
		}
	})
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, "text", slog.LevelWarn))

	logger.Info("should not appear")
	logger.Warn("should appear")

	output := buf.String()
	if strings.Contains(output, "should not appear") {
		t.Error("info message should have been filtered by warn level")
	}
	if !strings.Contains(output, "should appear") {
		t.Error("warn message should have appeared")
	}
}
