// Package logger provides structured logging initialization for the booking gateway.
// It configures Go's built-in log/slog package based on the service's LoggingConfig,
// supporting JSON and text output formats, configurable log levels, and multiple
// output destinations (stdout, stderr, file).
//
// Every handler built here redacts attributes whose key looks like a credential,
// so an API key or cookie passed as context never reaches the log sink.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"bookinggate/internal/models"
	"bookinggate/internal/version"

	"github.com/avct/uasurfer"
)

// RedactedValue replaces the value of sensitive attributes.
const RedactedValue = "[REDACTED]"

var sensitiveKeyParts = []string{
	"password",
	"token",
	"secret",
	"api_key",
	"apikey",
	"authorization",
	"cookie",
}

// Setup creates and configures a structured logger based on the provided LoggingConfig.
// It returns the configured logger with global version fields, an io.Closer for file
// handles (nil for stdout/stderr), and any error encountered during setup.
//
// The caller is responsible for closing the returned Closer when done (if non-nil).
func Setup(cfg models.LoggingConfig, ver version.Info) (*slog.Logger, io.Closer, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level: %w", err)
	}

	writer, closer, err := openWriter(cfg.Output, cfg.FilePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log output: %w", err)
	}

	handler := NewHandler(writer, cfg.Format, level)

	// Add global version fields to all log messages
	logger := slog.New(handler).With(
		slog.String("version", ver.Version),
		slog.String("git_commit", ver.GitCommit),
		slog.String("build_date", ver.BuildDate),
		slog.String("instance_id", ver.InstanceID),
	)

	return logger, closer, nil
}

// NewHandler builds a redacting JSON or text handler writing to w.
func NewHandler(w io.Writer, format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: redactAttr,
	}
	if strings.ToLower(format) == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// IsSensitiveKey reports whether an attribute key names a credential.
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, part := range sensitiveKeyParts {
		if strings.Contains(lower, part) {
			return true
		}
	}
	return false
}

func redactAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		return a
	}
	if IsSensitiveKey(a.Key) {
		return slog.String(a.Key, RedactedValue)
	}
	return a
}

// APIRequest logs one completed HTTP exchange as "METHOD path - status (Nms)".
// Server errors log at error level, client errors at warn, everything else at info.
func APIRequest(ctx context.Context, l *slog.Logger, method, path string, status int, duration time.Duration, attrs ...any) {
	if l == nil {
		l = slog.Default()
	}

	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
	case status >= 400:
		level = slog.LevelWarn
	}

	ms := duration.Milliseconds()
	msg := fmt.Sprintf("%s %s - %d (%dms)", method, path, status, ms)
	args := append([]any{
		"method", method,
		"path", path,
		"status", status,
		"duration_ms", ms,
	}, attrs...)

	l.Log(ctx, level, msg, args...)
}

// UserAgentAttrs summarises a User-Agent header as a log group with device,
// os and browser. It never includes the raw header.
func UserAgentAttrs(userAgent string) slog.Attr {
	if userAgent == "" {
		return slog.Group("user_agent", slog.String("device", "none"))
	}

	ua := uasurfer.Parse(userAgent)

	device := "unknown"
	switch ua.DeviceType {
	case uasurfer.DeviceComputer:
		device = "computer"
	case uasurfer.DeviceTablet:
		device = "tablet"
	case uasurfer.DevicePhone:
		device = "phone"
	case uasurfer.DeviceConsole:
		device = "console"
	case uasurfer.DeviceWearable:
		device = "wearable"
	case uasurfer.DeviceTV:
		device = "tv"
	}

	osName := fmt.Sprintf("%s %d.%d", ua.OS.Name.String(), ua.OS.Version.Major, ua.OS.Version.Minor)
	browser := fmt.Sprintf("%s %d.%d", ua.Browser.Name.String(), ua.Browser.Version.Major, ua.Browser.Version.Minor)

	return slog.Group("user_agent",
		slog.String("device", device),
		slog.String("os", osName),
		slog.String("browser", browser),
		slog.Bool("bot", ua.IsBot()),
	)
}

// parseLevel converts a level string to an slog.Level.
// Supported values: debug, info, warn, error (case-insensitive).
func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unsupported log level: %s", level)
	}
}

// openWriter returns the appropriate io.Writer based on the output configuration.
// For file output, it returns the file as the closer. For stdout/stderr, closer is nil.
func openWriter(output, filePath string) (io.Writer, io.Closer, error) {
	switch strings.ToLower(output) {
	case "stderr":
		return os.Stderr, nil, nil
	case "file":
		if filePath == "" {
			return nil, nil, fmt.Errorf("file path is required when output is file")
		}
		f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file %s: %w", filePath, err)
		}
		return f, f, nil
	default:
		return os.Stdout, nil, nil
	}
}
