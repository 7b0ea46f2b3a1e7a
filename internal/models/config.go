// Package models - Service configuration and operational settings.
// This file defines the configuration tree for the booking gateway.
//
// Configuration Philosophy:
// - Hierarchical configuration grouped by concern (server, site, mail, rate limits, ...)
// - Defaults that work for local development out of the box
// - Validation at startup so misconfigurations fail before the first request
// - Values are read once; handlers never consult the environment per request
package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Mail provider constants
const (
	MailProviderResend = "resend"
	MailProviderLog    = "log"
)

// Environment constants
const (
	EnvironmentDevelopment = "development"
	EnvironmentProduction  = "production"
)

// DefaultMaxBodyBytes is the largest booking payload accepted (50 KiB).
const DefaultMaxBodyBytes = 50 * 1024

var configValidator = validator.New()

// Config is the root configuration structure containing all service settings.
//
// Configuration Structure:
// - Server: HTTP listener, timeouts and body limits
// - Site: public site origin and proxy trust
// - Mail: outbound notification provider and addresses
// - RateLimit: sliding-window profiles and store housekeeping
// - Logging: structured logging output
// - Metrics: Prometheus scrape endpoint
// - Observability: tracing
type Config struct {
	Server        ServerConfig        `yaml:"server" json:"server"`
	Site          SiteConfig          `yaml:"site" json:"site"`
	Mail          MailConfig          `yaml:"mail" json:"mail"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit" json:"rate_limit"`
	Logging       LoggingConfig       `yaml:"logging" json:"logging"`
	Metrics       MetricsConfig       `yaml:"metrics" json:"metrics"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

type ServerConfig struct {
	Port         int           `yaml:"port" json:"port"`
	Host         string        `yaml:"host" json:"host"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	TLSEnabled   bool          `yaml:"tls_enabled" json:"tls_enabled"`
	TLSCertFile  string        `yaml:"tls_cert_file" json:"tls_cert_file"`
	TLSKeyFile   string        `yaml:"tls_key_file" json:"tls_key_file"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" json:"max_body_bytes"`
}

// SiteConfig describes the public website that embeds the booking form.
// An empty URL disables the Origin/Referer check.
type SiteConfig struct {
	URL                string `yaml:"url" json:"url"`
	TrustedProxyHeader string `yaml:"trusted_proxy_header" json:"trusted_proxy_header"`
	Environment        string `yaml:"environment" json:"environment"`
}

// MailConfig configures booking notifications.
//
// A missing APIKey is not a startup error: the service keeps running and
// every booking answers 500 until the key is provided.
type MailConfig struct {
	Provider      string        `yaml:"provider" json:"provider"`
	APIKey        string        `yaml:"api_key" json:"-"`
	From          string        `yaml:"from" json:"from"`
	FallbackFrom  string        `yaml:"fallback_from" json:"fallback_from"`
	To            string        `yaml:"to" json:"to"`
	Timeout       time.Duration `yaml:"timeout" json:"timeout"`
	RatePerSecond float64       `yaml:"rate_per_second" json:"rate_per_second"`
	Burst         int           `yaml:"burst" json:"burst"`
	Breaker       BreakerConfig `yaml:"breaker" json:"breaker"`
}

type BreakerConfig struct {
	MaxFailures uint32        `yaml:"max_failures" json:"max_failures"`
	OpenTimeout time.Duration `yaml:"open_timeout" json:"open_timeout"`
}

// RateLimitConfig holds one sliding-window profile per endpoint class plus
// the housekeeping settings of the shared in-memory store.
type RateLimitConfig struct {
	Booking          WindowConfig  `yaml:"booking" json:"booking"`
	API              WindowConfig  `yaml:"api" json:"api"`
	Auth             WindowConfig  `yaml:"auth" json:"auth"`
	SweepInterval    time.Duration `yaml:"sweep_interval" json:"sweep_interval"`
	RetentionCeiling time.Duration `yaml:"retention_ceiling" json:"retention_ceiling"`
}

type WindowConfig struct {
	Window      time.Duration `yaml:"window" json:"window"`
	MaxRequests int           `yaml:"max_requests" json:"max_requests"`
	Message     string        `yaml:"message" json:"message"`
}

type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	Format   string `yaml:"format" json:"format"`
	Output   string `yaml:"output" json:"output"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
	Port    int    `yaml:"port" json:"port"`
}

type ObservabilityConfig struct {
	ServiceName string        `yaml:"service_name" json:"service_name"`
	Tracing     TracingConfig `yaml:"tracing" json:"tracing"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	Exporter     string  `yaml:"exporter" json:"exporter"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" json:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate" json:"sample_rate"`
}

// NewDefaultConfig creates a configuration with development-friendly defaults.
//
// Default Values:
// - Port 8080, 30s read/write timeouts
// - Booking window: 3 requests per 10 minutes; API: 100 per 15 minutes; auth: 5 per 15 minutes
// - Store sweep every minute, records dropped after 24 hours without activity
// - Resend provider with the onboarding sender; the API key must come from the environment
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
			MaxBodyBytes: DefaultMaxBodyBytes,
		},
		Site: SiteConfig{
			TrustedProxyHeader: "CF-Connecting-IP",
			Environment:        EnvironmentDevelopment,
		},
		Mail: MailConfig{
			Provider:      MailProviderResend,
			From:          "onboarding@resend.dev",
			FallbackFrom:  "onboarding@resend.dev",
			To:            "owner@example.com",
			Timeout:       10 * time.Second,
			RatePerSecond: 2,
			Burst:         2,
			Breaker: BreakerConfig{
				MaxFailures: 5,
				OpenTimeout: 30 * time.Second,
			},
		},
		RateLimit: RateLimitConfig{
			Booking: WindowConfig{
				Window:      10 * time.Minute,
				MaxRequests: 3,
				Message:     "Troppe richieste di prenotazione. Riprova tra 10 minuti.",
			},
			API: WindowConfig{
				Window:      15 * time.Minute,
				MaxRequests: 100,
				Message:     "Troppe richieste API. Riprova più tardi.",
			},
			Auth: WindowConfig{
				Window:      15 * time.Minute,
				MaxRequests: 5,
				Message:     "Troppi tentativi di login. Riprova tra 15 minuti.",
			},
			SweepInterval:    time.Minute,
			RetentionCeiling: 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
			Port:    9090,
		},
		Observability: ObservabilityConfig{
			ServiceName: "bookinggate",
			Tracing: TracingConfig{
				Enabled:    false,
				Exporter:   "stdout",
				SampleRate: 1.0,
			},
		},
	}
}

// IsProduction reports whether the site runs in the production environment.
func (c *Config) IsProduction() bool {
	return c.Site.Environment == EnvironmentProduction
}

func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}

	if err := c.Site.Validate(); err != nil {
		return fmt.Errorf("invalid site config: %w", err)
	}

	if err := c.Mail.Validate(); err != nil {
		return fmt.Errorf("invalid mail config: %w", err)
	}

	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("invalid rate limit config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("invalid metrics config: %w", err)
	}

	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("invalid observability config: %w", err)
	}

	return nil
}

func (sc *ServerConfig) Validate() error {
	if sc.Port <= 0 || sc.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}

	if sc.Host == "" {
		return errors.New("host cannot be empty")
	}

	if sc.ReadTimeout < 0 {
		return errors.New("read timeout cannot be negative")
	}

	if sc.WriteTimeout < 0 {
		return errors.New("write timeout cannot be negative")
	}

	if sc.IdleTimeout < 0 {
		return errors.New("idle timeout cannot be negative")
	}

	if sc.MaxBodyBytes <= 0 {
		return errors.New("max body bytes must be positive")
	}

	if sc.TLSEnabled {
		if sc.TLSCertFile == "" {
			return errors.New("TLS cert file is required when TLS is enabled")
		}
		if sc.TLSKeyFile == "" {
			return errors.New("TLS key file is required when TLS is enabled")
		}
	}

	return nil
}

func (s *SiteConfig) Validate() error {
	if s.URL != "" {
		if err := configValidator.Var(s.URL, "http_url"); err != nil {
			return fmt.Errorf("site url must be an absolute http(s) URL: %s", s.URL)
		}
	}

	switch s.Environment {
	case EnvironmentDevelopment, EnvironmentProduction:
	default:
		return fmt.Errorf("invalid environment: %s", s.Environment)
	}

	return nil
}

func (mc *MailConfig) Validate() error {
	switch mc.Provider {
	case MailProviderResend, MailProviderLog:
	default:
		return fmt.Errorf("invalid mail provider: %s", mc.Provider)
	}

	if mc.From == "" {
		return errors.New("sender address cannot be empty")
	}
	if err := configValidator.Var(mc.From, "email"); err != nil {
		return fmt.Errorf("invalid sender address: %s", mc.From)
	}

	if mc.FallbackFrom != "" {
		if err := configValidator.Var(mc.FallbackFrom, "email"); err != nil {
			return fmt.Errorf("invalid fallback sender address: %s", mc.FallbackFrom)
		}
	}

	if mc.To == "" {
		return errors.New("recipient address cannot be empty")
	}
	if err := configValidator.Var(mc.To, "email"); err != nil {
		return fmt.Errorf("invalid recipient address: %s", mc.To)
	}

	if mc.Timeout <= 0 {
		return errors.New("mail timeout must be positive")
	}

	if mc.RatePerSecond < 0 {
		return errors.New("mail rate per second cannot be negative")
	}

	if mc.RatePerSecond > 0 && mc.Burst <= 0 {
		return errors.New("mail burst must be positive when a rate is set")
	}

	if mc.Breaker.MaxFailures == 0 {
		return errors.New("breaker max failures must be positive")
	}

	if mc.Breaker.OpenTimeout <= 0 {
		return errors.New("breaker open timeout must be positive")
	}

	return nil
}

func (wc *WindowConfig) Validate() error {
	if wc.Window <= 0 {
		return errors.New("window must be positive")
	}
	if wc.MaxRequests <= 0 {
		return errors.New("max requests must be positive")
	}
	return nil
}

func (rc *RateLimitConfig) Validate() error {
	profiles := []struct {
		name string
		cfg  WindowConfig
	}{
		{"booking", rc.Booking},
		{"api", rc.API},
		{"auth", rc.Auth},
	}

	if rc.SweepInterval <= 0 {
		return errors.New("sweep interval must be positive")
	}

	for _, p := range profiles {
		if err := p.cfg.Validate(); err != nil {
			return fmt.Errorf("%s profile: %w", p.name, err)
		}
		// A record swept while its window is still open would hand out extra slots.
		if rc.RetentionCeiling < p.cfg.Window {
			return fmt.Errorf("retention ceiling %s is shorter than the %s window %s",
				rc.RetentionCeiling, p.name, p.cfg.Window)
		}
	}

	return nil
}

func (lc *LoggingConfig) Validate() error {
	validLevels := []string{"debug", "info", "warn", "error"}
	found := false
	for _, vl := range validLevels {
		if lc.Level == vl {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("invalid log level: %s", lc.Level)
	}

	validFormats := []string{"json", "text"}
	found = false
	for _, vf := range validFormats {
		if lc.Format == vf {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("invalid log format: %s", lc.Format)
	}

	validOutputs := []string{"stdout", "stderr", "file"}
	found = false
	for _, vo := range validOutputs {
		if lc.Output == vo {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("invalid log output: %s", lc.Output)
	}

	if lc.Output == "file" && lc.FilePath == "" {
		return errors.New("file path is required when output is file")
	}

	return nil
}

func (mc *MetricsConfig) Validate() error {
	if !mc.Enabled {
		return nil
	}

	if mc.Path == "" {
		return errors.New("metrics path cannot be empty")
	}

	if mc.Port <= 0 || mc.Port > 65535 {
		return errors.New("metrics port must be between 1 and 65535")
	}

	return nil
}

func (oc *ObservabilityConfig) Validate() error {
	if oc.ServiceName == "" {
		return errors.New("service name cannot be empty")
	}

	if !oc.Tracing.Enabled {
		return nil
	}

	switch oc.Tracing.Exporter {
	case "stdout":
	case "otlp":
		if oc.Tracing.OTLPEndpoint == "" {
			return errors.New("OTLP endpoint is required when tracing exporter is otlp")
		}
	default:
		return fmt.Errorf("invalid tracing exporter: %s", oc.Tracing.Exporter)
	}

	if oc.Tracing.SampleRate < 0 || oc.Tracing.SampleRate > 1 {
		return errors.New("tracing sample rate must be between 0 and 1")
	}

	return nil
}
