package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	// Test server defaults
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)
	assert.Equal(t, 30*time.Second, config.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, config.Server.WriteTimeout)
	assert.Equal(t, 60*time.Second, config.Server.IdleTimeout)
	assert.Equal(t, int64(50*1024), config.Server.MaxBodyBytes)
	assert.False(t, config.Server.TLSEnabled)

	// Test site defaults
	assert.Empty(t, config.Site.URL)
	assert.Equal(t, "CF-Connecting-IP", config.Site.TrustedProxyHeader)
	assert.Equal(t, EnvironmentDevelopment, config.Site.Environment)
	assert.False(t, config.IsProduction())

	// Test mail defaults
	assert.Equal(t, MailProviderResend, config.Mail.Provider)
	assert.Empty(t, config.Mail.APIKey)
	assert.Equal(t, "onboarding@resend.dev", config.Mail.From)
	assert.Equal(t, "owner@example.com", config.Mail.To)
	assert.Equal(t, uint32(5), config.Mail.Breaker.MaxFailures)

	// Test rate limit defaults
	assert.Equal(t, 10*time.Minute, config.RateLimit.Booking.Window)
	assert.Equal(t, 3, config.RateLimit.Booking.MaxRequests)
	assert.Equal(t, 15*time.Minute, config.RateLimit.API.Window)
	assert.Equal(t, 100, config.RateLimit.API.MaxRequests)
	assert.Equal(t, 15*time.Minute, config.RateLimit.Auth.Window)
	assert.Equal(t, 5, config.RateLimit.Auth.MaxRequests)
	assert.Equal(t, time.Minute, config.RateLimit.SweepInterval)
	assert.Equal(t, 24*time.Hour, config.RateLimit.RetentionCeiling)
	assert.NotEmpty(t, config.RateLimit.Booking.Message)

	// Test logging defaults
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, "json", config.Logging.Format)
	assert.Equal(t, "stdout", config.Logging.Output)

	// Test metrics defaults
	assert.True(t, config.Metrics.Enabled)
	assert.Equal(t, "/metrics", config.Metrics.Path)
	assert.Equal(t, 9090, config.Metrics.Port)

	// Test observability defaults
	assert.Equal(t, "bookinggate", config.Observability.ServiceName)
	assert.False(t, config.Observability.Tracing.Enabled)
	assert.Equal(t, "stdout", config.Observability.Tracing.Exporter)
	assert.Equal(t, 1.0, config.Observability.Tracing.SampleRate)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid default config",
			mutate:      func(*Config) {},
			expectError: false,
		},
		{
			name:        "invalid server config",
			mutate:      func(c *Config) { c.Server.Port = -1 },
			expectError: true,
			errorMsg:    "invalid server config",
		},
		{
			name:        "invalid site config",
			mutate:      func(c *Config) { c.Site.Environment = "staging" },
			expectError: true,
			errorMsg:    "invalid site config",
		},
		{
			name:        "invalid mail config",
			mutate:      func(c *Config) { c.Mail.Provider = "smtp" },
			expectError: true,
			errorMsg:    "invalid mail config",
		},
		{
			name:        "invalid rate limit config",
			mutate:      func(c *Config) { c.RateLimit.Booking.MaxRequests = 0 },
			expectError: true,
			errorMsg:    "invalid rate limit config",
		},
		{
			name:        "invalid logging config",
			mutate:      func(c *Config) { c.Logging.Level = "trace" },
			expectError: true,
			errorMsg:    "invalid logging config",
		},
		{
			name:        "invalid metrics config",
			mutate:      func(c *Config) { c.Metrics.Path = "" },
			expectError: true,
			errorMsg:    "invalid metrics config",
		},
		{
			name:        "invalid observability config",
			mutate:      func(c *Config) { c.Observability.ServiceName = "" },
			expectError: true,
			errorMsg:    "invalid observability config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := NewDefaultConfig()
			tt.mutate(config)
			err := config.Validate()

			if tt.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestServerConfig_Validate(t *testing.T) {
	valid := func() ServerConfig { return NewDefaultConfig().Server }

	tests := []struct {
		name        string
		mutate      func(*ServerConfig)
		expectError bool
		errorMsg    string
	}{
		{"valid", func(*ServerConfig) {}, false, ""},
		{"port zero", func(s *ServerConfig) { s.Port = 0 }, true, "port must be between 1 and 65535"},
		{"port too high", func(s *ServerConfig) { s.Port = 70000 }, true, "port must be between 1 and 65535"},
		{"empty host", func(s *ServerConfig) { s.Host = "" }, true, "host cannot be empty"},
		{"negative read timeout", func(s *ServerConfig) { s.ReadTimeout = -time.Second }, true, "read timeout cannot be negative"},
		{"negative write timeout", func(s *ServerConfig) { s.WriteTimeout = -time.Second }, true, "write timeout cannot be negative"},
		{"negative idle timeout", func(s *ServerConfig) { s.IdleTimeout = -time.Second }, true, "idle timeout cannot be negative"},
		{"zero body limit", func(s *ServerConfig) { s.MaxBodyBytes = 0 }, true, "max body bytes must be positive"},
		{"tls without cert", func(s *ServerConfig) { s.TLSEnabled = true; s.TLSKeyFile = "key.pem" }, true, "TLS cert file is required"},
		{"tls without key", func(s *ServerConfig) { s.TLSEnabled = true; s.TLSCertFile = "cert.pem" }, true, "TLS key file is required"},
		{"tls complete", func(s *ServerConfig) {
			s.TLSEnabled = true
			s.TLSCertFile = "cert.pem"
			s.TLSKeyFile = "key.pem"
		}, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()

			if tt.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSiteConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		config      SiteConfig
		expectError bool
		errorMsg    string
	}{
		{"empty url disables origin check", SiteConfig{Environment: EnvironmentDevelopment}, false, ""},
		{"https url", SiteConfig{URL: "https://detailing.example.com", Environment: EnvironmentProduction}, false, ""},
		{"relative url", SiteConfig{URL: "detailing.example.com", Environment: EnvironmentProduction}, true, "site url must be an absolute"},
		{"unknown environment", SiteConfig{Environment: "qa"}, true, "invalid environment: qa"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()

			if tt.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMailConfig_Validate(t *testing.T) {
	valid := func() MailConfig { return NewDefaultConfig().Mail }

	tests := []struct {
		name        string
		mutate      func(*MailConfig)
		expectError bool
		errorMsg    string
	}{
		{"valid without api key", func(*MailConfig) {}, false, ""},
		{"log provider", func(m *MailConfig) { m.Provider = MailProviderLog }, false, ""},
		{"unknown provider", func(m *MailConfig) { m.Provider = "smtp" }, true, "invalid mail provider: smtp"},
		{"empty sender", func(m *MailConfig) { m.From = "" }, true, "sender address cannot be empty"},
		{"bad sender", func(m *MailConfig) { m.From = "not-an-address" }, true, "invalid sender address"},
		{"bad fallback sender", func(m *MailConfig) { m.FallbackFrom = "nope" }, true, "invalid fallback sender address"},
		{"empty fallback sender", func(m *MailConfig) { m.FallbackFrom = "" }, false, ""},
		{"empty recipient", func(m *MailConfig) { m.To = "" }, true, "recipient address cannot be empty"},
		{"bad recipient", func(m *MailConfig) { m.To = "owner@" }, true, "invalid recipient address"},
		{"zero timeout", func(m *MailConfig) { m.Timeout = 0 }, true, "mail timeout must be positive"},
		{"negative rate", func(m *MailConfig) { m.RatePerSecond = -1 }, true, "cannot be negative"},
		{"rate without burst", func(m *MailConfig) { m.Burst = 0 }, true, "mail burst must be positive"},
		{"unthrottled", func(m *MailConfig) { m.RatePerSecond = 0; m.Burst = 0 }, false, ""},
		{"zero breaker failures", func(m *MailConfig) { m.Breaker.MaxFailures = 0 }, true, "breaker max failures"},
		{"zero breaker timeout", func(m *MailConfig) { m.Breaker.OpenTimeout = 0 }, true, "breaker open timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()

			if tt.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRateLimitConfig_Validate(t *testing.T) {
	valid := func() RateLimitConfig { return NewDefaultConfig().RateLimit }

	tests := []struct {
		name        string
		mutate      func(*RateLimitConfig)
		expectError bool
		errorMsg    string
	}{
		{"valid", func(*RateLimitConfig) {}, false, ""},
		{"zero sweep interval", func(r *RateLimitConfig) { r.SweepInterval = 0 }, true, "sweep interval must be positive"},
		{"zero booking window", func(r *RateLimitConfig) { r.Booking.Window = 0 }, true, "booking profile: window must be positive"},
		{"zero api max", func(r *RateLimitConfig) { r.API.MaxRequests = 0 }, true, "api profile: max requests must be positive"},
		{"negative auth max", func(r *RateLimitConfig) { r.Auth.MaxRequests = -3 }, true, "auth profile"},
		{"retention shorter than window", func(r *RateLimitConfig) { r.RetentionCeiling = 5 * time.Minute }, true, "retention ceiling"},
		{"retention equal to longest window", func(r *RateLimitConfig) { r.RetentionCeiling = 15 * time.Minute }, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()

			if tt.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoggingConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		config      LoggingConfig
		expectError bool
		errorMsg    string
	}{
		{"valid json stdout", LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, false, ""},
		{"valid text stderr", LoggingConfig{Level: "debug", Format: "text", Output: "stderr"}, false, ""},
		{"valid file", LoggingConfig{Level: "warn", Format: "json", Output: "file", FilePath: "/tmp/booking.log"}, false, ""},
		{"invalid level", LoggingConfig{Level: "verbose", Format: "json", Output: "stdout"}, true, "invalid log level: verbose"},
		{"invalid format", LoggingConfig{Level: "info", Format: "xml", Output: "stdout"}, true, "invalid log format: xml"},
		{"invalid output", LoggingConfig{Level: "info", Format: "json", Output: "syslog"}, true, "invalid log output: syslog"},
		{"file without path", LoggingConfig{Level: "error", Format: "json", Output: "file"}, true, "file path is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()

			if tt.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMetricsConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		config      MetricsConfig
		expectError bool
		errorMsg    string
	}{
		{"disabled skips checks", MetricsConfig{Enabled: false}, false, ""},
		{"valid", MetricsConfig{Enabled: true, Path: "/metrics", Port: 9090}, false, ""},
		{"empty path", MetricsConfig{Enabled: true, Port: 9090}, true, "metrics path cannot be empty"},
		{"invalid port", MetricsConfig{Enabled: true, Path: "/metrics", Port: 0}, true, "metrics port must be between 1 and 65535"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()

			if tt.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestObservabilityConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		config      ObservabilityConfig
		expectError bool
		errorMsg    string
	}{
		{
			name: "tracing disabled",
			config: ObservabilityConfig{
				ServiceName: "bookinggate",
				Tracing:     TracingConfig{Enabled: false},
			},
			expectError: false,
		},
		{
			name: "missing service name",
			config: ObservabilityConfig{
				Tracing: TracingConfig{Enabled: false},
			},
			expectError: true,
			errorMsg:    "service name cannot be empty",
		},
		{
			name: "valid stdout tracing",
			config: ObservabilityConfig{
				ServiceName: "bookinggate",
				Tracing: TracingConfig{
					Enabled:    true,
					Exporter:   "stdout",
					SampleRate: 1.0,
				},
			},
			expectError: false,
		},
		{
			name: "valid otlp tracing",
			config: ObservabilityConfig{
				ServiceName: "bookinggate",
				Tracing: TracingConfig{
					Enabled:      true,
					Exporter:     "otlp",
					SampleRate:   0.5,
					OTLPEndpoint: "localhost:4317",
				},
			},
			expectError: false,
		},
		{
			name: "invalid exporter",
			config: ObservabilityConfig{
				ServiceName: "bookinggate",
				Tracing: TracingConfig{
					Enabled:    true,
					Exporter:   "invalid",
					SampleRate: 1.0,
				},
			},
			expectError: true,
			errorMsg:    "invalid tracing exporter: invalid",
		},
		{
			name: "sample rate above 1",
			config: ObservabilityConfig{
				ServiceName: "bookinggate",
				Tracing: TracingConfig{
					Enabled:    true,
					Exporter:   "stdout",
					SampleRate: 1.5,
				},
			},
			expectError: true,
			errorMsg:    "tracing sample rate must be between 0 and 1",
		},
		{
			name: "otlp without endpoint",
			config: ObservabilityConfig{
				ServiceName: "bookinggate",
				Tracing: TracingConfig{
					Enabled:    true,
					Exporter:   "otlp",
					SampleRate: 1.0,
				},
			},
			expectError: true,
			errorMsg:    "OTLP endpoint is required when tracing exporter is otlp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()

			if tt.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
