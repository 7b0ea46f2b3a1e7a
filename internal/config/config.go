package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"bookinggate/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultEnvFile is read before the environment overrides are applied.
// Variables already present in the process environment win over the file.
const DefaultEnvFile = ".env"

// Load loads configuration from an optional .env file, an optional YAML file
// and environment variables, in that order of increasing precedence.
func Load(configPath string) (*models.Config, error) {
	// Start with default configuration
	config := models.NewDefaultConfig()

	envFile := os.Getenv("BOOKING_ENV_FILE")
	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if err := loadDotEnv(envFile); err != nil {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	// Load from file if provided and exists
	if configPath != "" {
		if err := loadFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Override with environment variables
	loadFromEnvironment(config)

	// Validate the final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadDotEnv populates the process environment from a dotenv file. A missing
// file is not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	slog.Debug("Loaded environment file", "path", path)
	return nil
}

// deprecatedConfig mirrors keys of the previous single-route deployment.
type deprecatedConfig struct {
	Security struct {
		RateLimit interface{} `yaml:"rate_limit"`
	} `yaml:"security"`
	Mail struct {
		ResendAPIKey string `yaml:"resend_api_key"`
	} `yaml:"mail"`
}

// warnDeprecatedKeys logs a warning for each removed config key found in the YAML data.
// The service continues to start normally - these keys are silently ignored by the main decoder.
func warnDeprecatedKeys(data []byte) {
	var dep deprecatedConfig
	if err := yaml.Unmarshal(data, &dep); err != nil {
		return
	}
	if dep.Security.RateLimit != nil {
		slog.Warn("Config key moved; use the rate_limit section with booking, api and auth profiles.", "config_key", "security.rate_limit")
	}
	if dep.Mail.ResendAPIKey != "" {
		slog.Warn("Config key renamed; use mail.api_key or the RESEND_API_KEY environment variable.", "config_key", "mail.resend_api_key")
	}
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(config *models.Config, filePath string) error {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", filePath)
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	warnDeprecatedKeys(data)
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return nil
}

// loadFromEnvironment loads configuration from environment variables
func loadFromEnvironment(config *models.Config) {
	// Server configuration
	if port := os.Getenv("BOOKING_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if host := os.Getenv("BOOKING_HOST"); host != "" {
		config.Server.Host = host
	}

	if timeout := os.Getenv("BOOKING_READ_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Server.ReadTimeout = d
		}
	}

	if timeout := os.Getenv("BOOKING_WRITE_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Server.WriteTimeout = d
		}
	}

	if timeout := os.Getenv("BOOKING_IDLE_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Server.IdleTimeout = d
		}
	}

	if tls := os.Getenv("BOOKING_TLS_ENABLED"); tls != "" {
		config.Server.TLSEnabled = strings.ToLower(tls) == "true"
	}

	if certFile := os.Getenv("BOOKING_TLS_CERT_FILE"); certFile != "" {
		config.Server.TLSCertFile = certFile
	}

	if keyFile := os.Getenv("BOOKING_TLS_KEY_FILE"); keyFile != "" {
		config.Server.TLSKeyFile = keyFile
	}

	// Site configuration. The public site variable is honoured so the
	// gateway can share an env file with the website build.
	if url := os.Getenv("NEXT_PUBLIC_SITE_URL"); url != "" {
		config.Site.URL = url
	}

	if url := os.Getenv("BOOKING_SITE_URL"); url != "" {
		config.Site.URL = url
	}

	if header, ok := os.LookupEnv("BOOKING_TRUSTED_PROXY_HEADER"); ok {
		config.Site.TrustedProxyHeader = header
	}

	if env := os.Getenv("BOOKING_ENVIRONMENT"); env != "" {
		config.Site.Environment = strings.ToLower(env)
	}

	// Mail configuration
	if provider := os.Getenv("BOOKING_MAIL_PROVIDER"); provider != "" {
		config.Mail.Provider = strings.ToLower(provider)
	}

	if key := os.Getenv("RESEND_API_KEY"); key != "" {
		config.Mail.APIKey = key
	}

	if to := os.Getenv("BOOKING_TO_EMAIL"); to != "" {
		config.Mail.To = to
	}

	if from := os.Getenv("BOOKING_FROM_EMAIL"); from != "" {
		config.Mail.From = from
	}

	if from := os.Getenv("BOOKING_FALLBACK_FROM_EMAIL"); from != "" {
		config.Mail.FallbackFrom = from
	}

	if timeout := os.Getenv("BOOKING_MAIL_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Mail.Timeout = d
		}
	}

	if rate := os.Getenv("BOOKING_MAIL_RATE_PER_SECOND"); rate != "" {
		if r, err := strconv.ParseFloat(rate, 64); err == nil {
			config.Mail.RatePerSecond = r
		}
	}

	if burst := os.Getenv("BOOKING_MAIL_BURST"); burst != "" {
		if b, err := strconv.Atoi(burst); err == nil {
			config.Mail.Burst = b
		}
	}

	// Rate limit configuration
	loadWindowFromEnvironment(&config.RateLimit.Booking, "BOOKING_RATE_LIMIT_BOOKING")
	loadWindowFromEnvironment(&config.RateLimit.API, "BOOKING_RATE_LIMIT_API")
	loadWindowFromEnvironment(&config.RateLimit.Auth, "BOOKING_RATE_LIMIT_AUTH")

	if interval := os.Getenv("BOOKING_RATE_LIMIT_SWEEP_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			config.RateLimit.SweepInterval = d
		}
	}

	if ceiling := os.Getenv("BOOKING_RATE_LIMIT_RETENTION"); ceiling != "" {
		if d, err := time.ParseDuration(ceiling); err == nil {
			config.RateLimit.RetentionCeiling = d
		}
	}

	// Logging configuration
	if level := os.Getenv("BOOKING_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if format := os.Getenv("BOOKING_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}

	if output := os.Getenv("BOOKING_LOG_OUTPUT"); output != "" {
		config.Logging.Output = output
	}

	if filePath := os.Getenv("BOOKING_LOG_FILE_PATH"); filePath != "" {
		config.Logging.FilePath = filePath
	}

	// Metrics configuration
	if metrics := os.Getenv("BOOKING_METRICS_ENABLED"); metrics != "" {
		config.Metrics.Enabled = strings.ToLower(metrics) == "true"
	}

	if path := os.Getenv("BOOKING_METRICS_PATH"); path != "" {
		config.Metrics.Path = path
	}

	if port := os.Getenv("BOOKING_METRICS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Metrics.Port = p
		}
	}

	// Tracing configuration
	if tracing := os.Getenv("BOOKING_TRACING_ENABLED"); tracing != "" {
		config.Observability.Tracing.Enabled = strings.ToLower(tracing) == "true"
	}

	if exporter := os.Getenv("BOOKING_TRACING_EXPORTER"); exporter != "" {
		config.Observability.Tracing.Exporter = exporter
	}

	if endpoint := os.Getenv("BOOKING_TRACING_OTLP_ENDPOINT"); endpoint != "" {
		config.Observability.Tracing.OTLPEndpoint = endpoint
	}

	if rate := os.Getenv("BOOKING_TRACING_SAMPLE_RATE"); rate != "" {
		if r, err := strconv.ParseFloat(rate, 64); err == nil {
			config.Observability.Tracing.SampleRate = r
		}
	}
}

// loadWindowFromEnvironment reads <prefix>_WINDOW, <prefix>_MAX and <prefix>_MESSAGE.
func loadWindowFromEnvironment(wc *models.WindowConfig, prefix string) {
	if window := os.Getenv(prefix + "_WINDOW"); window != "" {
		if d, err := time.ParseDuration(window); err == nil {
			wc.Window = d
		}
	}

	if maxRequests := os.Getenv(prefix + "_MAX"); maxRequests != "" {
		if m, err := strconv.Atoi(maxRequests); err == nil {
			wc.MaxRequests = m
		}
	}

	if message := os.Getenv(prefix + "_MESSAGE"); message != "" {
		wc.Message = message
	}
}

// SaveExample saves an example configuration file
func SaveExample(filePath string) error {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	config := models.NewDefaultConfig()

	config.Site.URL = "https://www.example.com"
	config.Site.Environment = models.EnvironmentProduction

	// The API key is never written to disk; it is tagged out of JSON but
	// not YAML, so clear it explicitly.
	config.Mail.APIKey = ""
	config.Mail.To = "bookings@example.com"

	// Example TLS configuration
	config.Server.TLSEnabled = false
	config.Server.TLSCertFile = "/path/to/cert.pem"
	config.Server.TLSKeyFile = "/path/to/key.pem"

	// Marshal to YAML
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// Write to file
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
