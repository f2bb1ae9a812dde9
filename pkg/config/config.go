package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/reflector/pkg/loader"
	"github.com/platinummonkey/reflector/pkg/observability"
)

// FileEnv names the optional YAML file loaded before environment overrides
const FileEnv = "REFLECTOR_CONFIG_FILE"

// Schema source kinds
const (
	SourceFilesystem = "filesystem"
	SourceS3         = "s3"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Schema        SchemaConfig        `yaml:"schema"`
	Reflector     ReflectorConfig     `yaml:"reflector"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds listener configuration
type ServerConfig struct {
	GRPCAddr        string        `yaml:"grpc_addr"`
	HTTPAddr        string        `yaml:"http_addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// SchemaConfig selects where .proto files come from and how they are
// reloaded
type SchemaConfig struct {
	Source         string        `yaml:"source"`
	Roots          []string      `yaml:"roots"`
	S3             S3Config      `yaml:"s3"`
	Watch          bool          `yaml:"watch"`
	Debounce       time.Duration `yaml:"debounce"`
	ReloadSchedule string        `yaml:"reload_schedule"`
	ReloadTimeout  time.Duration `yaml:"reload_timeout"`
}

// S3Config locates schemas in an S3 bucket
type S3Config struct {
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	AccessKey    string `yaml:"access_key"`
	SecretKey    string `yaml:"secret_key"`
	UsePathStyle bool   `yaml:"use_path_style"`
	Concurrency  int    `yaml:"concurrency"`
}

// Loader returns the loader's view of the S3 settings
func (c S3Config) Loader() loader.S3Config {
	return loader.S3Config{
		Bucket:       c.Bucket,
		Prefix:       c.Prefix,
		Region:       c.Region,
		Endpoint:     c.Endpoint,
		AccessKey:    c.AccessKey,
		SecretKey:    c.SecretKey,
		UsePathStyle: c.UsePathStyle,
		Concurrency:  c.Concurrency,
	}
}

// ReflectorConfig tunes the query engine
type ReflectorConfig struct {
	CacheSize int `yaml:"cache_size"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel string `yaml:"log_level"`

	MetricsEnabled bool `yaml:"metrics_enabled"`

	OTelEnabled        bool   `yaml:"otel_enabled"`
	OTelEndpoint       string `yaml:"otel_endpoint"`
	OTelServiceName    string `yaml:"otel_service_name"`
	OTelServiceVersion string `yaml:"otel_service_version"`
	OTelInsecure       bool   `yaml:"otel_insecure"`
}

// Level returns the parsed log level
func (c ObservabilityConfig) Level() observability.LogLevel {
	return observability.ParseLogLevel(c.LogLevel)
}

// OTel returns the tracing setup for observability.InitOTel
func (c ObservabilityConfig) OTel() observability.OTelConfig {
	return observability.OTelConfig{
		Enabled:        c.OTelEnabled,
		Endpoint:       c.OTelEndpoint,
		ServiceName:    c.OTelServiceName,
		ServiceVersion: c.OTelServiceVersion,
		Insecure:       c.OTelInsecure,
	}
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			GRPCAddr:        ":9090",
			HTTPAddr:        ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Schema: SchemaConfig{
			Source:        SourceFilesystem,
			Debounce:      500 * time.Millisecond,
			ReloadTimeout: 2 * time.Minute,
		},
		Reflector: ReflectorConfig{
			CacheSize: 256,
		},
		Observability: ObservabilityConfig{
			LogLevel:           "info",
			MetricsEnabled:     true,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "reflector",
			OTelServiceVersion: "dev",
			OTelInsecure:       true,
		},
	}
}

// LoadConfig builds configuration from defaults, then the YAML file named by
// REFLECTOR_CONFIG_FILE if set, then REFLECTOR_* environment variables
func LoadConfig() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(FileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.GRPCAddr = getEnv("REFLECTOR_GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.HTTPAddr = getEnv("REFLECTOR_HTTP_ADDR", c.Server.HTTPAddr)
	c.Server.ReadTimeout = getEnvDuration("REFLECTOR_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvDuration("REFLECTOR_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = getEnvDuration("REFLECTOR_IDLE_TIMEOUT", c.Server.IdleTimeout)
	c.Server.ShutdownTimeout = getEnvDuration("REFLECTOR_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	c.Schema.Source = getEnv("REFLECTOR_SCHEMA_SOURCE", c.Schema.Source)
	c.Schema.Roots = getEnvList("REFLECTOR_SCHEMA_ROOTS", c.Schema.Roots)
	c.Schema.Watch = getEnvBool("REFLECTOR_SCHEMA_WATCH", c.Schema.Watch)
	c.Schema.Debounce = getEnvDuration("REFLECTOR_SCHEMA_DEBOUNCE", c.Schema.Debounce)
	c.Schema.ReloadSchedule = getEnv("REFLECTOR_RELOAD_SCHEDULE", c.Schema.ReloadSchedule)
	c.Schema.ReloadTimeout = getEnvDuration("REFLECTOR_RELOAD_TIMEOUT", c.Schema.ReloadTimeout)

	s3 := &c.Schema.S3
	s3.Bucket = getEnv("REFLECTOR_S3_BUCKET", s3.Bucket)
	s3.Prefix = getEnv("REFLECTOR_S3_PREFIX", s3.Prefix)
	s3.Region = getEnv("REFLECTOR_S3_REGION", s3.Region)
	s3.Endpoint = getEnv("REFLECTOR_S3_ENDPOINT", s3.Endpoint)
	s3.AccessKey = getEnv("REFLECTOR_S3_ACCESS_KEY", s3.AccessKey)
	s3.SecretKey = getEnv("REFLECTOR_S3_SECRET_KEY", s3.SecretKey)
	s3.UsePathStyle = getEnvBool("REFLECTOR_S3_USE_PATH_STYLE", s3.UsePathStyle)
	s3.Concurrency = getEnvInt("REFLECTOR_S3_CONCURRENCY", s3.Concurrency)

	c.Reflector.CacheSize = getEnvInt("REFLECTOR_CACHE_SIZE", c.Reflector.CacheSize)

	o := &c.Observability
	o.LogLevel = getEnv("REFLECTOR_LOG_LEVEL", o.LogLevel)
	o.MetricsEnabled = getEnvBool("REFLECTOR_METRICS_ENABLED", o.MetricsEnabled)
	o.OTelEnabled = getEnvBool("REFLECTOR_OTEL_ENABLED", o.OTelEnabled)
	o.OTelEndpoint = getEnv("REFLECTOR_OTEL_ENDPOINT", o.OTelEndpoint)
	o.OTelServiceName = getEnv("REFLECTOR_OTEL_SERVICE_NAME", o.OTelServiceName)
	o.OTelServiceVersion = getEnv("REFLECTOR_OTEL_SERVICE_VERSION", o.OTelServiceVersion)
	o.OTelInsecure = getEnvBool("REFLECTOR_OTEL_INSECURE", o.OTelInsecure)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.GRPCAddr == "" {
		return fmt.Errorf("gRPC address is required")
	}
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("HTTP address is required")
	}
	if c.Server.GRPCAddr == c.Server.HTTPAddr {
		return fmt.Errorf("gRPC and HTTP addresses must be different")
	}

	switch c.Schema.Source {
	case SourceFilesystem:
		if len(c.Schema.Roots) == 0 {
			return fmt.Errorf("at least one schema root is required for filesystem source")
		}
	case SourceS3:
		if c.Schema.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required for s3 source")
		}
		if c.Schema.Watch {
			return fmt.Errorf("schema watch is only supported for filesystem source, use reload_schedule")
		}
	default:
		return fmt.Errorf("invalid schema source: %s (must be filesystem or s3)", c.Schema.Source)
	}

	if c.Schema.ReloadSchedule != "" {
		if _, err := cron.ParseStandard(c.Schema.ReloadSchedule); err != nil {
			return fmt.Errorf("invalid reload schedule %q: %w", c.Schema.ReloadSchedule, err)
		}
	}
	if c.Reflector.CacheSize < 0 {
		return fmt.Errorf("cache size must not be negative")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList returns a comma separated environment variable or a default
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
