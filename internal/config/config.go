package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Storage drivers
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Generator providers
const (
	ProviderLLM      = "llm"
	ProviderTemplate = "template"
)

// Image storage backends
const (
	ImageStorageLocal = "local"
	ImageStorageS3    = "s3"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Generation worker configuration
	Generation GenerationConfig

	// Image upload configuration
	Images ImagesConfig

	// Lifecycle event configuration
	Events EventsConfig

	// Logging configuration
	Log LogConfig

	// Tracing configuration
	Tracing TracingConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver       string // "memory" or "postgres"
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// GenerationConfig holds generation worker settings
type GenerationConfig struct {
	Provider      string // "llm" or "template"
	Timeout       time.Duration
	MaxConcurrent int
	TemplateDelay time.Duration
	LLM           LLMConfig
}

// LLMConfig holds the OpenAI-compatible model settings
type LLMConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
}

// ImagesConfig holds image upload settings
type ImagesConfig struct {
	Storage       string // "local" or "s3"
	UploadDir     string
	MaxUploadSize int64 // in bytes
	S3Bucket      string
	S3Region      string
	S3Endpoint    string
	S3Prefix      string
}

// EventsConfig holds the Redis publisher settings. An empty RedisAddr
// disables event publishing.
type EventsConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Channel       string
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string // "json" or "pretty"
}

// TracingConfig holds OpenTelemetry settings. The exporter endpoint is
// read by the SDK from OTEL_EXPORTER_OTLP_ENDPOINT.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			AllowedOrigins:  getListEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Driver:       getEnv("STORAGE_DRIVER", DriverMemory),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Name:         getEnv("DB_NAME", "articles"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getIntEnv("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getDurationEnv("DB_MAX_LIFETIME", 5*time.Minute),
		},
		Generation: GenerationConfig{
			Provider:      getEnv("GENERATOR", ProviderTemplate),
			Timeout:       getDurationEnv("GENERATION_TIMEOUT", 60*time.Second),
			MaxConcurrent: getIntEnv("GENERATION_MAX_CONCURRENT", DefaultMaxConcurrent()),
			TemplateDelay: getDurationEnv("TEMPLATE_DELAY", 2*time.Second),
			LLM: LLMConfig{
				APIKey:      getEnv("LLM_API_KEY", ""),
				Model:       getEnv("LLM_MODEL", "gpt-4o-mini"),
				BaseURL:     getEnv("LLM_BASE_URL", ""),
				Temperature: getFloatEnv("LLM_TEMPERATURE", 0.7),
				MaxTokens:   getIntEnv("LLM_MAX_TOKENS", 2048),
			},
		},
		Images: ImagesConfig{
			Storage:       getEnv("IMAGE_STORAGE", ImageStorageLocal),
			UploadDir:     getEnv("UPLOAD_DIR", "./data/uploads"),
			MaxUploadSize: getInt64Env("MAX_UPLOAD_SIZE", 10*1024*1024), // 10MB
			S3Bucket:      getEnv("S3_BUCKET", ""),
			S3Region:      getEnv("S3_REGION", "us-east-1"),
			S3Endpoint:    getEnv("S3_ENDPOINT", ""),
			S3Prefix:      getEnv("S3_PREFIX", "images"),
		},
		Events: EventsConfig{
			RedisAddr:     getEnv("REDIS_ADDR", ""),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getIntEnv("REDIS_DB", 0),
			Channel:       getEnv("EVENTS_CHANNEL", "articles.events"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Tracing: TracingConfig{
			Enabled:     getBoolEnv("TRACING_ENABLED", false),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "article-generation-api"),
		},
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required")
		}
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", DriverMemory, DriverPostgres, c.Database.Driver)
	}

	switch c.Generation.Provider {
	case ProviderTemplate:
	case ProviderLLM:
		if c.Generation.LLM.APIKey == "" {
			return fmt.Errorf("LLM_API_KEY is required when GENERATOR=%s", ProviderLLM)
		}
	default:
		return fmt.Errorf("GENERATOR must be %q or %q, got %q", ProviderLLM, ProviderTemplate, c.Generation.Provider)
	}
	if c.Generation.Timeout <= 0 {
		return fmt.Errorf("GENERATION_TIMEOUT must be positive")
	}
	if c.Generation.MaxConcurrent < 1 {
		return fmt.Errorf("GENERATION_MAX_CONCURRENT must be at least 1")
	}

	switch c.Images.Storage {
	case ImageStorageLocal:
		if c.Images.UploadDir == "" {
			return fmt.Errorf("UPLOAD_DIR is required")
		}
	case ImageStorageS3:
		if c.Images.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when IMAGE_STORAGE=%s", ImageStorageS3)
		}
	default:
		return fmt.Errorf("IMAGE_STORAGE must be %q or %q, got %q", ImageStorageLocal, ImageStorageS3, c.Images.Storage)
	}

	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// DefaultMaxConcurrent bounds in-flight generations to four per CPU,
// clamped to [4, 32].
func DefaultMaxConcurrent() int {
	n := runtime.NumCPU() * 4
	if n < 4 {
		return 4
	}
	if n > 32 {
		return 32
	}
	return n
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
