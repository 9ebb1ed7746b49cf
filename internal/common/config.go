package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Engine names accepted by PREFERRED_AI_ENGINE.
const (
	EngineGemini   = "gemini"
	EngineFallback = "fallback"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Pipeline PipelineConfig
	Gemini   GeminiConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
	SQLitePath       string // non-empty selects the local sqlite store
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr           string
	UploadDir      string
	MaxUploadBytes int64
}

// PipelineConfig holds extraction pipeline configuration
type PipelineConfig struct {
	PreferredEngine string
	SMMLVReference  float64
	ProcessTimeout  time.Duration
}

// GeminiConfig holds inference service configuration
type GeminiConfig struct {
	APIKey  string
	BaseURL string
	Models  []string
	Timeout time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
			SQLitePath:       getEnv("SQLITE_PATH", ""),
		},
		Server: ServerConfig{
			Addr:           getEnv("HTTP_ADDR", ":8080"),
			UploadDir:      getEnv("UPLOAD_PATH", "./uploads"),
			MaxUploadBytes: int64(getEnvAsInt("MAX_UPLOAD_BYTES", 10<<20)),
		},
		Pipeline: PipelineConfig{
			PreferredEngine: getEnv("PREFERRED_AI_ENGINE", EngineFallback),
			SMMLVReference:  getEnvAsFloat64("SMMLV_REFERENCE", 1300000),
			ProcessTimeout:  getEnvAsDuration("PROCESS_TIMEOUT", 3*time.Minute),
		},
		Gemini: GeminiConfig{
			APIKey:  getEnv("GEMINI_API_KEY", ""),
			BaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			Models:  getEnvAsList("GEMINI_MODELS", []string{"gemini-2.0-flash", "gemini-1.5-flash"}),
			Timeout: getEnvAsDuration("GEMINI_TIMEOUT", 45*time.Second),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

// ValidateConfig validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" && c.Database.SQLitePath == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL or SQLITE_PATH is required", ErrInvalidInput)
	}
	if c.Server.Addr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	switch c.Pipeline.PreferredEngine {
	case EngineGemini, EngineFallback:
	default:
		return NewAppError("CONFIG_ERROR", "PREFERRED_AI_ENGINE must be gemini or fallback", ErrInvalidInput)
	}
	if c.Pipeline.PreferredEngine == EngineGemini && c.Gemini.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "GEMINI_API_KEY is required for the gemini engine", ErrInvalidInput)
	}
	if c.Pipeline.SMMLVReference <= 0 {
		return NewAppError("CONFIG_ERROR", "SMMLV_REFERENCE must be positive", ErrInvalidInput)
	}
	if len(c.Gemini.Models) == 0 {
		return NewAppError("CONFIG_ERROR", "GEMINI_MODELS must name at least one model", ErrInvalidInput)
	}
	return nil
}
