package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port        string
	Environment string
	LogLevel    string

	// Upload
	MaxUploadBytes int64

	// Mock backend
	AnalysisDelay   time.Duration
	GenerationDelay time.Duration
	ExecutionDelay  time.Duration
	MockFailStage   string

	// Service boundary
	ServiceTimeout time.Duration
}

const bytesPerMiB = 1024 * 1024

// Load reads .env (when present) and then the process environment.
func Load() (*Config, error) {
	// A missing .env file is not an error; real env vars always win.
	_ = godotenv.Load()

	maxMB, err := getEnvFloat("MAX_UPLOAD_MB", 10)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		MaxUploadBytes: int64(maxMB * bytesPerMiB),

		MockFailStage: strings.ToLower(getEnv("MOCK_FAIL_STAGE", "")),
	}

	durations := []struct {
		key  string
		def  time.Duration
		dest *time.Duration
	}{
		{"ANALYSIS_DELAY", 3000 * time.Millisecond, &cfg.AnalysisDelay},
		{"GENERATION_DELAY", 2000 * time.Millisecond, &cfg.GenerationDelay},
		{"EXECUTION_DELAY", 1500 * time.Millisecond, &cfg.ExecutionDelay},
		{"SERVICE_TIMEOUT", 30 * time.Second, &cfg.ServiceTimeout},
	}
	for _, d := range durations {
		v, err := getEnvDuration(d.key, d.def)
		if err != nil {
			return nil, err
		}
		*d.dest = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}
	if c.AnalysisDelay < 0 || c.GenerationDelay < 0 || c.ExecutionDelay < 0 {
		return fmt.Errorf("mock delays must not be negative")
	}
	if c.ServiceTimeout < 0 {
		return fmt.Errorf("SERVICE_TIMEOUT must not be negative")
	}
	switch c.MockFailStage {
	case "", "analyze", "generate", "execute":
	default:
		return fmt.Errorf("MOCK_FAIL_STAGE must be one of analyze, generate, execute; got %q", c.MockFailStage)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

// getEnvDuration accepts Go durations ("1.5s") or bare milliseconds ("1500").
func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
