// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"conciliador/internal/infrastructure/storage"
)

// Config represents the entire application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
	Matching MatchingConfig `yaml:"matching"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MatchingConfig holds the default matching tolerances. These seed the
// settings table; per-run values always come from storage so that UI edits
// take effect without a restart.
type MatchingConfig struct {
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	MaxDateDiffDays     int     `yaml:"max_date_diff_days"`
	AmountTolerance     float64 `yaml:"amount_tolerance"`
	MinTextSimilarity   float64 `yaml:"min_text_similarity"`
	TieMargin           float64 `yaml:"tie_margin"`
}

// ToSettings converts the config block into engine settings.
func (m MatchingConfig) ToSettings() *storage.MatchSettings {
	settings := storage.DefaultMatchSettings()
	if m.ConfidenceThreshold > 0 {
		settings.ConfidenceThreshold = m.ConfidenceThreshold
	}
	if m.MaxDateDiffDays > 0 {
		settings.MaxDateDiffDays = m.MaxDateDiffDays
	}
	if m.AmountTolerance > 0 {
		settings.AmountTolerance = decimal.NewFromFloat(m.AmountTolerance).Round(2)
	}
	if m.MinTextSimilarity > 0 {
		settings.MinTextSimilarity = m.MinTextSimilarity
	}
	if m.TieMargin > 0 {
		settings.TieMargin = m.TieMargin
	}
	return settings
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${CONCILIADOR_DB_PATH})
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnvInt("PORT", 8080),
			AllowedOrigins: splitEnv("ALLOWED_ORIGINS"),
		},
		Storage: StorageConfig{
			DatabasePath: getEnv("CONCILIADOR_DB_PATH", "conciliador.db"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Matching: MatchingConfig{
			ConfidenceThreshold: getEnvFloat("MATCH_CONFIDENCE_THRESHOLD", 0.70),
			MaxDateDiffDays:     getEnvInt("MATCH_MAX_DATE_DIFF_DAYS", 30),
			AmountTolerance:     getEnvFloat("MATCH_AMOUNT_TOLERANCE", 0.01),
			MinTextSimilarity:   getEnvFloat("MATCH_MIN_TEXT_SIMILARITY", 0.80),
			TieMargin:           getEnvFloat("MATCH_TIE_MARGIN", 0.01),
		},
	}
	cfg.applyDefaults()
	return cfg
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnvWithPath("config.yaml")
}

// LoadOrEnvWithPath tries to load from the specified path, falls back to
// environment variables
func LoadOrEnvWithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = "conciliador.db"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}

// getEnvFloat retrieves a float environment variable with a fallback default
func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		var result float64
		if _, err := fmt.Sscanf(val, "%g", &result); err == nil {
			return result
		}
	}
	return fallback
}

func splitEnv(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
