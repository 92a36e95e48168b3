// Package config loads application configuration from an optional YAML
// file (folio.yaml) with environment variable overrides. A .env file in
// the working directory is honored for local development.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Config holds application configuration.
type Config struct {
	// Server settings (deprecated web dashboard).
	Port string

	// Alpaca market data API credentials.
	AlpacaAPIKey    string
	AlpacaSecretKey string

	// RiskFreeRate pins the rate used by the pricing model. When
	// negative (unset), the Treasury client supplies a live rate.
	RiskFreeRate float64

	// DividendYield is the continuous dividend yield assumed by the
	// pricing model.
	DividendYield float64

	// Strict aborts a portfolio summary on the first position failure
	// instead of degrading that position.
	Strict bool

	// Logging settings.
	Logging LoggingConfig
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

type yamlConfig struct {
	Port string `yaml:"port"`

	Alpaca struct {
		APIKey    string `yaml:"api_key"`
		SecretKey string `yaml:"secret_key"`
	} `yaml:"alpaca"`

	Pricing struct {
		RiskFreeRate  *float64 `yaml:"risk_free_rate"`
		DividendYield *float64 `yaml:"dividend_yield"`
	} `yaml:"pricing"`

	Strict  *bool         `yaml:"strict"`
	Logging LoggingConfig `yaml:"logging"`
}

// Load builds the configuration: defaults, then the YAML file if present,
// then environment variables. Environment wins.
func Load(path string) (*Config, error) {
	// Best effort; a missing .env is the normal case.
	_ = godotenv.Load()

	cfg := &Config{
		Port:          "8080",
		RiskFreeRate:  -1, // unset: use the Treasury client
		DividendYield: 0,
		Logging: LoggingConfig{
			LogLevel: "info",
			LogFile:  "",
		},
	}

	if path == "" {
		path = "folio.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		var y yamlConfig
		if err := yaml.Unmarshal(data, &y); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		applyYAML(cfg, &y)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.AlpacaAPIKey = getEnv("ALPACA_API_KEY", cfg.AlpacaAPIKey)
	cfg.AlpacaSecretKey = getEnv("ALPACA_SECRET_KEY", cfg.AlpacaSecretKey)
	cfg.RiskFreeRate = getEnvFloat("RISK_FREE_RATE", cfg.RiskFreeRate)
	cfg.DividendYield = getEnvFloat("DIVIDEND_YIELD", cfg.DividendYield)
	cfg.Strict = getEnvBool("STRICT", cfg.Strict)
	cfg.Logging.LogLevel = getEnv("LOG_LEVEL", cfg.Logging.LogLevel)
	cfg.Logging.LogFile = getEnv("LOG_FILE", cfg.Logging.LogFile)

	return cfg, nil
}

func applyYAML(cfg *Config, y *yamlConfig) {
	if y.Port != "" {
		cfg.Port = y.Port
	}
	if y.Alpaca.APIKey != "" {
		cfg.AlpacaAPIKey = y.Alpaca.APIKey
	}
	if y.Alpaca.SecretKey != "" {
		cfg.AlpacaSecretKey = y.Alpaca.SecretKey
	}
	if y.Pricing.RiskFreeRate != nil {
		cfg.RiskFreeRate = *y.Pricing.RiskFreeRate
	}
	if y.Pricing.DividendYield != nil {
		cfg.DividendYield = *y.Pricing.DividendYield
	}
	if y.Strict != nil {
		cfg.Strict = *y.Strict
	}
	if y.Logging.LogLevel != "" {
		cfg.Logging.LogLevel = y.Logging.LogLevel
	}
	if y.Logging.LogFile != "" {
		cfg.Logging.LogFile = y.Logging.LogFile
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
