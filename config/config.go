// Package config loads runtime configuration from file, environment and
// defaults via viper. Precedence: explicit file > environment variables
// (AGENTCORE_ prefix) > built-in defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LoggingConfig controls structured log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig locates the SQLite database file.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// LoopConfig tunes the iteration controller.
type LoopConfig struct {
	ConfidenceThreshold float64       `mapstructure:"confidence_threshold"`
	MaxIterations       int           `mapstructure:"max_iterations"`
	MaxDuration         time.Duration `mapstructure:"max_duration"`
	MaxDegradations     int           `mapstructure:"max_degradations"`
}

// BusConfig tunes event draining.
type BusConfig struct {
	PoolSize   int `mapstructure:"pool_size"`
	BatchSize  int `mapstructure:"batch_size"`
	MaxRetries int `mapstructure:"max_retries"`
}

// ModelConfig selects the reasoning model provider.
type ModelConfig struct {
	Provider  string `mapstructure:"provider"` // openai, anthropic or mock
	OpenAI    string `mapstructure:"openai_model"`
	Anthropic string `mapstructure:"anthropic_model"`
}

// Config is the full runtime configuration.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Loop     LoopConfig     `mapstructure:"loop"`
	Bus      BusConfig      `mapstructure:"bus"`
	Model    ModelConfig    `mapstructure:"model"`
}

// Load reads configuration from the given file (optional) layered over
// environment variables and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("AGENTCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("database.dsn", "agentcore.db")
	v.SetDefault("loop.confidence_threshold", 0.8)
	v.SetDefault("loop.max_iterations", 5)
	v.SetDefault("loop.max_duration", 2*time.Minute)
	v.SetDefault("loop.max_degradations", 2)
	v.SetDefault("bus.pool_size", 4)
	v.SetDefault("bus.batch_size", 32)
	v.SetDefault("bus.max_retries", 3)
	v.SetDefault("model.provider", "mock")
	v.SetDefault("model.openai_model", "gpt-4o-mini")
	v.SetDefault("model.anthropic_model", "claude-sonnet-4-20250514")
}

// Validate rejects configurations the core cannot run with.
func (c *Config) Validate() error {
	if c.Loop.ConfidenceThreshold <= 0 || c.Loop.ConfidenceThreshold > 1 {
		return fmt.Errorf("loop.confidence_threshold must be in (0,1], got %v", c.Loop.ConfidenceThreshold)
	}
	if c.Loop.MaxIterations < 1 {
		return fmt.Errorf("loop.max_iterations must be at least 1, got %d", c.Loop.MaxIterations)
	}
	switch c.Model.Provider {
	case "openai", "anthropic", "mock":
	default:
		return fmt.Errorf("model.provider must be openai, anthropic or mock, got %q", c.Model.Provider)
	}
	if c.Bus.PoolSize < 1 {
		return fmt.Errorf("bus.pool_size must be at least 1, got %d", c.Bus.PoolSize)
	}
	return nil
}
