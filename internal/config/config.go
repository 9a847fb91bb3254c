package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the application configuration. Values come from an optional
// YAML file, overridable via SPLITKIT_* environment variables; CLI flags
// take precedence over both.
type Config struct {
	// Database — path to the SQLite database file.
	Database DatabaseConfig `mapstructure:"database"`
	// Logger — logging settings.
	Logger LoggerConfig `mapstructure:"logger"`
}

type DatabaseConfig struct {
	// Path — SQLite database file path.
	Path string `mapstructure:"path"`
}

type LoggerConfig struct {
	// Mode — "dev" or "prod" zap base configuration.
	Mode string `mapstructure:"mode"`
	// Level — minimum log level: debug, info, warn, error.
	Level string `mapstructure:"level"`
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database.path: must be specified")
	}
	return c.Logger.Validate()
}

func (l *LoggerConfig) Validate() error {
	if l.Level == "" {
		return nil
	}
	valid := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !valid[strings.ToLower(l.Level)] {
		return fmt.Errorf("logger.level: unsupported level '%s'", l.Level)
	}
	return nil
}

// Load reads configuration from configPath when non-empty, falling back to
// defaults plus environment overrides when no file is given.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetDefault("database.path", "./splitkit.db")
	v.SetDefault("logger.mode", "dev")
	v.SetDefault("logger.level", "info")

	v.SetEnvPrefix("SPLITKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
