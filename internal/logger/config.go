package logger

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds logging configuration
type Config struct {
	Level   string        `yaml:"level"`
	Console ConsoleConfig `yaml:"console"`
	File    FileConfig    `yaml:"file"`
}

// ConsoleConfig controls the stderr handler
type ConsoleConfig struct {
	Enabled bool   `yaml:"enabled"`
	Format  string `yaml:"format"` // text or json
}

// FileConfig controls the rotating file handler
type FileConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Path       string `yaml:"path"`
	Format     string `yaml:"format"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// DefaultConfig returns console-only text logging at INFO
func DefaultConfig() Config {
	return Config{
		Level: "INFO",
		Console: ConsoleConfig{
			Enabled: true,
			Format:  "text",
		},
		File: FileConfig{
			Path:       "logs/tilegen.log",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
	}
}

// LoadConfig reads the logging section of a YAML file over the defaults
// and applies environment variable overrides. A missing or unreadable
// file leaves the defaults in place.
func LoadConfig(configPath string) (Config, error) {
	config := DefaultConfig()

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			wrapper := struct {
				Logging Config `yaml:"logging"`
			}{Logging: config}
			if err := yaml.Unmarshal(data, &wrapper); err != nil {
				return DefaultConfig(), err
			}
			config = wrapper.Logging
		}
	}

	applyEnv(&config)
	return config, nil
}

func applyEnv(config *Config) {
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Level = level
	}
	if format := os.Getenv("LOG_CONSOLE_FORMAT"); format != "" {
		config.Console.Format = format
	}
	if enabled := os.Getenv("LOG_FILE_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			config.File.Enabled = b
		}
	}
	if path := os.Getenv("LOG_FILE_PATH"); path != "" {
		config.File.Path = path
	}
}
