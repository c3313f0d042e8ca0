// Package config loads the generator, tileset, server and database settings
// shared by tilegen and tileserver.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lawnchairsociety/tiledwfc/internal/generator"
	"github.com/lawnchairsociety/tiledwfc/internal/store"
)

var ErrInvalid = errors.New("config: invalid configuration")

// Config is the top-level configuration file.
type Config struct {
	Generator generator.Config `yaml:"generator"`
	Tilesets  TilesetsConfig   `yaml:"tilesets"`
	Server    ServerConfig     `yaml:"server"`
	Database  DatabaseConfig   `yaml:"database"`
}

// TilesetsConfig locates tileset definitions and their tile images.
type TilesetsConfig struct {
	Dir       string `yaml:"dir"`
	ImagesDir string `yaml:"images_dir"`
	// Default is used when a request or flag names no tileset.
	Default string `yaml:"default"`
}

// ServerConfig holds generation service settings.
type ServerConfig struct {
	Address string `yaml:"address"`

	// AllowedOrigins is a list of origins allowed to connect via WebSocket.
	// Empty list enforces same-origin policy.
	// Use "*" to allow all origins (not recommended for production).
	AllowedOrigins []string `yaml:"allowed_origins"`

	// MaxMessageSize is the maximum WebSocket request size in bytes.
	MaxMessageSize int64 `yaml:"max_message_size"`

	// MaxCells bounds width*height of a single request.
	MaxCells int `yaml:"max_cells"`

	Connections ConnectionsConfig `yaml:"connections"`
}

// ConnectionsConfig holds connection limit settings.
type ConnectionsConfig struct {
	// MaxPerIP is the maximum concurrent sessions allowed from a single IP address.
	// 0 means unlimited (not recommended).
	MaxPerIP int `yaml:"max_per_ip"`

	// MaxTotal is the maximum total concurrent sessions.
	// 0 means unlimited.
	MaxTotal int `yaml:"max_total"`
}

// DatabaseConfig enables run persistence.
type DatabaseConfig struct {
	Enabled      bool `yaml:"enabled"`
	store.Config `yaml:",inline"`
}

// DefaultConfig returns a Config with defaults suitable for local use.
func DefaultConfig() *Config {
	return &Config{
		Generator: generator.DefaultConfig(),
		Tilesets: TilesetsConfig{
			Dir:       "data/tilesets",
			ImagesDir: "data/tiles",
			Default:   "pipes",
		},
		Server: ServerConfig{
			Address:        ":8080",
			AllowedOrigins: []string{}, // Same-origin only by default
			MaxMessageSize: 4096,
			MaxCells:       128 * 128,
			Connections: ConnectionsConfig{
				MaxPerIP: 3,
				MaxTotal: 100,
			},
		},
		Database: DatabaseConfig{
			Config: store.DefaultConfig("data/runs.db"),
		},
	}
}

// LoadConfig loads configuration from a YAML file.
// A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects settings no run could use.
func (c *Config) Validate() error {
	if err := c.Generator.Validate(); err != nil {
		return err
	}
	if c.Server.MaxCells <= 0 {
		return fmt.Errorf("%w: server.max_cells %d", ErrInvalid, c.Server.MaxCells)
	}
	if c.Server.MaxMessageSize <= 0 {
		return fmt.Errorf("%w: server.max_message_size %d", ErrInvalid, c.Server.MaxMessageSize)
	}
	if c.Database.Enabled {
		switch store.DialectType(c.Database.Driver) {
		case store.DialectSQLite:
			if c.Database.SQLitePath == "" {
				return fmt.Errorf("%w: database.sqlite_path is empty", ErrInvalid)
			}
		case store.DialectPostgres:
		default:
			return fmt.Errorf("%w: database.driver %q", ErrInvalid, c.Database.Driver)
		}
	}
	return nil
}

// IsOriginAllowed checks if the given origin is allowed based on the config.
// Returns true if:
// - AllowedOrigins contains "*" (allow all)
// - AllowedOrigins contains the exact origin
// - AllowedOrigins is empty and origin matches the request host (same-origin)
func (c *ServerConfig) IsOriginAllowed(origin, requestHost string) bool {
	if len(c.AllowedOrigins) == 0 {
		return isSameOrigin(origin, requestHost)
	}

	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// isSameOrigin checks if the origin matches the request host.
func isSameOrigin(origin, requestHost string) bool {
	if origin == "" {
		return true // non-browser clients send no Origin header
	}

	originHost := origin
	if idx := strings.Index(origin, "://"); idx != -1 {
		originHost = origin[idx+3:]
	}
	originHost = strings.TrimSuffix(originHost, "/")

	return originHost == requestHost
}
