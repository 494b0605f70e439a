package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all server configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	JWT     JWTConfig     `yaml:"jwt"`
	Redis   RedisConfig   `yaml:"redis"`
	Session SessionConfig `yaml:"session"`
	Items   ItemsConfig   `yaml:"items"`
	Catalog CatalogConfig `yaml:"catalog"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds server-specific settings
type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TickRate int    `yaml:"tick_rate"` // Hz
}

// JWTConfig holds JWT authentication settings
type JWTConfig struct {
	Issuer              string `yaml:"issuer"`
	PublicKeyURL        string `yaml:"public_key_url"`
	PublicKeyFile       string `yaml:"public_key_file"`
	PublicKeyRefreshHrs int    `yaml:"public_key_refresh_hours"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Address         string `yaml:"address"`
	Password        string `yaml:"password"`
	DB              int    `yaml:"db"`
	BlacklistPrefix string `yaml:"blacklist_prefix"`
	EventsPrefix    string `yaml:"events_prefix"`
}

// SessionConfig holds game session settings
type SessionConfig struct {
	MaxPlayers int `yaml:"max_players"`
}

// ItemsConfig is the item manager policy applied to every player.
// Unset booleans default to true.
type ItemsConfig struct {
	LoopSwitching         *bool `yaml:"loop_switching"`
	AddEmptyItemByDefault *bool `yaml:"add_empty_item_by_default"`
	AllowDuplicates       *bool `yaml:"allow_duplicates"`
	ItemLimit             int   `yaml:"item_limit"` // 0 = unlimited
}

// CatalogConfig points at the item and pickup catalog
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"` // json or text
	Environment string `yaml:"environment"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML document and fills in defaults and environment
// overrides.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults if not provided
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.TickRate == 0 {
		cfg.Server.TickRate = 20
	}
	if cfg.JWT.PublicKeyRefreshHrs == 0 {
		cfg.JWT.PublicKeyRefreshHrs = 24
	}
	if cfg.Redis.BlacklistPrefix == "" {
		cfg.Redis.BlacklistPrefix = "jwt:blacklist:"
	}
	if cfg.Redis.EventsPrefix == "" {
		cfg.Redis.EventsPrefix = "item-events:"
	}
	if cfg.Session.MaxPlayers == 0 {
		cfg.Session.MaxPlayers = 100
	}
	if cfg.Catalog.Path == "" {
		cfg.Catalog.Path = "./configs/items.yaml"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Environment == "" {
		cfg.Logging.Environment = "development"
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		cfg.Logging.Environment = v
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
		if cfg.Logging.Environment == "production" {
			cfg.Logging.Format = "json"
		}
	}

	if cfg.Server.TickRate < 0 {
		return nil, fmt.Errorf("invalid tick rate %d", cfg.Server.TickRate)
	}
	if cfg.Items.ItemLimit < 0 {
		return nil, fmt.Errorf("invalid item limit %d", cfg.Items.ItemLimit)
	}
	if f := cfg.Logging.Format; f != "json" && f != "text" {
		return nil, fmt.Errorf("unknown log format %q", f)
	}

	return &cfg, nil
}

// Address returns host:port for the listener.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// LogLevel parses the configured level, falling back to info.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// Loop reports whether switching wraps around the inventory.
func (c ItemsConfig) Loop() bool { return boolOr(c.LoopSwitching, true) }

// EmptyItem reports whether players start with the empty item.
func (c ItemsConfig) EmptyItem() bool { return boolOr(c.AddEmptyItemByDefault, true) }

// Duplicates reports whether two slots may hold the same item type.
func (c ItemsConfig) Duplicates() bool { return boolOr(c.AllowDuplicates, true) }
