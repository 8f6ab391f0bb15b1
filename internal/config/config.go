package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

const (
	DefaultHost       = "0.0.0.0"
	DefaultPort       = 8080
	DefaultBackend    = "sqlite"
	DefaultSQLitePath = "tasktempo.db"
)

// Config is the full service configuration, loaded from an optional JSON
// file and overridable through environment variables.
type Config struct {
	Server ServerConfig `json:"server"`
	Store  StoreConfig  `json:"store"`
}

type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type StoreConfig struct {
	Backend     string `json:"backend"` // "sqlite" (default) or "postgres"
	DatabaseURL string `json:"databaseUrl,omitempty"`
	SQLitePath  string `json:"sqlitePath,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: DefaultHost, Port: DefaultPort},
		Store:  StoreConfig{Backend: DefaultBackend, SQLitePath: DefaultSQLitePath},
	}
}

// Load reads the config file at path, falling back to defaults when path is
// empty or the file doesn't exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("TASKTEMPO_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("TASKTEMPO_STORE"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Store.DatabaseURL = v
	}
	if v := os.Getenv("TASKTEMPO_SQLITE_PATH"); v != "" {
		cfg.Store.SQLitePath = v
	}
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlitePath is required for the sqlite backend")
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("store.databaseUrl (or DATABASE_URL) is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	return nil
}

// Addr returns the host:port the server should listen on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
