package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// PoolConfig holds database connection pool settings.
type PoolConfig struct {
	MaxOpenConns           int `yaml:"max_open_conns"`
	MaxIdleConns           int `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int `yaml:"conn_max_lifetime_minutes"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Type     string     `yaml:"type"`     // Database type ("postgres", "mysql", "sqlite").
	Host     string     `yaml:"host"`     // Database host address.
	Port     int        `yaml:"port"`     // Database port number.
	Database string     `yaml:"database"` // Database name, or the file path for SQLite.
	User     string     `yaml:"user"`     // Database user.
	Password string     `yaml:"password"` // Database password.
	Sslmode  string     `yaml:"sslmode"`  // SSL mode for the connection.
	LogLevel string     `yaml:"log_level"`
	Pool     PoolConfig `yaml:"pool"` // Connection pool settings.
}

// Decode converts one raw entry of adapter.database into a DatabaseConfig.
func Decode(name string, raw interface{}) (DatabaseConfig, error) {
	var cfg DatabaseConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return cfg, fmt.Errorf("failed to create decoder for database config '%s': %w", name, err)
	}
	if err := decoder.Decode(raw); err != nil {
		return cfg, fmt.Errorf("failed to decode database config for '%s': %w", name, err)
	}
	return cfg, nil
}
