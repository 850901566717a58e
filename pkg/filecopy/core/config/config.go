package config

import (
	"io/fs"
	"strconv"
)

// Package config provides structures and utilities for managing application configuration.

// EmbeddedConfig holds the content of the configuration file, typically passed from main.go.
type EmbeddedConfig []byte

// PipelineConfig selects the pipeline definition resource the launcher bootstraps.
type PipelineConfig struct {
	// Resource is the name of the pipeline definition resource (e.g., "filecopy-binary.yaml").
	Resource string `yaml:"resource"`
	// SearchPaths are directories searched for Resource after the embedded resources.
	SearchPaths []string `yaml:"search_paths"`
	// Once forces the trigger into one-shot mode regardless of the definition.
	Once bool `yaml:"once"`
	// StopTimeoutSeconds bounds how long shutdown waits for the running pipeline.
	StopTimeoutSeconds int `yaml:"stop_timeout_seconds"`
}

// DirectoriesConfig lists the well-known directories prepared before the pipeline starts.
type DirectoriesConfig struct {
	Input  string   `yaml:"input"`
	Output string   `yaml:"output"`
	Extra  []string `yaml:"extra"`
	// Permissions is the octal mode used for created directories (e.g., "0755").
	Permissions string `yaml:"permissions"`
}

// FileMode parses Permissions, falling back to 0755.
func (d DirectoriesConfig) FileMode() fs.FileMode {
	if d.Permissions == "" {
		return 0o755
	}
	mode, err := strconv.ParseUint(d.Permissions, 8, 32)
	if err != nil {
		return 0o755
	}
	return fs.FileMode(mode)
}

// ByName returns the configured path of a named directory ("input" or "output").
func (d DirectoriesConfig) ByName(name string) (string, bool) {
	switch name {
	case "input":
		return d.Input, d.Input != ""
	case "output":
		return d.Output, d.Output != ""
	}
	return "", false
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g., "INFO", "DEBUG", "TRACE").
	Level string `yaml:"level"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	// Timezone is the application timezone (e.g., "UTC", "Asia/Tokyo").
	Timezone string        `yaml:"timezone"`
	Logging  LoggingConfig `yaml:"logging"`
}

// InfrastructureConfig holds logical dependency settings for infrastructure components.
type InfrastructureConfig struct {
	// HistoryDBRef names the adapter.database entry backing the copy history.
	// Empty selects the in-memory history.
	HistoryDBRef string `yaml:"history_db_ref"`
	// SkipMigrations disables schema migration on startup.
	SkipMigrations bool `yaml:"skip_migrations"`
}

// MetricsConfig configures the metric recorder.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	// Backend is "prometheus" or "otlp".
	Backend string `yaml:"backend"`
	// ListenAddress serves /metrics for the prometheus backend. Empty disables the endpoint.
	ListenAddress string `yaml:"listen_address"`
	OTLPEndpoint  string `yaml:"otlp_endpoint"`
	// Protocol is "http" or "grpc" for the otlp backend.
	Protocol              string `yaml:"protocol"`
	Insecure              bool   `yaml:"insecure"`
	ExportIntervalSeconds int    `yaml:"export_interval_seconds"`
	// AsyncBufferSize is the queue size of the asynchronous recorder. Defaults to 100.
	AsyncBufferSize int `yaml:"async_buffer_size"`
}

// TracingConfig configures the tracer.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	ServiceName  string  `yaml:"service_name"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	Protocol     string  `yaml:"protocol"`
	Insecure     bool    `yaml:"insecure"`
	SampleRatio  float64 `yaml:"sample_ratio"`
}

// FileCopyConfig holds all configuration under the "filecopy" top-level key.
type FileCopyConfig struct {
	Pipeline       PipelineConfig       `yaml:"pipeline"`
	Directories    DirectoriesConfig    `yaml:"directories"`
	System         SystemConfig         `yaml:"system"`
	Infrastructure InfrastructureConfig `yaml:"infrastructure"`
	Metrics        MetricsConfig        `yaml:"metrics"`
	Tracing        TracingConfig        `yaml:"tracing"`
	// AdapterConfigs holds the raw "adapter" section, keyed by adapter kind ("storage", "database")
	// and then by connection name.
	AdapterConfigs map[string]interface{} `yaml:"adapter"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	FileCopy FileCopyConfig `yaml:"filecopy"`
	// EmbeddedConfig holds configuration loaded from an embedded source, not from YAML.
	EmbeddedConfig EmbeddedConfig `yaml:"-"`
}

// AdapterSection returns the named connection configs of one adapter kind ("storage" or "database").
func (c *Config) AdapterSection(kind string) (map[string]interface{}, bool) {
	if c == nil || c.FileCopy.AdapterConfigs == nil {
		return nil, false
	}
	section, ok := c.FileCopy.AdapterConfigs[kind].(map[string]interface{})
	return section, ok
}

// NewConfig returns a new instance of Config with default values.
func NewConfig() *Config {
	return &Config{
		FileCopy: FileCopyConfig{
			Pipeline: PipelineConfig{
				Resource:           "filecopy-binary.yaml",
				StopTimeoutSeconds: 10,
			},
			Directories: DirectoriesConfig{
				Permissions: "0755",
			},
			System: SystemConfig{
				Timezone: "UTC",
				Logging:  LoggingConfig{Level: "INFO"},
			},
			Metrics: MetricsConfig{
				Backend:               "prometheus",
				Protocol:              "http",
				ExportIntervalSeconds: 15,
				AsyncBufferSize:       100,
			},
			Tracing: TracingConfig{
				ServiceName: "surfin-filecopy",
				Protocol:    "http",
				SampleRatio: 1.0,
			},
			AdapterConfigs: map[string]interface{}{},
		},
	}
}
