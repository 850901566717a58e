package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// StorageConfig holds configuration for a single storage connection.
type StorageConfig struct {
	Type            string `yaml:"type"`             // Type of storage ("local", "gcs").
	BucketName      string `yaml:"bucket_name"`      // Default bucket name for operations.
	CredentialsFile string `yaml:"credentials_file"` // Path to a service account key for GCS.
	BaseDir         string `yaml:"base_dir"`         // Root directory (local) or object prefix (gcs).
	Directory       string `yaml:"directory"`        // Named directory from filecopy.directories used when BaseDir is empty.
	Endpoint        string `yaml:"endpoint"`         // Custom API endpoint (e.g., an emulator).
}

// DatasourcesConfig holds a map of named storage configurations.
type DatasourcesConfig map[string]StorageConfig

// Decode converts one raw entry of adapter.storage into a StorageConfig.
func Decode(name string, raw interface{}) (StorageConfig, error) {
	var cfg StorageConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return cfg, fmt.Errorf("failed to create decoder for storage config '%s': %w", name, err)
	}
	if err := decoder.Decode(raw); err != nil {
		return cfg, fmt.Errorf("failed to decode storage config for '%s': %w", name, err)
	}
	return cfg, nil
}
