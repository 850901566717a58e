package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"

	storageConfig "github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/storage/config"
	coreConfig "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/config"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/logger"
)

// ConnectionFactory opens one connection of a provider's storage type.
type ConnectionFactory func(ctx context.Context, cfg storageConfig.StorageConfig, name string) (StorageConnection, error)

// BaseProvider caches connections by name and delegates creation to a ConnectionFactory.
type BaseProvider struct {
	cfg          *coreConfig.Config
	providerType string
	factory      ConnectionFactory
	connections  map[string]StorageConnection
	mu           sync.RWMutex
}

// NewBaseProvider creates a provider for providerType.
func NewBaseProvider(cfg *coreConfig.Config, providerType string, factory ConnectionFactory) *BaseProvider {
	return &BaseProvider{
		cfg:          cfg,
		providerType: providerType,
		factory:      factory,
		connections:  make(map[string]StorageConnection),
	}
}

// Type returns the storage type handled by this provider.
func (p *BaseProvider) Type() string {
	return p.providerType
}

// GetConnection retrieves a StorageConnection by name, creating it if needed.
func (p *BaseProvider) GetConnection(name string) (StorageConnection, error) {
	p.mu.RLock()
	conn, ok := p.connections[name]
	p.mu.RUnlock()
	if ok {
		return conn, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double-check after acquiring lock
	if conn, ok = p.connections[name]; ok {
		return conn, nil
	}

	storageCfg, err := LookupConfig(p.cfg, name)
	if err != nil {
		return nil, err
	}
	if storageCfg.Type != p.providerType {
		return nil, fmt.Errorf("storage config type mismatch for '%s': expected '%s', got '%s'", name, p.providerType, storageCfg.Type)
	}

	newConn, err := p.factory(context.Background(), storageCfg, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s storage connection '%s': %w", p.providerType, name, err)
	}
	p.connections[name] = newConn
	logger.Debugf("Created new %s storage connection '%s'.", p.providerType, name)
	return newConn, nil
}

// CloseAll closes all connections managed by this provider.
func (p *BaseProvider) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var result *multierror.Error
	for name, conn := range p.connections {
		if err := conn.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close %s storage connection '%s': %w", p.providerType, name, err))
		}
		delete(p.connections, name)
	}
	return result.ErrorOrNil()
}

// LookupConfig decodes adapter.storage.<name> from the application configuration.
func LookupConfig(cfg *coreConfig.Config, name string) (storageConfig.StorageConfig, error) {
	section, ok := cfg.AdapterSection("storage")
	if !ok {
		return storageConfig.StorageConfig{}, fmt.Errorf("invalid 'adapter.storage' configuration format: expected map[string]interface{}")
	}
	raw, ok := section[name]
	if !ok {
		return storageConfig.StorageConfig{}, fmt.Errorf("storage configuration for name '%s' not found", name)
	}
	return storageConfig.Decode(name, raw)
}
