package storage

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/fx"

	coreAdapter "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/adapter"
	coreConfig "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/config"
)

// ConnectionResolver picks the provider matching the configured type of a named connection.
type ConnectionResolver struct {
	providers map[string]StorageProvider
	cfg       *coreConfig.Config
}

// ResolverParams defines the dependencies for NewConnectionResolver.
type ResolverParams struct {
	fx.In
	Providers []StorageProvider `group:"storage_providers"`
	Cfg       *coreConfig.Config
}

// NewConnectionResolver creates a ConnectionResolver over all registered providers.
func NewConnectionResolver(p ResolverParams) *ConnectionResolver {
	providerMap := make(map[string]StorageProvider, len(p.Providers))
	for _, provider := range p.Providers {
		providerMap[provider.Type()] = provider
	}
	return &ConnectionResolver{providers: providerMap, cfg: p.Cfg}
}

// ResolveConnection resolves a generic resource connection by name.
func (r *ConnectionResolver) ResolveConnection(ctx context.Context, name string) (coreAdapter.ResourceConnection, error) {
	return r.ResolveStorageConnection(ctx, name)
}

// ResolveStorageConnection resolves a StorageConnection by name.
func (r *ConnectionResolver) ResolveStorageConnection(ctx context.Context, name string) (StorageConnection, error) {
	storageCfg, err := LookupConfig(r.cfg, name)
	if err != nil {
		return nil, err
	}
	provider, ok := r.providers[storageCfg.Type]
	if !ok {
		return nil, fmt.Errorf("no storage provider found for type '%s' (connection '%s')", storageCfg.Type, name)
	}
	conn, err := provider.GetConnection(name)
	if err != nil {
		return nil, fmt.Errorf("failed to get storage connection '%s' from provider '%s': %w", name, storageCfg.Type, err)
	}
	return conn, nil
}

// CloseAll closes the connections of every provider.
func (r *ConnectionResolver) CloseAll() error {
	var result *multierror.Error
	for _, provider := range r.providers {
		if err := provider.CloseAll(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
