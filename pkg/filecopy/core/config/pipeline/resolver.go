package pipeline

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"go.uber.org/fx"

	config "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/config"
	exception "github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/exception"
	logger "github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/logger"
)

// ResourceResolver locates pipeline definitions by resource name.
type ResourceResolver interface {
	// Resolve returns the parsed definition named by resource.
	Resolve(resource string) (*Definition, error)
}

// DefaultResourceResolver looks in the embedded definitions first, then in each
// search path, then treats resource as a filesystem path.
type DefaultResourceResolver struct {
	embedded    fs.FS
	searchPaths []string
	expander    config.EnvironmentExpander
}

// ResolverParams holds the dependencies of NewResourceResolver.
type ResolverParams struct {
	fx.In
	Cfg      *config.Config
	Embedded EmbeddedDefinitions `optional:"true"`
	Expander config.EnvironmentExpander
}

// NewResourceResolver creates the resolver from Fx parameters.
func NewResourceResolver(p ResolverParams) ResourceResolver {
	return NewDefaultResourceResolver(p.Embedded, p.Cfg.FileCopy.Pipeline.SearchPaths, p.Expander)
}

// NewDefaultResourceResolver creates a resolver. embedded may be nil.
func NewDefaultResourceResolver(embedded fs.FS, searchPaths []string, expander config.EnvironmentExpander) *DefaultResourceResolver {
	return &DefaultResourceResolver{embedded: embedded, searchPaths: searchPaths, expander: expander}
}

// Resolve implements ResourceResolver.
func (r *DefaultResourceResolver) Resolve(resource string) (*Definition, error) {
	if resource == "" {
		return nil, exception.NewConfigurationResolutionFailure(resource, "Pipeline resource name is empty", nil)
	}

	data, location, err := r.read(resource)
	if err != nil {
		return nil, err
	}
	logger.Infof("Loading pipeline definition '%s' from %s.", resource, location)
	return ParseDefinition(resource, data, r.expander)
}

func (r *DefaultResourceResolver) read(resource string) ([]byte, string, error) {
	if r.embedded != nil && fs.ValidPath(resource) {
		data, err := fs.ReadFile(r.embedded, resource)
		if err == nil {
			return data, "embedded resources", nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, "", exception.NewConfigurationResolutionFailure(resource, "Failed to read embedded pipeline definition", err)
		}
		// Bare names may also live under the embedded pipelines/ directory.
		data, err = fs.ReadFile(r.embedded, path.Join("pipelines", resource))
		if err == nil {
			return data, "embedded resources", nil
		}
	}

	for _, dir := range r.searchPaths {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, resource)
		data, err := os.ReadFile(candidate)
		if err == nil {
			return data, candidate, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, "", exception.NewConfigurationResolutionFailure(resource, "Failed to read pipeline definition", err)
		}
	}

	data, err := os.ReadFile(resource)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", exception.NewConfigurationResolutionFailure(resource, "Pipeline definition not found", err)
		}
		return nil, "", exception.NewConfigurationResolutionFailure(resource, "Failed to read pipeline definition", err)
	}
	return data, resource, nil
}

var _ ResourceResolver = (*DefaultResourceResolver)(nil)
