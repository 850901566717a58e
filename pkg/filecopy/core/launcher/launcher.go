// Package launcher runs the startup sequence: directory preparation, then pipeline bootstrap.
package launcher

import (
	"context"

	config "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/config"
	directory "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/directory"
	pipeline "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/pipeline"
	logger "github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/logger"
)

// Launcher prepares the directories and bootstraps the configured pipeline.
type Launcher struct {
	cfg          *config.Config
	preparer     directory.Preparer
	bootstrapper pipeline.Bootstrapper
}

// NewLauncher creates a Launcher.
func NewLauncher(cfg *config.Config, preparer directory.Preparer, bootstrapper pipeline.Bootstrapper) *Launcher {
	return &Launcher{cfg: cfg, preparer: preparer, bootstrapper: bootstrapper}
}

// Launch prepares the directories, then bootstraps the pipeline named by filecopy.pipeline.resource.
// Errors from either step are returned unchanged. Bootstrap is not attempted when preparation fails.
func (l *Launcher) Launch(ctx context.Context) (*pipeline.Handle, error) {
	layout := directory.LayoutFromConfig(l.cfg)
	logger.Infof("Preparing directories (input: %s, output: %s).", layout.Input, layout.Output)
	prepared, err := l.preparer.Prepare(layout)
	if err != nil {
		return nil, err
	}

	resource := l.cfg.FileCopy.Pipeline.Resource
	logger.Infof("Bootstrapping pipeline from '%s'.", resource)
	handle, err := l.bootstrapper.Bootstrap(ctx, prepared, resource)
	if err != nil {
		return nil, err
	}
	logger.Infof("Pipeline '%s' is running (run %s).", handle.PipelineID(), handle.RunID())
	return handle, nil
}
