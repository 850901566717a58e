package launcher

import (
	"context"
	"sync"
	"time"

	"go.uber.org/fx"

	config "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/config"
	directory "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/directory"
	pipeline "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/pipeline"
	logger "github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/logger"
)

// LauncherParams defines the dependencies of the Launcher.
type LauncherParams struct {
	fx.In
	Cfg          *config.Config
	Preparer     directory.Preparer
	Bootstrapper pipeline.Bootstrapper
}

// NewLauncherProvider is the Fx provider of *Launcher.
func NewLauncherProvider(p LauncherParams) *Launcher {
	return NewLauncher(p.Cfg, p.Preparer, p.Bootstrapper)
}

// Runtime holds the handle of the pipeline started by the application.
type Runtime struct {
	mu     sync.RWMutex
	handle *pipeline.Handle
}

// NewRuntime creates an empty Runtime.
func NewRuntime() *Runtime {
	return &Runtime{}
}

// Handle returns the running pipeline, or nil before startup completed.
func (r *Runtime) Handle() *pipeline.Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handle
}

func (r *Runtime) set(h *pipeline.Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handle = h
}

// LifecycleParams defines the dependencies of RegisterLifecycle.
type LifecycleParams struct {
	fx.In
	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Cfg        *config.Config
	Launcher   *Launcher
	Runtime    *Runtime
}

// RegisterLifecycle launches the pipeline on application start and stops it on application stop.
// A one-shot pipeline shuts the application down once its run has finished.
func RegisterLifecycle(p LifecycleParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			handle, err := p.Launcher.Launch(ctx)
			if err != nil {
				logger.Errorf("Startup failed: %v", err)
				return err
			}
			p.Runtime.set(handle)
			if handle.Once() {
				go awaitCompletion(handle, p.Shutdowner)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			handle := p.Runtime.Handle()
			if handle == nil {
				return nil
			}
			if timeout := p.Cfg.FileCopy.Pipeline.StopTimeoutSeconds; timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
				defer cancel()
			}
			logger.Infof("Stopping pipeline '%s'...", handle.PipelineID())
			return handle.Stop(ctx)
		},
	})
}

// awaitCompletion requests shutdown when a one-shot run ends.
// A failed run exits with code 1.
func awaitCompletion(handle *pipeline.Handle, shutdowner fx.Shutdowner) {
	<-handle.Done()
	exitCode := 0
	if err := handle.Err(); err != nil {
		logger.Errorf("Pipeline '%s' failed: %v", handle.PipelineID(), err)
		exitCode = 1
	}
	logger.Infof("Pipeline '%s' completed. Requesting application shutdown.", handle.PipelineID())
	if err := shutdowner.Shutdown(fx.ExitCode(exitCode)); err != nil {
		logger.Errorf("Failed to shutdown application: %v", err)
	}
}

// Module provides the Launcher and runs it within the application lifecycle.
var Module = fx.Options(
	fx.Provide(NewLauncherProvider),
	fx.Provide(NewRuntime),
	fx.Invoke(RegisterLifecycle),
)
