package logger

import (
	"strings"
	"time"

	"go.uber.org/fx/fxevent"
)

// FxLoggerAdapter writes fx container events to the filecopy log.
// Dependency graph events are DEBUG, application start and stop are INFO,
// and anything carrying an error is ERROR.
type FxLoggerAdapter struct{}

// NewFxLoggerAdapter returns the adapter installed with fx.WithLogger.
func NewFxLoggerAdapter() fxevent.Logger {
	return &FxLoggerAdapter{}
}

// LogEvent implements fxevent.Logger.
func (l *FxLoggerAdapter) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuting:
		Debugf("fx: starting %s (from %s)", hookName(e.FunctionName), e.CallerName)
	case *fxevent.OnStartExecuted:
		logHookResult("OnStart", e.FunctionName, e.Runtime, e.Err)
	case *fxevent.OnStopExecuting:
		Debugf("fx: stopping %s (from %s)", hookName(e.FunctionName), e.CallerName)
	case *fxevent.OnStopExecuted:
		logHookResult("OnStop", e.FunctionName, e.Runtime, e.Err)
	case *fxevent.Supplied:
		logGraphStep("supply", e.TypeName, e.Err)
	case *fxevent.Provided:
		logGraphStep("provide", strings.Join(e.OutputTypeNames, ", "), e.Err)
	case *fxevent.Decorated:
		logGraphStep("decorate", strings.Join(e.OutputTypeNames, ", "), e.Err)
	case *fxevent.Invoking:
		Debugf("fx: invoke %s", hookName(e.FunctionName))
	case *fxevent.Invoked:
		if e.Err != nil {
			Errorf("fx: invoke %s failed: %v", hookName(e.FunctionName), e.Err)
		}
	case *fxevent.Started:
		if e.Err != nil {
			Errorf("fx: application failed to start: %v", e.Err)
			return
		}
		Infof("Application started.")
	case *fxevent.Stopping:
		Infof("Received %s, stopping application.", strings.ToUpper(e.Signal.String()))
	case *fxevent.Stopped:
		if e.Err != nil {
			Errorf("fx: application stopped with error: %v", e.Err)
		}
	case *fxevent.RollingBack:
		Errorf("fx: start failed, rolling back: %v", e.StartErr)
	case *fxevent.RolledBack:
		if e.Err != nil {
			Errorf("fx: rollback failed: %v", e.Err)
		}
	case *fxevent.LoggerInitialized:
		if e.Err != nil {
			Errorf("fx: custom logger failed to initialize: %v", e.Err)
		}
	}
}

// logHookResult reports a finished lifecycle hook.
func logHookResult(kind, function string, runtime time.Duration, err error) {
	if err != nil {
		Errorf("%s hook failed: %s, error: %v", kind, hookName(function), err)
		return
	}
	Debugf("fx: %s hook %s done in %s", kind, hookName(function), runtime)
}

func logGraphStep(step, types string, err error) {
	if err != nil {
		Errorf("fx: %s failed: %v", step, err)
		return
	}
	Debugf("fx: %s %s", step, types)
}

// hookName trims fx's closure suffix, so "launcher.RegisterLifecycle.func1"
// is logged as "launcher.RegisterLifecycle".
func hookName(function string) string {
	if i := strings.LastIndex(function, ".func"); i != -1 {
		return function[:i]
	}
	return function
}
