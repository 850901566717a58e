// Package exception provides the error types shared by surfin-filecopy.
// Errors are categorised so that the launcher can tell fatal startup failures
// apart from per-file copy failures the pipeline is allowed to skip.
package exception

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"reflect"
	"runtime"
	"strings"
	"sync"
)

// errorRegistry maps error names referenced in configuration to concrete Go error instances.
var errorRegistry = make(map[string]error)

// registryMutex protects access to errorRegistry.
var registryMutex sync.RWMutex

// RegisterErrorType registers an error prototype under a name.
// Registered names can be referenced from pipeline definitions and checked with IsErrorOfType.
//
// If prototype is nil or name is empty, this function panics.
func RegisterErrorType(name string, prototype error) {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if name == "" {
		panic("Error type name cannot be empty")
	}
	if prototype == nil {
		panic(fmt.Sprintf("Cannot register nil prototype for name: %s", name))
	}

	errorRegistry[name] = prototype
}

// IsErrorTypeRegistered checks if the specified error type name is registered in the registry.
func IsErrorTypeRegistered(name string) bool {
	registryMutex.RLock()
	defer registryMutex.RUnlock()
	_, ok := errorRegistry[name]
	return ok
}

// BatchError is the error type used by every surfin-filecopy component.
// It holds the module where the error occurred, a message, the wrapped original error,
// and flags indicating whether it is retryable or skippable.
type BatchError struct {
	// Module indicates where the error occurred (e.g., "directory", "pipeline", "source", "sink").
	Module string
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped original error.
	OriginalErr error
	// isRetryable indicates whether this error is retryable.
	isRetryable bool
	// isSkippable indicates whether this error is skippable.
	isSkippable bool
	// StackTrace is the stack trace at the time of the error (for debugging).
	StackTrace string
}

// NewBatchError creates a new BatchError instance.
func NewBatchError(module, message string, originalErr error, isSkippable, isRetryable bool) *BatchError {
	return &BatchError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		isRetryable: isRetryable,
		isSkippable: isSkippable,
		StackTrace:  captureStack(),
	}
}

// NewBatchErrorf creates a new BatchError instance using a format string.
// Optional flags and an error are taken from the end of 'a'
// in the order [isSkippable bool], [isRetryable bool], [originalErr error];
// the remaining arguments are used for fmt.Sprintf.
//
// Examples:
// NewBatchErrorf("source", "Failed to list: %s", "input", true, false, io.EOF)
// -> message: "Failed to list: input", isSkippable: true, isRetryable: false, originalErr: io.EOF
func NewBatchErrorf(module, format string, a ...interface{}) *BatchError {
	var originalErr error
	isRetryable := false
	isSkippable := false
	args := a

	if len(args) > 0 {
		if err, ok := args[len(args)-1].(error); ok {
			originalErr = err
			args = args[:len(args)-1]
		}
	}
	if len(args) > 0 {
		if b, ok := args[len(args)-1].(bool); ok {
			isRetryable = b
			args = args[:len(args)-1]
		}
	}
	if len(args) > 0 {
		if b, ok := args[len(args)-1].(bool); ok {
			isSkippable = b
			args = args[:len(args)-1]
		}
	}

	return &BatchError{
		Module:      module,
		Message:     fmt.Sprintf(format, args...),
		OriginalErr: originalErr,
		isRetryable: isRetryable,
		isSkippable: isSkippable,
		StackTrace:  captureStack(),
	}
}

func captureStack() string {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the original error for errors.Is / errors.As.
func (e *BatchError) Unwrap() error {
	return e.OriginalErr
}

// IsRetryable returns whether this error is retryable.
func (e *BatchError) IsRetryable() bool {
	return e.isRetryable
}

// IsSkippable returns whether this error is skippable.
func (e *BatchError) IsSkippable() bool {
	return e.isSkippable
}

// IsBatchError reports whether err is, or wraps, a BatchError.
func IsBatchError(err error) bool {
	var be *BatchError
	return errors.As(err, &be)
}

// IsTemporary determines if an error is temporary (e.g., network error).
// If it's a BatchError, its IsRetryable flag takes precedence.
func IsTemporary(err error) bool {
	if err == nil {
		return false
	}
	var be *BatchError
	if errors.As(err, &be) {
		return be.IsRetryable()
	}
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "connection refused") ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

// IsFatal determines if an error is fatal (cannot be retried or skipped).
// If it's a BatchError, its flags take precedence.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var be *BatchError
	if errors.As(err, &be) {
		return !be.IsRetryable() && !be.IsSkippable()
	}
	return errors.Is(err, fs.ErrPermission) ||
		strings.Contains(err.Error(), "invalid argument")
}

// IsErrorOfType checks if an error matches a registered name, a substring of its message,
// or a Go type name anywhere in its chain.
func IsErrorOfType(err error, errorTypeName string) bool {
	if err == nil {
		return false
	}

	registryMutex.RLock()
	targetError, ok := errorRegistry[errorTypeName]
	registryMutex.RUnlock()
	if ok && errors.Is(err, targetError) {
		return true
	}

	currentErr := err
	for currentErr != nil {
		if strings.Contains(currentErr.Error(), errorTypeName) {
			return true
		}
		errType := reflect.TypeOf(currentErr)
		if errType != nil {
			if errType.String() == errorTypeName || (errType.Kind() == reflect.Ptr && errType.Elem().String() == errorTypeName) {
				return true
			}
		}
		currentErr = errors.Unwrap(currentErr)
	}

	return false
}

// Names of the two fatal startup failures.
const (
	DirectoryPreparationFailure    = "DirectoryPreparationFailure"
	ConfigurationResolutionFailure = "ConfigurationResolutionFailure"
)

var (
	// ErrDirectoryPreparation marks failures to bring the input/output directories into existence.
	ErrDirectoryPreparation = errors.New(DirectoryPreparationFailure)
	// ErrConfigurationResolution marks failures to find, parse or build the named pipeline definition.
	ErrConfigurationResolution = errors.New(ConfigurationResolutionFailure)
)

// NewDirectoryPreparationFailure creates the fatal error returned by directory preparation.
// The result is neither retryable nor skippable.
func NewDirectoryPreparationFailure(path, message string, originalErr error) *BatchError {
	return NewBatchError("directory", fmt.Sprintf("%s (path: %s)", message, path), wrapSentinel(ErrDirectoryPreparation, originalErr), false, false)
}

// NewConfigurationResolutionFailure creates the fatal error returned by pipeline bootstrap.
// The result is neither retryable nor skippable.
func NewConfigurationResolutionFailure(resource, message string, originalErr error) *BatchError {
	return NewBatchError("pipeline", fmt.Sprintf("%s (resource: %s)", message, resource), wrapSentinel(ErrConfigurationResolution, originalErr), false, false)
}

func wrapSentinel(sentinel, originalErr error) error {
	if originalErr == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, originalErr)
}

// IsDirectoryPreparationFailure reports whether err is a directory preparation failure.
func IsDirectoryPreparationFailure(err error) bool {
	return err != nil && errors.Is(err, ErrDirectoryPreparation)
}

// IsConfigurationResolutionFailure reports whether err is a configuration resolution failure.
func IsConfigurationResolutionFailure(err error) bool {
	return err != nil && errors.Is(err, ErrConfigurationResolution)
}

func init() {
	RegisterErrorType(DirectoryPreparationFailure, ErrDirectoryPreparation)
	RegisterErrorType(ConfigurationResolutionFailure, ErrConfigurationResolution)

	RegisterErrorType("io.EOF", io.EOF)
	RegisterErrorType("io.ErrUnexpectedEOF", io.ErrUnexpectedEOF)
	RegisterErrorType("fs.ErrNotExist", fs.ErrNotExist)
	RegisterErrorType("fs.ErrExist", fs.ErrExist)
	RegisterErrorType("fs.ErrPermission", fs.ErrPermission)
	RegisterErrorType("context.DeadlineExceeded", context.DeadlineExceeded)
	RegisterErrorType("context.Canceled", context.Canceled)
	RegisterErrorType("sql.ErrNoRows", sql.ErrNoRows)
}

// ExtractErrorMessage extracts the error message string from an error.
// For BatchError, it returns the cleaner Message field.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var be *BatchError
	if errors.As(err, &be) {
		return be.Message
	}
	return err.Error()
}
