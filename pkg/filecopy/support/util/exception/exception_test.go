package exception_test

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/exception"
)

// CustomError is used for reflection based type matching.
type CustomError struct {
	Msg string
}

func (e *CustomError) Error() string {
	return fmt.Sprintf("CustomError: %s", e.Msg)
}

func TestNewBatchError(t *testing.T) {
	originalErr := errors.New("connection refused")
	be := exception.NewBatchError("sink", "failed to upload", originalErr, false, true)

	assert.Equal(t, "sink", be.Module)
	assert.Equal(t, "failed to upload", be.Message)
	assert.Equal(t, originalErr, be.Unwrap())
	assert.True(t, be.IsRetryable())
	assert.False(t, be.IsSkippable())
	assert.Contains(t, be.Error(), "[sink] failed to upload: connection refused")
	assert.NotEmpty(t, be.StackTrace)
}

func TestNewBatchErrorf(t *testing.T) {
	be1 := exception.NewBatchErrorf("source", "object %d not found", 10)
	assert.False(t, be1.IsRetryable())
	assert.False(t, be1.IsSkippable())
	assert.Nil(t, be1.Unwrap())
	assert.Contains(t, be1.Error(), "[source] object 10 not found")

	// A single trailing bool is isRetryable.
	be2 := exception.NewBatchErrorf("gcs", "timeout occurred", true)
	assert.True(t, be2.IsRetryable())
	assert.False(t, be2.IsSkippable())

	be3 := exception.NewBatchErrorf("transformer", "bad payload in message %d", 5, true, false)
	assert.False(t, be3.IsRetryable())
	assert.True(t, be3.IsSkippable())
	assert.Equal(t, "bad payload in message 5", be3.Message)

	originalErr := errors.New("data format error")
	be4 := exception.NewBatchErrorf("sink", "format error", true, true, originalErr)
	assert.True(t, be4.IsRetryable())
	assert.True(t, be4.IsSkippable())
	assert.Equal(t, originalErr, be4.Unwrap())
}

func TestDirectoryPreparationFailure(t *testing.T) {
	cause := &fs.PathError{Op: "mkdir", Path: "/nope/input", Err: fs.ErrPermission}
	err := exception.NewDirectoryPreparationFailure("/nope/input", "failed to create directory", cause)

	assert.True(t, exception.IsDirectoryPreparationFailure(err))
	assert.False(t, exception.IsConfigurationResolutionFailure(err))
	assert.ErrorIs(t, err, fs.ErrPermission)
	assert.True(t, exception.IsFatal(err))
	assert.Equal(t, "directory", err.Module)
	assert.Contains(t, err.Error(), "/nope/input")

	wrapped := fmt.Errorf("startup: %w", err)
	assert.True(t, exception.IsDirectoryPreparationFailure(wrapped))
	assert.True(t, exception.IsBatchError(wrapped))
}

func TestConfigurationResolutionFailure(t *testing.T) {
	err := exception.NewConfigurationResolutionFailure("missing.yaml", "pipeline definition not found", nil)

	assert.True(t, exception.IsConfigurationResolutionFailure(err))
	assert.False(t, exception.IsDirectoryPreparationFailure(err))
	assert.ErrorIs(t, err, exception.ErrConfigurationResolution)
	assert.True(t, exception.IsFatal(err))
	assert.Equal(t, "pipeline definition not found (resource: missing.yaml)", exception.ExtractErrorMessage(err))
}

func TestIsErrorOfType(t *testing.T) {
	assert.True(t, exception.IsErrorOfType(fmt.Errorf("wrap: %w", context.Canceled), "context.Canceled"))
	assert.True(t, exception.IsErrorOfType(fmt.Errorf("wrap: %w", fs.ErrNotExist), "fs.ErrNotExist"))
	assert.True(t, exception.IsErrorOfType(&CustomError{Msg: "x"}, "exception_test.CustomError"))
	assert.True(t, exception.IsErrorOfType(errors.New("dial tcp: connection refused"), "connection refused"))
	assert.False(t, exception.IsErrorOfType(errors.New("other"), "fs.ErrExist"))
	assert.False(t, exception.IsErrorOfType(nil, "io.EOF"))
}

func TestRegisterErrorType(t *testing.T) {
	sentinel := errors.New("quota exceeded")
	exception.RegisterErrorType("test.QuotaExceeded", sentinel)

	assert.True(t, exception.IsErrorTypeRegistered("test.QuotaExceeded"))
	assert.True(t, exception.IsErrorOfType(fmt.Errorf("upload: %w", sentinel), "test.QuotaExceeded"))

	assert.Panics(t, func() { exception.RegisterErrorType("", sentinel) })
	assert.Panics(t, func() { exception.RegisterErrorType("nil", nil) })
}

func TestIsTemporary(t *testing.T) {
	assert.True(t, exception.IsTemporary(exception.NewBatchError("gcs", "x", nil, false, true)))
	assert.False(t, exception.IsTemporary(exception.NewBatchError("gcs", "x", nil, true, false)))
	assert.True(t, exception.IsTemporary(errors.New("i/o timeout")))
	assert.False(t, exception.IsTemporary(nil))
}
