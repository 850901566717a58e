// Package logger provides the levelled logging utility used across surfin-filecopy.
// It wraps the standard `log` package and filters messages based on the configured level.
package logger

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync/atomic"
)

// LogLevel is a type representing the logging level.
type LogLevel int32

const (
	// LevelDebug is the log level used for detailed debugging information.
	LevelDebug LogLevel = iota
	// LevelInfo is the log level used for general informational messages.
	LevelInfo
	// LevelWarn is the log level used for potential issues.
	LevelWarn
	// LevelError is the log level used for error messages.
	LevelError
	// LevelFatal is the log level used for messages that terminate the process.
	LevelFatal
	// LevelSilent suppresses every message except Fatalf.
	LevelSilent
)

// String returns the configuration name of the level.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	case LevelSilent:
		return "SILENT"
	default:
		return fmt.Sprintf("LogLevel(%d)", int32(l))
	}
}

// logLevel is the currently set global log level.
// It is read by the pipeline goroutine while the launcher may still be applying configuration.
var logLevel atomic.Int32

func init() {
	logLevel.Store(int32(LevelInfo))
}

// ParseLevel converts a configuration value into a LogLevel.
// TRACE is accepted as an alias of DEBUG. The second return value is false for unknown names.
func ParseLevel(level string) (LogLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "TRACE", "DEBUG":
		return LevelDebug, true
	case "INFO", "":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	case "FATAL":
		return LevelFatal, true
	case "SILENT":
		return LevelSilent, true
	default:
		return LevelInfo, false
	}
}

// SetLogLevel sets the global log level.
// Valid values are "TRACE", "DEBUG", "INFO", "WARN", "ERROR", "FATAL" and "SILENT" (case-insensitive).
// Unknown values fall back to INFO and a warning is printed.
func SetLogLevel(level string) {
	parsed, ok := ParseLevel(level)
	if !ok {
		log.Printf("[WARN] Unknown log level '%s' specified. Defaulting to INFO level.", level)
	}
	logLevel.Store(int32(parsed))
}

// GetLogLevel returns the current global log level.
func GetLogLevel() LogLevel {
	return LogLevel(logLevel.Load())
}

// SetOutput redirects log output. Tests use it to capture messages.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

func enabled(level LogLevel) bool {
	return GetLogLevel() <= level
}

// Debugf formats and outputs a DEBUG level log message.
func Debugf(format string, v ...interface{}) {
	if enabled(LevelDebug) {
		log.Printf("[DEBUG] "+format, v...)
	}
}

// Infof formats and outputs an INFO level log message.
func Infof(format string, v ...interface{}) {
	if enabled(LevelInfo) {
		log.Printf("[INFO] "+format, v...)
	}
}

// Warnf formats and outputs a WARN level log message.
func Warnf(format string, v ...interface{}) {
	if enabled(LevelWarn) {
		log.Printf("[WARN] "+format, v...)
	}
}

// Errorf formats and outputs an ERROR level log message.
func Errorf(format string, v ...interface{}) {
	if enabled(LevelError) {
		log.Printf("[ERROR] "+format, v...)
	}
}

// Fatalf formats and outputs a FATAL level log message,
// then terminates the program by calling os.Exit(1).
func Fatalf(format string, v ...interface{}) {
	log.Fatalf("[FATAL] "+format, v...)
}
