package config

import (
	"os"
	"regexp"
)

// EnvironmentExpander expands placeholders within configuration data.
type EnvironmentExpander interface {
	// Expand replaces ${VAR} placeholders in input. A bare '$' is left as is.
	Expand(input []byte) ([]byte, error)
}

// TempDirPlaceholder is replaced by the platform temporary directory.
const TempDirPlaceholder = "tmpdir"

var placeholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// OsEnvironmentExpander expands placeholders from the process environment.
// ${tmpdir} always resolves to os.TempDir(), so the default directories work on every platform.
type OsEnvironmentExpander struct{}

// NewOsEnvironmentExpander creates and returns a new instance of OsEnvironmentExpander.
func NewOsEnvironmentExpander() *OsEnvironmentExpander {
	return &OsEnvironmentExpander{}
}

// Expand never fails; unknown variables expand to an empty string.
// Patterns such as "report$1.bin" pass through unchanged.
func (e *OsEnvironmentExpander) Expand(input []byte) ([]byte, error) {
	return placeholder.ReplaceAllFunc(input, func(m []byte) []byte {
		return []byte(lookup(string(placeholder.FindSubmatch(m)[1])))
	}), nil
}

func lookup(key string) string {
	if key == TempDirPlaceholder {
		return os.TempDir()
	}
	return os.Getenv(key)
}
