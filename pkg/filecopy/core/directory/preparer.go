// Package directory brings the well-known input and output directories into existence
// before any copy activity starts.
package directory

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	config "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/config"
	exception "github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/exception"
	logger "github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/logger"
)

// Layout lists the directories to prepare.
type Layout struct {
	Input  string
	Output string
	// Extra directories are prepared after Input and Output.
	Extra []string
	// Mode is the permission used for created directories.
	Mode fs.FileMode
}

// LayoutFromConfig builds the Layout described by filecopy.directories.
func LayoutFromConfig(cfg *config.Config) Layout {
	dirs := cfg.FileCopy.Directories
	return Layout{
		Input:  dirs.Input,
		Output: dirs.Output,
		Extra:  dirs.Extra,
		Mode:   dirs.FileMode(),
	}
}

// Prepared is proof that Prepare succeeded. It can only be obtained from Preparer.Prepare.
type Prepared struct {
	input  string
	output string
	extra  []string
}

// Input returns the absolute input directory.
func (p *Prepared) Input() string { return p.input }

// Output returns the absolute output directory.
func (p *Prepared) Output() string { return p.output }

// Extra returns the absolute extra directories.
func (p *Prepared) Extra() []string { return append([]string(nil), p.extra...) }

// Preparer creates the directories of a Layout.
type Preparer interface {
	Prepare(layout Layout) (*Prepared, error)
}

// FilesystemPreparer prepares directories on the local filesystem.
type FilesystemPreparer struct{}

// NewFilesystemPreparer creates a FilesystemPreparer.
func NewFilesystemPreparer() *FilesystemPreparer {
	return &FilesystemPreparer{}
}

// Prepare creates every absent directory of layout including parents.
// Existing directories and their contents are left untouched.
// A path held by a non-directory, or any stat/mkdir failure, is a DirectoryPreparationFailure.
func (p *FilesystemPreparer) Prepare(layout Layout) (*Prepared, error) {
	mode := layout.Mode
	if mode == 0 {
		mode = 0o755
	}
	if layout.Input == "" {
		return nil, exception.NewDirectoryPreparationFailure("", "Input directory is not configured", nil)
	}
	if layout.Output == "" {
		return nil, exception.NewDirectoryPreparationFailure("", "Output directory is not configured", nil)
	}

	input, err := ensureDir(layout.Input, mode)
	if err != nil {
		return nil, err
	}
	output, err := ensureDir(layout.Output, mode)
	if err != nil {
		return nil, err
	}
	prepared := &Prepared{input: input, output: output}
	for _, dir := range layout.Extra {
		if dir == "" {
			continue
		}
		abs, err := ensureDir(dir, mode)
		if err != nil {
			return nil, err
		}
		prepared.extra = append(prepared.extra, abs)
	}
	logger.Infof("Directories prepared: input=%s, output=%s", prepared.input, prepared.output)
	return prepared, nil
}

func ensureDir(path string, mode fs.FileMode) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", exception.NewDirectoryPreparationFailure(path, "Failed to resolve directory path", err)
	}

	info, err := os.Stat(abs)
	switch {
	case err == nil:
		if !info.IsDir() {
			return "", exception.NewDirectoryPreparationFailure(abs, "Path exists and is not a directory", nil)
		}
		logger.Debugf("Directory already exists: %s", abs)
		return abs, nil
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(abs, mode); err != nil {
			return "", exception.NewDirectoryPreparationFailure(abs, "Failed to create directory", err)
		}
		logger.Infof("Created directory: %s", abs)
		return abs, nil
	default:
		return "", exception.NewDirectoryPreparationFailure(abs, "Failed to stat directory", err)
	}
}

var _ Preparer = (*FilesystemPreparer)(nil)
