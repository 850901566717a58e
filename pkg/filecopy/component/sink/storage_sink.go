// Package sink provides the pipeline sinks.
package sink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"golang.org/x/text/encoding"

	storage "github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/storage"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/component/transformer"
	model "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/domain/model"
	repository "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/domain/repository"
	port "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/port"
	exception "github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/exception"
	logger "github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/logger"
)

// StorageSinkRef is the reference name of the storage sink.
const StorageSinkRef = "storageSink"

// FileExistsMode tells the sink what to do when the target already exists.
type FileExistsMode string

const (
	// FileExistsReplace overwrites the target.
	FileExistsReplace FileExistsMode = "REPLACE"
	// FileExistsIgnore leaves the target alone and reports the message as skipped.
	FileExistsIgnore FileExistsMode = "IGNORE"
	// FileExistsFail reports the message as failed.
	FileExistsFail FileExistsMode = "FAIL"
)

// ParseFileExistsMode parses a mode name case-insensitively. Empty means REPLACE.
func ParseFileExistsMode(s string) (FileExistsMode, error) {
	switch mode := FileExistsMode(strings.ToUpper(strings.TrimSpace(s))); mode {
	case "":
		return FileExistsReplace, nil
	case FileExistsReplace, FileExistsIgnore, FileExistsFail:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown file_exists_mode '%s'", s)
	}
}

// StorageSinkConfig holds the properties of the storage sink.
type StorageSinkConfig struct {
	// StorageRef names the storage connection to write to.
	StorageRef string `yaml:"storage_ref"`
	// Prefix is prepended to every object name.
	Prefix string `yaml:"prefix"`
	// FileExistsMode is REPLACE, IGNORE or FAIL.
	FileExistsMode string `yaml:"file_exists_mode"`
	// DeleteSource removes the source object after a successful write.
	DeleteSource bool `yaml:"delete_source"`
	// Charset encodes text payloads. Defaults to UTF-8.
	Charset string `yaml:"charset"`
}

// StorageSink writes messages to a storage connection.
type StorageSink struct {
	config   StorageSinkConfig
	mode     FileExistsMode
	encoding encoding.Encoding
	conn     storage.StorageConnection
	sources  storage.StorageConnectionResolver
	history  repository.CopyHistoryRepository
}

// NewStorageSink creates a StorageSink writing to conn.
// sources resolves the connections file references are streamed from. history may be nil.
func NewStorageSink(cfg StorageSinkConfig, conn storage.StorageConnection, sources storage.StorageConnectionResolver, history repository.CopyHistoryRepository) (*StorageSink, error) {
	mode, err := ParseFileExistsMode(cfg.FileExistsMode)
	if err != nil {
		return nil, exception.NewBatchError("sink", err.Error(), nil, false, false)
	}
	if cfg.Charset == "" {
		cfg.Charset = transformer.DefaultCharset
	}
	enc, err := transformer.LookupEncoding(cfg.Charset)
	if err != nil {
		return nil, exception.NewBatchError("sink", err.Error(), err, false, false)
	}
	return &StorageSink{
		config:   cfg,
		mode:     mode,
		encoding: enc,
		conn:     conn,
		sources:  sources,
		history:  history,
	}, nil
}

// Write implements port.Sink.
func (s *StorageSink) Write(ctx context.Context, msg *model.FileMessage) (*model.CopyRecord, error) {
	target := path.Join(s.config.Prefix, msg.ObjectName)

	if s.mode != FileExistsReplace {
		_, err := s.conn.Stat(ctx, "", target)
		switch {
		case err == nil && s.mode == FileExistsIgnore:
			logger.Debugf("StorageSink: '%s' exists in '%s', ignoring.", target, s.config.StorageRef)
			return s.save(ctx, model.NewCopyRecord(msg, s.config.StorageRef, model.CopyStatusSkipped, nil)), nil
		case err == nil:
			return nil, s.failed(ctx, msg, exception.NewBatchError("sink", fmt.Sprintf("Target '%s' already exists", target), nil, true, false))
		case !errors.Is(err, storage.ErrObjectNotFound):
			return nil, s.failed(ctx, msg, exception.NewBatchError("sink", fmt.Sprintf("Failed to stat target '%s'", target), err, true, true))
		}
	}

	body, err := s.body(ctx, msg)
	if err != nil {
		return nil, s.failed(ctx, msg, err)
	}
	defer body.Close()

	if err := s.conn.Upload(ctx, "", target, body, contentType(target)); err != nil {
		return nil, s.failed(ctx, msg, exception.NewBatchError("sink", fmt.Sprintf("Failed to write '%s' to '%s'", target, s.config.StorageRef), err, true, true))
	}
	logger.Debugf("StorageSink: wrote '%s' to '%s'.", target, s.config.StorageRef)

	if s.config.DeleteSource {
		if err := s.deleteSource(ctx, msg); err != nil {
			logger.Warnf("StorageSink: copied '%s' but failed to delete the source: %v", msg.ObjectName, err)
		}
	}
	return s.save(ctx, model.NewCopyRecord(msg, s.config.StorageRef, model.CopyStatusCopied, nil)), nil
}

// body returns the payload to upload. File references are streamed from their source.
func (s *StorageSink) body(ctx context.Context, msg *model.FileMessage) (io.ReadCloser, error) {
	switch msg.Kind {
	case model.PayloadBytes:
		return io.NopCloser(bytes.NewReader(msg.Bytes)), nil
	case model.PayloadText:
		encoded, err := s.encoding.NewEncoder().String(msg.Text)
		if err != nil {
			return nil, exception.NewBatchError("sink", fmt.Sprintf("Failed to encode '%s' as %s", msg.ObjectName, s.config.Charset), err, true, false)
		}
		return io.NopCloser(strings.NewReader(encoded)), nil
	default:
		src, err := s.sources.ResolveStorageConnection(ctx, msg.SourceRef)
		if err != nil {
			return nil, exception.NewBatchError("sink", fmt.Sprintf("Failed to resolve source '%s'", msg.SourceRef), err, true, false)
		}
		r, err := src.Download(ctx, "", msg.ObjectName)
		if err != nil {
			return nil, exception.NewBatchError("sink", fmt.Sprintf("Failed to open source '%s'", msg.ObjectName), err, true, false)
		}
		return r, nil
	}
}

func (s *StorageSink) deleteSource(ctx context.Context, msg *model.FileMessage) error {
	src, err := s.sources.ResolveStorageConnection(ctx, msg.SourceRef)
	if err != nil {
		return err
	}
	return src.DeleteObject(ctx, "", msg.ObjectName)
}

// failed records the failure in the history and returns err.
func (s *StorageSink) failed(ctx context.Context, msg *model.FileMessage, err error) error {
	s.save(ctx, model.NewCopyRecord(msg, s.config.StorageRef, model.CopyStatusFailed, err))
	return err
}

func (s *StorageSink) save(ctx context.Context, record *model.CopyRecord) *model.CopyRecord {
	if s.history == nil {
		return record
	}
	if err := s.history.SaveCopyRecord(ctx, record); err != nil {
		logger.Warnf("StorageSink: failed to save copy history for '%s': %v", record.ObjectName, err)
	}
	return record
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

var _ port.Sink = (*StorageSink)(nil)
