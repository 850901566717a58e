// Package source provides the pipeline sources.
package source

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync"

	storage "github.com/tigerroll/surfin-filecopy/pkg/filecopy/adapter/storage"
	model "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/domain/model"
	repository "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/domain/repository"
	pipeline "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/pipeline"
	port "github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/port"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/configbinder"
	exception "github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/exception"
	logger "github.com/tigerroll/surfin-filecopy/pkg/filecopy/support/util/logger"
)

// DirectorySourceRef is the reference name of the directory source.
const DirectorySourceRef = "directorySource"

// errPollLimit ends a listing once MaxMessagesPerPoll files were collected.
var errPollLimit = errors.New("poll limit reached")

// DirectorySourceConfig holds the properties of the directory source.
type DirectorySourceConfig struct {
	// StorageRef names the storage connection to list.
	StorageRef string `yaml:"storage_ref"`
	// Prefix restricts listing to objects under this path.
	Prefix string `yaml:"prefix"`
	// Pattern is a glob matched against the base name of each object.
	Pattern string `yaml:"pattern"`
	// MaxMessagesPerPoll caps the files returned by one poll. Zero means unlimited.
	MaxMessagesPerPoll int `yaml:"max_messages_per_poll"`
	// PreventDuplicates accepts each file version only once.
	PreventDuplicates bool `yaml:"prevent_duplicates"`
}

// DirectorySource lists the objects of a storage connection.
type DirectorySource struct {
	pipelineID string
	config     DirectorySourceConfig
	conn       storage.StorageConnection
	history    repository.CopyHistoryRepository

	mu       sync.Mutex
	accepted map[string]struct{}
}

// NewDirectorySource creates a DirectorySource. history may be nil, in which case
// duplicates are only tracked for the lifetime of the source.
func NewDirectorySource(pipelineID string, cfg DirectorySourceConfig, conn storage.StorageConnection, history repository.CopyHistoryRepository) (*DirectorySource, error) {
	if cfg.Pattern == "" {
		cfg.Pattern = "*"
	}
	if _, err := path.Match(cfg.Pattern, ""); err != nil {
		return nil, exception.NewBatchError("source", fmt.Sprintf("Invalid pattern '%s'", cfg.Pattern), err, false, false)
	}
	if cfg.MaxMessagesPerPoll < 0 {
		return nil, exception.NewBatchError("source", "max_messages_per_poll must not be negative", nil, false, false)
	}
	return &DirectorySource{
		pipelineID: pipelineID,
		config:     cfg,
		conn:       conn,
		history:    history,
		accepted:   make(map[string]struct{}),
	}, nil
}

// Ref returns the storage connection name.
func (s *DirectorySource) Ref() string {
	return s.config.StorageRef
}

// Poll lists matching objects in lexical order, skipping files already accepted.
func (s *DirectorySource) Poll(ctx context.Context) ([]*model.FileMessage, error) {
	var messages []*model.FileMessage

	err := s.conn.ListObjects(ctx, "", s.config.Prefix, func(obj storage.ObjectInfo) error {
		if ok, _ := path.Match(s.config.Pattern, path.Base(obj.Name)); !ok {
			return nil
		}
		msg := model.NewFileMessage(s.pipelineID, "", s.config.StorageRef, obj.Name, obj.Size, obj.ModTime)
		if s.config.PreventDuplicates {
			accept, err := s.accept(ctx, msg.Fingerprint())
			if err != nil {
				return err
			}
			if !accept {
				return nil
			}
		}
		messages = append(messages, msg)
		if s.config.MaxMessagesPerPoll > 0 && len(messages) >= s.config.MaxMessagesPerPoll {
			return errPollLimit
		}
		return nil
	})
	if err != nil && !errors.Is(err, errPollLimit) {
		return nil, exception.NewBatchError("source", fmt.Sprintf("Failed to list '%s'", s.config.StorageRef), err, false, true)
	}
	logger.Debugf("DirectorySource '%s': %d new file(s).", s.config.StorageRef, len(messages))
	return messages, nil
}

// accept reports whether the file version is new and claims it until the pipeline
// acknowledges the outcome.
func (s *DirectorySource) accept(ctx context.Context, fingerprint string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seen := s.accepted[fingerprint]; seen {
		return false, nil
	}
	if s.history != nil {
		copied, err := s.history.IsCopied(ctx, s.pipelineID, fingerprint)
		if err != nil {
			return false, err
		}
		if copied {
			s.accepted[fingerprint] = struct{}{}
			return false, nil
		}
	}
	s.accepted[fingerprint] = struct{}{}
	return true, nil
}

// Ack keeps msg's file version accepted.
func (s *DirectorySource) Ack(ctx context.Context, msg *model.FileMessage) {}

// Nack releases msg's file version so the next poll offers it again.
func (s *DirectorySource) Nack(ctx context.Context, msg *model.FileMessage) {
	if !s.config.PreventDuplicates {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.accepted, msg.Fingerprint())
	logger.Debugf("DirectorySource '%s': released '%s' for the next poll.", s.config.StorageRef, msg.ObjectName)
}

// NewDirectorySourceBuilder returns the pipeline.SourceBuilder for DirectorySource.
func NewDirectorySourceBuilder() pipeline.SourceBuilder {
	return func(deps pipeline.Dependencies, properties map[string]string) (port.Source, error) {
		cfg := DirectorySourceConfig{StorageRef: "input", PreventDuplicates: true}
		if err := configbinder.BindProperties(properties, &cfg); err != nil {
			return nil, err
		}
		if limit := deps.MaxMessagesPerPoll; limit > 0 && (cfg.MaxMessagesPerPoll == 0 || cfg.MaxMessagesPerPoll > limit) {
			cfg.MaxMessagesPerPoll = limit
		}
		if deps.Storage == nil {
			return nil, fmt.Errorf("no storage resolver available for '%s'", DirectorySourceRef)
		}
		conn, err := deps.Storage.ResolveStorageConnection(context.Background(), cfg.StorageRef)
		if err != nil {
			return nil, err
		}
		return NewDirectorySource(deps.PipelineID, cfg, conn, deps.History)
	}
}

var (
	_ port.Source       = (*DirectorySource)(nil)
	_ port.Acknowledger = (*DirectorySource)(nil)
)
