package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PipelineStatus represents the state of a running pipeline.
type PipelineStatus string

const (
	PipelineStatusStarting  PipelineStatus = "STARTING"
	PipelineStatusRunning   PipelineStatus = "RUNNING"
	PipelineStatusStopping  PipelineStatus = "STOPPING"
	PipelineStatusCompleted PipelineStatus = "COMPLETED"
	PipelineStatusFailed    PipelineStatus = "FAILED"
	PipelineStatusStopped   PipelineStatus = "STOPPED"
)

// String returns the string representation of the PipelineStatus.
func (s PipelineStatus) String() string {
	return string(s)
}

// IsFinished checks if the PipelineStatus represents a finished state.
func (s PipelineStatus) IsFinished() bool {
	switch s {
	case PipelineStatusCompleted, PipelineStatusFailed, PipelineStatusStopped:
		return true
	default:
		return false
	}
}

// PayloadKind tells how a FileMessage carries its content.
type PayloadKind string

const (
	// PayloadFile is a reference to the source object, streamed on write.
	PayloadFile PayloadKind = "file"
	// PayloadBytes holds the raw content in memory.
	PayloadBytes PayloadKind = "bytes"
	// PayloadText holds content decoded to a UTF-8 string.
	PayloadText PayloadKind = "text"
)

// FileMessage is one file travelling from a source through transformers to a sink.
type FileMessage struct {
	ID         string
	PipelineID string
	RunID      string
	// SourceRef is the storage connection the file was read from.
	SourceRef string
	// ObjectName is the path of the file relative to the source root, using '/' separators.
	ObjectName string
	Size       int64
	ModTime    time.Time
	Kind       PayloadKind
	Bytes      []byte
	Text       string
	// Charset is the character set Text was decoded from.
	Charset   string
	Headers   map[string]string
	CreatedAt time.Time
}

// NewFileMessage creates a file reference message with a fresh ID.
func NewFileMessage(pipelineID, runID, sourceRef, objectName string, size int64, modTime time.Time) *FileMessage {
	return &FileMessage{
		ID:         uuid.New().String(),
		PipelineID: pipelineID,
		RunID:      runID,
		SourceRef:  sourceRef,
		ObjectName: objectName,
		Size:       size,
		ModTime:    modTime,
		Kind:       PayloadFile,
		Headers:    make(map[string]string),
		CreatedAt:  time.Now(),
	}
}

// Fingerprint identifies the file version the message was created from.
func (m *FileMessage) Fingerprint() string {
	return Fingerprint(m.SourceRef, m.ObjectName, m.Size, m.ModTime)
}

// PayloadSize returns the size of the in-memory payload, or the source size for file references.
func (m *FileMessage) PayloadSize() int64 {
	switch m.Kind {
	case PayloadBytes:
		return int64(len(m.Bytes))
	case PayloadText:
		return int64(len(m.Text))
	default:
		return m.Size
	}
}

// Fingerprint hashes the identity of one version of a source object.
// A file rewritten in place gets a new fingerprint and is copied again.
func Fingerprint(sourceRef, objectName string, size int64, modTime time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d|%d", sourceRef, objectName, size, modTime.UnixNano())))
	return hex.EncodeToString(sum[:])
}

// CopyStatus is the outcome of copying one file.
type CopyStatus string

const (
	CopyStatusCopied  CopyStatus = "COPIED"
	CopyStatusSkipped CopyStatus = "SKIPPED"
	CopyStatusFailed  CopyStatus = "FAILED"
)

// CopyRecord is the persisted history entry for one copied file.
type CopyRecord struct {
	ID          string     `gorm:"primaryKey;column:id;size:36"`
	PipelineID  string     `gorm:"column:pipeline_id;size:255;index:idx_filecopy_history_lookup,priority:1"`
	RunID       string     `gorm:"column:run_id;size:36"`
	SourceRef   string     `gorm:"column:source_ref;size:255"`
	ObjectName  string     `gorm:"column:object_name;size:1024"`
	TargetRef   string     `gorm:"column:target_ref;size:255"`
	Fingerprint string     `gorm:"column:fingerprint;size:64;index:idx_filecopy_history_lookup,priority:2"`
	Size        int64      `gorm:"column:size"`
	Mode        string     `gorm:"column:mode;size:16"`
	Status      CopyStatus `gorm:"column:status;size:16"`
	Error       string     `gorm:"column:error;type:text"`
	CopiedAt    time.Time  `gorm:"column:copied_at"`
}

// TableName returns the history table name.
func (CopyRecord) TableName() string {
	return "filecopy_history"
}

// NewCopyRecord builds a history record for msg written to targetRef.
func NewCopyRecord(msg *FileMessage, targetRef string, status CopyStatus, copyErr error) *CopyRecord {
	rec := &CopyRecord{
		ID:          uuid.New().String(),
		PipelineID:  msg.PipelineID,
		RunID:       msg.RunID,
		SourceRef:   msg.SourceRef,
		ObjectName:  msg.ObjectName,
		TargetRef:   targetRef,
		Fingerprint: msg.Fingerprint(),
		Size:        msg.PayloadSize(),
		Mode:        string(msg.Kind),
		Status:      status,
		CopiedAt:    time.Now(),
	}
	if copyErr != nil {
		rec.Error = copyErr.Error()
	}
	return rec
}

// PipelineStats summarises a pipeline run.
type PipelineStats struct {
	RunID       string
	PipelineID  string
	Status      PipelineStatus
	Polls       int64
	Copied      int64
	Skipped     int64
	Failed      int64
	BytesCopied int64
	StartTime   time.Time
	EndTime     time.Time
	LastError   string
}
