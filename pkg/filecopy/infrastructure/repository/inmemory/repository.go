// Package inmemory provides an in-memory copy history, used when no history database is configured.
// History is lost on restart, so a restarted poller copies every input file once more.
package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/domain/model"
	"github.com/tigerroll/surfin-filecopy/pkg/filecopy/core/domain/repository"
)

// InMemoryCopyHistoryRepository keeps copy records in maps keyed by pipeline.
type InMemoryCopyHistoryRepository struct {
	records map[string][]*model.CopyRecord
	copied  map[string]map[string]struct{} // pipeline -> fingerprints with status COPIED
	mu      sync.RWMutex
}

var _ repository.CopyHistoryRepository = (*InMemoryCopyHistoryRepository)(nil)

// NewInMemoryCopyHistoryRepository creates an empty repository.
func NewInMemoryCopyHistoryRepository() *InMemoryCopyHistoryRepository {
	return &InMemoryCopyHistoryRepository{
		records: make(map[string][]*model.CopyRecord),
		copied:  make(map[string]map[string]struct{}),
	}
}

func (r *InMemoryCopyHistoryRepository) IsCopied(ctx context.Context, pipelineID, fingerprint string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.copied[pipelineID][fingerprint]
	return ok, nil
}

func (r *InMemoryCopyHistoryRepository) SaveCopyRecord(ctx context.Context, record *model.CopyRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *record
	r.records[record.PipelineID] = append(r.records[record.PipelineID], &stored)
	if record.Status == model.CopyStatusCopied {
		if r.copied[record.PipelineID] == nil {
			r.copied[record.PipelineID] = make(map[string]struct{})
		}
		r.copied[record.PipelineID][record.Fingerprint] = struct{}{}
	}
	return nil
}

// FindByPipeline returns copies of the stored records ordered by CopiedAt.
func (r *InMemoryCopyHistoryRepository) FindByPipeline(ctx context.Context, pipelineID string) ([]*model.CopyRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.CopyRecord, 0, len(r.records[pipelineID]))
	for _, rec := range r.records[pipelineID] {
		c := *rec
		result = append(result, &c)
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].CopiedAt.Before(result[j].CopiedAt) })
	return result, nil
}

// Close releases resources used by the repository. It holds none.
func (r *InMemoryCopyHistoryRepository) Close() error {
	return nil
}
