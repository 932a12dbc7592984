package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stenolab/steno/pkg/domain/model"
	"github.com/stenolab/steno/pkg/domain/types"
)

type memoryRecordRepository struct {
	mu      sync.RWMutex
	records map[model.MemoryRecordID]*model.MemoryRecord
}

func newMemoryRecordRepository() *memoryRecordRepository {
	return &memoryRecordRepository{
		records: make(map[model.MemoryRecordID]*model.MemoryRecord),
	}
}

func copyMemoryRecord(m *model.MemoryRecord) *model.MemoryRecord {
	copied := *m
	copied.Chunks = append([]string(nil), m.Chunks...)
	copied.Centroid = append([]float32(nil), m.Centroid...)
	if m.Embeddings != nil {
		copied.Embeddings = make([][]float32, len(m.Embeddings))
		for i, e := range m.Embeddings {
			copied.Embeddings[i] = append([]float32(nil), e...)
		}
	}
	return &copied
}

func (r *memoryRecordRepository) Create(ctx context.Context, record *model.MemoryRecord) (*model.MemoryRecord, error) {
	if err := record.MeetingID.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid meeting ID")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	created := copyMemoryRecord(record)
	if created.ID == "" {
		created.ID = model.NewMemoryRecordID()
	}
	created.CreatedAt = time.Now().UTC()

	r.records[created.ID] = created
	return copyMemoryRecord(created), nil
}

func (r *memoryRecordRepository) GetByMeeting(ctx context.Context, meetingID types.MeetingID) (*model.MemoryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.records {
		if rec.MeetingID == meetingID {
			return copyMemoryRecord(rec), nil
		}
	}
	return nil, nil
}

func (r *memoryRecordRepository) ListByUser(ctx context.Context, userID types.UserID) ([]*model.MemoryRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.MemoryRecord, 0)
	for _, rec := range r.records {
		if rec.UserID == userID {
			result = append(result, copyMemoryRecord(rec))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}
