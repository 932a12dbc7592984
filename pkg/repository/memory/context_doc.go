package memory

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stenolab/steno/pkg/domain/model"
	"github.com/stenolab/steno/pkg/domain/types"
)

// contextDocKey is a composite key for context documents
type contextDocKey struct {
	meetingID types.MeetingID
	userID    types.UserID
}

type contextDocRepository struct {
	mu   sync.RWMutex
	docs map[contextDocKey]*model.ContextDocument
}

func newContextDocRepository() *contextDocRepository {
	return &contextDocRepository{
		docs: make(map[contextDocKey]*model.ContextDocument),
	}
}

func copyContextDoc(d *model.ContextDocument) *model.ContextDocument {
	copied := *d
	copied.Chunks = append([]string(nil), d.Chunks...)
	if d.Embeddings != nil {
		copied.Embeddings = make([][]float32, len(d.Embeddings))
		for i, e := range d.Embeddings {
			copied.Embeddings[i] = append([]float32(nil), e...)
		}
	}
	return &copied
}

func (r *contextDocRepository) Put(ctx context.Context, doc *model.ContextDocument) error {
	if err := doc.MeetingID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid meeting ID")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	stored := copyContextDoc(doc)
	key := contextDocKey{meetingID: doc.MeetingID, userID: doc.UserID}
	if existing, ok := r.docs[key]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	r.docs[key] = stored
	return nil
}

func (r *contextDocRepository) Get(ctx context.Context, meetingID types.MeetingID, userID types.UserID) (*model.ContextDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[contextDocKey{meetingID: meetingID, userID: userID}]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "context document not found",
			goerr.V("meetingID", meetingID), goerr.V("userID", userID))
	}
	return copyContextDoc(doc), nil
}

func (r *contextDocRepository) IncrementSuggestionCount(ctx context.Context, meetingID types.MeetingID, userID types.UserID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[contextDocKey{meetingID: meetingID, userID: userID}]
	if !ok {
		return 0, goerr.Wrap(ErrNotFound, "context document not found",
			goerr.V("meetingID", meetingID), goerr.V("userID", userID))
	}
	doc.SuggestionCount++
	doc.UpdatedAt = time.Now().UTC()
	return doc.SuggestionCount, nil
}
