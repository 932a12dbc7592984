package firestore

import (
	"context"
	"encoding/json"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/stenolab/steno/pkg/domain/interfaces"
	"github.com/stenolab/steno/pkg/domain/types"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = types.ErrNotFound

type Firestore struct {
	client     *firestore.Client
	meeting    *meetingRepository
	contextDoc *contextDocRepository
	memory     *memoryRecordRepository
	user       *userRepository
}

var _ interfaces.Repository = &Firestore{}

// New creates a Firestore-backed repository. An empty databaseID selects
// the default database of the project.
func New(ctx context.Context, projectID, databaseID string) (*Firestore, error) {
	var client *firestore.Client
	var err error
	if databaseID != "" {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	} else {
		client, err = firestore.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID), goerr.V("databaseID", databaseID))
	}

	return &Firestore{
		client:     client,
		meeting:    newMeetingRepository(client),
		contextDoc: newContextDocRepository(client),
		memory:     newMemoryRecordRepository(client),
		user:       newUserRepository(client),
	}, nil
}

func (f *Firestore) Meeting() interfaces.MeetingRepository {
	return f.meeting
}

func (f *Firestore) ContextDoc() interfaces.ContextDocRepository {
	return f.contextDoc
}

func (f *Firestore) Memory() interfaces.MemoryRepository {
	return f.memory
}

func (f *Firestore) User() interfaces.UserRepository {
	return f.user
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

// Firestore does not allow nested arrays, so per-chunk embedding vectors
// are stored JSON-serialized. The centroid is a single vector and uses
// the native vector type.
func encodeEmbeddings(embeddings [][]float32) ([]string, error) {
	encoded := make([]string, len(embeddings))
	for i, e := range embeddings {
		raw, err := json.Marshal(e)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to encode embedding", goerr.V("index", i))
		}
		encoded[i] = string(raw)
	}
	return encoded, nil
}

func decodeEmbeddings(encoded []string) ([][]float32, error) {
	embeddings := make([][]float32, len(encoded))
	for i, raw := range encoded {
		var e []float32
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, goerr.Wrap(err, "failed to decode embedding", goerr.V("index", i))
		}
		embeddings[i] = e
	}
	return embeddings, nil
}
