package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/stenolab/steno/pkg/domain/model"
	"github.com/stenolab/steno/pkg/domain/types"
	"google.golang.org/api/iterator"
)

type memoryRecordDoc struct {
	ID         string             `firestore:"ID"`
	UserID     string             `firestore:"UserID"`
	MeetingID  string             `firestore:"MeetingID"`
	Content    string             `firestore:"Content"`
	Chunks     []string           `firestore:"Chunks"`
	Embeddings []string           `firestore:"Embeddings"`
	Centroid   firestore.Vector32 `firestore:"Centroid"`
	CreatedAt  time.Time          `firestore:"CreatedAt"`
}

func toMemoryRecordDoc(record *model.MemoryRecord) (*memoryRecordDoc, error) {
	embeddings, err := encodeEmbeddings(record.Embeddings)
	if err != nil {
		return nil, err
	}
	return &memoryRecordDoc{
		ID:         string(record.ID),
		UserID:     record.UserID.String(),
		MeetingID:  record.MeetingID.String(),
		Content:    record.Content,
		Chunks:     record.Chunks,
		Embeddings: embeddings,
		Centroid:   firestore.Vector32(record.Centroid),
		CreatedAt:  record.CreatedAt,
	}, nil
}

func fromMemoryRecordDoc(d *memoryRecordDoc) (*model.MemoryRecord, error) {
	embeddings, err := decodeEmbeddings(d.Embeddings)
	if err != nil {
		return nil, err
	}
	return &model.MemoryRecord{
		ID:         model.MemoryRecordID(d.ID),
		UserID:     types.UserID(d.UserID),
		MeetingID:  types.MeetingID(d.MeetingID),
		Content:    d.Content,
		Chunks:     d.Chunks,
		Embeddings: embeddings,
		Centroid:   []float32(d.Centroid),
		CreatedAt:  d.CreatedAt,
	}, nil
}

type memoryRecordRepository struct {
	client *firestore.Client
}

func newMemoryRecordRepository(client *firestore.Client) *memoryRecordRepository {
	return &memoryRecordRepository{client: client}
}

func (r *memoryRecordRepository) collection() *firestore.CollectionRef {
	return r.client.Collection("memory_records")
}

func (r *memoryRecordRepository) Create(ctx context.Context, record *model.MemoryRecord) (*model.MemoryRecord, error) {
	created := *record
	if created.ID == "" {
		created.ID = model.NewMemoryRecordID()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}

	d, err := toMemoryRecordDoc(&created)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to encode memory record", goerr.V("meetingID", record.MeetingID))
	}
	if _, err := r.collection().Doc(string(created.ID)).Set(ctx, d); err != nil {
		return nil, goerr.Wrap(err, "failed to create memory record",
			goerr.V("recordID", created.ID), goerr.V("meetingID", record.MeetingID))
	}

	return &created, nil
}

func (r *memoryRecordRepository) GetByMeeting(ctx context.Context, meetingID types.MeetingID) (*model.MemoryRecord, error) {
	iter := r.collection().Where("MeetingID", "==", meetingID.String()).Limit(1).Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query memory records", goerr.V("meetingID", meetingID))
	}

	var d memoryRecordDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal memory record", goerr.V("meetingID", meetingID))
	}
	return fromMemoryRecordDoc(&d)
}

func (r *memoryRecordRepository) ListByUser(ctx context.Context, userID types.UserID) ([]*model.MemoryRecord, error) {
	iter := r.collection().
		Where("UserID", "==", userID.String()).
		OrderBy("CreatedAt", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	var records []*model.MemoryRecord
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate memory records", goerr.V("userID", userID))
		}

		var d memoryRecordDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal memory record", goerr.V("userID", userID))
		}
		record, err := fromMemoryRecordDoc(&d)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	return records, nil
}
