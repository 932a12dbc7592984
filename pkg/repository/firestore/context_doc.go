package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/stenolab/steno/pkg/domain/model"
	"github.com/stenolab/steno/pkg/domain/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type contextDocDoc struct {
	MeetingID       string    `firestore:"MeetingID"`
	UserID          string    `firestore:"UserID"`
	FileRef         string    `firestore:"FileRef"`
	Chunks          []string  `firestore:"Chunks"`
	Embeddings      []string  `firestore:"Embeddings"`
	SuggestionCount int       `firestore:"SuggestionCount"`
	CreatedAt       time.Time `firestore:"CreatedAt"`
	UpdatedAt       time.Time `firestore:"UpdatedAt"`
}

func toContextDocDoc(doc *model.ContextDocument) (*contextDocDoc, error) {
	embeddings, err := encodeEmbeddings(doc.Embeddings)
	if err != nil {
		return nil, err
	}
	return &contextDocDoc{
		MeetingID:       doc.MeetingID.String(),
		UserID:          doc.UserID.String(),
		FileRef:         doc.FileRef,
		Chunks:          doc.Chunks,
		Embeddings:      embeddings,
		SuggestionCount: doc.SuggestionCount,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}, nil
}

func fromContextDocDoc(d *contextDocDoc) (*model.ContextDocument, error) {
	embeddings, err := decodeEmbeddings(d.Embeddings)
	if err != nil {
		return nil, err
	}
	return &model.ContextDocument{
		MeetingID:       types.MeetingID(d.MeetingID),
		UserID:          types.UserID(d.UserID),
		FileRef:         d.FileRef,
		Chunks:          d.Chunks,
		Embeddings:      embeddings,
		SuggestionCount: d.SuggestionCount,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}, nil
}

type contextDocRepository struct {
	client *firestore.Client
}

func newContextDocRepository(client *firestore.Client) *contextDocRepository {
	return &contextDocRepository{client: client}
}

func (r *contextDocRepository) doc(meetingID types.MeetingID, userID types.UserID) *firestore.DocumentRef {
	return r.client.Collection("context_docs").Doc(meetingID.String() + ":" + userID.String())
}

func (r *contextDocRepository) Put(ctx context.Context, doc *model.ContextDocument) error {
	if err := doc.MeetingID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid meeting ID")
	}

	docRef := r.doc(doc.MeetingID, doc.UserID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		now := time.Now().UTC()
		stored := *doc
		stored.CreatedAt = now
		stored.UpdatedAt = now

		snap, err := tx.Get(docRef)
		if err == nil {
			// re-upload replaces chunks and embeddings but keeps the
			// original creation time and suggestion counter
			var prev contextDocDoc
			if err := snap.DataTo(&prev); err != nil {
				return goerr.Wrap(err, "failed to unmarshal context document")
			}
			stored.CreatedAt = prev.CreatedAt
			stored.SuggestionCount = prev.SuggestionCount
		} else if status.Code(err) != codes.NotFound {
			return goerr.Wrap(err, "failed to get context document")
		}

		d, err := toContextDocDoc(&stored)
		if err != nil {
			return err
		}
		return tx.Set(docRef, d)
	})
	if err != nil {
		return goerr.Wrap(err, "failed to put context document",
			goerr.V("meetingID", doc.MeetingID), goerr.V("userID", doc.UserID))
	}
	return nil
}

func (r *contextDocRepository) Get(ctx context.Context, meetingID types.MeetingID, userID types.UserID) (*model.ContextDocument, error) {
	snap, err := r.doc(meetingID, userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "context document not found",
				goerr.V("meetingID", meetingID), goerr.V("userID", userID))
		}
		return nil, goerr.Wrap(err, "failed to get context document",
			goerr.V("meetingID", meetingID), goerr.V("userID", userID))
	}

	var d contextDocDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal context document",
			goerr.V("meetingID", meetingID), goerr.V("userID", userID))
	}
	return fromContextDocDoc(&d)
}

func (r *contextDocRepository) IncrementSuggestionCount(ctx context.Context, meetingID types.MeetingID, userID types.UserID) (int, error) {
	docRef := r.doc(meetingID, userID)
	count := 0

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(ErrNotFound, "context document not found",
					goerr.V("meetingID", meetingID), goerr.V("userID", userID))
			}
			return goerr.Wrap(err, "failed to get context document")
		}

		var d contextDocDoc
		if err := snap.DataTo(&d); err != nil {
			return goerr.Wrap(err, "failed to unmarshal context document")
		}

		count = d.SuggestionCount + 1
		return tx.Update(docRef, []firestore.Update{
			{Path: "SuggestionCount", Value: count},
			{Path: "UpdatedAt", Value: time.Now().UTC()},
		})
	})
	if err != nil {
		return 0, goerr.Wrap(err, "failed to increment suggestion count",
			goerr.V("meetingID", meetingID), goerr.V("userID", userID))
	}

	return count, nil
}
