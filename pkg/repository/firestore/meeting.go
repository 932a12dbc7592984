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

// meetingDoc is the Firestore document representation of model.Meeting
type meetingDoc struct {
	ID                      string    `firestore:"ID"`
	UserIDs                 []string  `firestore:"UserIDs"`
	StartedAt               time.Time `firestore:"StartedAt"`
	Transcript              string    `firestore:"Transcript"`
	PrimaryConnectionID     string    `firestore:"PrimaryConnectionID"`
	TranscriptURL           string    `firestore:"TranscriptURL"`
	Summary                 string    `firestore:"Summary"`
	ActionItems             string    `firestore:"ActionItems"`
	Title                   string    `firestore:"Title"`
	SharedWith              []string  `firestore:"SharedWith"`
	PostEmailSent           bool      `firestore:"PostEmailSent"`
	MemoryStorageFailed     bool      `firestore:"MemoryStorageFailed"`
	MemoryStorageError      string    `firestore:"MemoryStorageError"`
	TranscriptStorageFailed bool      `firestore:"TranscriptStorageFailed"`
	TranscriptStorageError  string    `firestore:"TranscriptStorageError"`
	CreatedAt               time.Time `firestore:"CreatedAt"`
	UpdatedAt               time.Time `firestore:"UpdatedAt"`
}

func toMeetingDoc(m *model.Meeting) *meetingDoc {
	userIDs := make([]string, len(m.UserIDs))
	for i, id := range m.UserIDs {
		userIDs[i] = id.String()
	}
	return &meetingDoc{
		ID:                      m.ID.String(),
		UserIDs:                 userIDs,
		StartedAt:               m.StartedAt,
		Transcript:              m.Transcript,
		PrimaryConnectionID:     m.PrimaryConnectionID.String(),
		TranscriptURL:           m.TranscriptURL,
		Summary:                 m.Summary,
		ActionItems:             m.ActionItems,
		Title:                   m.Title,
		SharedWith:              m.SharedWith,
		PostEmailSent:           m.PostEmailSent,
		MemoryStorageFailed:     m.MemoryStorageFailed,
		MemoryStorageError:      m.MemoryStorageError,
		TranscriptStorageFailed: m.TranscriptStorageFailed,
		TranscriptStorageError:  m.TranscriptStorageError,
		CreatedAt:               m.CreatedAt,
		UpdatedAt:               m.UpdatedAt,
	}
}

func fromMeetingDoc(d *meetingDoc) *model.Meeting {
	userIDs := make([]types.UserID, len(d.UserIDs))
	for i, id := range d.UserIDs {
		userIDs[i] = types.UserID(id)
	}
	return &model.Meeting{
		ID:                      types.MeetingID(d.ID),
		UserIDs:                 userIDs,
		StartedAt:               d.StartedAt,
		Transcript:              d.Transcript,
		PrimaryConnectionID:     types.ConnectionID(d.PrimaryConnectionID),
		TranscriptURL:           d.TranscriptURL,
		Summary:                 d.Summary,
		ActionItems:             d.ActionItems,
		Title:                   d.Title,
		SharedWith:              d.SharedWith,
		PostEmailSent:           d.PostEmailSent,
		MemoryStorageFailed:     d.MemoryStorageFailed,
		MemoryStorageError:      d.MemoryStorageError,
		TranscriptStorageFailed: d.TranscriptStorageFailed,
		TranscriptStorageError:  d.TranscriptStorageError,
		CreatedAt:               d.CreatedAt,
		UpdatedAt:               d.UpdatedAt,
	}
}

type meetingRepository struct {
	client *firestore.Client
}

func newMeetingRepository(client *firestore.Client) *meetingRepository {
	return &meetingRepository{client: client}
}

func (r *meetingRepository) doc(meetingID types.MeetingID) *firestore.DocumentRef {
	return r.client.Collection("meetings").Doc(meetingID.String())
}

// Upsert creates the meeting inside a transaction so that concurrent
// first-connects for the same meeting cannot both create it.
func (r *meetingRepository) Upsert(ctx context.Context, meeting *model.Meeting) (*model.Meeting, error) {
	if err := meeting.ID.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid meeting ID")
	}

	docRef := r.doc(meeting.ID)
	var result *model.Meeting

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		now := time.Now().UTC()
		snap, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) != codes.NotFound {
				return goerr.Wrap(err, "failed to get meeting")
			}
			created := *meeting
			if created.StartedAt.IsZero() {
				created.StartedAt = now
			}
			created.CreatedAt = now
			created.UpdatedAt = now
			result = &created
			return tx.Set(docRef, toMeetingDoc(&created))
		}

		var d meetingDoc
		if err := snap.DataTo(&d); err != nil {
			return goerr.Wrap(err, "failed to unmarshal meeting")
		}
		existing := fromMeetingDoc(&d)
		for _, uid := range meeting.UserIDs {
			if !existing.HasUser(uid) {
				existing.UserIDs = append(existing.UserIDs, uid)
			}
		}
		existing.UpdatedAt = now
		result = existing
		return tx.Set(docRef, toMeetingDoc(existing))
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to upsert meeting", goerr.V("meetingID", meeting.ID))
	}

	return result, nil
}

func (r *meetingRepository) Get(ctx context.Context, meetingID types.MeetingID) (*model.Meeting, error) {
	snap, err := r.doc(meetingID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "meeting not found", goerr.V("meetingID", meetingID))
		}
		return nil, goerr.Wrap(err, "failed to get meeting", goerr.V("meetingID", meetingID))
	}

	var d meetingDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal meeting", goerr.V("meetingID", meetingID))
	}
	return fromMeetingDoc(&d), nil
}

func (r *meetingRepository) Update(ctx context.Context, meetingID types.MeetingID, update *model.MeetingUpdate) error {
	updates := buildFieldUpdates(update)
	if len(updates) == 0 {
		return nil
	}
	updates = append(updates, firestore.Update{Path: "UpdatedAt", Value: time.Now().UTC()})

	if _, err := r.doc(meetingID).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "meeting not found", goerr.V("meetingID", meetingID))
		}
		return goerr.Wrap(err, "failed to update meeting", goerr.V("meetingID", meetingID))
	}
	return nil
}

func buildFieldUpdates(u *model.MeetingUpdate) []firestore.Update {
	var updates []firestore.Update
	if u.Transcript != nil {
		updates = append(updates, firestore.Update{Path: "Transcript", Value: *u.Transcript})
	}
	if u.TranscriptURL != nil {
		updates = append(updates, firestore.Update{Path: "TranscriptURL", Value: *u.TranscriptURL})
	}
	if u.Summary != nil {
		updates = append(updates, firestore.Update{Path: "Summary", Value: *u.Summary})
	}
	if u.ActionItems != nil {
		updates = append(updates, firestore.Update{Path: "ActionItems", Value: *u.ActionItems})
	}
	if u.Title != nil {
		updates = append(updates, firestore.Update{Path: "Title", Value: *u.Title})
	}
	if u.UserIDs != nil {
		ids := make([]string, len(*u.UserIDs))
		for i, id := range *u.UserIDs {
			ids[i] = id.String()
		}
		updates = append(updates, firestore.Update{Path: "UserIDs", Value: ids})
	}
	if u.SharedWith != nil {
		updates = append(updates, firestore.Update{Path: "SharedWith", Value: *u.SharedWith})
	}
	if u.PostEmailSent != nil {
		updates = append(updates, firestore.Update{Path: "PostEmailSent", Value: *u.PostEmailSent})
	}
	if u.MemoryStorageFailed != nil {
		updates = append(updates, firestore.Update{Path: "MemoryStorageFailed", Value: *u.MemoryStorageFailed})
	}
	if u.MemoryStorageError != nil {
		updates = append(updates, firestore.Update{Path: "MemoryStorageError", Value: *u.MemoryStorageError})
	}
	if u.TranscriptStorageFailed != nil {
		updates = append(updates, firestore.Update{Path: "TranscriptStorageFailed", Value: *u.TranscriptStorageFailed})
	}
	if u.TranscriptStorageError != nil {
		updates = append(updates, firestore.Update{Path: "TranscriptStorageError", Value: *u.TranscriptStorageError})
	}
	return updates
}

// ClaimPrimary is a single compare-and-set: the read of the current
// primary slot and the conditional write happen in one Firestore
// transaction. A separate exists-then-set sequence would be racy under
// concurrent first-connects.
func (r *meetingRepository) ClaimPrimary(ctx context.Context, meetingID types.MeetingID, connID types.ConnectionID) (bool, error) {
	if err := connID.Validate(); err != nil {
		return false, goerr.Wrap(err, "invalid connection ID")
	}

	docRef := r.doc(meetingID)
	claimed := false

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(ErrNotFound, "meeting not found", goerr.V("meetingID", meetingID))
			}
			return goerr.Wrap(err, "failed to get meeting")
		}

		var d meetingDoc
		if err := snap.DataTo(&d); err != nil {
			return goerr.Wrap(err, "failed to unmarshal meeting")
		}
		if d.PrimaryConnectionID != "" {
			return nil // lost the race, not an error
		}

		claimed = true
		return tx.Update(docRef, []firestore.Update{
			{Path: "PrimaryConnectionID", Value: connID.String()},
			{Path: "UpdatedAt", Value: time.Now().UTC()},
		})
	})
	if err != nil {
		return false, goerr.Wrap(err, "failed to claim primary", goerr.V("meetingID", meetingID))
	}

	return claimed, nil
}

func (r *meetingRepository) ReleasePrimary(ctx context.Context, meetingID types.MeetingID, connID types.ConnectionID) error {
	docRef := r.doc(meetingID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(ErrNotFound, "meeting not found", goerr.V("meetingID", meetingID))
			}
			return goerr.Wrap(err, "failed to get meeting")
		}

		var d meetingDoc
		if err := snap.DataTo(&d); err != nil {
			return goerr.Wrap(err, "failed to unmarshal meeting")
		}
		if d.PrimaryConnectionID != connID.String() {
			return nil // someone else holds the slot, leave it alone
		}

		return tx.Update(docRef, []firestore.Update{
			{Path: "PrimaryConnectionID", Value: ""},
			{Path: "UpdatedAt", Value: time.Now().UTC()},
		})
	})
	if err != nil {
		return goerr.Wrap(err, "failed to release primary", goerr.V("meetingID", meetingID))
	}
	return nil
}

func (r *meetingRepository) Exists(ctx context.Context, meetingID types.MeetingID) (bool, error) {
	_, err := r.doc(meetingID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return false, nil
		}
		return false, goerr.Wrap(err, "failed to check meeting existence", goerr.V("meetingID", meetingID))
	}
	return true, nil
}
