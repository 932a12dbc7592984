package memory

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stenolab/steno/pkg/domain/model"
	"github.com/stenolab/steno/pkg/domain/types"
)

type meetingRepository struct {
	mu       sync.RWMutex
	meetings map[types.MeetingID]*model.Meeting
}

func newMeetingRepository() *meetingRepository {
	return &meetingRepository{
		meetings: make(map[types.MeetingID]*model.Meeting),
	}
}

func copyMeeting(m *model.Meeting) *model.Meeting {
	copied := *m
	copied.UserIDs = append([]types.UserID(nil), m.UserIDs...)
	copied.SharedWith = append([]string(nil), m.SharedWith...)
	return &copied
}

func (r *meetingRepository) Upsert(ctx context.Context, meeting *model.Meeting) (*model.Meeting, error) {
	if err := meeting.ID.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid meeting ID")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	existing, ok := r.meetings[meeting.ID]
	if !ok {
		created := copyMeeting(meeting)
		if created.StartedAt.IsZero() {
			created.StartedAt = now
		}
		created.CreatedAt = now
		created.UpdatedAt = now
		r.meetings[meeting.ID] = created
		return copyMeeting(created), nil
	}

	// Merge: union user IDs, keep everything else
	for _, uid := range meeting.UserIDs {
		if !existing.HasUser(uid) {
			existing.UserIDs = append(existing.UserIDs, uid)
		}
	}
	existing.UpdatedAt = now
	return copyMeeting(existing), nil
}

func (r *meetingRepository) Get(ctx context.Context, meetingID types.MeetingID) (*model.Meeting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	meeting, ok := r.meetings[meetingID]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "meeting not found", goerr.V("meetingID", meetingID))
	}
	return copyMeeting(meeting), nil
}

func (r *meetingRepository) Update(ctx context.Context, meetingID types.MeetingID, update *model.MeetingUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	meeting, ok := r.meetings[meetingID]
	if !ok {
		return goerr.Wrap(ErrNotFound, "meeting not found", goerr.V("meetingID", meetingID))
	}

	applyMeetingUpdate(meeting, update)
	meeting.UpdatedAt = time.Now().UTC()
	return nil
}

func applyMeetingUpdate(m *model.Meeting, u *model.MeetingUpdate) {
	if u.Transcript != nil {
		m.Transcript = *u.Transcript
	}
	if u.TranscriptURL != nil {
		m.TranscriptURL = *u.TranscriptURL
	}
	if u.Summary != nil {
		m.Summary = *u.Summary
	}
	if u.ActionItems != nil {
		m.ActionItems = *u.ActionItems
	}
	if u.Title != nil {
		m.Title = *u.Title
	}
	if u.UserIDs != nil {
		m.UserIDs = append([]types.UserID(nil), (*u.UserIDs)...)
	}
	if u.SharedWith != nil {
		m.SharedWith = append([]string(nil), (*u.SharedWith)...)
	}
	if u.PostEmailSent != nil {
		m.PostEmailSent = *u.PostEmailSent
	}
	if u.MemoryStorageFailed != nil {
		m.MemoryStorageFailed = *u.MemoryStorageFailed
	}
	if u.MemoryStorageError != nil {
		m.MemoryStorageError = *u.MemoryStorageError
	}
	if u.TranscriptStorageFailed != nil {
		m.TranscriptStorageFailed = *u.TranscriptStorageFailed
	}
	if u.TranscriptStorageError != nil {
		m.TranscriptStorageError = *u.TranscriptStorageError
	}
}

// ClaimPrimary performs the compare-and-set under the repository write
// lock: the check and the set are one critical section, mirroring the
// Firestore backend's transaction.
func (r *meetingRepository) ClaimPrimary(ctx context.Context, meetingID types.MeetingID, connID types.ConnectionID) (bool, error) {
	if err := connID.Validate(); err != nil {
		return false, goerr.Wrap(err, "invalid connection ID")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	meeting, ok := r.meetings[meetingID]
	if !ok {
		return false, goerr.Wrap(ErrNotFound, "meeting not found", goerr.V("meetingID", meetingID))
	}

	if meeting.PrimaryConnectionID != "" {
		return false, nil
	}

	meeting.PrimaryConnectionID = connID
	meeting.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *meetingRepository) ReleasePrimary(ctx context.Context, meetingID types.MeetingID, connID types.ConnectionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	meeting, ok := r.meetings[meetingID]
	if !ok {
		return goerr.Wrap(ErrNotFound, "meeting not found", goerr.V("meetingID", meetingID))
	}

	if meeting.PrimaryConnectionID == connID {
		meeting.PrimaryConnectionID = ""
		meeting.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (r *meetingRepository) Exists(ctx context.Context, meetingID types.MeetingID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.meetings[meetingID]
	return ok, nil
}
