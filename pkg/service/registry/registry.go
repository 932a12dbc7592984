package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stenolab/steno/pkg/domain/interfaces"
	"github.com/stenolab/steno/pkg/domain/model"
	"github.com/stenolab/steno/pkg/domain/types"
	"github.com/stenolab/steno/pkg/utils/logging"
)

// Registry owns the lifecycle of live meeting sessions and their
// connections. The primary-writer claim is resolved through the shared
// store so that concurrent connects across processes elect exactly one
// primary; the in-process session caches the outcome for the per-message
// fast path.
type Registry struct {
	repo interfaces.MeetingRepository

	mu       sync.RWMutex
	sessions map[types.MeetingID]*model.Session
}

func New(repo interfaces.MeetingRepository) *Registry {
	return &Registry{
		repo:     repo,
		sessions: make(map[types.MeetingID]*model.Session),
	}
}

// Connect registers a connection under the meeting, creating the session
// if absent. A connection carrying a real user ID races for the primary
// slot; losing the race is not an error. Store unavailability is also not
// an error: the connection stays registered and simply remains
// non-primary.
func (r *Registry) Connect(ctx context.Context, meetingID types.MeetingID, userID types.UserID) (*model.Connection, error) {
	if err := meetingID.Validate(); err != nil {
		return nil, goerr.Wrap(err, "cannot connect to meeting")
	}

	conn := &model.Connection{
		ID:        types.NewConnectionID(),
		MeetingID: meetingID,
		UserID:    userID,
		JoinedAt:  time.Now().UTC(),
	}

	r.mu.Lock()
	session, ok := r.sessions[meetingID]
	if !ok {
		session = model.NewSession(meetingID)
		r.sessions[meetingID] = session
	}
	session.Conns[conn.ID] = conn
	r.mu.Unlock()

	// mirror the meeting into the durable store so HTTP callers can see
	// it exists; claim failures leave the connection non-primary
	meeting := &model.Meeting{ID: meetingID}
	if userID.IsValid() {
		meeting.UserIDs = []types.UserID{userID}
	}
	if _, err := r.repo.Upsert(ctx, meeting); err != nil {
		logging.From(ctx).Warn("failed to mirror meeting into store",
			slog.Any("meetingID", meetingID), slog.Any("error", err))
		return conn, nil
	}

	if userID.IsValid() {
		claimed, err := r.repo.ClaimPrimary(ctx, meetingID, conn.ID)
		if err != nil {
			logging.From(ctx).Warn("primary claim failed, connection stays non-primary",
				slog.Any("meetingID", meetingID), slog.Any("error", err))
			return conn, nil
		}
		if claimed {
			r.adoptPrimary(ctx, conn)
		}
	}

	return conn, nil
}

// adoptPrimary records a won store claim on the in-process session. The
// connection might have disconnected while the claim was in flight; in
// that case the store slot is released again, otherwise it would point
// at a dead connection and block every later claim.
func (r *Registry) adoptPrimary(ctx context.Context, conn *model.Connection) {
	r.mu.Lock()
	session, ok := r.sessions[conn.MeetingID]
	adopted := ok && session.Conns[conn.ID] != nil
	if adopted {
		session.PrimaryConnectionID = conn.ID
	}
	r.mu.Unlock()

	if !adopted {
		if err := r.repo.ReleasePrimary(ctx, conn.MeetingID, conn.ID); err != nil {
			logging.From(ctx).Warn("failed to release orphaned primary claim",
				slog.Any("meetingID", conn.MeetingID), slog.Any("error", err))
		}
	}
}

// Disconnect removes the connection. When the primary disconnects the
// slot is cleared but nobody is promoted; a later connect must claim it
// again. Empty sessions are dropped.
func (r *Registry) Disconnect(ctx context.Context, conn *model.Connection) {
	wasPrimary := false

	r.mu.Lock()
	if session, ok := r.sessions[conn.MeetingID]; ok {
		delete(session.Conns, conn.ID)
		if session.IsPrimary(conn.ID) {
			session.PrimaryConnectionID = ""
			wasPrimary = true
		}
		if len(session.Conns) == 0 {
			delete(r.sessions, conn.MeetingID)
		}
	}
	r.mu.Unlock()

	if wasPrimary {
		if err := r.repo.ReleasePrimary(ctx, conn.MeetingID, conn.ID); err != nil {
			logging.From(ctx).Warn("failed to release primary slot",
				slog.Any("meetingID", conn.MeetingID), slog.Any("error", err))
		}
	}
}

// AppendTranscript appends a transcript delta. Only the current primary
// writer may append, and empty deltas are dropped; everything else is a
// silent no-op, never an error. Appends from one connection are applied
// in call order.
func (r *Registry) AppendTranscript(ctx context.Context, meetingID types.MeetingID, connID types.ConnectionID, delta string) {
	if delta == "" {
		return
	}

	r.mu.Lock()
	session, ok := r.sessions[meetingID]
	if !ok || !session.IsPrimary(connID) {
		r.mu.Unlock()
		return
	}
	session.Transcript += delta
	transcript := session.Transcript
	r.mu.Unlock()

	if err := r.repo.Update(ctx, meetingID, &model.MeetingUpdate{Transcript: &transcript}); err != nil {
		logging.From(ctx).Warn("failed to persist transcript",
			slog.Any("meetingID", meetingID), slog.Any("error", err))
	}
}

// GetTranscript returns the accumulated transcript, or empty when the
// meeting has no live session
func (r *Registry) GetTranscript(meetingID types.MeetingID) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if session, ok := r.sessions[meetingID]; ok {
		return session.Transcript
	}
	return ""
}

// Session returns the live session for a meeting, if any. The returned
// pointer is shared; callers must not mutate it.
func (r *Registry) Session(meetingID types.MeetingID) (*model.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[meetingID]
	return session, ok
}

// ConnectionCount reports how many connections a meeting currently has
func (r *Registry) ConnectionCount(meetingID types.MeetingID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if session, ok := r.sessions[meetingID]; ok {
		return len(session.Conns)
	}
	return 0
}
