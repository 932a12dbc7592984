package model

import (
	"time"

	"github.com/stenolab/steno/pkg/domain/types"
)

// Connection is one live client connection within a meeting session
type Connection struct {
	ID        types.ConnectionID
	MeetingID types.MeetingID
	UserID    types.UserID // may be empty for anonymous connections
	JoinedAt  time.Time
}

// Session is the in-process state of one meeting: its registered
// connections and the elected primary writer. The authoritative primary
// claim lives in the shared store; this struct caches it for the fast
// path. Sessions are created on first connect and dropped when the last
// connection closes.
type Session struct {
	MeetingID types.MeetingID
	Conns     map[types.ConnectionID]*Connection
	// PrimaryConnectionID, if set, always references an entry of Conns.
	PrimaryConnectionID types.ConnectionID
	Transcript          string
	CreatedAt           time.Time
}

// NewSession creates an empty session for the meeting
func NewSession(meetingID types.MeetingID) *Session {
	return &Session{
		MeetingID: meetingID,
		Conns:     make(map[types.ConnectionID]*Connection),
		CreatedAt: time.Now().UTC(),
	}
}

// IsPrimary reports whether the connection holds the primary-writer slot
func (s *Session) IsPrimary(connID types.ConnectionID) bool {
	return s.PrimaryConnectionID != "" && s.PrimaryConnectionID == connID
}
