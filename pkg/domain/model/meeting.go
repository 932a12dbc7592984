package model

import (
	"time"

	"github.com/stenolab/steno/pkg/domain/types"
)

// Meeting is the durable record of a meeting. It mirrors the live session
// (transcript, primary writer) into the shared store and accumulates the
// artifacts the persistence pipelines produce after the meeting ends.
type Meeting struct {
	ID        types.MeetingID
	UserIDs   []types.UserID
	StartedAt time.Time

	// Live session mirror
	Transcript          string
	PrimaryConnectionID types.ConnectionID

	// Durable artifacts
	TranscriptURL string // blob reference written by the transcript pipeline
	Summary       string
	ActionItems   string
	Title         string
	SharedWith    []string

	// Notification state
	PostEmailSent bool

	// Pipeline failure flags: set when a background pipeline exhausts its
	// retries. Never surfaced to the triggering request.
	MemoryStorageFailed     bool
	MemoryStorageError      string
	TranscriptStorageFailed bool
	TranscriptStorageError  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasUser reports whether the user already appears in UserIDs
func (m *Meeting) HasUser(userID types.UserID) bool {
	for _, id := range m.UserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// MeetingUpdate is a partial update applied to a meeting record. Nil
// fields are left untouched.
type MeetingUpdate struct {
	Transcript              *string
	TranscriptURL           *string
	Summary                 *string
	ActionItems             *string
	Title                   *string
	UserIDs                 *[]types.UserID
	SharedWith              *[]string
	PostEmailSent           *bool
	MemoryStorageFailed     *bool
	MemoryStorageError      *string
	TranscriptStorageFailed *bool
	TranscriptStorageError  *string
}
