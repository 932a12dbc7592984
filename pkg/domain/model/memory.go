package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stenolab/steno/pkg/domain/types"
)

// MemoryRecordID is a UUID-based identifier for MemoryRecord
type MemoryRecordID string

// NewMemoryRecordID generates a new UUID v4 MemoryRecordID
func NewMemoryRecordID() MemoryRecordID {
	return MemoryRecordID(uuid.New().String())
}

// MemoryDivider separates notes from action items inside
// MemoryRecord.Content. The read path splits on it to reconstruct both
// parts without a second lookup.
const MemoryDivider = "\nDIVIDER\n"

// MemoryRecord is the durable memory of a finished meeting: the combined
// notes and action items, their chunked embeddings, and the centroid used
// as a semantic fingerprint of the whole meeting. Written exactly once
// per meeting by the persistence pipeline; its existence is the signal
// that the meeting has already been processed.
type MemoryRecord struct {
	ID         MemoryRecordID
	UserID     types.UserID
	MeetingID  types.MeetingID
	Content    string // notes + MemoryDivider + action items
	Chunks     []string
	Embeddings [][]float32
	Centroid   []float32
	CreatedAt  time.Time
}

// Notes returns the notes part of Content, or the whole content when the
// divider is absent.
func (m *MemoryRecord) Notes() string {
	notes, _ := splitDivider(m.Content)
	return notes
}

// ActionItems returns the action-items part of Content
func (m *MemoryRecord) ActionItems() string {
	_, actions := splitDivider(m.Content)
	return actions
}

// HasDivider reports whether Content was written by the persistence
// pipeline. Presence of the divider alone marks a complete record; the
// action-items part may legitimately be empty.
func (m *MemoryRecord) HasDivider() bool {
	return strings.Contains(m.Content, MemoryDivider)
}

func splitDivider(content string) (notes, actions string) {
	notes, actions, _ = strings.Cut(content, MemoryDivider)
	return notes, actions
}
