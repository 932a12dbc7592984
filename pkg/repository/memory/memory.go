package memory

import (
	"github.com/stenolab/steno/pkg/domain/interfaces"
	"github.com/stenolab/steno/pkg/domain/types"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = types.ErrNotFound

// Memory is an in-memory implementation of interfaces.Repository for
// development and tests. It mirrors the Firestore backend's semantics,
// including the atomicity of ClaimPrimary.
type Memory struct {
	meeting    *meetingRepository
	contextDoc *contextDocRepository
	memoryRepo *memoryRecordRepository
	user       *userRepository
}

var _ interfaces.Repository = &Memory{}

// New creates a new in-memory repository
func New() *Memory {
	return &Memory{
		meeting:    newMeetingRepository(),
		contextDoc: newContextDocRepository(),
		memoryRepo: newMemoryRecordRepository(),
		user:       newUserRepository(),
	}
}

func (m *Memory) Meeting() interfaces.MeetingRepository {
	return m.meeting
}

func (m *Memory) ContextDoc() interfaces.ContextDocRepository {
	return m.contextDoc
}

func (m *Memory) Memory() interfaces.MemoryRepository {
	return m.memoryRepo
}

func (m *Memory) User() interfaces.UserRepository {
	return m.user
}

func (m *Memory) Close() error {
	return nil
}
