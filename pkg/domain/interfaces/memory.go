package interfaces

import (
	"context"

	"github.com/stenolab/steno/pkg/domain/model"
	"github.com/stenolab/steno/pkg/domain/types"
)

// MemoryRepository persists meeting memory records
type MemoryRepository interface {
	// Create inserts a new memory record
	Create(ctx context.Context, record *model.MemoryRecord) (*model.MemoryRecord, error)

	// GetByMeeting retrieves the memory record for a meeting, or nil when
	// no record covers it yet. Absence is a normal outcome here (the
	// pipeline trigger checks it), so it is not an error.
	GetByMeeting(ctx context.Context, meetingID types.MeetingID) (*model.MemoryRecord, error)

	// ListByUser retrieves all memory records of a user, newest first
	ListByUser(ctx context.Context, userID types.UserID) ([]*model.MemoryRecord, error)
}

// UserRepository reads per-user settings
type UserRepository interface {
	// Get retrieves a user by ID. Returns types.ErrNotFound when absent.
	Get(ctx context.Context, userID types.UserID) (*model.User, error)
}
