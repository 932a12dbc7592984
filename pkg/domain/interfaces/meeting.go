package interfaces

import (
	"context"

	"github.com/stenolab/steno/pkg/domain/model"
	"github.com/stenolab/steno/pkg/domain/types"
)

// MeetingRepository persists meeting records
type MeetingRepository interface {
	// Upsert creates the meeting if absent, otherwise merges the non-zero
	// identity fields (UserIDs union). Returns the stored record.
	Upsert(ctx context.Context, meeting *model.Meeting) (*model.Meeting, error)

	// Get retrieves a meeting by ID. Returns types.ErrNotFound when absent.
	Get(ctx context.Context, meetingID types.MeetingID) (*model.Meeting, error)

	// Update applies a partial update to an existing meeting
	Update(ctx context.Context, meetingID types.MeetingID, update *model.MeetingUpdate) error

	// ClaimPrimary atomically sets the primary connection if and only if
	// no primary is currently set. It is a single compare-and-set against
	// the store: concurrent claims for the same meeting resolve to exactly
	// one winner. Returns whether this call won the claim.
	ClaimPrimary(ctx context.Context, meetingID types.MeetingID, connID types.ConnectionID) (bool, error)

	// ReleasePrimary clears the primary slot if it is held by connID.
	// No re-election is performed.
	ReleasePrimary(ctx context.Context, meetingID types.MeetingID, connID types.ConnectionID) error

	// Exists reports whether a meeting record exists
	Exists(ctx context.Context, meetingID types.MeetingID) (bool, error)
}
