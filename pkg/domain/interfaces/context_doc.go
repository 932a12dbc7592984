package interfaces

import (
	"context"

	"github.com/stenolab/steno/pkg/domain/model"
	"github.com/stenolab/steno/pkg/domain/types"
)

// ContextDocRepository persists context documents keyed by meeting and user
type ContextDocRepository interface {
	// Put stores the document, replacing any previous one for the same
	// meeting/user pair (re-upload overwrites).
	Put(ctx context.Context, doc *model.ContextDocument) error

	// Get retrieves the document for a meeting/user pair.
	// Returns types.ErrNotFound when absent.
	Get(ctx context.Context, meetingID types.MeetingID, userID types.UserID) (*model.ContextDocument, error)

	// IncrementSuggestionCount bumps the per-meeting suggestion counter
	// and returns the new value.
	IncrementSuggestionCount(ctx context.Context, meetingID types.MeetingID, userID types.UserID) (int, error)
}
