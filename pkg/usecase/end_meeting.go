package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stenolab/steno/pkg/domain/model"
	"github.com/stenolab/steno/pkg/domain/types"
	"github.com/stenolab/steno/pkg/utils/logging"
)

// MeetingSummary is the immediate response of EndMeeting. The durable
// artifacts are written by detached pipelines after this returns.
type MeetingSummary struct {
	Notes       string `json:"notes_content"`
	ActionItems string `json:"action_items"`
}

// EndMeeting generates the post-meeting summary and, when the caller is
// an identified user with memory enabled, spawns the persistence
// pipelines. The response never waits on those pipelines and never
// reflects their outcome.
func (uc *UseCases) EndMeeting(ctx context.Context, transcript string, userID types.UserID, meetingID types.MeetingID) (*MeetingSummary, error) {
	// anonymous callers and calls without a meeting get the summary
	// without any persistence
	if !userID.IsValid() || meetingID.Validate() != nil {
		return uc.basicSummary(ctx, transcript)
	}

	if !uc.memoryEnabled(ctx, userID) {
		return uc.basicSummary(ctx, transcript)
	}

	meeting, err := uc.repo.Meeting().Upsert(ctx, &model.Meeting{
		ID:      meetingID,
		UserIDs: []types.UserID{userID},
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to upsert meeting", goerr.V("meetingID", meetingID))
	}

	if meeting.TranscriptURL == "" {
		uc.tracker.Dispatch(ctx, "transcript-storage", func(ctx context.Context) error {
			uc.storeTranscript(ctx, meetingID, transcript)
			return nil
		})
	}

	// a meeting already covered by a memory record returns the stored
	// artifacts instead of recomputing
	record, err := uc.repo.Memory().GetByMeeting(ctx, meetingID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to look up memory record", goerr.V("meetingID", meetingID))
	}
	if record != nil && record.HasDivider() {
		return &MeetingSummary{
			Notes:       record.Notes(),
			ActionItems: record.ActionItems(),
		}, nil
	}

	out, err := uc.summary.Generate(ctx, transcript)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate meeting summary", goerr.V("meetingID", meetingID))
	}

	uc.tracker.Dispatch(ctx, "memory-storage", func(ctx context.Context) error {
		uc.storeMemory(ctx, meetingID, userID, out)
		return nil
	})

	return &MeetingSummary{
		Notes:       out.Notes,
		ActionItems: out.ActionItems,
	}, nil
}

func (uc *UseCases) basicSummary(ctx context.Context, transcript string) (*MeetingSummary, error) {
	out, err := uc.summary.Generate(ctx, transcript)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate meeting summary")
	}
	return &MeetingSummary{
		Notes:       out.Notes,
		ActionItems: out.ActionItems,
	}, nil
}

// memoryEnabled resolves the user's opt-in flag. Lookup failures count
// as disabled.
func (uc *UseCases) memoryEnabled(ctx context.Context, userID types.UserID) bool {
	user, err := uc.repo.User().Get(ctx, userID)
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			logging.From(ctx).Warn("failed to check memory setting",
				slog.Any("userID", userID), slog.Any("error", err))
		}
		return false
	}
	return user.MemoryEnabled
}
