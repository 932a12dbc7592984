package usecase

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stenolab/steno/pkg/domain/types"
)

// GenerateActions produces notes and action items for a transcript,
// memoized through the result cache. It is the synchronous variant of
// the end-of-meeting summary with no persistence side effects.
func (uc *UseCases) GenerateActions(ctx context.Context, transcript string) (*MeetingSummary, error) {
	out, err := uc.summary.Generate(ctx, transcript)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate actions")
	}
	return &MeetingSummary{
		Notes:       out.Notes,
		ActionItems: out.ActionItems,
	}, nil
}

// LateSummary generates notes over a meeting's accumulated transcript.
// A sentinel meeting ID, a missing meeting or an empty transcript all
// yield an empty summary rather than an error.
func (uc *UseCases) LateSummary(ctx context.Context, meetingID types.MeetingID) (string, error) {
	if meetingID.Validate() != nil {
		return "", nil
	}

	meeting, err := uc.repo.Meeting().Get(ctx, meetingID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return "", nil
		}
		return "", goerr.Wrap(err, "failed to load meeting", goerr.V("meetingID", meetingID))
	}
	if meeting.Transcript == "" {
		return "", nil
	}

	notes, err := uc.summary.GenerateNotes(ctx, meeting.Transcript)
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate late summary", goerr.V("meetingID", meetingID))
	}
	return notes, nil
}

// CheckMeeting reports whether a meeting exists in the durable store
func (uc *UseCases) CheckMeeting(ctx context.Context, meetingID types.MeetingID) (bool, error) {
	if meetingID.Validate() != nil {
		return false, nil
	}
	return uc.repo.Meeting().Exists(ctx, meetingID)
}
