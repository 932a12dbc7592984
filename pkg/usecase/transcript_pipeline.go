package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stenolab/steno/pkg/domain/model"
	"github.com/stenolab/steno/pkg/domain/types"
	"github.com/stenolab/steno/pkg/utils/errutil"
)

// storeTranscript uploads the raw transcript as a blob and records its
// reference on the meeting. A failed record update after a successful
// upload deletes the orphaned blob before the next attempt. Exhaustion
// marks the meeting, mirroring the memory pipeline.
func (uc *UseCases) storeTranscript(ctx context.Context, meetingID types.MeetingID, transcript string) {
	err := runWithRetry(ctx, "transcript-storage", uc.pipelineAttempts, uc.pipelineBackoff, func(ctx context.Context) error {
		return uc.storeTranscriptOnce(ctx, meetingID, transcript)
	})
	if err != nil {
		uc.markPipelineFailure(ctx, meetingID, err, func(u *model.MeetingUpdate, msg string) {
			failed := true
			u.TranscriptStorageFailed = &failed
			u.TranscriptStorageError = &msg
		})
	}
}

func (uc *UseCases) storeTranscriptOnce(ctx context.Context, meetingID types.MeetingID, transcript string) error {
	ref, err := uc.blobs.Put(ctx, meetingID.String()+".txt", []byte(transcript))
	if err != nil {
		return goerr.Wrap(err, "failed to upload transcript blob", goerr.V("meetingID", meetingID))
	}

	update := &model.MeetingUpdate{TranscriptURL: &ref}
	if err := uc.repo.Meeting().Update(ctx, meetingID, update); err != nil {
		// compensate for the orphaned upload before the retry
		if delErr := uc.blobs.Delete(ctx, ref); delErr != nil {
			errutil.Handle(ctx, delErr, "failed to delete orphaned transcript blob")
		}
		return goerr.Wrap(err, "failed to record transcript reference",
			goerr.V("meetingID", meetingID), goerr.V("ref", ref))
	}

	return nil
}
