package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stenolab/steno/pkg/domain/model"
	"github.com/stenolab/steno/pkg/domain/types"
	"github.com/stenolab/steno/pkg/service/mail"
	"github.com/stenolab/steno/pkg/service/retrieval"
	"github.com/stenolab/steno/pkg/service/summary"
	"github.com/stenolab/steno/pkg/utils/errutil"
	"github.com/stenolab/steno/pkg/utils/logging"
	"golang.org/x/sync/errgroup"
)

// storeMemory runs the memory persistence pipeline: assemble, embed,
// aggregate, durable write, then best-effort notify. The whole sequence
// up to the durable write retries with exponential backoff; exhaustion
// marks the meeting record instead of surfacing anywhere.
func (uc *UseCases) storeMemory(ctx context.Context, meetingID types.MeetingID, userID types.UserID, out *summary.Output) {
	err := runWithRetry(ctx, "memory-storage", uc.pipelineAttempts, uc.pipelineBackoff, func(ctx context.Context) error {
		return uc.storeMemoryOnce(ctx, meetingID, userID, out)
	})
	if err != nil {
		uc.markPipelineFailure(ctx, meetingID, err, func(u *model.MeetingUpdate, msg string) {
			failed := true
			u.MemoryStorageFailed = &failed
			u.MemoryStorageError = &msg
		})
		return
	}

	uc.notifySummary(ctx, meetingID, userID, out)
}

func (uc *UseCases) storeMemoryOnce(ctx context.Context, meetingID types.MeetingID, userID types.UserID, out *summary.Output) error {
	// assemble
	content := out.Notes + out.ActionItems
	chunks := uc.retrieval.Chunk(content)
	if len(chunks) == 0 {
		return goerr.New("nothing to store: empty summary content", goerr.V("meetingID", meetingID))
	}

	// embed
	embeddings, err := uc.retrieval.EmbedAll(ctx, chunks)
	if err != nil {
		return goerr.Wrap(err, "failed to embed summary chunks")
	}

	// aggregate
	centroid, err := retrieval.Centroid(embeddings)
	if err != nil {
		return goerr.Wrap(err, "failed to compute centroid")
	}

	// durable write: the record insert and the meeting update must both
	// succeed for the stage to pass
	record := &model.MemoryRecord{
		UserID:     userID,
		MeetingID:  meetingID,
		Content:    out.Notes + model.MemoryDivider + out.ActionItems,
		Chunks:     chunks,
		Embeddings: embeddings,
		Centroid:   centroid,
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		// a previous attempt may have inserted the record before the
		// meeting update failed; retries must not duplicate it
		existing, err := uc.repo.Memory().GetByMeeting(egCtx, meetingID)
		if err != nil {
			return goerr.Wrap(err, "failed to check for existing memory record")
		}
		if existing != nil {
			return nil
		}
		if _, err := uc.repo.Memory().Create(egCtx, record); err != nil {
			return goerr.Wrap(err, "failed to create memory record")
		}
		return nil
	})
	eg.Go(func() error {
		update := &model.MeetingUpdate{
			Summary:     &out.Notes,
			ActionItems: &out.ActionItems,
			Title:       &out.Title,
		}
		if err := uc.repo.Meeting().Update(egCtx, meetingID, update); err != nil {
			return goerr.Wrap(err, "failed to update meeting artifacts")
		}
		return nil
	})
	return eg.Wait()
}

// notifySummary sends the post-meeting email once per meeting. Every
// failure here is swallowed; notification never fails the pipeline.
func (uc *UseCases) notifySummary(ctx context.Context, meetingID types.MeetingID, userID types.UserID, out *summary.Output) {
	if uc.notifier == nil {
		return
	}

	user, err := uc.repo.User().Get(ctx, userID)
	if err != nil {
		errutil.Handle(ctx, err, "failed to load user for summary email")
		return
	}
	if !user.EmailsEnabled || user.Email == "" {
		return
	}

	meeting, err := uc.repo.Meeting().Get(ctx, meetingID)
	if err != nil {
		errutil.Handle(ctx, err, "failed to load meeting for summary email")
		return
	}
	if meeting.PostEmailSent {
		return
	}

	subject := mail.SummarySubject(time.Now())
	body := mail.SummaryBody(out.Notes, out.ActionItems)
	if err := uc.notifier.Send(ctx, user.Email, subject, body); err != nil {
		errutil.Handle(ctx, err, "failed to send summary email")
		return
	}

	sent := true
	if err := uc.repo.Meeting().Update(ctx, meetingID, &model.MeetingUpdate{PostEmailSent: &sent}); err != nil {
		errutil.Handle(ctx, err, "failed to mark summary email as sent")
	}
}

// markPipelineFailure records a pipeline's terminal failure on the
// meeting so it stays inspectable; the triggering request is long gone.
func (uc *UseCases) markPipelineFailure(ctx context.Context, meetingID types.MeetingID, cause error, apply func(*model.MeetingUpdate, string)) {
	logging.From(ctx).Error("background pipeline exhausted retries",
		slog.Any("meetingID", meetingID), slog.Any("error", cause))

	update := &model.MeetingUpdate{}
	apply(update, cause.Error())
	if err := uc.repo.Meeting().Update(ctx, meetingID, update); err != nil {
		errutil.Handle(ctx, err, "failed to record pipeline failure")
	}
}
