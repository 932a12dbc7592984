package usecase

import (
	"context"
	"slices"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stenolab/steno/pkg/domain/model"
	"github.com/stenolab/steno/pkg/domain/types"
	"github.com/stenolab/steno/pkg/service/mail"
)

// Share emails the meeting's stored notes to the recipients and records
// them on the meeting. Recipients already on the shared list are not
// re-added; re-sharing with them just sends the mail again.
func (uc *UseCases) Share(ctx context.Context, meetingID types.MeetingID, sharerEmail string, recipients []string) ([]string, error) {
	if err := meetingID.Validate(); err != nil {
		return nil, goerr.Wrap(err, "cannot share meeting")
	}
	if uc.notifier == nil {
		return nil, goerr.New("sharing requires a configured notifier")
	}

	meeting, err := uc.repo.Meeting().Get(ctx, meetingID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load meeting", goerr.V("meetingID", meetingID))
	}

	subject := mail.ShareSubject(sharerEmail)
	body := mail.ShareBody(sharerEmail, meeting.Summary, meeting.ActionItems)

	var delivered []string
	sharedWith := slices.Clone(meeting.SharedWith)
	for _, recipient := range recipients {
		if recipient == "" {
			continue
		}
		if err := uc.notifier.Send(ctx, recipient, subject, body); err != nil {
			return delivered, goerr.Wrap(err, "failed to send share email",
				goerr.V("meetingID", meetingID), goerr.V("recipient", recipient))
		}
		delivered = append(delivered, recipient)
		if !slices.Contains(sharedWith, recipient) {
			sharedWith = append(sharedWith, recipient)
		}
	}

	update := &model.MeetingUpdate{SharedWith: &sharedWith}
	if err := uc.repo.Meeting().Update(ctx, meetingID, update); err != nil {
		return delivered, goerr.Wrap(err, "failed to record shared recipients",
			goerr.V("meetingID", meetingID))
	}

	return delivered, nil
}
