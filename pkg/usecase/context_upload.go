package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stenolab/steno/pkg/domain/model"
	"github.com/stenolab/steno/pkg/domain/types"
)

// UploadContext chunks and embeds already-extracted document text and
// stores it as the meeting's context document for suggestion retrieval.
// Re-uploading replaces the previous document.
func (uc *UseCases) UploadContext(ctx context.Context, meetingID types.MeetingID, userID types.UserID, fileRef, text string) (int, error) {
	if err := meetingID.Validate(); err != nil {
		return 0, goerr.Wrap(err, "cannot upload context")
	}
	if !userID.IsValid() {
		return 0, goerr.New("a valid user ID is required", goerr.V("userID", userID))
	}
	if text == "" {
		return 0, goerr.New("document text is empty", goerr.V("fileRef", fileRef))
	}

	chunks := uc.retrieval.Chunk(text)
	embeddings, err := uc.retrieval.EmbedAll(ctx, chunks)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to embed document chunks",
			goerr.V("meetingID", meetingID), goerr.V("chunks", len(chunks)))
	}

	doc := &model.ContextDocument{
		MeetingID:  meetingID,
		UserID:     userID,
		FileRef:    fileRef,
		Chunks:     chunks,
		Embeddings: embeddings,
	}
	if err := uc.repo.ContextDoc().Put(ctx, doc); err != nil {
		return 0, goerr.Wrap(err, "failed to store context document",
			goerr.V("meetingID", meetingID), goerr.V("userID", userID))
	}

	return len(chunks), nil
}
