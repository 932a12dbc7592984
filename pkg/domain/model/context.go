package model

import (
	"time"

	"github.com/stenolab/steno/pkg/domain/types"
)

// EmbeddingDimension is the fixed dimension of all embedding vectors
const EmbeddingDimension = 768

// ContextDocument holds the chunked and embedded contents of a file a
// user prepared for a meeting. Chunks[i] corresponds to Embeddings[i].
// A document is immutable once written; re-uploading replaces it.
type ContextDocument struct {
	MeetingID  types.MeetingID
	UserID     types.UserID
	FileRef    string // reference to the uploaded source file
	Chunks     []string
	Embeddings [][]float32

	// SuggestionCount tracks how many suggestions were issued for this
	// meeting, for the optional suggestion cap policy.
	SuggestionCount int

	CreatedAt time.Time
	UpdatedAt time.Time
}
