package model

import (
	"encoding/json"

	"github.com/stenolab/steno/pkg/domain/types"
)

// Envelope is the wire format of every message on a live connection:
// a type tag plus a type-dependent payload. Envelopes that fail to parse
// or miss either field are ignored.
type Envelope struct {
	Type types.MessageType `json:"type"`
	Data json.RawMessage   `json:"data"`
}

// CheckSuggestionRequest is the payload of a "check_suggestion" envelope.
// MeetingID and UserID are filled in from the connection scope, not the
// payload.
type CheckSuggestionRequest struct {
	Transcript     string          `json:"transcript"`
	IsFileUploaded bool            `json:"isFileUploaded"`
	MeetingID      types.MeetingID `json:"-"`
	UserID         types.UserID    `json:"-"`
}

// SuggestionResult is the response to a suggestion check. Suggestion and
// LastQuestion are pointers so that absent values serialize as JSON null,
// which the clients expect.
type SuggestionResult struct {
	Type         types.SuggestionResultType `json:"type"`
	FilesFound   bool                       `json:"files_found"`
	Suggestion   *string                    `json:"generated_suggestion"`
	LastQuestion *string                    `json:"last_question"`
}

// NewSuggestionResult builds a result without suggestion content
func NewSuggestionResult(t types.SuggestionResultType, filesFound bool) *SuggestionResult {
	return &SuggestionResult{Type: t, FilesFound: filesFound}
}
