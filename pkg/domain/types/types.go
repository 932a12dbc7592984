package types

import (
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// MeetingID identifies a meeting across all connections. It is the
// client-supplied identifier of the call, not a database key.
type MeetingID string

// Validate checks if the MeetingID is usable as a record key
func (m MeetingID) Validate() error {
	if m == "" {
		return goerr.New("meeting ID cannot be empty")
	}
	if m == "undefined" || m == "null" {
		return goerr.New("meeting ID is a client sentinel value", goerr.V("id", m))
	}
	return nil
}

// String returns the string representation of MeetingID
func (m MeetingID) String() string {
	return string(m)
}

// UserID identifies an authenticated user. Browser clients sometimes send
// the literal strings "undefined" or "null" for anonymous sessions; those
// are treated as absent, not as errors.
type UserID string

// IsValid reports whether the UserID names a real user
func (u UserID) IsValid() bool {
	return u != "" && u != "undefined" && u != "null"
}

// String returns the string representation of UserID
func (u UserID) String() string {
	return string(u)
}

// ConnectionID identifies a single live connection within a meeting
type ConnectionID string

// NewConnectionID generates a new UUID v4 ConnectionID
func NewConnectionID() ConnectionID {
	return ConnectionID(uuid.New().String())
}

// Validate checks if the ConnectionID is set
func (c ConnectionID) Validate() error {
	if c == "" {
		return goerr.New("connection ID cannot be empty")
	}
	return nil
}

// String returns the string representation of ConnectionID
func (c ConnectionID) String() string {
	return string(c)
}

// MessageType is the tag of a connection message envelope
type MessageType string

const (
	MsgTranscriptUpdate MessageType = "transcript_update"
	MsgCheckSuggestion  MessageType = "check_suggestion"
)

// SuggestionResultType tags the outcome of a suggestion check
type SuggestionResultType string

const (
	SuggestionNoFileUploaded SuggestionResultType = "no_file_uploaded"
	SuggestionNoRecordFound  SuggestionResultType = "no_record_found"
	SuggestionNoFileFound    SuggestionResultType = "no_file_found"
	SuggestionResponse       SuggestionResultType = "suggestion_response"
	SuggestionExceeded       SuggestionResultType = "exceeded_response"
)
