package summary

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/stenolab/steno/pkg/domain/interfaces"
	"github.com/stenolab/steno/pkg/repository/cache"
	"github.com/stenolab/steno/pkg/utils/logging"
)

//go:embed prompt/action_items.md
var actionItemsPrompt string

//go:embed prompt/notes.md
var notesPrompt string

//go:embed prompt/title.md
var titlePrompt string

// Output is the generated summary of a finished meeting. The same
// transcript always yields the same Output through the cache, so retried
// end-of-meeting requests are idempotent within the cache TTL.
type Output struct {
	Notes       string `json:"notes_content"`
	ActionItems string `json:"action_items"`
	Title       string `json:"title"`
}

type Service struct {
	llm   gollem.LLMClient
	cache interfaces.ResultCache
}

func New(llm gollem.LLMClient, resultCache interfaces.ResultCache) *Service {
	return &Service{
		llm:   llm,
		cache: resultCache,
	}
}

// Cached returns the memoized output for a transcript, if present
func (s *Service) Cached(ctx context.Context, transcript string) (*Output, bool) {
	raw, ok := s.cache.Get(ctx, cache.Key(transcript))
	if !ok {
		return nil, false
	}
	var out Output
	if err := json.Unmarshal(raw, &out); err != nil {
		// a poisoned entry is equivalent to a miss
		logging.From(ctx).Warn("failed to decode cached summary", slog.Any("error", err))
		return nil, false
	}
	return &out, true
}

// Generate produces notes, action items and a title for the transcript.
// Results are memoized under the transcript's content address; a cache
// hit skips all generation.
func (s *Service) Generate(ctx context.Context, transcript string) (*Output, error) {
	if out, ok := s.Cached(ctx, transcript); ok {
		return out, nil
	}

	notes, err := s.GenerateNotes(ctx, transcript)
	if err != nil {
		return nil, err
	}
	actionItems, err := s.ExtractActionItems(ctx, transcript)
	if err != nil {
		return nil, err
	}
	title, err := s.GenerateTitle(ctx, notes)
	if err != nil {
		return nil, err
	}

	out := &Output{
		Notes:       notes,
		ActionItems: actionItems,
		Title:       title,
	}
	if raw, err := json.Marshal(out); err == nil {
		s.cache.Set(ctx, cache.Key(transcript), raw)
	}

	return out, nil
}

// GenerateNotes produces Markdown meeting notes from the transcript
func (s *Service) GenerateNotes(ctx context.Context, transcript string) (string, error) {
	return s.generateField(ctx, notesPrompt, "notes",
		"Markdown meeting notes covering date, participants, summary and key points",
		fmt.Sprintf("Full transcript: %s", transcript))
}

// ExtractActionItems produces a per-person HTML action item list
func (s *Service) ExtractActionItems(ctx context.Context, transcript string) (string, error) {
	return s.generateField(ctx, actionItemsPrompt, "html",
		"HTML fragment listing each participant's action items",
		fmt.Sprintf("Transcript: %s", transcript))
}

// GenerateTitle produces a short meeting title from the notes
func (s *Service) GenerateTitle(ctx context.Context, notes string) (string, error) {
	return s.generateField(ctx, titlePrompt, "title",
		"A concise meeting title of at most 10 words",
		fmt.Sprintf("Generate a title for the following meeting summary. Full summary: %s", notes))
}

func fieldSchema(field, description string) *gollem.Parameter {
	return &gollem.Parameter{
		Title: "SummaryField",
		Type:  gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			field: {
				Type:        gollem.TypeString,
				Description: description,
				Required:    true,
			},
		},
	}
}

func (s *Service) generateField(ctx context.Context, systemPrompt, field, description, userPrompt string) (string, error) {
	session, err := s.llm.NewSession(ctx,
		gollem.WithSessionContentType(gollem.ContentTypeJSON),
		gollem.WithSessionResponseSchema(fieldSchema(field, description)),
		gollem.WithSessionSystemPrompt(systemPrompt),
	)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create summary session", goerr.V("field", field))
	}

	resp, err := session.GenerateContent(ctx, gollem.Text(userPrompt))
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate summary content", goerr.V("field", field))
	}
	if len(resp.Texts) == 0 {
		return "", goerr.New("summary generation returned empty result", goerr.V("field", field))
	}

	var parsed map[string]string
	if err := json.Unmarshal([]byte(resp.Texts[0]), &parsed); err != nil {
		return "", goerr.Wrap(err, "failed to parse summary response",
			goerr.V("field", field), goerr.V("response", resp.Texts[0]))
	}
	value, ok := parsed[field]
	if !ok {
		return "", goerr.New("summary response is missing the expected field",
			goerr.V("field", field), goerr.V("response", resp.Texts[0]))
	}
	return value, nil
}
