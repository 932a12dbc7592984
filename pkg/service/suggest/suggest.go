package suggest

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/stenolab/steno/pkg/domain/interfaces"
	"github.com/stenolab/steno/pkg/domain/model"
	"github.com/stenolab/steno/pkg/domain/types"
	"github.com/stenolab/steno/pkg/service/retrieval"
	"github.com/stenolab/steno/pkg/utils/logging"
)

//go:embed prompt/question_system.md
var questionSystemPrompt string

//go:embed prompt/suggestion_system.md
var suggestionSystemPrompt string

// Service decides whether to surface a live suggestion for a transcript
// fragment. It is stateless per request; the only persistent side effect
// is the optional suggestion counter.
type Service struct {
	llm       gollem.LLMClient
	retrieval *retrieval.Service
	repo      interfaces.ContextDocRepository

	// suggestionCap limits suggestions per meeting when positive.
	// Zero disables the cap.
	suggestionCap int
}

type Option func(*Service)

// WithSuggestionCap enables the per-meeting suggestion limit
func WithSuggestionCap(limit int) Option {
	return func(s *Service) {
		s.suggestionCap = limit
	}
}

func New(llm gollem.LLMClient, retrievalSvc *retrieval.Service, repo interfaces.ContextDocRepository, opts ...Option) *Service {
	s := &Service{
		llm:       llm,
		retrieval: retrievalSvc,
		repo:      repo,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type questionDetection struct {
	NeedsHelp    bool    `json:"needs_help"`
	LastQuestion *string `json:"last_question"`
}

// Check runs the suggestion decision procedure for one request. It never
// returns an error for the expected "nothing to suggest" outcomes; those
// are encoded in the result type.
func (s *Service) Check(ctx context.Context, req *model.CheckSuggestionRequest) (*model.SuggestionResult, error) {
	if !req.IsFileUploaded {
		return model.NewSuggestionResult(types.SuggestionNoFileUploaded, true), nil
	}

	doc, err := s.repo.Get(ctx, req.MeetingID, req.UserID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return model.NewSuggestionResult(types.SuggestionNoRecordFound, false), nil
		}
		return nil, goerr.Wrap(err, "failed to load context document",
			goerr.V("meetingID", req.MeetingID), goerr.V("userID", req.UserID))
	}
	if doc.FileRef == "" || len(doc.Chunks) == 0 {
		return model.NewSuggestionResult(types.SuggestionNoFileFound, false), nil
	}

	if s.suggestionCap > 0 && doc.SuggestionCount >= s.suggestionCap {
		return model.NewSuggestionResult(types.SuggestionExceeded, true), nil
	}

	detection, err := s.detectQuestion(ctx, req.Transcript)
	if err != nil {
		return nil, err
	}
	if !detection.NeedsHelp || detection.LastQuestion == nil {
		return model.NewSuggestionResult(types.SuggestionResponse, false), nil
	}

	suggestion, err := s.generateSuggestion(ctx, doc, *detection.LastQuestion, req.Transcript)
	if err != nil {
		return nil, err
	}

	if s.suggestionCap > 0 {
		if _, err := s.repo.IncrementSuggestionCount(ctx, req.MeetingID, req.UserID); err != nil {
			// the suggestion is already generated; losing one counter
			// increment only loosens the cap
			logging.From(ctx).Warn("failed to increment suggestion count", slog.Any("error", err))
		}
	}

	return &model.SuggestionResult{
		Type:         types.SuggestionResponse,
		FilesFound:   true,
		Suggestion:   &suggestion,
		LastQuestion: detection.LastQuestion,
	}, nil
}

func questionDetectionSchema() *gollem.Parameter {
	return &gollem.Parameter{
		Title:       "QuestionDetection",
		Description: "Whether the speaker needs help, and the question to answer",
		Type:        gollem.TypeObject,
		Properties: map[string]*gollem.Parameter{
			"needs_help": {
				Type:        gollem.TypeBoolean,
				Description: "True when the latest transcript fragment ends in an unanswered question",
				Required:    true,
			},
			"last_question": {
				Type:        gollem.TypeString,
				Description: "The last question asked, or null when there is none",
			},
		},
	}
}

func (s *Service) detectQuestion(ctx context.Context, transcript string) (*questionDetection, error) {
	session, err := s.llm.NewSession(ctx,
		gollem.WithSessionContentType(gollem.ContentTypeJSON),
		gollem.WithSessionResponseSchema(questionDetectionSchema()),
		gollem.WithSessionSystemPrompt(questionSystemPrompt),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create question detection session")
	}

	prompt := fmt.Sprintf("Latest chunk from the transcript: %s", transcript)
	resp, err := session.GenerateContent(ctx, gollem.Text(prompt))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to detect question")
	}
	if len(resp.Texts) == 0 {
		return nil, goerr.New("question detection returned empty result")
	}

	var detection questionDetection
	if err := json.Unmarshal([]byte(resp.Texts[0]), &detection); err != nil {
		return nil, goerr.Wrap(err, "failed to parse question detection response",
			goerr.V("response", resp.Texts[0]))
	}
	return &detection, nil
}

func (s *Service) generateSuggestion(ctx context.Context, doc *model.ContextDocument, question, transcript string) (string, error) {
	queryEmbedding, err := s.retrieval.Embed(ctx, question)
	if err != nil {
		return "", goerr.Wrap(err, "failed to embed question")
	}

	closest, err := s.retrieval.Nearest(queryEmbedding, doc.Embeddings, doc.Chunks)
	if err != nil {
		return "", goerr.Wrap(err, "failed to find relevant chunks")
	}

	session, err := s.llm.NewSession(ctx,
		gollem.WithSessionSystemPrompt(suggestionSystemPrompt),
	)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create suggestion session")
	}

	prompt := fmt.Sprintf(`Information retrieved from the user's documents: %v
Latest chunk of the transcript: %s`, closest, transcript)

	resp, err := session.GenerateContent(ctx, gollem.Text(prompt))
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate suggestion")
	}
	if len(resp.Texts) == 0 {
		return "", goerr.New("suggestion generation returned empty result")
	}

	return resp.Texts[0], nil
}
