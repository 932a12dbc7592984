package summary_test

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gt"
	"github.com/stenolab/steno/pkg/repository/cache"
	"github.com/stenolab/steno/pkg/service/summary"
)

type mockSession struct {
	gollem.Session
	generateContentFn func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error)
}

func (m *mockSession) GenerateContent(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
	return m.generateContentFn(ctx, input...)
}

type mockLLMClient struct {
	calls     atomic.Int64
	responses []string
}

func (m *mockLLMClient) NewSession(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
	return &mockSession{
		generateContentFn: func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
			n := m.calls.Add(1)
			resp := m.responses[(n-1)%int64(len(m.responses))]
			return &gollem.Response{Texts: []string{resp}}, nil
		},
	}, nil
}

func (m *mockLLMClient) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	vectors := make([][]float64, len(input))
	for i := range input {
		vectors[i] = make([]float64, dimension)
	}
	return vectors, nil
}

func TestGenerate(t *testing.T) {
	llm := &mockLLMClient{
		responses: []string{
			`{"notes":"### Meeting Notes\n- budget approved"}`,
			`{"html":"<h3>Arsen</h3><ul><li>send the deck</li></ul>"}`,
			`{"title":"Budget Review with Arsen"}`,
		},
	}
	svc := summary.New(llm, cache.New())

	out, err := svc.Generate(context.Background(), "we approved the budget. Arsen will send the deck.")
	gt.NoError(t, err).Required()
	gt.Bool(t, strings.Contains(out.Notes, "budget approved")).True()
	gt.Bool(t, strings.Contains(out.ActionItems, "send the deck")).True()
	gt.Value(t, out.Title).Equal("Budget Review with Arsen")
	gt.Number(t, llm.calls.Load()).Equal(3)
}

func TestGenerateMemoizes(t *testing.T) {
	llm := &mockLLMClient{
		responses: []string{
			`{"notes":"notes"}`,
			`{"html":"actions"}`,
			`{"title":"title"}`,
		},
	}
	svc := summary.New(llm, cache.New())
	transcript := "same transcript both times"

	first, err := svc.Generate(context.Background(), transcript)
	gt.NoError(t, err).Required()
	gt.Number(t, llm.calls.Load()).Equal(3)

	second, err := svc.Generate(context.Background(), transcript)
	gt.NoError(t, err).Required()
	gt.Value(t, second).Equal(first)
	// no further LLM calls on the cache hit
	gt.Number(t, llm.calls.Load()).Equal(3)

	_, ok := svc.Cached(context.Background(), "a different transcript")
	gt.Bool(t, ok).False()
}

func TestGenerateRejectsMalformedResponse(t *testing.T) {
	llm := &mockLLMClient{responses: []string{"not json at all"}}
	svc := summary.New(llm, cache.New())

	_, err := svc.Generate(context.Background(), "transcript")
	gt.Error(t, err)
}

func TestGenerateDistinctTranscripts(t *testing.T) {
	llm := &mockLLMClient{
		responses: []string{
			`{"notes":"n"}`,
			`{"html":"a"}`,
			`{"title":"t"}`,
		},
	}
	svc := summary.New(llm, cache.New())

	for i := 0; i < 3; i++ {
		_, err := svc.Generate(context.Background(), fmt.Sprintf("transcript %d", i))
		gt.NoError(t, err).Required()
	}
	gt.Number(t, llm.calls.Load()).Equal(9)
}

func TestFieldSchema(t *testing.T) {
	schema := summary.FieldSchema("notes", "Markdown meeting notes")

	gt.Value(t, schema.Type).Equal(gollem.TypeObject)

	field := schema.Properties["notes"]
	gt.Value(t, field).NotNil()
	gt.Value(t, field.Type).Equal(gollem.TypeString)
	gt.Value(t, field.Description).Equal("Markdown meeting notes")
	gt.Bool(t, field.Required).True()
}
