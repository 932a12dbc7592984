package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gt"
	httpctrl "github.com/stenolab/steno/pkg/controller/http"
	"github.com/stenolab/steno/pkg/domain/model"
	"github.com/stenolab/steno/pkg/domain/types"
	"github.com/stenolab/steno/pkg/repository/cache"
	"github.com/stenolab/steno/pkg/repository/memory"
	"github.com/stenolab/steno/pkg/repository/storage"
	"github.com/stenolab/steno/pkg/service/registry"
	"github.com/stenolab/steno/pkg/service/retrieval"
	"github.com/stenolab/steno/pkg/service/suggest"
	"github.com/stenolab/steno/pkg/service/summary"
	"github.com/stenolab/steno/pkg/usecase"
)

type mockSession struct {
	gollem.Session
	generateContentFn func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error)
}

func (m *mockSession) GenerateContent(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
	return m.generateContentFn(ctx, input...)
}

type mockLLMClient struct {
	sessionCalls atomic.Int64
	sessionErr   error
}

func (m *mockLLMClient) NewSession(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
	if m.sessionErr != nil {
		return nil, m.sessionErr
	}
	return &mockSession{
		generateContentFn: func(ctx context.Context, input ...gollem.Input) (*gollem.Response, error) {
			responses := []string{
				`{"notes":"meeting notes"}`,
				`{"html":"<ul><li>follow up</li></ul>"}`,
				`{"title":"standup"}`,
			}
			n := m.sessionCalls.Add(1)
			return &gollem.Response{Texts: []string{responses[(n-1)%3]}}, nil
		},
	}, nil
}

func (m *mockLLMClient) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	vectors := make([][]float64, len(input))
	for i := range input {
		vec := make([]float64, dimension)
		vec[0] = 1
		vectors[i] = vec
	}
	return vectors, nil
}

type testServer struct {
	repo     *memory.Memory
	registry *registry.Registry
	llm      *mockLLMClient
	srv      *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	repo := memory.New()
	blobs := storage.NewMemory()
	llm := &mockLLMClient{}
	retrievalSvc := retrieval.New(llm)
	summarySvc := summary.New(llm, cache.New())
	suggestSvc := suggest.New(llm, retrievalSvc, repo.ContextDoc())
	reg := registry.New(repo.Meeting())
	uc := usecase.New(repo, blobs, llm, retrievalSvc, summarySvc,
		usecase.WithPipelineRetry(2, time.Millisecond),
	)

	srv := httptest.NewServer(httpctrl.New(uc, reg, suggestSvc))
	t.Cleanup(srv.Close)

	return &testServer{repo: repo, registry: reg, llm: llm, srv: srv}
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	gt.NoError(t, err).Required()
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	gt.NoError(t, err).Required()
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	gt.NoError(t, json.NewDecoder(resp.Body).Decode(&out)).Required()
	return out
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.srv.URL + "/health")
	gt.NoError(t, err).Required()
	gt.Value(t, resp.StatusCode).Equal(http.StatusOK)

	out := decodeJSON[map[string]string](t, resp)
	gt.Value(t, out["status"]).Equal("ok")
}

func TestEndMeetingEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.srv.URL+"/end_meeting", map[string]string{
		"transcript": "we agreed to ship on friday",
		"user_id":    "undefined",
		"meeting_id": "meeting-http-1",
	})
	gt.Value(t, resp.StatusCode).Equal(http.StatusOK)

	out := decodeJSON[map[string]string](t, resp)
	gt.Value(t, out["notes_content"]).Equal("meeting notes")
	gt.Value(t, out["action_items"]).Equal("<ul><li>follow up</li></ul>")
}

func TestEndMeetingRejectsMalformedBody(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.srv.URL+"/end_meeting", "application/json", strings.NewReader("{not json"))
	gt.NoError(t, err).Required()
	defer resp.Body.Close()
	gt.Value(t, resp.StatusCode).Equal(http.StatusBadRequest)
}

func TestGenerateActionsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.srv.URL+"/generate_actions", map[string]string{
		"transcript": "assign the review to sam",
	})
	gt.Value(t, resp.StatusCode).Equal(http.StatusOK)

	out := decodeJSON[map[string]string](t, resp)
	gt.Value(t, out["action_items"]).Equal("<ul><li>follow up</li></ul>")
}

func TestCheckMeetingEndpoint(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t)

	resp, err := http.Get(ts.srv.URL + "/check_meeting/meeting-http-2")
	gt.NoError(t, err).Required()
	out := decodeJSON[map[string]bool](t, resp)
	gt.Bool(t, out["is_meeting"]).False()

	_, err = ts.repo.Meeting().Upsert(ctx, &model.Meeting{ID: "meeting-http-2"})
	gt.NoError(t, err).Required()

	resp, err = http.Get(ts.srv.URL + "/check_meeting/meeting-http-2")
	gt.NoError(t, err).Required()
	out = decodeJSON[map[string]bool](t, resp)
	gt.Bool(t, out["is_meeting"]).True()
}

func TestLateSummaryEndpoint(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t)

	// unknown meeting yields an empty summary, not an error
	resp, err := http.Get(ts.srv.URL + "/late_summary/meeting-http-3")
	gt.NoError(t, err).Required()
	out := decodeJSON[map[string]string](t, resp)
	gt.Value(t, out["late_summary"]).Equal("")

	_, err = ts.repo.Meeting().Upsert(ctx, &model.Meeting{
		ID:         "meeting-http-3",
		Transcript: "long discussion about the roadmap",
	})
	gt.NoError(t, err).Required()

	resp, err = http.Get(ts.srv.URL + "/late_summary/meeting-http-3")
	gt.NoError(t, err).Required()
	out = decodeJSON[map[string]string](t, resp)
	gt.Value(t, out["late_summary"]).Equal("meeting notes")
}

func TestUploadContextEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.srv.URL+"/context/meeting-http-4/user-1", map[string]string{
		"file_ref": "docs/onboarding.txt",
		"text":     strings.Repeat("context material. ", 40),
	})
	gt.Value(t, resp.StatusCode).Equal(http.StatusOK)

	out := decodeJSON[map[string]int](t, resp)
	gt.Number(t, out["chunks"]).Greater(1)
}

func TestWebSocketTranscriptAndSuggestion(t *testing.T) {
	ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws/meeting-ws-1?user_id=user-1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	gt.NoError(t, err).Required()
	defer conn.Close()

	// the first connection of a meeting is elected primary and its
	// transcript updates accumulate in arrival order
	for _, delta := range []string{"hello ", "world"} {
		data, err := json.Marshal(delta)
		gt.NoError(t, err).Required()
		env := model.Envelope{Type: types.MsgTranscriptUpdate, Data: data}
		gt.NoError(t, conn.WriteJSON(env)).Required()
	}

	// a suggestion check without an uploaded file reports no_file_uploaded
	reqData, err := json.Marshal(model.CheckSuggestionRequest{
		Transcript:     "hello world",
		IsFileUploaded: false,
	})
	gt.NoError(t, err).Required()
	gt.NoError(t, conn.WriteJSON(model.Envelope{
		Type: types.MsgCheckSuggestion,
		Data: reqData,
	})).Required()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second)) //nolint:errcheck
	var result model.SuggestionResult
	gt.NoError(t, conn.ReadJSON(&result)).Required()
	gt.Value(t, result.Type).Equal(types.SuggestionNoFileUploaded)
	gt.Bool(t, result.FilesFound).True()

	// reading the suggestion response sequences after the transcript
	// writes on the same connection
	gt.Value(t, ts.registry.GetTranscript("meeting-ws-1")).Equal("hello world")
	gt.Value(t, ts.registry.ConnectionCount("meeting-ws-1")).Equal(1)
}

func TestWebSocketIgnoresMalformedEnvelopes(t *testing.T) {
	ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws/meeting-ws-2?user_id=user-1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	gt.NoError(t, err).Required()
	defer conn.Close()

	// malformed frames and unknown types must not kill the connection
	gt.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json"))).Required()
	gt.NoError(t, conn.WriteJSON(model.Envelope{Type: "unknown_type"})).Required()

	data, err := json.Marshal("still alive")
	gt.NoError(t, err).Required()
	gt.NoError(t, conn.WriteJSON(model.Envelope{Type: types.MsgTranscriptUpdate, Data: data})).Required()

	// round-trip a suggestion check to prove the loop is still serving
	reqData, err := json.Marshal(model.CheckSuggestionRequest{IsFileUploaded: false})
	gt.NoError(t, err).Required()
	gt.NoError(t, conn.WriteJSON(model.Envelope{Type: types.MsgCheckSuggestion, Data: reqData})).Required()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second)) //nolint:errcheck
	var result model.SuggestionResult
	gt.NoError(t, conn.ReadJSON(&result)).Required()
	gt.Value(t, result.Type).Equal(types.SuggestionNoFileUploaded)

	gt.Value(t, ts.registry.GetTranscript("meeting-ws-2")).Equal("still alive")
}

func TestWebSocketSuggestionFailureDegrades(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t)

	// a stored context doc routes the check into LLM question detection
	gt.NoError(t, ts.repo.ContextDoc().Put(ctx, &model.ContextDocument{
		MeetingID:  "meeting-ws-3",
		UserID:     "user-1",
		FileRef:    "briefing.txt",
		Chunks:     []string{"the plan"},
		Embeddings: [][]float32{{1, 0}},
	})).Required()
	ts.llm.sessionErr = errors.New("model backend unavailable")

	wsURL := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws/meeting-ws-3?user_id=user-1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	gt.NoError(t, err).Required()
	defer conn.Close()

	reqData, err := json.Marshal(model.CheckSuggestionRequest{
		Transcript:     "what was the plan again?",
		IsFileUploaded: true,
	})
	gt.NoError(t, err).Required()
	gt.NoError(t, conn.WriteJSON(model.Envelope{
		Type: types.MsgCheckSuggestion,
		Data: reqData,
	})).Required()

	// an upstream failure still answers the client, with an empty result
	conn.SetReadDeadline(time.Now().Add(5 * time.Second)) //nolint:errcheck
	var result model.SuggestionResult
	gt.NoError(t, conn.ReadJSON(&result)).Required()
	gt.Value(t, result.Type).Equal(types.SuggestionResponse)
	gt.Bool(t, result.FilesFound).False()
	gt.Value(t, result.Suggestion).Nil()
	gt.Value(t, result.LastQuestion).Nil()
}

func TestShareEndpointRequiresNotifier(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.srv.URL+"/share", map[string]any{
		"meeting_id":  "meeting-http-5",
		"owner_email": "owner@example.com",
		"emails":      []string{"peer@example.com"},
	})
	defer resp.Body.Close()
	gt.Value(t, resp.StatusCode).Equal(http.StatusInternalServerError)
}
