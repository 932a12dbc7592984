package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stenolab/steno/pkg/domain/model"
	"github.com/stenolab/steno/pkg/domain/types"
	"github.com/stenolab/steno/pkg/utils/errutil"
	"github.com/stenolab/steno/pkg/utils/logging"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Browser extensions connect from arbitrary origins.
		return true
	},
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	meetingID := types.MeetingID(chi.URLParam(r, "meetingID"))
	userID := types.UserID(r.URL.Query().Get("user_id"))

	// Upgrade replies to the client itself on failure
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		_ = errutil.Handle(ctx, err, "failed to upgrade websocket connection")
		return
	}
	defer ws.Close()

	conn, err := s.registry.Connect(ctx, meetingID, userID)
	if err != nil {
		_ = errutil.Handle(ctx, err, "failed to register connection")
		return
	}
	defer s.registry.Disconnect(ctx, conn)

	logger := logging.From(ctx).With("meeting_id", meetingID, "connection_id", conn.ID)
	logger.Info("connection opened")

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("connection closed unexpectedly", "error", err)
			}
			return
		}

		var env model.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}

		switch env.Type {
		case types.MsgTranscriptUpdate:
			var delta string
			if err := json.Unmarshal(env.Data, &delta); err != nil {
				continue
			}
			s.registry.AppendTranscript(ctx, meetingID, conn.ID, delta)

		case types.MsgCheckSuggestion:
			var req model.CheckSuggestionRequest
			if err := json.Unmarshal(env.Data, &req); err != nil {
				continue
			}
			req.MeetingID = meetingID
			req.UserID = userID

			result, err := s.suggest.Check(ctx, &req)
			if err != nil {
				// every check gets a reply; an upstream failure degrades
				// to an empty suggestion instead of silence
				_ = errutil.Handle(ctx, err, "suggestion check failed")
				result = model.NewSuggestionResult(types.SuggestionResponse, false)
			}
			if err := ws.WriteJSON(result); err != nil {
				logger.Warn("failed to write suggestion result", "error", err)
				return
			}

		default:
			// Unknown message types are ignored so that newer clients can
			// talk to older servers.
		}
	}
}
