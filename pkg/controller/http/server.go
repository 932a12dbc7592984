package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/goerr/v2"
	"github.com/stenolab/steno/pkg/domain/types"
	"github.com/stenolab/steno/pkg/service/registry"
	"github.com/stenolab/steno/pkg/service/suggest"
	"github.com/stenolab/steno/pkg/usecase"
	"github.com/stenolab/steno/pkg/utils/errutil"
)

type Server struct {
	router   *chi.Mux
	uc       *usecase.UseCases
	registry *registry.Registry
	suggest  *suggest.Service
}

func New(uc *usecase.UseCases, reg *registry.Registry, suggestSvc *suggest.Service) *Server {
	r := chi.NewRouter()

	s := &Server{
		router:   r,
		uc:       uc,
		registry: reg,
		suggest:  suggestSvc,
	}

	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)
	r.Get("/ws/{meetingID}", s.handleWebSocket)

	r.Post("/end_meeting", s.handleEndMeeting)
	r.Post("/generate_actions", s.handleGenerateActions)
	r.Get("/late_summary/{meetingID}", s.handleLateSummary)
	r.Get("/check_meeting/{meetingID}", s.handleCheckMeeting)
	r.Post("/context/{meetingID}/{userID}", s.handleUploadContext)
	r.Post("/share", s.handleShare)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, map[string]string{"status": "ok"})
}

type endMeetingRequest struct {
	Transcript string `json:"transcript"`
	UserID     string `json:"user_id"`
	MeetingID  string `json:"meeting_id"`
}

func (s *Server) handleEndMeeting(w http.ResponseWriter, r *http.Request) {
	var req endMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "invalid end_meeting request"), http.StatusBadRequest)
		return
	}

	out, err := s.uc.EndMeeting(r.Context(), req.Transcript, types.UserID(req.UserID), types.MeetingID(req.MeetingID))
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, r, out)
}

type actionsRequest struct {
	Transcript string `json:"transcript"`
}

func (s *Server) handleGenerateActions(w http.ResponseWriter, r *http.Request) {
	var req actionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "invalid generate_actions request"), http.StatusBadRequest)
		return
	}

	out, err := s.uc.GenerateActions(r.Context(), req.Transcript)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, r, out)
}

func (s *Server) handleLateSummary(w http.ResponseWriter, r *http.Request) {
	meetingID := types.MeetingID(chi.URLParam(r, "meetingID"))

	notes, err := s.uc.LateSummary(r.Context(), meetingID)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, r, map[string]string{"late_summary": notes})
}

func (s *Server) handleCheckMeeting(w http.ResponseWriter, r *http.Request) {
	meetingID := types.MeetingID(chi.URLParam(r, "meetingID"))

	exists, err := s.uc.CheckMeeting(r.Context(), meetingID)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, r, map[string]bool{"is_meeting": exists})
}

type uploadContextRequest struct {
	FileRef string `json:"file_ref"`
	Text    string `json:"text"`
}

func (s *Server) handleUploadContext(w http.ResponseWriter, r *http.Request) {
	meetingID := types.MeetingID(chi.URLParam(r, "meetingID"))
	userID := types.UserID(chi.URLParam(r, "userID"))

	var req uploadContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "invalid context upload request"), http.StatusBadRequest)
		return
	}

	count, err := s.uc.UploadContext(r.Context(), meetingID, userID, req.FileRef, req.Text)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
		return
	}
	respondJSON(w, r, map[string]int{"chunks": count})
}

type shareRequest struct {
	MeetingID  string   `json:"meeting_id"`
	OwnerEmail string   `json:"owner_email"`
	Emails     []string `json:"emails"`
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	var req shareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "invalid share request"), http.StatusBadRequest)
		return
	}

	delivered, err := s.uc.Share(r.Context(), types.MeetingID(req.MeetingID), req.OwnerEmail, req.Emails)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
		return
	}
	respondJSON(w, r, map[string][]string{"successful_emails": delivered})
}

func respondJSON(w http.ResponseWriter, r *http.Request, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data) //nolint:errcheck // header already committed
}
