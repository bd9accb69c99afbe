package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/quikscribe/scribed/internal/backend"
	"github.com/quikscribe/scribed/internal/control"
	"github.com/quikscribe/scribed/internal/model"
	"github.com/quikscribe/scribed/internal/orchestrator"
	"github.com/quikscribe/scribed/internal/ports"
	"github.com/quikscribe/scribed/internal/registry"
	"github.com/quikscribe/scribed/internal/store"
)

const (
	maxBodySize        = 1 << 20 // 1 MB
	defaultDurationMin = 60
	maxDurationMin     = 8 * 60
)

// createMeetingRequest is the JSON body for POST /v1/meetings.
type createMeetingRequest struct {
	MeetingURL  string `json:"meeting_url"`
	DurationMin int    `json:"duration_min"`
}

// listMeetingsResponse wraps the caller's meeting history.
type listMeetingsResponse struct {
	Meetings []*store.Meeting `json:"meetings"`
	Total    int              `json:"total"`
}

func (s *Server) handleCreateMeeting(w http.ResponseWriter, r *http.Request) {
	var req createMeetingRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.MeetingURL == "" {
		s.writeError(w, http.StatusBadRequest, "meeting_url is required")
		return
	}
	if u, err := url.Parse(req.MeetingURL); err != nil || u.Scheme == "" || u.Host == "" {
		s.writeError(w, http.StatusBadRequest, "meeting_url must be an absolute URL")
		return
	}
	if req.DurationMin == 0 {
		req.DurationMin = defaultDurationMin
	}
	if req.DurationMin < 0 || req.DurationMin > maxDurationMin {
		s.writeError(w, http.StatusBadRequest, "duration_min out of range")
		return
	}

	bot, err := s.orch.Launch(r.Context(), orchestrator.LaunchRequest{
		OwnerID:     ownerFrom(r.Context()),
		MeetingURL:  req.MeetingURL,
		DurationMin: req.DurationMin,
	})
	if err != nil {
		s.writeDomainError(w, err, "launch bot")
		return
	}

	s.writeJSON(w, http.StatusCreated, bot)
}

// handleListMeetings returns the caller's meeting history, newest first. The
// caller's live bots are reconciled against the backend first, so every row's
// status reflects ground truth at read time.
func (s *Server) handleListMeetings(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r.Context())
	s.orch.ReconcileOwner(r.Context(), owner)

	meetings, err := s.store.ListMeetingsByOwner(r.Context(), owner)
	if err != nil {
		s.logger.Error("list meetings", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list meetings")
		return
	}
	if meetings == nil {
		meetings = []*store.Meeting{}
	}

	s.writeJSON(w, http.StatusOK, listMeetingsResponse{
		Meetings: meetings,
		Total:    len(meetings),
	})
}

func (s *Server) handlePauseMeeting(w http.ResponseWriter, r *http.Request) {
	s.controlAction(w, r, model.ActionPause)
}

func (s *Server) handleResumeMeeting(w http.ResponseWriter, r *http.Request) {
	s.controlAction(w, r, model.ActionResume)
}

func (s *Server) controlAction(w http.ResponseWriter, r *http.Request, action string) {
	id := chi.URLParam(r, "id")

	bot, err := s.orch.Control(r.Context(), id, ownerFrom(r.Context()), action)
	if err != nil {
		s.writeDomainError(w, err, action+" bot")
		return
	}

	s.writeJSON(w, http.StatusOK, bot)
}

func (s *Server) handleStopMeeting(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	bot, err := s.orch.Stop(r.Context(), id, ownerFrom(r.Context()))
	if err != nil {
		s.writeDomainError(w, err, "stop bot")
		return
	}

	s.writeJSON(w, http.StatusOK, bot)
}

// writeDomainError maps the orchestration error taxonomy onto HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, err error, logCtx string) {
	switch {
	case errors.Is(err, ports.ErrNoPortsAvailable):
		s.writeError(w, http.StatusServiceUnavailable, "no ports available")
	case errors.Is(err, backend.ErrBackendUnavailable):
		s.writeError(w, http.StatusBadGateway, "backend unavailable")
	case errors.Is(err, backend.ErrLaunchFailed):
		s.writeError(w, http.StatusInternalServerError, "bot launch failed")
	case errors.Is(err, registry.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "bot not found")
	case errors.Is(err, registry.ErrAlreadyTerminal):
		s.writeError(w, http.StatusConflict, "bot already in terminal state")
	case errors.Is(err, control.ErrControlFailed):
		s.writeError(w, http.StatusBadGateway, "control action failed")
	default:
		s.logger.Error(logCtx, "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
