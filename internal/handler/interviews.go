package handler

import (
	"context"
	"errors"
	"io"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bayb/pathway/internal/i18n"
	"github.com/bayb/pathway/internal/interview"
	"github.com/bayb/pathway/internal/model"
)

var errNoInterview = errors.New("no interview in progress for this user")

type startRequest struct {
	UserID string `json:"user_id"`
}

type transcriptRequest struct {
	Text  string `json:"text"`
	Final *bool  `json:"final"` // omitted means typed text
}

type audioRequest struct {
	Enabled *bool `json:"enabled"` // omitted toggles
}

type labels struct {
	Progress string `json:"progress"`
	Percent  string `json:"percent"`
	State    string `json:"state"`
	Primary  string `json:"primary"`
	Back     string `json:"back"`
	Audio    string `json:"audio"`
}

type interviewResponse struct {
	model.SessionView
	Labels labels `json:"labels"`
}

func viewResponse(ctx context.Context, v model.SessionView) interviewResponse {
	l := labels{
		Progress: i18n.Td(ctx, "QuestionProgress", map[string]any{"Current": v.Position + 1, "Total": v.Total}),
		Percent:  i18n.Td(ctx, "PercentComplete", map[string]any{"Percent": int(math.Round(v.Progress))}),
		Primary:  i18n.T(ctx, "Next"),
		Back:     i18n.T(ctx, "Back"),
		Audio:    i18n.T(ctx, "AudioOff"),
	}
	if v.IsLast {
		l.Primary = i18n.T(ctx, "Complete")
	}
	if v.AudioEnabled {
		l.Audio = i18n.T(ctx, "AudioOn")
	}
	switch {
	case v.Status == model.StatusCompleted:
		l.State = i18n.T(ctx, "InterviewComplete")
	case v.Speaking:
		l.State = i18n.T(ctx, "Speaking")
	case v.Listening:
		l.State = i18n.T(ctx, "Listening")
	default:
		l.State = i18n.T(ctx, "TapToAnswer")
	}
	return interviewResponse{SessionView: v, Labels: l}
}

func (h *Handler) session(userID string) (*interview.Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[userID]
	return s, ok
}

// newSession creates a session that closes itself once the host has been
// notified of completion. Its final view stays readable until it is replaced
// or deleted.
func (h *Handler) newSession(userID string) (*interview.Session, error) {
	var s *interview.Session
	deps := interview.Deps{
		OnComplete: func() {
			h.log.Info("onboarding finished", "user_id", userID)
			s.Close()
		},
	}
	if h.onboarding != nil {
		deps.Store = h.onboarding
	}
	opts := []interview.Option{
		interview.WithLogger(h.log),
		interview.WithAudio(h.config.AudioEnabled),
	}
	if h.config.CompletionDelay > 0 {
		opts = append(opts, interview.WithCompletionDelay(h.config.CompletionDelay))
	}
	s, err := interview.New(userID, h.catalog, deps, opts...)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// handleStartInterview returns the user's live interview, starting a new one
// when there is none or the previous one has completed.
func (h *Handler) handleStartInterview(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, i18n.T(r.Context(), "UserIDRequired"), nil)
		return
	}

	h.mu.Lock()
	existing, ok := h.sessions[req.UserID]
	if ok && !existing.Completed() {
		h.mu.Unlock()
		writeJSON(w, http.StatusOK, viewResponse(r.Context(), existing.View()))
		return
	}
	s, err := h.newSession(req.UserID)
	if err != nil {
		h.mu.Unlock()
		writeError(w, http.StatusInternalServerError, "failed to start interview", err)
		return
	}
	h.sessions[req.UserID] = s
	h.mu.Unlock()

	if ok {
		existing.Close()
	}
	s.Start()
	h.log.Info("interview started", "user_id", req.UserID, "session_id", s.ID())
	writeJSON(w, http.StatusCreated, viewResponse(r.Context(), s.View()))
}

// withSession resolves the interview named in the URL.
func (h *Handler) withSession(next func(http.ResponseWriter, *http.Request, *interview.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := h.session(chi.URLParam(r, "userID"))
		if !ok {
			writeError(w, http.StatusNotFound, errNoInterview.Error(), nil)
			return
		}
		next(w, r, s)
	}
}

func (h *Handler) handleGetInterview(w http.ResponseWriter, r *http.Request, s *interview.Session) {
	writeJSON(w, http.StatusOK, viewResponse(r.Context(), s.View()))
}

func (h *Handler) handleDeleteInterview(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	h.mu.Lock()
	s, ok := h.sessions[userID]
	delete(h.sessions, userID)
	h.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, errNoInterview.Error(), nil)
		return
	}
	s.Close()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request, s *interview.Session) {
	var req transcriptRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	final := req.Final == nil || *req.Final
	if err := s.UpdateTranscript(req.Text, final); err != nil {
		h.writeInterviewError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewResponse(r.Context(), s.View()))
}

func (h *Handler) handleNext(w http.ResponseWriter, r *http.Request, s *interview.Session) {
	if err := s.Submit(); err != nil {
		h.writeInterviewError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewResponse(r.Context(), s.View()))
}

func (h *Handler) handleBack(w http.ResponseWriter, r *http.Request, s *interview.Session) {
	if err := s.Back(); err != nil {
		h.writeInterviewError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewResponse(r.Context(), s.View()))
}

func (h *Handler) handleAudio(w http.ResponseWriter, r *http.Request, s *interview.Session) {
	var req audioRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Enabled == nil {
		s.ToggleAudio()
	} else {
		s.SetAudio(*req.Enabled)
	}
	writeJSON(w, http.StatusOK, viewResponse(r.Context(), s.View()))
}

func (h *Handler) writeInterviewError(w http.ResponseWriter, r *http.Request, err error) {
	msg := err.Error()
	switch {
	case errors.Is(err, interview.ErrAnswerRequired):
		msg = i18n.T(r.Context(), "AnswerRequired")
	case errors.Is(err, interview.ErrCompleted):
		msg = i18n.T(r.Context(), "AlreadyCompleted")
	case errors.Is(err, interview.ErrAtStart):
		msg = i18n.T(r.Context(), "AtFirstQuestion")
	}
	writeError(w, statusFor(err), msg, nil)
}
