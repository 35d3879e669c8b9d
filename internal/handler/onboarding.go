package handler

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bayb/pathway/internal/i18n"
	"github.com/bayb/pathway/internal/model"
	"github.com/bayb/pathway/internal/speech"
	"github.com/bayb/pathway/internal/store"
)

// Request and response bodies below keep the field names web clients of the
// onboarding API already send.

type saveRequest struct {
	UserID     string        `json:"userId"`
	Field      string        `json:"field"`
	Value      string        `json:"value"`
	AllAnswers model.Answers `json:"allAnswers"`
}

type completeRequest struct {
	UserID         string        `json:"userId"`
	OnboardingData model.Answers `json:"onboardingData"`
}

type successResponse struct {
	Success            bool   `json:"success"`
	Message            string `json:"message"`
	OnboardingComplete bool   `json:"onboardingComplete,omitempty"`
}

type statusResponse struct {
	OnboardingComplete bool          `json:"onboardingComplete"`
	HasAnswers         bool          `json:"hasAnswers"`
	CompletedAt        *time.Time    `json:"completedAt,omitempty"`
	Answers            model.Answers `json:"answers"`
}

type dataResponse struct {
	Success bool          `json:"success"`
	Data    model.Answers `json:"data"`
}

type ttsRequest struct {
	Text string `json:"text"`
}

type ttsResponse struct {
	Success  bool   `json:"success"`
	Audio    string `json:"audio"`
	MIMEType string `json:"mimeType"`
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, i18n.T(r.Context(), "UserIDRequired"), nil)
		return
	}
	if err := h.onboarding.SaveAnswer(r.Context(), req.UserID, req.Field, req.Value, req.AllAnswers); err != nil {
		h.log.Error("failed to save onboarding answer", "user_id", req.UserID, "field", req.Field, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to save answer", err)
		return
	}
	h.log.Info("saved onboarding answer", "user_id", req.UserID, "field", req.Field)
	writeJSON(w, http.StatusOK, successResponse{Success: true, Message: i18n.T(r.Context(), "AnswerSaved")})
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, i18n.T(r.Context(), "UserIDRequired"), nil)
		return
	}
	if err := h.onboarding.CompleteInterview(r.Context(), req.UserID, req.OnboardingData); err != nil {
		h.log.Error("failed to complete onboarding", "user_id", req.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to complete onboarding", err)
		return
	}
	h.log.Info("onboarding completed", "user_id", req.UserID)
	writeJSON(w, http.StatusOK, successResponse{
		Success:            true,
		Message:            i18n.T(r.Context(), "OnboardingCompleted"),
		OnboardingComplete: true,
	})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.onboarding.Status(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, statusFor(err), "Failed to check onboarding status", err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		OnboardingComplete: st.Complete,
		HasAnswers:         st.HasAnswers,
		CompletedAt:        st.CompletedAt,
		Answers:            st.Answers,
	})
}

func (h *Handler) handleData(w http.ResponseWriter, r *http.Request) {
	answers, err := h.onboarding.Answers(r.Context(), chi.URLParam(r, "userID"))
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, i18n.T(r.Context(), "NoOnboardingData"), nil)
		return
	case err != nil:
		writeError(w, statusFor(err), "Failed to fetch onboarding data", err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Success: true, Data: answers})
}

// handleTTS synthesizes prompt audio for clients that play speech themselves.
func (h *Handler) handleTTS(w http.ResponseWriter, r *http.Request) {
	if h.synth == nil {
		writeError(w, http.StatusServiceUnavailable, "speech synthesis is not configured", speech.ErrNoSynthesizer)
		return
	}
	var req ttsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, i18n.T(r.Context(), "TextRequired"), nil)
		return
	}

	audio, err := h.synth.Synthesize(r.Context(), speech.Preprocess(req.Text))
	if err != nil {
		status := http.StatusBadGateway
		var apiErr *speech.APIError
		if errors.As(err, &apiErr) && apiErr.Status >= 400 {
			status = apiErr.Status
		}
		h.log.Error("speech synthesis failed", "error", err)
		writeError(w, status, "Failed to generate speech", err)
		return
	}
	writeJSON(w, http.StatusOK, ttsResponse{
		Success:  true,
		Audio:    base64.StdEncoding.EncodeToString(audio.Data),
		MIMEType: audio.MIMEType,
	})
}
