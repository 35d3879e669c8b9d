// Package handler exposes interviews and stored onboarding data over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/bayb/pathway/internal/interview"
	"github.com/bayb/pathway/internal/model"
	"github.com/bayb/pathway/internal/speech"
	"github.com/bayb/pathway/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	catalog    []model.Question
	onboarding *store.Onboarding
	synth      speech.Synthesizer
	config     model.InterviewConfig
	log        *slog.Logger

	mu       sync.Mutex
	sessions map[string]*interview.Session
}

// New creates a new Handler. synth may be nil, which disables /tts.
func New(catalog []model.Question, o *store.Onboarding, synth speech.Synthesizer, cfg model.InterviewConfig) *Handler {
	return &Handler{
		catalog:    catalog,
		onboarding: o,
		synth:      synth,
		config:     cfg,
		log:        slog.Default(),
		sessions:   make(map[string]*interview.Session),
	}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)

	r.Route("/interviews", func(r chi.Router) {
		r.Post("/", h.handleStartInterview)
		r.Route("/{userID}", func(r chi.Router) {
			r.Get("/", h.withSession(h.handleGetInterview))
			r.Delete("/", h.handleDeleteInterview)
			r.Post("/transcript", h.withSession(h.handleTranscript))
			r.Post("/next", h.withSession(h.handleNext))
			r.Post("/back", h.withSession(h.handleBack))
			r.Post("/audio", h.withSession(h.handleAudio))
		})
	})

	r.Route("/onboarding", func(r chi.Router) {
		r.Post("/save", h.handleSave)
		r.Post("/complete", h.handleComplete)
		r.Get("/status/{userID}", h.handleStatus)
		r.Get("/data/{userID}", h.handleData)
	})

	r.Post("/tts", h.handleTTS)
}

// Close ends every live interview and waits for their answers to be stored.
func (h *Handler) Close() {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[string]*interview.Session)
	h.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := errorResponse{Error: msg}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	return dec.Decode(v)
}

// statusFor maps interview errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, interview.ErrAnswerRequired):
		return http.StatusUnprocessableEntity
	case errors.Is(err, interview.ErrCompleted),
		errors.Is(err, interview.ErrBusy),
		errors.Is(err, interview.ErrAtStart):
		return http.StatusConflict
	case errors.Is(err, store.ErrMissingUser):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
