// Package interview drives one user's onboarding interview turn by turn:
// present a question, capture the answer, persist it, then advance, retreat
// or complete while keeping the active sequence in step with the answers.
package interview

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bayb/pathway/internal/model"
	"github.com/bayb/pathway/internal/sequencer"
)

// DefaultCompletionDelay is the pause between finishing the last turn and
// notifying the host.
const DefaultCompletionDelay = 3 * time.Second

var (
	ErrEmptySequence  = errors.New("interview: active sequence is empty")
	ErrAnswerRequired = errors.New("interview: an answer is required")
	ErrCompleted      = errors.New("interview: already completed")
	ErrAtStart        = errors.New("interview: already at the first question")
	ErrBusy           = errors.New("interview: a submit is already in progress")
	ErrNoListener     = errors.New("interview: no speech input configured")
)

// Option configures a Session.
type Option func(*Session)

// WithCompletionDelay sets the wait before the host is notified.
func WithCompletionDelay(d time.Duration) Option {
	return func(s *Session) { s.delay = d }
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithAfterFunc replaces time.AfterFunc for scheduling the completion notice.
func WithAfterFunc(f func(time.Duration, func())) Option {
	return func(s *Session) { s.afterFunc = f }
}

// WithStoreTimeout bounds each answer write to the store.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *Session) { s.storeTimeout = d }
}

// WithAudio sets whether prompts are spoken initially.
func WithAudio(enabled bool) Option {
	return func(s *Session) { s.audio = enabled }
}

// Session is the state machine for one interview. It is safe for concurrent
// use; collaborators are always called without the session lock held.
type Session struct {
	id           string
	userID       string
	catalog      []model.Question
	speaker      Speaker
	listener     Listener
	onComplete   func()
	delay        time.Duration
	storeTimeout time.Duration
	afterFunc    func(time.Duration, func())
	log          *slog.Logger
	persist      *recorder
	notifyOnce   sync.Once
	mu         sync.Mutex
	answers    model.Answers
	active     []model.Question
	position   int
	status     model.Status
	transcript string
	final      bool
	spoken     int // position whose prompt has been presented, -1 when re-armed
	audio      bool
	speaking   bool
	listening  bool
	utterance  uint64
	capture    uint64
	submitting bool
	closed     bool
}

// New creates a session for userID over catalog. It fails when no question of
// the catalog is active without answers, which is an authoring defect.
func New(userID string, catalog []model.Question, deps Deps, opts ...Option) (*Session, error) {
	s := &Session{
		id:           uuid.New().String(),
		userID:       userID,
		catalog:      catalog,
		speaker:      deps.Speaker,
		listener:     deps.Listener,
		onComplete:   deps.OnComplete,
		delay:        DefaultCompletionDelay,
		storeTimeout: DefaultStoreTimeout,
		afterFunc:    func(d time.Duration, f func()) { time.AfterFunc(d, f) },
		log:          slog.Default(),
		answers:      model.Answers{},
		status:       model.StatusPresenting,
		spoken:       -1,
		audio:        true,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("session_id", s.id, "user_id", userID)

	s.active = sequencer.Active(s.catalog, s.answers)
	if len(s.active) == 0 {
		return nil, ErrEmptySequence
	}
	s.persist = newRecorder(deps.Store, userID, s.storeTimeout, s.log)
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// UserID returns the user the session belongs to.
func (s *Session) UserID() string { return s.userID }

// Start presents the first question.
func (s *Session) Start() {
	s.Present()
}

// Present speaks the current prompt if it has not been presented since the
// session arrived at this position. Repeated calls are no-ops.
func (s *Session) Present() {
	s.mu.Lock()
	effects := s.presentLocked()
	s.mu.Unlock()
	run(effects)
}

// StartListening cancels any speech in flight, clears the transcript and
// starts a new capture.
func (s *Session) StartListening() error {
	s.mu.Lock()
	switch {
	case s.listener == nil:
		s.mu.Unlock()
		return ErrNoListener
	case s.status == model.StatusCompleted:
		s.mu.Unlock()
		return ErrCompleted
	case s.listening:
		s.mu.Unlock()
		return nil
	}
	effects := s.cancelSpeechLocked()
	s.transcript, s.final = "", false
	s.capture++
	id := s.capture
	s.listening = true
	s.mu.Unlock()

	run(effects)
	if err := s.listener.Listen(s.transcriptHooks(id)); err != nil {
		s.mu.Lock()
		if s.capture == id {
			s.listening = false
		}
		s.mu.Unlock()
		s.log.Warn("speech capture failed to start", "error", err)
		return fmt.Errorf("start listening: %w", err)
	}
	return nil
}

// StopListening ends the current capture. A final transcript produced by the
// capture after it stops is still accepted.
func (s *Session) StopListening() {
	s.mu.Lock()
	if !s.listening || s.listener == nil {
		s.mu.Unlock()
		return
	}
	s.listening = false
	s.mu.Unlock()
	s.listener.Stop()
}

// SetTranscript replaces the transcript with typed text, which counts as final.
func (s *Session) SetTranscript(text string) error {
	return s.UpdateTranscript(text, true)
}

// UpdateTranscript replaces the transcript with a recognition result produced
// outside the session's Listener, such as a browser's speech recognizer.
func (s *Session) UpdateTranscript(text string, final bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == model.StatusCompleted {
		return ErrCompleted
	}
	s.transcript, s.final = text, final
	return nil
}

// Submit records the final transcript as the answer to the current question
// and advances. On the last question of the sequence the user was shown it
// completes the interview instead.
func (s *Session) Submit() error {
	s.mu.Lock()
	if s.status == model.StatusCompleted {
		s.mu.Unlock()
		return ErrCompleted
	}
	if s.submitting {
		s.mu.Unlock()
		return ErrBusy
	}

	q := s.active[s.position]
	var answer string
	if s.final {
		answer = strings.TrimSpace(s.transcript)
	}
	if answer == "" && q.RequiresAnswer() {
		s.mu.Unlock()
		return ErrAnswerRequired
	}

	s.submitting = true
	s.status = model.StatusAdvancing
	wasLast := s.position >= len(s.active)-1

	s.answers[q.Field] = answer
	snapshot := s.answers.Clone()
	s.active = sequencer.Active(s.catalog, s.answers)
	s.transcript, s.final = "", false

	effects := []func(){func() { s.persist.saveAnswer(q.Field, answer, snapshot) }}
	effects = append(effects, s.stopCaptureLocked()...)
	effects = append(effects, s.cancelSpeechLocked()...)

	if !wasLast && s.position+1 >= len(s.active) {
		s.log.Warn("active sequence shrank past the current position", "question_id", q.ID, "position", s.position)
		wasLast = true
	}
	if wasLast {
		s.status = model.StatusCompleted
		effects = append(effects,
			func() { s.persist.complete(snapshot) },
			func() { s.afterFunc(s.delay, s.notifyComplete) },
		)
		s.log.Info("interview finished", "answers", len(snapshot))
	} else {
		s.moveLocked(s.position + 1)
		effects = append(effects, s.presentLocked()...)
	}
	s.mu.Unlock()

	run(effects)

	s.mu.Lock()
	s.submitting = false
	s.mu.Unlock()
	return nil
}

// Back returns to the previous question. The answer already given for the
// question being left is kept.
func (s *Session) Back() error {
	s.mu.Lock()
	switch {
	case s.status == model.StatusCompleted:
		s.mu.Unlock()
		return ErrCompleted
	case s.submitting:
		s.mu.Unlock()
		return ErrBusy
	case s.position == 0:
		s.mu.Unlock()
		return ErrAtStart
	}
	s.transcript, s.final = "", false
	effects := s.stopCaptureLocked()
	effects = append(effects, s.cancelSpeechLocked()...)
	s.moveLocked(s.position - 1)
	effects = append(effects, s.presentLocked()...)
	s.mu.Unlock()

	run(effects)
	return nil
}

// SetAudio enables or disables spoken prompts. Disabling cancels speech in
// flight immediately.
func (s *Session) SetAudio(enabled bool) {
	s.mu.Lock()
	effects := s.setAudioLocked(enabled)
	s.mu.Unlock()
	run(effects)
}

// ToggleAudio flips the audio setting and returns the new value.
func (s *Session) ToggleAudio() bool {
	s.mu.Lock()
	enabled := !s.audio
	effects := s.setAudioLocked(enabled)
	s.mu.Unlock()
	run(effects)
	return enabled
}

// Completed reports whether the interview has finished.
func (s *Session) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status == model.StatusCompleted
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// View returns a snapshot of the session for display.
func (s *Session) View() model.SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := model.SessionView{
		ID:              s.id,
		UserID:          s.userID,
		Status:          s.status,
		Position:        s.position,
		Total:           len(s.active),
		Transcript:      s.transcript,
		TranscriptFinal: s.final,
		AudioEnabled:    s.audio,
		Speaking:        s.speaking,
		Listening:       s.listening,
		Progress:        sequencer.Progress(s.position, s.active),
		CanGoBack:       s.position > 0 && s.status != model.StatusCompleted,
		IsLast:          s.position >= len(s.active)-1,
		Answers:         s.answers.Clone(),
	}
	if s.position < len(s.active) {
		q := s.active[s.position]
		q.When = nil
		v.Question = &q
		v.RequiresAnswer = q.RequiresAnswer()
	}
	return v
}

// Close stops capture and speech and waits for pending answer writes.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	effects := s.stopCaptureLocked()
	effects = append(effects, s.cancelSpeechLocked()...)
	s.mu.Unlock()

	run(effects)
	s.persist.close()
}

func (s *Session) notifyComplete() {
	s.notifyOnce.Do(func() {
		if s.onComplete != nil {
			s.onComplete()
		}
	})
}

// moveLocked changes position and re-arms the prompt for it.
func (s *Session) moveLocked(position int) {
	s.position = position
	s.spoken = -1
	s.status = model.StatusPresenting
}

func (s *Session) presentLocked() []func() {
	if s.status == model.StatusCompleted || s.spoken == s.position {
		return nil
	}
	s.spoken = s.position
	if !s.audio || s.speaker == nil {
		s.status = model.StatusAwaitingAnswer
		return nil
	}

	s.status = model.StatusPresenting
	s.utterance++
	id := s.utterance
	s.speaking = true
	text := s.active[s.position].Text
	hooks := s.speechHooks(id)
	return []func(){func() { s.speaker.Speak(text, hooks) }}
}

func (s *Session) setAudioLocked(enabled bool) []func() {
	s.audio = enabled
	if enabled {
		return nil
	}
	return s.cancelSpeechLocked()
}

func (s *Session) cancelSpeechLocked() []func() {
	if !s.speaking {
		return nil
	}
	s.utterance++
	s.speaking = false
	if s.status == model.StatusPresenting {
		s.status = model.StatusAwaitingAnswer
	}
	return []func(){s.speaker.Cancel}
}

func (s *Session) stopCaptureLocked() []func() {
	s.capture++
	if !s.listening {
		return nil
	}
	s.listening = false
	return []func(){s.listener.Stop}
}

func (s *Session) speechHooks(id uint64) model.SpeechHooks {
	done := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.utterance != id {
			return
		}
		s.speaking = false
		if s.status == model.StatusPresenting {
			s.status = model.StatusAwaitingAnswer
		}
	}
	return model.SpeechHooks{
		OnEnd: done,
		OnError: func(err error) {
			s.log.Warn("speech playback failed", "error", err)
			done()
		},
	}
}

func (s *Session) transcriptHooks(id uint64) model.TranscriptHooks {
	return model.TranscriptHooks{
		OnTranscript: func(text string, final bool) {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.capture != id {
				return
			}
			s.transcript, s.final = text, final
		},
		OnEnd: func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.capture == id {
				s.listening = false
			}
		},
		OnError: func(err error) {
			s.log.Warn("speech capture failed", "error", err)
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.capture == id {
				s.listening = false
			}
		},
	}
}

func run(effects []func()) {
	for _, f := range effects {
		f()
	}
}
