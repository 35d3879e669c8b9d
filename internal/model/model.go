package model

import (
	"strings"
	"time"
)

// Question ids with special turn semantics.
const (
	IntroID      = "intro"
	CompletionID = "completion"

	// SectionIntroSuffix marks section-intro questions, which need no answer.
	SectionIntroSuffix = "_intro"
)

// Answers maps an answer field to the raw answer text.
type Answers map[string]string

// Get returns the answer for field, or "" when it has not been given.
func (a Answers) Get(field string) string {
	if a == nil {
		return ""
	}
	return a[field]
}

// Clone returns an independent copy of the answers.
func (a Answers) Clone() Answers {
	c := make(Answers, len(a))
	for k, v := range a {
		c[k] = v
	}
	return c
}

// Condition gates a question on previously collected answers.
type Condition struct {
	// DependsOn lists every answer field Match reads.
	DependsOn []string
	Match     func(Answers) bool
}

// Question is one entry of the interview catalog.
type Question struct {
	ID      string     `json:"id" yaml:"id"`
	Text    string     `json:"text" yaml:"text"`
	Field   string     `json:"field" yaml:"field"`
	Section string     `json:"section" yaml:"section"`
	When    *Condition `json:"-" yaml:"-"` // nil means always active
}

// Active reports whether the question applies given the current answers.
func (q Question) Active(a Answers) bool {
	if q.When == nil || q.When.Match == nil {
		return true
	}
	return q.When.Match(a)
}

// Conditional reports whether the question carries a gating predicate.
func (q Question) Conditional() bool {
	return q.When != nil
}

// RequiresAnswer is false for the introduction, the completion marker and
// section intros.
func (q Question) RequiresAnswer() bool {
	switch {
	case q.ID == IntroID, q.ID == CompletionID:
		return false
	case strings.HasSuffix(q.ID, SectionIntroSuffix):
		return false
	}
	return true
}

// Status represents the lifecycle state of an interview session.
type Status string

const (
	StatusPresenting     Status = "presenting"
	StatusAwaitingAnswer Status = "awaiting_answer"
	StatusAdvancing      Status = "advancing"
	StatusCompleted      Status = "completed"
)

// SpeechHooks receive the lifecycle of one synthesized utterance. Exactly one
// of OnEnd and OnError fires for every utterance that started.
type SpeechHooks struct {
	OnStart func()
	OnEnd   func()
	OnError func(error)
}

// TranscriptHooks receive the results of one speech capture.
type TranscriptHooks struct {
	OnTranscript func(text string, final bool)
	OnEnd        func()
	OnError      func(error)
}

// SessionView is a read-only snapshot of an interview session for display.
type SessionView struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	Status          Status    `json:"status"`
	Position        int       `json:"position"`
	Total           int       `json:"total"`
	Question        *Question `json:"question,omitempty"`
	RequiresAnswer  bool      `json:"requires_answer"`
	Transcript      string    `json:"transcript"`
	TranscriptFinal bool      `json:"transcript_final"`
	AudioEnabled    bool      `json:"audio_enabled"`
	Speaking        bool      `json:"speaking"`
	Listening       bool      `json:"listening"`
	Progress        float64   `json:"progress"`
	CanGoBack       bool      `json:"can_go_back"`
	IsLast          bool      `json:"is_last"`
	Answers         Answers   `json:"answers"`
}

// OnboardingStatus is the persisted state of a user's onboarding.
type OnboardingStatus struct {
	UserID      string     `json:"user_id"`
	Complete    bool       `json:"onboarding_complete"`
	HasAnswers  bool       `json:"has_answers"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Answers     Answers    `json:"answers"`
}

// InterviewConfig holds runtime interview parameters set via CLI flags.
type InterviewConfig struct {
	CompletionDelay time.Duration // wait before notifying the host of completion
	AudioEnabled    bool          // initial audio state of new sessions
	Lang            string        // UI language for labels
}
