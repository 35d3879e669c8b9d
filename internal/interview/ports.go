package interview

import (
	"context"

	"github.com/bayb/pathway/internal/model"
)

// Speaker synthesizes prompts. Speak must not block on playback; Cancel stops
// any utterance in flight and is safe to call when idle.
type Speaker interface {
	Speak(text string, hooks model.SpeechHooks)
	Cancel()
}

// Listener captures the user's spoken answer and reports transcripts.
type Listener interface {
	Listen(hooks model.TranscriptHooks) error
	Stop()
}

// AnswerStore persists answers on behalf of a session. Calls are best effort:
// a failure is logged and never stops the interview.
type AnswerStore interface {
	SaveAnswer(ctx context.Context, userID, field, value string, snapshot model.Answers) error
	CompleteInterview(ctx context.Context, userID string, snapshot model.Answers) error
}

// Deps are the collaborators a session drives. Only Store may be shared
// between sessions; Speaker and Listener belong to one session.
type Deps struct {
	Speaker    Speaker
	Listener   Listener // optional; typed answers still work without it
	Store      AnswerStore
	OnComplete func()
}
