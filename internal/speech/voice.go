package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/bayb/pathway/internal/model"
)

// DefaultUtteranceTimeout bounds synthesis plus playback of one prompt.
const DefaultUtteranceTimeout = 2 * time.Minute

// Voice speaks interview prompts. It synthesizes with the first synthesizer
// that succeeds, plays the result, and falls back to printing the prompt when
// no audio can be produced. Only one utterance plays at a time; starting a
// new one cancels the previous.
type Voice struct {
	synth   Synthesizer
	player  Player
	echo    io.Writer
	timeout time.Duration
	log     *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// VoiceOption configures a Voice.
type VoiceOption func(*Voice)

// WithEcho prints each prompt to w, and uses it as the fallback when audio
// cannot be produced.
func WithEcho(w io.Writer) VoiceOption {
	return func(v *Voice) { v.echo = w }
}

// WithUtteranceTimeout bounds a single utterance.
func WithUtteranceTimeout(d time.Duration) VoiceOption {
	return func(v *Voice) { v.timeout = d }
}

// WithVoiceLogger sets the logger.
func WithVoiceLogger(l *slog.Logger) VoiceOption {
	return func(v *Voice) { v.log = l }
}

// NewVoice creates a Voice. synth and player may be nil, in which case
// prompts are only echoed.
func NewVoice(synth Synthesizer, player Player, opts ...VoiceOption) *Voice {
	v := &Voice{
		synth:   synth,
		player:  player,
		timeout: DefaultUtteranceTimeout,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Speak starts an utterance and returns immediately. Exactly one of
// hooks.OnEnd or hooks.OnError fires for it; cancellation counts as an end.
func (v *Voice) Speak(text string, hooks model.SpeechHooks) {
	v.mu.Lock()
	if v.cancel != nil {
		v.cancel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	prev := v.done
	done := make(chan struct{})
	v.cancel, v.done = cancel, done
	v.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()
		if prev != nil {
			<-prev
		}
		v.utter(ctx, text, hooks)
	}()
}

// Cancel stops the utterance in flight, if any.
func (v *Voice) Cancel() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cancel != nil {
		v.cancel()
	}
}

// Wait blocks until the current utterance has finished.
func (v *Voice) Wait() {
	v.mu.Lock()
	done := v.done
	v.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (v *Voice) utter(ctx context.Context, text string, hooks model.SpeechHooks) {
	finish := func(err error) {
		switch {
		case err == nil, errors.Is(err, context.Canceled):
			if hooks.OnEnd != nil {
				hooks.OnEnd()
			}
		case hooks.OnError != nil:
			hooks.OnError(err)
		}
	}

	if ctx.Err() != nil {
		finish(context.Canceled)
		return
	}
	if hooks.OnStart != nil {
		hooks.OnStart()
	}
	if v.echo != nil {
		fmt.Fprintf(v.echo, "BAYB: %s\n", text)
	}

	err := v.play(ctx, text)
	if errors.Is(err, context.Canceled) {
		finish(err)
		return
	}
	if err != nil && v.echo != nil {
		// The prompt is already on screen.
		if v.synth != nil {
			v.log.Warn("speech unavailable, prompt shown as text", "error", err)
		}
		err = nil
	}
	finish(err)
}

func (v *Voice) play(ctx context.Context, text string) error {
	if v.synth == nil || v.player == nil {
		return ErrNoSynthesizer
	}
	audio, err := v.synth.Synthesize(ctx, Preprocess(text))
	if err != nil {
		return err
	}
	if err := v.player.Play(ctx, audio); err != nil {
		return fmt.Errorf("play prompt: %w", err)
	}
	return nil
}
