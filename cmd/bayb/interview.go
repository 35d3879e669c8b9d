package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	appI18n "github.com/bayb/pathway/internal/i18n"
	"github.com/bayb/pathway/internal/interview"
	"github.com/bayb/pathway/internal/model"
	"github.com/bayb/pathway/internal/questions"
	"github.com/bayb/pathway/internal/speech"
	"github.com/bayb/pathway/internal/store"
)

const (
	transcriptPoll = 100 * time.Millisecond
	transcriptWait = 45 * time.Second
)

const interviewHelp = `Type an answer and press Enter to submit it. Commands:
  :listen   record a spoken answer
  :stop     stop recording and show the transcript
  :next     submit the current transcript (same as an empty line)
  :back     return to the previous question
  :audio    toggle spoken prompts
  :quit     leave; answers given so far are kept
`

func interviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "interview",
		Short: "Run the onboarding interview in the terminal",
		RunE:  runInterview,
	}
	f := cmd.Flags()
	f.StringP("user", "u", "", "User ID the answers are stored under")
	f.StringP("lang", "l", "en", "UI language (en, es)")
	f.Bool("audio", true, "Speak prompts")
	f.Duration("completion-delay", interview.DefaultCompletionDelay, "Pause after the last question")
	f.String("player", speech.DefaultPlayerCommand, "Command that plays MP3 audio from stdin")
	f.String("recorder", speech.DefaultRecorderCommand, "Command that records a WAV file to {file}; empty disables spoken answers")
	f.Duration("max-recording", speech.DefaultMaxRecording, "Longest spoken answer")
	addStoreFlags(f)
	addSpeechFlags(f)
	addLogFlags(f)
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// terminal is one interactive interview bound to stdin and stdout.
type terminal struct {
	ctx     context.Context // carries the localizer
	session *interview.Session
	out     io.Writer
	printed int
}

func runInterview(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)
	userID := v.GetString("user")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kv, err := openKV(ctx, v)
	if err != nil {
		return err
	}
	defer kv.Close()

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	synth, err := buildSynthesizer(v)
	if err != nil {
		return fmt.Errorf("create synthesizer: %w", err)
	}
	var player speech.Player
	if synth != nil {
		p, err := speech.NewCommandPlayer(v.GetString("player"))
		if err != nil {
			slog.Warn("audio playback unavailable, prompts will be printed", "error", err)
		} else {
			player = p
		}
	}
	out := cmd.OutOrStdout()
	voice := speech.NewVoice(synth, player, speech.WithEcho(out))

	catalog := questions.Catalog()
	done := make(chan struct{})
	deps := interview.Deps{
		Speaker:    voice,
		Store:      store.NewOnboarding(kv, catalog),
		OnComplete: func() { close(done) },
	}
	if capture := newCapture(v); capture != nil {
		deps.Listener = capture
	}

	s, err := interview.New(userID, catalog, deps,
		interview.WithAudio(v.GetBool("audio")),
		interview.WithCompletionDelay(v.GetDuration("completion-delay")),
	)
	if err != nil {
		return err
	}
	defer voice.Wait()
	defer s.Close()

	t := &terminal{
		ctx:     appI18n.WithLocalizer(context.Background(), appI18n.NewLocalizer(lang)),
		session: s,
		out:     out,
		printed: -1,
	}
	fmt.Fprintln(out, appI18n.T(t.ctx, "AppTitle"))
	fmt.Fprint(out, interviewHelp)

	s.Start()
	t.show()

	lines := readLines(cmd.InOrStdin())
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case <-done:
			answers := s.View().Answers
			fmt.Fprintln(out, appI18n.T(t.ctx, "InterviewComplete"))
			fmt.Fprintln(out, appI18n.Tp(t.ctx, "AnswersSaved", len(answers)))
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := t.handle(ctx, line); quit {
				return nil
			}
		}
	}
}

// newCapture enables spoken answers when a recorder and a transcription
// backend are configured.
func newCapture(v *viper.Viper) *speech.Capture {
	recorder := v.GetString("recorder")
	if recorder == "" || v.GetString("openai-key") == "" {
		return nil
	}
	c, err := speech.NewCapture(recorder, openAIClient(v), v.GetDuration("max-recording"), slog.Default())
	if err != nil {
		slog.Warn("speech input unavailable", "error", err)
		return nil
	}
	return c
}

func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()
	return lines
}

// handle runs one line of input and reports whether the user quit.
func (t *terminal) handle(ctx context.Context, line string) bool {
	s := t.session
	switch cmd := strings.TrimSpace(line); cmd {
	case ":quit", ":q":
		return true
	case ":back":
		t.report(s.Back())
	case ":audio":
		s.ToggleAudio()
		t.status()
	case ":listen":
		if t.report(s.StartListening()) {
			t.status()
		}
	case ":stop":
		s.StopListening()
		if text, ok := t.awaitTranscript(ctx); ok {
			fmt.Fprintf(t.out, "%s: %s\n", appI18n.T(t.ctx, "YourAnswer"), text)
		}
	case ":next", "":
		t.report(s.Submit())
	default:
		if t.report(s.SetTranscript(line)) {
			t.report(s.Submit())
		}
	}
	t.show()
	return false
}

// awaitTranscript waits for the stopped capture to deliver its final
// transcript.
func (t *terminal) awaitTranscript(ctx context.Context) (string, bool) {
	tick := time.NewTicker(transcriptPoll)
	defer tick.Stop()
	deadline := time.After(transcriptWait)
	for {
		v := t.session.View()
		if v.TranscriptFinal {
			return v.Transcript, v.Transcript != ""
		}
		select {
		case <-ctx.Done():
			return "", false
		case <-deadline:
			return "", false
		case <-tick.C:
		}
	}
}

// show prints the progress header once per question.
func (t *terminal) show() {
	v := t.session.View()
	if v.Status == model.StatusCompleted || v.Position == t.printed {
		return
	}
	t.printed = v.Position
	fmt.Fprintf(t.out, "\n[%s, %s]\n",
		appI18n.Td(t.ctx, "QuestionProgress", map[string]any{"Current": v.Position + 1, "Total": v.Total}),
		appI18n.Td(t.ctx, "PercentComplete", map[string]any{"Percent": int(math.Round(v.Progress))}),
	)
	if !v.AudioEnabled && v.Question != nil {
		fmt.Fprintf(t.out, "BAYB: %s\n", v.Question.Text)
	}
}

func (t *terminal) status() {
	v := t.session.View()
	audio := appI18n.T(t.ctx, "AudioOff")
	if v.AudioEnabled {
		audio = appI18n.T(t.ctx, "AudioOn")
	}
	state := appI18n.T(t.ctx, "TapToAnswer")
	if v.Listening {
		state = appI18n.T(t.ctx, "Listening")
	}
	fmt.Fprintf(t.out, "(%s, %s)\n", audio, state)
}

// report prints a user-facing message for err and reports whether err was nil.
func (t *terminal) report(err error) bool {
	var msg string
	switch {
	case err == nil:
		return true
	case errors.Is(err, interview.ErrAnswerRequired):
		msg = appI18n.T(t.ctx, "AnswerRequired")
	case errors.Is(err, interview.ErrAtStart):
		msg = appI18n.T(t.ctx, "AtFirstQuestion")
	case errors.Is(err, interview.ErrCompleted):
		msg = appI18n.T(t.ctx, "AlreadyCompleted")
	case errors.Is(err, interview.ErrBusy):
		return false
	default:
		msg = err.Error()
	}
	fmt.Fprintln(t.out, msg)
	return false
}
