package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/bayb/pathway/internal/model"
)

// DefaultRecorderCommand records from the default microphone into {file}.
const DefaultRecorderCommand = "sox -q -d -c 1 -r 16000 {file}"

const (
	DefaultMaxRecording      = 60 * time.Second
	defaultTranscribeTimeout = 30 * time.Second
	stopGrace                = 2 * time.Second
)

// ErrCapturing is returned by Listen while a capture is already running.
var ErrCapturing = errors.New("speech: capture already in progress")

// Transcriber converts a recorded audio file to text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

// Capture records a spoken answer with an external command and transcribes
// it once recording stops.
type Capture struct {
	name        string
	args        []string
	transcriber Transcriber
	maxDuration time.Duration
	log         *slog.Logger

	mu      sync.Mutex
	current uint64 // recording in progress, 0 when idle
	seq     uint64
	stop    context.CancelFunc
}

// NewCapture parses a recorder command line in which {file} stands for the
// output path.
func NewCapture(cmdline string, t Transcriber, maxDuration time.Duration, log *slog.Logger) (*Capture, error) {
	fields := strings.Fields(cmdline)
	if len(fields) == 0 {
		return nil, errors.New("recorder command is empty")
	}
	if t == nil {
		return nil, errors.New("capture needs a transcriber")
	}
	if !strings.Contains(cmdline, "{file}") {
		return nil, fmt.Errorf("recorder command %q has no {file} placeholder", cmdline)
	}
	if maxDuration <= 0 {
		maxDuration = DefaultMaxRecording
	}
	if log == nil {
		log = slog.Default()
	}
	return &Capture{
		name:        fields[0],
		args:        fields[1:],
		transcriber: t,
		maxDuration: maxDuration,
		log:         log,
	}, nil
}

// Listen starts recording. The transcript is reported as final once Stop is
// called or the maximum duration elapses, followed by OnEnd.
func (c *Capture) Listen(hooks model.TranscriptHooks) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		return ErrCapturing
	}

	f, err := os.CreateTemp("", "bayb-answer-*.wav")
	if err != nil {
		return fmt.Errorf("create recording file: %w", err)
	}
	path := f.Name()
	f.Close()

	ctx, stop := context.WithTimeout(context.Background(), c.maxDuration)
	cmd := exec.CommandContext(ctx, c.name, c.expand(path)...)
	// Interrupt rather than kill so the recorder finalizes the file.
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = stopGrace
	if err := cmd.Start(); err != nil {
		stop()
		os.Remove(path)
		return fmt.Errorf("start recorder %s: %w", c.name, err)
	}
	c.seq++
	c.current, c.stop = c.seq, stop
	c.log.Debug("recording started", "file", path)

	go c.finish(ctx, c.seq, stop, cmd, path, hooks)
	return nil
}

// Stop ends the current recording. Transcription continues in the background
// and a new recording may start right away.
func (c *Capture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		c.stop()
	}
	c.current, c.stop = 0, nil
}

func (c *Capture) finish(ctx context.Context, id uint64, stop context.CancelFunc, cmd *exec.Cmd, path string, hooks model.TranscriptHooks) {
	defer os.Remove(path)

	waitErr := cmd.Wait()
	stop()
	c.mu.Lock()
	if c.current == id {
		c.current, c.stop = 0, nil
	}
	c.mu.Unlock()

	if waitErr != nil && ctx.Err() == nil {
		c.fail(hooks, fmt.Errorf("recorder %s: %w", c.name, waitErr))
		return
	}

	tctx, cancel := context.WithTimeout(context.Background(), defaultTranscribeTimeout)
	defer cancel()
	text, err := c.transcriber.Transcribe(tctx, path)
	if err != nil {
		c.fail(hooks, err)
		return
	}
	if hooks.OnTranscript != nil {
		hooks.OnTranscript(text, true)
	}
	if hooks.OnEnd != nil {
		hooks.OnEnd()
	}
}

func (c *Capture) fail(hooks model.TranscriptHooks, err error) {
	c.log.Warn("speech capture failed", "error", err)
	if hooks.OnError != nil {
		hooks.OnError(err)
	}
}

func (c *Capture) expand(path string) []string {
	args := make([]string, len(c.args))
	for i, a := range c.args {
		args[i] = strings.ReplaceAll(a, "{file}", path)
	}
	return args
}
