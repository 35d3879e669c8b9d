package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bayb/pathway/internal/model"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPreprocess(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"brand name", "Welcome to BAYB", "Welcome to babe"},
		{"abbreviation", "I'm your COO and your coo", "I'm your Chief Operating Officer and your Chief Operating Officer"},
		{"abbreviation inside word", "cooking", "cooking"},
		{"perfect comma", "Perfect, thank you", "Perfect thank you"},
		{"quote before period", "Say 'hi'. Now go", "Say 'hi... Now go"},
		{"trailing period dropped", "Hello Gorgeous. Are you ready.", "Hello Gorgeous... Are you ready"},
		{"trailing question dropped", "What is your name darling?", "What is your name darling"},
		{"inner question pauses", "Ready? Go", "Ready?......... Go"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Preprocess(tt.in))
		})
	}
}

type fakeSynth struct {
	name  string
	err   error
	calls atomic.Int32
}

func (f *fakeSynth) Name() string { return f.name }

func (f *fakeSynth) Synthesize(_ context.Context, text string) (Audio, error) {
	f.calls.Add(1)
	if f.err != nil {
		return Audio{}, f.err
	}
	return Audio{Data: []byte(f.name + ":" + text), MIMEType: MIMEMPEG}, nil
}

func TestChainFallsBack(t *testing.T) {
	failing := &fakeSynth{name: "first", err: errors.New("quota exceeded")}
	working := &fakeSynth{name: "second"}

	audio, err := Chain{failing, working}.Synthesize(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "second:hi", string(audio.Data))
	assert.EqualValues(t, 1, failing.calls.Load())

	_, err = Chain{failing}.Synthesize(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrNoSynthesizer)
	assert.ErrorContains(t, err, "quota exceeded")

	_, err = Chain{}.Synthesize(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrNoSynthesizer)
}

func TestCache(t *testing.T) {
	next := &fakeSynth{name: "voice"}
	c, err := NewCache(next, 2)
	require.NoError(t, err)
	assert.Equal(t, "voice", c.Name())

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := c.Synthesize(ctx, "a")
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, next.calls.Load())

	_, _ = c.Synthesize(ctx, "b")
	_, _ = c.Synthesize(ctx, "c")
	assert.Equal(t, 2, c.Len())
	_, _ = c.Synthesize(ctx, "a")
	assert.EqualValues(t, 4, next.calls.Load(), "evicted clip is synthesized again")

	failing := &fakeSynth{name: "down", err: errors.New("down")}
	fc, err := NewCache(failing, 2)
	require.NoError(t, err)
	_, err = fc.Synthesize(ctx, "a")
	require.Error(t, err)
	assert.Zero(t, fc.Len(), "errors are not cached")

	_, err = NewCache(next, 0)
	assert.Error(t, err)
}

// blockingPlayer plays until released or cancelled.
type blockingPlayer struct {
	started chan string
	release chan struct{}
	err     error
}

func newBlockingPlayer() *blockingPlayer {
	return &blockingPlayer{started: make(chan string, 8), release: make(chan struct{})}
}

func (p *blockingPlayer) Play(ctx context.Context, audio Audio) error {
	p.started <- string(audio.Data)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.release:
		return p.err
	}
}

type hookRecorder struct {
	mu     sync.Mutex
	starts int
	ends   int
	errs   []error
	done   chan struct{}
}

func newHookRecorder() *hookRecorder {
	return &hookRecorder{done: make(chan struct{}, 1)}
}

func (r *hookRecorder) hooks() model.SpeechHooks {
	return model.SpeechHooks{
		OnStart: func() {
			r.mu.Lock()
			r.starts++
			r.mu.Unlock()
		},
		OnEnd: func() {
			r.mu.Lock()
			r.ends++
			r.mu.Unlock()
			r.done <- struct{}{}
		},
		OnError: func(err error) {
			r.mu.Lock()
			r.errs = append(r.errs, err)
			r.mu.Unlock()
			r.done <- struct{}{}
		},
	}
}

func (r *hookRecorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatal("utterance did not finish")
	}
}

func (r *hookRecorder) counts() (starts, ends, errs int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.starts, r.ends, len(r.errs)
}

func TestVoicePlaysPreprocessedText(t *testing.T) {
	player := newBlockingPlayer()
	v := NewVoice(&fakeSynth{name: "s"}, player, WithVoiceLogger(quietLogger()))
	rec := newHookRecorder()

	v.Speak("Welcome to BAYB.", rec.hooks())
	assert.Equal(t, "s:Welcome to babe", <-player.started)
	close(player.release)
	rec.wait(t)
	v.Wait()

	starts, ends, errs := rec.counts()
	assert.Equal(t, 1, starts)
	assert.Equal(t, 1, ends)
	assert.Zero(t, errs)
}

func TestVoiceCancelEndsUtterance(t *testing.T) {
	player := newBlockingPlayer()
	v := NewVoice(&fakeSynth{name: "s"}, player, WithVoiceLogger(quietLogger()))
	rec := newHookRecorder()

	v.Speak("one", rec.hooks())
	<-player.started
	v.Cancel()
	rec.wait(t)
	v.Wait()

	_, ends, errs := rec.counts()
	assert.Equal(t, 1, ends)
	assert.Zero(t, errs)
}

func TestVoiceNewUtteranceReplacesOld(t *testing.T) {
	player := newBlockingPlayer()
	v := NewVoice(&fakeSynth{name: "s"}, player, WithVoiceLogger(quietLogger()))
	first, second := newHookRecorder(), newHookRecorder()

	v.Speak("one", first.hooks())
	assert.Equal(t, "s:one", <-player.started)
	v.Speak("two", second.hooks())
	first.wait(t)
	assert.Equal(t, "s:two", <-player.started)
	close(player.release)
	second.wait(t)
	v.Wait()

	_, ends, _ := first.counts()
	assert.Equal(t, 1, ends)
	_, ends, _ = second.counts()
	assert.Equal(t, 1, ends)
}

func TestVoiceFailureReportsError(t *testing.T) {
	v := NewVoice(&fakeSynth{name: "s", err: errors.New("unauthorized")}, newBlockingPlayer(), WithVoiceLogger(quietLogger()))
	rec := newHookRecorder()

	v.Speak("hello", rec.hooks())
	rec.wait(t)
	v.Wait()

	_, ends, errs := rec.counts()
	assert.Zero(t, ends)
	assert.Equal(t, 1, errs)
}

func TestVoiceEchoFallback(t *testing.T) {
	var out bytes.Buffer
	v := NewVoice(nil, nil, WithEcho(&out), WithVoiceLogger(quietLogger()))
	rec := newHookRecorder()

	v.Speak("What is your name darling?", rec.hooks())
	rec.wait(t)
	v.Wait()

	assert.Equal(t, "BAYB: What is your name darling?\n", out.String())
	_, ends, errs := rec.counts()
	assert.Equal(t, 1, ends)
	assert.Zero(t, errs)
}

func TestVoiceWithoutAnythingErrors(t *testing.T) {
	v := NewVoice(nil, nil, WithVoiceLogger(quietLogger()))
	rec := newHookRecorder()
	v.Speak("hello", rec.hooks())
	rec.wait(t)
	v.Wait()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.errs, 1)
	assert.ErrorIs(t, rec.errs[0], ErrNoSynthesizer)
}

func TestElevenLabsVoiceSelection(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		voices     string
		voicesCode int
		wantVoice  string
	}{
		{"configured voice", "cfg-voice", `{"voices":[{"voice_id":"listed","name":"Rachel"}]}`, http.StatusOK, "cfg-voice"},
		{"first listed voice", "", `{"voices":[{"voice_id":"listed","name":"Rachel"},{"voice_id":"other"}]}`, http.StatusOK, "listed"},
		{"no voices listed", "", `{"voices":[]}`, http.StatusOK, DefaultVoiceID},
		{"listing fails", "", `unauthorized`, http.StatusUnauthorized, DefaultVoiceID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath string
			var gotBody ttsRequest
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "key", r.Header.Get("xi-api-key"))
				if r.URL.Path == "/v1/voices" {
					w.WriteHeader(tt.voicesCode)
					_, _ = io.WriteString(w, tt.voices)
					return
				}
				gotPath = r.URL.Path
				_ = json.NewDecoder(r.Body).Decode(&gotBody)
				w.Header().Set("Content-Type", MIMEMPEG)
				_, _ = w.Write([]byte("mp3"))
			}))
			defer srv.Close()

			e := NewElevenLabs("key", tt.configured, quietLogger(), WithElevenLabsURL(srv.URL), WithRetries(0))
			audio, err := e.Synthesize(context.Background(), "hello")
			require.NoError(t, err)

			assert.Equal(t, "/v1/text-to-speech/"+tt.wantVoice, gotPath)
			assert.Equal(t, "mp3", string(audio.Data))
			assert.Equal(t, MIMEMPEG, audio.MIMEType)
			assert.Equal(t, "hello", gotBody.Text)
			assert.Equal(t, "eleven_monolingual_v1", gotBody.ModelID)
			assert.Equal(t, defaultVoiceSettings, gotBody.VoiceSettings)
		})
	}
}

func TestElevenLabsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "missing voice", http.StatusNotFound)
	}))
	defer srv.Close()

	e := NewElevenLabs("key", "gone", quietLogger(), WithElevenLabsURL(srv.URL), WithRetries(0))
	_, err := e.Synthesize(context.Background(), "hello")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "gone", apiErr.VoiceID)
	assert.Contains(t, apiErr.Body, "voice ID not found")
}

type fakeTranscriber struct {
	text string
	err  error
}

func (f fakeTranscriber) Transcribe(context.Context, string) (string, error) {
	return f.text, f.err
}

type transcriptRecorder struct {
	mu      sync.Mutex
	texts   []string
	finals  []bool
	ended   bool
	err     error
	settled chan struct{}
}

func (r *transcriptRecorder) hooks() model.TranscriptHooks {
	return model.TranscriptHooks{
		OnTranscript: func(text string, final bool) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.texts = append(r.texts, text)
			r.finals = append(r.finals, final)
		},
		OnEnd: func() {
			r.mu.Lock()
			r.ended = true
			r.mu.Unlock()
			close(r.settled)
		},
		OnError: func(err error) {
			r.mu.Lock()
			r.err = err
			r.mu.Unlock()
			close(r.settled)
		},
	}
}

func TestCaptureReportsFinalTranscript(t *testing.T) {
	c, err := NewCapture("true {file}", fakeTranscriber{text: "My name is Maria"}, time.Second, quietLogger())
	require.NoError(t, err)

	rec := &transcriptRecorder{settled: make(chan struct{})}
	require.NoError(t, c.Listen(rec.hooks()))
	c.Stop()

	select {
	case <-rec.settled:
	case <-time.After(5 * time.Second):
		t.Fatal("capture did not finish")
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []string{"My name is Maria"}, rec.texts)
	assert.Equal(t, []bool{true}, rec.finals)
	assert.True(t, rec.ended)
	assert.NoError(t, rec.err)
}

func TestCaptureTranscriptionError(t *testing.T) {
	c, err := NewCapture("true {file}", fakeTranscriber{err: errors.New("rate limited")}, time.Second, quietLogger())
	require.NoError(t, err)

	rec := &transcriptRecorder{settled: make(chan struct{})}
	require.NoError(t, c.Listen(rec.hooks()))

	select {
	case <-rec.settled:
	case <-time.After(5 * time.Second):
		t.Fatal("capture did not finish")
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Empty(t, rec.texts)
	assert.ErrorContains(t, rec.err, "rate limited")
}

type gatedTranscriber struct {
	release chan struct{}
}

func (g gatedTranscriber) Transcribe(ctx context.Context, _ string) (string, error) {
	select {
	case <-g.release:
		return "answer", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestCaptureRestartsWhileTranscribing(t *testing.T) {
	gate := gatedTranscriber{release: make(chan struct{})}
	c, err := NewCapture("tail -f {file}", gate, 10*time.Second, quietLogger())
	require.NoError(t, err)

	first := &transcriptRecorder{settled: make(chan struct{})}
	require.NoError(t, c.Listen(first.hooks()))
	assert.ErrorIs(t, c.Listen(model.TranscriptHooks{}), ErrCapturing)

	c.Stop()
	second := &transcriptRecorder{settled: make(chan struct{})}
	require.NoError(t, c.Listen(second.hooks()), "a stopped capture frees the recorder at once")
	c.Stop()

	close(gate.release)
	for _, rec := range []*transcriptRecorder{first, second} {
		select {
		case <-rec.settled:
		case <-time.After(5 * time.Second):
			t.Fatal("capture did not finish")
		}
		rec.mu.Lock()
		assert.Equal(t, []string{"answer"}, rec.texts)
		assert.NoError(t, rec.err)
		rec.mu.Unlock()
	}
}

func TestNewCaptureValidates(t *testing.T) {
	_, err := NewCapture("", fakeTranscriber{}, 0, nil)
	assert.Error(t, err)
	_, err = NewCapture("sox -d out.wav", fakeTranscriber{}, 0, nil)
	assert.Error(t, err)
	_, err = NewCapture("sox -d {file}", nil, 0, nil)
	assert.Error(t, err)
}
