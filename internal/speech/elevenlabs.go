package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	DefaultElevenLabsURL = "https://api.elevenlabs.io"
	// DefaultVoiceID is used when no voice is configured and none can be listed.
	DefaultVoiceID  = "EXAVITQu4vr4xnSDxMaL"
	elevenLabsModel = "eleven_monolingual_v1"
)

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
	SpeakingRate    float64 `json:"speaking_rate"`
}

var defaultVoiceSettings = voiceSettings{
	Stability:       0.7,
	SimilarityBoost: 0.85,
	Style:           0,
	UseSpeakerBoost: true,
	SpeakingRate:    0.5,
}

type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// VoiceInfo describes a voice available to an ElevenLabs account.
type VoiceInfo struct {
	ID   string `json:"voice_id"`
	Name string `json:"name"`
}

// APIError is a non-success response from a speech provider.
type APIError struct {
	Provider string
	Status   int
	Body     string
	VoiceID  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Provider, e.Status, e.Body)
}

// ElevenLabs synthesizes speech with the ElevenLabs REST API.
type ElevenLabs struct {
	apiKey  string
	voiceID string
	baseURL string
	client  *retryablehttp.Client
	log     *slog.Logger

	mu       sync.Mutex
	resolved string
}

// ElevenLabsOption configures an ElevenLabs synthesizer.
type ElevenLabsOption func(*ElevenLabs)

// WithElevenLabsURL points the client at another API host.
func WithElevenLabsURL(u string) ElevenLabsOption {
	return func(e *ElevenLabs) { e.baseURL = strings.TrimRight(u, "/") }
}

// WithRetries sets how many times failed requests are retried.
func WithRetries(n int) ElevenLabsOption {
	return func(e *ElevenLabs) { e.client.RetryMax = n }
}

// NewElevenLabs creates a synthesizer. An empty voiceID selects the first
// voice on the account.
func NewElevenLabs(apiKey, voiceID string, log *slog.Logger, opts ...ElevenLabsOption) *ElevenLabs {
	if log == nil {
		log = slog.Default()
	}
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.Logger = log
	// Hand the final response back so provider statuses reach the caller.
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	e := &ElevenLabs{
		apiKey:  apiKey,
		voiceID: voiceID,
		baseURL: DefaultElevenLabsURL,
		client:  client,
		log:     log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *ElevenLabs) Name() string { return "elevenlabs" }

// Synthesize requests MPEG audio for text. The text is sent as given.
func (e *ElevenLabs) Synthesize(ctx context.Context, text string) (Audio, error) {
	voice := e.voice(ctx)
	body, err := json.Marshal(ttsRequest{
		Text:          text,
		ModelID:       elevenLabsModel,
		VoiceSettings: defaultVoiceSettings,
	})
	if err != nil {
		return Audio{}, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/text-to-speech/"+voice, bytes.NewReader(body))
	if err != nil {
		return Audio{}, err
	}
	req.Header.Set("Accept", MIMEMPEG)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return Audio{}, fmt.Errorf("elevenlabs request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Audio{}, fmt.Errorf("read elevenlabs audio: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Provider: e.Name(), Status: resp.StatusCode, Body: string(data), VoiceID: voice}
		if resp.StatusCode == http.StatusNotFound {
			apiErr.Body = "voice ID not found, check the configured ElevenLabs voice"
		}
		return Audio{}, apiErr
	}
	e.log.Debug("elevenlabs synthesis complete", "voice_id", voice, "bytes", len(data))
	return Audio{Data: data, MIMEType: MIMEMPEG}, nil
}

// voice resolves the voice ID: the configured one, else the first voice on
// the account, else DefaultVoiceID. A listed voice is remembered.
func (e *ElevenLabs) voice(ctx context.Context) string {
	if e.voiceID != "" {
		return e.voiceID
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.resolved != "" {
		return e.resolved
	}
	id, err := e.firstVoice(ctx)
	if err != nil || id == "" {
		e.log.Warn("could not list elevenlabs voices, using default voice", "error", err)
		return DefaultVoiceID
	}
	e.resolved = id
	return id
}

func (e *ElevenLabs) firstVoice(ctx context.Context) (string, error) {
	voices, err := e.Voices(ctx)
	if err != nil {
		return "", err
	}
	if len(voices) == 0 {
		return "", nil
	}
	e.log.Info("using first elevenlabs voice", "name", voices[0].Name, "voice_id", voices[0].ID)
	return voices[0].ID, nil
}

// Voices lists the voices available to the account.
func (e *ElevenLabs) Voices(ctx context.Context) ([]VoiceInfo, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/v1/voices", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list voices: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &APIError{Provider: e.Name(), Status: resp.StatusCode, Body: string(body)}
	}
	var out struct {
		Voices []VoiceInfo `json:"voices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode voices: %w", err)
	}
	return out.Voices, nil
}
