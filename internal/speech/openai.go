package speech

import (
	"context"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI wraps an OpenAI-compatible API client for speech synthesis and
// transcription.
type OpenAI struct {
	api      *openai.Client
	voice    openai.SpeechVoice
	ttsModel openai.SpeechModel
	sttModel string
	language string
}

// OpenAIConfig selects the endpoint and models.
type OpenAIConfig struct {
	BaseURL  string
	APIKey   string
	Voice    string // e.g. "nova"
	TTSModel string // e.g. "tts-1"
	STTModel string // e.g. "whisper-1"
	Language string // ISO-639-1 hint for transcription
}

// NewOpenAI creates a new client. Empty config fields take the defaults.
func NewOpenAI(cfg OpenAIConfig) *OpenAI {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	o := &OpenAI{
		api:      openai.NewClientWithConfig(config),
		voice:    openai.VoiceNova,
		ttsModel: openai.TTSModel1,
		sttModel: openai.Whisper1,
		language: cfg.Language,
	}
	if cfg.Voice != "" {
		o.voice = openai.SpeechVoice(cfg.Voice)
	}
	if cfg.TTSModel != "" {
		o.ttsModel = openai.SpeechModel(cfg.TTSModel)
	}
	if cfg.STTModel != "" {
		o.sttModel = cfg.STTModel
	}
	return o
}

func (o *OpenAI) Name() string { return "openai" }

// Synthesize renders text as MP3 speech.
func (o *OpenAI) Synthesize(ctx context.Context, text string) (Audio, error) {
	resp, err := o.api.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          o.ttsModel,
		Input:          text,
		Voice:          o.voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return Audio{}, fmt.Errorf("openai speech call: %w", err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return Audio{}, fmt.Errorf("read openai speech: %w", err)
	}
	return Audio{Data: data, MIMEType: MIMEMPEG}, nil
}

// Transcribe converts a recorded audio file to text.
func (o *OpenAI) Transcribe(ctx context.Context, path string) (string, error) {
	resp, err := o.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    o.sttModel,
		FilePath: path,
		Language: o.language,
	})
	if err != nil {
		return "", fmt.Errorf("openai transcription call: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
