package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/bayb/pathway/internal/questions"
	"github.com/bayb/pathway/internal/speech"
	"github.com/bayb/pathway/internal/store"
)

func main() {
	_ = godotenv.Load()
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "bayb",
		Short: "Voice-driven onboarding interview for BAYB",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			setupLogging(cmd)
			if err := questions.Validate(questions.Catalog()); err != nil {
				return fmt.Errorf("question catalog: %w", err)
			}
			return nil
		},
		SilenceUsage: true,
	}

	serve := serveCmd()
	root.AddCommand(serve, interviewCmd(), statusCmd(), exportCmd(), catalogCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addLogFlags(f *pflag.FlagSet) {
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func addStoreFlags(f *pflag.FlagSet) {
	f.String("db", "bayb.db", "SQLite database path")
	f.String("redis-addr", "", "Redis address; when set answers are stored in Redis instead of SQLite")
	f.String("redis-password", "", "Redis password")
	f.Int("redis-db", 0, "Redis database number")
}

func addSpeechFlags(f *pflag.FlagSet) {
	f.String("elevenlabs-key", "", "ElevenLabs API key")
	f.String("elevenlabs-voice", "", "ElevenLabs voice ID (default: first voice on the account)")
	f.String("openai-url", "", "OpenAI-compatible API base URL")
	f.String("openai-key", "", "OpenAI API key for speech synthesis and transcription")
	f.String("openai-voice", "nova", "OpenAI voice name")
	f.Int("tts-cache", 128, "Number of synthesized prompts kept in memory")
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("BAYB")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("bayb")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/bayb")
	v.AddConfigPath("/etc/bayb")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// openKV opens Redis when an address is configured and SQLite otherwise.
func openKV(ctx context.Context, v *viper.Viper) (store.KV, error) {
	if addr := v.GetString("redis-addr"); addr != "" {
		kv, err := store.NewRedis(ctx, addr, v.GetString("redis-password"), v.GetInt("redis-db"))
		if err != nil {
			return nil, err
		}
		slog.Info("using redis store", "addr", addr)
		return kv, nil
	}
	kv, err := store.New(v.GetString("db"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	slog.Info("using sqlite store", "path", v.GetString("db"))
	return kv, nil
}

// buildSynthesizer chains the configured providers, ElevenLabs first, behind
// a prompt cache. It returns nil when no provider is configured.
func buildSynthesizer(v *viper.Viper) (speech.Synthesizer, error) {
	var chain speech.Chain
	if key := v.GetString("elevenlabs-key"); key != "" {
		chain = append(chain, speech.NewElevenLabs(key, v.GetString("elevenlabs-voice"), slog.Default()))
	}
	if key := v.GetString("openai-key"); key != "" {
		chain = append(chain, openAIClient(v))
	}
	if len(chain) == 0 {
		return nil, nil
	}
	names := make([]string, len(chain))
	for i, s := range chain {
		names[i] = s.Name()
	}
	slog.Info("speech synthesis enabled", "providers", names)

	if size := v.GetInt("tts-cache"); size > 0 {
		cache, err := speech.NewCache(chain, size)
		if err != nil {
			return nil, err
		}
		return cache, nil
	}
	return chain, nil
}

func openAIClient(v *viper.Viper) *speech.OpenAI {
	return speech.NewOpenAI(speech.OpenAIConfig{
		BaseURL:  v.GetString("openai-url"),
		APIKey:   v.GetString("openai-key"),
		Voice:    v.GetString("openai-voice"),
		Language: v.GetString("lang"),
	})
}
