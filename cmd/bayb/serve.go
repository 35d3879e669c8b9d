package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bayb/pathway/internal/handler"
	appI18n "github.com/bayb/pathway/internal/i18n"
	"github.com/bayb/pathway/internal/interview"
	"github.com/bayb/pathway/internal/model"
	"github.com/bayb/pathway/internal/questions"
	"github.com/bayb/pathway/internal/store"
)

const shutdownTimeout = 15 * time.Second

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP onboarding server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.StringP("lang", "l", "en", "Default UI language (en, es)")
	f.Duration("completion-delay", interview.DefaultCompletionDelay, "Pause before a finished interview is reported")
	f.Bool("audio", true, "Speak prompts in new interviews")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /onboarding)")
	addStoreFlags(f)
	addSpeechFlags(f)
	addLogFlags(f)
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	v := viperForCmd(cmd)

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

	catalog := questions.Catalog()
	cfg := model.InterviewConfig{
		CompletionDelay: v.GetDuration("completion-delay"),
		AudioEnabled:    v.GetBool("audio"),
		Lang:            lang,
	}
	h := handler.New(catalog, store.NewOnboarding(kv, catalog), synth, cfg)

	basePath := strings.TrimRight(v.GetString("base-path"), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	if basePath != "" {
		r.Route(basePath, h.Routes)
	} else {
		h.Routes(r)
	}

	srv := &http.Server{
		Addr:              v.GetString("addr"),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg := errgroup.Group{}
	eg.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		h.Close()
		if err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		slog.Info("server shutdown complete")
		return nil
	})
	eg.Go(func() error {
		slog.Info("starting server",
			"addr", srv.Addr,
			"lang", lang,
			"questions", len(catalog),
			"audio", cfg.AudioEnabled,
			"completion_delay", cfg.CompletionDelay,
			"tts", synth != nil,
			"base_path", basePath,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			stop()
			return err
		}
		return nil
	})
	return eg.Wait()
}
