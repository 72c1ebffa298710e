package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/salesline-ai/salesline/internal/compose"
	"github.com/salesline-ai/salesline/internal/config"
	"github.com/salesline-ai/salesline/internal/eventlog"
	"github.com/salesline-ai/salesline/internal/intent"
	"github.com/salesline-ai/salesline/internal/orchestrator"
	"github.com/salesline-ai/salesline/internal/provider"
	"github.com/salesline-ai/salesline/internal/server"
	"github.com/salesline-ai/salesline/internal/tunnel"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the voice webhook server",
		Long: "serve starts the HTTP server that answers Twilio's voice webhooks:\n" +
			"/voice for call starts, /transcribe for caller speech, /call-status for\n" +
			"lifecycle updates, plus /monitor (live event feed) and /healthz.",
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := initConfig()

	backend, err := buildCompleter(cfg)
	if err != nil {
		return err
	}
	store, err := buildStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Shutdown() }()

	profiles, err := buildProfiles(cfg)
	if err != nil {
		return err
	}

	events, err := buildEvents(cfg)
	if err != nil {
		return err
	}

	closing := cfg.Bot.ClosingPhrases
	if len(closing) == 0 {
		closing = intent.DefaultClosingPhrases
	}

	params := provider.DefaultParams(cfg.ActiveModel())
	var timeout time.Duration
	if cfg.BackendTimeoutSeconds > 0 {
		timeout = time.Duration(cfg.BackendTimeoutSeconds) * time.Second
	}

	orch := orchestrator.New(orchestrator.Deps{
		Store:          store,
		Classifier:     intent.NewPhraseClassifier(cfg.Bot.ClosingPhrases, cfg.Bot.HesitationPhrases),
		Composer:       compose.New(cfg.Bot.Name, cfg.Bot.Company),
		Backend:        backend,
		Profiles:       profiles,
		Params:         params,
		BackendTimeout: timeout,
		Events:         events,
	})

	srv := server.New(orch, server.Options{
		Voice:       cfg.Bot.Voice,
		GatherHints: closing,
		Events:      events,
	})

	if cfg.Server.PublicURL != "" {
		log.Info("public webhook URL", "url", cfg.Server.PublicURL)
	} else if url, err := tunnel.Discover(cmd.Context(), ""); err == nil {
		log.Info("discovered ngrok tunnel", "url", url)
	} else {
		log.Warn("no public URL configured and no ngrok tunnel found", "err", err)
	}

	stopJanitor := startRetentionJanitor(cfg, store)
	defer stopJanitor()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("webhook server listening",
			"addr", addr, "provider", backend.Name(), "model", cfg.ActiveModel())
		errCh <- httpSrv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("webhook server: %w", err)
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// buildEvents creates the JSONL event logger, or nil when disabled.
func buildEvents(cfg *config.Config) (*eventlog.Logger, error) {
	if cfg.Events.Disabled {
		return nil, nil
	}
	dir := cfg.Events.Dir
	if dir == "" {
		var err error
		dir, err = eventlog.DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("resolve events directory: %w", err)
		}
	}
	return eventlog.New(dir)
}

// startRetentionJanitor purges closed sessions past the retention window on
// an hourly tick. The returned stop function is safe to call when retention
// is disabled.
func startRetentionJanitor(cfg *config.Config, store interface {
	PurgeClosed(keep time.Duration) (int, error)
}) (stop func()) {
	if cfg.Store.RetentionHours <= 0 {
		return func() {}
	}
	keep := time.Duration(cfg.Store.RetentionHours) * time.Hour

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if n, err := store.PurgeClosed(keep); err != nil {
					log.Error("session purge failed", "err", err)
				} else if n > 0 {
					log.Info("purged closed sessions", "count", n, "keep", keep)
				}
			}
		}
	}()
	return func() { close(done) }
}
