package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/docseg/internal/api"
	"github.com/dgallion1/docseg/internal/config"
	"github.com/dgallion1/docseg/internal/pathstore"
	"github.com/dgallion1/docseg/internal/pipeline"
	"github.com/dgallion1/docseg/internal/qagen"
	"github.com/dgallion1/docseg/internal/sink"
	"github.com/dgallion1/docseg/internal/store"
	"github.com/dustin/go-humanize"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Error("open store", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		ps       *pathstore.Client
		mirror   sink.Sink
		srvOpts  []api.Option
		orch     *pipeline.Orchestrator
		gen      *qagen.Client
		llmStats *qagen.LLMStats
	)
	if cfg.PathstoreURL != "" {
		ps = pathstore.NewClient(cfg.PathstoreURL, cfg.PathstoreAPIKey)
		mirror = sink.PathstoreSink{Client: ps, Source: cfg.PathstoreSource}
		srvOpts = append(srvOpts, api.WithPathstore(ps))
	}

	if cfg.QAEnabled() {
		opts := []qagen.Option{
			qagen.WithSystemPrompt(cfg.SystemPrompt),
			qagen.WithRateLimit(cfg.LLMRateLimit, cfg.MaxConcurrentGenerate),
		}
		if cfg.AnthropicBaseURL != "" {
			opts = append(opts, qagen.WithBaseURL(cfg.AnthropicBaseURL))
		}
		gen = qagen.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, opts...)
		llmStats = qagen.NewLLMStats(cfg.LLMStatsWindow)

		orch = pipeline.NewOrchestrator(cfg, pipeline.WorkerConfig{
			Gen:    gen,
			Store:  st,
			Mirror: mirror,
			Stats:  llmStats,
			Log:    log,
		})
		orch.Start(ctx)
	} else {
		log.Warn("ANTHROPIC_API_KEY not set, q/a generation disabled")
	}

	srv := api.NewServer(st, orch, llmStats, log, cfg, srvOpts...)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		if orch != nil {
			orch.Stop()
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		if gen != nil {
			gen.Close()
		}
		if ps != nil {
			ps.Close()
		}
	}()

	log.Info("starting docseg",
		"port", cfg.Port,
		"db", cfg.DBPath,
		"qa_enabled", cfg.QAEnabled(),
		"mirror", cfg.PathstoreURL != "",
		"max_upload", humanize.IBytes(uint64(cfg.MaxUploadBytes)),
	)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
