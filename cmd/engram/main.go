// Package main implements the engram daemon and CLI.
//
// This file is the entry point and command registration hub; individual
// subcommands are split across cmd_*.go files for maintainability.
//
// # File Index
//
//   - main.go        - entry point, rootCmd, global flags, init(), daemon wiring
//   - cmd_config.go  - configCmd (validate/print the effective configuration)
//   - cmd_token.go   - tokenCmd (print/rotate the local API token)
//   - cmd_version.go - versionCmd
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"engram/internal/action"
	"engram/internal/action/confirmation"
	"engram/internal/action/handler"
	"engram/internal/action/intent"
	"engram/internal/action/orchestrator"
	"engram/internal/action/scheduler"
	"engram/internal/action/task"
	"engram/internal/api"
	"engram/internal/capture"
	"engram/internal/chat"
	"engram/internal/clock"
	"engram/internal/config"
	"engram/internal/embedding"
	"engram/internal/events"
	"engram/internal/logging"
	"engram/internal/pipeline"
	"engram/internal/safety"
	"engram/internal/search"
	"engram/internal/store"
	"engram/internal/tiering"
)

const shutdownDeadline = 5 * time.Second

var (
	verbose    bool
	configPath string

	// logger is the console-facing logger; internal/logging owns the
	// category-based file loggers started separately from the daemon.
	logger *zap.Logger
)

// rootCmd is the base command. Run without a subcommand, it starts the
// daemon: HTTP+SSE surface, scheduler, and tiering sweep, until SIGINT or
// SIGTERM triggers a cooperative shutdown.
var rootCmd = &cobra.Command{
	Use:   "engram",
	Short: "Engram - a local-first personal memory capture system",
	Long: `Engram continuously captures screen, audio, and dictation activity,
redacts and deduplicates it through a privacy gate, indexes it for hybrid
keyword+semantic search, and surfaces detected intents (reminders, tasks,
quick notes) as confirmable actions.

Run without arguments to start the daemon.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDaemon(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config.toml (default: $ENGRAM_CONFIG or ~/.engram/config.toml)")

	rootCmd.AddCommand(configCmd, tokenCmd, versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// defaultConfigPath is where engram looks for its config file when
// neither --config nor ENGRAM_CONFIG names one. loadConfig expands its
// leading ~/ with expandHome before loading it.
const defaultConfigPath = "~/.engram/config.toml"

// resolvedConfigPath honors --config, then ENGRAM_CONFIG, then the default.
func resolvedConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if env := os.Getenv("ENGRAM_CONFIG"); env != "" {
		return env
	}
	return defaultConfigPath
}

// loadConfig resolves the config path and loads it, validating the result.
// config.Load itself falls back to defaults if the file is absent and
// applies ENGRAM_* environment overrides.
func loadConfig() (*config.Config, string, error) {
	path := resolvedConfigPath()
	expanded, err := expandHome(path)
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.Load(expanded)
	if err != nil {
		return nil, "", fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid config: %w", err)
	}
	return cfg, expanded, nil
}

func expandHome(path string) (string, error) {
	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return home + path[1:], nil
	}
	return path, nil
}

// runDaemon wires every collaborator together and blocks until ctx is
// cancelled (SIGINT/SIGTERM) or a fatal startup error occurs.
func runDaemon(ctx context.Context) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}

	if err := logging.Initialize(cfg.General.DataDir, cfg.General.Debug, cfg.General.LogLevel, false); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to initialize file logging: %v\n", err)
	}
	logging.Boot("engram starting, config=%s data_dir=%s", path, cfg.General.DataDir)

	localStore, err := store.NewLocalStore(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer localStore.Close()

	embedCfg := embedding.Config{
		Provider:    cfg.Embedding.Provider,
		Dimensions:  cfg.Search.EmbeddingDim,
		GenAIAPIKey: cfg.Embedding.GenAIAPIKey,
		GenAIModel:  cfg.Embedding.GenAIModel,
		TaskType:    cfg.Embedding.TaskType,
	}
	embedEngine, err := embedding.NewEngine(embedCfg)
	if err != nil {
		return fmt.Errorf("build embedding engine: %w", err)
	}
	localStore.SetEmbeddingEngine(embedEngine)

	bus := events.NewBus()
	safetyGate := safety.New(cfg.Safety)
	if cfgWatcher, err := config.NewWatcher(path); err != nil {
		logging.Boot("config file watch disabled: %v", err)
	} else {
		go cfgWatcher.Watch(ctx, func(reloaded *config.Config) {
			safetyGate.UpdateConfig(reloaded.Safety)
		})
	}
	ingestPipeline := pipeline.NewFromConfig(safetyGate, localStore, bus, cfg)
	searcher := search.New(localStore, cfg.Search.SemanticWeight)

	realClock := clock.Real{}
	taskStore := task.New(localStore, realClock)
	registry := handler.NewRegistry()
	registry.RegisterDefaults(cfg.Action.AllowedShellBinaries)
	actionOrch := orchestrator.New(registry, taskStore, cfg.Action)
	confirmGate := confirmation.New(realClock)
	notifyLimit := confirmation.NewRateLimiter(cfg.Action.NotificationRatePerMinute, realClock)
	engine := action.New(taskStore, registry, actionOrch, confirmGate, notifyLimit, bus)

	taskScheduler := scheduler.New(taskStore, realClock)
	taskScheduler.SetOnPromote(func(taskID string) {
		engine.RunDueTask(ctx, taskID)
	})

	sweeper := tiering.New(localStore, realClock, bus, cfg.Storage)

	sessions := chat.NewSessionStore(chat.DefaultCapacity, localStore, realClock)
	detector := intent.New(cfg.Action.MinIntentConfidence, realClock)
	chatOrch := chat.New(sessions, searcher, detector, engine, bus, cfg.Search.DefaultLimit)

	// The real screen/audio/dictation backends (OCR, VAD, transcription)
	// are external collaborators this module does not implement; the fake
	// sources stand in for them the same way embedding falls back to a
	// deterministic local engine when no model is configured. Swapping in
	// a real Source means satisfying the same capture.Source interface.
	screenRunner := capture.NewRunner(capture.NewFakeScreenSource(nil, realClock), ingestPipeline, detector, engine, cfg.Screen.PollInterval())
	audioRunner := capture.NewRunner(capture.NewFakeAudioSource(nil, realClock), ingestPipeline, detector, engine, time.Duration(cfg.Audio.ChunkDurationSecs*float64(time.Second)))
	dictationRunner := capture.NewRunner(capture.NewFakeDictationSource(nil, realClock), ingestPipeline, detector, engine, time.Duration(cfg.Dictation.MaxDurationSecs*float64(time.Second)))

	token, err := api.LoadOrCreateToken(cfg.TokenPath())
	if err != nil {
		return fmt.Errorf("load api token: %w", err)
	}
	server := api.New(cfg, localStore, searcher, chatOrch, bus, token)

	runners := []func(context.Context){taskScheduler.Run, sweeper.Run, screenRunner.Run, dictationRunner.Run}
	if cfg.Audio.Enabled {
		runners = append(runners, audioRunner.Run)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runHTTPServer(gctx, server)
	})
	for _, run := range runners {
		run := run
		g.Go(func() error {
			run(gctx)
			return nil
		})
	}

	logging.Boot("engram listening on %s", server.Addr())

	<-ctx.Done()
	logging.Boot("shutdown signal received, draining background work")

	waitErr := make(chan error, 1)
	go func() { waitErr <- g.Wait() }()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownDeadline)
	defer cancel()

	select {
	case err := <-waitErr:
		if err != nil {
			logging.Boot("background work exited with error: %v", err)
		}
	case <-shutdownCtx.Done():
		return fmt.Errorf("shutdown deadline exceeded")
	}
	return nil
}

// runHTTPServer listens until ctx is cancelled, then performs a graceful
// shutdown and returns once the server has stopped.
func runHTTPServer(ctx context.Context, server *api.Server) error {
	httpServer := &http.Server{
		Addr:    server.Addr(),
		Handler: server,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
		return httpServer.Shutdown(context.Background())
	}
}
