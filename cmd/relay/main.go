package main

import (
	"chat-relay/infrastructure/httpapi"
	"chat-relay/infrastructure/ws"
	"chat-relay/internal"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the relay and blocks until SIGINT/SIGTERM or a server failure.
// Deferred cleanups run before main exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return err
	}

	// 2. Journal (BadgerDB, in memory without JOURNAL_PATH)
	db, err := repositories.OpenJournal(config.JournalPath, log.Enabled(context.Background(), slog.LevelDebug))
	if err != nil {
		return fmt.Errorf("journal opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing journal...")
		_ = db.Close()
	}()
	messageRepository := repositories.NewMessageRepository(db, log, config.LimitMessages)

	monitoring, err := observability.NewMonitoringManager(log)
	if err != nil {
		log.Warn("Process monitoring disabled", "error", err)
		monitoring = nil
	}

	// 3. Supervision & Orchestration
	sup := workers.NewSupervisor(log, config.RestartInterval)
	orchestrator := runtime.NewOrchestrator(log, sup, messageRepository, monitoring, runtime.OrchestratorConfig{
		HistoryCapacity:    config.HistoryCapacity,
		PageSize:           config.PageSize,
		MaxAttachmentBytes: config.MaxAttachmentBytes,
		JournalBufferSize:  config.JournalBufferSize,
		SinkTimeout:        config.SinkTimeout,
		MetricInterval:     config.MetricInterval,
		ModerationEnabled:  config.ModerationEnabled,
		CharReplacement:    charReplacement,
	})

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Start the pipeline
	if err = orchestrator.Start(ctx); err != nil {
		return fmt.Errorf("orchestrator failed to start: %w", err)
	}
	defer orchestrator.Stop()

	// 6. HTTP Server Setup
	router := orchestrator.Router()
	mux := http.NewServeMux()
	mux.Handle("/ws", ws.NewHandler(log, router, config.ConnectionBufferSize, config.ReadLimit))
	httpapi.NewAPI(log, router, orchestrator.Activity(), orchestrator.Monitoring()).Register(mux)
	mux.Handle("GET /inspect", internal.NewInspectHandler(db, internal.MessageMapper, func() map[string]any {
		stats := router.Stats()
		return map[string]any{
			"Rooms":           stats.Rooms,
			"Identities":      stats.Identities,
			"Mailboxes":       stats.Mailboxes,
			"RoomMessages":    stats.RoomMessages,
			"PrivateMessages": stats.PrivateMessages,
			"Time":            time.Now().Format(time.RFC822),
		}
	}))

	server := &http.Server{
		Addr:              config.Address(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting relay", "address", config.Address(), "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 8. Final Cleanup. Hijacked websockets are not tracked by Shutdown,
	// their read pumps end when the process exits.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err = server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", "error", err)
	}
	log.Info("Program stopped cleanly")

	return nil
}
