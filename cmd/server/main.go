package main

import (
	"chatchat/attachment"
	"chatchat/auth"
	"chatchat/infrastructure/api"
	"chatchat/infrastructure/grpc/server"
	"chatchat/infrastructure/ws"
	"chatchat/internal"
	"chatchat/moderation"
	"chatchat/observability"
	"chatchat/repositories"
	"chatchat/runtime"
	"chatchat/runtime/workers"
	"chatchat/services"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// Deferred cleanups always run before the process exits.
func run() (int, error) {
	// 1. Configuration & Logger
	config, err := internal.Load()
	if err != nil {
		return exitConfig, err
	}
	censorChar, err := internal.CharacterRune(config.CensorCharacter)
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	// NotifyContext captures OS signals and cancels the context to trigger a shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Stores
	stores, err := repositories.OpenStores(ctx, config.StoreConfig(), logger)
	if err != nil {
		return exitRuntime, err
	}
	defer func() {
		logger.Info("Closing stores...")
		closeCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()
		if err := stores.Close(closeCtx); err != nil {
			logger.Warn("Unable to close stores", "error", err)
		}
	}()

	if stores.Badger != nil && config.DebugEndpoints {
		endpoint := "/inspect"
		url := fmt.Sprintf("http://localhost:%d%s", config.DebugInspectorPort, endpoint)
		logger.Info("Debug Badger inspector available", "url", url)
		database.StartDebugServer(stores.Badger, config.DebugInspectorPort, endpoint, EntryMapper)
	}

	// 3. Domain services
	registry := runtime.NewRegistry(logger)

	var moderator services.ITextModerator
	if config.ModerationEnabled {
		m, err := buildModerator(stores.Badger, censorChar, logger)
		if err != nil {
			return exitConfig, fmt.Errorf("moderation setup failed: %w", err)
		}
		moderator = m
	}

	chatService := services.NewChatService(stores.Messages, registry, moderator, services.ChatConfig{
		Image: attachment.Options{
			MaxBytes:     config.MaxImageBytes,
			SniffContent: config.ImageSniffContent,
		},
		JoinHistoryLimit: config.JoinHistoryLimit,
	}, logger)
	profileService := services.NewProfileService(stores.Profiles, registry, logger)

	verifier, err := auth.NewJWTVerifier(auth.VerifierConfig{
		HMACSecret:       config.JWTHMACSecret,
		PublicKeyPEMFile: config.JWTPublicKeyFile,
		Issuer:           config.JWTIssuer,
		Audience:         config.JWTAudience,
	})
	if err != nil {
		return exitConfig, fmt.Errorf("verifier setup failed: %w", err)
	}
	if !verifier.Available() {
		logger.Warn("No JWT key configured, every authenticated request will be refused with 503")
	}
	gate := auth.NewGate(verifier, logger)

	// 4. Live channel & HTTP surface
	wsConfig := ws.DefaultConfig()
	wsConfig.MaxFrameBytes = config.MaxFrameBytes
	wsConfig.SendBufferSize = config.SendBufferSize
	wsConfig.RateLimitBurst = config.RateLimitBurst
	wsConfig.RateLimitRefill = config.RateLimitRefillInterval
	wsConfig.AllowedOrigins = append(append([]string{}, api.DefaultOrigins...), config.Origins()...)
	wsHandler := ws.NewHandler(gate, registry, chatService, profileService, wsConfig, logger)

	monitoring := observability.NewMonitoringManager()
	router := api.NewRouter(api.Dependencies{
		Gate:        gate,
		Chat:        chatService,
		Profiles:    profileService,
		Messages:    stores.Messages,
		Registry:    registry,
		Monitoring:  monitoring,
		LiveChannel: wsHandler,
	}, api.RouterConfig{
		AllowedOrigins:   config.Origins(),
		HistoryLimit:     config.HistoryLimit,
		RoomHistoryLimit: config.RoomHistoryLimit,
		DebugEndpoints:   config.DebugEndpoints,
	}, logger)

	// 5. Background workers
	supervisor := workers.NewSupervisor(logger, config.RestartInterval)
	supervisor.Add(workers.NewHeartbeatWorker(logger, registry, monitoring, config.HeartbeatInterval))
	if config.GRPCPort > 0 {
		supervisor.Add(server.NewHealthServer(config.GRPCPort, logger))
	}
	supervised := make(chan struct{})
	go func() {
		defer close(supervised)
		supervisor.Run(ctx)
	}()

	// Error (HTTP server)
	errChan := make(chan error, 1)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", config.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		logger.Info("Starting HTTP server", "address", srv.Addr, "at", time.Now().UTC())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 6. Wait for Stop or Error
	code, runErr := exitOK, error(nil)
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		code, runErr = exitRuntime, err
	}

	// 7. Graceful shutdown: stop accepting, close live sessions, stop workers, then the deferred store close.
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown incomplete", "error", err)
	}
	if err := wsHandler.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Live sessions shutdown incomplete", "error", err)
	}
	supervisor.Stop()
	select {
	case <-supervised:
	case <-shutdownCtx.Done():
		logger.Warn("Workers did not stop in time")
	}
	logger.Info("Program stopped cleanly")

	return code, runErr
}

// buildModerator merges the embedded word lists with the blacklist stored in badger, if any.
func buildModerator(db *badger.DB, censorChar rune, logger *slog.Logger) (*moderation.Moderator, error) {
	words, err := moderation.DefaultWords()
	if err != nil {
		return nil, err
	}
	if db != nil {
		stored, err := moderation.LoadBlacklist(db)
		if err != nil {
			return nil, err
		}
		words = append(words, stored...)
	}
	logger.Info("Moderation enabled", "words", len(words))
	return moderation.NewModerator(words, censorChar, logger)
}

// EntryMapper renders the chat layout in the badger debug inspector.
func EntryMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)

	entry, err := repositories.DescribeEntry(key, val)
	if err != nil {
		row.Detail = "Error: unmarshal failed"
		return row
	}

	row.Type = entry.Kind
	row.Detail = entry.Detail
	if entry.Room != "" {
		row.Detail = fmt.Sprintf("[%s] %s", entry.Room, entry.Detail)
	}
	if entry.Deleted {
		row.Detail += " (deleted)"
	}
	return row
}
