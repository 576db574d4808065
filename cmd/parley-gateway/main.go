// ABOUTME: Entry point for the parley-gateway conversational backend
// ABOUTME: Loads config, wires the components, and serves WebSocket clients

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/2389/parley-gateway/internal/ai"
	"github.com/2389/parley-gateway/internal/config"
	"github.com/2389/parley-gateway/internal/conversation"
	"github.com/2389/parley-gateway/internal/extract"
	"github.com/2389/parley-gateway/internal/gateway"
	"github.com/2389/parley-gateway/internal/identity"
	"github.com/2389/parley-gateway/internal/objstore"
	"github.com/2389/parley-gateway/internal/pipeline"
	"github.com/2389/parley-gateway/internal/registry"
	"github.com/2389/parley-gateway/internal/respond"
	"github.com/2389/parley-gateway/internal/room"
	"github.com/2389/parley-gateway/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                       _
 _ __   __ _ _ __ ___ | | ___ _   _
| '_ \ / _' | '__/ -_)| |/ -_) | | |
| |_) | (_| | | |\__ \| |\__ \ |_| |
| .__/ \__,_|_|  \___/|_|\___/\__, |
|_|                           |___/
`

// getConfigPath returns the path to the gateway config file.
// Priority: PARLEY_CONFIG env var > XDG_CONFIG_HOME/parley/gateway.yaml > ~/.config/parley/gateway.yaml
func getConfigPath() string {
	if envPath := os.Getenv("PARLEY_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "gateway.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "parley", "gateway.yaml")
}

func main() {
	// Missing .env is fine; real deployments configure via YAML + env.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	var err error
	switch command {
	case "serve":
		err = runServe(ctx)
	case "health":
		err = runHealth(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		fmt.Fprintln(os.Stderr, "Commands: serve, health")
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:   %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:     %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Model:    %s\n", cfg.AI.Model)
	if cfg.Storage.Endpoint != "" {
		green.Print("    ▶ ")
		fmt.Printf("Storage:  %s/%s\n", cfg.Storage.Endpoint, cfg.Storage.Bucket)
	}
	fmt.Println()

	logger.Info("starting parley-gateway",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"model", cfg.AI.Model,
	)

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	var storage artifactStorage
	if cfg.Storage.Endpoint != "" {
		s, err := objstore.New(ctx, cfg.Storage, logger)
		if err != nil {
			return fmt.Errorf("connecting to object storage: %w", err)
		}
		storage = s
	} else {
		logger.Warn("object storage not configured, artifact generation disabled")
		storage = disabledStorage{}
	}

	aiClient := ai.NewClient(ai.Config{
		BaseURL:     cfg.AI.BaseURL,
		APIKey:      cfg.AI.APIKey,
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
		MaxTokens:   cfg.AI.MaxTokens,
	}, logger)

	var assemblerOpts []conversation.Option
	assemblerOpts = append(assemblerOpts, conversation.WithSummarizer(aiClient))
	if cfg.Context.FetchWindow > 0 {
		assemblerOpts = append(assemblerOpts, conversation.WithFetchWindow(cfg.Context.FetchWindow))
	}
	if cfg.Context.RetainFraction > 0 {
		assemblerOpts = append(assemblerOpts, conversation.WithRetainFraction(cfg.Context.RetainFraction))
	}

	rooms := room.NewCoordinator(logger)
	pipe := pipeline.New(pipeline.Config{
		Store:     st,
		Assembler: conversation.NewAssembler(st, logger, assemblerOpts...),
		Ingestor:  extract.NewIngestor(extractLimits(cfg.Extract), logger),
		Completer: aiClient,
		Responder: respond.NewDispatcher(storage, logger),
		Rooms:     rooms,
		Timeout:   cfg.Pipeline.Timeout,
	}, logger)

	gw := gateway.New(
		identity.NewJWTResolver([]byte(cfg.Identity.JWTSecret), logger),
		registry.New(logger),
		rooms,
		pipe,
		st,
		storage,
		logger,
	)

	server := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           gw.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// extractLimits maps config values onto the extractor's limits, keeping the
// defaults wherever the config leaves a field zero.
func extractLimits(cfg config.ExtractConfig) extract.Limits {
	limits := extract.DefaultLimits()
	if cfg.MaxFileSizeMB > 0 {
		limits.MaxFileSize = int64(cfg.MaxFileSizeMB) * 1024 * 1024
	}
	if cfg.Timeout > 0 {
		limits.Timeout = cfg.Timeout
	}
	if cfg.MaxItems > 0 {
		limits.MaxItems = cfg.MaxItems
	}
	if cfg.MaxPages > 0 {
		limits.MaxPages = cfg.MaxPages
	}
	return limits
}

func runHealth(ctx context.Context) error {
	addr := os.Getenv("PARLEY_ADDR")
	if addr == "" {
		addr = "http://localhost:8080"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway unreachable: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		Status      string `json:"status"`
		Connections int    `json:"connections"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decoding health response: %w", err)
	}
	fmt.Printf("gateway at %s: %s (%d connections)\n", addr, body.Status, body.Connections)
	return nil
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// artifactStorage is the storage surface the dispatcher and gateway need.
type artifactStorage interface {
	respond.Uploader
	gateway.Presigner
}

// disabledStorage stands in when no object store is configured: artifact
// flags fail cleanly instead of panicking.
type disabledStorage struct{}

var errStorageDisabled = errors.New("object storage is not configured")

func (disabledStorage) Upload(context.Context, string, []byte, string) (string, error) {
	return "", errStorageDisabled
}

func (disabledStorage) PresignedURL(context.Context, string, time.Duration) (string, error) {
	return "", errStorageDisabled
}
