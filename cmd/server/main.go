package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rpggio/hitparade/internal/app"
	"github.com/rpggio/hitparade/internal/config"
	"github.com/rpggio/hitparade/internal/mcp"
	"github.com/rpggio/hitparade/internal/transport"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "hitparade",
	Short:         "Weekly music chart voting backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API, or the operator console over stdio",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads configuration and builds the service graph. Logs go to
// stderr when stdout is reserved for protocol traffic or command output.
func setup(stdoutFree bool) (*app.App, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}

	logWriter := io.Writer(os.Stderr)
	if stdoutFree && cfg.Transport.Mode != "stdio" {
		logWriter = os.Stdout
	}
	cleanup := func() {}
	if cfg.Log.Path != "" {
		fileWriter, err := newLogFileWriter(cfg.Log.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			logWriter = fileWriter
			cleanup = func() { _ = fileWriter.Close() }
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	a, err := app.New(cfg, logger, app.Options{})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	weekID, err := a.Warm(context.Background())
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	logger.Info("data directory ready", "dir", cfg.Data.Dir, "active_week", weekID)
	return a, cleanup, nil
}

func runServe(_ *cobra.Command, _ []string) error {
	a, cleanup, err := setup(true)
	if err != nil {
		return err
	}
	defer cleanup()

	if a.Config.Transport.Mode == "stdio" {
		return runStdioMode(a)
	}
	return runHTTPMode(a)
}

func runStdioMode(a *app.App) error {
	a.Logger.Info("starting stdio transport", "auth", "disabled")

	mcpServer := mcp.NewServer(mcp.Config{
		App:           a,
		TransportMode: "stdio",
		Version:       version,
		Logger:        a.Logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Run blocks until stdin closes or the context is canceled.
	if err := mcpServer.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("stdio server: %w", err)
	}
	a.Logger.Info("shutting down")
	return nil
}

func runHTTPMode(a *app.App) error {
	cfg := a.Config
	mcpServer := mcp.NewServer(mcp.Config{
		App:           a,
		Resolver:      transport.StaticToken(cfg.Auth.AdminToken),
		TransportMode: "http",
		Version:       version,
		Logger:        a.Logger,
	})
	router := transport.NewServer(a, transport.Options{
		MCP: mcp.NewHTTPHandler(mcpServer),
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("server listening", "addr", addr, "version", version)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	return waitForShutdown(a.Logger, httpServer, errCh)
}

func waitForShutdown(logger *slog.Logger, server *http.Server, errCh <-chan error) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-stop:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
