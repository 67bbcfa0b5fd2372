package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/vehicle-checker/internal/adapters/mcp"
	"github.com/kirillkom/vehicle-checker/internal/bootstrap"
	"github.com/kirillkom/vehicle-checker/internal/config"
	"github.com/kirillkom/vehicle-checker/internal/observability/logging"
)

const (
	serviceName = "vehicle-mcp"
	version     = "1.0.0"
)

// stdout carries the protocol, so everything else goes to stderr.
func main() {
	cfg, err := config.Load()
	logger := logging.NewJSONLoggerTo(os.Stderr, serviceName, cfg.LogLevel)
	slog.SetDefault(logger)
	if err != nil {
		logger.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("config_invalid", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.WithLogger(logger))
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	tools := mcpadapter.NewTools(app.LookupUC, app.History, app.Cache, logger)
	stdio := server.NewStdioServer(tools.NewServer(version))
	stdio.SetErrorLogger(log.New(os.Stderr, serviceName+": ", log.LstdFlags))

	logger.Info("mcp_serving_stdio")
	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		logger.Error("mcp_server_failed", "error", err)
	}
}
