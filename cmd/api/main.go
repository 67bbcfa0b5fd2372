package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/net/netutil"

	httpadapter "github.com/kirillkom/vehicle-checker/internal/adapters/http"
	"github.com/kirillkom/vehicle-checker/internal/bootstrap"
	"github.com/kirillkom/vehicle-checker/internal/config"
	"github.com/kirillkom/vehicle-checker/internal/observability/logging"
	"github.com/kirillkom/vehicle-checker/internal/observability/metrics"
)

const serviceName = "vehicle-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)
	slog.SetDefault(logger)
	if err := cfg.Validate(); err != nil {
		logger.Error("config_invalid", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpMetrics := metrics.NewHTTPServerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg,
		bootstrap.WithLogger(logger),
		bootstrap.WithBreakerStateListener(func(operation string, _, to gobreaker.State) {
			httpMetrics.SetBreakerState(serviceName, operation, int(to))
		}),
	)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	router, err := httpadapter.NewRouter(cfg, app.LookupUC, app.History, app.Cache,
		httpadapter.WithMetrics(httpMetrics, serviceName),
		httpadapter.WithConfigCheckers(app.Vehicles, app.Recognition),
	)
	if err != nil {
		logger.Error("router_init_failed", "error", err)
		os.Exit(1)
	}

	server := &http.Server{
		Handler:      router.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ln, err := net.Listen("tcp", ":"+cfg.APIPort)
	if err != nil {
		logger.Error("api_listen_failed", "port", cfg.APIPort, "error", err)
		os.Exit(1)
	}
	ln = netutil.LimitListener(ln, cfg.APIMaxConnections)

	go func() {
		logger.Info("api_listening", "port", cfg.APIPort, "storage", cfg.StorageBackend, "recognition", cfg.RecognitionBackend)
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api_shutdown_failed", "error", err)
	}
}
