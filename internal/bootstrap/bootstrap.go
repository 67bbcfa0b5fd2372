package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/vehicle-checker/internal/config"
	"github.com/kirillkom/vehicle-checker/internal/core/ports"
	"github.com/kirillkom/vehicle-checker/internal/core/usecase"
	"github.com/kirillkom/vehicle-checker/internal/infrastructure/imaging"
	"github.com/kirillkom/vehicle-checker/internal/infrastructure/ocr/ocrspace"
	"github.com/kirillkom/vehicle-checker/internal/infrastructure/ocr/ollama"
	"github.com/kirillkom/vehicle-checker/internal/infrastructure/ocr/rekognition"
	"github.com/kirillkom/vehicle-checker/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/vehicle-checker/internal/infrastructure/resilience"
	"github.com/kirillkom/vehicle-checker/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/vehicle-checker/internal/infrastructure/storage/memory"
	"github.com/kirillkom/vehicle-checker/internal/infrastructure/storage/natskv"
	"github.com/kirillkom/vehicle-checker/internal/infrastructure/vehicle/dvla"
)

type Option func(*options)

type options struct {
	logger  *slog.Logger
	onState resilience.StateListener
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithBreakerStateListener forwards circuit breaker transitions of every
// outbound collaborator, typically to a metrics gauge.
func WithBreakerStateListener(listener resilience.StateListener) Option {
	return func(o *options) {
		o.onState = listener
	}
}

type App struct {
	Config config.Config

	Store       ports.KeyValueStore
	Cache       *usecase.ResultCache
	History     *usecase.HistoryLog
	LookupUC    *usecase.LookupUseCase
	Vehicles    ports.ConfigChecker
	Recognition ports.ConfigChecker

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	hooks := []resilience.Option{resilience.WithLogger(logger), resilience.WithStateListener(o.onState)}
	vehicles := dvla.New(cfg.VehicleLookupURL, dvla.Options{
		APIKey:  cfg.VehicleLookupAPIKey,
		Timeout: time.Duration(cfg.VehicleLookupTimeoutSeconds) * time.Second,
		Breaker: resilience.NewCircuitBreaker(breakerSettings(cfg), hooks...),
	})

	recognitionExec := resilience.NewExecutor(
		resilience.RecognitionPolicy(cfg.RecognitionRetryMaxAttempts, breakerSettings(cfg)),
		hooks...,
	)
	recognizer, err := newRecognizer(ctx, cfg, recognitionExec)
	if err != nil {
		closeStore()
		return nil, err
	}

	preprocessor := imaging.New(imaging.Options{
		MaxBytes:   cfg.ImageMaxBytes,
		MaxWidth:   cfg.ImageMaxWidth,
		Contrast:   imaging.DefaultContrast,
		Brightness: imaging.DefaultBrightness,
	}, logger)

	cache := usecase.NewResultCache(store, cfg.CacheTTLDays, usecase.WithCacheLogger(logger))
	if err := cache.LoadTTL(ctx); err != nil {
		logger.Warn("cache_ttl_load_failed", "error", err)
	}
	if removed, err := cache.ClearExpired(ctx); err != nil {
		logger.Warn("cache_startup_sweep_failed", "error", err)
	} else if removed > 0 {
		logger.Info("cache_startup_sweep", "removed", removed)
	}

	history := usecase.NewHistoryLog(store, logger, nil)
	lookupUC := usecase.NewLookupUseCase(preprocessor, recognizer, vehicles, cache, history,
		usecase.WithLookupLogger(logger),
	)

	return &App{
		Config:      cfg,
		Store:       store,
		Cache:       cache,
		History:     history,
		LookupUC:    lookupUC,
		Vehicles:    vehicles,
		Recognition: recognizer,
		closeFn:     closeStore,
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

type configuredRecognizer interface {
	ports.TextRecognizer
	ports.ConfigChecker
}

func newRecognizer(ctx context.Context, cfg config.Config, executor *resilience.Executor) (configuredRecognizer, error) {
	switch cfg.RecognitionBackend {
	case config.RecognitionOllama:
		return ollama.NewRecognizer(ollama.New(cfg.OllamaURL, cfg.OllamaVisionModel, executor)), nil
	case config.RecognitionRekognition:
		recognizer, err := rekognition.NewFromRegion(ctx, cfg.AWSRegion, executor)
		if err != nil {
			return nil, fmt.Errorf("init rekognition: %w", err)
		}
		return recognizer, nil
	default:
		return ocrspace.New(cfg.OCRSpaceURL, cfg.OCRSpaceAPIKey, ocrspace.Options{Executor: executor}), nil
	}
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (ports.KeyValueStore, func(), error) {
	switch cfg.StorageBackend {
	case config.StorageMemory:
		return memory.New(), func() {}, nil
	case config.StoragePostgres:
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		store := postgres.NewKVStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			closeDB(db, logger)
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		return store, func() { closeDB(db, logger) }, nil
	case config.StorageNATS:
		store, err := natskv.New(ctx, cfg.NATSURL, natskv.Options{Bucket: cfg.NATSKVBucket, Logger: logger})
		if err != nil {
			return nil, nil, fmt.Errorf("init nats kv: %w", err)
		}
		return store, store.Close, nil
	default:
		store, err := localfs.New(cfg.StoragePath)
		if err != nil {
			return nil, nil, fmt.Errorf("init file storage: %w", err)
		}
		return store, func() {}, nil
	}
}

func closeDB(db *sql.DB, logger *slog.Logger) {
	if err := db.Close(); err != nil {
		logger.Warn("postgres_close_failed", "error", err)
	}
}

func breakerSettings(cfg config.Config) resilience.Breaker {
	out := resilience.DefaultBreaker()
	out.Enabled = cfg.BreakerEnabled
	if cfg.BreakerMinRequests > 0 {
		out.MinRequests = uint32(cfg.BreakerMinRequests)
	}
	if cfg.BreakerFailureRatio > 0 {
		out.FailureRatio = cfg.BreakerFailureRatio
	}
	if cfg.BreakerOpenTimeoutSeconds > 0 {
		out.OpenTimeout = time.Duration(cfg.BreakerOpenTimeoutSeconds) * time.Second
	}
	return out
}
