package usecase

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"

	"github.com/kirillkom/vehicle-checker/internal/core/domain"
	"github.com/kirillkom/vehicle-checker/internal/core/ports"
)

// StateObserver receives every state transition of a lookup. The last call of
// an invocation is always domain.StateDone or domain.StateError.
type StateObserver func(state domain.LookupState)

type LookupOption func(*LookupUseCase)

func WithStateObserver(observer StateObserver) LookupOption {
	return func(uc *LookupUseCase) {
		uc.observer = observer
	}
}

func WithLookupLogger(logger *slog.Logger) LookupOption {
	return func(uc *LookupUseCase) {
		if logger != nil {
			uc.logger = logger
		}
	}
}

// LookupUseCase sequences preprocessing, recognition, extraction, the cache
// check and the conditional remote fetch. Invocations share nothing but the
// cache and the history; nothing is retried.
type LookupUseCase struct {
	preprocessor ports.ImagePreprocessor
	recognizer   ports.TextRecognizer
	vehicles     ports.VehicleLookup
	cache        *ResultCache
	history      *HistoryLog
	logger       *slog.Logger
	observer     StateObserver
}

func NewLookupUseCase(
	preprocessor ports.ImagePreprocessor,
	recognizer ports.TextRecognizer,
	vehicles ports.VehicleLookup,
	cache *ResultCache,
	history *HistoryLog,
	opts ...LookupOption,
) *LookupUseCase {
	uc := &LookupUseCase{
		preprocessor: preprocessor,
		recognizer:   recognizer,
		vehicles:     vehicles,
		cache:        cache,
		history:      history,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// LookupImage reads a plate from a photo and resolves it.
func (uc *LookupUseCase) LookupImage(ctx context.Context, img domain.Image) (outcome *domain.LookupOutcome, err error) {
	run := uc.begin("image")
	defer func() { run.finish(outcome, err) }()

	if err := uc.recognizerConfigured(); err != nil {
		return nil, err
	}

	run.to(domain.StatePreprocessing)
	prepared := img
	if uc.preprocessor != nil {
		prepared = uc.preprocessor.Prepare(ctx, img)
	}

	run.to(domain.StateRecognizing)
	text := uc.recognize(ctx, prepared)

	run.to(domain.StateExtracting)
	result := ExtractPlate(text.Text, normalizeConfidence(text.Confidence))
	if !result.Found() {
		uc.logger.Info("plate_not_found", "confidence", result.Confidence, "text_length", len(text.Text))
		return nil, domain.NewError(domain.KindRecognition, domain.MsgPlateNotRead, errors.New("no plate pattern matched recognized text"))
	}
	run.plate = result.Plate

	outcome, err = uc.resolve(ctx, run, result.Plate)
	if err != nil {
		return nil, err
	}
	confidence := result.Confidence
	outcome.Confidence = &confidence
	return outcome, nil
}

// LookupRegistration resolves typed input. Only emptiness is checked; shape
// validation is left to the remote service.
func (uc *LookupUseCase) LookupRegistration(ctx context.Context, registration string) (outcome *domain.LookupOutcome, err error) {
	run := uc.begin("text")
	defer func() { run.finish(outcome, err) }()

	run.to(domain.StateCanonicalizing)
	if strings.TrimSpace(registration) == "" {
		return nil, domain.NewError(domain.KindValidation, domain.MsgEmptyRegistration, errors.New("empty registration"))
	}
	plate := domain.CanonicalPlate(registration)
	run.plate = plate

	return uc.resolve(ctx, run, plate)
}

func (uc *LookupUseCase) resolve(ctx context.Context, run *lookupRun, plate domain.Plate) (*domain.LookupOutcome, error) {
	run.to(domain.StateCacheCheck)
	record, hit, err := uc.cache.Get(ctx, plate)
	if err != nil {
		uc.logger.Warn("cache_read_failed", "plate", plate.String(), "error", err)
	}
	if hit {
		return &domain.LookupOutcome{Plate: plate, Vehicle: record, Source: domain.SourceCache}, nil
	}

	run.to(domain.StateFetching)
	if err := uc.lookupConfigured(); err != nil {
		return nil, err
	}
	record, err = uc.vehicles.Lookup(ctx, plate)
	if err != nil {
		return nil, classifyLookupError(err)
	}

	run.to(domain.StateCacheWrite)
	if err := uc.cache.Set(ctx, plate, record); err != nil {
		uc.logger.Warn("cache_write_failed", "plate", plate.String(), "error", err)
	}

	run.to(domain.StateHistoryAppend)
	if err := uc.history.Record(ctx, plate, record); err != nil {
		uc.logger.Warn("history_append_failed", "plate", plate.String(), "error", err)
	}

	return &domain.LookupOutcome{Plate: plate, Vehicle: record, Source: domain.SourceRemote}, nil
}

// recognize never fails: an engine error is a blank read with zero confidence.
func (uc *LookupUseCase) recognize(ctx context.Context, img domain.Image) domain.RecognizedText {
	text, err := uc.recognizer.Recognize(ctx, img)
	if err != nil {
		uc.logger.Warn("recognition_failed", "error", err)
		return domain.RecognizedText{}
	}
	return text
}

func (uc *LookupUseCase) recognizerConfigured() error {
	if uc.recognizer == nil {
		return domain.NewError(domain.KindConfiguration, domain.MsgRecognitionNotConfigured, errors.New("no text recognizer"))
	}
	if checker, ok := uc.recognizer.(ports.ConfigChecker); ok {
		return checker.CheckConfigured()
	}
	return nil
}

func (uc *LookupUseCase) lookupConfigured() error {
	if uc.vehicles == nil {
		return domain.NewError(domain.KindConfiguration, domain.MsgLookupNotConfigured, errors.New("no vehicle lookup"))
	}
	if checker, ok := uc.vehicles.(ports.ConfigChecker); ok {
		return checker.CheckConfigured()
	}
	return nil
}

func classifyLookupError(err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return de
	}
	return domain.NewError(domain.KindNetwork, domain.MsgNetworkFailure, err)
}

func normalizeConfidence(engine float64) float64 {
	if math.IsNaN(engine) || engine <= 0 {
		return 0
	}
	if engine >= 100 {
		return 1
	}
	return engine / 100
}

type lookupRun struct {
	uc    *LookupUseCase
	input string
	plate domain.Plate
	state domain.LookupState
}

func (uc *LookupUseCase) begin(input string) *lookupRun {
	run := &lookupRun{uc: uc, input: input}
	run.to(domain.StateIdle)
	return run
}

func (r *lookupRun) to(state domain.LookupState) {
	r.state = state
	if r.uc.observer != nil {
		r.uc.observer(state)
	}
}

func (r *lookupRun) finish(outcome *domain.LookupOutcome, err error) {
	if err != nil {
		failedIn := r.state
		r.to(domain.StateError)
		r.uc.logger.Info("lookup_failed",
			"input", r.input,
			"plate", r.plate.String(),
			"state", failedIn,
			"kind", domain.KindOf(err),
			"error", err,
		)
		return
	}
	r.to(domain.StateDone)
	r.uc.logger.Info("lookup_completed",
		"input", r.input,
		"plate", r.plate.String(),
		"source", outcome.Source,
	)
}
