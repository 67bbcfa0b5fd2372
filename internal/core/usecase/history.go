package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/vehicle-checker/internal/core/domain"
	"github.com/kirillkom/vehicle-checker/internal/core/ports"
)

const (
	HistoryKey   = "history"
	HistoryLimit = 50
)

// HistoryLog is the newest-first record of fresh remote fetches, stored as a
// single JSON array. Append is a read-modify-write without a lock: two fetches
// finishing together can drop one entry, the same last-write-wins caveat as
// ResultCache.
type HistoryLog struct {
	store  ports.KeyValueStore
	logger *slog.Logger
	now    func() time.Time
	limit  int
}

func NewHistoryLog(store ports.KeyValueStore, logger *slog.Logger, now func() time.Time) *HistoryLog {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &HistoryLog{store: store, logger: logger, now: now, limit: HistoryLimit}
}

// Record appends a fetch result stamped with the current time.
func (h *HistoryLog) Record(ctx context.Context, plate domain.Plate, record domain.VehicleRecord) error {
	return h.Append(ctx, domain.HistoryEntry{
		Plate:     plate,
		Data:      record,
		Timestamp: h.now().UnixMilli(),
	})
}

// Append puts entry first and drops anything past the most recent 50.
// Repeated plates are kept as separate entries.
func (h *HistoryLog) Append(ctx context.Context, entry domain.HistoryEntry) error {
	entries, err := h.List(ctx)
	if err != nil {
		return err
	}

	next := make([]domain.HistoryEntry, 0, min(len(entries)+1, h.limit))
	next = append(next, entry)
	for _, e := range entries {
		if len(next) == h.limit {
			break
		}
		next = append(next, e)
	}
	return h.write(ctx, next)
}

// List returns the stored history, newest first. A history that no longer
// decodes is reported as empty.
func (h *HistoryLog) List(ctx context.Context) ([]domain.HistoryEntry, error) {
	raw, found, err := h.store.Get(ctx, HistoryKey)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	if !found || raw == "" {
		return []domain.HistoryEntry{}, nil
	}

	var entries []domain.HistoryEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		h.logger.Warn("history_corrupt", "kind", domain.KindCacheCorruption, "error", err)
		return []domain.HistoryEntry{}, nil
	}
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	return entries, nil
}

func (h *HistoryLog) Clear(ctx context.Context) error {
	if err := h.store.Remove(ctx, HistoryKey); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

func (h *HistoryLog) write(ctx context.Context, entries []domain.HistoryEntry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := h.store.Set(ctx, HistoryKey, string(raw)); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}
