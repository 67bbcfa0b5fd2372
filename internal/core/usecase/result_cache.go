package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kirillkom/vehicle-checker/internal/core/domain"
	"github.com/kirillkom/vehicle-checker/internal/core/ports"
)

const (
	CacheKeyPrefix  = "vehicle_"
	CacheTTLKey     = "cache_expiry"
	DefaultTTLDays  = 7
	MinTTLDays      = 1
	MaxTTLDays      = 30
	millisecondsDay = int64(24 * time.Hour / time.Millisecond)
)

// ResultCache maps canonical plates to previously fetched vehicle records.
// Reads and writes are not transactional: two lookups racing on the same
// plate both fetch and the later Set wins. Entries are always replaced whole.
type ResultCache struct {
	store   ports.KeyValueStore
	logger  *slog.Logger
	now     func() time.Time
	ttlDays atomic.Int64
}

type ResultCacheOption func(*ResultCache)

func WithCacheClock(now func() time.Time) ResultCacheOption {
	return func(c *ResultCache) {
		if now != nil {
			c.now = now
		}
	}
}

func WithCacheLogger(logger *slog.Logger) ResultCacheOption {
	return func(c *ResultCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewResultCache(store ports.KeyValueStore, ttlDays int, opts ...ResultCacheOption) *ResultCache {
	c := &ResultCache{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	c.ttlDays.Store(int64(clampTTL(ttlDays)))
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached record for plate. Expired or unreadable entries are
// removed and reported as a miss.
func (c *ResultCache) Get(ctx context.Context, plate domain.Plate) (domain.VehicleRecord, bool, error) {
	key := cacheKey(plate)
	raw, found, err := c.store.Get(ctx, key)
	if err != nil {
		return domain.VehicleRecord{}, false, fmt.Errorf("read cache entry: %w", err)
	}
	if !found {
		return domain.VehicleRecord{}, false, nil
	}

	entry, err := decodeCacheEntry(raw)
	if err != nil {
		c.logger.Warn("cache_entry_corrupt", "plate", plate.String(), "kind", domain.KindCacheCorruption, "error", err)
		return domain.VehicleRecord{}, false, c.purge(ctx, key)
	}
	if entry.ExpiredAt(c.now()) {
		c.logger.Debug("cache_entry_expired", "plate", plate.String(), "expired_at", entry.ExpiresAt)
		return domain.VehicleRecord{}, false, c.purge(ctx, key)
	}
	return entry.Data, true, nil
}

// Set stores record under plate with the currently configured TTL,
// overwriting whatever was there.
func (c *ResultCache) Set(ctx context.Context, plate domain.Plate, record domain.VehicleRecord) error {
	storedAt := c.now().UnixMilli()
	entry := domain.CacheEntry{
		Data:      record,
		StoredAt:  storedAt,
		ExpiresAt: storedAt + c.ttlDays.Load()*millisecondsDay,
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	if err := c.store.Set(ctx, cacheKey(plate), string(raw)); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

// Clear removes every cache entry regardless of expiry and returns how many
// were removed.
func (c *ResultCache) Clear(ctx context.Context) (int, error) {
	keys, err := c.cacheKeys(ctx)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, key := range keys {
		if err := c.store.Remove(ctx, key); err != nil {
			return removed, fmt.Errorf("remove cache entry %s: %w", key, err)
		}
		removed++
	}
	return removed, nil
}

// ClearExpired removes entries whose expiry has passed, plus any entry that
// no longer decodes. Unexpired entries are left untouched.
func (c *ResultCache) ClearExpired(ctx context.Context) (int, error) {
	keys, err := c.cacheKeys(ctx)
	if err != nil {
		return 0, err
	}
	now := c.now()
	removed := 0
	for _, key := range keys {
		raw, found, err := c.store.Get(ctx, key)
		if err != nil {
			return removed, fmt.Errorf("read cache entry %s: %w", key, err)
		}
		if !found {
			continue
		}
		entry, decodeErr := decodeCacheEntry(raw)
		if decodeErr == nil && !entry.ExpiredAt(now) {
			continue
		}
		if err := c.store.Remove(ctx, key); err != nil {
			return removed, fmt.Errorf("remove cache entry %s: %w", key, err)
		}
		removed++
	}
	if removed > 0 {
		c.logger.Info("cache_sweep_completed", "removed", removed, "scanned", len(keys))
	}
	return removed, nil
}

func (c *ResultCache) TTLDays() int {
	return int(c.ttlDays.Load())
}

// SetTTLDays changes the TTL applied to future writes and persists it.
// Existing entries keep the expiry they were stored with.
func (c *ResultCache) SetTTLDays(ctx context.Context, days int) error {
	if days < MinTTLDays || days > MaxTTLDays {
		return domain.NewError(
			domain.KindValidation,
			fmt.Sprintf("Cache expiry must be between %d and %d days.", MinTTLDays, MaxTTLDays),
			fmt.Errorf("ttl days out of range: %d", days),
		)
	}
	if err := c.store.Set(ctx, CacheTTLKey, strconv.Itoa(days)); err != nil {
		return fmt.Errorf("persist cache ttl: %w", err)
	}
	c.ttlDays.Store(int64(days))
	return nil
}

// LoadTTL restores a previously persisted TTL. A missing or invalid value
// keeps the configured default.
func (c *ResultCache) LoadTTL(ctx context.Context) error {
	raw, found, err := c.store.Get(ctx, CacheTTLKey)
	if err != nil {
		return fmt.Errorf("read cache ttl: %w", err)
	}
	if !found {
		return nil
	}
	days, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || days < MinTTLDays || days > MaxTTLDays {
		c.logger.Warn("cache_ttl_ignored", "value", raw)
		return nil
	}
	c.ttlDays.Store(int64(days))
	return nil
}

func (c *ResultCache) cacheKeys(ctx context.Context) ([]string, error) {
	keys, err := c.store.ListKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cache keys: %w", err)
	}
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		if strings.HasPrefix(key, CacheKeyPrefix) {
			out = append(out, key)
		}
	}
	return out, nil
}

func (c *ResultCache) purge(ctx context.Context, key string) error {
	if err := c.store.Remove(ctx, key); err != nil {
		return fmt.Errorf("purge cache entry: %w", err)
	}
	return nil
}

func cacheKey(plate domain.Plate) string {
	return CacheKeyPrefix + string(plate)
}

func decodeCacheEntry(raw string) (domain.CacheEntry, error) {
	var entry domain.CacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return domain.CacheEntry{}, err
	}
	if entry.ExpiresAt == 0 {
		return domain.CacheEntry{}, fmt.Errorf("cache entry has no expiry")
	}
	return entry, nil
}

func clampTTL(days int) int {
	switch {
	case days < MinTTLDays:
		return DefaultTTLDays
	case days > MaxTTLDays:
		return MaxTTLDays
	default:
		return days
	}
}
