package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/kirillkom/vehicle-checker/internal/core/domain"
)

func sampleRecord(reg string) domain.VehicleRecord {
	engine := 1598
	return domain.VehicleRecord{
		RegistrationNumber: reg,
		TaxStatus:          domain.TaxStatusTaxed,
		MOTStatus:          "Valid",
		Make:               "FORD",
		Colour:             "BLUE",
		FuelType:           "PETROL",
		EngineCapacity:     &engine,
		YearOfManufacture:  2018,
	}
}

func TestResultCacheRoundTrip(t *testing.T) {
	for _, ttl := range []int{1, 7, 30} {
		store := newStoreFake()
		clock := newClock()
		cache := NewResultCache(store, ttl, WithCacheClock(clock.Now))

		record := sampleRecord("AB12CDE")
		if err := cache.Set(context.Background(), "AB12CDE", record); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		got, ok, err := cache.Get(context.Background(), "AB12CDE")
		if err != nil || !ok {
			t.Fatalf("Get() = %v, %v; want hit", ok, err)
		}
		if !reflect.DeepEqual(got, record) {
			t.Fatalf("round trip mismatch: %+v vs %+v", got, record)
		}
	}
}

func TestResultCacheStoresExpiryFromTTL(t *testing.T) {
	store := newStoreFake()
	clock := newClock()
	cache := NewResultCache(store, 3, WithCacheClock(clock.Now))

	if err := cache.Set(context.Background(), "AB12CDE", sampleRecord("AB12CDE")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	var entry domain.CacheEntry
	if err := json.Unmarshal([]byte(store.data["vehicle_AB12CDE"]), &entry); err != nil {
		t.Fatalf("stored entry is not json: %v", err)
	}
	if entry.StoredAt != clock.now.UnixMilli() {
		t.Fatalf("unexpected storedAt %d", entry.StoredAt)
	}
	if entry.ExpiresAt-entry.StoredAt != 3*86_400_000 {
		t.Fatalf("expected 3 day ttl, got %dms", entry.ExpiresAt-entry.StoredAt)
	}
}

func TestResultCacheExpiredEntryIsPurgedOnRead(t *testing.T) {
	store := newStoreFake()
	clock := newClock()
	cache := NewResultCache(store, 1, WithCacheClock(clock.Now))

	_ = cache.Set(context.Background(), "AB12CDE", sampleRecord("AB12CDE"))

	clock.Advance(24 * time.Hour)
	if _, ok, _ := cache.Get(context.Background(), "AB12CDE"); !ok {
		t.Fatalf("entry must still be served exactly at expiry")
	}

	clock.Advance(time.Millisecond)
	_, ok, err := cache.Get(context.Background(), "AB12CDE")
	if err != nil || ok {
		t.Fatalf("expected miss after expiry, got ok=%v err=%v", ok, err)
	}
	keys, _ := store.ListKeys(context.Background())
	if len(keys) != 0 {
		t.Fatalf("expired entry should be removed, keys=%v", keys)
	}
}

func TestResultCacheCorruptEntryIsTreatedAsMiss(t *testing.T) {
	store := newStoreFake()
	store.data["vehicle_AB12CDE"] = "{not json"
	store.data["vehicle_XY99ZZZ"] = `{"data":{}}`
	cache := NewResultCache(store, 7)

	for _, plate := range []domain.Plate{"AB12CDE", "XY99ZZZ"} {
		_, ok, err := cache.Get(context.Background(), plate)
		if err != nil || ok {
			t.Fatalf("%s: expected silent miss, got ok=%v err=%v", plate, ok, err)
		}
		if _, present := store.data["vehicle_"+string(plate)]; present {
			t.Fatalf("%s: corrupt entry should be purged", plate)
		}
	}
}

func TestResultCacheGetPropagatesStoreFailure(t *testing.T) {
	store := newStoreFake()
	store.getErr = errStoreDown
	cache := NewResultCache(store, 7)

	_, ok, err := cache.Get(context.Background(), "AB12CDE")
	if ok || !errors.Is(err, errStoreDown) {
		t.Fatalf("expected store error, got ok=%v err=%v", ok, err)
	}
}

func TestResultCacheClearExpiredLeavesFreshEntriesUntouched(t *testing.T) {
	store := newStoreFake()
	clock := newClock()
	cache := NewResultCache(store, 1, WithCacheClock(clock.Now))
	ctx := context.Background()

	_ = cache.Set(ctx, "OLD1ONE", sampleRecord("OLD1ONE"))
	clock.Advance(12 * time.Hour)
	_ = cache.Set(ctx, "NEW1ONE", sampleRecord("NEW1ONE"))
	store.data["vehicle_BROKEN"] = "garbage"
	store.data["history"] = "[]"
	freshBefore := store.data["vehicle_NEW1ONE"]

	clock.Advance(13 * time.Hour)
	removed, err := cache.ClearExpired(ctx)
	if err != nil {
		t.Fatalf("ClearExpired() error = %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removals, got %d", removed)
	}
	if _, ok := store.data["vehicle_OLD1ONE"]; ok {
		t.Fatalf("expired entry survived sweep")
	}
	if store.data["vehicle_NEW1ONE"] != freshBefore {
		t.Fatalf("fresh entry was modified by sweep")
	}
	if _, ok := store.data["history"]; !ok {
		t.Fatalf("sweep must not touch keys outside the cache namespace")
	}
}

func TestResultCacheClearRemovesOnlyCacheKeys(t *testing.T) {
	store := newStoreFake()
	cache := NewResultCache(store, 7)
	ctx := context.Background()
	_ = cache.Set(ctx, "AB12CDE", sampleRecord("AB12CDE"))
	_ = cache.Set(ctx, "XY99ZZZ", sampleRecord("XY99ZZZ"))
	store.data["history"] = "[]"
	store.data["cache_expiry"] = "7"

	removed, err := cache.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if removed != 2 || len(store.data) != 2 {
		t.Fatalf("expected two cache entries removed, removed=%d remaining=%v", removed, store.data)
	}
}

func TestResultCacheLastSetWins(t *testing.T) {
	store := newStoreFake()
	cache := NewResultCache(store, 7)
	ctx := context.Background()

	first := sampleRecord("AB12CDE")
	second := sampleRecord("AB12CDE")
	second.Colour = "RED"
	second.EngineCapacity = nil

	_ = cache.Set(ctx, "AB12CDE", first)
	_ = cache.Set(ctx, "AB12CDE", second)

	got, ok, _ := cache.Get(ctx, "AB12CDE")
	if !ok || !reflect.DeepEqual(got, second) {
		t.Fatalf("expected the second record verbatim, got %+v", got)
	}
}

func TestResultCacheTTLSettingPersistsAndApplies(t *testing.T) {
	store := newStoreFake()
	clock := newClock()
	cache := NewResultCache(store, 7, WithCacheClock(clock.Now))
	ctx := context.Background()

	if err := cache.SetTTLDays(ctx, 31); !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("expected validation error for 31 days, got %v", err)
	}
	if err := cache.SetTTLDays(ctx, 2); err != nil {
		t.Fatalf("SetTTLDays() error = %v", err)
	}
	if store.data[CacheTTLKey] != "2" {
		t.Fatalf("ttl not persisted: %q", store.data[CacheTTLKey])
	}

	restored := NewResultCache(store, 7, WithCacheClock(clock.Now))
	if err := restored.LoadTTL(ctx); err != nil {
		t.Fatalf("LoadTTL() error = %v", err)
	}
	if restored.TTLDays() != 2 {
		t.Fatalf("expected restored ttl 2, got %d", restored.TTLDays())
	}

	_ = restored.Set(ctx, "AB12CDE", sampleRecord("AB12CDE"))
	clock.Advance(2*24*time.Hour + time.Millisecond)
	if _, ok, _ := restored.Get(ctx, "AB12CDE"); ok {
		t.Fatalf("entry should expire after the persisted ttl")
	}
}

func TestNewResultCacheClampsTTL(t *testing.T) {
	if got := NewResultCache(newStoreFake(), 0).TTLDays(); got != DefaultTTLDays {
		t.Fatalf("expected default ttl, got %d", got)
	}
	if got := NewResultCache(newStoreFake(), 90).TTLDays(); got != MaxTTLDays {
		t.Fatalf("expected max ttl, got %d", got)
	}
}
