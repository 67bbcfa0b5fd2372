package localfs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestStorageRoundTripAndListing(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	if err := s.Set(ctx, "vehicle_AB12CDE", `{"data":1}`); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Set(ctx, "history", "[]"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := s.Set(ctx, "vehicle_AB12CDE", `{"data":2}`); err != nil {
		t.Fatalf("overwrite error = %v", err)
	}

	v, ok, err := s.Get(ctx, "vehicle_AB12CDE")
	if err != nil || !ok || v != `{"data":2}` {
		t.Fatalf("Get() = %q, %v, %v", v, ok, err)
	}

	keys, err := s.ListKeys(ctx)
	if err != nil {
		t.Fatalf("ListKeys() error = %v", err)
	}
	if len(keys) != 2 || keys[0] != "history" || keys[1] != "vehicle_AB12CDE" {
		t.Fatalf("unexpected keys %v", keys)
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, ".tmp-*"))
	if len(leftovers) != 0 {
		t.Fatalf("temp files left behind: %v", leftovers)
	}
}

func TestStorageMissingAndRemove(t *testing.T) {
	s, _ := New(t.TempDir())
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "nope"); ok || err != nil {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}
	if err := s.Remove(ctx, "nope"); err != nil {
		t.Fatalf("removing a missing key should succeed: %v", err)
	}
	_ = s.Set(ctx, "k", "v")
	if err := s.Remove(ctx, "k"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatalf("key still present after remove")
	}
}

func TestStorageEscapesKeys(t *testing.T) {
	dir := t.TempDir()
	s, _ := New(dir)
	ctx := context.Background()

	if err := s.Set(ctx, "../escape", "x"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(dir), "escape.json")); err == nil {
		t.Fatalf("key escaped the storage directory")
	}
	keys, _ := s.ListKeys(ctx)
	if len(keys) != 1 || keys[0] != "../escape" {
		t.Fatalf("unexpected keys %v", keys)
	}
}
