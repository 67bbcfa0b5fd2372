package memory

import (
	"context"
	"testing"
)

func TestStoreBasicOperations(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, ok, _ := s.Get(ctx, "missing"); ok {
		t.Fatalf("expected miss")
	}
	_ = s.Set(ctx, "b", "2")
	_ = s.Set(ctx, "a", "1")
	_ = s.Set(ctx, "a", "3")

	v, ok, err := s.Get(ctx, "a")
	if err != nil || !ok || v != "3" {
		t.Fatalf("Get(a) = %q, %v, %v", v, ok, err)
	}
	keys, _ := s.ListKeys(ctx)
	if len(keys) != 2 || keys[0] != "a" || keys[1] != "b" {
		t.Fatalf("unexpected keys %v", keys)
	}
	_ = s.Remove(ctx, "a")
	_ = s.Remove(ctx, "never-there")
	keys, _ = s.ListKeys(ctx)
	if len(keys) != 1 {
		t.Fatalf("unexpected keys after remove %v", keys)
	}
}
