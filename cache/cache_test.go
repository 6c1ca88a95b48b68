package cache

import (
	"context"
	"testing"
	"time"

	"github.com/sadikovi/pulsar/utils"
)

func testLogger() *utils.Logger {
	return utils.NewLoggerAt(utils.LevelError)
}

func TestMemoryRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if _, ok := m.Get(ctx, "missing"); ok {
		t.Error("Get on empty cache reported a hit")
	}

	m.Set(ctx, "k", []byte("v"), 0)
	got, ok := m.Get(ctx, "k")
	if !ok || string(got) != "v" {
		t.Errorf("Get: got %q/%v, want v/true", got, ok)
	}

	m.Delete(ctx, "k")
	if _, ok := m.Get(ctx, "k"); ok {
		t.Error("Get after Delete reported a hit")
	}
}

func TestMemoryExpiry(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	m.Set(ctx, "short", []byte("v"), 10*time.Millisecond)
	m.Set(ctx, "forever", []byte("v"), 0)

	if _, ok := m.Get(ctx, "short"); !ok {
		t.Fatal("entry expired before its ttl")
	}
	time.Sleep(20 * time.Millisecond)

	if _, ok := m.Get(ctx, "short"); ok {
		t.Error("entry survived its ttl")
	}
	// The expired read evicts; the untouched entry stays.
	if m.Len() != 1 {
		t.Errorf("Len: got %d, want 1", m.Len())
	}
	if _, ok := m.Get(ctx, "forever"); !ok {
		t.Error("no-ttl entry was evicted")
	}
}

func TestMemoryOverwrite(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	m.Set(ctx, "k", []byte("old"), 0)
	m.Set(ctx, "k", []byte("new"), 0)
	got, ok := m.Get(ctx, "k")
	if !ok || string(got) != "new" {
		t.Errorf("Get after overwrite: got %q/%v, want new/true", got, ok)
	}
	if m.Len() != 1 {
		t.Errorf("Len: got %d, want 1", m.Len())
	}
}

// New falls back to memory when no Redis URL is configured.
func TestNewDefaultsToMemory(t *testing.T) {
	s := New(context.Background(), "", testLogger())
	if _, ok := s.(*Memory); !ok {
		t.Fatalf("New(\"\"): got %T, want *Memory", s)
	}
}
