package cache

import (
	"bytes"
	"testing"
	"time"
)

func TestGraphKey_SensitiveToLedgerAndTime(t *testing.T) {
	ledger := []byte(`{"kind":"claim_added"}`)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	base := GraphKey(ledger, now)
	if base != GraphKey(ledger, now) {
		t.Error("expected a stable key for identical inputs")
	}
	if base == GraphKey([]byte(`changed`), now) {
		t.Error("expected a different key for different ledger bytes")
	}
	if base == GraphKey(ledger, now.Add(time.Hour)) {
		t.Error("expected a different key for a different point in time")
	}
}

func TestMemoryCache_SetGetDelete(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	if _, found := c.Get("missing"); found {
		t.Error("expected miss on empty cache")
	}

	if err := c.Set("k", []byte("v"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	val, found := c.Get("k")
	if !found || !bytes.Equal(val, []byte("v")) {
		t.Errorf("expected hit with stored bytes, got %q found=%v", val, found)
	}

	if err := c.Delete("k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, found := c.Get("k"); found {
		t.Error("expected miss after delete")
	}
}

func TestDiskCache_SurvivesNewInstance(t *testing.T) {
	dir := t.TempDir()

	first := NewDiskCache(dir, time.Hour)
	if err := first.Set("k", []byte("persisted"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}

	second := NewDiskCache(dir, time.Hour)
	val, found := second.Get("k")
	if !found || !bytes.Equal(val, []byte("persisted")) {
		t.Errorf("expected the entry to survive across instances, got %q found=%v", val, found)
	}
}

func TestDiskCache_ExpiredEntryDropped(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)

	if err := c.Set("k", []byte("v"), -time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, found := c.Get("k"); found {
		t.Error("expected an already-expired entry to miss")
	}
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()

	// Seed the disk layer directly, then read through a fresh layered cache
	disk := NewDiskCache(dir, time.Hour)
	if err := disk.Set("k", []byte("v"), 0); err != nil {
		t.Fatalf("seed disk: %v", err)
	}

	layered := NewLayeredCache(time.Minute, dir, time.Hour)
	val, found := layered.Get("k")
	if !found || !bytes.Equal(val, []byte("v")) {
		t.Fatalf("expected disk hit through the layered cache, got %q found=%v", val, found)
	}

	// The hit must now be served from memory
	if _, found := layered.memory.Get("k"); !found {
		t.Error("expected the disk hit promoted into memory")
	}
}

func TestLayeredCache_DeleteClearsBothLayers(t *testing.T) {
	layered := NewLayeredCache(time.Minute, t.TempDir(), time.Hour)

	if err := layered.Set("k", []byte("v"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := layered.Delete("k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, found := layered.Get("k"); found {
		t.Error("expected miss from both layers after delete")
	}
}
