package tiering

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"engram/internal/clock"
	"engram/internal/config"
	"engram/internal/embedding"
	"engram/internal/events"
	"engram/internal/store"
	"engram/internal/types"
)

func newTestSweeper(t *testing.T, now time.Time) (*Sweeper, *store.LocalStore, *events.Bus) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "engram.db")
	localStore, err := store.NewLocalStore(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { localStore.Close() })
	localStore.SetEmbeddingEngine(embedding.NewLocalEngine(32))

	cfg := config.StorageConfig{
		HotDays:            7,
		WarmDays:           30,
		PurgeIntervalHours: 24,
		Quantization: config.QuantizationConfig{
			HotFormat:  "f32",
			WarmFormat: "int8",
			ColdFormat: "binary",
		},
	}
	bus := events.NewBus()
	return New(localStore, clock.Fixed{At: now}, bus, cfg), localStore, bus
}

func insertAt(t *testing.T, s *store.LocalStore, id string, ts time.Time, tier types.StorageTier) {
	t.Helper()
	c := &types.Capture{ID: id, Kind: types.ContentDictation, Timestamp: ts, Text: "note " + id, Tier: tier, Format: types.FormatF32}
	if err := s.InsertCapture(c, id+"-hash"); err != nil {
		t.Fatalf("insert capture: %v", err)
	}
}

func TestSweepPromotesOldHotToWarm(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	sweeper, localStore, _ := newTestSweeper(t, now)

	insertAt(t, localStore, "old", now.Add(-10*24*time.Hour), types.TierHot)
	insertAt(t, localStore, "fresh", now.Add(-1*24*time.Hour), types.TierHot)

	result, err := sweeper.Sweep()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.PromotedToWarm != 1 {
		t.Fatalf("expected 1 promotion to warm, got %+v", result)
	}

	old, err := localStore.GetCapture("old")
	if err != nil || old.Tier != types.TierWarm {
		t.Fatalf("expected old capture promoted to warm, got %+v, err=%v", old, err)
	}
	fresh, err := localStore.GetCapture("fresh")
	if err != nil || fresh.Tier != types.TierHot {
		t.Fatalf("expected fresh capture to remain hot, got %+v, err=%v", fresh, err)
	}
}

func TestSweepPromotesOldWarmToCold(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	sweeper, localStore, _ := newTestSweeper(t, now)

	insertAt(t, localStore, "ancient", now.Add(-40*24*time.Hour), types.TierWarm)

	result, err := sweeper.Sweep()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.PromotedToCold != 1 {
		t.Fatalf("expected 1 promotion to cold, got %+v", result)
	}

	got, err := localStore.GetCapture("ancient")
	if err != nil || got.Tier != types.TierCold || got.Format != types.FormatBinary {
		t.Fatalf("expected ancient capture cold with binary format, got %+v, err=%v", got, err)
	}
}

func TestSweepNoEligibleCapturesIsNoop(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	sweeper, localStore, _ := newTestSweeper(t, now)
	insertAt(t, localStore, "fresh", now, types.TierHot)

	result, err := sweeper.Sweep()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.PromotedToWarm != 0 || result.PromotedToCold != 0 {
		t.Fatalf("expected no promotions, got %+v", result)
	}
}

func TestSweepPublishesTierChangeAndVectorQuantizedEvents(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	sweeper, localStore, bus := newTestSweeper(t, now)
	insertAt(t, localStore, "old", now.Add(-10*24*time.Hour), types.TierHot)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := bus.Subscribe(ctx)

	result, err := sweeper.Sweep()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.PromotedToWarm != 1 {
		t.Fatalf("expected 1 promotion, got %+v", result)
	}

	var kinds []types.EventKind
	for i := 0; i < 2; i++ {
		select {
		case evt := <-sub:
			kinds = append(kinds, evt.Kind)
			if evt.CaptureID != "old" {
				t.Fatalf("expected event for capture 'old', got %q", evt.CaptureID)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}

	hasTierChanged, hasVectorQuantized := false, false
	for _, k := range kinds {
		switch k {
		case types.EventTierChanged:
			hasTierChanged = true
		case types.EventVectorQuantized:
			hasVectorQuantized = true
		}
	}
	if !hasTierChanged || !hasVectorQuantized {
		t.Fatalf("expected both EventTierChanged and EventVectorQuantized, got %+v", kinds)
	}
}
