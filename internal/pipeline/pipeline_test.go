package pipeline

import (
	"context"
	"path/filepath"
	"testing"

	"engram/internal/config"
	"engram/internal/embedding"
	"engram/internal/events"
	"engram/internal/safety"
	"engram/internal/store"
	"engram/internal/types"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "engram.db")
	localStore, err := store.NewLocalStore(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { localStore.Close() })

	localStore.SetEmbeddingEngine(embedding.NewLocalEngine(32))

	gate := safety.New(config.SafetyConfig{
		CreditCardRedaction: true,
		SSNRedaction:        true,
		PiiDetection:        true,
		PhoneRedaction:      true,
	})

	return New(gate, localStore, events.NewBus(), 0.95)
}

func TestIngestEmptyTextSkipped(t *testing.T) {
	p := newTestPipeline(t)
	outcome, err := p.Ingest(context.Background(), types.Capture{Kind: types.ContentDictation, Text: "   "})
	if err != nil || outcome.Kind != OutcomeSkipped {
		t.Fatalf("expected Skipped, got %+v, err=%v", outcome, err)
	}
}

func TestIngestDeniedByCustomPattern(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "engram.db")
	localStore, err := store.NewLocalStore(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer localStore.Close()
	localStore.SetEmbeddingEngine(embedding.NewLocalEngine(32))

	gate := safety.New(config.SafetyConfig{CustomDenyPatterns: []string{"forbidden"}})
	p := New(gate, localStore, events.NewBus(), 0.95)

	outcome, err := p.Ingest(context.Background(), types.Capture{Kind: types.ContentDictation, Text: "this is forbidden content"})
	if err != nil || outcome.Kind != OutcomeDenied {
		t.Fatalf("expected Denied, got %+v, err=%v", outcome, err)
	}
}

func TestIngestStoresNovelCapture(t *testing.T) {
	p := newTestPipeline(t)
	outcome, err := p.Ingest(context.Background(), types.Capture{Kind: types.ContentDictation, Text: "buy milk tomorrow"})
	if err != nil || outcome.Kind != OutcomeStored || outcome.CaptureID == "" {
		t.Fatalf("expected Stored, got %+v, err=%v", outcome, err)
	}

	got, err := p.store.GetCapture(outcome.CaptureID)
	if err != nil || got.Text != "buy milk tomorrow" {
		t.Fatalf("expected capture persisted, got %v, %+v", err, got)
	}
}

func TestIngestDuplicateExactTextDeduplicated(t *testing.T) {
	p := newTestPipeline(t)
	ctx := context.Background()

	first, err := p.Ingest(ctx, types.Capture{Kind: types.ContentDictation, Text: "recurring note"})
	if err != nil || first.Kind != OutcomeStored {
		t.Fatalf("expected first ingest to store, got %+v, err=%v", first, err)
	}

	second, err := p.Ingest(ctx, types.Capture{Kind: types.ContentDictation, Text: "recurring note"})
	if err != nil || second.Kind != OutcomeDeduplicated {
		t.Fatalf("expected second ingest to dedup, got %+v, err=%v", second, err)
	}
}

func TestIngestRedactsPII(t *testing.T) {
	p := newTestPipeline(t)
	outcome, err := p.Ingest(context.Background(), types.Capture{
		Kind: types.ContentDictation,
		Text: "call me at 555-123-4567 about the project",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Kind != OutcomeRedacted || outcome.RedactionCount == 0 {
		t.Fatalf("expected Redacted with count>0, got %+v", outcome)
	}
}

func TestIngestPublishesStoredEvent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "engram.db")
	localStore, err := store.NewLocalStore(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer localStore.Close()
	localStore.SetEmbeddingEngine(embedding.NewLocalEngine(32))

	bus := events.NewBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := bus.Subscribe(ctx)

	gate := safety.New(config.SafetyConfig{})
	p := New(gate, localStore, bus, 0.95)

	if _, err := p.Ingest(ctx, types.Capture{Kind: types.ContentDictation, Text: "hello world"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case evt := <-ch:
		if evt.Kind != types.EventCaptureStored {
			t.Fatalf("expected capture_stored event, got %+v", evt)
		}
	default:
		t.Fatal("expected an event to be published")
	}
}
