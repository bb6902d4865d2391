package search

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"engram/internal/embedding"
	"engram/internal/store"
	"engram/internal/types"
)

func newTestSearcher(t *testing.T) (*Searcher, *store.LocalStore) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "engram.db")
	localStore, err := store.NewLocalStore(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { localStore.Close() })
	localStore.SetEmbeddingEngine(embedding.NewLocalEngine(32))
	return New(localStore, 0.6), localStore
}

func insertCapture(t *testing.T, s *store.LocalStore, id, kind, app, text string, ts time.Time) {
	t.Helper()
	c := &types.Capture{
		ID:        id,
		Kind:      types.ContentKind(kind),
		Timestamp: ts,
		Text:      text,
	}
	if app != "" {
		c.Screen = &types.ScreenMeta{AppName: app}
	}
	if err := s.InsertCapture(c, id+"-hash"); err != nil {
		t.Fatalf("insert capture: %v", err)
	}
	if err := s.StoreCaptureVector(context.Background(), id, text); err != nil {
		t.Fatalf("store vector: %v", err)
	}
}

func TestHybridEmptyQueryReturnsEmpty(t *testing.T) {
	s, _ := newTestSearcher(t)
	results, err := s.Hybrid(context.Background(), "   ", types.SearchFilters{}, 10)
	if err != nil || results != nil {
		t.Fatalf("expected empty result, got %v, err=%v", results, err)
	}
}

func TestHybridFindsStoredCapture(t *testing.T) {
	s, store := newTestSearcher(t)
	insertCapture(t, store, "c1", "dictation", "", "buy milk and eggs", time.Now())

	results, err := s.Hybrid(context.Background(), "buy milk", types.SearchFilters{}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].ID != "c1" {
		t.Fatalf("expected c1, got %+v", results)
	}
}

func TestHybridFiltersByContentKind(t *testing.T) {
	s, store := newTestSearcher(t)
	insertCapture(t, store, "c1", "dictation", "", "a shared phrase", time.Now())
	insertCapture(t, store, "c2", "screen", "", "a shared phrase", time.Now())

	results, err := s.Hybrid(context.Background(), "shared phrase", types.SearchFilters{ContentKind: types.ContentScreen}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, r := range results {
		if r.ContentKind != types.ContentScreen {
			t.Fatalf("expected only screen captures, got %+v", r)
		}
	}
}

func TestHybridFiltersByTimeRange(t *testing.T) {
	s, store := newTestSearcher(t)
	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now()
	insertCapture(t, store, "old", "dictation", "", "time sensitive note", old)
	insertCapture(t, store, "new", "dictation", "", "time sensitive note", recent)

	start := time.Now().Add(-1 * time.Hour)
	results, err := s.Hybrid(context.Background(), "time sensitive note", types.SearchFilters{Start: &start}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, r := range results {
		if r.ID == "old" {
			t.Fatalf("expected old capture filtered out, got %+v", results)
		}
	}
}

func TestKeywordEmptyQueryReturnsEmpty(t *testing.T) {
	s, _ := newTestSearcher(t)
	results, err := s.Keyword("", 10)
	if err != nil || results != nil {
		t.Fatalf("expected empty result, got %v, err=%v", results, err)
	}
}

func TestKeywordFindsStoredCapture(t *testing.T) {
	s, store := newTestSearcher(t)
	insertCapture(t, store, "c1", "dictation", "", "remember to call the dentist", time.Now())

	results, err := s.Keyword("dentist", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].ID != "c1" {
		t.Fatalf("expected c1, got %+v", results)
	}
}

func TestSearchBlendsSemanticAndKeyword(t *testing.T) {
	s, store := newTestSearcher(t)
	insertCapture(t, store, "c1", "dictation", "", "quarterly budget review notes", time.Now())

	results, err := s.Search(context.Background(), "budget review", types.SearchFilters{}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one blended result")
	}
}
