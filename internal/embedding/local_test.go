package embedding

import (
	"context"
	"testing"
)

func TestLocalEngineDeterministic(t *testing.T) {
	e := NewLocalEngine(64)
	ctx := context.Background()

	a, err := e.Embed(ctx, "remind me to call Bob in 5 minutes")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	b, err := e.Embed(ctx, "remind me to call Bob in 5 minutes")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(a) != 64 || len(b) != 64 {
		t.Fatalf("expected dimension 64, got %d and %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("expected deterministic embedding, differed at index %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestLocalEngineDistinctTexts(t *testing.T) {
	e := NewLocalEngine(32)
	ctx := context.Background()

	a, _ := e.Embed(ctx, "call Bob tomorrow")
	b, _ := e.Embed(ctx, "completely unrelated sentence about groceries")

	sim, err := CosineSimilarity(a, b)
	if err != nil {
		t.Fatalf("CosineSimilarity: %v", err)
	}
	if sim > 0.9 {
		t.Fatalf("expected dissimilar texts to have lower similarity, got %v", sim)
	}
}

func TestLocalEngineDimensionsAndName(t *testing.T) {
	e := NewLocalEngine(128)
	if e.Dimensions() != 128 {
		t.Fatalf("expected dimensions 128, got %d", e.Dimensions())
	}
	if e.Name() == "" {
		t.Fatal("expected non-empty engine name")
	}
}

func TestNewEngineUnsupportedProvider(t *testing.T) {
	_, err := NewEngine(Config{Provider: "whisper"})
	if err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}

func TestNewEngineLocalProvider(t *testing.T) {
	eng, err := NewEngine(Config{Provider: "local", Dimensions: 16})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if eng.Dimensions() != 16 {
		t.Fatalf("expected dimensions 16, got %d", eng.Dimensions())
	}
}
