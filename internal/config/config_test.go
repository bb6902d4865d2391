package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.expandDataDir()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Search.EmbeddingDim != 384 {
		t.Fatalf("expected default embedding dim 384, got %d", cfg.Search.EmbeddingDim)
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engram.toml")

	cfg := DefaultConfig()
	cfg.General.DataDir = dir
	cfg.Search.DedupThreshold = 0.9
	cfg.Safety.CustomDenyPatterns = []string{"TOP SECRET"}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Search.DedupThreshold != 0.9 {
		t.Fatalf("expected dedup_threshold 0.9, got %v", loaded.Search.DedupThreshold)
	}
	if len(loaded.Safety.CustomDenyPatterns) != 1 || loaded.Safety.CustomDenyPatterns[0] != "TOP SECRET" {
		t.Fatalf("deny patterns did not round-trip: %v", loaded.Safety.CustomDenyPatterns)
	}
}

func TestEnvOverridePort(t *testing.T) {
	os.Setenv("ENGRAM_PORT", "9999")
	defer os.Unsetenv("ENGRAM_PORT")

	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Port != 9999 {
		t.Fatalf("expected ENGRAM_PORT override to apply, got %d", cfg.HTTP.Port)
	}
}

func TestValidateRejectsBadEmbeddingDim(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Search.EmbeddingDim = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for zero embedding dim")
	}
}

func TestValidateRequiresGenAIKeyWhenSelected(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Embedding.Provider = "genai"
	cfg.Embedding.GenAIAPIKey = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for missing genai api key")
	}
}
