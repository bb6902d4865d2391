package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"engram/internal/logging"
)

// LocalEngine is a deterministic, dependency-free embedding backend. It is
// selected when no model files and no GenAI API key are configured (see
// spec: "absence of model files triggers a deterministic hash-based mock").
// It produces stable, reproducible vectors from repeated SHA-256 hashing of
// normalized input tokens so ingestion, dedup, and search tests can run
// without any network or model dependency.
type LocalEngine struct {
	dimensions int
}

// NewLocalEngine creates a local hash-based embedding engine of the given
// dimensionality.
func NewLocalEngine(dimensions int) *LocalEngine {
	if dimensions <= 0 {
		dimensions = 384
	}
	logging.Embedding("Initializing local hash-based embedding engine: dimensions=%d", dimensions)
	return &LocalEngine{dimensions: dimensions}
}

// Embed generates a deterministic vector for text by hashing each of its
// lowercased, whitespace-separated tokens with SHA-256, summing values drawn
// from each hash into every dimension, then L2-normalizing the result so
// cosine similarity behaves sensibly for near-duplicate text.
func (e *LocalEngine) Embed(_ context.Context, text string) ([]float32, error) {
	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) == 0 {
		tokens = []string{""}
	}

	vec := make([]float64, e.dimensions)
	for _, tok := range tokens {
		sum := sha256.Sum256([]byte(tok))
		for d := 0; d < e.dimensions; d++ {
			byteIdx := d % len(sum)
			// Mix in the dimension index so adjacent dimensions don't repeat
			// the same byte stream for short hashes.
			v := binary.BigEndian.Uint16([]byte{sum[byteIdx], sum[(byteIdx+d/len(sum)+1)%len(sum)]})
			signed := float64(int32(v) - 32768)
			vec[d] += signed
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		norm = 1
	}
	norm = math.Sqrt(norm)

	out := make([]float32, e.dimensions)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}

// EmbedBatch embeds each text independently; there is no batching win for
// the local backend since there is no network round trip to amortize.
func (e *LocalEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// Dimensions returns the configured vector dimensionality.
func (e *LocalEngine) Dimensions() int { return e.dimensions }

// Name returns the engine name.
func (e *LocalEngine) Name() string { return fmt.Sprintf("local-hash:%d", e.dimensions) }

// HealthCheck always succeeds; the local engine has no external dependency.
func (e *LocalEngine) HealthCheck(_ context.Context) error { return nil }
