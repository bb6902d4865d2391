// Package store - vector embedding support for LocalStore. Captures are
// dual-written to a JSON fallback table and, when available, to a vec0
// virtual table for approximate nearest-neighbor search.
package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"engram/internal/embedding"
	"engram/internal/logging"
)

// VectorMatch is a single nearest-neighbor result: the matched capture's ID
// plus its similarity score, clamped to [0, 1] (1 is identical, 0 is no
// overlap or worse).
type VectorMatch struct {
	CaptureID  string
	Similarity float64
}

// SetEmbeddingEngine configures the embedding engine used for new writes and
// initializes the vec0 index at the engine's dimensionality. It also kicks
// off a background backfill of any previously JSON-only vectors.
func (s *LocalStore) SetEmbeddingEngine(engine embedding.EmbeddingEngine) {
	if s == nil || engine == nil {
		return
	}
	s.embeddingEngine = engine
	s.initVecIndex(engine.Dimensions())
	if s.vectorExt {
		go s.backfillVecIndex(engine.Dimensions())
	}
}

// StoreCaptureVector embeds text and stores the resulting vector against
// captureID, dual-writing the JSON fallback table and, if available, the
// vec0 index. It also upserts the vector_meta row (dimensions, format).
func (s *LocalStore) StoreCaptureVector(ctx context.Context, captureID, text string) error {
	timer := logging.StartTimer(logging.CategoryVector, "StoreCaptureVector")
	defer timer.Stop()

	if s.embeddingEngine == nil {
		return fmt.Errorf("no embedding engine configured")
	}

	vec, err := s.embeddingEngine.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed capture: %w", err)
	}

	return s.storeVector(captureID, vec, map[string]interface{}{"capture_id": captureID})
}

// StoreCaptureVectorBatch embeds and stores vectors for multiple captures in
// one round trip to the embedding engine, preserving index alignment between
// captureIDs and texts.
func (s *LocalStore) StoreCaptureVectorBatch(ctx context.Context, captureIDs, texts []string) (int, error) {
	timer := logging.StartTimer(logging.CategoryVector, "StoreCaptureVectorBatch")
	defer timer.Stop()

	if s.embeddingEngine == nil {
		return 0, fmt.Errorf("no embedding engine configured")
	}
	if len(captureIDs) != len(texts) {
		return 0, fmt.Errorf("captureIDs/texts length mismatch: %d != %d", len(captureIDs), len(texts))
	}

	vecs, err := s.embeddingEngine.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed batch: %w", err)
	}

	stored := 0
	for i, vec := range vecs {
		if err := s.storeVector(captureIDs[i], vec, map[string]interface{}{"capture_id": captureIDs[i]}); err != nil {
			logging.Get(logging.CategoryVector).Warn("batch store failed for capture %s: %v", captureIDs[i], err)
			continue
		}
		stored++
	}
	return stored, nil
}

func (s *LocalStore) storeVector(captureID string, vec []float32, metadata map[string]interface{}) error {
	embJSON, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("marshal embedding: %w", err)
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(
		`INSERT INTO vectors (id, capture_id, embedding, metadata) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), captureID, string(embJSON), string(metaJSON),
	); err != nil {
		return fmt.Errorf("insert vector row: %w", err)
	}

	now := time.Now()
	if _, err := s.db.Exec(
		`INSERT INTO vector_meta (capture_id, dimensions, format, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(capture_id) DO UPDATE SET dimensions=excluded.dimensions, format=excluded.format, updated_at=excluded.updated_at`,
		captureID, len(vec), "f32", now, now,
	); err != nil {
		logging.Get(logging.CategoryVector).Warn("vector_meta upsert failed for %s: %v", captureID, err)
	}

	if s.vectorExt {
		blob := encodeFloat32Slice(vec)
		if _, err := s.db.Exec(
			`INSERT OR REPLACE INTO vec_index (rowid, embedding, content, metadata) VALUES (
				(SELECT rowid FROM vec_index WHERE content = ?), ?, ?, ?)`,
			captureID, blob, captureID, string(metaJSON),
		); err != nil {
			logging.Get(logging.CategoryVector).Warn("vec_index write failed for %s: %v", captureID, err)
		}
	}

	return nil
}

// SearchVectors embeds query and returns the nearest captures by cosine
// similarity, using the vec0 index when available and falling back to a
// brute-force scan of the JSON fallback table otherwise.
func (s *LocalStore) SearchVectors(ctx context.Context, query string, limit int) ([]VectorMatch, error) {
	timer := logging.StartTimer(logging.CategoryVector, "SearchVectors")
	defer timer.Stop()

	if s.embeddingEngine == nil {
		return nil, fmt.Errorf("no embedding engine configured")
	}
	if limit <= 0 {
		limit = 10
	}

	queryVec, err := s.embeddingEngine.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	if s.vectorExt {
		matches, err := s.vectorRecallVec(queryVec, limit)
		if err == nil {
			return matches, nil
		}
		logging.Get(logging.CategoryVector).Warn("vec0 recall failed, falling back to brute force: %v", err)
	}
	return s.vectorRecallBruteForce(queryVec, limit)
}

func (s *LocalStore) vectorRecallVec(queryVec []float32, limit int) ([]VectorMatch, error) {
	queryBlob := encodeFloat32Slice(queryVec)

	s.mu.RLock()
	rows, err := s.db.Query(
		`SELECT content, vec_distance_cosine(embedding, ?) AS dist FROM vec_index ORDER BY dist ASC LIMIT ?`,
		queryBlob, limit,
	)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]VectorMatch, 0, limit)
	for rows.Next() {
		var captureID string
		var dist float64
		if err := rows.Scan(&captureID, &dist); err != nil {
			continue
		}
		results = append(results, VectorMatch{CaptureID: captureID, Similarity: clampUnit(1 - dist)})
	}
	return results, nil
}

func (s *LocalStore) vectorRecallBruteForce(queryVec []float32, limit int) ([]VectorMatch, error) {
	s.mu.RLock()
	rows, err := s.db.Query(`SELECT capture_id, embedding FROM vectors`)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]VectorMatch, 0)
	for rows.Next() {
		var captureID, embJSON string
		if err := rows.Scan(&captureID, &embJSON); err != nil {
			continue
		}
		var vec []float32
		if err := json.Unmarshal([]byte(embJSON), &vec); err != nil {
			continue
		}
		sim, err := cosineSimilarity(queryVec, vec)
		if err != nil {
			continue
		}
		results = append(results, VectorMatch{CaptureID: captureID, Similarity: sim})
	}

	for i := 0; i < len(results) && i < limit; i++ {
		for j := i + 1; j < len(results); j++ {
			if results[j].Similarity > results[i].Similarity {
				results[i], results[j] = results[j], results[i]
			}
		}
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func cosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d != %d", len(a), len(b))
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return clampUnit(dot / (math.Sqrt(normA) * math.Sqrt(normB))), nil
}

// clampUnit clamps a raw similarity score to [0,1]. Cosine similarity and
// 1-cosine_distance both range over [-1,1]; callers treat any negative
// overlap as no match rather than surfacing a negative score.
func clampUnit(score float64) float64 {
	return math.Max(0, math.Min(1, score))
}

// initVecIndex attempts to create a vec0 virtual table at the given
// dimensionality; on success it enables vectorExt.
func (s *LocalStore) initVecIndex(dim int) {
	if dim <= 0 || s.db == nil {
		return
	}
	stmt := fmt.Sprintf("CREATE VIRTUAL TABLE IF NOT EXISTS vec_index USING vec0(embedding float[%d], content TEXT, metadata TEXT)", dim)
	if _, err := s.db.Exec(stmt); err == nil {
		s.vectorExt = true
		logging.Vector("vec_index initialized, dimensions=%d", dim)
	} else {
		logging.Get(logging.CategoryVector).Warn("failed to create vec_index: %v", err)
	}
}

func encodeFloat32Slice(vec []float32) []byte {
	buf := &bytes.Buffer{}
	_ = binary.Write(buf, binary.LittleEndian, vec)
	return buf.Bytes()
}

// backfillVecIndex migrates existing JSON-only embeddings into the vec0
// index. Runs in a background goroutine so it never blocks startup; safe to
// call repeatedly since writes are idempotent (INSERT OR REPLACE keyed by
// the content/capture_id column).
func (s *LocalStore) backfillVecIndex(dim int) {
	if !s.vectorExt || s.db == nil || dim <= 0 {
		return
	}

	rows, err := s.db.Query(`SELECT capture_id, embedding, metadata FROM vectors`)
	if err != nil {
		logging.Get(logging.CategoryVector).Warn("backfill query failed: %v", err)
		return
	}

	type row struct {
		captureID string
		blob      []byte
		metaJSON  string
	}
	var batch []row
	skipped := 0
	for rows.Next() {
		var captureID, embJSON, metaJSON string
		if err := rows.Scan(&captureID, &embJSON, &metaJSON); err != nil {
			skipped++
			continue
		}
		var vec []float32
		if err := json.Unmarshal([]byte(embJSON), &vec); err != nil || len(vec) != dim {
			skipped++
			continue
		}
		batch = append(batch, row{captureID: captureID, blob: encodeFloat32Slice(vec), metaJSON: metaJSON})
	}
	rows.Close()

	if len(batch) == 0 {
		return
	}

	const chunkSize = 100
	migrated := 0
	for i := 0; i < len(batch); i += chunkSize {
		end := i + chunkSize
		if end > len(batch) {
			end = len(batch)
		}
		chunk := batch[i:end]

		tx, err := s.db.Begin()
		if err != nil {
			continue
		}
		stmt, err := tx.Prepare(`INSERT OR REPLACE INTO vec_index (embedding, content, metadata) VALUES (?, ?, ?)`)
		if err != nil {
			tx.Rollback()
			continue
		}
		for _, r := range chunk {
			if _, err := stmt.Exec(r.blob, r.captureID, r.metaJSON); err == nil {
				migrated++
			}
		}
		stmt.Close()
		tx.Commit()
	}

	logging.Vector("vec_index backfill complete: migrated=%d skipped=%d", migrated, skipped)
}

// DeleteCaptureVector removes a capture's vector rows from every store
// (JSON fallback, vector_meta, and vec0 index) — used when a capture is purged
// by tiering.
func (s *LocalStore) DeleteCaptureVector(captureID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM vectors WHERE capture_id = ?`, captureID); err != nil {
		return fmt.Errorf("delete vectors row: %w", err)
	}
	if _, err := s.db.Exec(`DELETE FROM vector_meta WHERE capture_id = ?`, captureID); err != nil {
		return fmt.Errorf("delete vector_meta row: %w", err)
	}
	if s.vectorExt {
		if _, err := s.db.Exec(`DELETE FROM vec_index WHERE content = ?`, captureID); err != nil {
			logging.Get(logging.CategoryVector).Warn("vec_index delete failed for %s: %v", captureID, err)
		}
	}
	return nil
}
