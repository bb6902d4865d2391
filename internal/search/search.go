// Package search implements hybrid search: unifying the semantic (vector)
// recall path with R's FTS5 keyword path and metadata filters into a single
// ranked result set, the way the teacher's vector store composes semantic
// recall with post-hoc filtering in VectorRecallSemanticFiltered.
package search

import (
	"context"
	"sort"
	"strings"

	"engram/internal/store"
	"engram/internal/types"
)

// overfetchFactor is how many more candidates than k are pulled from the
// vector index before filtering, since metadata filters may eliminate some.
const overfetchFactor = 3

// Searcher answers hybrid and keyword-only queries against a LocalStore.
type Searcher struct {
	store          *store.LocalStore
	semanticWeight float64
}

// New builds a Searcher. semanticWeight in [0, 1] controls how much a
// capture's semantic similarity counts relative to its keyword rank when
// Search blends both paths.
func New(localStore *store.LocalStore, semanticWeight float64) *Searcher {
	return &Searcher{store: localStore, semanticWeight: semanticWeight}
}

// Hybrid runs the semantic-only path: embed query, overfetch 3k candidates
// from V, filter by metadata, truncate to k.
func (s *Searcher) Hybrid(ctx context.Context, query string, filters types.SearchFilters, k int) ([]types.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	if k <= 0 {
		k = 20
	}

	matches, err := s.store.SearchVectors(ctx, query, k*overfetchFactor)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(matches))
	scoreByID := make(map[string]float64, len(matches))
	for i, m := range matches {
		ids[i] = m.CaptureID
		scoreByID[m.CaptureID] = m.Similarity
	}

	captures, err := s.store.CapturesByIDs(ids)
	if err != nil {
		return nil, err
	}

	results := make([]types.SearchResult, 0, len(captures))
	for _, c := range captures {
		if !matchesFilters(c, filters) {
			continue
		}
		results = append(results, toResult(c, scoreByID[c.ID]))
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Keyword runs the FTS5 keyword path: phrase/prefix/boolean query syntax,
// ranked by BM25 (sign-inverted so higher is better). An empty query
// returns an empty list without error.
func (s *Searcher) Keyword(query string, limit int) ([]types.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	ids, err := s.store.SearchCapturesByText(query, limit)
	if err != nil {
		return nil, err
	}

	captures, err := s.store.CapturesByIDs(ids)
	if err != nil {
		return nil, err
	}

	// SearchCapturesByText already orders by bm25; preserve that order with
	// a descending synthetic score so callers can treat it like any other
	// SearchResult list.
	results := make([]types.SearchResult, len(captures))
	for i, c := range captures {
		results[i] = toResult(c, float64(len(captures)-i))
	}
	return results, nil
}

// Search blends the semantic and keyword paths: each surviving candidate's
// score is semanticWeight*semantic + (1-semanticWeight)*keyword-rank,
// captures found by only one path are scored on that path alone.
func (s *Searcher) Search(ctx context.Context, query string, filters types.SearchFilters, k int) ([]types.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	if k <= 0 {
		k = 20
	}

	semantic, err := s.Hybrid(ctx, query, filters, k*overfetchFactor)
	if err != nil {
		return nil, err
	}
	keyword, err := s.Keyword(query, k*overfetchFactor)
	if err != nil {
		return nil, err
	}

	combined := make(map[string]types.SearchResult, len(semantic)+len(keyword))
	maxKeywordScore := 0.0
	for _, r := range keyword {
		if r.Score > maxKeywordScore {
			maxKeywordScore = r.Score
		}
	}

	for _, r := range semantic {
		blended := r
		blended.Score = r.Score * s.semanticWeight
		combined[r.ID] = blended
	}
	for _, r := range keyword {
		normalized := 0.0
		if maxKeywordScore > 0 {
			normalized = r.Score / maxKeywordScore
		}
		if existing, ok := combined[r.ID]; ok {
			existing.Score += normalized * (1 - s.semanticWeight)
			combined[r.ID] = existing
			continue
		}
		weighted := r
		weighted.Score = normalized * (1 - s.semanticWeight)
		if !matchesFilters3(weighted, filters) {
			continue
		}
		combined[r.ID] = weighted
	}

	results := make([]types.SearchResult, 0, len(combined))
	for _, r := range combined {
		results = append(results, r)
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func matchesFilters(c *types.Capture, filters types.SearchFilters) bool {
	if filters.ContentKind != "" && c.Kind != filters.ContentKind {
		return false
	}
	if filters.AppName != "" && c.AppName() != filters.AppName {
		return false
	}
	if filters.Start != nil && c.Timestamp.Before(*filters.Start) {
		return false
	}
	if filters.End != nil && c.Timestamp.After(*filters.End) {
		return false
	}
	return true
}

func matchesFilters3(r types.SearchResult, filters types.SearchFilters) bool {
	if filters.ContentKind != "" && r.ContentKind != filters.ContentKind {
		return false
	}
	if filters.AppName != "" && r.AppName != filters.AppName {
		return false
	}
	if filters.Start != nil && r.Timestamp.Before(*filters.Start) {
		return false
	}
	if filters.End != nil && r.Timestamp.After(*filters.End) {
		return false
	}
	return true
}

func toResult(c *types.Capture, score float64) types.SearchResult {
	return types.SearchResult{
		ID:          c.ID,
		Score:       score,
		ContentKind: c.Kind,
		AppName:     c.AppName(),
		Timestamp:   c.Timestamp,
		Text:        c.Text,
	}
}
