package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/lazypower/recall/internal/store"
)

// SearchResult represents a single search result.
type SearchResult struct {
	Concept    store.Concept `json:"concept"`
	Score      float64       `json:"score"`
	Similarity float64       `json:"similarity"`
}

// SearchOpts controls search behavior.
type SearchOpts struct {
	Limit int // max results (default 10)
}

func (o SearchOpts) limit() int {
	if o.Limit <= 0 {
		return 10
	}
	return o.Limit
}

// Find ranks concepts against a free-text query by vector similarity
// weighted with the retention estimate, so living memories outrank faded
// ones. Returned concepts get a last-seen touch: retrieval is exposure.
func (e *Engine) Find(ctx context.Context, query string, opts SearchOpts) ([]SearchResult, error) {
	if e.Embedder == nil {
		return nil, fmt.Errorf("no embedder configured")
	}

	queryVec, err := e.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	vecs, err := e.DB.AllEmbeddings()
	if err != nil {
		return nil, fmt.Errorf("load embeddings: %w", err)
	}
	if len(vecs) == 0 {
		return nil, nil
	}

	concepts, err := e.DB.ListConcepts()
	if err != nil {
		return nil, fmt.Errorf("list concepts: %w", err)
	}

	// Score = similarity * retention
	var results []SearchResult
	for _, c := range concepts {
		emb, ok := vecs[c.ID]
		if !ok {
			continue
		}

		similarity := CosineSimilarity(queryVec, emb)
		score := similarity * c.MemoryScore

		if score > 0 {
			results = append(results, SearchResult{
				Concept:    c,
				Score:      score,
				Similarity: similarity,
			})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	limit := opts.limit()
	if len(results) > limit {
		results = results[:limit]
	}

	// Looking a concept up refreshes it like any other exposure, but
	// without inflating the occurrence count.
	now := time.Now().UnixMilli()
	for _, r := range results {
		e.DB.TouchLastSeen(r.Concept.ID, now)
	}

	return results, nil
}
