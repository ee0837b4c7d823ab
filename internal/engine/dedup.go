package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lazypower/recall/internal/store"
)

// Dedup finds near-identical concepts and merges them. Concepts are
// clustered by cosine similarity at or above threshold; the most recently
// seen concept in each cluster survives and absorbs the occurrence counts
// and edges of the rest. Returns the number of concepts removed.
func (e *Engine) Dedup(ctx context.Context, threshold float64) (int, error) {
	if e.Embedder == nil {
		return 0, fmt.Errorf("no embedder configured")
	}
	if threshold <= 0 {
		threshold = 0.95
	}

	// Make sure everything is embedded before comparing
	if _, err := e.EmbedMissing(ctx); err != nil {
		return 0, err
	}

	concepts, err := e.DB.ListConcepts()
	if err != nil {
		return 0, fmt.Errorf("list concepts: %w", err)
	}

	vecs, err := e.DB.AllEmbeddings()
	if err != nil {
		return 0, fmt.Errorf("load embeddings: %w", err)
	}

	removed := 0
	claimed := make(map[string]bool)

	for i := 0; i < len(concepts); i++ {
		if claimed[concepts[i].ID] {
			continue
		}
		vecI, ok := vecs[concepts[i].ID]
		if !ok {
			continue
		}

		// Start a cluster with this concept as the initial keeper
		cluster := []int{i}
		for j := i + 1; j < len(concepts); j++ {
			if claimed[concepts[j].ID] {
				continue
			}
			vecJ, ok := vecs[concepts[j].ID]
			if !ok {
				continue
			}
			if CosineSimilarity(vecI, vecJ) >= threshold {
				cluster = append(cluster, j)
			}
		}

		if len(cluster) <= 1 {
			continue
		}

		// The most recently seen concept absorbs the rest
		bestIdx := cluster[0]
		for _, idx := range cluster[1:] {
			if concepts[idx].LastSeenAt > concepts[bestIdx].LastSeenAt {
				bestIdx = idx
			}
		}

		for _, idx := range cluster {
			claimed[concepts[idx].ID] = true
			if idx == bestIdx {
				continue
			}
			if err := e.mergeConcept(&concepts[bestIdx], &concepts[idx]); err != nil {
				slog.Warn("dedup: merge", "label", concepts[idx].Label, "error", err)
				continue
			}
			slog.Info("dedup: merged", "label", concepts[idx].Label, "into", concepts[bestIdx].Label)
			removed++
		}
	}

	return removed, nil
}

// mergeConcept folds dup into keeper: occurrence counts accumulate, edges
// are rewired onto the keeper, then the duplicate row goes away along with
// its vector and review state.
func (e *Engine) mergeConcept(keeper, dup *store.Concept) error {
	if err := e.DB.MergeOccurrences(keeper.ID, dup.OccurrenceCount, dup.LastSeenAt); err != nil {
		return err
	}

	edges, err := e.DB.EdgesFor(dup.ID)
	if err != nil {
		return err
	}
	for _, edge := range edges {
		other := edge.A
		if other == dup.ID {
			other = edge.B
		}
		if other == keeper.ID {
			continue // would become a self-edge
		}
		if err := e.DB.StrengthenEdge(keeper.ID, other, edge.Kind, edge.Weight); err != nil {
			return err
		}
	}

	return e.DB.DeleteConcept(dup.ID)
}
