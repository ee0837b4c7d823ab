package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lazypower/recall/internal/metrics"
	"github.com/lazypower/recall/internal/store"
)

// ObserveResult summarizes one observation batch.
type ObserveResult struct {
	Concepts  []*store.Concept // upserted concepts in batch order
	Created   int              // first-time observations
	Edges     int              // edges created or strengthened
	Reminders int              // nudges fired by the gate
}

// observedConcept carries per-concept state between observation phases.
type observedConcept struct {
	concept  *store.Concept
	item     *store.ReviewItem
	created  bool
	prevSeen int64 // last_seen before this batch touched it
	vector   []float64
}

// Observe ingests one batch of concept labels with optional confidence
// signals. All concepts of the batch are upserted before any edge building
// or scoring, so occurrence counts and last-seen are settled batch-wide.
// A failed embedding call skips the edge phase but never the observation:
// vectors are backfilled later by EmbedMissing.
func (e *Engine) Observe(ctx context.Context, labels []string, sig Signals) (*ObserveResult, error) {
	batch := normalizeBatch(labels)
	if len(batch) == 0 {
		return &ObserveResult{}, nil
	}

	now := time.Now().UnixMilli()
	res := &ObserveResult{}

	observed := make([]*observedConcept, 0, len(batch))
	for _, label := range batch {
		c, err := e.DB.GetConceptByLabel(label)
		if err != nil {
			return nil, err
		}
		if c == nil {
			c = &store.Concept{
				ID:           uuid.NewString(),
				Label:        label,
				MemoryScore:  InitialScore,
				NextReviewAt: now + time.Hour.Milliseconds(),
			}
			if err := e.DB.CreateConcept(c); err != nil {
				return nil, err
			}
			metrics.ConceptsCreatedTotal.Inc()
			res.Created++
			observed = append(observed, &observedConcept{concept: c, created: true, prevSeen: c.LastSeenAt})
			continue
		}

		prev := c.LastSeenAt
		if err := e.DB.RecordOccurrence(c.ID, now); err != nil {
			return nil, err
		}
		c.OccurrenceCount++
		c.LastSeenAt = now
		observed = append(observed, &observedConcept{concept: c, prevSeen: prev})
	}

	semanticOK, tagOK := e.embedBatch(ctx, observed)

	if semanticOK {
		for i := 0; i < len(observed); i++ {
			for j := i + 1; j < len(observed); j++ {
				vi, vj := observed[i].vector, observed[j].vector
				if vi == nil || vj == nil {
					continue
				}
				sim := CosineSimilarity(vi, vj)
				if sim <= e.SimilarityThreshold {
					continue
				}
				if err := e.DB.StrengthenEdge(observed[i].concept.ID, observed[j].concept.ID, store.EdgeSemantic, sim); err != nil {
					return nil, err
				}
				metrics.EdgesStrengthenedTotal.WithLabelValues(store.EdgeSemantic).Inc()
				res.Edges++
			}
		}
	}

	if tag := normalizeLabel(sig.SourceTag); tagOK && tag != "" {
		for _, oc := range observed {
			if err := e.DB.StrengthenEdge(oc.concept.ID, store.TagPrefix+tag, store.EdgeCoOccurrence, 1); err != nil {
				return nil, err
			}
			metrics.EdgesStrengthenedTotal.WithLabelValues(store.EdgeCoOccurrence).Inc()
			res.Edges++
		}
	}

	for _, oc := range observed {
		item, err := e.DB.GetReviewItem(oc.concept.ID)
		if err != nil {
			return nil, err
		}
		oc.item = item
		if oc.created {
			continue
		}

		score := e.Decay.Score(oc.prevSeen, now, sig)
		if err := e.DB.SetMemoryScore(oc.concept.ID, score, now); err != nil {
			return nil, err
		}
		oc.concept.MemoryScore = score

		// Scheduler-owned concepts keep their review date; everything else
		// gets the naive curve-based check-in.
		if item == nil {
			nextAt := e.Decay.NextNaiveReview(score, now)
			if err := e.DB.SetNextReview(oc.concept.ID, nextAt); err != nil {
				return nil, err
			}
			oc.concept.NextReviewAt = nextAt
		}
	}

	for _, oc := range observed {
		fired, err := e.maybeRemind(ctx, oc.concept, oc.item, now)
		if err != nil {
			slog.Warn("observe: reminder", "label", oc.concept.Label, "error", err)
			continue
		}
		if fired {
			res.Reminders++
		}
	}

	metrics.ObservationsTotal.Inc()
	for _, oc := range observed {
		res.Concepts = append(res.Concepts, oc.concept)
	}
	return res, nil
}

// embedBatch resolves a vector for every batch member, reusing stored
// vectors when the model matches. The first failed call abandons the edge
// phase for the whole batch; tag edges survive a missing embedder but not
// a failing one.
func (e *Engine) embedBatch(ctx context.Context, observed []*observedConcept) (semanticOK, tagOK bool) {
	if e.Embedder == nil {
		return false, true
	}

	for _, oc := range observed {
		stored, err := e.DB.GetVector(oc.concept.ID)
		if err == nil && stored != nil && stored.Model == e.Embedder.Model() {
			oc.vector = stored.Embedding
			continue
		}

		vec, err := e.Embedder.Embed(ctx, oc.concept.Label)
		if err != nil {
			metrics.EmbeddingFailuresTotal.Inc()
			slog.Warn("observe: embedding failed, skipping edges", "label", oc.concept.Label, "error", err)
			return false, false
		}
		if err := e.DB.SaveVector(oc.concept.ID, vec, e.Embedder.Model()); err != nil {
			slog.Warn("observe: save vector", "label", oc.concept.Label, "error", err)
		}
		oc.vector = vec
	}
	return true, true
}
