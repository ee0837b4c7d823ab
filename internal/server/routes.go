package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lazypower/recall/internal/engine"
	"github.com/lazypower/recall/internal/store"
)

func (s *Server) handleObserve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Concepts []string       `json:"concepts"`
		Signals  engine.Signals `json:"signals"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if len(req.Concepts) == 0 {
		http.Error(w, `{"error":"concepts required"}`, http.StatusBadRequest)
		return
	}

	// Embedding may go out to Ollama, so bound the whole batch
	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	res, err := s.engine.Observe(ctx, req.Concepts, req.Signals)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	ids := make([]string, len(res.Concepts))
	for i, c := range res.Concepts {
		ids[i] = c.ID
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"concept_ids": ids,
		"created":     res.Created,
		"edges":       res.Edges,
		"notified":    res.Reminders,
	})
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	conceptID := chi.URLParam(r, "conceptID")

	var req struct {
		Quality   *int   `json:"quality"`
		Algorithm string `json:"algorithm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.Quality == nil {
		http.Error(w, `{"error":"quality required"}`, http.StatusBadRequest)
		return
	}
	if *req.Quality < 0 || *req.Quality > 5 {
		http.Error(w, `{"error":"quality must be 0-5"}`, http.StatusBadRequest)
		return
	}
	switch req.Algorithm {
	case "", engine.AlgorithmSM2, engine.AlgorithmLeitner:
	default:
		http.Error(w, `{"error":"unknown algorithm"}`, http.StatusBadRequest)
		return
	}

	res, err := s.engine.RecordReview(r.Context(), conceptID, *req.Quality, req.Algorithm)
	if err != nil {
		if errors.Is(err, engine.ErrConceptNotFound) {
			http.Error(w, `{"error":"concept not found"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"concept_id":         res.Concept.ID,
		"label":              res.Concept.Label,
		"quality":            res.Quality,
		"algorithm":          res.Algorithm,
		"interval_days":      res.IntervalDays,
		"next_review_at":     res.NextReviewAt,
		"retention_estimate": res.Retention,
		"review":             reviewJSON(res.Item),
	})
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	conceptID := chi.URLParam(r, "conceptID")

	if err := s.engine.Archive(r.Context(), conceptID); err != nil {
		if errors.Is(err, engine.ErrConceptNotFound) {
			http.Error(w, `{"error":"concept not found"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "archived"})
}

func (s *Server) handleDue(w http.ResponseWriter, r *http.Request) {
	within := time.Duration(0)
	if h := r.URL.Query().Get("within_hours"); h != "" {
		if f, err := strconv.ParseFloat(h, 64); err == nil && f > 0 {
			within = time.Duration(f * float64(time.Hour))
		}
	}

	due, err := s.engine.DueItems(r.Context(), within)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	items := make([]map[string]any, len(due))
	for i, d := range due {
		item := conceptJSON(&d.Concept)
		if d.Item != nil {
			item["review"] = reviewJSON(d.Item)
		}
		items[i] = item
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"count": len(items),
		"due":   items,
	})
}

func (s *Server) handleConcepts(w http.ResponseWriter, r *http.Request) {
	concepts, err := s.db.ListConcepts()
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	out := make([]map[string]any, len(concepts))
	for i := range concepts {
		out[i] = conceptJSON(&concepts[i])
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"count":    len(out),
		"concepts": out,
	})
}

func (s *Server) handleConcept(w http.ResponseWriter, r *http.Request) {
	conceptID := chi.URLParam(r, "conceptID")

	c, err := s.db.GetConcept(conceptID)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	if c == nil {
		http.Error(w, `{"error":"concept not found"}`, http.StatusNotFound)
		return
	}

	resp := conceptJSON(c)

	item, err := s.db.GetReviewItem(conceptID)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	if item != nil {
		resp["review"] = reviewJSON(item)
	}

	edges, err := s.db.EdgesFor(conceptID)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	resp["edge_count"] = len(edges)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleCurve(w http.ResponseWriter, r *http.Request) {
	conceptID := chi.URLParam(r, "conceptID")

	horizon := 0.0
	if h := r.URL.Query().Get("horizon_hours"); h != "" {
		if f, err := strconv.ParseFloat(h, 64); err == nil && f > 0 {
			horizon = f
		}
	}

	points, err := s.engine.DecayCurve(r.Context(), conceptID, horizon)
	if err != nil {
		if errors.Is(err, engine.ErrConceptNotFound) {
			http.Error(w, `{"error":"concept not found"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"concept_id": conceptID,
		"points":     points,
	})
}

func (s *Server) handleRelated(w http.ResponseWriter, r *http.Request) {
	conceptID := chi.URLParam(r, "conceptID")

	limit := 10
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	related, err := s.engine.Related(r.Context(), conceptID, limit)
	if err != nil {
		if errors.Is(err, engine.ErrConceptNotFound) {
			http.Error(w, `{"error":"concept not found"}`, http.StatusNotFound)
			return
		}
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	type neighborJSON struct {
		ID          string  `json:"id,omitempty"`
		Label       string  `json:"label,omitempty"`
		Tag         string  `json:"tag,omitempty"`
		MemoryScore float64 `json:"memory_score,omitempty"`
		Kind        string  `json:"kind"`
		Weight      float64 `json:"weight"`
	}

	out := make([]neighborJSON, len(related))
	for i, rel := range related {
		n := neighborJSON{Tag: rel.Tag, Kind: rel.Kind, Weight: rel.Weight}
		if rel.Concept != nil {
			n.ID = rel.Concept.ID
			n.Label = rel.Concept.Label
			n.MemoryScore = rel.Concept.MemoryScore
		}
		out[i] = n
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"concept_id": conceptID,
		"related":    out,
	})
}

// handleGraph exports the full concept graph for external visualization
// consumers. Tag endpoints become their own nodes so edges always connect
// two present nodes.
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	concepts, err := s.db.ListConcepts()
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	edges, err := s.db.AllEdges()
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	type nodeJSON struct {
		ID          string  `json:"id"`
		Label       string  `json:"label"`
		MemoryScore float64 `json:"memory_score,omitempty"`
		Occurrences int     `json:"occurrences,omitempty"`
		Tag         bool    `json:"tag,omitempty"`
	}
	type edgeJSON struct {
		A      string  `json:"a"`
		B      string  `json:"b"`
		Kind   string  `json:"kind"`
		Weight float64 `json:"weight"`
	}

	nodes := make([]nodeJSON, 0, len(concepts))
	for _, c := range concepts {
		nodes = append(nodes, nodeJSON{
			ID:          c.ID,
			Label:       c.Label,
			MemoryScore: c.MemoryScore,
			Occurrences: c.OccurrenceCount,
		})
	}

	seenTags := make(map[string]bool)
	out := make([]edgeJSON, len(edges))
	for i, e := range edges {
		out[i] = edgeJSON{A: e.A, B: e.B, Kind: e.Kind, Weight: e.Weight}
		for _, end := range []string{e.A, e.B} {
			if store.IsTag(end) && !seenTags[end] {
				seenTags[end] = true
				nodes = append(nodes, nodeJSON{ID: end, Label: end[len(store.TagPrefix):], Tag: true})
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"nodes": nodes,
		"edges": out,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, `{"error":"q parameter required"}`, http.StatusBadRequest)
		return
	}

	limit := 10
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	if s.engine.Embedder == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"error": "search not available: no embedder configured"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	results, err := s.engine.Find(ctx, query, engine.SearchOpts{Limit: limit})
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error":"%s"}`, err.Error()), http.StatusInternalServerError)
		return
	}

	type resultJSON struct {
		ID          string  `json:"id"`
		Label       string  `json:"label"`
		MemoryScore float64 `json:"memory_score"`
		Score       float64 `json:"score"`
		Similarity  float64 `json:"similarity"`
	}

	out := make([]resultJSON, len(results))
	for i, res := range results {
		out[i] = resultJSON{
			ID:          res.Concept.ID,
			Label:       res.Concept.Label,
			MemoryScore: res.Concept.MemoryScore,
			Score:       res.Score,
			Similarity:  res.Similarity,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"query":   query,
		"count":   len(out),
		"results": out,
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.engine.Summarize(r.Context())
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

func conceptJSON(c *store.Concept) map[string]any {
	m := map[string]any{
		"id":             c.ID,
		"label":          c.Label,
		"occurrences":    c.OccurrenceCount,
		"memory_score":   c.MemoryScore,
		"next_review_at": c.NextReviewAt,
		"first_seen_at":  c.FirstSeenAt,
		"last_seen_at":   c.LastSeenAt,
	}
	if c.LastRemindedAt != nil {
		m["last_reminded_at"] = *c.LastRemindedAt
	}
	return m
}

func reviewJSON(it *store.ReviewItem) map[string]any {
	return map[string]any{
		"interval_days": it.IntervalDays,
		"ease_factor":   it.EaseFactor,
		"repetitions":   it.Repetitions,
		"box":           it.Box,
		"total_reviews": it.TotalReviews,
		"correct_count": it.CorrectCount,
		"success_rate":  it.SuccessRate(),
		"status":        it.Status,
	}
}
