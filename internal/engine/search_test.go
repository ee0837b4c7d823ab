package engine

import (
	"context"
	"math"
	"testing"
	"time"
)

func seedSearchable(t *testing.T, e *Engine, label string, score float64, vec []float64) string {
	t.Helper()
	c := seedConcept(t, e.DB, label, score, time.Now().UnixMilli()+240*time.Hour.Milliseconds())
	if err := e.DB.SaveVector(c.ID, vec, "fake"); err != nil {
		t.Fatalf("SaveVector %s: %v", label, err)
	}
	return c.ID
}

func TestFindRanksBySimilarityAndRetention(t *testing.T) {
	e, _ := testEngine(t)
	e.SetEmbedder(&fakeEmbedder{vectors: map[string][]float64{
		"consensus": {1, 0, 0},
	}})

	// Near-perfect match but mostly forgotten
	seedSearchable(t, e, "paxos", 0.2, []float64{1, 0, 0})
	// Weaker match, vividly remembered: 0.8 * 0.9 beats 1.0 * 0.2
	seedSearchable(t, e, "raft", 0.9, []float64{0.8, math.Sqrt(1 - 0.8*0.8), 0})
	// Orthogonal, contributes nothing
	seedSearchable(t, e, "sourdough", 0.9, []float64{0, 0, 1})

	results, err := e.Find(context.Background(), "consensus", SearchOpts{})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results %v, want 2", len(results), results)
	}

	if results[0].Concept.Label != "raft" || results[1].Concept.Label != "paxos" {
		t.Errorf("order = %q, %q; want retention to outweigh raw similarity",
			results[0].Concept.Label, results[1].Concept.Label)
	}
	if math.Abs(results[0].Score-0.72) > 1e-6 {
		t.Errorf("raft score = %f, want 0.72", results[0].Score)
	}
	if math.Abs(results[0].Similarity-0.8) > 1e-6 {
		t.Errorf("raft similarity = %f, want 0.8", results[0].Similarity)
	}
}

func TestFindLimit(t *testing.T) {
	e, _ := testEngine(t)
	e.SetEmbedder(&fakeEmbedder{vectors: map[string][]float64{
		"query": {1, 0, 0},
	}})

	seedSearchable(t, e, "first", 0.9, []float64{1, 0, 0})
	seedSearchable(t, e, "second", 0.5, []float64{1, 0, 0})
	seedSearchable(t, e, "third", 0.3, []float64{1, 0, 0})

	results, err := e.Find(context.Background(), "query", SearchOpts{Limit: 2})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Concept.Label != "first" || results[1].Concept.Label != "second" {
		t.Errorf("kept %q, %q; want the two best", results[0].Concept.Label, results[1].Concept.Label)
	}
}

func TestFindTouchesResults(t *testing.T) {
	e, _ := testEngine(t)
	e.SetEmbedder(&fakeEmbedder{vectors: map[string][]float64{
		"query": {1, 0, 0},
	}})

	id := seedSearchable(t, e, "looked up", 0.9, []float64{1, 0, 0})
	backdateLastSeen(t, e.DB, id, 100)
	before, _ := e.DB.GetConcept(id)

	if _, err := e.Find(context.Background(), "query", SearchOpts{}); err != nil {
		t.Fatalf("Find: %v", err)
	}

	after, err := e.DB.GetConcept(id)
	if err != nil {
		t.Fatalf("GetConcept: %v", err)
	}
	if after.LastSeenAt <= before.LastSeenAt {
		t.Error("retrieval did not refresh last_seen_at")
	}
	// Retrieval is exposure, not an observation
	if after.OccurrenceCount != before.OccurrenceCount {
		t.Errorf("occurrence count = %d, want unchanged %d", after.OccurrenceCount, before.OccurrenceCount)
	}
}

func TestFindNoEmbedder(t *testing.T) {
	e, _ := testEngine(t)
	if _, err := e.Find(context.Background(), "anything", SearchOpts{}); err == nil {
		t.Error("expected error with nil embedder")
	}
}

func TestFindEmptyStore(t *testing.T) {
	e, _ := testEngine(t)
	e.SetEmbedder(&fakeEmbedder{})

	results, err := e.Find(context.Background(), "test query", SearchOpts{})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}
