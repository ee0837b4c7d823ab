package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lazypower/recall/internal/notify"
	"github.com/lazypower/recall/internal/store"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// testEngine wires an engine with a capturing notifier over a fresh store.
func testEngine(t *testing.T) (*Engine, *notify.MemoryNotifier) {
	t.Helper()
	sink := &notify.MemoryNotifier{}
	return New(testDB(t), sink), sink
}

// fakeEmbedder returns canned vectors per input text, for exact control
// over similarities. Unknown text maps to a fixed fallback vector, so
// tests must define a vector for every label they observe.
type fakeEmbedder struct {
	vectors map[string][]float64
	err     error
	model   string
	calls   int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float64, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if vec, ok := f.vectors[text]; ok {
		return vec, nil
	}
	return []float64{0, 0, 1}, nil
}

func (f *fakeEmbedder) Model() string {
	if f.model == "" {
		return "fake"
	}
	return f.model
}

func (f *fakeEmbedder) Dimensions() int { return 3 }

func seedConcept(t *testing.T, db *store.DB, label string, score float64, nextReview int64) *store.Concept {
	t.Helper()
	c := &store.Concept{
		ID:           uuid.NewString(),
		Label:        label,
		MemoryScore:  score,
		NextReviewAt: nextReview,
	}
	if err := db.CreateConcept(c); err != nil {
		t.Fatalf("CreateConcept %s: %v", label, err)
	}
	return c
}

// backdateLastSeen rewinds a concept's last exposure for decay tests.
func backdateLastSeen(t *testing.T, db *store.DB, id string, hours float64) {
	t.Helper()
	at := time.Now().UnixMilli() - int64(hours*float64(time.Hour.Milliseconds()))
	if _, err := db.Exec("UPDATE concepts SET last_seen_at = ? WHERE id = ?", at, id); err != nil {
		t.Fatalf("backdate last_seen: %v", err)
	}
}

func TestDueItems(t *testing.T) {
	e, _ := testEngine(t)
	now := time.Now().UnixMilli()

	overdue := seedConcept(t, e.DB, "overdue", 0.4, now-time.Hour.Milliseconds())
	soon := seedConcept(t, e.DB, "soon", 0.8, now+30*time.Minute.Milliseconds())
	seedConcept(t, e.DB, "far", 0.9, now+72*time.Hour.Milliseconds())

	due, err := e.DueItems(context.Background(), 0)
	if err != nil {
		t.Fatalf("DueItems: %v", err)
	}
	if len(due) != 1 || due[0].ID != overdue.ID {
		t.Fatalf("due now = %d items, want just %q", len(due), overdue.Label)
	}

	due, err = e.DueItems(context.Background(), time.Hour)
	if err != nil {
		t.Fatalf("DueItems: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("due within 1h = %d items, want 2", len(due))
	}
	if due[0].ID != overdue.ID || due[1].ID != soon.ID {
		t.Errorf("due order = [%s %s], want overdue first", due[0].Label, due[1].Label)
	}
}

func TestDueItemsExcludesArchived(t *testing.T) {
	e, _ := testEngine(t)
	now := time.Now().UnixMilli()

	c := seedConcept(t, e.DB, "retired", 0.2, now-time.Hour.Milliseconds())
	if err := e.Archive(context.Background(), c.ID); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	due, err := e.DueItems(context.Background(), 0)
	if err != nil {
		t.Fatalf("DueItems: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("archived concept still due: %d items", len(due))
	}
}

func TestArchive(t *testing.T) {
	e, _ := testEngine(t)
	c := seedConcept(t, e.DB, "done with this", 0.9, time.Now().UnixMilli())

	if err := e.Archive(context.Background(), c.ID); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	item, err := e.DB.GetReviewItem(c.ID)
	if err != nil {
		t.Fatalf("GetReviewItem: %v", err)
	}
	if item == nil || item.Status != store.StatusArchived {
		t.Fatalf("item status = %+v, want archived", item)
	}
}

func TestArchiveUnknownConcept(t *testing.T) {
	e, _ := testEngine(t)
	err := e.Archive(context.Background(), "nope")
	if !errors.Is(err, ErrConceptNotFound) {
		t.Errorf("Archive err = %v, want ErrConceptNotFound", err)
	}
}

func TestDecayCurve(t *testing.T) {
	e, _ := testEngine(t)
	c := seedConcept(t, e.DB, "fresh", 1.0, time.Now().UnixMilli())

	points, err := e.DecayCurve(context.Background(), c.ID, 168)
	if err != nil {
		t.Fatalf("DecayCurve: %v", err)
	}
	if len(points) == 0 || len(points) > maxCurvePoints {
		t.Fatalf("curve has %d points, want 1..%d", len(points), maxCurvePoints)
	}

	if points[0].Hours != 0 || points[0].Score != 1.0 {
		t.Errorf("first point = %+v, want hours 0, score 1.0", points[0])
	}

	// Monotonically non-increasing
	for i := 1; i < len(points); i++ {
		if points[i].Score > points[i-1].Score {
			t.Fatalf("score rose at point %d: %.4f > %.4f", i, points[i].Score, points[i-1].Score)
		}
	}

	// One half-life out, retention should be near 0.5
	var at168 float64
	for _, p := range points {
		if p.Hours == 168 {
			at168 = p.Score
		}
	}
	if at168 < 0.49 || at168 > 0.51 {
		t.Errorf("score at 168h = %.4f, want ~0.5", at168)
	}
}

func TestDecayCurveFloor(t *testing.T) {
	e, _ := testEngine(t)
	c := seedConcept(t, e.DB, "fading", 0.3, time.Now().UnixMilli())

	points, err := e.DecayCurve(context.Background(), c.ID, 5000)
	if err != nil {
		t.Fatalf("DecayCurve: %v", err)
	}
	if len(points) > maxCurvePoints {
		t.Fatalf("curve has %d points, cap is %d", len(points), maxCurvePoints)
	}
	last := points[len(points)-1]
	if last.Score != ScoreFloor {
		t.Errorf("score at %.0fh = %.4f, want floor %.1f", last.Hours, last.Score, ScoreFloor)
	}
}

func TestDecayCurveUnknownConcept(t *testing.T) {
	e, _ := testEngine(t)
	_, err := e.DecayCurve(context.Background(), "missing", 24)
	if !errors.Is(err, ErrConceptNotFound) {
		t.Errorf("DecayCurve err = %v, want ErrConceptNotFound", err)
	}
}

func TestEmbedMissing(t *testing.T) {
	e, _ := testEngine(t)
	emb := &fakeEmbedder{vectors: map[string][]float64{
		"raft":  {1, 0, 0},
		"paxos": {0, 1, 0},
	}}
	e.SetEmbedder(emb)

	now := time.Now().UnixMilli()
	a := seedConcept(t, e.DB, "raft", 0.5, now)
	seedConcept(t, e.DB, "paxos", 0.5, now)

	n, err := e.EmbedMissing(context.Background())
	if err != nil {
		t.Fatalf("EmbedMissing: %v", err)
	}
	if n != 2 {
		t.Fatalf("embedded %d concepts, want 2", n)
	}

	vec, err := e.DB.GetVector(a.ID)
	if err != nil {
		t.Fatalf("GetVector: %v", err)
	}
	if vec == nil || vec.Model != "fake" {
		t.Fatalf("vector = %+v, want model fake", vec)
	}

	// Second pass finds nothing to do
	n, err = e.EmbedMissing(context.Background())
	if err != nil {
		t.Fatalf("EmbedMissing: %v", err)
	}
	if n != 0 {
		t.Errorf("re-embedded %d concepts with unchanged model", n)
	}

	// Model change re-embeds everything
	emb.model = "fake-v2"
	n, err = e.EmbedMissing(context.Background())
	if err != nil {
		t.Fatalf("EmbedMissing: %v", err)
	}
	if n != 2 {
		t.Errorf("embedded %d concepts after model change, want 2", n)
	}
}

func TestEmbedMissingNoEmbedder(t *testing.T) {
	e, _ := testEngine(t)
	seedConcept(t, e.DB, "anything", 0.5, time.Now().UnixMilli())

	n, err := e.EmbedMissing(context.Background())
	if err != nil {
		t.Fatalf("EmbedMissing: %v", err)
	}
	if n != 0 {
		t.Errorf("embedded %d without an embedder", n)
	}
}

func TestSummarize(t *testing.T) {
	e, _ := testEngine(t)
	now := time.Now().UnixMilli()

	a := seedConcept(t, e.DB, "alpha", 0.3, now-time.Hour.Milliseconds())
	b := seedConcept(t, e.DB, "beta", 0.7, now+72*time.Hour.Milliseconds())
	if err := e.DB.StrengthenEdge(a.ID, b.ID, store.EdgeSemantic, 0.9); err != nil {
		t.Fatalf("StrengthenEdge: %v", err)
	}
	if err := e.DB.AppendReviewEvent(&store.ReviewEvent{
		ConceptID: a.ID, ReviewedAt: now, Quality: 4, Algorithm: AlgorithmSM2, Correct: true,
	}); err != nil {
		t.Fatalf("AppendReviewEvent: %v", err)
	}

	s, err := e.Summarize(context.Background())
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if s.Concepts != 2 {
		t.Errorf("Concepts = %d, want 2", s.Concepts)
	}
	if s.Edges != 1 {
		t.Errorf("Edges = %d, want 1", s.Edges)
	}
	if s.Reviews != 1 {
		t.Errorf("Reviews = %d, want 1", s.Reviews)
	}
	if s.Due != 1 {
		t.Errorf("Due = %d, want 1", s.Due)
	}
	if s.AverageScore < 0.49 || s.AverageScore > 0.51 {
		t.Errorf("AverageScore = %.3f, want ~0.5", s.AverageScore)
	}
}
