package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lazypower/recall/internal/metrics"
	"github.com/lazypower/recall/internal/notify"
	"github.com/lazypower/recall/internal/store"
)

// ErrConceptNotFound is returned when an operation names a concept id that
// does not exist.
var ErrConceptNotFound = errors.New("concept not found")

// Engine orchestrates the concept graph, decay scoring, review scheduling,
// and the reminder gate over a single store.
type Engine struct {
	DB       *store.DB
	Embedder Embedder
	Notifier notify.Notifier

	Decay               DecayModel
	Algorithm           string        // default review algorithm
	SimilarityThreshold float64       // cosine cutoff for semantic edges
	Cooldown            time.Duration // minimum gap between reminders per concept
}

// New creates an Engine with default tuning.
func New(db *store.DB, notifier notify.Notifier) *Engine {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Engine{
		DB:                  db,
		Notifier:            notifier,
		Decay:               DefaultDecayModel(),
		Algorithm:           AlgorithmSM2,
		SimilarityThreshold: 0.7,
		Cooldown:            time.Hour,
	}
}

// SetEmbedder configures the embedding provider.
func (e *Engine) SetEmbedder(emb Embedder) {
	e.Embedder = emb
}

// EmbedConcept generates and stores an embedding for a single concept.
func (e *Engine) EmbedConcept(ctx context.Context, c *store.Concept) error {
	if e.Embedder == nil {
		return nil
	}
	vec, err := e.Embedder.Embed(ctx, c.Label)
	if err != nil {
		return fmt.Errorf("embed concept %q: %w", c.Label, err)
	}
	return e.DB.SaveVector(c.ID, vec, e.Embedder.Model())
}

// EmbedMissing embeds all concepts that don't have a vector or whose vector
// was produced by a different model.
func (e *Engine) EmbedMissing(ctx context.Context) (int, error) {
	if e.Embedder == nil {
		return 0, nil
	}

	concepts, err := e.DB.ListConcepts()
	if err != nil {
		return 0, fmt.Errorf("list concepts: %w", err)
	}

	embedded := 0
	for i := range concepts {
		existing, err := e.DB.GetVector(concepts[i].ID)
		if err != nil {
			slog.Warn("embed missing: get vector", "label", concepts[i].Label, "error", err)
			continue
		}
		if existing != nil && existing.Model == e.Embedder.Model() {
			continue
		}

		if err := e.EmbedConcept(ctx, &concepts[i]); err != nil {
			metrics.EmbeddingFailuresTotal.Inc()
			slog.Warn("embed missing", "error", err)
			continue
		}
		embedded++
	}

	return embedded, nil
}

// DueItems returns concepts whose next review falls within the window,
// soonest first. Archived concepts never appear.
func (e *Engine) DueItems(ctx context.Context, within time.Duration) ([]store.DueConcept, error) {
	horizon := time.Now().Add(within).UnixMilli()
	return e.DB.DueConcepts(horizon)
}

// CurvePoint is one sample of a projected forgetting curve.
type CurvePoint struct {
	Hours float64 `json:"hours"`
	At    int64   `json:"at"`
	Score float64 `json:"score"`
}

const maxCurvePoints = 180

// DecayCurve projects a concept's retention over the coming horizonHours
// without touching stored state. At most maxCurvePoints samples.
func (e *Engine) DecayCurve(ctx context.Context, conceptID string, horizonHours float64) ([]CurvePoint, error) {
	c, err := e.DB.GetConcept(conceptID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrConceptNotFound
	}

	if horizonHours <= 0 {
		horizonHours = 14 * 24
	}
	step := 1.0
	if horizonHours > maxCurvePoints-1 {
		step = horizonHours / (maxCurvePoints - 1)
	}

	now := time.Now().UnixMilli()
	var points []CurvePoint
	for h := 0.0; h <= horizonHours+1e-9; h += step {
		points = append(points, CurvePoint{
			Hours: h,
			At:    now + int64(h*float64(time.Hour.Milliseconds())),
			Score: e.Decay.Project(c.MemoryScore, h),
		})
	}
	return points, nil
}

// Archive marks a concept's review item archived. Archived concepts keep
// their history but drop out of due listings and reminders for good.
func (e *Engine) Archive(ctx context.Context, conceptID string) error {
	c, err := e.DB.GetConcept(conceptID)
	if err != nil {
		return err
	}
	if c == nil {
		return ErrConceptNotFound
	}

	item, err := e.DB.GetReviewItem(conceptID)
	if err != nil {
		return err
	}
	if item == nil {
		item = newReviewItem(conceptID)
	}
	item.Status = store.StatusArchived
	return e.DB.SaveReviewItem(item)
}

// Summary aggregates store counts for status displays.
type Summary struct {
	Concepts     int     `json:"concepts"`
	Edges        int     `json:"edges"`
	Reviews      int     `json:"reviews"`
	Due          int     `json:"due"`
	AverageScore float64 `json:"average_score"`
}

// Summarize returns current counts and the mean retention estimate.
func (e *Engine) Summarize(ctx context.Context) (*Summary, error) {
	s := &Summary{}
	var err error
	if s.Concepts, err = e.DB.CountConcepts(); err != nil {
		return nil, err
	}
	if s.Edges, err = e.DB.CountEdges(); err != nil {
		return nil, err
	}
	if s.Reviews, err = e.DB.CountReviewEvents(); err != nil {
		return nil, err
	}
	due, err := e.DB.DueConcepts(time.Now().UnixMilli())
	if err != nil {
		return nil, err
	}
	s.Due = len(due)
	if s.AverageScore, err = e.DB.AverageMemoryScore(); err != nil {
		return nil, err
	}
	return s, nil
}
