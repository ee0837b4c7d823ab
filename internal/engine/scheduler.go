package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/lazypower/recall/internal/metrics"
	"github.com/lazypower/recall/internal/store"
)

// Review algorithms.
const (
	AlgorithmSM2     = "sm2"
	AlgorithmLeitner = "leitner"
)

// Scheduler tuning. Ease bounds and the ease formula follow SM-2; the
// second-success interval is fixed at 3 days.
const (
	minEase     = 1.3
	maxEase     = 2.5
	defaultEase = 2.5

	firstIntervalDays  = 1
	secondIntervalDays = 3

	// A failed review restarts the interval ladder without treating the
	// concept as brand new.
	failureRepetitions = 1

	masteryRate = 0.95
	masteryReps = 5
)

// leitnerIntervals maps box 1..5 to the review interval in days.
var leitnerIntervals = [5]float64{1, 3, 7, 14, 30}

// newReviewItem returns the scheduler state a concept starts with on its
// first review.
func newReviewItem(conceptID string) *store.ReviewItem {
	return &store.ReviewItem{
		ConceptID:  conceptID,
		EaseFactor: defaultEase,
		Box:        1,
		Status:     store.StatusActive,
	}
}

// sm2Next applies one SM-2 review to the scheduler state. The ease factor
// moves on every review; the repetition count and interval ladder reset on
// failure.
func sm2Next(it store.ReviewItem, quality int) store.ReviewItem {
	q := float64(quality)
	it.EaseFactor = clamp(it.EaseFactor+0.1-(5-q)*(0.08+(5-q)*0.02), minEase, maxEase)

	if quality < 3 {
		it.Repetitions = failureRepetitions
		it.IntervalDays = firstIntervalDays
		return it
	}

	it.Repetitions++
	switch it.Repetitions {
	case 1:
		it.IntervalDays = firstIntervalDays
	case 2:
		it.IntervalDays = secondIntervalDays
	default:
		it.IntervalDays = math.Round(it.IntervalDays * it.EaseFactor)
	}
	return it
}

// leitnerNext applies one Leitner review: pass moves the concept up a box,
// fail sends it back to box 1. The interval is the resulting box's.
func leitnerNext(it store.ReviewItem, quality int) store.ReviewItem {
	if quality >= 3 {
		if it.Box < len(leitnerIntervals) {
			it.Box++
		}
	} else {
		it.Box = 1
	}
	it.IntervalDays = leitnerIntervals[it.Box-1]
	it.Repetitions++
	return it
}

// recomputeStatus flips between active and mastered after a review.
// Archived is sticky and only ever set by the archive operation.
func recomputeStatus(it store.ReviewItem) string {
	if it.Status == store.StatusArchived {
		return store.StatusArchived
	}
	if it.Repetitions > masteryReps && it.SuccessRate() > masteryRate {
		return store.StatusMastered
	}
	return store.StatusActive
}

// ReviewResult reports the outcome of one recorded review.
type ReviewResult struct {
	Concept      *store.Concept
	Item         *store.ReviewItem
	Quality      int
	Algorithm    string
	IntervalDays float64
	NextReviewAt int64
	Retention    float64
}

// RecordReview applies one review outcome to a concept: it advances the
// scheduler state, appends to the review history, and rewrites the
// concept's retention estimate from the reported quality. Any persistence
// failure is returned; review history must not be silently lost.
func (e *Engine) RecordReview(ctx context.Context, conceptID string, quality int, algorithm string) (*ReviewResult, error) {
	if quality < 0 || quality > 5 {
		return nil, fmt.Errorf("quality %d out of range 0-5", quality)
	}
	if algorithm == "" {
		algorithm = e.Algorithm
	}
	if algorithm != AlgorithmSM2 && algorithm != AlgorithmLeitner {
		return nil, fmt.Errorf("unknown algorithm %q", algorithm)
	}

	c, err := e.DB.GetConcept(conceptID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrConceptNotFound
	}

	item, err := e.DB.GetReviewItem(conceptID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		item = newReviewItem(conceptID)
	}

	next := *item
	if algorithm == AlgorithmLeitner {
		next = leitnerNext(next, quality)
	} else {
		next = sm2Next(next, quality)
	}

	correct := quality >= 3
	next.TotalReviews++
	if correct {
		next.CorrectCount++
	}
	next.Status = recomputeStatus(next)

	now := time.Now().UnixMilli()
	nextReviewAt := now + int64(next.IntervalDays*24*float64(time.Hour.Milliseconds()))
	retention := RetentionAfterReview(quality)

	if err := e.DB.SaveReviewItem(&next); err != nil {
		return nil, err
	}
	ev := &store.ReviewEvent{
		ConceptID:     conceptID,
		ReviewedAt:    now,
		Quality:       quality,
		Algorithm:     algorithm,
		EaseAfter:     next.EaseFactor,
		IntervalAfter: next.IntervalDays,
		Correct:       correct,
	}
	if err := e.DB.AppendReviewEvent(ev); err != nil {
		return nil, err
	}
	if err := e.DB.SetMemoryScore(conceptID, retention, now); err != nil {
		return nil, err
	}
	if err := e.DB.SetNextReview(conceptID, nextReviewAt); err != nil {
		return nil, err
	}
	// A review is exposure, not an observation: refresh last_seen without
	// bumping the occurrence count.
	if err := e.DB.TouchLastSeen(conceptID, now); err != nil {
		return nil, err
	}

	outcome := "fail"
	if correct {
		outcome = "pass"
	}
	metrics.ReviewsTotal.WithLabelValues(algorithm, outcome).Inc()

	c.MemoryScore = retention
	c.NextReviewAt = nextReviewAt
	c.LastSeenAt = now
	return &ReviewResult{
		Concept:      c,
		Item:         &next,
		Quality:      quality,
		Algorithm:    algorithm,
		IntervalDays: next.IntervalDays,
		NextReviewAt: nextReviewAt,
		Retention:    retention,
	}, nil
}
