package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Review item statuses.
const (
	StatusActive   = "active"
	StatusMastered = "mastered"
	StatusArchived = "archived"
)

// ReviewItem holds the per-concept scheduler state. SM-2 fields and the
// Leitner box live side by side so the algorithms can be switched per review.
type ReviewItem struct {
	ConceptID    string
	IntervalDays float64
	EaseFactor   float64
	Repetitions  int
	Box          int
	TotalReviews int
	CorrectCount int
	Status       string
	CreatedAt    int64
	UpdatedAt    int64
}

// SuccessRate returns the fraction of correct reviews, or 0 with no history.
func (r *ReviewItem) SuccessRate() float64 {
	if r.TotalReviews == 0 {
		return 0
	}
	return float64(r.CorrectCount) / float64(r.TotalReviews)
}

// ReviewEvent is one immutable entry in the review history.
type ReviewEvent struct {
	ID            int64
	ConceptID     string
	ReviewedAt    int64
	Quality       int
	Algorithm     string
	EaseAfter     float64
	IntervalAfter float64
	Correct       bool
}

// GetReviewItem returns the scheduler state for a concept, or nil if the
// concept has never been reviewed.
func (db *DB) GetReviewItem(conceptID string) (*ReviewItem, error) {
	var r ReviewItem
	err := db.QueryRow(`
		SELECT concept_id, interval_days, ease_factor, repetitions, box,
			total_reviews, correct_count, status, created_at, updated_at
		FROM review_items WHERE concept_id = ?
	`, conceptID).Scan(&r.ConceptID, &r.IntervalDays, &r.EaseFactor, &r.Repetitions, &r.Box,
		&r.TotalReviews, &r.CorrectCount, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get review item: %w", err)
	}
	return &r, nil
}

// SaveReviewItem inserts or replaces the scheduler state for a concept.
func (db *DB) SaveReviewItem(r *ReviewItem) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO review_items (concept_id, interval_days, ease_factor, repetitions, box,
			total_reviews, correct_count, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(concept_id) DO UPDATE SET
			interval_days = excluded.interval_days,
			ease_factor   = excluded.ease_factor,
			repetitions   = excluded.repetitions,
			box           = excluded.box,
			total_reviews = excluded.total_reviews,
			correct_count = excluded.correct_count,
			status        = excluded.status,
			updated_at    = excluded.updated_at
	`, r.ConceptID, r.IntervalDays, r.EaseFactor, r.Repetitions, r.Box,
		r.TotalReviews, r.CorrectCount, r.Status, now, now)
	if err != nil {
		return fmt.Errorf("save review item: %w", err)
	}
	if r.CreatedAt == 0 {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	return nil
}

// AppendReviewEvent records one review in the immutable history log.
// Events are only ever inserted, never updated or deleted.
func (db *DB) AppendReviewEvent(ev *ReviewEvent) error {
	correct := 0
	if ev.Correct {
		correct = 1
	}
	result, err := db.Exec(`
		INSERT INTO review_events (concept_id, reviewed_at, quality, algorithm, ease_after, interval_after, correct)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, ev.ConceptID, ev.ReviewedAt, ev.Quality, ev.Algorithm, ev.EaseAfter, ev.IntervalAfter, correct)
	if err != nil {
		return fmt.Errorf("append review event: %w", err)
	}
	ev.ID, _ = result.LastInsertId()
	return nil
}

// ReviewEventsFor returns the most recent review events for a concept.
func (db *DB) ReviewEventsFor(conceptID string, limit int) ([]ReviewEvent, error) {
	rows, err := db.Query(`
		SELECT id, concept_id, reviewed_at, quality, algorithm, ease_after, interval_after, correct
		FROM review_events WHERE concept_id = ?
		ORDER BY reviewed_at DESC, id DESC LIMIT ?
	`, conceptID, limit)
	if err != nil {
		return nil, fmt.Errorf("review events for %s: %w", conceptID, err)
	}
	defer rows.Close()

	var events []ReviewEvent
	for rows.Next() {
		var ev ReviewEvent
		var correct int
		if err := rows.Scan(&ev.ID, &ev.ConceptID, &ev.ReviewedAt, &ev.Quality, &ev.Algorithm,
			&ev.EaseAfter, &ev.IntervalAfter, &correct); err != nil {
			return nil, fmt.Errorf("scan review event: %w", err)
		}
		ev.Correct = correct != 0
		events = append(events, ev)
	}
	return events, rows.Err()
}

// CountReviewEvents returns the total number of recorded reviews.
func (db *DB) CountReviewEvents() (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM review_events").Scan(&count)
	return count, err
}

// DueConcept pairs a concept with its optional scheduler state for due listings.
type DueConcept struct {
	Concept
	Item *ReviewItem
}

const dueConceptColumns = `
	c.id, c.label, c.occurrence_count, c.memory_score, c.next_review_at,
	c.last_reminded_at, c.first_seen_at, c.last_seen_at, c.created_at, c.updated_at,
	r.interval_days, r.ease_factor, r.repetitions, r.box,
	r.total_reviews, r.correct_count, r.status, r.created_at, r.updated_at`

// DueConcepts returns concepts whose next review falls at or before the
// horizon, soonest first. Archived concepts are excluded.
func (db *DB) DueConcepts(horizon int64) ([]DueConcept, error) {
	rows, err := db.Query(`
		SELECT `+dueConceptColumns+`
		FROM concepts c
		LEFT JOIN review_items r ON r.concept_id = c.id
		WHERE c.next_review_at <= ? AND (r.status IS NULL OR r.status != 'archived')
		ORDER BY c.next_review_at ASC
	`, horizon)
	if err != nil {
		return nil, fmt.Errorf("due concepts: %w", err)
	}
	defer rows.Close()
	return scanDueConcepts(rows)
}

// ActiveConcepts returns every non-archived concept with its scheduler
// state, for decay sweeps. Ordered by next review, soonest first.
func (db *DB) ActiveConcepts() ([]DueConcept, error) {
	rows, err := db.Query(`
		SELECT ` + dueConceptColumns + `
		FROM concepts c
		LEFT JOIN review_items r ON r.concept_id = c.id
		WHERE r.status IS NULL OR r.status != 'archived'
		ORDER BY c.next_review_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("active concepts: %w", err)
	}
	defer rows.Close()
	return scanDueConcepts(rows)
}

func scanDueConcepts(rows *sql.Rows) ([]DueConcept, error) {
	var due []DueConcept
	for rows.Next() {
		var d DueConcept
		var lastReminded sql.NullInt64
		var interval, ease sql.NullFloat64
		var reps, box, total, correct sql.NullInt64
		var status sql.NullString
		var itemCreated, itemUpdated sql.NullInt64
		if err := rows.Scan(&d.ID, &d.Label, &d.OccurrenceCount, &d.MemoryScore, &d.NextReviewAt,
			&lastReminded, &d.FirstSeenAt, &d.LastSeenAt, &d.CreatedAt, &d.UpdatedAt,
			&interval, &ease, &reps, &box, &total, &correct, &status, &itemCreated, &itemUpdated); err != nil {
			return nil, fmt.Errorf("scan due concept: %w", err)
		}
		if lastReminded.Valid {
			d.LastRemindedAt = &lastReminded.Int64
		}
		if status.Valid {
			d.Item = &ReviewItem{
				ConceptID:    d.ID,
				IntervalDays: interval.Float64,
				EaseFactor:   ease.Float64,
				Repetitions:  int(reps.Int64),
				Box:          int(box.Int64),
				TotalReviews: int(total.Int64),
				CorrectCount: int(correct.Int64),
				Status:       status.String,
				CreatedAt:    itemCreated.Int64,
				UpdatedAt:    itemUpdated.Int64,
			}
		}
		due = append(due, d)
	}
	return due, rows.Err()
}
