package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Concept is a tracked node in the concept graph.
type Concept struct {
	ID              string
	Label           string
	OccurrenceCount int
	MemoryScore     float64
	NextReviewAt    int64
	LastRemindedAt  *int64
	FirstSeenAt     int64
	LastSeenAt      int64
	CreatedAt       int64
	UpdatedAt       int64
}

// CreateConcept inserts a new concept. The caller supplies ID, Label,
// MemoryScore, and NextReviewAt; timestamps and counts are filled in here.
func (db *DB) CreateConcept(c *Concept) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO concepts (id, label, occurrence_count, memory_score, next_review_at,
			last_reminded_at, first_seen_at, last_seen_at, created_at, updated_at)
		VALUES (?, ?, 1, ?, ?, NULL, ?, ?, ?, ?)
	`, c.ID, c.Label, c.MemoryScore, c.NextReviewAt, now, now, now, now)
	if err != nil {
		return fmt.Errorf("create concept: %w", err)
	}
	c.OccurrenceCount = 1
	c.FirstSeenAt = now
	c.LastSeenAt = now
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

// GetConcept returns a concept by ID, or nil if not found.
func (db *DB) GetConcept(id string) (*Concept, error) {
	row := db.QueryRow(`
		SELECT id, label, occurrence_count, memory_score, next_review_at,
			last_reminded_at, first_seen_at, last_seen_at, created_at, updated_at
		FROM concepts WHERE id = ?
	`, id)
	c, err := scanConcept(row)
	if err != nil {
		return nil, fmt.Errorf("get concept: %w", err)
	}
	return c, nil
}

// GetConceptByLabel returns a concept by its normalized label, or nil if not found.
func (db *DB) GetConceptByLabel(label string) (*Concept, error) {
	row := db.QueryRow(`
		SELECT id, label, occurrence_count, memory_score, next_review_at,
			last_reminded_at, first_seen_at, last_seen_at, created_at, updated_at
		FROM concepts WHERE label = ?
	`, label)
	c, err := scanConcept(row)
	if err != nil {
		return nil, fmt.Errorf("get concept by label: %w", err)
	}
	return c, nil
}

// RecordOccurrence increments the occurrence count and moves last_seen_at forward.
func (db *DB) RecordOccurrence(id string, at int64) error {
	_, err := db.Exec(`
		UPDATE concepts SET occurrence_count = occurrence_count + 1,
			last_seen_at = ?, updated_at = ?
		WHERE id = ?
	`, at, at, id)
	if err != nil {
		return fmt.Errorf("record occurrence: %w", err)
	}
	return nil
}

// TouchLastSeen moves last_seen_at forward without counting an occurrence.
// Used when a review exposes the concept to the user.
func (db *DB) TouchLastSeen(id string, at int64) error {
	_, err := db.Exec(`
		UPDATE concepts SET last_seen_at = ?, updated_at = ? WHERE id = ?
	`, at, at, id)
	if err != nil {
		return fmt.Errorf("touch last seen: %w", err)
	}
	return nil
}

// SetMemoryScore writes a freshly computed retention score.
func (db *DB) SetMemoryScore(id string, score float64, at int64) error {
	_, err := db.Exec(`
		UPDATE concepts SET memory_score = ?, updated_at = ? WHERE id = ?
	`, score, at, id)
	if err != nil {
		return fmt.Errorf("set memory score: %w", err)
	}
	return nil
}

// LowerMemoryScore writes a score only if it is below the stored one.
// Background sweeps use this so decay can never raise a score.
func (db *DB) LowerMemoryScore(id string, score float64, at int64) (bool, error) {
	result, err := db.Exec(`
		UPDATE concepts SET memory_score = ?, updated_at = ?
		WHERE id = ? AND memory_score > ?
	`, score, at, id, score)
	if err != nil {
		return false, fmt.Errorf("lower memory score: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// SetNextReview updates the scheduled review time.
func (db *DB) SetNextReview(id string, at int64) error {
	_, err := db.Exec(`
		UPDATE concepts SET next_review_at = ?, updated_at = ? WHERE id = ?
	`, at, at, id)
	if err != nil {
		return fmt.Errorf("set next review: %w", err)
	}
	return nil
}

// MarkReminded records a fired reminder: stamps last_reminded_at and pushes
// the next review out so the user has time to act on the nudge.
func (db *DB) MarkReminded(id string, at, nextReview int64) error {
	_, err := db.Exec(`
		UPDATE concepts SET last_reminded_at = ?, next_review_at = ?, updated_at = ?
		WHERE id = ?
	`, at, nextReview, at, id)
	if err != nil {
		return fmt.Errorf("mark reminded: %w", err)
	}
	return nil
}

// MergeOccurrences folds a duplicate's occurrence count into the keeper
// and moves last_seen_at forward if the duplicate was seen more recently.
func (db *DB) MergeOccurrences(id string, count int, lastSeen int64) error {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		UPDATE concepts SET occurrence_count = occurrence_count + ?,
			last_seen_at = MAX(last_seen_at, ?), updated_at = ?
		WHERE id = ?
	`, count, lastSeen, now, id)
	if err != nil {
		return fmt.Errorf("merge occurrences: %w", err)
	}
	return nil
}

// ListConcepts returns all concepts ordered by last_seen_at DESC.
func (db *DB) ListConcepts() ([]Concept, error) {
	rows, err := db.Query(`
		SELECT id, label, occurrence_count, memory_score, next_review_at,
			last_reminded_at, first_seen_at, last_seen_at, created_at, updated_at
		FROM concepts ORDER BY last_seen_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list concepts: %w", err)
	}
	defer rows.Close()
	return scanConcepts(rows)
}

// CountConcepts returns the number of tracked concepts.
func (db *DB) CountConcepts() (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM concepts").Scan(&count)
	return count, err
}

// AverageMemoryScore returns the mean retention estimate across all
// concepts, or 0 for an empty store.
func (db *DB) AverageMemoryScore() (float64, error) {
	var avg sql.NullFloat64
	err := db.QueryRow("SELECT AVG(memory_score) FROM concepts").Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("average memory score: %w", err)
	}
	return avg.Float64, nil
}

// DeleteConcept removes a concept along with its vector, edges, and review
// state. Vector and review_items rows cascade; edges reference the concept
// from either side so they are cleared explicitly.
func (db *DB) DeleteConcept(id string) error {
	if err := db.DeleteEdgesFor(id); err != nil {
		return fmt.Errorf("delete edges for concept %s: %w", id, err)
	}
	if _, err := db.Exec("DELETE FROM review_events WHERE concept_id = ?", id); err != nil {
		return fmt.Errorf("delete review events for concept %s: %w", id, err)
	}
	if _, err := db.Exec("DELETE FROM concepts WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete concept %s: %w", id, err)
	}
	return nil
}

func scanConcept(row *sql.Row) (*Concept, error) {
	var c Concept
	var lastReminded sql.NullInt64
	err := row.Scan(&c.ID, &c.Label, &c.OccurrenceCount, &c.MemoryScore, &c.NextReviewAt,
		&lastReminded, &c.FirstSeenAt, &c.LastSeenAt, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if lastReminded.Valid {
		c.LastRemindedAt = &lastReminded.Int64
	}
	return &c, nil
}

func scanConcepts(rows *sql.Rows) ([]Concept, error) {
	var concepts []Concept
	for rows.Next() {
		var c Concept
		var lastReminded sql.NullInt64
		if err := rows.Scan(&c.ID, &c.Label, &c.OccurrenceCount, &c.MemoryScore, &c.NextReviewAt,
			&lastReminded, &c.FirstSeenAt, &c.LastSeenAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan concept: %w", err)
		}
		if lastReminded.Valid {
			c.LastRemindedAt = &lastReminded.Int64
		}
		concepts = append(concepts, c)
	}
	return concepts, rows.Err()
}
