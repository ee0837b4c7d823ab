package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "concepts: tracked concept graph nodes",
		SQL: `
CREATE TABLE concepts (
    id               TEXT PRIMARY KEY,
    label            TEXT NOT NULL UNIQUE,
    occurrence_count INTEGER NOT NULL DEFAULT 1 CHECK (occurrence_count >= 1),

    -- Retention state
    memory_score     REAL NOT NULL CHECK (memory_score >= 0.1 AND memory_score <= 1.0),
    next_review_at   INTEGER NOT NULL,
    last_reminded_at INTEGER,

    first_seen_at    INTEGER NOT NULL,
    last_seen_at     INTEGER NOT NULL,
    created_at       INTEGER NOT NULL,
    updated_at       INTEGER NOT NULL
);

CREATE INDEX idx_concepts_next_review ON concepts(next_review_at);
CREATE INDEX idx_concepts_last_seen   ON concepts(last_seen_at DESC);
`,
	},
	{
		Version:     2,
		Description: "edges: weighted concept relations",
		SQL: `
CREATE TABLE edges (
    a          TEXT NOT NULL,
    b          TEXT NOT NULL,
    kind       TEXT NOT NULL CHECK (kind IN ('semantic', 'co_occurrence')),
    weight     REAL NOT NULL CHECK (weight > 0),
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,

    PRIMARY KEY (a, b, kind)
);

CREATE INDEX idx_edges_b ON edges(b);
`,
	},
	{
		Version:     3,
		Description: "review_items + review_events: scheduler state and audit log",
		SQL: `
CREATE TABLE review_items (
    concept_id    TEXT PRIMARY KEY,
    interval_days REAL NOT NULL DEFAULT 0,
    ease_factor   REAL NOT NULL CHECK (ease_factor >= 1.3 AND ease_factor <= 2.5),
    repetitions   INTEGER NOT NULL DEFAULT 0,
    box           INTEGER NOT NULL DEFAULT 1 CHECK (box BETWEEN 1 AND 5),
    total_reviews INTEGER NOT NULL DEFAULT 0,
    correct_count INTEGER NOT NULL DEFAULT 0,
    status        TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'mastered', 'archived')),
    created_at    INTEGER NOT NULL,
    updated_at    INTEGER NOT NULL,

    FOREIGN KEY (concept_id) REFERENCES concepts(id) ON DELETE CASCADE
);

CREATE TABLE review_events (
    id             INTEGER PRIMARY KEY,
    concept_id     TEXT NOT NULL,
    reviewed_at    INTEGER NOT NULL,
    quality        INTEGER NOT NULL CHECK (quality BETWEEN 0 AND 5),
    algorithm      TEXT NOT NULL CHECK (algorithm IN ('sm2', 'leitner')),
    ease_after     REAL NOT NULL,
    interval_after REAL NOT NULL,
    correct        INTEGER NOT NULL
);

CREATE INDEX idx_events_concept ON review_events(concept_id, reviewed_at DESC);
`,
	},
	{
		Version:     4,
		Description: "vectors: embedding vectors for semantic edges",
		SQL: `
CREATE TABLE vectors (
    concept_id TEXT PRIMARY KEY,
    embedding  BLOB NOT NULL,
    model      TEXT NOT NULL,
    dimensions INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    FOREIGN KEY (concept_id) REFERENCES concepts(id) ON DELETE CASCADE
);
`,
	},
}

// migrate applies any pending migrations, each in its own transaction.
// Safe to run on every open; applied versions are skipped.
func (db *DB) migrate() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
