package store

import (
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenMemory(t *testing.T) {
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()

	if db.Path != ":memory:" {
		t.Errorf("Path = %q, want :memory:", db.Path)
	}
}

func TestSchemaVersion(t *testing.T) {
	db := testDB(t)

	v, err := db.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != 4 {
		t.Errorf("SchemaVersion = %d, want 4", v)
	}
}

func TestTablesExist(t *testing.T) {
	db := testDB(t)

	tables := []string{"schema_versions", "concepts", "edges", "review_items", "review_events", "vectors"}
	for _, table := range tables {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found: %v", table, err)
		}
	}
}

func TestConceptConstraints(t *testing.T) {
	db := testDB(t)

	// Valid insert
	_, err := db.Exec(`
		INSERT INTO concepts (id, label, memory_score, next_review_at, first_seen_at, last_seen_at, created_at, updated_at)
		VALUES ('c1', 'binary search', 0.3, 1000, 1000, 1000, 1000, 1000)
	`)
	if err != nil {
		t.Fatalf("valid insert failed: %v", err)
	}

	// Score above ceiling
	_, err = db.Exec(`
		INSERT INTO concepts (id, label, memory_score, next_review_at, first_seen_at, last_seen_at, created_at, updated_at)
		VALUES ('c2', 'hash table', 1.5, 1000, 1000, 1000, 1000, 1000)
	`)
	if err == nil {
		t.Error("expected error for memory_score > 1.0, got nil")
	}

	// Score below floor
	_, err = db.Exec(`
		INSERT INTO concepts (id, label, memory_score, next_review_at, first_seen_at, last_seen_at, created_at, updated_at)
		VALUES ('c3', 'linked list', 0.05, 1000, 1000, 1000, 1000, 1000)
	`)
	if err == nil {
		t.Error("expected error for memory_score < 0.1, got nil")
	}

	// Duplicate label
	_, err = db.Exec(`
		INSERT INTO concepts (id, label, memory_score, next_review_at, first_seen_at, last_seen_at, created_at, updated_at)
		VALUES ('c4', 'binary search', 0.3, 1000, 1000, 1000, 1000, 1000)
	`)
	if err == nil {
		t.Error("expected error for duplicate label, got nil")
	}
}

func TestEdgeConstraints(t *testing.T) {
	db := testDB(t)

	// Valid insert
	_, err := db.Exec(`
		INSERT INTO edges (a, b, kind, weight, created_at, updated_at)
		VALUES ('c1', 'c2', 'semantic', 0.8, 1000, 1000)
	`)
	if err != nil {
		t.Fatalf("valid insert failed: %v", err)
	}

	// Invalid kind
	_, err = db.Exec(`
		INSERT INTO edges (a, b, kind, weight, created_at, updated_at)
		VALUES ('c1', 'c3', 'invalid', 0.8, 1000, 1000)
	`)
	if err == nil {
		t.Error("expected error for invalid kind, got nil")
	}

	// Zero weight
	_, err = db.Exec(`
		INSERT INTO edges (a, b, kind, weight, created_at, updated_at)
		VALUES ('c1', 'c4', 'semantic', 0, 1000, 1000)
	`)
	if err == nil {
		t.Error("expected error for zero weight, got nil")
	}
}

func TestReviewItemConstraints(t *testing.T) {
	db := testDB(t)

	_, err := db.Exec(`
		INSERT INTO concepts (id, label, memory_score, next_review_at, first_seen_at, last_seen_at, created_at, updated_at)
		VALUES ('c1', 'binary search', 0.3, 1000, 1000, 1000, 1000, 1000)
	`)
	if err != nil {
		t.Fatalf("insert concept: %v", err)
	}

	// Valid insert
	_, err = db.Exec(`
		INSERT INTO review_items (concept_id, ease_factor, status, created_at, updated_at)
		VALUES ('c1', 2.5, 'active', 1000, 1000)
	`)
	if err != nil {
		t.Fatalf("valid insert failed: %v", err)
	}

	// Ease below floor
	_, err = db.Exec(`
		INSERT INTO review_items (concept_id, ease_factor, status, created_at, updated_at)
		VALUES ('c2', 1.2, 'active', 1000, 1000)
	`)
	if err == nil {
		t.Error("expected error for ease_factor < 1.3, got nil")
	}

	// Invalid status
	_, err = db.Exec(`
		INSERT INTO review_items (concept_id, ease_factor, status, created_at, updated_at)
		VALUES ('c3', 2.5, 'invalid', 1000, 1000)
	`)
	if err == nil {
		t.Error("expected error for invalid status, got nil")
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	db := testDB(t)

	// Running migrate again should be a no-op
	if err := db.migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	v, err := db.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != 4 {
		t.Errorf("SchemaVersion after re-migrate = %d, want 4", v)
	}
}

func TestWALMode(t *testing.T) {
	db := testDB(t)

	var mode string
	err := db.QueryRow("PRAGMA journal_mode").Scan(&mode)
	if err != nil {
		t.Fatalf("PRAGMA journal_mode: %v", err)
	}
	// In-memory databases may use "memory" mode instead of WAL
	if mode != "wal" && mode != "memory" {
		t.Errorf("journal_mode = %q, want wal or memory", mode)
	}
}

func TestForeignKeysEnabled(t *testing.T) {
	db := testDB(t)

	var fk int
	err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk)
	if err != nil {
		t.Fatalf("PRAGMA foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}
}
