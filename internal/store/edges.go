package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Edge kinds.
const (
	EdgeSemantic     = "semantic"
	EdgeCoOccurrence = "co_occurrence"
)

// TagPrefix marks an edge endpoint that is a source tag rather than a concept.
const TagPrefix = "tag:"

// Edge links two concepts, or a concept and a source tag. For semantic edges
// both ends are concept IDs stored in canonical (a < b) order. Co-occurrence
// edges put the concept in a and the "tag:<label>" key in b.
type Edge struct {
	A         string
	B         string
	Kind      string
	Weight    float64
	CreatedAt int64
	UpdatedAt int64
}

// IsTag reports whether an edge endpoint is a tag key.
func IsTag(endpoint string) bool {
	return strings.HasPrefix(endpoint, TagPrefix)
}

// StrengthenEdge creates an edge with the given weight, or adds the weight to
// an existing one. Weights accumulate across observations and never reset.
func (db *DB) StrengthenEdge(a, b, kind string, weight float64) error {
	if kind == EdgeSemantic && b < a {
		a, b = b, a
	}
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO edges (a, b, kind, weight, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(a, b, kind) DO UPDATE SET weight = weight + excluded.weight, updated_at = excluded.updated_at
	`, a, b, kind, weight, now, now)
	if err != nil {
		return fmt.Errorf("strengthen edge: %w", err)
	}
	return nil
}

// GetEdge returns a single edge, or nil if not found.
func (db *DB) GetEdge(a, b, kind string) (*Edge, error) {
	if kind == EdgeSemantic && b < a {
		a, b = b, a
	}
	rows, err := db.Query(`
		SELECT a, b, kind, weight, created_at, updated_at
		FROM edges WHERE a = ? AND b = ? AND kind = ?
	`, a, b, kind)
	if err != nil {
		return nil, fmt.Errorf("get edge: %w", err)
	}
	defer rows.Close()

	edges, err := scanEdges(rows)
	if err != nil {
		return nil, err
	}
	if len(edges) == 0 {
		return nil, nil
	}
	return &edges[0], nil
}

// EdgesFor returns all edges touching the given concept, strongest first.
func (db *DB) EdgesFor(conceptID string) ([]Edge, error) {
	rows, err := db.Query(`
		SELECT a, b, kind, weight, created_at, updated_at
		FROM edges WHERE a = ? OR b = ?
		ORDER BY weight DESC
	`, conceptID, conceptID)
	if err != nil {
		return nil, fmt.Errorf("edges for %s: %w", conceptID, err)
	}
	defer rows.Close()
	return scanEdges(rows)
}

// AllEdges returns every edge, strongest first.
func (db *DB) AllEdges() ([]Edge, error) {
	rows, err := db.Query(`
		SELECT a, b, kind, weight, created_at, updated_at
		FROM edges ORDER BY weight DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("all edges: %w", err)
	}
	defer rows.Close()
	return scanEdges(rows)
}

// CountEdges returns the number of edges.
func (db *DB) CountEdges() (int, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM edges").Scan(&count)
	return count, err
}

// DeleteEdgesFor removes all edges touching the given concept.
func (db *DB) DeleteEdgesFor(conceptID string) error {
	_, err := db.Exec("DELETE FROM edges WHERE a = ? OR b = ?", conceptID, conceptID)
	if err != nil {
		return fmt.Errorf("delete edges for %s: %w", conceptID, err)
	}
	return nil
}

func scanEdges(rows *sql.Rows) ([]Edge, error) {
	var edges []Edge
	for rows.Next() {
		var e Edge
		if err := rows.Scan(&e.A, &e.B, &e.Kind, &e.Weight, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}
