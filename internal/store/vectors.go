package store

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// VectorRecord holds a concept's embedding together with the model that
// produced it. The model tag is how backfill detects stale vectors after
// an embedder switch.
type VectorRecord struct {
	ConceptID  string
	Embedding  []float64
	Model      string
	Dimensions int
	CreatedAt  int64
}

// Embeddings are stored as raw little-endian float64 blobs, 8 bytes per
// component. Dimensions live in their own column, so decoding never guesses.

func encodeEmbedding(vec []float64) []byte {
	buf := make([]byte, len(vec)*8)
	for i, v := range vec {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

func decodeEmbedding(buf []byte) []float64 {
	vec := make([]float64, len(buf)/8)
	for i := range vec {
		vec[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return vec
}

// SaveVector stores or replaces the embedding for a concept.
func (db *DB) SaveVector(conceptID string, embedding []float64, model string) error {
	now := time.Now().UnixMilli()
	blob := encodeEmbedding(embedding)

	_, err := db.Exec(`
		INSERT INTO vectors (concept_id, embedding, model, dimensions, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(concept_id) DO UPDATE SET embedding = ?, model = ?, dimensions = ?, created_at = ?
	`, conceptID, blob, model, len(embedding), now,
		blob, model, len(embedding), now)
	if err != nil {
		return fmt.Errorf("save vector: %w", err)
	}
	return nil
}

// GetVector returns the embedding record for a concept, or nil if the
// concept has never been embedded.
func (db *DB) GetVector(conceptID string) (*VectorRecord, error) {
	var v VectorRecord
	var blob []byte

	err := db.QueryRow(`
		SELECT concept_id, embedding, model, dimensions, created_at
		FROM vectors WHERE concept_id = ?
	`, conceptID).Scan(&v.ConceptID, &blob, &v.Model, &v.Dimensions, &v.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get vector: %w", err)
	}
	v.Embedding = decodeEmbedding(blob)
	return &v, nil
}

// AllEmbeddings returns every stored embedding keyed by concept id. Search
// and dedup both rank the whole vector set at once; neither needs the model
// metadata, so this skips it.
func (db *DB) AllEmbeddings() (map[string][]float64, error) {
	rows, err := db.Query("SELECT concept_id, embedding FROM vectors")
	if err != nil {
		return nil, fmt.Errorf("all embeddings: %w", err)
	}
	defer rows.Close()

	vecs := make(map[string][]float64)
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		vecs[id] = decodeEmbedding(blob)
	}
	return vecs, rows.Err()
}

// DeleteVector removes the embedding for a concept.
func (db *DB) DeleteVector(conceptID string) error {
	_, err := db.Exec("DELETE FROM vectors WHERE concept_id = ?", conceptID)
	if err != nil {
		return fmt.Errorf("delete vector: %w", err)
	}
	return nil
}
