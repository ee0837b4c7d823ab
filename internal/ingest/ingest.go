// Package ingest reads observation batches from JSONL files, one batch
// per line, for bulk import into the engine.
package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/lazypower/recall/internal/engine"
)

// Batch is one line of an import file: concepts seen together in a
// single exposure, with optional confidence signals. The shape matches
// the observe API body.
type Batch struct {
	Concepts []string       `json:"concepts"`
	Signals  engine.Signals `json:"signals"`
}

// Stats summarizes one import run.
type Stats struct {
	Batches  int // batches observed
	Concepts int // concept mentions across all batches
	Created  int // concepts that did not exist before
	Skipped  int // malformed lines and batches without concepts
}

// Import streams batches from r into the engine, one Observe call per
// line. Malformed lines are counted and skipped; a store failure stops
// the run.
func Import(ctx context.Context, e *engine.Engine, r io.Reader) (Stats, error) {
	var stats Stats
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024) // 1MB line buffer

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var b Batch
		if err := json.Unmarshal(line, &b); err != nil {
			stats.Skipped++
			continue
		}
		if len(b.Concepts) == 0 {
			stats.Skipped++
			continue
		}

		res, err := e.Observe(ctx, b.Concepts, b.Signals)
		if err != nil {
			return stats, fmt.Errorf("observe line %d: %w", lineNo, err)
		}
		stats.Batches++
		stats.Concepts += len(res.Concepts)
		stats.Created += res.Created
	}

	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("scan import: %w", err)
	}
	return stats, nil
}

// ImportFile imports a JSONL file by path.
func ImportFile(ctx context.Context, e *engine.Engine, path string) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()
	return Import(ctx, e, f)
}
