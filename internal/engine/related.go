package engine

import (
	"context"
	"strings"

	"github.com/lazypower/recall/internal/store"
)

// RelatedConcept is one graph neighbor: either a concept reached over a
// semantic edge or a source tag reached over a co-occurrence edge.
type RelatedConcept struct {
	Concept *store.Concept // nil for tag neighbors
	Tag     string         // set when the neighbor is a source tag
	Kind    string
	Weight  float64
}

// Related returns the strongest graph neighbors of a concept, ordered by
// accumulated edge weight.
func (e *Engine) Related(ctx context.Context, conceptID string, limit int) ([]RelatedConcept, error) {
	if limit <= 0 {
		limit = 10
	}

	c, err := e.DB.GetConcept(conceptID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrConceptNotFound
	}

	edges, err := e.DB.EdgesFor(conceptID)
	if err != nil {
		return nil, err
	}

	related := make([]RelatedConcept, 0, limit)
	for _, edge := range edges {
		if len(related) >= limit {
			break
		}

		other := edge.A
		if other == conceptID {
			other = edge.B
		}

		rc := RelatedConcept{Kind: edge.Kind, Weight: edge.Weight}
		if store.IsTag(other) {
			rc.Tag = strings.TrimPrefix(other, store.TagPrefix)
			related = append(related, rc)
			continue
		}

		neighbor, err := e.DB.GetConcept(other)
		if err != nil {
			return nil, err
		}
		if neighbor == nil {
			continue // neighbor was merged or deleted
		}
		rc.Concept = neighbor
		related = append(related, rc)
	}
	return related, nil
}
