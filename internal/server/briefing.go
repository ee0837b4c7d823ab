package server

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/lazypower/recall/internal/store"
)

func (s *Server) handleBriefing(w http.ResponseWriter, r *http.Request) {
	briefing, err := s.buildBriefing()
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"briefing": briefing,
	})
}

// buildBriefing renders a markdown digest of what deserves attention right
// now: concepts due for review, then the most faded actives. Producers can
// inject it verbatim at the start of a work session.
func (s *Server) buildBriefing() (string, error) {
	var b strings.Builder

	b.WriteString("## Recall Memory Briefing\n")

	now := time.Now().UnixMilli()
	due, err := s.db.DueConcepts(now)
	if err != nil {
		return "", err
	}

	// Cap each section so the briefing never becomes a wall of text
	const maxBriefingItems = 10

	if len(due) > 0 {
		b.WriteString("\n### Due for review\n")
		shown := due
		if len(shown) > maxBriefingItems {
			shown = shown[:maxBriefingItems]
		}
		for _, d := range shown {
			overdue := time.Duration(now-d.NextReviewAt) * time.Millisecond
			b.WriteString(fmt.Sprintf("- %s (retention %.0f%%, due %s ago)\n",
				d.Label, d.MemoryScore*100, overdue.Round(time.Minute)))
		}
		if len(due) > maxBriefingItems {
			b.WriteString(fmt.Sprintf("- …and %d more\n", len(due)-maxBriefingItems))
		}
	}

	active, err := s.db.ActiveConcepts()
	if err != nil {
		return "", err
	}

	type rankedItem struct {
		label    string
		score    float64
		priority float64
	}
	var fading []rankedItem
	for _, c := range active {
		if c.NextReviewAt <= now {
			continue // already listed above
		}
		if c.MemoryScore >= 0.6 {
			continue
		}
		fading = append(fading, rankedItem{c.Label, c.MemoryScore, conceptPriority(&c.Concept)})
	}

	sort.Slice(fading, func(i, j int) bool {
		return fading[i].priority > fading[j].priority
	})
	if len(fading) > maxBriefingItems {
		fading = fading[:maxBriefingItems]
	}

	if len(fading) > 0 {
		b.WriteString("\n### Fading\n")
		for _, f := range fading {
			b.WriteString(fmt.Sprintf("- %s (retention %.0f%%)\n", f.label, f.score*100))
		}
	}

	if len(due) == 0 && len(fading) == 0 {
		b.WriteString("\nNothing needs attention right now.\n")
	}

	return b.String(), nil
}

// conceptPriority ranks a fading concept for briefing inclusion. Higher =
// more urgent. Fade depth weighted by how often the concept actually comes
// up, with diminishing returns on frequency.
func conceptPriority(c *store.Concept) float64 {
	frequencyBoost := 1.0
	if c.OccurrenceCount > 1 {
		// log2 keeps heavy hitters from drowning everything: 2→2.0, 4→3.0, 8→4.0
		frequencyBoost = 1.0 + math.Log2(float64(c.OccurrenceCount))
	}
	return (1.0 - c.MemoryScore) * frequencyBoost
}
