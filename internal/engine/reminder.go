package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lazypower/recall/internal/metrics"
	"github.com/lazypower/recall/internal/notify"
	"github.com/lazypower/recall/internal/store"
)

// maybeRemind runs one concept through the reminder gate. It fires when the
// retention estimate has dropped below the review threshold or the review
// date has passed, unless a reminder went out within the cooldown window.
// Suppression leaves the concept untouched. On fire, the concept is marked
// reminded and its next check pushed out an hour so an unreviewed concept
// nags at most hourly.
func (e *Engine) maybeRemind(ctx context.Context, c *store.Concept, item *store.ReviewItem, now int64) (bool, error) {
	if item != nil && item.Status == store.StatusArchived {
		return false, nil
	}

	var reason string
	switch {
	case c.MemoryScore < e.Decay.ReviewThreshold:
		reason = notify.ReasonLowScore
	case c.NextReviewAt <= now:
		reason = notify.ReasonDue
	default:
		return false, nil
	}

	if c.LastRemindedAt != nil && now-*c.LastRemindedAt < e.Cooldown.Milliseconds() {
		metrics.RemindersSuppressedTotal.Inc()
		return false, nil
	}

	nextAt := now + time.Hour.Milliseconds()
	rem := notify.Reminder{
		ConceptID:    c.ID,
		Label:        c.Label,
		MemoryScore:  c.MemoryScore,
		Reason:       reason,
		FiredAt:      now,
		NextReviewAt: nextAt,
	}
	// Notify before marking: a failed delivery must not burn the cooldown.
	if err := e.Notifier.Notify(ctx, rem); err != nil {
		return false, fmt.Errorf("notify %q: %w", c.Label, err)
	}
	if err := e.DB.MarkReminded(c.ID, now, nextAt); err != nil {
		return false, err
	}

	c.LastRemindedAt = &now
	c.NextReviewAt = nextAt
	metrics.RemindersTotal.WithLabelValues(reason).Inc()
	return true, nil
}

// SweepStats reports one decay pass.
type SweepStats struct {
	Scanned  int
	Lowered  int
	Reminded int
}

// Sweep re-evaluates every non-archived concept against the forgetting
// curve and polls the reminder gate. Sweeps only ever lower stored scores;
// observations and reviews are the paths that raise them.
func (e *Engine) Sweep(ctx context.Context) (SweepStats, error) {
	start := time.Now()
	defer func() {
		metrics.SweepDuration.Observe(time.Since(start).Seconds())
	}()

	var stats SweepStats
	now := start.UnixMilli()

	concepts, err := e.DB.ActiveConcepts()
	if err != nil {
		return stats, err
	}

	due := 0
	for i := range concepts {
		c := &concepts[i].Concept
		stats.Scanned++

		// Neutral signals reduce Score to the bare curve, which is exactly
		// the sweep target.
		target := e.Decay.Score(c.LastSeenAt, now, Signals{})
		lowered, err := e.DB.LowerMemoryScore(c.ID, target, now)
		if err != nil {
			return stats, err
		}
		if lowered {
			c.MemoryScore = target
			stats.Lowered++
		}

		if c.NextReviewAt <= now || c.MemoryScore < e.Decay.ReviewThreshold {
			due++
		}

		fired, err := e.maybeRemind(ctx, c, concepts[i].Item, now)
		if err != nil {
			slog.Warn("sweep: reminder", "label", c.Label, "error", err)
			continue
		}
		if fired {
			stats.Reminded++
		}
	}

	metrics.DueConcepts.Set(float64(due))
	return stats, nil
}
