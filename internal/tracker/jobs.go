package tracker

import (
	"context"
	"log/slog"

	"github.com/lazypower/recall/internal/engine"
)

// SweepJob applies the forgetting curve to every active concept and lets the
// reminder gate fire for anything that slipped under the threshold between
// observations.
type SweepJob struct {
	Engine       *engine.Engine
	ScheduleExpr string // empty = every minute
}

var _ Job = (*SweepJob)(nil)

func (j *SweepJob) Name() string { return "sweep" }

func (j *SweepJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "* * * * *"
}

func (j *SweepJob) Run(ctx context.Context) error {
	stats, err := j.Engine.Sweep(ctx)
	if err != nil {
		return err
	}
	if stats.Lowered > 0 || stats.Reminded > 0 {
		slog.Info("tracker: sweep",
			"scanned", stats.Scanned,
			"lowered", stats.Lowered,
			"reminded", stats.Reminded,
		)
	}
	return nil
}

// BackfillJob embeds concepts that have no vector under the current model,
// typically ones observed while Ollama was down. A nil embedder makes it a
// no-op rather than an error so the job can stay registered.
type BackfillJob struct {
	Engine       *engine.Engine
	ScheduleExpr string // empty = hourly
}

var _ Job = (*BackfillJob)(nil)

func (j *BackfillJob) Name() string { return "embed-backfill" }

func (j *BackfillJob) Schedule() string {
	if j.ScheduleExpr != "" {
		return j.ScheduleExpr
	}
	return "0 * * * *"
}

func (j *BackfillJob) Run(ctx context.Context) error {
	if j.Engine.Embedder == nil {
		return nil
	}
	embedded, err := j.Engine.EmbedMissing(ctx)
	if err != nil {
		return err
	}
	if embedded > 0 {
		slog.Info("tracker: embedded missing vectors", "count", embedded)
	}
	return nil
}
