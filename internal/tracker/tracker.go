// Package tracker runs recall's periodic background work: the decay sweep
// that keeps memory scores honest between observations, and the embedding
// backfill for concepts that arrived while no embedder was reachable.
package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Job is a periodic background task.
type Job interface {
	// Name returns a unique identifier, used for logging and dedup.
	Name() string

	// Schedule returns a 5-field cron expression (e.g. "*/5 * * * *").
	Schedule() string

	// Run executes one tick. Implementations should honor ctx cancellation.
	Run(ctx context.Context) error
}

// Tracker schedules jobs with cron expressions. Each job carries its own
// mutex so a slow tick is skipped rather than stacked (TryLock, no race
// between check and acquire).
type Tracker struct {
	mu     sync.Mutex
	cron   *cron.Cron
	jobs   []Job
	names  map[string]struct{}
	locks  map[string]*sync.Mutex
	cancel context.CancelFunc
}

// New creates an empty tracker. Jobs must be registered before Start.
func New() *Tracker {
	return &Tracker{
		names: make(map[string]struct{}),
		locks: make(map[string]*sync.Mutex),
	}
}

// Register adds a job. A duplicate name is an error.
func (t *Tracker) Register(j Job) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	name := j.Name()
	if _, exists := t.names[name]; exists {
		return fmt.Errorf("tracker: duplicate job name %q", name)
	}

	t.names[name] = struct{}{}
	t.locks[name] = &sync.Mutex{}
	t.jobs = append(t.jobs, j)
	return nil
}

// Start validates every schedule and begins ticking.
func (t *Tracker) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	t.cron = cron.New(cron.WithParser(parser))

	for _, j := range t.jobs {
		job := j
		lock := t.locks[job.Name()]

		_, err := t.cron.AddFunc(job.Schedule(), func() {
			// If the previous tick is still running, skip this one
			if !lock.TryLock() {
				slog.Warn("tracker: job still running, skipping tick", "job", job.Name())
				return
			}
			defer lock.Unlock()

			if err := job.Run(ctx); err != nil {
				slog.Error("tracker: job failed", "job", job.Name(), "error", err)
			}
		})
		if err != nil {
			cancel()
			return fmt.Errorf("tracker: invalid schedule for job %q: %w", job.Name(), err)
		}
	}

	t.cron.Start()
	slog.Info("tracker: started", "jobs", len(t.jobs))
	return nil
}

// Stop cancels job contexts and waits for in-flight ticks to finish.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}
	if t.cron != nil {
		<-t.cron.Stop().Done()
		slog.Info("tracker: stopped")
	}
}
