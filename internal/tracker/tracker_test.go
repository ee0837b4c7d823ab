package tracker

import (
	"context"
	"testing"
)

// noopJob is a minimal Job for tracker tests.
type noopJob struct {
	name     string
	schedule string
}

func (j *noopJob) Name() string                { return j.name }
func (j *noopJob) Schedule() string            { return j.schedule }
func (j *noopJob) Run(_ context.Context) error { return nil }

func TestRegisterDuplicateName(t *testing.T) {
	tr := New()

	if err := tr.Register(&noopJob{name: "sweep", schedule: "* * * * *"}); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if err := tr.Register(&noopJob{name: "sweep", schedule: "*/5 * * * *"}); err == nil {
		t.Fatal("duplicate registration should fail")
	}
}

func TestStartInvalidSchedule(t *testing.T) {
	tr := New()
	if err := tr.Register(&noopJob{name: "bad", schedule: "not a cron expr"}); err != nil {
		t.Fatal(err)
	}

	if err := tr.Start(); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestStartStop(t *testing.T) {
	tr := New()
	if err := tr.Register(&noopJob{name: "noop", schedule: "* * * * *"}); err != nil {
		t.Fatal(err)
	}

	if err := tr.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	tr.Stop()
}

func TestStopWithoutStart(t *testing.T) {
	New().Stop() // should not panic
}
