package client

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lazypower/recall/internal/engine"
	"github.com/lazypower/recall/internal/notify"
	"github.com/lazypower/recall/internal/server"
	"github.com/lazypower/recall/internal/store"
)

// testClient runs a real server over an in-memory store and points a
// client at it.
func testClient(t *testing.T) *Client {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	eng := engine.New(db, &notify.MemoryNotifier{})
	ts := httptest.NewServer(server.New(db, eng, "test"))
	t.Cleanup(ts.Close)
	return New(ts.URL)
}

func TestObserveThenReview(t *testing.T) {
	c := testClient(t)

	obs, err := c.Observe([]string{"raft", "paxos"}, engine.Signals{SourceTag: "reading"})
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if obs.Created != 2 || len(obs.ConceptIDs) != 2 {
		t.Fatalf("created = %d, ids = %d", obs.Created, len(obs.ConceptIDs))
	}
	if obs.Edges != 2 {
		t.Fatalf("edges = %d, want 2 tag edges", obs.Edges)
	}

	rev, err := c.Review(obs.ConceptIDs[0], 4, "")
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if rev.Algorithm != engine.AlgorithmSM2 {
		t.Fatalf("algorithm = %q", rev.Algorithm)
	}
	if rev.IntervalDays != 1 {
		t.Fatalf("interval = %d, want 1", rev.IntervalDays)
	}
}

func TestReviewUnknownConcept(t *testing.T) {
	c := testClient(t)

	_, err := c.Review("no-such-id", 4, "")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Fatalf("error = %v, want a 404", err)
	}
}

func TestHealthy(t *testing.T) {
	c := testClient(t)
	if !c.Healthy() {
		t.Fatal("expected healthy server")
	}

	down := New("http://127.0.0.1:1")
	if down.Healthy() {
		t.Fatal("expected unreachable server to be unhealthy")
	}
}

func TestNewURLFallback(t *testing.T) {
	t.Setenv("RECALL_URL", "http://example.test:9999")
	if got := New("").baseURL; got != "http://example.test:9999" {
		t.Fatalf("env fallback = %q", got)
	}
	if got := New("http://explicit:1234").baseURL; got != "http://explicit:1234" {
		t.Fatalf("explicit url = %q", got)
	}

	t.Setenv("RECALL_URL", "")
	if got := New("").baseURL; got != defaultServerURL {
		t.Fatalf("default = %q", got)
	}
}
