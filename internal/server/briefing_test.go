package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lazypower/recall/internal/store"
)

func TestBriefingEmpty(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest("GET", "/api/briefing", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if !strings.Contains(resp["briefing"], "Nothing needs attention") {
		t.Errorf("empty briefing = %q, want the all-clear line", resp["briefing"])
	}
}

func TestBriefingSections(t *testing.T) {
	srv, eng := testServer(t)
	now := time.Now().UnixMilli()

	seedServerConcept(t, eng.DB, "c1", "overdue topic", 0.5, now-2*time.Hour.Milliseconds())
	seedServerConcept(t, eng.DB, "c2", "fading topic", 0.3, now+48*time.Hour.Milliseconds())
	seedServerConcept(t, eng.DB, "c3", "healthy topic", 0.9, now+48*time.Hour.Milliseconds())

	req := httptest.NewRequest("GET", "/api/briefing", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	briefing := resp["briefing"]

	if !strings.Contains(briefing, "Due for review") || !strings.Contains(briefing, "overdue topic") {
		t.Errorf("briefing missing due section:\n%s", briefing)
	}
	if !strings.Contains(briefing, "Fading") || !strings.Contains(briefing, "fading topic") {
		t.Errorf("briefing missing fading section:\n%s", briefing)
	}
	if strings.Contains(briefing, "healthy topic") {
		t.Errorf("healthy concept leaked into briefing:\n%s", briefing)
	}
}

func TestBriefingCapsItems(t *testing.T) {
	srv, eng := testServer(t)
	now := time.Now().UnixMilli()

	for i := 0; i < 15; i++ {
		id := string(rune('a' + i))
		seedServerConcept(t, eng.DB, id, "due topic "+id, 0.5, now-time.Hour.Milliseconds())
	}

	req := httptest.NewRequest("GET", "/api/briefing", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)

	if !strings.Contains(resp["briefing"], "and 5 more") {
		t.Errorf("briefing did not cap the due list:\n%s", resp["briefing"])
	}
}

func TestConceptPriority(t *testing.T) {
	faded := &store.Concept{MemoryScore: 0.2, OccurrenceCount: 1}
	fadedFrequent := &store.Concept{MemoryScore: 0.2, OccurrenceCount: 8}
	fresh := &store.Concept{MemoryScore: 0.9, OccurrenceCount: 8}

	if conceptPriority(fadedFrequent) <= conceptPriority(faded) {
		t.Error("frequency should boost priority")
	}
	if conceptPriority(fresh) >= conceptPriority(faded) {
		t.Error("fade depth should dominate priority")
	}
}
