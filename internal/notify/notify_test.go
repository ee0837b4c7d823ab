package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lazypower/recall/internal/config"
)

func sampleReminder() Reminder {
	return Reminder{
		ConceptID:    "c1",
		Label:        "binary search",
		MemoryScore:  0.42,
		Reason:       ReasonLowScore,
		FiredAt:      1_700_000_000_000,
		NextReviewAt: 1_700_003_600_000,
	}
}

func TestTitle(t *testing.T) {
	r := sampleReminder()
	want := `Review "binary search" (retention 42%)`
	if got := r.Title(); got != want {
		t.Errorf("Title = %q, want %q", got, want)
	}
}

func TestWebhookNotifier(t *testing.T) {
	var received Reminder
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if err := json.NewDecoder(req.Body).Decode(&received); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	if err := n.Notify(context.Background(), sampleReminder()); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if received.Label != "binary search" {
		t.Errorf("label = %q, want binary search", received.Label)
	}
	if received.Reason != ReasonLowScore {
		t.Errorf("reason = %q, want %q", received.Reason, ReasonLowScore)
	}
}

func TestWebhookNotifierErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	if err := n.Notify(context.Background(), sampleReminder()); err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestMemoryNotifier(t *testing.T) {
	m := &MemoryNotifier{}

	if err := m.Notify(context.Background(), sampleReminder()); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if m.Count() != 1 {
		t.Errorf("Count = %d, want 1", m.Count())
	}
	if m.Last().ConceptID != "c1" {
		t.Errorf("Last concept = %q, want c1", m.Last().ConceptID)
	}
}

func TestFanout(t *testing.T) {
	a := &MemoryNotifier{}
	b := &MemoryNotifier{Err: errors.New("sink down")}
	c := &MemoryNotifier{}

	f := Fanout{a, b, c}
	err := f.Notify(context.Background(), sampleReminder())
	if err == nil {
		t.Error("expected first error to surface")
	}

	// All sinks are still attempted
	for i, m := range []*MemoryNotifier{a, b, c} {
		if m.Count() != 1 {
			t.Errorf("notifier %d received %d reminders, want 1", i, m.Count())
		}
	}
}

func TestExpandPlaceholders(t *testing.T) {
	r := sampleReminder()

	got := expandPlaceholders("{label}: {score} ({reason})", r)
	want := "binary search: 0.42 (low-score)"
	if got != want {
		t.Errorf("expandPlaceholders = %q, want %q", got, want)
	}

	// No placeholders passes through
	if got := expandPlaceholders("plain", r); got != "plain" {
		t.Errorf("plain arg mangled: %q", got)
	}
}

func TestNewNotifier(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.ReminderConfig
		wantErr bool
	}{
		{"log", config.ReminderConfig{Sink: "log"}, false},
		{"none", config.ReminderConfig{Sink: "none"}, false},
		{"webhook", config.ReminderConfig{Sink: "webhook", WebhookURL: "http://localhost:1/hook"}, false},
		{"webhook missing url", config.ReminderConfig{Sink: "webhook"}, true},
		{"command", config.ReminderConfig{Sink: "command", Command: []string{"true"}}, false},
		{"command missing argv", config.ReminderConfig{Sink: "command"}, true},
		{"unknown", config.ReminderConfig{Sink: "carrier-pigeon"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := NewNotifier(tt.cfg, nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewNotifier() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && n == nil {
				t.Error("expected notifier, got nil")
			}
		})
	}
}
