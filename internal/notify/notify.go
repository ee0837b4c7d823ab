package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lazypower/recall/internal/config"
)

// Reminder reasons.
const (
	ReasonLowScore = "low-score"
	ReasonDue      = "due"
)

// Reminder is the payload delivered when a concept needs review.
type Reminder struct {
	ConceptID    string  `json:"concept_id"`
	Label        string  `json:"label"`
	MemoryScore  float64 `json:"memory_score"`
	Reason       string  `json:"reason"`
	FiredAt      int64   `json:"fired_at"`
	NextReviewAt int64   `json:"next_review_at"`
}

// Title returns a short human-readable headline for the reminder.
func (r Reminder) Title() string {
	return fmt.Sprintf("Review %q (retention %.0f%%)", r.Label, r.MemoryScore*100)
}

// Notifier delivers reminders to an external sink.
type Notifier interface {
	Notify(ctx context.Context, r Reminder) error
}

// NewNotifier creates a notifier based on the configured sink.
func NewNotifier(cfg config.ReminderConfig, logger *slog.Logger) (Notifier, error) {
	switch cfg.Sink {
	case "log":
		return &LogNotifier{Logger: logger}, nil
	case "webhook":
		if cfg.WebhookURL == "" {
			return nil, fmt.Errorf("webhook sink requires reminders.webhook_url")
		}
		return NewWebhookNotifier(cfg.WebhookURL), nil
	case "command":
		if len(cfg.Command) == 0 {
			return nil, fmt.Errorf("command sink requires reminders.command")
		}
		return NewCommandNotifier(cfg.Command), nil
	case "none":
		return Discard{}, nil
	default:
		return nil, fmt.Errorf("unknown reminder sink: %q", cfg.Sink)
	}
}

// LogNotifier writes reminders to the structured log.
type LogNotifier struct {
	Logger *slog.Logger
}

func (l *LogNotifier) Notify(_ context.Context, r Reminder) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("review reminder",
		"label", r.Label,
		"concept_id", r.ConceptID,
		"memory_score", r.MemoryScore,
		"reason", r.Reason,
	)
	return nil
}

// Discard drops all reminders.
type Discard struct{}

func (Discard) Notify(context.Context, Reminder) error { return nil }

// Fanout delivers each reminder to all wrapped notifiers. Delivery failures
// are collected; every notifier is attempted.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, r Reminder) error {
	var firstErr error
	for _, n := range f {
		if err := n.Notify(ctx, r); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
