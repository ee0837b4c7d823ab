package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// CommandNotifier runs a local command for each reminder, e.g. notify-send.
// Argv placeholders {title}, {label}, {score}, and {reason} are substituted
// before execution; the full reminder JSON is available on stdin.
type CommandNotifier struct {
	argv    []string
	timeout time.Duration
}

// NewCommandNotifier creates a Notifier that shells out to the given argv.
func NewCommandNotifier(argv []string) *CommandNotifier {
	return &CommandNotifier{
		argv:    argv,
		timeout: 10 * time.Second,
	}
}

func (c *CommandNotifier) Notify(ctx context.Context, r Reminder) error {
	if len(c.argv) == 0 {
		return fmt.Errorf("command notifier: empty argv")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	args := make([]string, len(c.argv)-1)
	for i, a := range c.argv[1:] {
		args[i] = expandPlaceholders(a, r)
	}

	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal reminder: %w", err)
	}

	cmd := exec.CommandContext(ctx, c.argv[0], args...)
	cmd.Stdin = bytes.NewReader(payload)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("reminder command: %w (stderr: %s)", err, stderr.String())
	}
	return nil
}

func expandPlaceholders(s string, r Reminder) string {
	s = strings.ReplaceAll(s, "{title}", r.Title())
	s = strings.ReplaceAll(s, "{label}", r.Label)
	s = strings.ReplaceAll(s, "{score}", fmt.Sprintf("%.2f", r.MemoryScore))
	s = strings.ReplaceAll(s, "{reason}", r.Reason)
	return s
}
