package notify

import (
	"context"
	"sync"
)

// MemoryNotifier is a test double that records delivered reminders.
type MemoryNotifier struct {
	mu        sync.Mutex
	Err       error
	Reminders []Reminder
}

// Notify records the reminder and returns the configured error.
func (m *MemoryNotifier) Notify(_ context.Context, r Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reminders = append(m.Reminders, r)
	return m.Err
}

// Count returns the number of recorded reminders.
func (m *MemoryNotifier) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Reminders)
}

// Last returns the most recent reminder, or a zero value if none were sent.
func (m *MemoryNotifier) Last() Reminder {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Reminders) == 0 {
		return Reminder{}
	}
	return m.Reminders[len(m.Reminders)-1]
}
