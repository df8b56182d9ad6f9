package events

import (
	"context"
	"sync"

	"github.com/ethiapath/bagcamp/internal/core"
)

var _ core.DownloadRecorder = (*MemoryRecorder)(nil)

// MemoryRecorder stores events in memory. Used in tests to assert on
// recorded downloads.
type MemoryRecorder struct {
	mu     sync.Mutex
	events []core.DownloadEvent
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{
		events: make([]core.DownloadEvent, 0),
	}
}

func (m *MemoryRecorder) Record(_ context.Context, event core.DownloadEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, event)
	return nil
}

// Events returns a copy of all recorded events.
func (m *MemoryRecorder) Events() []core.DownloadEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]core.DownloadEvent, len(m.events))
	copy(out, m.events)
	return out
}

func (m *MemoryRecorder) Close() error {
	return nil // nothing to close :)
}
