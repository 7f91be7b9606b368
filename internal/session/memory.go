package session

import (
	"sync"
	"time"
)

// Memory is an in-process session for tests.
type Memory struct {
	mu   sync.Mutex
	last time.Time

	// SetErr, when non-nil, is returned by SetLastVerseTime.
	SetErr error
}

// NewMemory returns a session with an optional initial marker.
func NewMemory(last time.Time) *Memory { return &Memory{last: last} }

func (m *Memory) LastVerseTime() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, !m.last.IsZero()
}

func (m *Memory) SetLastVerseTime(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	m.last = t
	return nil
}
