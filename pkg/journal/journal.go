// Package journal defines the recorded-exchange store used by the
// record and replay transports, plus an in-memory implementation.
package journal

import (
	"net/http"
	"sync"
	"time"
)

// Exchange is one recorded response.
type Exchange struct {
	Target     string      `json:"target"`
	StatusCode int         `json:"status_code"`
	Header     http.Header `json:"header"`
	Body       []byte      `json:"body"`
	RecordedAt time.Time   `json:"recorded_at"`
}

// Journal stores exchanges keyed by request key.
type Journal interface {
	Close() error
	Put(key string, ex Exchange) error
	Get(key string) (Exchange, bool, error)
}

// Memory is a process-local Journal. The zero value is ready to use.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]Exchange
}

// NewMemory returns an empty in-memory journal.
func NewMemory() *Memory { return &Memory{} }

// Close implements Journal.
func (m *Memory) Close() error { return nil }

// Put implements Journal.
func (m *Memory) Put(key string, ex Exchange) error {
	if ex.RecordedAt.IsZero() {
		ex.RecordedAt = time.Now().UTC()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = make(map[string]Exchange)
	}
	m.entries[key] = ex
	return nil
}

// Get implements Journal.
func (m *Memory) Get(key string) (Exchange, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ex, ok := m.entries[key]
	return ex, ok, nil
}

// Len reports how many exchanges are stored.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
