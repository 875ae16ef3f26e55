// Package memory is an in-process mirror used by tests and local
// development runs without a configured endpoint.
package memory

import (
	"context"
	"sync"

	"tally/internal/core"
	"tally/internal/remote"
)

type Mirror struct {
	mu    sync.Mutex
	items []core.Transaction

	// Injectable failures for tests.
	FetchErr error
	SaveErr  error

	saves int
}

func New(seed []core.Transaction) *Mirror {
	return &Mirror{items: append([]core.Transaction(nil), seed...)}
}

var _ remote.Mirror = (*Mirror)(nil)

func (m *Mirror) Fetch(_ context.Context) ([]core.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	return append([]core.Transaction(nil), m.items...), nil
}

func (m *Mirror) Save(_ context.Context, list []core.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.items = append([]core.Transaction(nil), list...)
	m.saves++
	return nil
}

// SaveCount reports how many saves completed, for debounce assertions.
func (m *Mirror) SaveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Items returns a copy of the mirrored list.
func (m *Mirror) Items() []core.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Transaction(nil), m.items...)
}
