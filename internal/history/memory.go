package history

import (
	"context"
	"slices"
	"sync"

	"github.com/sells-group/homework-assistant/internal/model"
)

// Memory is a process-local Store.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]model.Exchange
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]model.Exchange)}
}

func (m *Memory) Append(_ context.Context, key string, ex model.Exchange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append(m.data[key], ex)
	return nil
}

func (m *Memory) List(_ context.Context, key string) ([]model.Exchange, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.data[key]), nil
}

func (m *Memory) Count(_ context.Context, key string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data[key]), nil
}

func (m *Memory) Clear(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *Memory) Migrate(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
