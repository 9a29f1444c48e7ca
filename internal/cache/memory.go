package cache

import (
	"context"
	"sync"
)

// Memory is an in-process Cache backed by a map.
type Memory struct {
	mu      sync.RWMutex
	entries map[int]int
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[int]int)}
}

func (m *Memory) Get(_ context.Context, id int) (int, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	health, ok := m.entries[id]
	return health, ok, nil
}

func (m *Memory) Set(_ context.Context, id, health int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[id] = health
	return nil
}

func (m *Memory) Remove(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[id]; !ok {
		return ErrKeyMissing
	}
	delete(m.entries, id)
	return nil
}

// Len reports the number of cached entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
