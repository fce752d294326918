package kv

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Map is an in-memory Store.
type Map[V any] struct {
	mu   sync.RWMutex
	data map[string]V
}

// NewMap returns an empty in-memory store.
func NewMap[V any]() *Map[V] {
	return &Map[V]{data: make(map[string]V)}
}

func (m *Map[V]) Get(_ context.Context, key string) (V, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Map[V]) Put(_ context.Context, key string, v V) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = v
	return nil
}

func (m *Map[V]) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *Map[V]) Scan(_ context.Context, prefix string) ([]Entry[V], error) {
	m.mu.RLock()
	entries := make([]Entry[V], 0, len(m.data))
	for k, v := range m.data {
		if strings.HasPrefix(k, prefix) {
			entries = append(entries, Entry[V]{Key: k, Value: v})
		}
	}
	m.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

// Len returns the number of stored keys.
func (m *Map[V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
