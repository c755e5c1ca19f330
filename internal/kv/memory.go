package kv

import (
	"context"
	"sync"
)

// Memory is an in-process Storage. Values are copied on the way in and out.
type Memory struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string][]byte)}
}

// Load implements Storage.
func (m *Memory) Load(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[namespace][key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Save implements Storage.
func (m *Memory) Save(ctx context.Context, namespace, key string, value []byte) error {
	return m.SaveBatch(ctx, namespace, []Entry{{Key: key, Value: value}})
}

// SaveBatch implements Batcher.
func (m *Memory) SaveBatch(ctx context.Context, namespace string, entries []Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	ns, ok := m.data[namespace]
	if !ok {
		ns = make(map[string][]byte)
		m.data[namespace] = ns
	}
	for _, e := range entries {
		ns[e.Key] = append([]byte(nil), e.Value...)
	}
	return nil
}

// Keys returns the keys stored under namespace, for diagnostics and tests.
func (m *Memory) Keys(namespace string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.data[namespace]))
	for k := range m.data[namespace] {
		keys = append(keys, k)
	}
	return keys
}
