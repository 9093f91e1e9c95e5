package metadata

import (
	"context"
	"sync"
)

// MemoryKV is an in-process KV store.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryKV creates an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Write(ctx context.Context, path string, value []byte) error {
	key, err := validatePath(path)
	if err != nil {
		return err
	}
	buf := append([]byte(nil), value...)

	m.mu.Lock()
	m.data[key] = buf
	m.mu.Unlock()
	return nil
}

func (m *MemoryKV) ReadAll(ctx context.Context, path string) (Snapshot, error) {
	collection := normalizeCollection(path)
	children := make(map[string][]byte)

	m.mu.RLock()
	for key, value := range m.data {
		if name, ok := directChild(collection, key); ok {
			children[name] = append([]byte(nil), value...)
		}
	}
	m.mu.RUnlock()

	return NewSnapshot(collection, children), nil
}

func (m *MemoryKV) Close() error {
	return nil
}
