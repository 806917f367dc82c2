package audit

import (
	"context"
	"sync"
)

// MemoryObjectStore is an in-memory ObjectStore for testing
type MemoryObjectStore struct {
	objects map[string][]byte
	mu      sync.RWMutex
	err     error
}

// NewMemoryObjectStore creates an empty store
func NewMemoryObjectStore() *MemoryObjectStore {
	return &MemoryObjectStore{objects: make(map[string][]byte)}
}

// FailWith makes every later PutObject return err
func (m *MemoryObjectStore) FailWith(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// PutObject stores a copy of body
func (m *MemoryObjectStore) PutObject(_ context.Context, key string, body []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.objects[key] = append([]byte(nil), body...)
	return nil
}

// Objects returns a copy of everything stored
func (m *MemoryObjectStore) Objects() map[string][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()

	objects := make(map[string][]byte, len(m.objects))
	for k, v := range m.objects {
		objects[k] = v
	}
	return objects
}
