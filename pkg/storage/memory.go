package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStorage keeps objects in a map. It is used by tests and dry runs.
type MemoryStorage struct {
	data map[string][]byte
	lock sync.RWMutex
}

// NewMemoryStorage returns an empty memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		data: make(map[string][]byte),
	}
}

func (m *MemoryStorage) Write(ctx context.Context, key string, body []byte,
	options *Options) error {

	m.lock.Lock()
	defer m.lock.Unlock()

	m.data[key] = append([]byte{}, body...)
	return nil
}

func (m *MemoryStorage) Read(ctx context.Context, key string) ([]byte, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	b, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte{}, b...), nil
}

func (m *MemoryStorage) Remove(ctx context.Context, key string) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if _, ok := m.data[key]; !ok {
		return ErrNotFound
	}
	delete(m.data, key)
	return nil
}

// List returns the keys directly under prefix, sorted.
func (m *MemoryStorage) List(ctx context.Context, prefix string) ([]string, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	if len(prefix) > 0 && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	keys := []string{}
	for key := range m.data {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if strings.Contains(key[len(prefix):], "/") {
			continue
		}
		keys = append(keys, key)
	}

	sort.Strings(keys)
	return keys, nil
}
