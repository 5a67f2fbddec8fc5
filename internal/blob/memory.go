package blob

import (
	"context"
	"sync"
)

type memoryObject struct {
	contentType string
	data        []byte
}

// MemoryBucket keeps objects in process memory. Contents are lost on restart.
type MemoryBucket struct {
	name       string
	publicBase string

	mu      sync.RWMutex
	objects map[string]memoryObject
}

func NewMemoryBucket(name, publicBase string) *MemoryBucket {
	return &MemoryBucket{
		name:       name,
		publicBase: publicBase,
		objects:    make(map[string]memoryObject),
	}
}

func (m *MemoryBucket) Name() string       { return m.name }
func (m *MemoryBucket) PublicBase() string { return m.publicBase }

func (m *MemoryBucket) Put(_ context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return ErrInvalidKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects[key] = memoryObject{
		contentType: contentType,
		data:        append([]byte(nil), data...),
	}
	return nil
}

func (m *MemoryBucket) Open(_ context.Context, key string) ([]byte, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, "", ErrObjectNotFound
	}
	return append([]byte(nil), obj.data...), obj.contentType, nil
}

func (m *MemoryBucket) Exists(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.objects[key]
	return ok, nil
}

func (m *MemoryBucket) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.objects[key]; !ok {
		return ErrObjectNotFound
	}
	delete(m.objects, key)
	return nil
}

// Len returns the number of stored objects.
func (m *MemoryBucket) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.objects)
}
