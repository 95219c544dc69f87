package storage

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/erp/portalsync/internal/domain/erpsync"
)

var _ erpsync.Archive = (*MemoryArchive)(nil)

// Object is an archived artifact.
type Object struct {
	Body        []byte
	ContentType string
}

// MemoryArchive keeps the most recent artifacts in memory. It stands in for
// object storage in development so archived reports can still be inspected.
type MemoryArchive struct {
	mu       sync.RWMutex
	objects  map[string]Object
	order    []string
	capacity int
}

// NewMemoryArchive creates an archive holding at most capacity objects.
// A capacity of zero or less means 256.
func NewMemoryArchive(capacity int) *MemoryArchive {
	if capacity <= 0 {
		capacity = 256
	}
	return &MemoryArchive{
		objects:  make(map[string]Object),
		capacity: capacity,
	}
}

// Put stores a copy of body, evicting the oldest object when full.
func (m *MemoryArchive) Put(_ context.Context, key string, body []byte, contentType string) error {
	if key == "" {
		return errors.New("archive key is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.objects[key]; ok {
		m.order = slices.DeleteFunc(m.order, func(k string) bool { return k == key })
	} else if len(m.order) >= m.capacity {
		delete(m.objects, m.order[0])
		m.order = m.order[1:]
	}
	m.objects[key] = Object{Body: slices.Clone(body), ContentType: contentType}
	m.order = append(m.order, key)
	return nil
}

// Get returns the object stored under key.
func (m *MemoryArchive) Get(key string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj, ok
}

// Keys returns stored keys, oldest first.
func (m *MemoryArchive) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.order)
}
