package storage

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/cockroachdb/errors"
)

// MemoryRemote keeps objects in process memory.
type MemoryRemote struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemoryRemote() *MemoryRemote {
	return &MemoryRemote{objects: map[string][]byte{}}
}

func (m *MemoryRemote) Name() string { return "memory" }

func (m *MemoryRemote) Download(ctx context.Context, key string, w io.Writer) error {
	m.mu.Lock()
	data, ok := m.objects[key]
	m.mu.Unlock()
	if !ok {
		return errors.Wrapf(ErrObjectNotFound, "memory:%s", key)
	}
	_, err := w.Write(data)
	return err
}

func (m *MemoryRemote) Upload(ctx context.Context, key string, r io.Reader, _ string) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return errors.Wrapf(err, "read upload for %s", key)
	}
	m.mu.Lock()
	m.objects[key] = buf.Bytes()
	m.mu.Unlock()
	return nil
}

func (m *MemoryRemote) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return errors.Wrapf(ErrObjectNotFound, "memory:%s", key)
	}
	delete(m.objects, key)
	return nil
}

// Object returns a copy of the stored bytes.
func (m *MemoryRemote) Object(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	return append([]byte(nil), data...), ok
}

// Keys lists stored keys in no particular order.
func (m *MemoryRemote) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	return keys
}
