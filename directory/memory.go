package directory

import (
	"context"
	"sort"
	"sync"
)

// Memory is a heap-backed Directory.
type Memory struct {
	mu     sync.RWMutex
	files  map[string][]byte
	closed bool
}

// NewMemory creates an empty in-memory directory.
func NewMemory() *Memory {
	return &Memory{files: make(map[string][]byte)}
}

// Open opens a file for reading. Stored bytes are never mutated, so the
// returned input shares them.
func (m *Memory) Open(_ context.Context, name string) (Input, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	data, ok := m.files[name]
	if !ok {
		return nil, &notFoundError{name: name}
	}
	return &bytesInput{data: data}, nil
}

// Put stores a copy of data under name.
func (m *Memory) Put(_ context.Context, name string, data []byte) error {
	copied := make([]byte, len(data))
	copy(copied, data)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.files[name] = copied
	return nil
}

// Delete removes a file.
func (m *Memory) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	delete(m.files, name)
	return nil
}

// List returns the sorted names starting with prefix.
func (m *Memory) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	var names []string
	for name := range m.files {
		if hasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Close drops all files.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.files = nil
	return nil
}

type notFoundError struct {
	name string
}

func (e *notFoundError) Error() string { return "directory: file not found: " + e.name }

func (e *notFoundError) Unwrap() error { return ErrNotFound }
