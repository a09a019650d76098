package keyvalue

import (
	"bytes"
	"context"
	"sort"
	"sync"
)

// Memory is a thread-safe in-memory DB used by tests and the default
// node wiring when no data directory is configured.
type Memory struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Read(ctx context.Context, key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}
	val, ok := m.data[string(key)]
	if !ok {
		return nil, ErrKeyNotFound
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *Memory) Write(ctx context.Context, key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	m.data[string(key)] = stored
	return nil
}

func (m *Memory) Delete(ctx context.Context, key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	delete(m.data, string(key))
	return nil
}

func (m *Memory) Batch(ctx context.Context, ops []BatchOperation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	for _, op := range ops {
		switch op.Type {
		case BatchPut:
			stored := make([]byte, len(op.Value))
			copy(stored, op.Value)
			m.data[string(op.Key)] = stored
		case BatchDelete:
			delete(m.data, string(op.Key))
		}
	}
	return nil
}

func (m *Memory) Iterator(ctx context.Context, start, end []byte) (Iterator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		kb := []byte(k)
		if start != nil && bytes.Compare(kb, start) < 0 {
			continue
		}
		if end != nil && bytes.Compare(kb, end) >= 0 {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]memEntry, len(keys))
	for i, k := range keys {
		val := m.data[k]
		out := make([]byte, len(val))
		copy(out, val)
		entries[i] = memEntry{key: []byte(k), value: out}
	}
	return &memIterator{entries: entries, pos: -1}, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.data = make(map[string][]byte)
	return nil
}

type memEntry struct {
	key, value []byte
}

type memIterator struct {
	entries []memEntry
	pos     int
}

func (it *memIterator) Next() bool {
	if it.pos+1 >= len(it.entries) {
		return false
	}
	it.pos++
	return true
}

func (it *memIterator) Key() []byte {
	if it.pos < 0 || it.pos >= len(it.entries) {
		return nil
	}
	return it.entries[it.pos].key
}

func (it *memIterator) Value() []byte {
	if it.pos < 0 || it.pos >= len(it.entries) {
		return nil
	}
	return it.entries[it.pos].value
}

func (it *memIterator) Error() error { return nil }
func (it *memIterator) Close() error { return nil }
