// Package keyvalue defines the key-value storage contract used for
// snapshot persistence, plus the in-memory, pebble and leveldb
// backends and a read-through cache.
package keyvalue

import (
	"context"
	"errors"
)

var (
	// ErrClosed is returned when operating on a closed store.
	ErrClosed = errors.New("store is closed")

	// ErrKeyNotFound is returned when a key does not exist.
	ErrKeyNotFound = errors.New("key not found")
)

// DB defines the basic operations any backend must support.
type DB interface {
	// Read returns the value for key, or ErrKeyNotFound.
	Read(ctx context.Context, key []byte) ([]byte, error)
	Write(ctx context.Context, key, value []byte) error
	Delete(ctx context.Context, key []byte) error

	// Batch applies all operations atomically.
	Batch(ctx context.Context, ops []BatchOperation) error
	Iterator(ctx context.Context, start, end []byte) (Iterator, error)

	Close() error
}

// Iterator traverses entries in key order. Next must be called before
// the first Key/Value access.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Error() error
	Close() error
}

// BatchOperation represents a single operation in a batch.
type BatchOperation struct {
	Type  BatchOpType
	Key   []byte
	Value []byte
}

type BatchOpType int

const (
	BatchPut BatchOpType = iota
	BatchDelete
)
