package keyvalue

import (
	"context"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cached wraps a DB with a read-through LRU cache. Writes and deletes
// update the cache in place, so reads of hot keys never touch the
// backend.
type Cached struct {
	inner DB
	cache *lru.Cache[string, []byte]

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCached wraps inner with an LRU of the given entry count.
func NewCached(inner DB, size int) (*Cached, error) {
	cache, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, err
	}
	return &Cached{inner: inner, cache: cache}, nil
}

func (c *Cached) Read(ctx context.Context, key []byte) ([]byte, error) {
	if val, ok := c.cache.Get(string(key)); ok {
		c.hits.Add(1)
		out := make([]byte, len(val))
		copy(out, val)
		return out, nil
	}
	c.misses.Add(1)

	val, err := c.inner.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	c.cache.Add(string(key), val)

	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (c *Cached) Write(ctx context.Context, key, value []byte) error {
	if err := c.inner.Write(ctx, key, value); err != nil {
		return err
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	c.cache.Add(string(key), stored)
	return nil
}

func (c *Cached) Delete(ctx context.Context, key []byte) error {
	if err := c.inner.Delete(ctx, key); err != nil {
		return err
	}
	c.cache.Remove(string(key))
	return nil
}

func (c *Cached) Batch(ctx context.Context, ops []BatchOperation) error {
	if err := c.inner.Batch(ctx, ops); err != nil {
		return err
	}
	for _, op := range ops {
		switch op.Type {
		case BatchPut:
			stored := make([]byte, len(op.Value))
			copy(stored, op.Value)
			c.cache.Add(string(op.Key), stored)
		case BatchDelete:
			c.cache.Remove(string(op.Key))
		}
	}
	return nil
}

// Iterator bypasses the cache and reads from the backend directly.
func (c *Cached) Iterator(ctx context.Context, start, end []byte) (Iterator, error) {
	return c.inner.Iterator(ctx, start, end)
}

func (c *Cached) Close() error {
	c.cache.Purge()
	return c.inner.Close()
}

// CacheStats reports hit and miss counts since creation.
func (c *Cached) CacheStats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
