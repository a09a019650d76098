package keyvalue

import (
	"context"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
)

// Pebble is the persistent DB used by the default server
// configuration.
type Pebble struct {
	db *pebble.DB
}

// OpenPebble opens (or creates) a pebble store at path.
func OpenPebble(path string) (*Pebble, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble at %s: %w", path, err)
	}
	return &Pebble{db: db}, nil
}

func (p *Pebble) Read(ctx context.Context, key []byte) ([]byte, error) {
	if p.db == nil {
		return nil, ErrClosed
	}

	val, closer, err := p.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	defer closer.Close()

	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (p *Pebble) Write(ctx context.Context, key, value []byte) error {
	if p.db == nil {
		return ErrClosed
	}
	return p.db.Set(key, value, pebble.Sync)
}

func (p *Pebble) Delete(ctx context.Context, key []byte) error {
	if p.db == nil {
		return ErrClosed
	}
	return p.db.Delete(key, pebble.Sync)
}

func (p *Pebble) Batch(ctx context.Context, ops []BatchOperation) error {
	if p.db == nil {
		return ErrClosed
	}

	batch := p.db.NewBatch()
	defer batch.Close()

	for _, op := range ops {
		switch op.Type {
		case BatchPut:
			if err := batch.Set(op.Key, op.Value, nil); err != nil {
				return err
			}
		case BatchDelete:
			if err := batch.Delete(op.Key, nil); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown batch operation type: %d", op.Type)
		}
	}

	return batch.Commit(pebble.Sync)
}

func (p *Pebble) Iterator(ctx context.Context, start, end []byte) (Iterator, error) {
	if p.db == nil {
		return nil, ErrClosed
	}

	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: start,
		UpperBound: end,
	})
	if err != nil {
		return nil, err
	}
	return &pebbleIterator{iter: iter, start: start}, nil
}

func (p *Pebble) Close() error {
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}

type pebbleIterator struct {
	iter    *pebble.Iterator
	start   []byte
	started bool
	current struct {
		key, value []byte
	}
}

func (it *pebbleIterator) Next() bool {
	if !it.started {
		it.started = true
		if it.start == nil {
			it.iter.First()
		} else {
			it.iter.SeekGE(it.start)
		}
	} else {
		it.iter.Next()
	}

	if !it.iter.Valid() {
		return false
	}

	key := it.iter.Key()
	val := it.iter.Value()

	keyCopy := make([]byte, len(key))
	copy(keyCopy, key)
	valCopy := make([]byte, len(val))
	copy(valCopy, val)

	it.current.key = keyCopy
	it.current.value = valCopy
	return true
}

func (it *pebbleIterator) Key() []byte   { return it.current.key }
func (it *pebbleIterator) Value() []byte { return it.current.value }

func (it *pebbleIterator) Error() error { return it.iter.Error() }

func (it *pebbleIterator) Close() error {
	return it.iter.Close()
}
