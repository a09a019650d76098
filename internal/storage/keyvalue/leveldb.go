package keyvalue

import (
	"context"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var levelSync = &opt.WriteOptions{Sync: true}

// LevelDB is the alternative persistent backend, selectable through
// configuration for deployments that prefer it over pebble.
type LevelDB struct {
	db *leveldb.DB
}

// OpenLevelDB opens (or creates) a leveldb store at path.
func OpenLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb at %s: %w", path, err)
	}
	return &LevelDB{db: db}, nil
}

func (l *LevelDB) Read(ctx context.Context, key []byte) ([]byte, error) {
	if l.db == nil {
		return nil, ErrClosed
	}
	val, err := l.db.Get(key, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return val, nil
}

func (l *LevelDB) Write(ctx context.Context, key, value []byte) error {
	if l.db == nil {
		return ErrClosed
	}
	return l.db.Put(key, value, levelSync)
}

func (l *LevelDB) Delete(ctx context.Context, key []byte) error {
	if l.db == nil {
		return ErrClosed
	}
	return l.db.Delete(key, levelSync)
}

func (l *LevelDB) Batch(ctx context.Context, ops []BatchOperation) error {
	if l.db == nil {
		return ErrClosed
	}

	batch := new(leveldb.Batch)
	for _, op := range ops {
		switch op.Type {
		case BatchPut:
			batch.Put(op.Key, op.Value)
		case BatchDelete:
			batch.Delete(op.Key)
		default:
			return fmt.Errorf("unknown batch operation type: %d", op.Type)
		}
	}
	return l.db.Write(batch, levelSync)
}

func (l *LevelDB) Iterator(ctx context.Context, start, end []byte) (Iterator, error) {
	if l.db == nil {
		return nil, ErrClosed
	}
	iter := l.db.NewIterator(&util.Range{Start: start, Limit: end}, nil)
	return &levelIterator{iter: iter}, nil
}

func (l *LevelDB) Close() error {
	if l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return err
}

type levelIterator struct {
	iter    iterator.Iterator
	current struct {
		key, value []byte
	}
}

func (it *levelIterator) Next() bool {
	if !it.iter.Next() {
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

func (it *levelIterator) Key() []byte   { return it.current.key }
func (it *levelIterator) Value() []byte { return it.current.value }
func (it *levelIterator) Error() error  { return it.iter.Error() }


func (it *levelIterator) Close() error {
	it.iter.Release()
	return it.iter.Error()
}
