// Package memorydb implements an ephemeral kaidb.Database on top of the
// goleveldb skiplist.
package memorydb

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/syndtr/goleveldb/leveldb/comparer"
	"github.com/syndtr/goleveldb/leveldb/memdb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/Pol-Polina/Anoma/kai/kaidb"
)

/*
 * This is a test memory database. Do not use for any production it does not get persisted
 */
type Database struct {
	db   *memdb.DB
	lock sync.RWMutex
}

// New returns an empty in-memory database.
func New() *Database {
	return NewWithCap(0)
}

// NewWithCap returns an empty in-memory database with a preallocated buffer.
func NewWithCap(size int) *Database {
	return &Database{
		db: memdb.New(comparer.DefaultComparer, size),
	}
}

func (db *Database) Put(key []byte, value []byte) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	return db.db.Put(key, common.CopyBytes(value))
}

func (db *Database) Has(key []byte) (bool, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	return db.db.Contains(key), nil
}

func (db *Database) Get(key []byte) ([]byte, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	entry, err := db.db.Get(key)
	if err == memdb.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return common.CopyBytes(entry), nil
}

func (db *Database) Delete(key []byte) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	err := db.db.Delete(key)
	if err == memdb.ErrNotFound {
		return nil
	}
	return err
}

// NewIterator returns an iterator over the keys with the given prefix,
// starting at prefix+start.
func (db *Database) NewIterator(prefix []byte, start []byte) kaidb.Iterator {
	db.lock.RLock()
	defer db.lock.RUnlock()

	r := util.BytesPrefix(prefix)
	r.Start = append(r.Start, start...)
	return db.db.NewIterator(r)
}

func (db *Database) Close() error { return nil }

func (db *Database) NewBatch() kaidb.Batch {
	return &memBatch{db: db}
}

// Len returns the number of entries.
func (db *Database) Len() int {
	db.lock.RLock()
	defer db.lock.RUnlock()

	return db.db.Len()
}

type kv struct {
	k, v []byte
	del  bool
}

type memBatch struct {
	db     *Database
	writes []kv
	size   int
}

func (b *memBatch) Put(key, value []byte) error {
	b.writes = append(b.writes, kv{k: common.CopyBytes(key), v: common.CopyBytes(value)})
	b.size += len(value)
	return nil
}

func (b *memBatch) Delete(key []byte) error {
	b.writes = append(b.writes, kv{k: common.CopyBytes(key), del: true})
	b.size++
	return nil
}

func (b *memBatch) Write() error {
	b.db.lock.Lock()
	defer b.db.lock.Unlock()

	for _, kv := range b.writes {
		if kv.del {
			if err := b.db.db.Delete(kv.k); err != nil && err != memdb.ErrNotFound {
				return err
			}
			continue
		}
		if err := b.db.db.Put(kv.k, kv.v); err != nil {
			return err
		}
	}
	return nil
}

func (b *memBatch) ValueSize() int {
	return b.size
}

func (b *memBatch) Reset() {
	b.writes = b.writes[:0]
	b.size = 0
}
