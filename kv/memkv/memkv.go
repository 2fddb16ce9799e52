// Package memkv is an in-memory ordered store on a copy-on-write B-tree.
package memkv

import (
	"bytes"
	"sync"

	"github.com/drpcorg/kladov/kladov_errors"
	"github.com/drpcorg/kladov/kv"
	"github.com/google/btree"
)

const degree = 32

type item struct {
	key   []byte
	value []byte
}

func less(a, b item) bool { return bytes.Compare(a.key, b.key) < 0 }

// Store is a kv.Store; iterators work on a snapshot taken when they open,
// so writes made while iterating are not observed.
type Store struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[item]
}

func New() *Store {
	return &Store{tree: btree.NewG[item](degree, less)}
}

func (s *Store) Get(key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.tree.Get(item{key: key})
	if !ok {
		return nil, nil
	}
	return clone(it.value), nil
}

func (s *Store) Put(key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.ReplaceOrInsert(item{key: clone(key), value: clone(value)})
	return nil
}

func (s *Store) Remove(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.Delete(item{key: key})
	return nil
}

func (s *Store) RemoveRange(min, max []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var doomed []item
	visit := func(it item) bool {
		doomed = append(doomed, it)
		return true
	}
	if max == nil {
		s.tree.AscendGreaterOrEqual(item{key: min}, visit)
	} else {
		s.tree.AscendRange(item{key: min}, item{key: max}, visit)
	}
	for _, it := range doomed {
		s.tree.Delete(it)
	}
	return nil
}

func (s *Store) Adjust(key []byte, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var cur int64
	if it, ok := s.tree.Get(item{key: key}); ok {
		v, err := kv.DecodeCounter(it.value)
		if err != nil {
			return err
		}
		cur = v
	}
	s.tree.ReplaceOrInsert(item{key: clone(key), value: kv.EncodeCounter(cur + delta)})
	return nil
}

func (s *Store) GetRange(min, max []byte, reverse bool) (kv.Iterator, error) {
	snapshot := s.snapshot()
	if min == nil {
		min = []byte{}
	}
	return &iterator{tree: snapshot, min: clone(min), max: clone(max), reverse: reverse}, nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Len()
}

// snapshot clones under the write lock: Clone must not run concurrently.
func (s *Store) snapshot() *btree.BTreeG[item] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Clone()
}

func (s *Store) swap(tree *btree.BTreeG[item]) {
	s.mu.Lock()
	s.tree = tree
	s.mu.Unlock()
}

// iterator steps through the snapshot one lookup at a time.
type iterator struct {
	tree    *btree.BTreeG[item]
	min     []byte
	max     []byte
	reverse bool
	cur     item
	started bool
	done    bool
}

func (it *iterator) Next() bool {
	if it.done {
		return false
	}
	var next item
	found := false
	take := func(i item) bool {
		next, found = i, true
		return false
	}
	if !it.reverse {
		from := it.min
		if it.started {
			from = append(clone(it.cur.key), 0)
		}
		if it.max == nil {
			it.tree.AscendGreaterOrEqual(item{key: from}, take)
		} else {
			it.tree.AscendRange(item{key: from}, item{key: it.max}, take)
		}
	} else {
		skip := func(i item) bool {
			if bytes.Compare(i.key, it.min) < 0 {
				return false
			}
			if it.started && bytes.Compare(i.key, it.cur.key) >= 0 {
				return true
			}
			if !it.started && it.max != nil && bytes.Compare(i.key, it.max) >= 0 {
				return true
			}
			return take(i)
		}
		switch {
		case it.started:
			it.tree.DescendLessOrEqual(item{key: it.cur.key}, skip)
		case it.max != nil:
			it.tree.DescendLessOrEqual(item{key: it.max}, skip)
		default:
			it.tree.Descend(skip)
		}
	}
	it.started = true
	if !found {
		it.done = true
		return false
	}
	it.cur = next
	return true
}

func (it *iterator) Key() []byte { return clone(it.cur.key) }

func (it *iterator) Value() []byte { return clone(it.cur.value) }

func (it *iterator) Err() error { return nil }

func (it *iterator) Close() error {
	it.done = true
	it.tree = nil
	return nil
}

// DB hands out serialized transactions over one Store. A transaction works
// on a copy-on-write clone that replaces the store's tree on commit.
type DB struct {
	store  *Store
	writer sync.Mutex
	closed bool
}

func NewDB() *DB {
	return &DB{store: New()}
}

func (db *DB) Begin() (kv.Transaction, error) {
	db.writer.Lock()
	if db.closed {
		db.writer.Unlock()
		return nil, kladov_errors.ErrClosed
	}
	return &tx{db: db, Store: &Store{tree: db.store.snapshot()}}, nil
}

func (db *DB) Close() error {
	db.writer.Lock()
	defer db.writer.Unlock()
	db.closed = true
	return nil
}

type tx struct {
	*Store
	db   *DB
	done bool
}

func (t *tx) Commit() error {
	if t.done {
		return kladov_errors.ErrTxClosed
	}
	t.done = true
	t.db.store.swap(t.Store.snapshot())
	t.db.writer.Unlock()
	return nil
}

func (t *tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.db.writer.Unlock()
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append(make([]byte, 0, len(b)), b...)
}
