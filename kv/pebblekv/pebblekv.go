// Package pebblekv backs kladov with pebble: transactions are indexed
// batches and counters are merge operands.
package pebblekv

import (
	"errors"
	"io"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/drpcorg/kladov/kladov_errors"
	"github.com/drpcorg/kladov/kv"
	pkgerrors "github.com/pkg/errors"
)

type Options struct {
	// InMemory keeps all data in a memory filesystem; Dir is ignored.
	InMemory bool
	// CacheSize is the block cache size in bytes; zero keeps pebble's default.
	CacheSize int64
	// Sync makes every commit durable before returning.
	Sync bool
}

type DB struct {
	db *pebble.DB
	wo *pebble.WriteOptions
}

const mergerName = "kladov.counter"

func Open(dir string, opts Options) (*DB, error) {
	popts := &pebble.Options{
		Merger: &pebble.Merger{
			Name:  mergerName,
			Merge: counterMerger,
		},
	}
	if opts.InMemory {
		popts.FS = vfs.NewMem()
	}
	if opts.CacheSize > 0 {
		cache := pebble.NewCache(opts.CacheSize)
		defer cache.Unref()
		popts.Cache = cache
	}
	db, err := pebble.Open(dir, popts)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "open pebble at %q", dir)
	}
	wo := pebble.NoSync
	if opts.Sync {
		wo = pebble.Sync
	}
	return &DB{db: db, wo: wo}, nil
}

func (d *DB) Pebble() *pebble.DB { return d.db }

func (d *DB) Close() error { return d.db.Close() }

func (d *DB) Begin() (kv.Transaction, error) {
	return &Batch{b: d.db.NewIndexedBatch(), wo: d.wo}, nil
}

// Batch is a kv.Transaction over a pebble indexed batch: reads observe the
// batch's own writes on top of the database.
type Batch struct {
	b    *pebble.Batch
	wo   *pebble.WriteOptions
	done bool
}

func (t *Batch) Get(key []byte) ([]byte, error) {
	v, closer, err := t.b.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()
	return append(make([]byte, 0, len(v)), v...), nil
}

func (t *Batch) Put(key, value []byte) error {
	return t.b.Set(key, value, nil)
}

func (t *Batch) Remove(key []byte) error {
	return t.b.Delete(key, nil)
}

func (t *Batch) RemoveRange(min, max []byte) error {
	if min == nil {
		min = []byte{}
	}
	if max != nil {
		return t.b.DeleteRange(min, max, nil)
	}
	it, err := t.GetRange(min, nil, false)
	if err != nil {
		return err
	}
	var doomed [][]byte
	for it.Next() {
		doomed = append(doomed, it.Key())
	}
	if err := it.Close(); err != nil {
		return err
	}
	for _, k := range doomed {
		if err := t.b.Delete(k, nil); err != nil {
			return err
		}
	}
	return nil
}

func (t *Batch) Adjust(key []byte, delta int64) error {
	return t.b.Merge(key, kv.EncodeCounter(delta), nil)
}

func (t *Batch) GetRange(min, max []byte, reverse bool) (kv.Iterator, error) {
	it, err := t.b.NewIter(&pebble.IterOptions{
		LowerBound: min,
		UpperBound: max,
	})
	if err != nil {
		return nil, err
	}
	return &iterator{it: it, reverse: reverse}, nil
}

func (t *Batch) Commit() error {
	if t.done {
		return kladov_errors.ErrTxClosed
	}
	t.done = true
	if err := t.b.Commit(t.wo); err != nil {
		_ = t.b.Close()
		return pkgerrors.Wrap(err, "commit batch")
	}
	return t.b.Close()
}

func (t *Batch) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	return t.b.Close()
}

type iterator struct {
	it      *pebble.Iterator
	reverse bool
	started bool
}

func (i *iterator) Next() bool {
	if !i.started {
		i.started = true
		if i.reverse {
			return i.it.Last()
		}
		return i.it.First()
	}
	if i.reverse {
		return i.it.Prev()
	}
	return i.it.Next()
}

func (i *iterator) Key() []byte {
	k := i.it.Key()
	return append(make([]byte, 0, len(k)), k...)
}

func (i *iterator) Value() []byte {
	v := i.it.Value()
	return append(make([]byte, 0, len(v)), v...)
}

func (i *iterator) Err() error { return i.it.Error() }

func (i *iterator) Close() error { return i.it.Close() }

// counterAdder sums big-endian int64 operands; order does not matter.
type counterAdder struct {
	sum int64
}

func counterMerger(key, value []byte) (pebble.ValueMerger, error) {
	a := &counterAdder{}
	if err := a.MergeNewer(value); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *counterAdder) MergeNewer(value []byte) error {
	d, err := kv.DecodeCounter(value)
	if err != nil {
		return err
	}
	a.sum += d
	return nil
}

func (a *counterAdder) MergeOlder(value []byte) error {
	return a.MergeNewer(value)
}

func (a *counterAdder) Finish(includesBase bool) ([]byte, io.Closer, error) {
	return kv.EncodeCounter(a.sum), nil, nil
}
