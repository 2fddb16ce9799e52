// Package kladov stores schema-defined objects in an ordered key-value
// store and keeps their secondary indexes in the same transaction as the
// content they describe.
package kladov

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/drpcorg/kladov/encodings"
	"github.com/drpcorg/kladov/kladov_errors"
	"github.com/drpcorg/kladov/kv"
	"github.com/drpcorg/kladov/kv/pebblekv"
	"github.com/drpcorg/kladov/schema"
	"github.com/drpcorg/kladov/utils"
)

const FormatVersion = 1

// Keys starting with 0x00 never collide with object or index keys, which
// start with an ascending uvarint.
var versionKey = []byte{0x00, 'V'}

type Options struct {
	Logger   utils.Logger
	Registry *encodings.Registry
	Schema   *schema.Schema
	// SchemaYAML is parsed with Registry when Schema is nil.
	SchemaYAML []byte
	// Backend replaces the pebble database opened in the directory.
	Backend kv.Database
	Pebble  pebblekv.Options
}

func (o *Options) SetDefaults() {
	if o.Logger == nil {
		o.Logger = utils.NewDefaultLogger(slog.LevelWarn)
	}
	if o.Registry == nil {
		o.Registry = encodings.NewRegistry()
	}
}

type DB struct {
	store  kv.Database
	schema *schema.Schema
	log    utils.Logger
	opts   Options

	// composite indexes by the storage id of each member field
	composites map[uint64][]*schema.IndexInfo

	closed atomic.Bool
}

func Open(dir string, opts Options) (*DB, error) {
	opts.SetDefaults()
	s := opts.Schema
	if s == nil {
		if opts.SchemaYAML == nil {
			return nil, errors.Join(kladov_errors.ErrInvalidSchema, fmt.Errorf("no schema given"))
		}
		var err error
		if s, err = schema.LoadYAML(opts.SchemaYAML, opts.Registry); err != nil {
			return nil, err
		}
	}

	store := opts.Backend
	if store == nil {
		pdb, err := pebblekv.Open(dir, opts.Pebble)
		if err != nil {
			return nil, err
		}
		store = pdb
	}

	db := &DB{
		store:      store,
		schema:     s,
		log:        opts.Logger,
		opts:       opts,
		composites: make(map[uint64][]*schema.IndexInfo),
	}
	for _, ix := range s.Indexes() {
		if ix.Kind != schema.IndexComposite {
			continue
		}
		for _, f := range ix.Composite.Fields {
			db.composites[f.StorageID] = append(db.composites[f.StorageID], ix)
		}
	}

	if err := db.checkVersion(); err != nil {
		_ = store.Close()
		return nil, err
	}
	db.log.Info("database opened", "dir", dir, "types", len(s.Types()), "indexes", len(s.Indexes()))
	return db, nil
}

func (db *DB) checkVersion() error {
	tx, err := db.store.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	v, err := tx.Get(versionKey)
	if err != nil {
		return err
	}
	want := []byte{FormatVersion}
	if v == nil {
		if err := tx.Put(versionKey, want); err != nil {
			return err
		}
		return tx.Commit()
	}
	if !bytes.Equal(v, want) {
		return errors.Join(kladov_errors.ErrFormatVersion, fmt.Errorf("found %x, expected %x", v, want))
	}
	return nil
}

func (db *DB) Schema() *schema.Schema { return db.schema }

func (db *DB) Registry() *encodings.Registry { return db.opts.Registry }

func (db *DB) Logger() utils.Logger { return db.log }

// Store is the underlying key-value database.
func (db *DB) Store() kv.Database { return db.store }

// Begin starts a transaction. A Tx belongs to one goroutine.
func (db *DB) Begin() (*Tx, error) {
	if db.closed.Load() {
		return nil, kladov_errors.ErrClosed
	}
	t, err := db.store.Begin()
	if err != nil {
		return nil, err
	}
	return &Tx{db: db, kv: t, schema: db.schema, log: db.log}, nil
}

// Update runs fn in a transaction and commits it unless fn fails.
func (db *DB) Update(fn func(tx *Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (db *DB) Close() error {
	if !db.closed.CompareAndSwap(false, true) {
		return kladov_errors.ErrClosed
	}
	db.log.Info("database closed")
	return db.store.Close()
}
