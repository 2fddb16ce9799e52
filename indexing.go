package kladov

import (
	"bytes"
	"fmt"

	"github.com/drpcorg/kladov/encodings"
	"github.com/drpcorg/kladov/keys"
	"github.com/drpcorg/kladov/kladov_errors"
	"github.com/drpcorg/kladov/oid"
	"github.com/drpcorg/kladov/schema"
)

func (tx *Tx) putEntry(sid uint64, key []byte) error {
	IndexEntries.WithLabelValues(sidLabel(sid), "add").Inc()
	return tx.kv.Put(key, []byte{})
}

func (tx *Tx) removeEntry(sid uint64, key []byte) error {
	IndexEntries.WithLabelValues(sidLabel(sid), "remove").Inc()
	return tx.kv.Remove(key)
}

// checkUnique fails when another object holds value nb in f. Default
// values are exempt.
func (tx *Tx) checkUnique(id oid.ID, f *schema.Field, nb []byte) error {
	if bytes.Equal(nb, encodings.DefaultBytes(f.Encoding)) {
		return nil
	}
	prefix := entryKey(f.StorageID, nb)
	it, err := tx.kv.GetRange(prefix, keys.PrefixEnd(prefix), false)
	if err != nil {
		return err
	}
	defer it.Close()
	for it.Next() {
		other, err := oid.FromBytes(it.Key()[len(prefix):])
		if err != nil {
			return inconsistent(err, "unique index %s", f)
		}
		if other == id {
			continue
		}
		v, err := encodings.DecodeAny(f.Encoding, nb)
		if err != nil {
			return inconsistent(err, "unique index %s", f)
		}
		return &kladov_errors.UniqueConstraintError{
			Field:    f.StorageID,
			Object:   id,
			Conflict: other,
			Value:    f.Encoding.FormatAny(v),
		}
	}
	return it.Err()
}

// compositeKey builds the entry of ix for id; override replaces the stored
// value of one member field.
func (tx *Tx) compositeKey(ix *schema.IndexInfo, id oid.ID, override *schema.Field, ob []byte) ([]byte, error) {
	parts := make([][]byte, 0, len(ix.Composite.Fields)+1)
	for _, f := range ix.Composite.Fields {
		if f == override {
			parts = append(parts, ob)
			continue
		}
		b, err := tx.rawValue(id, f)
		if err != nil {
			return nil, err
		}
		parts = append(parts, b)
	}
	parts = append(parts, id[:])
	return entryKey(ix.StorageID, parts...), nil
}

// moveComposites rewrites the composite entries of id after f changed from
// ob to nb.
func (tx *Tx) moveComposites(id oid.ID, f *schema.Field, ob, nb []byte) error {
	for _, ix := range tx.db.composites[f.StorageID] {
		old, err := tx.compositeKey(ix, id, f, ob)
		if err != nil {
			return err
		}
		cur, err := tx.compositeKey(ix, id, f, nb)
		if err != nil {
			return err
		}
		if err := tx.removeEntry(ix.StorageID, old); err != nil {
			return err
		}
		if err := tx.putEntry(ix.StorageID, cur); err != nil {
			return err
		}
	}
	return nil
}

// indexEntries lists the entries id holds in ix, computed from its
// content.
func (tx *Tx) indexEntries(id oid.ID, ix *schema.IndexInfo) ([][]byte, error) {
	switch ix.Kind {
	case schema.IndexSimple:
		b, err := tx.rawValue(id, ix.Field)
		if err != nil {
			return nil, err
		}
		return [][]byte{entryKey(ix.StorageID, b, id[:])}, nil
	case schema.IndexComposite:
		k, err := tx.compositeKey(ix, id, nil, nil)
		if err != nil {
			return nil, err
		}
		return [][]byte{k}, nil
	case schema.IndexListElement, schema.IndexSetElement, schema.IndexMapKey, schema.IndexMapValue:
		var out [][]byte
		err := tx.walkContent(id, ix.Field, func(sub, value []byte) error {
			out = append(out, subEntry(ix, id, sub, value))
			return nil
		})
		return out, err
	}
	panic(fmt.Sprintf("kladov: unexpected index kind %s", ix.Kind))
}

// subEntry is the entry of a collection index for one element. sub is the
// content key suffix after the field storage id, value the stored value.
func subEntry(ix *schema.IndexInfo, id oid.ID, sub, value []byte) []byte {
	switch ix.Kind {
	case schema.IndexListElement:
		return entryKey(ix.StorageID, value, id[:], sub)
	case schema.IndexSetElement, schema.IndexMapKey:
		return entryKey(ix.StorageID, sub, id[:])
	case schema.IndexMapValue:
		return entryKey(ix.StorageID, value, id[:], sub)
	}
	panic(fmt.Sprintf("kladov: %s is not a collection index", ix))
}

// walkContent visits the stored elements of a collection field.
func (tx *Tx) walkContent(id oid.ID, f *schema.Field, fn func(sub, value []byte) error) error {
	prefix := fieldKey(id, f.StorageID)
	it, err := tx.kv.GetRange(prefix, keys.PrefixEnd(prefix), false)
	if err != nil {
		return err
	}
	defer it.Close()
	for it.Next() {
		if err := fn(it.Key()[len(prefix):], it.Value()); err != nil {
			return err
		}
	}
	return it.Err()
}

// subIndex is the index over a collection sub-field; nil when the
// sub-field is not indexed.
func (tx *Tx) subIndex(sub *schema.Field) *schema.IndexInfo {
	if !sub.Indexed {
		return nil
	}
	ix, err := tx.schema.Index(sub.StorageID)
	if err != nil {
		panic(fmt.Sprintf("kladov: indexed %s has no index", sub))
	}
	return ix
}
