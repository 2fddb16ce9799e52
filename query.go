package kladov

import (
	"errors"
	"fmt"

	"github.com/drpcorg/kladov/index"
	"github.com/drpcorg/kladov/kladov_errors"
	"github.com/drpcorg/kladov/oid"
	"github.com/drpcorg/kladov/schema"
)

// Query handles read through the transaction and are valid until it ends.

func (tx *Tx) queryIndex(sid uint64, kinds ...schema.IndexKind) (*schema.IndexInfo, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	ix, err := tx.schema.Index(sid)
	if err != nil {
		return nil, err
	}
	for _, k := range kinds {
		if ix.Kind == k {
			return ix, nil
		}
	}
	return nil, errors.Join(kladov_errors.ErrUnknownIndex, fmt.Errorf("%s is not one of %v", ix, kinds))
}

// QueryIndex opens a simple, set element or map key index: value to
// referring object.
func (tx *Tx) QueryIndex(sid uint64) (*index.Index1[any, oid.ID], error) {
	ix, err := tx.queryIndex(sid, schema.IndexSimple, schema.IndexSetElement, schema.IndexMapKey)
	if err != nil {
		return nil, err
	}
	v := index.NewView1(sidPrefix(sid), false, ix.Indexed().Encoding, objEnc)
	return index.NewIndex1[any, oid.ID](tx.kv, v), nil
}

// QueryListElementIndex opens a list element index: value, object and
// list position.
func (tx *Tx) QueryListElementIndex(sid uint64) (*index.Index2[any, oid.ID, uint64], error) {
	ix, err := tx.queryIndex(sid, schema.IndexListElement)
	if err != nil {
		return nil, err
	}
	v := index.NewView2(sidPrefix(sid), false, ix.Sub.Encoding, objEnc, ix.Trailing())
	return index.NewIndex2[any, oid.ID, uint64](tx.kv, v), nil
}

// QueryMapValueIndex opens a map value index: value, object and map key.
func (tx *Tx) QueryMapValueIndex(sid uint64) (*index.Index2[any, oid.ID, any], error) {
	ix, err := tx.queryIndex(sid, schema.IndexMapValue)
	if err != nil {
		return nil, err
	}
	v := index.NewView2(sidPrefix(sid), false, ix.Sub.Encoding, objEnc, ix.Trailing())
	return index.NewIndex2[any, oid.ID, any](tx.kv, v), nil
}

func (tx *Tx) queryComposite(typeName, name string, arity int) (*schema.IndexInfo, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	ix, err := tx.schema.CompositeIndex(typeName, name)
	if err != nil {
		return nil, err
	}
	if n := len(ix.Composite.Fields); n != arity {
		return nil, errors.Join(kladov_errors.ErrUnknownIndex, fmt.Errorf("%s has %d fields, not %d", ix, n, arity))
	}
	return ix, nil
}

func (tx *Tx) QueryCompositeIndex2(typeName, name string) (*index.Index2[any, any, oid.ID], error) {
	ix, err := tx.queryComposite(typeName, name, 2)
	if err != nil {
		return nil, err
	}
	e := ix.ValueEncodings()
	v := index.NewView2(sidPrefix(ix.StorageID), false, e[0], e[1], objEnc)
	return index.NewIndex2[any, any, oid.ID](tx.kv, v), nil
}

func (tx *Tx) QueryCompositeIndex3(typeName, name string) (*index.Index3[any, any, any, oid.ID], error) {
	ix, err := tx.queryComposite(typeName, name, 3)
	if err != nil {
		return nil, err
	}
	e := ix.ValueEncodings()
	v := index.NewView3(sidPrefix(ix.StorageID), false, e[0], e[1], e[2], objEnc)
	return index.NewIndex3[any, any, any, oid.ID](tx.kv, v), nil
}

func (tx *Tx) QueryCompositeIndex4(typeName, name string) (*index.Index4[any, any, any, any, oid.ID], error) {
	ix, err := tx.queryComposite(typeName, name, 4)
	if err != nil {
		return nil, err
	}
	e := ix.ValueEncodings()
	v := index.NewView4(sidPrefix(ix.StorageID), false, e[0], e[1], e[2], e[3], objEnc)
	return index.NewIndex4[any, any, any, any, oid.ID](tx.kv, v), nil
}
