package kladov

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/drpcorg/kladov/encodings"
	"github.com/drpcorg/kladov/kladov_errors"
	"github.com/drpcorg/kladov/kv"
	"github.com/drpcorg/kladov/navigable"
	"github.com/drpcorg/kladov/oid"
	"github.com/drpcorg/kladov/schema"
	"github.com/drpcorg/kladov/utils"
	pkgerrors "github.com/pkg/errors"
)

// Tx reads and writes objects. Index entries change in the same
// transaction as the content they mirror.
type Tx struct {
	db     *DB
	kv     kv.Transaction
	schema *schema.Schema
	log    utils.Logger
	closed bool
}

func (tx *Tx) Schema() *schema.Schema { return tx.schema }

// Store gives raw access to the transaction's keys.
func (tx *Tx) Store() kv.Store { return tx.kv }

func (tx *Tx) Commit() error {
	if tx.closed {
		return kladov_errors.ErrTxClosed
	}
	tx.closed = true
	return tx.kv.Commit()
}

func (tx *Tx) Rollback() error {
	if tx.closed {
		return nil
	}
	tx.closed = true
	return tx.kv.Rollback()
}

func (tx *Tx) check() error {
	if tx.closed {
		return kladov_errors.ErrTxClosed
	}
	return nil
}

func inconsistent(err error, format string, args ...any) error {
	return errors.Join(kladov_errors.ErrInconsistentDatabase, pkgerrors.Wrapf(err, format, args...))
}

func invalidValue(format string, args ...any) error {
	return errors.Join(kladov_errors.ErrInvalidValue, fmt.Errorf(format, args...))
}

// Create allocates a new object of the named type with every field at its
// default value.
func (tx *Tx) Create(typeName string) (oid.ID, error) {
	if err := tx.check(); err != nil {
		return oid.Nil, err
	}
	t, err := tx.schema.Type(typeName)
	if err != nil {
		return oid.Nil, err
	}
	var id oid.ID
	for {
		id = oid.New(t.StorageID)
		v, err := tx.kv.Get(objectKey(id))
		if err != nil {
			return oid.Nil, err
		}
		if v == nil {
			break
		}
	}
	if err := tx.kv.Put(objectKey(id), liveFlags); err != nil {
		return oid.Nil, err
	}
	// defaults are indexed too; collections start empty
	for _, ix := range tx.schema.TypeIndexes(t) {
		if ix.Kind != schema.IndexSimple && ix.Kind != schema.IndexComposite {
			continue
		}
		entries, err := tx.indexEntries(id, ix)
		if err != nil {
			return oid.Nil, err
		}
		for _, e := range entries {
			if err := tx.putEntry(ix.StorageID, e); err != nil {
				return oid.Nil, err
			}
		}
	}
	tx.log.Debug("object created", "type", t.Name, "id", id)
	return id, nil
}

func (tx *Tx) Exists(id oid.ID) (bool, error) {
	if err := tx.check(); err != nil {
		return false, err
	}
	return tx.exists(id)
}

func (tx *Tx) exists(id oid.ID) (bool, error) {
	v, err := tx.kv.Get(objectKey(id))
	return v != nil, err
}

// object resolves the type of a live object.
func (tx *Tx) object(id oid.ID) (*schema.ObjType, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	t, err := tx.schema.TypeOf(id)
	if err != nil {
		return nil, err
	}
	ok, err := tx.exists(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &kladov_errors.DeletedObjectError{Object: id}
	}
	return t, nil
}

func (tx *Tx) field(id oid.ID, sid uint64, kinds ...schema.FieldKind) (*schema.ObjType, *schema.Field, error) {
	t, err := tx.object(id)
	if err != nil {
		return nil, nil, err
	}
	f, err := t.FieldBySID(sid)
	if err != nil {
		return nil, nil, err
	}
	for _, k := range kinds {
		if f.Kind == k {
			return t, f, nil
		}
	}
	return nil, nil, invalidValue("field %s of %s is not %v", f, t, kinds)
}

// All is the set of live objects of the named type.
func (tx *Tx) All(typeName string) (*navigable.Set[oid.ID], error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	t, err := tx.schema.Type(typeName)
	if err != nil {
		return nil, err
	}
	return navigable.New(tx.kv, nil, encodings.ObjID, true).WithRange(oid.TypeRange(t.StorageID)), nil
}

// FieldKey is the content key, or key prefix for collections and
// counters, of a field. Watching it observes every change of the field.
func (tx *Tx) FieldKey(id oid.ID, sid uint64) ([]byte, error) {
	if _, _, err := tx.field(id, sid, schema.Simple, schema.Reference, schema.Counter,
		schema.List, schema.Set, schema.Map); err != nil {
		return nil, err
	}
	return fieldKey(id, sid), nil
}

// rawValue is the stored encoding of a simple or reference field.
func (tx *Tx) rawValue(id oid.ID, f *schema.Field) ([]byte, error) {
	b, err := tx.kv.Get(fieldKey(id, f.StorageID))
	if err != nil || b != nil {
		return b, err
	}
	return encodings.DefaultBytes(f.Encoding), nil
}

func decodeValue(enc encodings.Encoding, b []byte, id oid.ID, f *schema.Field) (any, error) {
	v, err := encodings.DecodeAny(enc, b)
	if err != nil {
		return nil, inconsistent(err, "decode %s of %s", f, id)
	}
	return v, nil
}

func (tx *Tx) ReadSimpleField(id oid.ID, sid uint64) (any, error) {
	_, f, err := tx.field(id, sid, schema.Simple, schema.Reference)
	if err != nil {
		return nil, err
	}
	b, err := tx.rawValue(id, f)
	if err != nil {
		return nil, err
	}
	return decodeValue(f.Encoding, b, id, f)
}

// WriteSimpleField validates and stores a simple or reference value and
// moves the object's index entries.
func (tx *Tx) WriteSimpleField(id oid.ID, sid uint64, value any) error {
	t, f, err := tx.field(id, sid, schema.Simple, schema.Reference)
	if err != nil {
		return err
	}
	nb, err := tx.encodeValue(f, value)
	if err != nil {
		return err
	}
	return tx.writeSimple(t, id, f, nb)
}

// encodeValue validates value against a simple, reference or sub-field.
func (tx *Tx) encodeValue(f *schema.Field, value any) ([]byte, error) {
	v, err := f.Encoding.Validate(value)
	if err != nil {
		return nil, errors.Join(kladov_errors.ErrInvalidValue, fmt.Errorf("%s: %w", f, err))
	}
	if f.Kind == schema.Reference {
		if err := tx.checkReference(f, v.(oid.ID)); err != nil {
			return nil, err
		}
	}
	b, err := encodings.EncodeAny(f.Encoding, v)
	if err != nil {
		return nil, errors.Join(kladov_errors.ErrInvalidValue, fmt.Errorf("%s: %w", f, err))
	}
	return b, nil
}

func (tx *Tx) checkReference(f *schema.Field, target oid.ID) error {
	if target.IsNil() {
		return nil
	}
	if !f.AllowsType(target.TypeSID()) {
		return invalidValue("%s cannot refer to %s", f, target)
	}
	if f.AllowDeleted {
		return nil
	}
	ok, err := tx.exists(target)
	if err != nil {
		return err
	}
	if !ok {
		return &kladov_errors.DeletedObjectError{Object: target}
	}
	return nil
}

func (tx *Tx) writeSimple(t *schema.ObjType, id oid.ID, f *schema.Field, nb []byte) error {
	ob, err := tx.rawValue(id, f)
	if err != nil {
		return err
	}
	if bytes.Equal(ob, nb) {
		return nil
	}
	if f.Unique {
		if err := tx.checkUnique(id, f, nb); err != nil {
			return err
		}
	}
	if f.Indexed {
		if err := tx.removeEntry(f.StorageID, entryKey(f.StorageID, ob, id[:])); err != nil {
			return err
		}
		if err := tx.putEntry(f.StorageID, entryKey(f.StorageID, nb, id[:])); err != nil {
			return err
		}
	}
	if err := tx.moveComposites(id, f, ob, nb); err != nil {
		return err
	}
	key := fieldKey(id, f.StorageID)
	if bytes.Equal(nb, encodings.DefaultBytes(f.Encoding)) {
		return tx.kv.Remove(key)
	}
	return tx.kv.Put(key, nb)
}

func (tx *Tx) counter(id oid.ID, sid uint64) ([]byte, error) {
	if _, _, err := tx.field(id, sid, schema.Counter); err != nil {
		return nil, err
	}
	return fieldKey(id, sid), nil
}

func (tx *Tx) ReadCounter(id oid.ID, sid uint64) (int64, error) {
	key, err := tx.counter(id, sid)
	if err != nil {
		return 0, err
	}
	b, err := tx.kv.Get(key)
	if err != nil || b == nil {
		return 0, err
	}
	v, err := kv.DecodeCounter(b)
	if err != nil {
		return 0, inconsistent(err, "counter #%d of %s", sid, id)
	}
	return v, nil
}

func (tx *Tx) WriteCounter(id oid.ID, sid uint64, value int64) error {
	key, err := tx.counter(id, sid)
	if err != nil {
		return err
	}
	if value == 0 {
		return tx.kv.Remove(key)
	}
	return tx.kv.Put(key, kv.EncodeCounter(value))
}

// AdjustCounter adds delta without reading the current value.
func (tx *Tx) AdjustCounter(id oid.ID, sid uint64, delta int64) error {
	key, err := tx.counter(id, sid)
	if err != nil {
		return err
	}
	return tx.kv.Adjust(key, delta)
}
