package kladov

import (
	"fmt"
	"slices"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/drpcorg/kladov/encodings"
	"github.com/drpcorg/kladov/index"
	"github.com/drpcorg/kladov/keys"
	"github.com/drpcorg/kladov/kladov_errors"
	"github.com/drpcorg/kladov/oid"
	"github.com/drpcorg/kladov/schema"
	"github.com/drpcorg/kladov/utils"
)

// reference is one index entry pointing at an object being deleted.
type reference struct {
	ix       *schema.IndexInfo
	target   oid.ID
	referrer oid.ID
	// list position or map key for list element and map value indexes
	sub []byte
}

func (r reference) action() schema.DeleteAction { return r.ix.Indexed().OnDelete }

// referrers finds the objects whose ix entries point at target.
func (tx *Tx) referrers(ix *schema.IndexInfo, target oid.ID) ([]reference, error) {
	var out []reference
	prefix := sidPrefix(ix.StorageID)
	enc := ix.Indexed().Encoding
	switch ix.Kind {
	case schema.IndexSimple, schema.IndexSetElement, schema.IndexMapKey:
		x := index.NewIndex1[oid.ID, oid.ID](tx.kv, index.NewView1(prefix, false, enc, objEnc))
		objs, ok, err := x.AsMap().Get(target)
		if err != nil || !ok {
			return nil, err
		}
		for obj, err := range objs.All() {
			if err != nil {
				return nil, err
			}
			out = append(out, reference{ix: ix, target: target, referrer: obj})
		}
	case schema.IndexListElement, schema.IndexMapValue:
		trailing := ix.Trailing()
		x := index.NewIndex2[oid.ID, oid.ID, any](tx.kv, index.NewView2(prefix, false, enc, objEnc, trailing))
		byObj, ok, err := x.AsMapOfIndex1().Get(target)
		if err != nil || !ok {
			return nil, err
		}
		for e, err := range byObj.AsSet().All() {
			if err != nil {
				return nil, err
			}
			sub, err := encodings.EncodeAny(trailing, e.V2)
			if err != nil {
				return nil, inconsistent(err, "%s entry of %s", ix, e.V1)
			}
			out = append(out, reference{ix: ix, target: target, referrer: e.V1, sub: sub})
		}
	default:
		panic(fmt.Sprintf("kladov: %s holds no references", ix))
	}
	return out, nil
}

// forwardTargets lists the objects id refers to through fields marked for
// forward delete.
func (tx *Tx) forwardTargets(id oid.ID, t *schema.ObjType) ([]oid.ID, error) {
	var out []oid.ID
	collect := func(f *schema.Field, b []byte) error {
		if f.Kind != schema.Reference || !f.ForwardDelete {
			return nil
		}
		v, err := decodeValue(f.Encoding, b, id, f)
		if err != nil {
			return err
		}
		out = append(out, v.(oid.ID))
		return nil
	}
	for _, f := range t.Fields {
		switch f.Kind {
		case schema.Reference:
			b, err := tx.rawValue(id, f)
			if err != nil {
				return nil, err
			}
			if err := collect(f, b); err != nil {
				return nil, err
			}
		case schema.List:
			err := tx.walkContent(id, f, func(_, value []byte) error { return collect(f.Element(), value) })
			if err != nil {
				return nil, err
			}
		case schema.Set:
			err := tx.walkContent(id, f, func(sub, _ []byte) error { return collect(f.Element(), sub) })
			if err != nil {
				return nil, err
			}
		case schema.Map:
			err := tx.walkContent(id, f, func(sub, value []byte) error {
				if err := collect(f.MapKey(), sub); err != nil {
					return err
				}
				return collect(f.MapValue(), value)
			})
			if err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// deletion is the closure of objects removed by one Delete call together
// with the references that survive it.
type deletion struct {
	doomed *roaring64.Bitmap
	refs   []reference
}

func (tx *Tx) planDelete(root oid.ID) (*deletion, error) {
	d := &deletion{doomed: roaring64.New()}
	var work utils.Heap[uint64]
	d.doomed.Add(root.Uint64())
	work.Push(root.Uint64())

	enqueue := func(next oid.ID, why string, from oid.ID) error {
		if next.IsNil() || d.doomed.Contains(next.Uint64()) {
			return nil
		}
		ok, err := tx.exists(next)
		if err != nil || !ok {
			return err
		}
		d.doomed.Add(next.Uint64())
		work.Push(next.Uint64())
		tx.log.Debug("delete cascade", "action", why, "object", next, "from", from)
		return nil
	}

	for work.Len() > 0 {
		id := oid.FromUint64(work.Pop())
		for _, ix := range tx.schema.Referrers() {
			if ix.Indexed().OnDelete == schema.Ignore {
				continue
			}
			refs, err := tx.referrers(ix, id)
			if err != nil {
				return nil, err
			}
			for _, r := range refs {
				if r.action() == schema.Delete {
					if err := enqueue(r.referrer, "delete", id); err != nil {
						return nil, err
					}
					continue
				}
				d.refs = append(d.refs, r)
			}
		}
		t, err := tx.schema.TypeOf(id)
		if err != nil {
			return nil, err
		}
		targets, err := tx.forwardTargets(id, t)
		if err != nil {
			return nil, err
		}
		for _, target := range targets {
			if err := enqueue(target, "forward", id); err != nil {
				return nil, err
			}
		}
	}

	// references from objects deleted anyway need no treatment
	d.refs = slices.DeleteFunc(d.refs, func(r reference) bool {
		return d.doomed.Contains(r.referrer.Uint64())
	})
	return d, nil
}

// Delete removes the object and applies the delete action of every
// reference to it. Objects referring through Delete fields and objects
// referred to through forward delete fields go too. Nothing is written
// when a surviving object refers to a removed one through an Exception
// field. Delete reports false when the object does not exist.
func (tx *Tx) Delete(id oid.ID) (bool, error) {
	if err := tx.check(); err != nil {
		return false, err
	}
	if _, err := tx.schema.TypeOf(id); err != nil {
		return false, err
	}
	ok, err := tx.exists(id)
	if err != nil || !ok {
		return false, err
	}
	d, err := tx.planDelete(id)
	if err != nil {
		return false, err
	}
	for _, r := range d.refs {
		if r.action() == schema.Exception {
			return false, &kladov_errors.ReferencedObjectError{
				Object:   r.target,
				Referrer: r.referrer,
				Field:    r.ix.Indexed().StorageID,
			}
		}
	}
	if err := tx.unreference(d.refs); err != nil {
		return false, err
	}
	it := d.doomed.Iterator()
	for it.HasNext() {
		if err := tx.removeObject(oid.FromUint64(it.Next())); err != nil {
			return false, err
		}
		DeleteCascade.WithLabelValues("delete").Inc()
	}
	return true, nil
}

// unreference applies Nullify and Remove to the surviving referrers.
// List elements are removed from the highest position down so that the
// positions still to be removed stay valid. Map values go before map keys,
// so an entry whose key and value both die is settled by the key action
// alone.
func (tx *Tx) unreference(refs []reference) error {
	slices.SortStableFunc(refs, func(a, b reference) int {
		if c := a.referrer.Compare(b.referrer); c != 0 {
			return c
		}
		if av, bv := a.ix.Kind == schema.IndexMapValue, b.ix.Kind == schema.IndexMapValue; av != bv {
			if av {
				return -1
			}
			return 1
		}
		if a.ix.StorageID != b.ix.StorageID {
			return cmpUint(a.ix.StorageID, b.ix.StorageID)
		}
		return -keys.Compare(a.sub, b.sub)
	})
	for _, r := range refs {
		a := r.action()
		tx.log.Debug("delete cascade", "action", a, "object", r.target, "referrer", r.referrer, "index", r.ix.StorageID)
		DeleteCascade.WithLabelValues(a.String()).Inc()
		if err := tx.unreferenceOne(r, a); err != nil {
			return err
		}
	}
	return nil
}

func cmpUint(a, b uint64) int {
	if a < b {
		return -1
	}
	return 1
}

func (tx *Tx) unreferenceOne(r reference, a schema.DeleteAction) error {
	ix := r.ix
	null := encodings.DefaultBytes(ix.Indexed().Encoding)
	tb := keys.Clone(r.target[:])
	if ix.Kind == schema.IndexSimple {
		if a != schema.Nullify {
			panic(fmt.Sprintf("kladov: %s on simple reference %s", a, ix.Field))
		}
		return tx.writeSimple(ix.Type, r.referrer, ix.Field, null)
	}
	c := collection{tx: tx, id: r.referrer, f: ix.Field, prefix: fieldKey(r.referrer, ix.Field.StorageID)}
	switch ix.Kind {
	case schema.IndexSetElement:
		if err := c.removeElement(tb, []byte{}); err != nil {
			return err
		}
		if a == schema.Nullify {
			return c.putElement(null, []byte{})
		}
		return nil
	case schema.IndexListElement:
		l := &List{c}
		pos, err := encodings.Decode(encodings.Uint64, r.sub)
		if err != nil {
			return inconsistent(err, "%s entry of %s", ix, r.referrer)
		}
		if a == schema.Nullify {
			return l.replace(pos, tb, null)
		}
		return l.RemoveAt(pos)
	case schema.IndexMapKey:
		m := &Map{c}
		vb, err := tx.kv.Get(keys.Concat(c.prefix, tb))
		if err != nil {
			return err
		}
		if _, err := m.remove(tb); err != nil {
			return err
		}
		if a == schema.Nullify && vb != nil {
			return m.put(null, vb)
		}
		return nil
	case schema.IndexMapValue:
		m := &Map{c}
		vb, err := tx.kv.Get(keys.Concat(c.prefix, r.sub))
		if err != nil || vb == nil {
			return err
		}
		if a == schema.Nullify {
			return m.put(r.sub, null)
		}
		_, err = m.remove(r.sub)
		return err
	}
	panic(fmt.Sprintf("kladov: unexpected index kind %s", ix.Kind))
}

// removeObject drops every index entry and content key of id.
func (tx *Tx) removeObject(id oid.ID) error {
	t, err := tx.schema.TypeOf(id)
	if err != nil {
		return err
	}
	for _, ix := range tx.schema.TypeIndexes(t) {
		entries, err := tx.indexEntries(id, ix)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if err := tx.removeEntry(ix.StorageID, e); err != nil {
				return err
			}
		}
	}
	tx.log.Debug("object deleted", "type", t.Name, "id", id)
	return tx.kv.RemoveRange(objectKey(id), objectEnd(id))
}
