package kladov

import (
	"bytes"

	"github.com/drpcorg/kladov/encodings"
	"github.com/drpcorg/kladov/keys"
	"github.com/drpcorg/kladov/kv"
	"github.com/drpcorg/kladov/navigable"
	"github.com/drpcorg/kladov/oid"
	"github.com/drpcorg/kladov/schema"
)

// collection is the common part of the list, set and map handles. Every
// operation re-checks that the transaction is open and the object alive.
type collection struct {
	tx     *Tx
	id     oid.ID
	f      *schema.Field
	prefix []byte
}

func (tx *Tx) collection(id oid.ID, sid uint64, kind schema.FieldKind) (collection, error) {
	_, f, err := tx.field(id, sid, kind)
	if err != nil {
		return collection{}, err
	}
	return collection{tx: tx, id: id, f: f, prefix: fieldKey(id, sid)}, nil
}

func (c collection) live() error {
	_, err := c.tx.object(c.id)
	return err
}

func (c collection) Field() *schema.Field { return c.f }

func (c collection) Len() (int, error) {
	if err := c.live(); err != nil {
		return 0, err
	}
	return kv.Count(c.tx.kv, c.prefix, keys.PrefixEnd(c.prefix))
}

// Clear drops every element together with its index entries.
func (c collection) Clear() error {
	if err := c.live(); err != nil {
		return err
	}
	for _, sub := range c.f.Sub {
		ix := c.tx.subIndex(sub)
		if ix == nil {
			continue
		}
		entries, err := c.tx.indexEntries(c.id, ix)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if err := c.tx.removeEntry(ix.StorageID, e); err != nil {
				return err
			}
		}
	}
	return c.tx.kv.RemoveRange(c.prefix, keys.PrefixEnd(c.prefix))
}

// putElement stores one element and adds its index entries.
func (c collection) putElement(sub, value []byte) error {
	for _, s := range c.f.Sub {
		if ix := c.tx.subIndex(s); ix != nil {
			if err := c.tx.putEntry(ix.StorageID, subEntry(ix, c.id, sub, value)); err != nil {
				return err
			}
		}
	}
	return c.tx.kv.Put(keys.Concat(c.prefix, sub), value)
}

// removeElement drops one stored element and its index entries.
func (c collection) removeElement(sub, value []byte) error {
	for _, s := range c.f.Sub {
		if ix := c.tx.subIndex(s); ix != nil {
			if err := c.tx.removeEntry(ix.StorageID, subEntry(ix, c.id, sub, value)); err != nil {
				return err
			}
		}
	}
	return c.tx.kv.Remove(keys.Concat(c.prefix, sub))
}

// List is a handle on a list field of one object. Elements are keyed by
// position; removing an element shifts the ones after it.
type List struct{ collection }

func (tx *Tx) List(id oid.ID, sid uint64) (*List, error) {
	c, err := tx.collection(id, sid, schema.List)
	if err != nil {
		return nil, err
	}
	return &List{c}, nil
}

func (l *List) rangeError(i, n uint64) error {
	return invalidValue("index %d out of range for %s of length %d", i, l.f, n)
}

func (l *List) length() (uint64, error) {
	k, _, err := kv.Last(l.tx.kv, l.prefix, keys.PrefixEnd(l.prefix))
	if err != nil || k == nil {
		return 0, err
	}
	i, err := encodings.Decode(encodings.Uint64, k[len(l.prefix):])
	if err != nil {
		return 0, inconsistent(err, "position in %s of %s", l.f, l.id)
	}
	return i + 1, nil
}

func (l *List) raw(i uint64) ([]byte, error) {
	if err := l.live(); err != nil {
		return nil, err
	}
	b, err := l.tx.kv.Get(keys.Concat(l.prefix, listPos(i)))
	if err != nil {
		return nil, err
	}
	if b == nil {
		n, err := l.length()
		if err != nil {
			return nil, err
		}
		return nil, l.rangeError(i, n)
	}
	return b, nil
}

func (l *List) Get(i uint64) (any, error) {
	b, err := l.raw(i)
	if err != nil {
		return nil, err
	}
	return decodeValue(l.f.Element().Encoding, b, l.id, l.f)
}

func (l *List) Set(i uint64, value any) error {
	ob, err := l.raw(i)
	if err != nil {
		return err
	}
	nb, err := l.tx.encodeValue(l.f.Element(), value)
	if err != nil {
		return err
	}
	return l.replace(i, ob, nb)
}

func (l *List) replace(i uint64, ob, nb []byte) error {
	if bytes.Equal(ob, nb) {
		return nil
	}
	if err := l.removeElement(listPos(i), ob); err != nil {
		return err
	}
	return l.putElement(listPos(i), nb)
}

func (l *List) Append(value any) error {
	if err := l.live(); err != nil {
		return err
	}
	nb, err := l.tx.encodeValue(l.f.Element(), value)
	if err != nil {
		return err
	}
	n, err := l.length()
	if err != nil {
		return err
	}
	return l.putElement(listPos(n), nb)
}

// RemoveAt drops element i and moves every later element, with its index
// entries, one position down.
func (l *List) RemoveAt(i uint64) error {
	ob, err := l.raw(i)
	if err != nil {
		return err
	}
	if err := l.removeElement(listPos(i), ob); err != nil {
		return err
	}
	n, err := l.length()
	if err != nil {
		return err
	}
	for j := i + 1; j < n; j++ {
		b, err := l.tx.kv.Get(keys.Concat(l.prefix, listPos(j)))
		if err != nil {
			return err
		}
		if err := l.removeElement(listPos(j), b); err != nil {
			return err
		}
		if err := l.putElement(listPos(j-1), b); err != nil {
			return err
		}
	}
	return nil
}

func (l *List) Values() ([]any, error) {
	if err := l.live(); err != nil {
		return nil, err
	}
	enc := l.f.Element().Encoding
	var out []any
	err := l.tx.walkContent(l.id, l.f, func(_, value []byte) error {
		v, err := decodeValue(enc, value, l.id, l.f)
		out = append(out, v)
		return err
	})
	return out, err
}

// Set is a handle on a set field of one object. Elements live in the keys,
// ordered by their encoding.
type Set struct{ collection }

func (tx *Tx) Set(id oid.ID, sid uint64) (*Set, error) {
	c, err := tx.collection(id, sid, schema.Set)
	if err != nil {
		return nil, err
	}
	return &Set{c}, nil
}

func (s *Set) Add(value any) (bool, error) {
	if err := s.live(); err != nil {
		return false, err
	}
	eb, err := s.tx.encodeValue(s.f.Element(), value)
	if err != nil {
		return false, err
	}
	cur, err := s.tx.kv.Get(keys.Concat(s.prefix, eb))
	if err != nil || cur != nil {
		return false, err
	}
	return true, s.putElement(eb, []byte{})
}

func (s *Set) element(value any) ([]byte, error) {
	v, err := s.f.Element().Encoding.Validate(value)
	if err != nil {
		return nil, invalidValue("%s: %v", s.f, err)
	}
	return encodings.EncodeAny(s.f.Element().Encoding, v)
}

func (s *Set) Remove(value any) (bool, error) {
	ok, err := s.Contains(value)
	if err != nil || !ok {
		return false, err
	}
	eb, err := s.element(value)
	if err != nil {
		return false, err
	}
	return true, s.removeElement(eb, []byte{})
}

func (s *Set) Contains(value any) (bool, error) {
	if err := s.live(); err != nil {
		return false, err
	}
	eb, err := s.element(value)
	if err != nil {
		return false, err
	}
	cur, err := s.tx.kv.Get(keys.Concat(s.prefix, eb))
	return cur != nil, err
}

// Elements is a navigable view of the set, valid while the transaction is
// open.
func (s *Set) Elements() *navigable.Set[any] {
	return navigable.New(s.tx.kv, s.prefix, encodings.Untyped(s.f.Element().Encoding), false)
}

func (s *Set) Values() ([]any, error) {
	if err := s.live(); err != nil {
		return nil, err
	}
	return s.Elements().Slice()
}

// Map is a handle on a map field of one object.
type Map struct{ collection }

func (tx *Tx) Map(id oid.ID, sid uint64) (*Map, error) {
	c, err := tx.collection(id, sid, schema.Map)
	if err != nil {
		return nil, err
	}
	return &Map{c}, nil
}

func (m *Map) key(k any) ([]byte, error) {
	v, err := m.f.MapKey().Encoding.Validate(k)
	if err != nil {
		return nil, invalidValue("%s key: %v", m.f, err)
	}
	return encodings.EncodeAny(m.f.MapKey().Encoding, v)
}

// Put sets the value of k, replacing any previous one.
func (m *Map) Put(k, value any) error {
	if err := m.live(); err != nil {
		return err
	}
	kb, err := m.tx.encodeValue(m.f.MapKey(), k)
	if err != nil {
		return err
	}
	vb, err := m.tx.encodeValue(m.f.MapValue(), value)
	if err != nil {
		return err
	}
	return m.put(kb, vb)
}

func (m *Map) put(kb, vb []byte) error {
	cur, err := m.tx.kv.Get(keys.Concat(m.prefix, kb))
	if err != nil {
		return err
	}
	if cur != nil {
		if bytes.Equal(cur, vb) {
			return nil
		}
		if err := m.removeElement(kb, cur); err != nil {
			return err
		}
	}
	return m.putElement(kb, vb)
}

func (m *Map) Get(k any) (any, bool, error) {
	if err := m.live(); err != nil {
		return nil, false, err
	}
	kb, err := m.key(k)
	if err != nil {
		return nil, false, err
	}
	b, err := m.tx.kv.Get(keys.Concat(m.prefix, kb))
	if err != nil || b == nil {
		return nil, false, err
	}
	v, err := decodeValue(m.f.MapValue().Encoding, b, m.id, m.f)
	return v, err == nil, err
}

func (m *Map) ContainsKey(k any) (bool, error) {
	_, ok, err := m.Get(k)
	return ok, err
}

func (m *Map) Remove(k any) (bool, error) {
	if err := m.live(); err != nil {
		return false, err
	}
	kb, err := m.key(k)
	if err != nil {
		return false, err
	}
	return m.remove(kb)
}

func (m *Map) remove(kb []byte) (bool, error) {
	cur, err := m.tx.kv.Get(keys.Concat(m.prefix, kb))
	if err != nil || cur == nil {
		return false, err
	}
	return true, m.removeElement(kb, cur)
}

// Keys is a navigable view of the map keys, valid while the transaction
// is open.
func (m *Map) Keys() *navigable.Set[any] {
	return navigable.New(m.tx.kv, m.prefix, encodings.Untyped(m.f.MapKey().Encoding), false)
}

func (m *Map) Entries() ([]navigable.Entry[any, any], error) {
	if err := m.live(); err != nil {
		return nil, err
	}
	kenc, venc := m.f.MapKey().Encoding, m.f.MapValue().Encoding
	var out []navigable.Entry[any, any]
	err := m.tx.walkContent(m.id, m.f, func(sub, value []byte) error {
		k, err := decodeValue(kenc, sub, m.id, m.f)
		if err != nil {
			return err
		}
		v, err := decodeValue(venc, value, m.id, m.f)
		if err != nil {
			return err
		}
		out = append(out, navigable.Entry[any, any]{Key: k, Value: v})
		return nil
	})
	return out, err
}
