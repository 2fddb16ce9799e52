package navigable

import (
	"iter"

	"github.com/drpcorg/kladov/encodings"
	"github.com/drpcorg/kladov/keys"
)

type Entry[K, V any] struct {
	Key   K
	Value V
}

// Map pairs a prefix-mode key set with values built on demand from the
// bytes of each key (prefix and encoded key).
type Map[K, V any] struct {
	keys  *Set[K]
	value func(keyBytes []byte, k K) V
}

func NewMap[K, V any](keySet *Set[K], value func(keyBytes []byte, k K) V) *Map[K, V] {
	return &Map[K, V]{keys: keySet, value: value}
}

func (m *Map[K, V]) Keys() *Set[K] { return m.keys }

func (m *Map[K, V]) with(s *Set[K]) *Map[K, V] {
	return &Map[K, V]{keys: s, value: m.value}
}

func (m *Map[K, V]) WithKeyBounds(b keys.Bounds[K]) *Map[K, V] {
	return m.with(m.keys.WithBounds(b))
}

func (m *Map[K, V]) WithKeyFilter(f keys.KeyFilter) *Map[K, V] {
	return m.with(m.keys.WithFilter(f))
}

func (m *Map[K, V]) Reversed() *Map[K, V] {
	return m.with(m.keys.Reversed())
}

// Get returns the value for k when k is present.
func (m *Map[K, V]) Get(k K) (V, bool, error) {
	var zero V
	ok, err := m.keys.Contains(k)
	if err != nil || !ok {
		return zero, false, err
	}
	b, err := encodings.Encode(m.keys.enc, k)
	if err != nil {
		return zero, false, err
	}
	return m.value(keys.Concat(m.keys.prefix, b), k), true, nil
}

func (m *Map[K, V]) All() iter.Seq2[Entry[K, V], error] {
	return func(yield func(Entry[K, V], error) bool) {
		it := m.keys.Iterator()
		defer it.Close()
		for it.Next() {
			k := it.Value()
			if !yield(Entry[K, V]{Key: k, Value: m.value(it.Bytes(), k)}, nil) {
				return
			}
		}
		if err := it.Err(); err != nil {
			yield(Entry[K, V]{}, err)
		}
	}
}

func (m *Map[K, V]) Entries() ([]Entry[K, V], error) {
	var out []Entry[K, V]
	for e, err := range m.All() {
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *Map[K, V]) Len() (int, error) { return m.keys.Len() }

func (m *Map[K, V]) FirstEntry() (Entry[K, V], bool, error) {
	it := m.keys.Iterator()
	defer it.Close()
	if it.Next() {
		k := it.Value()
		return Entry[K, V]{Key: k, Value: m.value(it.Bytes(), k)}, true, nil
	}
	return Entry[K, V]{}, false, it.Err()
}

func (m *Map[K, V]) LastEntry() (Entry[K, V], bool, error) {
	return m.Reversed().FirstEntry()
}
