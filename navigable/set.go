// Package navigable presents ranges of store keys as ordered, lazily read
// collections. Elements are decoded from the key bytes following a fixed
// prefix; every walk goes to the store, nothing is cached.
package navigable

import (
	"iter"

	"github.com/drpcorg/kladov/encodings"
	"github.com/drpcorg/kladov/keys"
	"github.com/drpcorg/kladov/kv"
)

// Set is an ordered set of the values encoded right after prefix.
//
// In prefix mode an element is only the leading part of a key and many keys
// may share it (an index without its target); otherwise the element must
// span the whole key remainder and keys with trailing bytes are skipped.
type Set[E any] struct {
	r          kv.Reader
	prefix     []byte
	prefixMode bool
	enc        encodings.Of[E]
	filter     keys.KeyFilter
	bounds     keys.KeyRange
	reversed   bool
}

func New[E any](r kv.Reader, prefix []byte, enc encodings.Of[E], prefixMode bool) *Set[E] {
	return &Set[E]{
		r:          r,
		prefix:     keys.Clone(prefix),
		prefixMode: prefixMode,
		enc:        enc,
		bounds:     prefixRange(prefix),
	}
}

func prefixRange(prefix []byte) keys.KeyRange {
	if len(prefix) == 0 {
		return keys.Full()
	}
	return keys.ForPrefix(prefix)
}

func (s *Set[E]) clone() *Set[E] {
	c := *s
	return &c
}

func (s *Set[E]) Prefix() []byte { return s.prefix }

func (s *Set[E]) PrefixMode() bool { return s.prefixMode }

func (s *Set[E]) Encoding() encodings.Of[E] { return s.enc }

func (s *Set[E]) KeyFilter() keys.KeyFilter { return s.filter }

func (s *Set[E]) IsReversed() bool { return s.reversed }

// WithFilter restricts the set to full keys accepted by f.
func (s *Set[E]) WithFilter(f keys.KeyFilter) *Set[E] {
	if keys.IsFull(f) {
		return s
	}
	c := s.clone()
	c.filter = keys.Intersect(s.filter, f)
	return c
}

// WithRange restricts the set to full keys inside r.
func (s *Set[E]) WithRange(r keys.KeyRange) *Set[E] {
	c := s.clone()
	c.bounds = s.bounds.Intersect(r)
	return c
}

// WithBounds restricts the set to elements within b. Bounds the encoding
// rejects leave an empty set.
func (s *Set[E]) WithBounds(b keys.Bounds[E]) *Set[E] {
	if b.IsFull() {
		return s
	}
	var lo, hi []byte
	var err error
	if b.LowerType != keys.Unbounded {
		if lo, err = encodings.Encode(s.enc, b.Lower); err != nil {
			return s.WithRange(keys.KeyRange{Min: []byte{}, Max: []byte{}})
		}
	}
	if b.UpperType != keys.Unbounded {
		if hi, err = encodings.Encode(s.enc, b.Upper); err != nil {
			return s.WithRange(keys.KeyRange{Min: []byte{}, Max: []byte{}})
		}
	}
	r := keys.EncodedRange(lo, b.LowerType, hi, b.UpperType)
	full := keys.KeyRange{Min: keys.Concat(s.prefix, r.Min), Max: keys.PrefixEnd(s.prefix)}
	if r.Max != nil {
		full.Max = keys.Concat(s.prefix, r.Max)
	}
	return s.WithRange(full)
}

// Reversed flips the iteration order.
func (s *Set[E]) Reversed() *Set[E] {
	c := s.clone()
	c.reversed = !s.reversed
	return c
}

func (s *Set[E]) Iterator() *Iterator[E] {
	return &Iterator[E]{s: s, lo: s.bounds.Min, hi: s.bounds.Max, done: s.bounds.IsEmpty()}
}

// All yields the elements in order. The cursor is closed on every exit; a
// read error is yielded once as the last pair.
func (s *Set[E]) All() iter.Seq2[E, error] {
	return func(yield func(E, error) bool) {
		it := s.Iterator()
		defer it.Close()
		for it.Next() {
			if !yield(it.Value(), nil) {
				return
			}
		}
		if err := it.Err(); err != nil {
			var zero E
			yield(zero, err)
		}
	}
}

func (s *Set[E]) Slice() ([]E, error) {
	var out []E
	for e, err := range s.All() {
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Set[E]) First() (E, bool, error) {
	it := s.Iterator()
	defer it.Close()
	if it.Next() {
		return it.Value(), true, nil
	}
	var zero E
	return zero, false, it.Err()
}

func (s *Set[E]) Last() (E, bool, error) {
	return s.Reversed().First()
}

// Ceiling is the least element >= e.
func (s *Set[E]) Ceiling(e E) (E, bool, error) {
	c := s.WithBounds(keys.AtLeast(e))
	c.reversed = false
	return c.First()
}

// Floor is the greatest element <= e.
func (s *Set[E]) Floor(e E) (E, bool, error) {
	c := s.WithBounds(keys.AtMost(e))
	c.reversed = true
	return c.First()
}

func (s *Set[E]) Contains(e E) (bool, error) {
	_, ok, err := s.WithBounds(keys.Exactly(e)).First()
	return ok, err
}

func (s *Set[E]) Len() (int, error) {
	it := s.Iterator()
	defer it.Close()
	n := 0
	for it.Next() {
		n++
	}
	return n, it.Err()
}

func (s *Set[E]) IsEmpty() (bool, error) {
	_, ok, err := s.First()
	return !ok, err
}

// Iterator walks a Set. It reopens the store range whenever the filter
// seeks past a gap or a prefix-mode element is done.
type Iterator[E any] struct {
	s      *Set[E]
	it     kv.Iterator
	lo, hi []byte
	cur    E
	key    []byte
	elem   []byte
	err    error
	done   bool
}

func (i *Iterator[E]) reopen(lo, hi []byte) {
	i.closeCursor()
	i.lo, i.hi = lo, hi
	if i.hi != nil && keys.Compare(i.lo, i.hi) >= 0 {
		i.done = true
	}
}

func (i *Iterator[E]) closeCursor() {
	if i.it == nil {
		return
	}
	if err := i.it.Close(); err != nil && i.err == nil {
		i.err = err
	}
	i.it = nil
}

func (i *Iterator[E]) Next() bool {
	s := i.s
	for !i.done && i.err == nil {
		if i.it == nil {
			it, err := s.r.GetRange(i.lo, i.hi, s.reversed)
			if err != nil {
				i.err = err
				break
			}
			i.it = it
		}
		if !i.it.Next() {
			i.err = i.it.Err()
			break
		}
		key := i.it.Key()
		if s.filter != nil && !s.filter.Contains(key) {
			if !i.seek(key) {
				break
			}
			continue
		}
		r := keys.NewReader(key)
		if err := r.Skip(len(s.prefix)); err != nil {
			continue
		}
		v, err := s.enc.Read(r)
		if err != nil || (!s.prefixMode && r.Remain() != 0) {
			continue
		}
		i.cur, i.key, i.elem = v, key, key[:r.Offset()]
		if s.prefixMode {
			// step over the other keys sharing this element
			if s.reversed {
				i.reopen(i.lo, i.elem)
			} else if end := keys.PrefixEnd(i.elem); end != nil {
				i.reopen(end, i.hi)
			} else {
				i.closeCursor()
				i.done = true
			}
		}
		return true
	}
	i.done = true
	i.closeCursor()
	return false
}

// seek moves past a key the filter rejected; false ends the walk.
func (i *Iterator[E]) seek(key []byte) bool {
	f := i.s.filter
	if !i.s.reversed {
		next, ok := f.SeekHigher(key)
		if !ok {
			return false
		}
		if keys.Compare(next, keys.Next(key)) <= 0 {
			return true
		}
		if i.hi != nil && keys.Compare(next, i.hi) >= 0 {
			return false
		}
		i.reopen(next, i.hi)
		return true
	}
	prev, ok := f.SeekLower(key)
	if !ok {
		return false
	}
	if prev == nil || keys.Compare(prev, key) >= 0 {
		return true
	}
	if keys.Compare(prev, i.lo) <= 0 {
		return false
	}
	i.reopen(i.lo, prev)
	return true
}

func (i *Iterator[E]) Value() E { return i.cur }

// Key is the full store key of the current element.
func (i *Iterator[E]) Key() []byte { return i.key }

// Bytes is the prefix followed by the encoded current element.
func (i *Iterator[E]) Bytes() []byte { return i.elem }

func (i *Iterator[E]) Err() error { return i.err }

func (i *Iterator[E]) Close() error {
	i.done = true
	i.closeCursor()
	return i.err
}
