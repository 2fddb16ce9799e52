package keys

import (
	"bytes"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestNextAndPrefixEnd(t *testing.T) {
	assert.Equal(t, []byte{1, 2, 0}, Next([]byte{1, 2}))
	assert.Equal(t, []byte{0}, Next(nil))

	assert.Equal(t, []byte{1, 3}, PrefixEnd([]byte{1, 2}))
	assert.Equal(t, []byte{2}, PrefixEnd([]byte{1, 0xff, 0xff}))
	assert.Nil(t, PrefixEnd([]byte{0xff, 0xff}))
	assert.Nil(t, PrefixEnd(nil))
}

func TestPrefixEndProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)
	properties.Property("every extension of a prefix sorts before its end", prop.ForAll(
		func(prefix, suffix []byte) bool {
			end := PrefixEnd(prefix)
			key := Concat(prefix, suffix)
			return end == nil || bytes.Compare(key, end) < 0
		},
		gen.SliceOf(gen.UInt8()), gen.SliceOf(gen.UInt8()),
	))
	properties.TestingRun(t)
}

func TestUvarint(t *testing.T) {
	assert.Equal(t, []byte{0x88}, Uvarint(0))
	assert.Equal(t, []byte{0xf5}, Uvarint(109))
	assert.Equal(t, []byte{0xf6, 110}, Uvarint(110))
	assert.Equal(t, []byte{0xf7, 0x01, 0x00}, Uvarint(256))
	assert.Equal(t, 9, len(Uvarint(^uint64(0))))

	r := NewReader([]byte{0xf6, 0x05})
	_, err := r.ReadUvarint()
	assert.ErrorIs(t, err, ErrInvalid, "non canonical single byte")
	assert.Equal(t, 0, r.Offset())

	r = NewReader([]byte{0xf7, 0x01})
	_, err = r.ReadUvarint()
	assert.ErrorIs(t, err, ErrTruncated)

	r = NewReader([]byte{0x10})
	_, err = r.ReadUvarint()
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestUvarintOrderProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)
	properties.Property("uvarint preserves order and round trips", prop.ForAll(
		func(a, b uint64) bool {
			ea, eb := Uvarint(a), Uvarint(b)
			if len(ea) != UvarintLen(a) {
				return false
			}
			va, err := NewReader(ea).ReadUvarint()
			if err != nil || va != a {
				return false
			}
			switch {
			case a < b:
				return bytes.Compare(ea, eb) < 0
			case a > b:
				return bytes.Compare(ea, eb) > 0
			}
			return bytes.Equal(ea, eb)
		},
		gen.UInt64(), gen.UInt64(),
	))
	properties.TestingRun(t)
}

func TestKeyRangesNormalize(t *testing.T) {
	rs := NewKeyRanges(
		KeyRange{Min: []byte{5}, Max: []byte{7}},
		KeyRange{Min: []byte{1}, Max: []byte{3}},
		KeyRange{Min: []byte{3}, Max: []byte{4}},
		KeyRange{Min: []byte{9}, Max: []byte{9}},
	)
	assert.Equal(t, []KeyRange{
		{Min: []byte{1}, Max: []byte{4}},
		{Min: []byte{5}, Max: []byte{7}},
	}, rs.Ranges())

	assert.True(t, rs.Contains([]byte{1}))
	assert.True(t, rs.Contains([]byte{3, 9}))
	assert.False(t, rs.Contains([]byte{4}))
	assert.False(t, rs.Contains([]byte{7}))

	next, ok := rs.SeekHigher([]byte{4})
	assert.True(t, ok)
	assert.Equal(t, []byte{5}, next)
	_, ok = rs.SeekHigher([]byte{7})
	assert.False(t, ok)

	prev, ok := rs.SeekLower([]byte{5})
	assert.True(t, ok)
	assert.Equal(t, []byte{4}, prev)
	prev, ok = rs.SeekLower(nil)
	assert.True(t, ok)
	assert.Equal(t, []byte{7}, prev)
	_, ok = rs.SeekLower([]byte{1})
	assert.False(t, ok)
}

func TestKeyRangesAlgebra(t *testing.T) {
	a := NewKeyRanges(KeyRange{Min: []byte{1}, Max: []byte{5}}, KeyRange{Min: []byte{8}})
	b := NewKeyRanges(KeyRange{Min: []byte{3}, Max: []byte{9}})

	assert.Equal(t, []KeyRange{
		{Min: []byte{3}, Max: []byte{5}},
		{Min: []byte{8}, Max: []byte{9}},
	}, a.Intersect(b).Ranges())

	assert.Equal(t, []KeyRange{{Min: []byte{1}}}, a.Union(b).Ranges())

	assert.Equal(t, []KeyRange{
		{Min: []byte{}, Max: []byte{1}},
		{Min: []byte{5}, Max: []byte{8}},
	}, a.Inverse().Ranges())

	assert.True(t, FullRanges().IsFull())
	assert.True(t, EmptyRanges().Inverse().IsFull())
	assert.True(t, FullRanges().Inverse().IsEmpty())

	p := NewKeyRanges(KeyRange{Min: []byte{2}, Max: []byte{3}}).Prefixed([]byte{0x90})
	assert.Equal(t, []KeyRange{{Min: []byte{0x90, 2}, Max: []byte{0x90, 3}}}, p.Ranges())
}

func TestIntersectFilters(t *testing.T) {
	a := NewKeyRanges(KeyRange{Min: []byte{1}, Max: []byte{5}})
	b := NewKeyRanges(KeyRange{Min: []byte{3}, Max: []byte{9}})

	assert.Nil(t, Intersect(nil, FullRanges()))
	assert.Equal(t, a, Intersect(a, nil))

	f := Intersect(a, b)
	rs, ok := f.(KeyRanges)
	assert.True(t, ok, "ranges intersect exactly")
	assert.Equal(t, []KeyRange{{Min: []byte{3}, Max: []byte{5}}}, rs.Ranges())

	odd := oddFilter{}
	g := Intersect(a, odd)
	assert.True(t, g.Contains([]byte{3}))
	assert.False(t, g.Contains([]byte{2}))
	assert.False(t, g.Contains([]byte{7}))
	next, ok := g.SeekHigher([]byte{2})
	assert.True(t, ok)
	assert.Equal(t, []byte{3}, next)
	_, ok = g.SeekHigher([]byte{5})
	assert.False(t, ok)
	prev, ok := g.SeekLower(nil)
	assert.True(t, ok)
	assert.Equal(t, []byte{5}, prev)
}

func TestEncodedRange(t *testing.T) {
	r := EncodedRange([]byte{3}, Inclusive, []byte{5}, Inclusive)
	assert.Equal(t, KeyRange{Min: []byte{3}, Max: []byte{6}}, r)

	r = EncodedRange([]byte{3}, Exclusive, []byte{5}, Exclusive)
	assert.Equal(t, KeyRange{Min: []byte{4}, Max: []byte{5}}, r)

	r = EncodedRange(nil, Unbounded, nil, Unbounded)
	assert.True(t, r.IsFull())

	r = EncodedRange([]byte{0xff}, Exclusive, nil, Unbounded)
	assert.True(t, r.IsEmpty())
}

// oddFilter accepts single-byte keys with an odd value.
type oddFilter struct{}

func (oddFilter) Contains(key []byte) bool { return len(key) == 1 && key[0]%2 == 1 }

func (oddFilter) SeekHigher(key []byte) ([]byte, bool) {
	if len(key) == 0 {
		return []byte{1}, true
	}
	if len(key) == 1 && key[0]%2 == 1 {
		return key, true
	}
	v := key[0] + 1
	if v%2 == 0 {
		v++
	}
	if v < key[0] {
		return nil, false
	}
	return []byte{v}, true
}

func (oddFilter) SeekLower(key []byte) ([]byte, bool) {
	if key == nil {
		return []byte{0xff, 0}, true
	}
	if len(key) == 0 {
		return nil, false
	}
	return key, true
}

// residueFilter accepts single-byte keys equal to r modulo 3, plus meet.
type residueFilter struct{ r, meet byte }

func (f residueFilter) Contains(key []byte) bool {
	return len(key) == 1 && (key[0]%3 == f.r || key[0] == f.meet)
}

func (f residueFilter) SeekHigher(key []byte) ([]byte, bool) {
	start := 0
	if len(key) > 0 {
		start = int(key[0])
		if len(key) > 1 {
			start++
		}
	}
	for b := start; b <= 0xff; b++ {
		if f.Contains([]byte{byte(b)}) {
			if len(key) == 1 && int(key[0]) == b {
				return key, true
			}
			return []byte{byte(b)}, true
		}
	}
	return nil, false
}

func (f residueFilter) SeekLower(key []byte) ([]byte, bool) {
	limit := 0x100
	if key != nil {
		if len(key) == 0 {
			return nil, false
		}
		limit = int(key[0])
		if len(key) > 1 {
			limit++
		}
	}
	for b := limit - 1; b >= 0; b-- {
		if f.Contains([]byte{byte(b)}) {
			return Next([]byte{byte(b)}), true
		}
	}
	return nil, false
}

func TestIntersectLongLeapfrog(t *testing.T) {
	// the two filters only meet at 250 and each seek advances a few bytes,
	// so one call runs out of rounds before getting there
	f := Intersect(residueFilter{r: 0, meet: 250}, residueFilter{r: 1, meet: 250})
	key := []byte{0}
	next, ok := f.SeekHigher(key)
	assert.True(t, ok)
	assert.Positive(t, bytes.Compare(next, key))
	assert.LessOrEqual(t, bytes.Compare(next, []byte{250}), 0)
	assert.False(t, f.Contains(next))

	// seeking again from the returned bound converges without skipping 250
	for i := 0; i < 8 && !bytes.Equal(next, key); i++ {
		key = next
		next, ok = f.SeekHigher(key)
		assert.True(t, ok)
		assert.LessOrEqual(t, bytes.Compare(next, []byte{250}), 0)
	}
	assert.Equal(t, []byte{250}, next)
	assert.True(t, f.Contains(next))

	_, ok = f.SeekHigher([]byte{251})
	assert.False(t, ok)
}
