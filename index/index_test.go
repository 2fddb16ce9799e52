package index

import (
	"slices"
	"testing"

	"github.com/drpcorg/kladov/encodings"
	"github.com/drpcorg/kladov/keys"
	"github.com/drpcorg/kladov/kv/memkv"
	"github.com/drpcorg/kladov/oid"
	"github.com/drpcorg/kladov/tuple"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	idxPrefix = []byte{0x95}
	u64       = encodings.Erase(encodings.Uint64)
	str       = encodings.Erase(encodings.String)
	objID     = encodings.Erase(encodings.ObjID)
)

func enc[T any](e encodings.Of[T], v T) []byte { return encodings.MustEncode(e, v) }

type compositeFixture struct {
	store            *memkv.Store
	obj1, obj2, obj3 oid.ID
	view             View2
}

// (1,"a")->obj1, (1,"b")->obj2, (2,"a")->obj3
func newCompositeFixture(t *testing.T) compositeFixture {
	f := compositeFixture{
		store: memkv.New(),
		obj1:  oid.New(7),
		obj2:  oid.New(7),
		obj3:  oid.New(7),
		view:  NewView2(idxPrefix, false, u64, str, objID),
	}
	put := func(n uint64, s string, id oid.ID) {
		key := keys.Concat(idxPrefix, enc(encodings.Uint64, n), enc(encodings.String, s), id.Bytes())
		require.NoError(t, f.store.Put(key, nil))
	}
	put(1, "a", f.obj1)
	put(1, "b", f.obj2)
	put(2, "a", f.obj3)
	return f
}

func setOf[E any](t *testing.T, s interface{ Slice() ([]E, error) }) []E {
	out, err := s.Slice()
	require.NoError(t, err)
	return out
}

func TestCompositeDrillDown(t *testing.T) {
	f := newCompositeFixture(t)
	idx := NewIndex2[uint64, string, oid.ID](f.store, f.view)

	byFirst, ok, err := idx.AsMapOfIndex1().Get(1)
	require.NoError(t, err)
	require.True(t, ok)
	entries, err := byFirst.AsMap().Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Key)
	assert.Equal(t, []oid.ID{f.obj1}, setOf[oid.ID](t, entries[0].Value))
	assert.Equal(t, "b", entries[1].Key)
	assert.Equal(t, []oid.ID{f.obj2}, setOf[oid.ID](t, entries[1].Value))

	pairs, err := idx.AsMap().Keys().Slice()
	require.NoError(t, err)
	assert.Equal(t, []tuple.Tuple2[uint64, string]{tuple.New2[uint64, string](1, "a"), tuple.New2[uint64, string](1, "b"), tuple.New2[uint64, string](2, "a")}, pairs)

	onlyA := setOf[tuple.Tuple3[uint64, string, oid.ID]](t, idx.WithValue2Bounds(keys.Exactly("a")).AsSet())
	assert.Equal(t, []tuple.Tuple3[uint64, string, oid.ID]{
		tuple.New3(uint64(1), "a", f.obj1),
		tuple.New3(uint64(2), "a", f.obj3),
	}, onlyA)

	firsts := idx.AsIndex1().AsMap()
	values, ok, err := firsts.Get(1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, setOf[string](t, values))
	values, ok, err = firsts.Get(2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, setOf[string](t, values))
	firstKeys, err := firsts.Keys().Slice()
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, firstKeys)

	reversed, err := idx.WithValue1Bounds(keys.Exactly(uint64(1))).AsSet().Reversed().Slice()
	require.NoError(t, err)
	require.Len(t, reversed, 2)
	assert.Equal(t, "b", reversed[0].V2)
}

func TestMapKeysFollowLaterFilters(t *testing.T) {
	f := newCompositeFixture(t)
	idx := NewIndex2[uint64, string, oid.ID](f.store, f.view).WithTargetBounds(keys.Exactly(f.obj3))

	assert.Len(t, setOf[tuple.Tuple3[uint64, string, oid.ID]](t, idx.AsSet()), 1)

	entries, err := idx.AsMap().Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, tuple.New2[uint64, string](2, "a"), entries[0].Key)
	assert.Equal(t, []oid.ID{f.obj3}, setOf[oid.ID](t, entries[0].Value))

	pairs, err := idx.AsMap().Reversed().Keys().Slice()
	require.NoError(t, err)
	assert.Equal(t, []tuple.Tuple2[uint64, string]{tuple.New2[uint64, string](2, "a")}, pairs)

	byFirst := idx.AsMapOfIndex1()
	firsts, err := byFirst.Keys().Slice()
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, firsts)
	_, ok, err := byFirst.Get(1)
	require.NoError(t, err)
	assert.False(t, ok)

	// a filter on the second value narrows the outer keys as well
	onlyB := NewIndex2[uint64, string, oid.ID](f.store, f.view).WithValue2Bounds(keys.Exactly("b"))
	firsts, err = onlyB.AsMapOfIndex1().Keys().Slice()
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, firsts)
	inner, ok, err := onlyB.AsMapOfIndex1().Get(1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"b"}, setOf[string](t, inner.AsMap().Keys()))
}

func TestTupleSlicingRoundTrip(t *testing.T) {
	f := newCompositeFixture(t)
	flat := setOf[tuple.Tuple3[uint64, string, oid.ID]](t, NewIndex2[uint64, string, oid.ID](f.store, f.view).AsSet())

	collapsed := NewIndex1[[]any, oid.ID](f.store, f.view.AsTuple2View1())
	tuples := setOf[tuple.Tuple2[[]any, oid.ID]](t, collapsed.AsSet())
	require.Len(t, tuples, len(flat))
	for i, tt := range tuples {
		assert.Equal(t, []any{flat[i].V1, flat[i].V2}, tt.V1)
		assert.Equal(t, flat[i].V3, tt.V2)
	}

	// filters set before collapsing survive it
	filtered := f.view.Filter(1, keys.NewKeyRanges(keys.ForPrefix(enc(encodings.String, "b"))))
	narrow := setOf[tuple.Tuple2[[]any, oid.ID]](t, NewIndex1[[]any, oid.ID](f.store, filtered.AsTuple2View1()).AsSet())
	require.Len(t, narrow, 1)
	assert.Equal(t, []any{uint64(1), "b"}, narrow[0].V1)
	assert.Equal(t, f.obj2, narrow[0].V2)
}

func TestHigherArityViews(t *testing.T) {
	store := memkv.New()
	view := NewView3(idxPrefix, false, u64, u64, str, objID)
	ids := []oid.ID{oid.New(3), oid.New(3), oid.New(3)}
	rows := []tuple.Tuple3[uint64, uint64, string]{
		tuple.New3[uint64, uint64, string](1, 1, "x"),
		tuple.New3[uint64, uint64, string](1, 2, "y"),
		tuple.New3[uint64, uint64, string](2, 1, "z"),
	}
	for i, r := range rows {
		key := keys.Concat(idxPrefix, enc(encodings.Uint64, r.V1), enc(encodings.Uint64, r.V2), enc(encodings.String, r.V3), ids[i].Bytes())
		require.NoError(t, store.Put(key, nil))
	}
	idx := NewIndex3[uint64, uint64, string, oid.ID](store, view)

	sub, ok, err := idx.AsMapOfIndex2().Get(1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, setOf[tuple.Tuple3[uint64, string, oid.ID]](t, sub.AsSet()), 2)

	leaf, ok, err := idx.AsMapOfIndex1().Get(tuple.New2[uint64, uint64](1, 2))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []tuple.Tuple2[string, oid.ID]{tuple.New2("y", ids[1])}, setOf[tuple.Tuple2[string, oid.ID]](t, leaf.AsSet()))

	heads := setOf[tuple.Tuple3[uint64, uint64, string]](t, idx.AsIndex2().AsSet())
	assert.Equal(t, rows, heads)

	assert.Equal(t, keys.Concat(idxPrefix, enc(encodings.Uint64, 2)), idx.Key(uint64(2)))
	assert.Equal(t,
		keys.Concat(idxPrefix, enc(encodings.Uint64, 2), enc(encodings.Uint64, 1), enc(encodings.String, "z"), ids[2].Bytes()),
		idx.KeyFor(ids[2], uint64(2), uint64(1), "z"))
	assert.Panics(t, func() { idx.Key(uint64(1), uint64(1), "x", "extra") })
	assert.Panics(t, func() { idx.KeyFor(ids[0], uint64(1)) })
}

func TestEncodingsFilterPrefixRejection(t *testing.T) {
	f := NewEncodingsFilter(idxPrefix, []encodings.Encoding{u64}, []keys.KeyFilter{nil})
	before := []byte{0x94, 0x99}
	after := []byte{0x96}

	assert.False(t, f.Contains(before))
	assert.False(t, f.Contains(after))
	assert.True(t, f.Contains(keys.Concat(idxPrefix, enc(encodings.Uint64, 3))))

	next, ok := f.SeekHigher(before)
	assert.True(t, ok)
	assert.Equal(t, idxPrefix, next)
	_, ok = f.SeekHigher(after)
	assert.False(t, ok)

	_, ok = f.SeekLower(before)
	assert.False(t, ok)
	prev, ok := f.SeekLower(after)
	assert.True(t, ok)
	assert.Equal(t, keys.PrefixEnd(idxPrefix), prev)
	prev, ok = f.SeekLower(nil)
	assert.True(t, ok)
	assert.Equal(t, keys.PrefixEnd(idxPrefix), prev)
}

func TestEncodingsFilterSeekHigher(t *testing.T) {
	first := keys.NewKeyRanges(keys.KeyRange{Min: enc(encodings.Uint64, 10), Max: enc(encodings.Uint64, 20)})
	second := keys.NewKeyRanges(keys.KeyRange{Min: enc(encodings.String, "m"), Max: enc(encodings.String, "p")})
	f := NewEncodingsFilter(idxPrefix, []encodings.Encoding{u64, str}, []keys.KeyFilter{first, second})
	key := func(n uint64, s string) []byte {
		return keys.Concat(idxPrefix, enc(encodings.Uint64, n), enc(encodings.String, s))
	}

	got, ok := f.SeekHigher(key(12, "n"))
	assert.True(t, ok)
	assert.Equal(t, key(12, "n"), got)

	got, ok = f.SeekHigher(key(5, "n"))
	assert.True(t, ok)
	assert.Equal(t, keys.Concat(idxPrefix, enc(encodings.Uint64, 10)), got)

	_, ok = f.SeekHigher(key(25, "n"))
	assert.False(t, ok, "first component exhausted")

	got, ok = f.SeekHigher(key(12, "z"))
	assert.True(t, ok)
	assert.Equal(t, keys.PrefixEnd(keys.Concat(idxPrefix, enc(encodings.Uint64, 12))), got)

	got, ok = f.SeekHigher(key(12, "a"))
	assert.True(t, ok)
	assert.Equal(t, keys.Concat(idxPrefix, enc(encodings.Uint64, 12), enc(encodings.String, "m")), got)

	truncated := keys.Concat(idxPrefix, enc(encodings.Uint64, 12), []byte("ab"))
	got, ok = f.SeekHigher(truncated)
	assert.True(t, ok)
	assert.Equal(t, keys.Next(truncated), got)

	malformed := keys.Concat(idxPrefix, []byte{0x10, 0x20})
	got, ok = f.SeekHigher(malformed)
	assert.True(t, ok)
	assert.Equal(t, keys.PrefixEnd(malformed), got)

	got, ok = f.SeekLower(key(25, "n"))
	assert.True(t, ok)
	assert.Equal(t, keys.Concat(idxPrefix, enc(encodings.Uint64, 20)), got)
	_, ok = f.SeekLower(key(5, "n"))
	assert.False(t, ok)
	got, ok = f.SeekLower(key(12, "a"))
	assert.True(t, ok)
	assert.Equal(t, keys.Concat(idxPrefix, enc(encodings.Uint64, 12)), got)
}

func TestFilterNarrowsMonotonically(t *testing.T) {
	f := newCompositeFixture(t)
	idx := NewIndex2[uint64, string, oid.ID](f.store, f.view)
	all := setOf[tuple.Tuple3[uint64, string, oid.ID]](t, idx.AsSet())
	one := setOf[tuple.Tuple3[uint64, string, oid.ID]](t, idx.WithValue1Bounds(keys.AtLeast(uint64(1))).AsSet())
	two := setOf[tuple.Tuple3[uint64, string, oid.ID]](t,
		idx.WithValue1Bounds(keys.AtLeast(uint64(1))).WithValue1Bounds(keys.AtLeast(uint64(2))).AsSet())
	assert.Len(t, all, 3)
	assert.Len(t, one, 3)
	assert.Len(t, two, 1)
	assert.Equal(t, f.obj3, two[0].V3)
}

// Every probe is checked against an explicit universe of keys: SeekHigher
// never skips a contained key and SeekLower never hides one.
func TestSeekConsistency(t *testing.T) {
	var universe [][]byte
	for a := uint64(0); a < 12; a++ {
		for b := uint64(0); b < 12; b++ {
			universe = append(universe, keys.Concat(idxPrefix, enc(encodings.Uint64, a), enc(encodings.Uint64, b)))
		}
	}
	rangeOf := func(lo, hi uint64) keys.KeyFilter {
		return keys.NewKeyRanges(keys.KeyRange{Min: enc(encodings.Uint64, lo), Max: enc(encodings.Uint64, hi)})
	}
	properties := gopter.NewProperties(gopter.DefaultTestParameters())
	properties.Property("seeks agree with Contains", prop.ForAll(
		func(lo1, w1, lo2, w2 uint64, probe int) bool {
			f := NewEncodingsFilter(idxPrefix, []encodings.Encoding{u64, u64},
				[]keys.KeyFilter{rangeOf(lo1, lo1+w1), rangeOf(lo2, lo2+w2)})
			k := universe[probe%len(universe)]
			high, hok := f.SeekHigher(k)
			if f.Contains(k) && (!hok || !slices.Equal(high, k)) {
				return false
			}
			low, lok := f.SeekLower(k)
			for _, u := range universe {
				if !f.Contains(u) {
					continue
				}
				if keys.Compare(u, k) >= 0 && (!hok || keys.Compare(high, u) > 0) {
					return false
				}
				if keys.Compare(u, k) < 0 && (!lok || (low != nil && keys.Compare(u, low) >= 0)) {
					return false
				}
			}
			return true
		},
		gen.UInt64Range(0, 12), gen.UInt64Range(0, 6),
		gen.UInt64Range(0, 12), gen.UInt64Range(0, 6),
		gen.IntRange(0, 1000),
	))
	properties.TestingRun(t)
}
