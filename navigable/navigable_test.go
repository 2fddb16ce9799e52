package navigable

import (
	"slices"
	"testing"

	"github.com/drpcorg/kladov/encodings"
	"github.com/drpcorg/kladov/keys"
	"github.com/drpcorg/kladov/kv/memkv"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPrefix = []byte{0x90}

func strKey(s string, suffix ...byte) []byte {
	return keys.Concat(testPrefix, encodings.MustEncode(encodings.String, s), suffix)
}

func u64Key(v uint64, suffix ...byte) []byte {
	return keys.Concat(testPrefix, encodings.MustEncode(encodings.Uint64, v), suffix)
}

func stringSet(t *testing.T) *Set[string] {
	store := memkv.New()
	for _, s := range []string{"a", "b", "c"} {
		require.NoError(t, store.Put(strKey(s), nil))
	}
	require.NoError(t, store.Put(strKey("b", 0x05), nil))
	require.NoError(t, store.Put([]byte{0x91, 0x00}, nil))
	return New(store, testPrefix, encodings.String, false)
}

func TestSetNavigation(t *testing.T) {
	set := stringSet(t)

	all, err := set.Slice()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, all)

	rev, err := set.Reversed().Slice()
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, rev)

	first, ok, err := set.First()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a", first)
	last, ok, err := set.Last()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "c", last)

	c, ok, err := set.Ceiling("bb")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "c", c)
	f, ok, err := set.Floor("bb")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "b", f)
	_, ok, err = set.Ceiling("d")
	require.NoError(t, err)
	assert.False(t, ok)

	has, err := set.Contains("b")
	require.NoError(t, err)
	assert.True(t, has)
	has, err = set.Contains("bb")
	require.NoError(t, err)
	assert.False(t, has)

	n, err := set.Len()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	between, err := set.WithBounds(keys.Between("a", "c")).Slice()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, between)
	after, err := set.WithBounds(keys.GreaterThan("a")).Reversed().Slice()
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, after)
}

func TestSetAllStopsEarly(t *testing.T) {
	set := stringSet(t)
	var seen []string
	for s, err := range set.All() {
		require.NoError(t, err)
		seen = append(seen, s)
		if s == "b" {
			break
		}
	}
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestPrefixModeSkipsSharedElements(t *testing.T) {
	store := memkv.New()
	require.NoError(t, store.Put(u64Key(1), nil))
	require.NoError(t, store.Put(u64Key(1, 0x10), nil))
	require.NoError(t, store.Put(u64Key(1, 0x20), nil))
	require.NoError(t, store.Put(u64Key(2, 0x10), nil))
	require.NoError(t, store.Put(u64Key(7, 0x30, 0x40), nil))
	set := New(store, testPrefix, encodings.Uint64, true)

	vals, err := set.Slice()
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 7}, vals)
	vals, err = set.Reversed().Slice()
	require.NoError(t, err)
	assert.Equal(t, []uint64{7, 2, 1}, vals)
	n, err := set.Len()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSetFilterSeeks(t *testing.T) {
	store := memkv.New()
	for v := uint64(0); v < 50; v++ {
		require.NoError(t, store.Put(u64Key(v), nil))
	}
	filter := keys.NewKeyRanges(
		keys.ForPrefix(u64Key(3)),
		keys.ForPrefix(u64Key(20)),
		keys.KeyRange{Min: u64Key(40), Max: u64Key(43)},
	)
	set := New(store, testPrefix, encodings.Uint64, false).WithFilter(filter)
	vals, err := set.Slice()
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 20, 40, 41, 42}, vals)
	vals, err = set.Reversed().Slice()
	require.NoError(t, err)
	assert.Equal(t, []uint64{42, 41, 40, 20, 3}, vals)
}

func TestMap(t *testing.T) {
	store := memkv.New()
	put := func(k uint64, v string) {
		require.NoError(t, store.Put(keys.Concat(u64Key(k), encodings.MustEncode(encodings.String, v)), nil))
	}
	put(1, "x")
	put(1, "y")
	put(3, "z")
	m := NewMap(New(store, testPrefix, encodings.Uint64, true), func(keyBytes []byte, _ uint64) *Set[string] {
		return New(store, keyBytes, encodings.String, false)
	})

	entries, err := m.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, uint64(1), entries[0].Key)
	xs, err := entries[0].Value.Slice()
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, xs)

	v, ok, err := m.Get(3)
	require.NoError(t, err)
	require.True(t, ok)
	zs, err := v.Slice()
	require.NoError(t, err)
	assert.Equal(t, []string{"z"}, zs)
	_, ok, err = m.Get(2)
	require.NoError(t, err)
	assert.False(t, ok)

	last, ok, err := m.LastEntry()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(3), last.Key)
}

func TestBoundsMatchSortedSlice(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())
	properties.Property("bounded walks agree with a sorted slice", prop.ForAll(
		func(vals []uint64, lo, hi uint64) bool {
			store := memkv.New()
			for _, v := range vals {
				if store.Put(u64Key(v), nil) != nil {
					return false
				}
			}
			slices.Sort(vals)
			vals = slices.Compact(vals)
			var want []uint64
			for _, v := range vals {
				if v >= lo && v < hi {
					want = append(want, v)
				}
			}
			set := New(store, testPrefix, encodings.Uint64, false).WithBounds(keys.Between(lo, hi))
			fwd, err := set.Slice()
			if err != nil || !slices.Equal(fwd, want) {
				return false
			}
			rev, err := set.Reversed().Slice()
			slices.Reverse(want)
			return err == nil && slices.Equal(rev, want)
		},
		gen.SliceOf(gen.UInt64Range(0, 300)),
		gen.UInt64Range(0, 300),
		gen.UInt64Range(0, 300),
	))
	properties.TestingRun(t)
}
