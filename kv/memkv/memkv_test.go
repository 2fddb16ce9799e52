package memkv

import (
	"testing"

	"github.com/drpcorg/kladov/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, r kv.Reader, min, max []byte, reverse bool) []string {
	it, err := r.GetRange(min, max, reverse)
	require.NoError(t, err)
	defer it.Close()
	var out []string
	for it.Next() {
		out = append(out, string(it.Key()))
	}
	require.NoError(t, it.Err())
	return out
}

func TestStoreRanges(t *testing.T) {
	s := New()
	for _, k := range []string{"a", "b", "ba", "c", "d"} {
		require.NoError(t, s.Put([]byte(k), []byte("v"+k)))
	}

	assert.Equal(t, []string{"a", "b", "ba", "c", "d"}, collect(t, s, nil, nil, false))
	assert.Equal(t, []string{"b", "ba"}, collect(t, s, []byte("b"), []byte("c"), false))
	assert.Equal(t, []string{"ba", "b"}, collect(t, s, []byte("b"), []byte("c"), true))
	assert.Equal(t, []string{"d", "c", "ba", "b", "a"}, collect(t, s, nil, nil, true))
	assert.Equal(t, []string{"c", "ba"}, collect(t, s, []byte("b0"), []byte("d"), true))

	v, err := s.Get([]byte("ba"))
	assert.NoError(t, err)
	assert.Equal(t, []byte("vba"), v)
	v, err = s.Get([]byte("zz"))
	assert.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, s.RemoveRange([]byte("b"), []byte("c")))
	assert.Equal(t, []string{"a", "c", "d"}, collect(t, s, nil, nil, false))
	require.NoError(t, s.RemoveRange([]byte("c"), nil))
	assert.Equal(t, []string{"a"}, collect(t, s, nil, nil, false))
}

func TestIteratorSnapshot(t *testing.T) {
	s := New()
	require.NoError(t, s.Put([]byte("a"), nil))
	require.NoError(t, s.Put([]byte("b"), nil))
	it, err := s.GetRange(nil, nil, false)
	require.NoError(t, err)
	defer it.Close()

	require.NoError(t, s.Remove([]byte("b")))
	require.NoError(t, s.Put([]byte("c"), nil))
	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	assert.Equal(t, []string{"a", "b"}, keys)
}

func TestCounters(t *testing.T) {
	s := New()
	require.NoError(t, s.Adjust([]byte("n"), 5))
	require.NoError(t, s.Adjust([]byte("n"), -7))
	v, err := s.Get([]byte("n"))
	require.NoError(t, err)
	n, err := kv.DecodeCounter(v)
	assert.NoError(t, err)
	assert.Equal(t, int64(-2), n)

	require.NoError(t, s.Put([]byte("bad"), []byte{1}))
	assert.ErrorIs(t, s.Adjust([]byte("bad"), 1), kv.ErrBadCounter)
}

func TestTransactions(t *testing.T) {
	db := NewDB()
	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, tx.Put([]byte("k"), []byte("1")))
	require.NoError(t, tx.Commit())

	tx, err = db.Begin()
	require.NoError(t, err)
	require.NoError(t, tx.Put([]byte("k"), []byte("2")))
	v, err := tx.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), v)
	require.NoError(t, tx.Rollback())

	tx, err = db.Begin()
	require.NoError(t, err)
	v, err = tx.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v, "rolled back write is gone")
	require.NoError(t, tx.Rollback())

	sum, err := kv.Checksum(db.store, nil, nil)
	require.NoError(t, err)
	other := New()
	require.NoError(t, other.Put([]byte("k"), []byte("1")))
	sum2, err := kv.Checksum(other, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, sum, sum2)

	require.NoError(t, db.Close())
	_, err = db.Begin()
	assert.Error(t, err)
}
