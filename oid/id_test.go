package oid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewID(t *testing.T) {
	a := New(7)
	b := New(7)
	assert.NotEqual(t, a, b)
	assert.Equal(t, uint64(7), a.TypeSID())
	assert.True(t, a.Valid())
	assert.Equal(t, byte(0x88+7), a[0])

	big := New(70000)
	assert.Equal(t, uint64(70000), big.TypeSID())
	assert.True(t, TypeRange(70000).Contains(big[:]))
	assert.False(t, TypeRange(7).Contains(big[:]))
	assert.True(t, TypeRange(7).Contains(a[:]))

	assert.Panics(t, func() { New(0) })
	assert.Panics(t, func() { New(MaxTypeSID + 1) })
}

func TestParseID(t *testing.T) {
	a := New(12)
	parsed, err := Parse(a.String())
	assert.NoError(t, err)
	assert.Equal(t, a, parsed)

	_, err = Parse("zz")
	assert.ErrorIs(t, err, ErrBadID)
	_, err = Parse("0000000000000000")
	assert.ErrorIs(t, err, ErrBadID)
	_, err = FromBytes([]byte{0x90})
	assert.ErrorIs(t, err, ErrBadID)

	assert.False(t, Nil.Valid())
	assert.Equal(t, "null", Nil.String())
	assert.Equal(t, a, FromUint64(a.Uint64()))
}
