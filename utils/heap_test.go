package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeapPopsInOrder(t *testing.T) {
	h := Heap[uint64]{}
	for i := uint64(0); i < 64; i++ {
		h.Push(i ^ 17)
	}
	assert.Equal(t, uint64(0), h.Peek())
	for i := uint64(0); i < 64; i++ {
		assert.Equal(t, i, h.Pop())
	}
	assert.Equal(t, 0, h.Len())
}

func TestHeapDuplicates(t *testing.T) {
	h := Heap[string]{}
	for _, s := range []string{"b", "a", "c", "a", "b"} {
		h.Push(s)
	}
	var out []string
	for h.Len() > 0 {
		out = append(out, h.Pop())
	}
	assert.Equal(t, []string{"a", "a", "b", "b", "c"}, out)
}
