package utils

import "golang.org/x/exp/constraints"

// Heap is a binary min-heap. The zero value is empty and ready to use.
type Heap[T constraints.Ordered] struct {
	buf []T
}

func (h *Heap[T]) Len() int {
	return len(h.buf)
}

func (h *Heap[T]) Push(x T) {
	h.buf = append(h.buf, x)
	h.up(len(h.buf) - 1)
}

// Peek returns the minimum without removing it.
func (h *Heap[T]) Peek() T {
	return h.buf[0]
}

// Pop removes and returns the minimum. Panics when empty.
func (h *Heap[T]) Pop() T {
	top := h.buf[0]
	last := len(h.buf) - 1
	h.buf[0] = h.buf[last]
	h.buf = h.buf[:last]
	h.down(0)
	return top
}

func (h *Heap[T]) up(j int) {
	for j > 0 {
		i := (j - 1) / 2
		if !(h.buf[j] < h.buf[i]) {
			return
		}
		h.buf[i], h.buf[j] = h.buf[j], h.buf[i]
		j = i
	}
}

func (h *Heap[T]) down(i int) {
	n := len(h.buf)
	for {
		j := 2*i + 1
		if j >= n {
			return
		}
		if r := j + 1; r < n && h.buf[r] < h.buf[j] {
			j = r
		}
		if !(h.buf[j] < h.buf[i]) {
			return
		}
		h.buf[i], h.buf[j] = h.buf[j], h.buf[i]
		i = j
	}
}
