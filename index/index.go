package index

import (
	"github.com/drpcorg/kladov/encodings"
	"github.com/drpcorg/kladov/keys"
	"github.com/drpcorg/kladov/kv"
	"github.com/drpcorg/kladov/navigable"
	"github.com/drpcorg/kladov/tuple"
)

func boundsFilter[V any](enc encodings.Of[V], b keys.Bounds[V]) keys.KeyFilter {
	if b.IsFull() {
		return nil
	}
	var lo, hi []byte
	var err error
	if b.LowerType != keys.Unbounded {
		if lo, err = encodings.Encode(enc, b.Lower); err != nil {
			return keys.EmptyRanges()
		}
	}
	if b.UpperType != keys.Unbounded {
		if hi, err = encodings.Encode(enc, b.Upper); err != nil {
			return keys.EmptyRanges()
		}
	}
	return keys.NewKeyRanges(keys.EncodedRange(lo, b.LowerType, hi, b.UpperType))
}

// keySet is the prefix-mode set of the first n components. It filters on
// every component, so a key shows up only when some entry under it passes
// the filters on the later components and the target.
func keySet[K any](r kv.Reader, v view, enc encodings.Of[K]) *navigable.Set[K] {
	return navigable.New(r, v.prefix, enc, true).WithFilter(v.keyFilter())
}

// targetSet is the set of targets under the concrete key bytes kb, which
// start with the view prefix.
func targetSet[T any](r kv.Reader, v view, n int, kb []byte, target encodings.Of[T]) *navigable.Set[T] {
	sub := v.dropFirst(n, kb[len(v.prefix):])
	return navigable.New(r, kb, target, v.prefixMode).WithFilter(sub.keyFilter())
}

func keyFor[T any](v view, n int, target encodings.Of[T], t T, values []any) []byte {
	if len(values) != n {
		panic("index: KeyFor needs every value component")
	}
	return keys.Concat(v.encodeValues(n, values), encodings.MustEncode(target, t))
}

// Index1 is a typed handle on a one-value index bound to a store.
type Index1[V, T any] struct {
	r      kv.Reader
	view   View1
	value  encodings.Of[V]
	target encodings.Of[T]
}

func NewIndex1[V, T any](r kv.Reader, v View1) *Index1[V, T] {
	return newIndex1(r, v, encodings.MustAs[V](v.Encoding(0)), encodings.MustAs[T](v.Encoding(1)))
}

func newIndex1[V, T any](r kv.Reader, v View1, value encodings.Of[V], target encodings.Of[T]) *Index1[V, T] {
	return &Index1[V, T]{r: r, view: v, value: value, target: target}
}

func (x *Index1[V, T]) View() View1 { return x.view }

func (x *Index1[V, T]) WithFilter(i int, f keys.KeyFilter) *Index1[V, T] {
	return newIndex1(x.r, x.view.Filter(i, f), x.value, x.target)
}

func (x *Index1[V, T]) WithValueBounds(b keys.Bounds[V]) *Index1[V, T] {
	return x.WithFilter(0, boundsFilter(x.value, b))
}

func (x *Index1[V, T]) WithTargetBounds(b keys.Bounds[T]) *Index1[V, T] {
	return x.WithFilter(1, boundsFilter(x.target, b))
}

func (x *Index1[V, T]) AsSet() *navigable.Set[tuple.Tuple2[V, T]] {
	enc := encodings.NewTuple2(x.value, x.target)
	return navigable.New(x.r, x.view.prefix, enc, x.view.prefixMode).WithFilter(x.view.keyFilter())
}

func (x *Index1[V, T]) AsMap() *navigable.Map[V, *navigable.Set[T]] {
	return navigable.NewMap(keySet(x.r, x.view.view, x.value), func(kb []byte, _ V) *navigable.Set[T] {
		return targetSet(x.r, x.view.view, 1, kb, x.target)
	})
}

// Key is the prefix of all entries for the given leading values.
func (x *Index1[V, T]) Key(values ...any) []byte { return x.view.encodeValues(1, values) }

// KeyFor is the exact key of one entry.
func (x *Index1[V, T]) KeyFor(target T, values ...any) []byte {
	return keyFor(x.view.view, 1, x.target, target, values)
}

// Index2 is a typed handle on a two-value index bound to a store.
type Index2[V1, V2, T any] struct {
	r      kv.Reader
	view   View2
	v1     encodings.Of[V1]
	v2     encodings.Of[V2]
	target encodings.Of[T]
}

func NewIndex2[V1, V2, T any](r kv.Reader, v View2) *Index2[V1, V2, T] {
	return newIndex2(r, v,
		encodings.MustAs[V1](v.Encoding(0)),
		encodings.MustAs[V2](v.Encoding(1)),
		encodings.MustAs[T](v.Encoding(2)))
}

func newIndex2[V1, V2, T any](r kv.Reader, v View2, v1 encodings.Of[V1], v2 encodings.Of[V2], target encodings.Of[T]) *Index2[V1, V2, T] {
	return &Index2[V1, V2, T]{r: r, view: v, v1: v1, v2: v2, target: target}
}

func (x *Index2[V1, V2, T]) View() View2 { return x.view }

func (x *Index2[V1, V2, T]) WithFilter(i int, f keys.KeyFilter) *Index2[V1, V2, T] {
	return newIndex2(x.r, x.view.Filter(i, f), x.v1, x.v2, x.target)
}

func (x *Index2[V1, V2, T]) WithValue1Bounds(b keys.Bounds[V1]) *Index2[V1, V2, T] {
	return x.WithFilter(0, boundsFilter(x.v1, b))
}

func (x *Index2[V1, V2, T]) WithValue2Bounds(b keys.Bounds[V2]) *Index2[V1, V2, T] {
	return x.WithFilter(1, boundsFilter(x.v2, b))
}

func (x *Index2[V1, V2, T]) WithTargetBounds(b keys.Bounds[T]) *Index2[V1, V2, T] {
	return x.WithFilter(2, boundsFilter(x.target, b))
}

func (x *Index2[V1, V2, T]) AsSet() *navigable.Set[tuple.Tuple3[V1, V2, T]] {
	enc := encodings.NewTuple3(x.v1, x.v2, x.target)
	return navigable.New(x.r, x.view.prefix, enc, x.view.prefixMode).WithFilter(x.view.keyFilter())
}

func (x *Index2[V1, V2, T]) AsMap() *navigable.Map[tuple.Tuple2[V1, V2], *navigable.Set[T]] {
	enc := encodings.NewTuple2(x.v1, x.v2)
	return navigable.NewMap(keySet(x.r, x.view.view, enc), func(kb []byte, _ tuple.Tuple2[V1, V2]) *navigable.Set[T] {
		return targetSet(x.r, x.view.view, 2, kb, x.target)
	})
}

func (x *Index2[V1, V2, T]) AsMapOfIndex1() *navigable.Map[V1, *Index1[V2, T]] {
	return navigable.NewMap(keySet(x.r, x.view.view, x.v1), func(kb []byte, _ V1) *Index1[V2, T] {
		return newIndex1(x.r, x.view.AsView1WithPrefix(kb[len(x.view.prefix):]), x.v2, x.target)
	})
}

func (x *Index2[V1, V2, T]) AsIndex1() *Index1[V1, V2] {
	return newIndex1(x.r, x.view.AsView1(), x.v1, x.v2)
}

func (x *Index2[V1, V2, T]) Key(values ...any) []byte { return x.view.encodeValues(2, values) }

func (x *Index2[V1, V2, T]) KeyFor(target T, values ...any) []byte {
	return keyFor(x.view.view, 2, x.target, target, values)
}

// Index3 is a typed handle on a three-value index bound to a store.
type Index3[V1, V2, V3, T any] struct {
	r      kv.Reader
	view   View3
	v1     encodings.Of[V1]
	v2     encodings.Of[V2]
	v3     encodings.Of[V3]
	target encodings.Of[T]
}

func NewIndex3[V1, V2, V3, T any](r kv.Reader, v View3) *Index3[V1, V2, V3, T] {
	return newIndex3(r, v,
		encodings.MustAs[V1](v.Encoding(0)),
		encodings.MustAs[V2](v.Encoding(1)),
		encodings.MustAs[V3](v.Encoding(2)),
		encodings.MustAs[T](v.Encoding(3)))
}

func newIndex3[V1, V2, V3, T any](r kv.Reader, v View3, v1 encodings.Of[V1], v2 encodings.Of[V2], v3 encodings.Of[V3], target encodings.Of[T]) *Index3[V1, V2, V3, T] {
	return &Index3[V1, V2, V3, T]{r: r, view: v, v1: v1, v2: v2, v3: v3, target: target}
}

func (x *Index3[V1, V2, V3, T]) View() View3 { return x.view }

func (x *Index3[V1, V2, V3, T]) WithFilter(i int, f keys.KeyFilter) *Index3[V1, V2, V3, T] {
	return newIndex3(x.r, x.view.Filter(i, f), x.v1, x.v2, x.v3, x.target)
}

func (x *Index3[V1, V2, V3, T]) WithValue1Bounds(b keys.Bounds[V1]) *Index3[V1, V2, V3, T] {
	return x.WithFilter(0, boundsFilter(x.v1, b))
}

func (x *Index3[V1, V2, V3, T]) WithValue2Bounds(b keys.Bounds[V2]) *Index3[V1, V2, V3, T] {
	return x.WithFilter(1, boundsFilter(x.v2, b))
}

func (x *Index3[V1, V2, V3, T]) WithValue3Bounds(b keys.Bounds[V3]) *Index3[V1, V2, V3, T] {
	return x.WithFilter(2, boundsFilter(x.v3, b))
}

func (x *Index3[V1, V2, V3, T]) WithTargetBounds(b keys.Bounds[T]) *Index3[V1, V2, V3, T] {
	return x.WithFilter(3, boundsFilter(x.target, b))
}

func (x *Index3[V1, V2, V3, T]) AsSet() *navigable.Set[tuple.Tuple4[V1, V2, V3, T]] {
	enc := encodings.NewTuple4(x.v1, x.v2, x.v3, x.target)
	return navigable.New(x.r, x.view.prefix, enc, x.view.prefixMode).WithFilter(x.view.keyFilter())
}

func (x *Index3[V1, V2, V3, T]) AsMap() *navigable.Map[tuple.Tuple3[V1, V2, V3], *navigable.Set[T]] {
	enc := encodings.NewTuple3(x.v1, x.v2, x.v3)
	return navigable.NewMap(keySet(x.r, x.view.view, enc), func(kb []byte, _ tuple.Tuple3[V1, V2, V3]) *navigable.Set[T] {
		return targetSet(x.r, x.view.view, 3, kb, x.target)
	})
}

func (x *Index3[V1, V2, V3, T]) AsMapOfIndex2() *navigable.Map[V1, *Index2[V2, V3, T]] {
	return navigable.NewMap(keySet(x.r, x.view.view, x.v1), func(kb []byte, _ V1) *Index2[V2, V3, T] {
		return newIndex2(x.r, x.view.AsView2WithPrefix(kb[len(x.view.prefix):]), x.v2, x.v3, x.target)
	})
}

func (x *Index3[V1, V2, V3, T]) AsMapOfIndex1() *navigable.Map[tuple.Tuple2[V1, V2], *Index1[V3, T]] {
	enc := encodings.NewTuple2(x.v1, x.v2)
	return navigable.NewMap(keySet(x.r, x.view.view, enc), func(kb []byte, _ tuple.Tuple2[V1, V2]) *Index1[V3, T] {
		return newIndex1(x.r, View1{x.view.dropFirst(2, kb[len(x.view.prefix):])}, x.v3, x.target)
	})
}

func (x *Index3[V1, V2, V3, T]) AsIndex2() *Index2[V1, V2, V3] {
	return newIndex2(x.r, x.view.AsView2(), x.v1, x.v2, x.v3)
}

func (x *Index3[V1, V2, V3, T]) Key(values ...any) []byte { return x.view.encodeValues(3, values) }

func (x *Index3[V1, V2, V3, T]) KeyFor(target T, values ...any) []byte {
	return keyFor(x.view.view, 3, x.target, target, values)
}

// Index4 is a typed handle on a four-value index bound to a store.
type Index4[V1, V2, V3, V4, T any] struct {
	r      kv.Reader
	view   View4
	v1     encodings.Of[V1]
	v2     encodings.Of[V2]
	v3     encodings.Of[V3]
	v4     encodings.Of[V4]
	target encodings.Of[T]
}

func NewIndex4[V1, V2, V3, V4, T any](r kv.Reader, v View4) *Index4[V1, V2, V3, V4, T] {
	return newIndex4(r, v,
		encodings.MustAs[V1](v.Encoding(0)),
		encodings.MustAs[V2](v.Encoding(1)),
		encodings.MustAs[V3](v.Encoding(2)),
		encodings.MustAs[V4](v.Encoding(3)),
		encodings.MustAs[T](v.Encoding(4)))
}

func newIndex4[V1, V2, V3, V4, T any](r kv.Reader, v View4, v1 encodings.Of[V1], v2 encodings.Of[V2], v3 encodings.Of[V3], v4 encodings.Of[V4], target encodings.Of[T]) *Index4[V1, V2, V3, V4, T] {
	return &Index4[V1, V2, V3, V4, T]{r: r, view: v, v1: v1, v2: v2, v3: v3, v4: v4, target: target}
}

func (x *Index4[V1, V2, V3, V4, T]) View() View4 { return x.view }

func (x *Index4[V1, V2, V3, V4, T]) WithFilter(i int, f keys.KeyFilter) *Index4[V1, V2, V3, V4, T] {
	return newIndex4(x.r, x.view.Filter(i, f), x.v1, x.v2, x.v3, x.v4, x.target)
}

func (x *Index4[V1, V2, V3, V4, T]) WithValue1Bounds(b keys.Bounds[V1]) *Index4[V1, V2, V3, V4, T] {
	return x.WithFilter(0, boundsFilter(x.v1, b))
}

func (x *Index4[V1, V2, V3, V4, T]) WithValue2Bounds(b keys.Bounds[V2]) *Index4[V1, V2, V3, V4, T] {
	return x.WithFilter(1, boundsFilter(x.v2, b))
}

func (x *Index4[V1, V2, V3, V4, T]) WithValue3Bounds(b keys.Bounds[V3]) *Index4[V1, V2, V3, V4, T] {
	return x.WithFilter(2, boundsFilter(x.v3, b))
}

func (x *Index4[V1, V2, V3, V4, T]) WithValue4Bounds(b keys.Bounds[V4]) *Index4[V1, V2, V3, V4, T] {
	return x.WithFilter(3, boundsFilter(x.v4, b))
}

func (x *Index4[V1, V2, V3, V4, T]) WithTargetBounds(b keys.Bounds[T]) *Index4[V1, V2, V3, V4, T] {
	return x.WithFilter(4, boundsFilter(x.target, b))
}

func (x *Index4[V1, V2, V3, V4, T]) AsSet() *navigable.Set[tuple.Tuple5[V1, V2, V3, V4, T]] {
	enc := encodings.NewTuple5(x.v1, x.v2, x.v3, x.v4, x.target)
	return navigable.New(x.r, x.view.prefix, enc, x.view.prefixMode).WithFilter(x.view.keyFilter())
}

func (x *Index4[V1, V2, V3, V4, T]) AsMap() *navigable.Map[tuple.Tuple4[V1, V2, V3, V4], *navigable.Set[T]] {
	enc := encodings.NewTuple4(x.v1, x.v2, x.v3, x.v4)
	return navigable.NewMap(keySet(x.r, x.view.view, enc), func(kb []byte, _ tuple.Tuple4[V1, V2, V3, V4]) *navigable.Set[T] {
		return targetSet(x.r, x.view.view, 4, kb, x.target)
	})
}

func (x *Index4[V1, V2, V3, V4, T]) AsMapOfIndex3() *navigable.Map[V1, *Index3[V2, V3, V4, T]] {
	return navigable.NewMap(keySet(x.r, x.view.view, x.v1), func(kb []byte, _ V1) *Index3[V2, V3, V4, T] {
		return newIndex3(x.r, x.view.AsView3WithPrefix(kb[len(x.view.prefix):]), x.v2, x.v3, x.v4, x.target)
	})
}

func (x *Index4[V1, V2, V3, V4, T]) AsMapOfIndex2() *navigable.Map[tuple.Tuple2[V1, V2], *Index2[V3, V4, T]] {
	enc := encodings.NewTuple2(x.v1, x.v2)
	return navigable.NewMap(keySet(x.r, x.view.view, enc), func(kb []byte, _ tuple.Tuple2[V1, V2]) *Index2[V3, V4, T] {
		return newIndex2(x.r, View2{x.view.dropFirst(2, kb[len(x.view.prefix):])}, x.v3, x.v4, x.target)
	})
}

func (x *Index4[V1, V2, V3, V4, T]) AsMapOfIndex1() *navigable.Map[tuple.Tuple3[V1, V2, V3], *Index1[V4, T]] {
	enc := encodings.NewTuple3(x.v1, x.v2, x.v3)
	return navigable.NewMap(keySet(x.r, x.view.view, enc), func(kb []byte, _ tuple.Tuple3[V1, V2, V3]) *Index1[V4, T] {
		return newIndex1(x.r, View1{x.view.dropFirst(3, kb[len(x.view.prefix):])}, x.v4, x.target)
	})
}

func (x *Index4[V1, V2, V3, V4, T]) AsIndex3() *Index3[V1, V2, V3, V4] {
	return newIndex3(x.r, x.view.AsView3(), x.v1, x.v2, x.v3, x.v4)
}

func (x *Index4[V1, V2, V3, V4, T]) Key(values ...any) []byte { return x.view.encodeValues(4, values) }

func (x *Index4[V1, V2, V3, V4, T]) KeyFor(target T, values ...any) []byte {
	return keyFor(x.view.view, 4, x.target, target, values)
}
