package keys

import "fmt"

type BoundType uint8

const (
	Unbounded BoundType = iota
	Inclusive
	Exclusive
)

func (t BoundType) String() string {
	switch t {
	case Unbounded:
		return "unbounded"
	case Inclusive:
		return "inclusive"
	case Exclusive:
		return "exclusive"
	}
	return fmt.Sprintf("BoundType(%d)", uint8(t))
}

// Bounds restricts a value range; the zero value is unbounded on both ends.
type Bounds[V any] struct {
	Lower     V
	LowerType BoundType
	Upper     V
	UpperType BoundType
}

func (b Bounds[V]) IsFull() bool {
	return b.LowerType == Unbounded && b.UpperType == Unbounded
}

func (b Bounds[V]) WithLower(v V, t BoundType) Bounds[V] {
	b.Lower, b.LowerType = v, t
	return b
}

func (b Bounds[V]) WithUpper(v V, t BoundType) Bounds[V] {
	b.Upper, b.UpperType = v, t
	return b
}

func AtLeast[V any](v V) Bounds[V] { return Bounds[V]{Lower: v, LowerType: Inclusive} }

func GreaterThan[V any](v V) Bounds[V] { return Bounds[V]{Lower: v, LowerType: Exclusive} }

func AtMost[V any](v V) Bounds[V] { return Bounds[V]{Upper: v, UpperType: Inclusive} }

func LessThan[V any](v V) Bounds[V] { return Bounds[V]{Upper: v, UpperType: Exclusive} }

// Between is the inclusive lower, exclusive upper range [lo, hi).
func Between[V any](lo, hi V) Bounds[V] {
	return Bounds[V]{Lower: lo, LowerType: Inclusive, Upper: hi, UpperType: Exclusive}
}

func Exactly[V any](v V) Bounds[V] {
	return Bounds[V]{Lower: v, LowerType: Inclusive, Upper: v, UpperType: Inclusive}
}

// EncodedRange turns bounds whose endpoints are already encoded into the
// matching byte range over single encoded values.
func EncodedRange(lower []byte, lt BoundType, upper []byte, ut BoundType) KeyRange {
	r := KeyRange{Min: []byte{}}
	switch lt {
	case Inclusive:
		r.Min = Clone(lower)
	case Exclusive:
		if r.Min = PrefixEnd(lower); r.Min == nil {
			return KeyRange{Min: []byte{}, Max: []byte{}}
		}
	}
	switch ut {
	case Inclusive:
		r.Max = PrefixEnd(upper)
	case Exclusive:
		r.Max = Clone(upper)
	}
	return r
}
