package encodings

import (
	"cmp"
	"encoding/binary"
	"math"
	"strconv"

	"github.com/drpcorg/kladov/keys"
	"golang.org/x/exp/constraints"
)

type boolEncoding struct{ meta }

var Bool Of[bool] = boolEncoding{meta{id: "bool", typeName: "bool", width: 1, natural: true, p00: true}}

func (boolEncoding) Read(r *keys.Reader) (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, ErrInvalid
}

func (boolEncoding) Write(w *keys.Writer, v bool) error {
	if v {
		w.PutByte(1)
	} else {
		w.PutByte(0)
	}
	return nil
}

func (e boolEncoding) Skip(r *keys.Reader) error {
	_, err := e.Read(r)
	return err
}

func (boolEncoding) Compare(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return 1
	}
	return -1
}

func (boolEncoding) Convert(v any) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return false, invalid("expected bool, got %T", v)
}

func (boolEncoding) Default() bool { return false }

func (boolEncoding) Format(v bool) string { return strconv.FormatBool(v) }

func (boolEncoding) Parse(s string) (bool, error) {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, invalid("bad bool %q", s)
	}
	return b, nil
}

// signed is a fixed width big-endian encoding with the sign bit flipped.
type signed[T constraints.Signed] struct {
	meta
	bits uint
}

func newSigned[T constraints.Signed](id ID, bits uint) Of[T] {
	return signed[T]{
		meta: meta{id: id, typeName: string(id), width: int(bits / 8), natural: true, p00: true, pFF: true},
		bits: bits,
	}
}

var (
	Int8       = newSigned[int8]("int8", 8)
	Int16      = newSigned[int16]("int16", 16)
	Int32      = newSigned[int32]("int32", 32)
	FixedInt64 = newSigned[int64]("fixed-int64", 64)
)

func (e signed[T]) Read(r *keys.Reader) (T, error) {
	b, err := r.ReadN(int(e.bits / 8))
	if err != nil {
		return 0, err
	}
	var u uint64
	for _, x := range b {
		u = u<<8 | uint64(x)
	}
	u ^= 1 << (e.bits - 1)
	return T(int64(u)), nil
}

func (e signed[T]) Write(w *keys.Writer, v T) error {
	u := uint64(int64(v)) ^ (1 << (e.bits - 1))
	for i := int(e.bits/8) - 1; i >= 0; i-- {
		w.PutByte(byte(u >> (8 * uint(i))))
	}
	return nil
}

func (e signed[T]) Skip(r *keys.Reader) error { return r.Skip(int(e.bits / 8)) }

func (signed[T]) Compare(a, b T) int { return cmp.Compare(a, b) }

func (e signed[T]) Convert(v any) (T, error) {
	lo := -(int64(1) << (e.bits - 1))
	hi := int64(1)<<(e.bits-1) - 1
	var x int64
	switch n := v.(type) {
	case T:
		return n, nil
	case int:
		x = int64(n)
	case int8:
		x = int64(n)
	case int16:
		x = int64(n)
	case int32:
		x = int64(n)
	case int64:
		x = n
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, invalid("%d overflows %s", n, e.id)
		}
		x = int64(n)
	case uint8:
		x = int64(n)
	case uint16:
		x = int64(n)
	case uint32:
		x = int64(n)
	case uint64:
		if n > math.MaxInt64 {
			return 0, invalid("%d overflows %s", n, e.id)
		}
		x = int64(n)
	default:
		return 0, invalid("expected integer for %s, got %T", e.id, v)
	}
	if x < lo || x > hi {
		return 0, invalid("%d overflows %s", x, e.id)
	}
	return T(x), nil
}

func (signed[T]) Default() T { return 0 }

func (signed[T]) Format(v T) string { return strconv.FormatInt(int64(v), 10) }

func (e signed[T]) Parse(s string) (T, error) {
	x, err := strconv.ParseInt(s, 10, int(e.bits))
	if err != nil {
		return 0, invalid("bad %s %q", e.id, s)
	}
	return T(x), nil
}

// varint is the variable length int64 encoding: non-negative values are
// ascending uvarints, negative ones a length byte 0x80..0x87 followed by
// the low bytes of the two's complement.
type varint struct{ meta }

var Int64 Of[int64] = varint{meta{id: "int64", typeName: "int64", width: -1, natural: true}}

const (
	negMin  = 0x80
	negZero = 0x88
)

func (varint) Read(r *keys.Reader) (int64, error) {
	start := r.Offset()
	first, err := r.Peek()
	if err != nil {
		return 0, err
	}
	if first >= negZero {
		u, err := r.ReadUvarint()
		if err != nil {
			return 0, err
		}
		if u > math.MaxInt64 {
			r.Reset(start)
			return 0, ErrInvalid
		}
		return int64(u), nil
	}
	if first < negMin {
		return 0, ErrInvalid
	}
	n := int(negZero - first)
	_ = r.Skip(1)
	body, err := r.ReadN(n)
	if err != nil {
		r.Reset(start)
		return 0, err
	}
	v := int64(-1)
	for _, t := range body {
		v = v<<8 | int64(t)
	}
	if n < 8 {
		lo := -(int64(1) << (8 * n)) + 1
		hi := -(int64(1) << (8 * (n - 1)))
		if v < lo || v > hi {
			r.Reset(start)
			return 0, ErrInvalid
		}
	} else if v > -(int64(1) << 56) {
		r.Reset(start)
		return 0, ErrInvalid
	}
	return v, nil
}

func (varint) Write(w *keys.Writer, v int64) error {
	if v >= 0 {
		w.PutUvarint(uint64(v))
		return nil
	}
	n := 8
	for i := 1; i < 8; i++ {
		if v >= -(int64(1)<<(8*i))+1 {
			n = i
			break
		}
	}
	w.PutByte(byte(negZero - n))
	for i := n - 1; i >= 0; i-- {
		w.PutByte(byte(v >> (8 * i)))
	}
	return nil
}

func (e varint) Skip(r *keys.Reader) error {
	_, err := e.Read(r)
	return err
}

func (varint) Compare(a, b int64) int { return cmp.Compare(a, b) }

func (varint) Convert(v any) (int64, error) { return FixedInt64.Convert(v) }

func (varint) Default() int64 { return 0 }

func (varint) Format(v int64) string { return strconv.FormatInt(v, 10) }

func (varint) Parse(s string) (int64, error) { return FixedInt64.Parse(s) }

type uvarint struct{ meta }

var Uint64 Of[uint64] = uvarint{meta{id: "uint64", typeName: "uint64", width: -1, natural: true}}

func (uvarint) Read(r *keys.Reader) (uint64, error) { return r.ReadUvarint() }

func (uvarint) Write(w *keys.Writer, v uint64) error {
	w.PutUvarint(v)
	return nil
}

func (uvarint) Skip(r *keys.Reader) error { return r.SkipUvarint() }

func (uvarint) Compare(a, b uint64) int { return cmp.Compare(a, b) }

func (uvarint) Convert(v any) (uint64, error) {
	switch n := v.(type) {
	case uint64:
		return n, nil
	case uint:
		return uint64(n), nil
	case uint8:
		return uint64(n), nil
	case uint16:
		return uint64(n), nil
	case uint32:
		return uint64(n), nil
	}
	x, err := FixedInt64.Convert(v)
	if err != nil {
		return 0, err
	}
	if x < 0 {
		return 0, invalid("negative value %d for uint64", x)
	}
	return uint64(x), nil
}

func (uvarint) Default() uint64 { return 0 }

func (uvarint) Format(v uint64) string { return strconv.FormatUint(v, 10) }

func (uvarint) Parse(s string) (uint64, error) {
	x, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, invalid("bad uint64 %q", s)
	}
	return x, nil
}

// float64Encoding orders -Inf < negatives < -0 < +0 < positives < +Inf < NaN.
type float64Encoding struct{ meta }

var Float64 Of[float64] = float64Encoding{meta{id: "float64", typeName: "float64", width: 8, p00: true, pFF: true}}

func sortableBits(f float64) uint64 {
	if f != f {
		f = math.NaN()
	}
	b := math.Float64bits(f)
	if b>>63 == 1 {
		return ^b
	}
	return b | 1<<63
}

func fromSortableBits(u uint64) float64 {
	if u>>63 == 1 {
		return math.Float64frombits(u &^ (1 << 63))
	}
	return math.Float64frombits(^u)
}

func (float64Encoding) Read(r *keys.Reader) (float64, error) {
	b, err := r.ReadN(8)
	if err != nil {
		return 0, err
	}
	return fromSortableBits(binary.BigEndian.Uint64(b)), nil
}

func (float64Encoding) Write(w *keys.Writer, v float64) error {
	w.Put(binary.BigEndian.AppendUint64(nil, sortableBits(v))...)
	return nil
}

func (float64Encoding) Skip(r *keys.Reader) error { return r.Skip(8) }

func (float64Encoding) Compare(a, b float64) int {
	return cmp.Compare(sortableBits(a), sortableBits(b))
}

func (float64Encoding) Convert(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	}
	return 0, invalid("expected float64, got %T", v)
}

func (float64Encoding) Default() float64 { return 0 }

func (float64Encoding) Format(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func (float64Encoding) Parse(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, invalid("bad float64 %q", s)
	}
	return f, nil
}
