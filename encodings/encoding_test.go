package encodings

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/drpcorg/kladov/keys"
	"github.com/drpcorg/kladov/kladov_errors"
	"github.com/drpcorg/kladov/oid"
	"github.com/drpcorg/kladov/tuple"
	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ordered checks round trip and that byte order agrees with Compare.
func ordered[T any](e Of[T], a, b T) bool {
	ea, err := Encode(e, a)
	if err != nil {
		return false
	}
	eb, err := Encode(e, b)
	if err != nil {
		return false
	}
	da, err := Decode(e, ea)
	if err != nil || e.Compare(da, a) != 0 {
		return false
	}
	if w := e.FixedWidth(); w >= 0 && len(ea) != w {
		return false
	}
	skip := keys.NewReader(append(ea, 0x42))
	if e.Skip(skip) != nil || skip.Remain() != 1 {
		return false
	}
	return sign(bytes.Compare(ea, eb)) == sign(e.Compare(a, b))
}

func sign(x int) int {
	switch {
	case x < 0:
		return -1
	case x > 0:
		return 1
	}
	return 0
}

func TestOrderPreservation(t *testing.T) {
	properties := gopter.NewProperties(nil)
	properties.Property("int64", prop.ForAll(func(a, b int64) bool {
		return ordered(Int64, a, b)
	}, gen.Int64(), gen.Int64()))
	properties.Property("small int64", prop.ForAll(func(a, b int64) bool {
		return ordered(Int64, a, b)
	}, gen.Int64Range(-70000, 70000), gen.Int64Range(-70000, 70000)))
	properties.Property("int8", prop.ForAll(func(a, b int8) bool {
		return ordered(Int8, a, b)
	}, gen.Int8(), gen.Int8()))
	properties.Property("int32", prop.ForAll(func(a, b int32) bool {
		return ordered(Int32, a, b)
	}, gen.Int32(), gen.Int32()))
	properties.Property("uint64", prop.ForAll(func(a, b uint64) bool {
		return ordered(Uint64, a, b)
	}, gen.UInt64(), gen.UInt64()))
	properties.Property("float64", prop.ForAll(func(a, b float64) bool {
		return ordered(Float64, a, b)
	}, gen.Float64(), gen.Float64()))
	properties.Property("string", prop.ForAll(func(a, b string) bool {
		return ordered(String, a, b)
	}, gen.AnyString(), gen.AnyString()))
	properties.Property("bytes", prop.ForAll(func(a, b []byte) bool {
		return ordered(Bytes, a, b)
	}, gen.SliceOf(gen.UInt8()), gen.SliceOf(gen.UInt8())))
	properties.Property("tuple<int64,string>", prop.ForAll(func(a1 int64, a2 string, b1 int64, b2 string) bool {
		e := NewTuple2(Int64, String)
		return ordered(e, tuple.New2(a1, a2), tuple.New2(b1, b2))
	}, gen.Int64Range(-3, 3), gen.AlphaString(), gen.Int64Range(-3, 3), gen.AlphaString()))
	properties.Property("array<int64>", prop.ForAll(func(a, b []int64) bool {
		return ordered[[]int64](NewArray(Int64), a, b)
	}, gen.SliceOf(gen.Int64Range(-2, 2)), gen.SliceOf(gen.Int64Range(-2, 2))))
	properties.TestingRun(t)
}

func TestIntegerEdges(t *testing.T) {
	for _, v := range []int64{math.MinInt64, -1 << 56, -(1 << 56) + 1, -256, -255, -1, 0, 109, 110, math.MaxInt64} {
		b := MustEncode(Int64, v)
		got, err := Decode(Int64, b)
		require.NoError(t, err, "value %d", v)
		assert.Equal(t, v, got)
	}
	assert.Equal(t, []byte{0x87, 0xff}, MustEncode(Int64, -1))
	assert.Equal(t, []byte{0x88}, MustEncode(Int64, 0))

	_, err := Decode(Int64, []byte{0x87, 0x00})
	assert.ErrorIs(t, err, ErrInvalid, "-256 must use two bytes")
	_, err = Decode(Int64, []byte{0x86, 0xff})
	assert.ErrorIs(t, err, ErrTruncated)
	_, err = Decode(Int64, []byte{0x10})
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = Decode(Uint64, []byte{0xfd, 0xff, 0, 0, 0, 0, 0, 0, 0})
	assert.NoError(t, err)
	_, err = Decode(Int64, []byte{0xfd, 0xff, 0, 0, 0, 0, 0, 0, 0})
	assert.ErrorIs(t, err, ErrInvalid, "uint64 above MaxInt64")

	assert.Equal(t, []byte{0x00}, MustEncode(Int8, math.MinInt8))
	assert.Equal(t, []byte{0xff}, MustEncode(Int8, math.MaxInt8))

	_, err = Int8.Convert(300)
	assert.ErrorIs(t, err, kladov_errors.ErrInvalidValue)
	v, err := Int16.Convert(uint8(7))
	assert.NoError(t, err)
	assert.Equal(t, int16(7), v)
}

func TestFloatOrder(t *testing.T) {
	values := []float64{math.Inf(-1), -1e300, -1, math.Copysign(0, -1), 0, 1e-300, 1, math.Inf(1), math.NaN()}
	for i := 1; i < len(values); i++ {
		prev := MustEncode(Float64, values[i-1])
		cur := MustEncode(Float64, values[i])
		assert.Equal(t, -1, bytes.Compare(prev, cur), "%v < %v", values[i-1], values[i])
	}
	got, err := Decode(Float64, MustEncode(Float64, math.NaN()))
	assert.NoError(t, err)
	assert.True(t, math.IsNaN(got))
}

func TestStringEscaping(t *testing.T) {
	assert.Equal(t, []byte{'a', 0x01, 0x01, 0x01, 0x02, 'b', 0x00}, MustEncode(String, "a\x00\x01b"))
	assert.Equal(t, []byte{0x00}, MustEncode(String, ""))

	_, err := Decode(String, []byte{'a', 0x01, 0x05, 0x00})
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = Decode(String, []byte{'a', 'b'})
	assert.ErrorIs(t, err, ErrTruncated)
	_, err = Decode(String, []byte{0xff, 0x00})
	assert.ErrorIs(t, err, ErrInvalid, "not utf-8")
	_, err = String.Convert(string([]byte{0xff}))
	assert.ErrorIs(t, err, kladov_errors.ErrInvalidValue)

	s, err := String.Parse(String.Format("x\"y"))
	assert.NoError(t, err)
	assert.Equal(t, "x\"y", s)
}

func TestTimeAndUUID(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 42, time.FixedZone("x", 3600))
	b := MustEncode(Time, now)
	got, err := Decode(Time, b)
	require.NoError(t, err)
	assert.True(t, got.Equal(now))
	assert.Equal(t, time.UTC, got.Location())

	parsed, err := Time.Parse(Time.Format(now))
	assert.NoError(t, err)
	assert.True(t, parsed.Equal(now))

	u := uuid.New()
	ub := MustEncode(UUID, u)
	assert.Equal(t, u[:], ub)
	cu, err := UUID.Convert(u.String())
	assert.NoError(t, err)
	assert.Equal(t, u, cu)
}

func TestEnum(t *testing.T) {
	e, err := NewEnum("RED", "GREEN", "BLUE")
	require.NoError(t, err)
	assert.Equal(t, ID("enum(RED,GREEN,BLUE)"), e.ID())

	green, err := e.Convert("GREEN")
	assert.NoError(t, err)
	assert.Equal(t, EnumValue{Name: "GREEN", Ordinal: 1}, green)
	assert.True(t, ordered[EnumValue](e, green, EnumValue{Name: "BLUE", Ordinal: 2}))

	_, err = e.Convert(EnumValue{Name: "GREEN", Ordinal: 2})
	assert.ErrorIs(t, err, kladov_errors.ErrInvalidValue)
	_, err = Decode[EnumValue](e, []byte{0x88 + 3})
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Equal(t, "RED", e.Default().Name)

	_, err = NewEnum("A", "A")
	assert.Error(t, err)
}

func TestReference(t *testing.T) {
	person := oid.New(10)
	place := oid.New(11)
	ref := NewReference(10)

	assert.Equal(t, []byte{0xff}, MustEncode[oid.ID](ref, oid.Nil))
	assert.Equal(t, person[:], MustEncode[oid.ID](ref, person))
	assert.True(t, ordered[oid.ID](ref, person, oid.Nil), "null sorts last")

	_, err := ref.Convert(place)
	assert.ErrorIs(t, err, kladov_errors.ErrInvalidValue)
	v, err := ref.Convert(nil)
	assert.NoError(t, err)
	assert.True(t, v.IsNil())

	a := Erase[oid.ID](NewReference(10))
	b := Erase[oid.ID](NewReference(11, 12))
	assert.False(t, Equal(a, b))
	assert.True(t, Equal(Genericize(a), Genericize(b)))
	assert.True(t, Equal(a, Erase[oid.ID](NewReference(10, 10))))

	g, err := Genericize(a).Validate(place)
	assert.NoError(t, err)
	assert.Equal(t, place, g)

	_, err = Decode(ObjID, []byte{0, 0, 0, 0, 0, 0, 0, 0})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestNullable(t *testing.T) {
	n := Nullable(Erase(Int64))
	assert.Equal(t, ID("nullable<int64>"), n.ID())
	assert.True(t, n.SupportsNull())
	assert.Same(t, Reference, Nullable(Erase[oid.ID](Reference)).Unwrap())

	null, err := EncodeAny(n, nil)
	assert.NoError(t, err)
	one, err := EncodeAny(n, int64(1))
	assert.NoError(t, err)
	assert.Equal(t, []byte{0xff}, null)
	assert.Equal(t, -1, bytes.Compare(one, null))

	v, err := DecodeAny(n, one)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), v)
	v, err = DecodeAny(n, null)
	assert.NoError(t, err)
	assert.Nil(t, v)
	assert.Equal(t, 1, n.CompareAny(nil, int64(5)))
}

func TestTupleSkipAndFormat(t *testing.T) {
	e := NewTuple3(Int64, String, Bool)
	v := tuple.New3(int64(-5), "a,b", true)
	b := MustEncode(e, v)
	got, err := Decode(e, b)
	assert.NoError(t, err)
	assert.Equal(t, v, got)

	parsed, err := e.Parse(e.Format(v))
	assert.NoError(t, err)
	assert.Equal(t, v, parsed)

	r := keys.NewReader(b[:len(b)-1])
	assert.ErrorIs(t, e.Skip(r), ErrTruncated)
	assert.Equal(t, 0, r.Offset(), "failed skip leaves the reader in place")

	c, err := e.Convert([]any{1, "x", false})
	assert.NoError(t, err)
	assert.Equal(t, tuple.New3(int64(1), "x", false), c)

	_, err = e.Convert([]any{1, "x"})
	assert.ErrorIs(t, err, kladov_errors.ErrInvalidValue)
}

func TestAs(t *testing.T) {
	erased := Erase(Int64)
	typed, ok := As[int64](erased)
	assert.True(t, ok)
	assert.Equal(t, Int64, typed)

	_, ok = As[string](erased)
	assert.False(t, ok)

	anyEnc, ok := As[any](erased)
	assert.True(t, ok)
	v, err := Decode(anyEnc, MustEncode(Int64, 9))
	assert.NoError(t, err)
	assert.Equal(t, int64(9), v)
	assert.Equal(t, erased, Erase(anyEnc))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	for _, id := range []ID{"bool", "int8", "int64", "uint64", "float64", "string", "bytes", "time", "uuid", "objid", "reference"} {
		e, err := r.Lookup(id)
		require.NoError(t, err, id)
		assert.Equal(t, id, e.ID())
	}

	e, err := r.Lookup("tuple<int64,nullable<string>,enum(A,B)>")
	require.NoError(t, err)
	assert.Equal(t, ID("tuple<int64,nullable<string>,enum(A,B)>"), e.ID())
	again, err := r.Lookup(e.ID())
	assert.NoError(t, err)
	assert.Same(t, e.Unwrap(), again.Unwrap())

	arr, err := r.Lookup("array<uuid>")
	assert.NoError(t, err)
	assert.Equal(t, -1, arr.FixedWidth())

	_, err = r.Lookup("tuple<int64>")
	assert.ErrorIs(t, err, kladov_errors.ErrUnknownEncoding)
	_, err = r.Lookup("nope")
	assert.ErrorIs(t, err, kladov_errors.ErrUnknownEncoding)
	_, err = r.Lookup("array<int64")
	assert.ErrorIs(t, err, kladov_errors.ErrUnknownEncoding)

	assert.ErrorIs(t, r.Register(Erase(Int64)), kladov_errors.ErrDuplicateEncoding)
	assert.ErrorIs(t, r.Register(Erase[[]any](NewTuple(Erase(Int64), Erase(Bool)))), kladov_errors.ErrInvalidValue)
}
