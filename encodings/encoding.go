// Package encodings maps Go values onto self-delimiting, order preserving
// byte strings: for any two values a and b of one encoding, comparing the
// encoded bytes gives the same result as Compare(a, b).
package encodings

import (
	"errors"
	"fmt"

	"github.com/drpcorg/kladov/keys"
	"github.com/drpcorg/kladov/kladov_errors"
)

var (
	ErrTruncated = keys.ErrTruncated
	ErrInvalid   = keys.ErrInvalid
)

type ID string

type Meta interface {
	ID() ID
	TypeName() string
	// FixedWidth is the encoded length in bytes, or -1 when it varies.
	FixedWidth() int
	SupportsNull() bool
	// SortsNaturally reports whether Compare agrees with the Go ordering
	// of the values.
	SortsNaturally() bool
	// HasPrefix0x00 and HasPrefix0xFF report whether an encoded value can
	// start with those bytes.
	HasPrefix0x00() bool
	HasPrefix0xFF() bool
}

// Of is a typed encoding.
type Of[T any] interface {
	Meta
	Read(r *keys.Reader) (T, error)
	Write(w *keys.Writer, v T) error
	Skip(r *keys.Reader) error
	Compare(a, b T) int
	// Convert validates and coerces an arbitrary value.
	Convert(v any) (T, error)
	Default() T
	Format(v T) string
	Parse(s string) (T, error)
}

// Encoding is the type-erased view used by schemas, views and filters.
type Encoding interface {
	Meta
	Skip(r *keys.Reader) error
	ReadAny(r *keys.Reader) (any, error)
	WriteAny(w *keys.Writer, v any) error
	CompareAny(a, b any) int
	Validate(v any) (any, error)
	DefaultAny() any
	FormatAny(v any) string
	ParseAny(s string) (any, error)
	// Unwrap returns the underlying typed encoding.
	Unwrap() any
}

type meta struct {
	id       ID
	typeName string
	width    int
	null     bool
	natural  bool
	p00, pFF bool
}

func (m meta) ID() ID               { return m.id }
func (m meta) TypeName() string     { return m.typeName }
func (m meta) FixedWidth() int      { return m.width }
func (m meta) SupportsNull() bool   { return m.null }
func (m meta) SortsNaturally() bool { return m.natural }
func (m meta) HasPrefix0x00() bool  { return m.p00 }
func (m meta) HasPrefix0xFF() bool  { return m.pFF }

func (m meta) String() string { return string(m.id) }

func invalid(format string, args ...any) error {
	return errors.Join(kladov_errors.ErrInvalidValue, fmt.Errorf(format, args...))
}

func Erase[T any](e Of[T]) Encoding {
	if u, ok := any(e).(untyped); ok {
		return u.Encoding
	}
	return erased[T]{e}
}

type erased[T any] struct {
	Of[T]
}

func (e erased[T]) ReadAny(r *keys.Reader) (any, error) {
	v, err := e.Read(r)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (e erased[T]) WriteAny(w *keys.Writer, v any) error {
	t, err := e.Convert(v)
	if err != nil {
		return err
	}
	return e.Write(w, t)
}

func (e erased[T]) CompareAny(a, b any) int {
	return e.Compare(e.must(a), e.must(b))
}

func (e erased[T]) must(v any) T {
	t, err := e.Convert(v)
	if err != nil {
		panic(fmt.Sprintf("encodings: %s cannot compare %v: %v", e.ID(), v, err))
	}
	return t
}

func (e erased[T]) Validate(v any) (any, error) {
	t, err := e.Convert(v)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (e erased[T]) DefaultAny() any { return e.Default() }

func (e erased[T]) FormatAny(v any) string { return e.Format(e.must(v)) }

func (e erased[T]) ParseAny(s string) (any, error) {
	v, err := e.Parse(s)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (e erased[T]) Unwrap() any { return e.Of }

func (e erased[T]) String() string { return string(e.ID()) }

// Untyped adapts an erased encoding to Of[any].
func Untyped(e Encoding) Of[any] {
	if u, ok := e.Unwrap().(Of[any]); ok {
		return u
	}
	return untyped{e}
}

type untyped struct {
	Encoding
}

func (u untyped) Read(r *keys.Reader) (any, error) { return u.ReadAny(r) }
func (u untyped) Write(w *keys.Writer, v any) error { return u.WriteAny(w, v) }
func (u untyped) Compare(a, b any) int { return u.CompareAny(a, b) }
func (u untyped) Convert(v any) (any, error) { return u.Validate(v) }
func (u untyped) Default() any { return u.DefaultAny() }
func (u untyped) Format(v any) string { return u.FormatAny(v) }
func (u untyped) Parse(s string) (any, error) { return u.ParseAny(s) }
func (u untyped) String() string { return string(u.ID()) }

// As recovers the typed encoding behind e. Any encoding is available as
// Of[any].
func As[T any](e Encoding) (Of[T], bool) {
	if t, ok := e.Unwrap().(Of[T]); ok {
		return t, true
	}
	if t, ok := any(Untyped(e)).(Of[T]); ok {
		return t, true
	}
	return nil, false
}

func MustAs[T any](e Encoding) Of[T] {
	t, ok := As[T](e)
	if !ok {
		var zero T
		panic(fmt.Sprintf("encodings: %s does not encode %T", e.ID(), zero))
	}
	return t
}

type genericizer interface {
	Genericize() Encoding
}

type restricted interface {
	restriction() string
}

// Genericize strips type restrictions (reference target types) so that
// encodings from different schema versions compare equal.
func Genericize(e Encoding) Encoding {
	if g, ok := e.Unwrap().(genericizer); ok {
		return g.Genericize()
	}
	return e
}

// Equal reports whether two encodings produce and accept the same values.
func Equal(a, b Encoding) bool {
	if a.ID() != b.ID() {
		return false
	}
	ra, aok := a.Unwrap().(restricted)
	rb, bok := b.Unwrap().(restricted)
	if aok != bok {
		return false
	}
	return !aok || ra.restriction() == rb.restriction()
}

func Encode[T any](e Of[T], v T) ([]byte, error) {
	w := keys.NewWriter(widthHint(e))
	if err := e.Write(w, v); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func MustEncode[T any](e Of[T], v T) []byte {
	b, err := Encode(e, v)
	if err != nil {
		panic(err)
	}
	return b
}

// Decode reads exactly one value spanning all of b.
func Decode[T any](e Of[T], b []byte) (T, error) {
	r := keys.NewReader(b)
	v, err := e.Read(r)
	if err != nil {
		return v, err
	}
	if r.Remain() != 0 {
		var zero T
		return zero, ErrInvalid
	}
	return v, nil
}

func EncodeAny(e Encoding, v any) ([]byte, error) {
	w := keys.NewWriter(widthHint(e))
	if err := e.WriteAny(w, v); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func DecodeAny(e Encoding, b []byte) (any, error) {
	r := keys.NewReader(b)
	v, err := e.ReadAny(r)
	if err != nil {
		return nil, err
	}
	if r.Remain() != 0 {
		return nil, ErrInvalid
	}
	return v, nil
}

// DefaultBytes is the encoded default value.
func DefaultBytes(e Encoding) []byte {
	b, err := EncodeAny(e, e.DefaultAny())
	if err != nil {
		panic(fmt.Sprintf("encodings: %s cannot encode its default: %v", e.ID(), err))
	}
	return b
}

func widthHint(m Meta) int {
	if w := m.FixedWidth(); w > 0 {
		return w
	}
	return 16
}
