package encodings

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/drpcorg/kladov/keys"
	"github.com/drpcorg/kladov/tuple"
)

// NullableEncoding wraps an encoding that has no null: null is 0xff and any
// other value is 0x01 followed by the inner encoding, so null sorts last.
type NullableEncoding struct {
	meta
	inner Encoding
}

const notNullByte = 0x01

func Nullable(inner Encoding) Encoding {
	if inner.SupportsNull() {
		return inner
	}
	return Erase[any](&NullableEncoding{
		meta:  meta{id: ID("nullable<" + string(inner.ID()) + ">"), typeName: inner.TypeName(), width: -1, null: true, pFF: true},
		inner: inner,
	})
}

func (e *NullableEncoding) Inner() Encoding { return e.inner }

func (e *NullableEncoding) Read(r *keys.Reader) (any, error) {
	start := r.Offset()
	b, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	switch b {
	case nullByte:
		return nil, nil
	case notNullByte:
		v, err := e.inner.ReadAny(r)
		if err != nil {
			r.Reset(start)
			return nil, err
		}
		return v, nil
	}
	r.Reset(start)
	return nil, ErrInvalid
}

func (e *NullableEncoding) Write(w *keys.Writer, v any) error {
	if v == nil {
		w.PutByte(nullByte)
		return nil
	}
	w.PutByte(notNullByte)
	return e.inner.WriteAny(w, v)
}

func (e *NullableEncoding) Skip(r *keys.Reader) error {
	start := r.Offset()
	b, err := r.ReadByte()
	if err != nil {
		return err
	}
	switch b {
	case nullByte:
		return nil
	case notNullByte:
		if err := e.inner.Skip(r); err != nil {
			r.Reset(start)
			return err
		}
		return nil
	}
	r.Reset(start)
	return ErrInvalid
}

func (e *NullableEncoding) Compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return e.inner.CompareAny(a, b)
}

func (e *NullableEncoding) Convert(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	return e.inner.Validate(v)
}

func (e *NullableEncoding) Default() any { return nil }

func (e *NullableEncoding) Format(v any) string {
	if v == nil {
		return "null"
	}
	return e.inner.FormatAny(v)
}

func (e *NullableEncoding) Parse(s string) (any, error) {
	if s == "null" {
		return nil, nil
	}
	return e.inner.ParseAny(s)
}

func (e *NullableEncoding) Genericize() Encoding { return Nullable(Genericize(e.inner)) }

// TupleEncoding concatenates its component encodings; values are []any.
type TupleEncoding struct {
	meta
	components []Encoding
}

func NewTuple(components ...Encoding) *TupleEncoding {
	if len(components) < 2 {
		panic("encodings: tuple needs at least two components")
	}
	ids := make([]string, len(components))
	width := 0
	natural := true
	for i, c := range components {
		ids[i] = string(c.ID())
		if width >= 0 && c.FixedWidth() >= 0 {
			width += c.FixedWidth()
		} else {
			width = -1
		}
		natural = natural && c.SortsNaturally()
	}
	return &TupleEncoding{
		meta: meta{
			id:       ID("tuple<" + strings.Join(ids, ",") + ">"),
			typeName: fmt.Sprintf("tuple.Tuple%d", len(components)),
			width:    width,
			natural:  natural,
			p00:      components[0].HasPrefix0x00(),
			pFF:      components[0].HasPrefix0xFF(),
		},
		components: components,
	}
}

func (e *TupleEncoding) Components() []Encoding { return e.components }

func (e *TupleEncoding) Read(r *keys.Reader) ([]any, error) {
	start := r.Offset()
	out := make([]any, len(e.components))
	for i, c := range e.components {
		v, err := c.ReadAny(r)
		if err != nil {
			r.Reset(start)
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *TupleEncoding) Write(w *keys.Writer, v []any) error {
	if len(v) != len(e.components) {
		return invalid("%s needs %d values, got %d", e.id, len(e.components), len(v))
	}
	for i, c := range e.components {
		if err := c.WriteAny(w, v[i]); err != nil {
			return err
		}
	}
	return nil
}

func (e *TupleEncoding) Skip(r *keys.Reader) error {
	start := r.Offset()
	for _, c := range e.components {
		if err := c.Skip(r); err != nil {
			r.Reset(start)
			return err
		}
	}
	return nil
}

func (e *TupleEncoding) Compare(a, b []any) int {
	for i, c := range e.components {
		if d := c.CompareAny(a[i], b[i]); d != 0 {
			return d
		}
	}
	return 0
}

type valuer interface {
	Values() []any
}

func (e *TupleEncoding) Convert(v any) ([]any, error) {
	var vals []any
	switch x := v.(type) {
	case []any:
		vals = x
	case valuer:
		vals = x.Values()
	default:
		return nil, invalid("expected %d-tuple, got %T", len(e.components), v)
	}
	if len(vals) != len(e.components) {
		return nil, invalid("%s needs %d values, got %d", e.id, len(e.components), len(vals))
	}
	out := make([]any, len(vals))
	for i, c := range e.components {
		cv, err := c.Validate(vals[i])
		if err != nil {
			return nil, err
		}
		out[i] = cv
	}
	return out, nil
}

func (e *TupleEncoding) Default() []any {
	out := make([]any, len(e.components))
	for i, c := range e.components {
		out[i] = c.DefaultAny()
	}
	return out
}

func (e *TupleEncoding) Format(v []any) string {
	parts := make([]string, len(e.components))
	for i, c := range e.components {
		parts[i] = c.FormatAny(v[i])
	}
	return formatList(parts)
}

func (e *TupleEncoding) Parse(s string) ([]any, error) {
	parts, err := parseList(s)
	if err != nil {
		return nil, err
	}
	if len(parts) != len(e.components) {
		return nil, invalid("%s needs %d values, got %d", e.id, len(e.components), len(parts))
	}
	out := make([]any, len(parts))
	for i, c := range e.components {
		if out[i], err = c.ParseAny(parts[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (e *TupleEncoding) Genericize() Encoding {
	generic := make([]Encoding, len(e.components))
	for i, c := range e.components {
		generic[i] = Genericize(c)
	}
	return Erase[[]any](NewTuple(generic...))
}

// formatList quotes each element: "<\"a\",\"b\">".
func formatList(parts []string) string {
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = strconv.Quote(p)
	}
	return "<" + strings.Join(quoted, ",") + ">"
}

func parseList(s string) ([]string, error) {
	if !strings.HasPrefix(s, "<") || !strings.HasSuffix(s, ">") {
		return nil, invalid("bad list literal %q", s)
	}
	s = s[1 : len(s)-1]
	var out []string
	for s != "" {
		q, err := strconv.QuotedPrefix(s)
		if err != nil {
			return nil, invalid("bad list element in %q", s)
		}
		p, _ := strconv.Unquote(q)
		out = append(out, p)
		s = s[len(q):]
		if s == "" {
			break
		}
		if s[0] != ',' {
			return nil, invalid("expected ',' in list literal")
		}
		s = s[1:]
	}
	return out, nil
}

func cast[T any](v any) T {
	t, _ := v.(T)
	return t
}

type tuple2[A, B any] struct{ *TupleEncoding }

func NewTuple2[A, B any](a Of[A], b Of[B]) Of[tuple.Tuple2[A, B]] {
	return tuple2[A, B]{NewTuple(Erase(a), Erase(b))}
}

func (e tuple2[A, B]) Read(r *keys.Reader) (tuple.Tuple2[A, B], error) {
	vs, err := e.TupleEncoding.Read(r)
	if err != nil {
		return tuple.Tuple2[A, B]{}, err
	}
	return tuple.New2(cast[A](vs[0]), cast[B](vs[1])), nil
}

func (e tuple2[A, B]) Write(w *keys.Writer, v tuple.Tuple2[A, B]) error {
	return e.TupleEncoding.Write(w, v.Values())
}

func (e tuple2[A, B]) Compare(a, b tuple.Tuple2[A, B]) int {
	return e.TupleEncoding.Compare(a.Values(), b.Values())
}

func (e tuple2[A, B]) Convert(v any) (tuple.Tuple2[A, B], error) {
	vs, err := e.TupleEncoding.Convert(v)
	if err != nil {
		return tuple.Tuple2[A, B]{}, err
	}
	return tuple.New2(cast[A](vs[0]), cast[B](vs[1])), nil
}

func (e tuple2[A, B]) Default() tuple.Tuple2[A, B] {
	vs := e.TupleEncoding.Default()
	return tuple.New2(cast[A](vs[0]), cast[B](vs[1]))
}

func (e tuple2[A, B]) Format(v tuple.Tuple2[A, B]) string {
	return e.TupleEncoding.Format(v.Values())
}

func (e tuple2[A, B]) Parse(s string) (tuple.Tuple2[A, B], error) {
	vs, err := e.TupleEncoding.Parse(s)
	if err != nil {
		return tuple.Tuple2[A, B]{}, err
	}
	return tuple.New2(cast[A](vs[0]), cast[B](vs[1])), nil
}

type tuple3[A, B, C any] struct{ *TupleEncoding }

func NewTuple3[A, B, C any](a Of[A], b Of[B], c Of[C]) Of[tuple.Tuple3[A, B, C]] {
	return tuple3[A, B, C]{NewTuple(Erase(a), Erase(b), Erase(c))}
}

func (e tuple3[A, B, C]) of(vs []any) tuple.Tuple3[A, B, C] {
	return tuple.New3(cast[A](vs[0]), cast[B](vs[1]), cast[C](vs[2]))
}

func (e tuple3[A, B, C]) Read(r *keys.Reader) (tuple.Tuple3[A, B, C], error) {
	vs, err := e.TupleEncoding.Read(r)
	if err != nil {
		return tuple.Tuple3[A, B, C]{}, err
	}
	return e.of(vs), nil
}

func (e tuple3[A, B, C]) Write(w *keys.Writer, v tuple.Tuple3[A, B, C]) error {
	return e.TupleEncoding.Write(w, v.Values())
}

func (e tuple3[A, B, C]) Compare(a, b tuple.Tuple3[A, B, C]) int {
	return e.TupleEncoding.Compare(a.Values(), b.Values())
}

func (e tuple3[A, B, C]) Convert(v any) (tuple.Tuple3[A, B, C], error) {
	vs, err := e.TupleEncoding.Convert(v)
	if err != nil {
		return tuple.Tuple3[A, B, C]{}, err
	}
	return e.of(vs), nil
}

func (e tuple3[A, B, C]) Default() tuple.Tuple3[A, B, C] {
	return e.of(e.TupleEncoding.Default())
}

func (e tuple3[A, B, C]) Format(v tuple.Tuple3[A, B, C]) string {
	return e.TupleEncoding.Format(v.Values())
}

func (e tuple3[A, B, C]) Parse(s string) (tuple.Tuple3[A, B, C], error) {
	vs, err := e.TupleEncoding.Parse(s)
	if err != nil {
		return tuple.Tuple3[A, B, C]{}, err
	}
	return e.of(vs), nil
}

type tuple4[A, B, C, D any] struct{ *TupleEncoding }

func NewTuple4[A, B, C, D any](a Of[A], b Of[B], c Of[C], d Of[D]) Of[tuple.Tuple4[A, B, C, D]] {
	return tuple4[A, B, C, D]{NewTuple(Erase(a), Erase(b), Erase(c), Erase(d))}
}

func (e tuple4[A, B, C, D]) of(vs []any) tuple.Tuple4[A, B, C, D] {
	return tuple.New4(cast[A](vs[0]), cast[B](vs[1]), cast[C](vs[2]), cast[D](vs[3]))
}

func (e tuple4[A, B, C, D]) Read(r *keys.Reader) (tuple.Tuple4[A, B, C, D], error) {
	vs, err := e.TupleEncoding.Read(r)
	if err != nil {
		return tuple.Tuple4[A, B, C, D]{}, err
	}
	return e.of(vs), nil
}

func (e tuple4[A, B, C, D]) Write(w *keys.Writer, v tuple.Tuple4[A, B, C, D]) error {
	return e.TupleEncoding.Write(w, v.Values())
}

func (e tuple4[A, B, C, D]) Compare(a, b tuple.Tuple4[A, B, C, D]) int {
	return e.TupleEncoding.Compare(a.Values(), b.Values())
}

func (e tuple4[A, B, C, D]) Convert(v any) (tuple.Tuple4[A, B, C, D], error) {
	vs, err := e.TupleEncoding.Convert(v)
	if err != nil {
		return tuple.Tuple4[A, B, C, D]{}, err
	}
	return e.of(vs), nil
}

func (e tuple4[A, B, C, D]) Default() tuple.Tuple4[A, B, C, D] {
	return e.of(e.TupleEncoding.Default())
}

func (e tuple4[A, B, C, D]) Format(v tuple.Tuple4[A, B, C, D]) string {
	return e.TupleEncoding.Format(v.Values())
}

func (e tuple4[A, B, C, D]) Parse(s string) (tuple.Tuple4[A, B, C, D], error) {
	vs, err := e.TupleEncoding.Parse(s)
	if err != nil {
		return tuple.Tuple4[A, B, C, D]{}, err
	}
	return e.of(vs), nil
}

type tuple5[A, B, C, D, E any] struct{ *TupleEncoding }

func NewTuple5[A, B, C, D, E any](a Of[A], b Of[B], c Of[C], d Of[D], e Of[E]) Of[tuple.Tuple5[A, B, C, D, E]] {
	return tuple5[A, B, C, D, E]{NewTuple(Erase(a), Erase(b), Erase(c), Erase(d), Erase(e))}
}

func (t tuple5[A, B, C, D, E]) of(vs []any) tuple.Tuple5[A, B, C, D, E] {
	return tuple.New5(cast[A](vs[0]), cast[B](vs[1]), cast[C](vs[2]), cast[D](vs[3]), cast[E](vs[4]))
}

func (t tuple5[A, B, C, D, E]) Read(r *keys.Reader) (tuple.Tuple5[A, B, C, D, E], error) {
	vs, err := t.TupleEncoding.Read(r)
	if err != nil {
		return tuple.Tuple5[A, B, C, D, E]{}, err
	}
	return t.of(vs), nil
}

func (t tuple5[A, B, C, D, E]) Write(w *keys.Writer, v tuple.Tuple5[A, B, C, D, E]) error {
	return t.TupleEncoding.Write(w, v.Values())
}

func (t tuple5[A, B, C, D, E]) Compare(a, b tuple.Tuple5[A, B, C, D, E]) int {
	return t.TupleEncoding.Compare(a.Values(), b.Values())
}

func (t tuple5[A, B, C, D, E]) Convert(v any) (tuple.Tuple5[A, B, C, D, E], error) {
	vs, err := t.TupleEncoding.Convert(v)
	if err != nil {
		return tuple.Tuple5[A, B, C, D, E]{}, err
	}
	return t.of(vs), nil
}

func (t tuple5[A, B, C, D, E]) Default() tuple.Tuple5[A, B, C, D, E] {
	return t.of(t.TupleEncoding.Default())
}

func (t tuple5[A, B, C, D, E]) Format(v tuple.Tuple5[A, B, C, D, E]) string {
	return t.TupleEncoding.Format(v.Values())
}

func (t tuple5[A, B, C, D, E]) Parse(s string) (tuple.Tuple5[A, B, C, D, E], error) {
	vs, err := t.TupleEncoding.Parse(s)
	if err != nil {
		return tuple.Tuple5[A, B, C, D, E]{}, err
	}
	return t.of(vs), nil
}

// ArrayEncoding writes each element after a 0x01 marker and ends with 0x00,
// so a proper prefix of an array sorts before it.
type ArrayEncoding[T any] struct {
	meta
	elem Of[T]
}

const (
	arrayEnd  = 0x00
	arrayNext = 0x01
)

func NewArray[T any](elem Of[T]) *ArrayEncoding[T] {
	return &ArrayEncoding[T]{
		meta: meta{id: ID("array<" + string(elem.ID()) + ">"), typeName: "[]" + elem.TypeName(), width: -1, natural: elem.SortsNaturally(), p00: true},
		elem: elem,
	}
}

func (e *ArrayEncoding[T]) Element() Of[T] { return e.elem }

func (e *ArrayEncoding[T]) Read(r *keys.Reader) ([]T, error) {
	start := r.Offset()
	var out []T
	for {
		b, err := r.ReadByte()
		if err != nil {
			r.Reset(start)
			return nil, err
		}
		switch b {
		case arrayEnd:
			return out, nil
		case arrayNext:
			v, err := e.elem.Read(r)
			if err != nil {
				r.Reset(start)
				return nil, err
			}
			out = append(out, v)
		default:
			r.Reset(start)
			return nil, ErrInvalid
		}
	}
}

func (e *ArrayEncoding[T]) Write(w *keys.Writer, v []T) error {
	for _, x := range v {
		w.PutByte(arrayNext)
		if err := e.elem.Write(w, x); err != nil {
			return err
		}
	}
	w.PutByte(arrayEnd)
	return nil
}

func (e *ArrayEncoding[T]) Skip(r *keys.Reader) error {
	start := r.Offset()
	for {
		b, err := r.ReadByte()
		if err != nil {
			r.Reset(start)
			return err
		}
		switch b {
		case arrayEnd:
			return nil
		case arrayNext:
			if err := e.elem.Skip(r); err != nil {
				r.Reset(start)
				return err
			}
		default:
			r.Reset(start)
			return ErrInvalid
		}
	}
}

func (e *ArrayEncoding[T]) Compare(a, b []T) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if d := e.elem.Compare(a[i], b[i]); d != 0 {
			return d
		}
	}
	return len(a) - len(b)
}

func (e *ArrayEncoding[T]) Convert(v any) ([]T, error) {
	switch x := v.(type) {
	case []T:
		out := make([]T, len(x))
		for i, el := range x {
			c, err := e.elem.Convert(el)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	case []any:
		out := make([]T, len(x))
		for i, el := range x {
			c, err := e.elem.Convert(el)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	}
	return nil, invalid("expected array for %s, got %T", e.id, v)
}

func (e *ArrayEncoding[T]) Default() []T { return nil }

func (e *ArrayEncoding[T]) Format(v []T) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = e.elem.Format(x)
	}
	return formatList(parts)
}

func (e *ArrayEncoding[T]) Parse(s string) ([]T, error) {
	parts, err := parseList(s)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(parts))
	for i, p := range parts {
		if out[i], err = e.elem.Parse(p); err != nil {
			return nil, err
		}
	}
	return out, nil
}
