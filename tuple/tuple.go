// Package tuple holds the fixed-arity value tuples produced by index views.
package tuple

import (
	"fmt"
	"strings"
)

type Tuple2[A, B any] struct {
	V1 A
	V2 B
}

type Tuple3[A, B, C any] struct {
	V1 A
	V2 B
	V3 C
}

type Tuple4[A, B, C, D any] struct {
	V1 A
	V2 B
	V3 C
	V4 D
}

type Tuple5[A, B, C, D, E any] struct {
	V1 A
	V2 B
	V3 C
	V4 D
	V5 E
}

func New2[A, B any](a A, b B) Tuple2[A, B] { return Tuple2[A, B]{a, b} }

func New3[A, B, C any](a A, b B, c C) Tuple3[A, B, C] { return Tuple3[A, B, C]{a, b, c} }

func New4[A, B, C, D any](a A, b B, c C, d D) Tuple4[A, B, C, D] {
	return Tuple4[A, B, C, D]{a, b, c, d}
}

func New5[A, B, C, D, E any](a A, b B, c C, d D, e E) Tuple5[A, B, C, D, E] {
	return Tuple5[A, B, C, D, E]{a, b, c, d, e}
}

func (t Tuple2[A, B]) Values() []any { return []any{t.V1, t.V2} }

func (t Tuple3[A, B, C]) Values() []any { return []any{t.V1, t.V2, t.V3} }

func (t Tuple4[A, B, C, D]) Values() []any { return []any{t.V1, t.V2, t.V3, t.V4} }

func (t Tuple5[A, B, C, D, E]) Values() []any { return []any{t.V1, t.V2, t.V3, t.V4, t.V5} }

func (t Tuple2[A, B]) String() string { return format(t.Values()) }

func (t Tuple3[A, B, C]) String() string { return format(t.Values()) }

func (t Tuple4[A, B, C, D]) String() string { return format(t.Values()) }

func (t Tuple5[A, B, C, D, E]) String() string { return format(t.Values()) }

func format(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return "<" + strings.Join(parts, ",") + ">"
}
