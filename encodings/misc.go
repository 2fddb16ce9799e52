package encodings

import (
	"bytes"
	"strings"
	"time"

	"github.com/drpcorg/kladov/keys"
	"github.com/google/uuid"
)

// timeEncoding stores UTC nanoseconds since the epoch as an int64 varint.
type timeEncoding struct{ meta }

var Time Of[time.Time] = timeEncoding{meta{id: "time", typeName: "time.Time", width: -1, natural: true}}

func (timeEncoding) Read(r *keys.Reader) (time.Time, error) {
	n, err := Int64.Read(r)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, n).UTC(), nil
}

func (timeEncoding) Write(w *keys.Writer, v time.Time) error {
	return Int64.Write(w, v.UnixNano())
}

func (timeEncoding) Skip(r *keys.Reader) error { return Int64.Skip(r) }

func (timeEncoding) Compare(a, b time.Time) int { return a.Compare(b) }

func (timeEncoding) Convert(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return time.Unix(0, t.UnixNano()).UTC(), nil
	case *time.Time:
		if t != nil {
			return time.Unix(0, t.UnixNano()).UTC(), nil
		}
	}
	return time.Time{}, invalid("expected time.Time, got %T", v)
}

func (timeEncoding) Default() time.Time { return time.Unix(0, 0).UTC() }

func (timeEncoding) Format(v time.Time) string { return v.UTC().Format(time.RFC3339Nano) }

func (timeEncoding) Parse(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, invalid("bad time %q", s)
	}
	return t.UTC(), nil
}

type uuidEncoding struct{ meta }

var UUID Of[uuid.UUID] = uuidEncoding{meta{id: "uuid", typeName: "uuid.UUID", width: 16, natural: true, p00: true, pFF: true}}

func (uuidEncoding) Read(r *keys.Reader) (uuid.UUID, error) {
	b, err := r.ReadN(16)
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.UUID(b), nil
}

func (uuidEncoding) Write(w *keys.Writer, v uuid.UUID) error {
	w.Put(v[:]...)
	return nil
}

func (uuidEncoding) Skip(r *keys.Reader) error { return r.Skip(16) }

func (uuidEncoding) Compare(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) }

func (uuidEncoding) Convert(v any) (uuid.UUID, error) {
	switch u := v.(type) {
	case uuid.UUID:
		return u, nil
	case [16]byte:
		return uuid.UUID(u), nil
	case string:
		return uuidEncoding{}.Parse(u)
	}
	return uuid.Nil, invalid("expected uuid.UUID, got %T", v)
}

func (uuidEncoding) Default() uuid.UUID { return uuid.Nil }

func (uuidEncoding) Format(v uuid.UUID) string { return v.String() }

func (uuidEncoding) Parse(s string) (uuid.UUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, invalid("bad uuid %q", s)
	}
	return u, nil
}

// EnumValue is one constant of an enum encoding; values order by ordinal.
type EnumValue struct {
	Name    string
	Ordinal int
}

func (v EnumValue) String() string { return v.Name }

type EnumEncoding struct {
	meta
	names []string
	index map[string]int
}

func NewEnum(names ...string) (*EnumEncoding, error) {
	if len(names) == 0 {
		return nil, invalid("enum needs at least one identifier")
	}
	index := make(map[string]int, len(names))
	for i, n := range names {
		if n == "" || strings.ContainsAny(n, "(),<> ") {
			return nil, invalid("bad enum identifier %q", n)
		}
		if _, dup := index[n]; dup {
			return nil, invalid("duplicate enum identifier %q", n)
		}
		index[n] = i
	}
	id := ID("enum(" + strings.Join(names, ",") + ")")
	return &EnumEncoding{
		meta:  meta{id: id, typeName: "encodings.EnumValue", width: -1, natural: true},
		names: append([]string(nil), names...),
		index: index,
	}, nil
}

func (e *EnumEncoding) Names() []string { return e.names }

func (e *EnumEncoding) Value(name string) (EnumValue, bool) {
	i, ok := e.index[name]
	return EnumValue{Name: name, Ordinal: i}, ok
}

func (e *EnumEncoding) Read(r *keys.Reader) (EnumValue, error) {
	start := r.Offset()
	u, err := r.ReadUvarint()
	if err != nil {
		return EnumValue{}, err
	}
	if u >= uint64(len(e.names)) {
		r.Reset(start)
		return EnumValue{}, ErrInvalid
	}
	return EnumValue{Name: e.names[u], Ordinal: int(u)}, nil
}

func (e *EnumEncoding) Write(w *keys.Writer, v EnumValue) error {
	if _, err := e.Convert(v); err != nil {
		return err
	}
	w.PutUvarint(uint64(v.Ordinal))
	return nil
}

func (e *EnumEncoding) Skip(r *keys.Reader) error {
	_, err := e.Read(r)
	return err
}

func (e *EnumEncoding) Compare(a, b EnumValue) int { return a.Ordinal - b.Ordinal }

func (e *EnumEncoding) Convert(v any) (EnumValue, error) {
	switch x := v.(type) {
	case EnumValue:
		if x.Ordinal < 0 || x.Ordinal >= len(e.names) || e.names[x.Ordinal] != x.Name {
			return EnumValue{}, invalid("%v is not a constant of %s", x, e.id)
		}
		return x, nil
	case string:
		if ev, ok := e.Value(x); ok {
			return ev, nil
		}
		return EnumValue{}, invalid("%q is not a constant of %s", x, e.id)
	case int:
		if x < 0 || x >= len(e.names) {
			return EnumValue{}, invalid("ordinal %d out of range for %s", x, e.id)
		}
		return EnumValue{Name: e.names[x], Ordinal: x}, nil
	}
	return EnumValue{}, invalid("expected enum value, got %T", v)
}

func (e *EnumEncoding) Default() EnumValue { return EnumValue{Name: e.names[0]} }

func (e *EnumEncoding) Format(v EnumValue) string { return v.Name }

func (e *EnumEncoding) Parse(s string) (EnumValue, error) { return e.Convert(s) }
