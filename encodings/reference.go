package encodings

import (
	"slices"
	"strconv"
	"strings"

	"github.com/drpcorg/kladov/keys"
	"github.com/drpcorg/kladov/oid"
)

type objIDEncoding struct{ meta }

// ObjID encodes non-null object ids as their raw eight bytes.
var ObjID Of[oid.ID] = objIDEncoding{meta{id: "objid", typeName: "oid.ID", width: oid.Size, natural: true}}

func readID(r *keys.Reader) (oid.ID, error) {
	start := r.Offset()
	b, err := r.ReadN(oid.Size)
	if err != nil {
		return oid.Nil, err
	}
	id, err := oid.FromBytes(b)
	if err != nil {
		r.Reset(start)
		return oid.Nil, ErrInvalid
	}
	return id, nil
}

func (objIDEncoding) Read(r *keys.Reader) (oid.ID, error) { return readID(r) }

func (objIDEncoding) Write(w *keys.Writer, v oid.ID) error {
	if !v.Valid() {
		return invalid("invalid object id %s", v)
	}
	w.Put(v[:]...)
	return nil
}

func (objIDEncoding) Skip(r *keys.Reader) error { return r.Skip(oid.Size) }

func (objIDEncoding) Compare(a, b oid.ID) int { return a.Compare(b) }

func (objIDEncoding) Convert(v any) (oid.ID, error) {
	switch id := v.(type) {
	case oid.ID:
		if !id.Valid() {
			return oid.Nil, invalid("invalid object id %s", id)
		}
		return id, nil
	case string:
		return objIDEncoding{}.Parse(id)
	}
	return oid.Nil, invalid("expected oid.ID, got %T", v)
}

func (objIDEncoding) Default() oid.ID { return oid.Nil }

func (objIDEncoding) Format(v oid.ID) string { return v.String() }

func (objIDEncoding) Parse(s string) (oid.ID, error) {
	id, err := oid.Parse(s)
	if err != nil {
		return oid.Nil, invalid("bad object id %q", s)
	}
	return id, nil
}

const nullByte = 0xff

// ReferenceEncoding is the nullable object id encoding of reference fields.
// oid.Nil stands for null and sorts last. A non-empty restriction limits
// which object types may be referenced.
type ReferenceEncoding struct {
	meta
	allowed []uint64
}

var Reference = NewReference()

func NewReference(allowedTypes ...uint64) *ReferenceEncoding {
	allowed := slices.Clone(allowedTypes)
	slices.Sort(allowed)
	allowed = slices.Compact(allowed)
	return &ReferenceEncoding{
		meta:    meta{id: "reference", typeName: "oid.ID", width: -1, null: true, pFF: true},
		allowed: allowed,
	}
}

// AllowedTypes lists the permitted target type storage ids; empty means any.
func (e *ReferenceEncoding) AllowedTypes() []uint64 { return e.allowed }

func (e *ReferenceEncoding) Allows(typeSID uint64) bool {
	if len(e.allowed) == 0 {
		return true
	}
	_, found := slices.BinarySearch(e.allowed, typeSID)
	return found
}

func (e *ReferenceEncoding) Read(r *keys.Reader) (oid.ID, error) {
	b, err := r.Peek()
	if err != nil {
		return oid.Nil, err
	}
	if b == nullByte {
		_ = r.Skip(1)
		return oid.Nil, nil
	}
	return readID(r)
}

func (e *ReferenceEncoding) Write(w *keys.Writer, v oid.ID) error {
	if v.IsNil() {
		w.PutByte(nullByte)
		return nil
	}
	if _, err := e.Convert(v); err != nil {
		return err
	}
	w.Put(v[:]...)
	return nil
}

func (e *ReferenceEncoding) Skip(r *keys.Reader) error {
	b, err := r.Peek()
	if err != nil {
		return err
	}
	if b == nullByte {
		return r.Skip(1)
	}
	return r.Skip(oid.Size)
}

func (e *ReferenceEncoding) Compare(a, b oid.ID) int {
	switch {
	case a.IsNil() && b.IsNil():
		return 0
	case a.IsNil():
		return 1
	case b.IsNil():
		return -1
	}
	return a.Compare(b)
}

func (e *ReferenceEncoding) Convert(v any) (oid.ID, error) {
	var id oid.ID
	switch x := v.(type) {
	case nil:
		return oid.Nil, nil
	case oid.ID:
		id = x
	case *oid.ID:
		if x == nil {
			return oid.Nil, nil
		}
		id = *x
	case string:
		if x == "null" {
			return oid.Nil, nil
		}
		p, err := oid.Parse(x)
		if err != nil {
			return oid.Nil, invalid("bad object id %q", x)
		}
		id = p
	default:
		return oid.Nil, invalid("expected oid.ID, got %T", v)
	}
	if id.IsNil() {
		return id, nil
	}
	if !id.Valid() {
		return oid.Nil, invalid("invalid object id %s", id)
	}
	if !e.Allows(id.TypeSID()) {
		return oid.Nil, invalid("object %s has disallowed type #%d", id, id.TypeSID())
	}
	return id, nil
}

func (e *ReferenceEncoding) Default() oid.ID { return oid.Nil }

func (e *ReferenceEncoding) Format(v oid.ID) string { return v.String() }

func (e *ReferenceEncoding) Parse(s string) (oid.ID, error) { return e.Convert(s) }

func (e *ReferenceEncoding) Genericize() Encoding { return Erase[oid.ID](Reference) }

func (e *ReferenceEncoding) restriction() string {
	parts := make([]string, len(e.allowed))
	for i, sid := range e.allowed {
		parts[i] = strconv.FormatUint(sid, 10)
	}
	return strings.Join(parts, ",")
}
