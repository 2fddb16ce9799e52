package schema

// An object type contains a number of fields. Every field and sub-field has
// a storage id, unique within the schema, which is the actual key of the
// field in the database: content keys are objID + fieldSID [+ sub-key] and
// index keys start with the storage id of the indexed field or sub-field.
// Collection fields (list, set, map) own their sub-fields and address them
// by position; sub-fields never point back to their parent.

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/drpcorg/kladov/encodings"
)

type FieldKind uint8

const (
	Simple FieldKind = iota + 1
	Reference
	Counter
	List
	Set
	Map
)

var kindNames = map[FieldKind]string{
	Simple:    "simple",
	Reference: "reference",
	Counter:   "counter",
	List:      "list",
	Set:       "set",
	Map:       "map",
}

func (k FieldKind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("FieldKind(%d)", uint8(k))
}

func ParseFieldKind(s string) (FieldKind, error) {
	for k, n := range kindNames {
		if strings.EqualFold(n, s) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown field kind %q", s)
}

// IsCollection reports list, set and map fields.
func (k FieldKind) IsCollection() bool { return k == List || k == Set || k == Map }

// DeleteAction says what happens to a reference when its target is deleted.
type DeleteAction uint8

const (
	Ignore DeleteAction = iota
	Exception
	Nullify
	// Remove drops the referring element; sub-fields only.
	Remove
	Delete
)

var actionNames = map[DeleteAction]string{
	Ignore:    "ignore",
	Exception: "exception",
	Nullify:   "nullify",
	Remove:    "remove",
	Delete:    "delete",
}

func (a DeleteAction) String() string {
	if n, ok := actionNames[a]; ok {
		return n
	}
	return fmt.Sprintf("DeleteAction(%d)", uint8(a))
}

func ParseDeleteAction(s string) (DeleteAction, error) {
	if s == "" {
		return Exception, nil
	}
	for a, n := range actionNames {
		if strings.EqualFold(n, s) {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown delete action %q", s)
}

type Field struct {
	Name      string
	StorageID uint64
	Kind      FieldKind
	// Encoding of simple and reference fields and of sub-fields; counters
	// and collections have none.
	Encoding encodings.Encoding
	Indexed  bool
	// Unique forbids two objects sharing a value other than the default.
	Unique bool

	// reference fields
	OnDelete      DeleteAction
	ForwardDelete bool
	AllowDeleted  bool
	AllowedTypes  []uint64

	// Sub holds the element of a list or set, or the key and value of a map.
	Sub Fields
}

func (f *Field) String() string {
	return fmt.Sprintf("%s#%d(%s)", f.Name, f.StorageID, f.Kind)
}

func (f *Field) IsReference() bool { return f.Kind == Reference }

// Element is the sub-field of a list or set.
func (f *Field) Element() *Field {
	if f.Kind != List && f.Kind != Set {
		panic(fmt.Sprintf("schema: %s has no element", f))
	}
	return f.Sub[0]
}

func (f *Field) MapKey() *Field {
	if f.Kind != Map {
		panic(fmt.Sprintf("schema: %s is not a map", f))
	}
	return f.Sub[0]
}

func (f *Field) MapValue() *Field {
	if f.Kind != Map {
		panic(fmt.Sprintf("schema: %s is not a map", f))
	}
	return f.Sub[1]
}

// AllowsType reports whether a reference field may point at the type.
func (f *Field) AllowsType(typeSID uint64) bool {
	if len(f.AllowedTypes) == 0 {
		return true
	}
	for _, t := range f.AllowedTypes {
		if t == typeSID {
			return true
		}
	}
	return false
}

func (f *Field) validName() bool {
	for _, l := range f.Name {
		if l < ' ' {
			return false
		}
	}
	return len(f.Name) > 0 && utf8.ValidString(f.Name)
}

type Fields []*Field

func (fs Fields) MaxStorageID() (sid uint64) {
	for _, f := range fs {
		if f.StorageID > sid {
			sid = f.StorageID
		}
		if m := f.Sub.MaxStorageID(); m > sid {
			sid = m
		}
	}
	return
}

func (fs Fields) FindName(name string) int {
	for i, f := range fs {
		if f.Name == name {
			return i
		}
	}
	return -1
}

func (fs Fields) FindStorageID(sid uint64) int {
	for i, f := range fs {
		if f.StorageID == sid {
			return i
		}
	}
	return -1
}
