// Package schema describes object types, their fields and indexes, and
// checks that a description is usable before any data is written with it.
package schema

import (
	"errors"
	"fmt"
	"slices"

	"github.com/drpcorg/kladov/encodings"
	"github.com/drpcorg/kladov/kladov_errors"
	"github.com/drpcorg/kladov/oid"
)

type ObjType struct {
	Name      string
	StorageID uint64
	Fields    Fields
	Indexes   []*CompositeIndex
}

func (t *ObjType) String() string { return fmt.Sprintf("%s#%d", t.Name, t.StorageID) }

func (t *ObjType) Field(name string) (*Field, error) {
	if i := t.Fields.FindName(name); i >= 0 {
		return t.Fields[i], nil
	}
	return nil, &kladov_errors.UnknownFieldError{Type: t.Name, Name: name}
}

func (t *ObjType) FieldBySID(sid uint64) (*Field, error) {
	if i := t.Fields.FindStorageID(sid); i >= 0 {
		return t.Fields[i], nil
	}
	return nil, &kladov_errors.UnknownFieldError{Type: t.Name, StorageID: sid}
}

// CompositeIndex indexes two to four simple or reference fields of one type
// together.
type CompositeIndex struct {
	Name       string
	StorageID  uint64
	FieldNames []string
	// Fields is resolved from FieldNames by New.
	Fields Fields
}

type IndexKind uint8

const (
	IndexSimple IndexKind = iota + 1
	IndexListElement
	IndexSetElement
	IndexMapKey
	IndexMapValue
	IndexComposite
)

func (k IndexKind) String() string {
	switch k {
	case IndexSimple:
		return "simple"
	case IndexListElement:
		return "list-element"
	case IndexSetElement:
		return "set-element"
	case IndexMapKey:
		return "map-key"
	case IndexMapValue:
		return "map-value"
	case IndexComposite:
		return "composite"
	}
	return fmt.Sprintf("IndexKind(%d)", uint8(k))
}

// IndexInfo locates one index of the schema.
type IndexInfo struct {
	Kind      IndexKind
	StorageID uint64
	Type      *ObjType
	// Field is the indexed field, or the collection owning Sub.
	Field     *Field
	Sub       *Field
	Composite *CompositeIndex
}

func (ix *IndexInfo) String() string {
	return fmt.Sprintf("%s index #%d on %s", ix.Kind, ix.StorageID, ix.Type.Name)
}

// Indexed is the field whose values lead the index keys; nil for
// composite indexes.
func (ix *IndexInfo) Indexed() *Field {
	switch ix.Kind {
	case IndexSimple:
		return ix.Field
	case IndexListElement, IndexSetElement, IndexMapKey, IndexMapValue:
		return ix.Sub
	case IndexComposite:
		return nil
	}
	panic(fmt.Sprintf("schema: unexpected index kind %s", ix.Kind))
}

// ValueEncodings are the encodings stored before the object id.
func (ix *IndexInfo) ValueEncodings() []encodings.Encoding {
	if ix.Kind == IndexComposite {
		out := make([]encodings.Encoding, len(ix.Composite.Fields))
		for i, f := range ix.Composite.Fields {
			out[i] = f.Encoding
		}
		return out
	}
	return []encodings.Encoding{ix.Indexed().Encoding}
}

// Trailing is the encoding stored after the object id: the list position
// for list elements, the map key for map values, nil otherwise.
func (ix *IndexInfo) Trailing() encodings.Encoding {
	switch ix.Kind {
	case IndexListElement:
		return encodings.Erase(encodings.Uint64)
	case IndexMapValue:
		return ix.Field.MapKey().Encoding
	}
	return nil
}

// IsReference reports indexes over reference values, which deletes walk
// backward.
func (ix *IndexInfo) IsReference() bool {
	f := ix.Indexed()
	return f != nil && f.Kind == Reference
}

type Schema struct {
	types     []*ObjType
	byName    map[string]*ObjType
	bySID     map[uint64]*ObjType
	indexes   map[uint64]*IndexInfo
	sorted    []*IndexInfo
	referrers []*IndexInfo
}

func invalid(format string, args ...any) error {
	return errors.Join(kladov_errors.ErrInvalidSchema, fmt.Errorf(format, args...))
}

// New validates the types and builds the lookup tables. Reference fields
// get their reference encoding and are always indexed.
func New(types ...*ObjType) (*Schema, error) {
	s := &Schema{
		byName:  make(map[string]*ObjType),
		bySID:   make(map[uint64]*ObjType),
		indexes: make(map[uint64]*IndexInfo),
	}
	sids := make(map[uint64]string)
	claim := func(sid uint64, what string) error {
		if sid == 0 {
			return invalid("%s has no storage id", what)
		}
		if prev, dup := sids[sid]; dup {
			return invalid("storage id %d used by both %s and %s", sid, prev, what)
		}
		sids[sid] = what
		return nil
	}
	for _, t := range types {
		if t.Name == "" {
			return nil, invalid("type #%d has no name", t.StorageID)
		}
		if _, dup := s.byName[t.Name]; dup {
			return nil, invalid("duplicate type name %q", t.Name)
		}
		if t.StorageID > oid.MaxTypeSID {
			return nil, invalid("type %s storage id exceeds %d", t.Name, oid.MaxTypeSID)
		}
		if err := claim(t.StorageID, "type "+t.Name); err != nil {
			return nil, err
		}
		s.types = append(s.types, t)
		s.byName[t.Name] = t
		s.bySID[t.StorageID] = t
	}
	for _, t := range s.types {
		for i, f := range t.Fields {
			if t.Fields.FindName(f.Name) != i {
				return nil, invalid("duplicate field %q in type %s", f.Name, t.Name)
			}
			if err := s.addField(t, f, claim); err != nil {
				return nil, err
			}
		}
		for _, ci := range t.Indexes {
			if err := s.addComposite(t, ci, claim); err != nil {
				return nil, err
			}
		}
	}
	for _, ix := range s.indexes {
		s.sorted = append(s.sorted, ix)
	}
	slices.SortFunc(s.sorted, func(a, b *IndexInfo) int {
		switch {
		case a.StorageID < b.StorageID:
			return -1
		case a.StorageID > b.StorageID:
			return 1
		}
		return 0
	})
	for _, ix := range s.sorted {
		if ix.Kind != IndexComposite && ix.IsReference() {
			s.referrers = append(s.referrers, ix)
		}
	}
	return s, nil
}

func (s *Schema) addField(t *ObjType, f *Field, claim func(uint64, string) error) error {
	if !f.validName() {
		return invalid("bad field name %q in type %s", f.Name, t.Name)
	}
	if err := claim(f.StorageID, "field "+t.Name+"."+f.Name); err != nil {
		return err
	}
	switch f.Kind {
	case Simple, Reference:
		if err := s.checkValueField(t, f, false); err != nil {
			return err
		}
		if f.Indexed {
			s.indexes[f.StorageID] = &IndexInfo{Kind: IndexSimple, StorageID: f.StorageID, Type: t, Field: f}
		}
		return nil
	case Counter:
		if f.Indexed || f.Unique || len(f.Sub) != 0 {
			return invalid("counter %s.%s cannot be indexed or have sub-fields", t.Name, f.Name)
		}
		return nil
	case List, Set, Map:
		want := 1
		if f.Kind == Map {
			want = 2
		}
		if len(f.Sub) != want {
			return invalid("%s %s.%s needs %d sub-field(s), has %d", f.Kind, t.Name, f.Name, want, len(f.Sub))
		}
		if f.Indexed || f.Unique {
			return invalid("collection %s.%s is indexed through its sub-fields", t.Name, f.Name)
		}
		kinds := map[FieldKind][]IndexKind{
			List: {IndexListElement},
			Set:  {IndexSetElement},
			Map:  {IndexMapKey, IndexMapValue},
		}[f.Kind]
		for i, sub := range f.Sub {
			if sub.Name == "" {
				sub.Name = f.Name + "." + subNames[f.Kind][i]
			}
			if err := claim(sub.StorageID, "sub-field "+t.Name+"."+sub.Name); err != nil {
				return err
			}
			if err := s.checkValueField(t, sub, true); err != nil {
				return err
			}
			if sub.Indexed {
				s.indexes[sub.StorageID] = &IndexInfo{Kind: kinds[i], StorageID: sub.StorageID, Type: t, Field: f, Sub: sub}
			}
		}
		return nil
	}
	return invalid("field %s.%s has unknown kind %s", t.Name, f.Name, f.Kind)
}

var subNames = map[FieldKind][]string{
	List: {"element"},
	Set:  {"element"},
	Map:  {"key", "value"},
}

func (s *Schema) checkValueField(t *ObjType, f *Field, isSub bool) error {
	name := t.Name + "." + f.Name
	if len(f.Sub) != 0 {
		return invalid("%s cannot have sub-fields", name)
	}
	switch f.Kind {
	case Reference:
		for _, sid := range f.AllowedTypes {
			if _, ok := s.bySID[sid]; !ok {
				return &kladov_errors.UnknownTypeError{StorageID: sid}
			}
		}
		if f.OnDelete == Remove && !isSub {
			return invalid("%s: remove applies to collection elements only", name)
		}
		f.Encoding = encodings.Erase(encodings.NewReference(f.AllowedTypes...))
		f.Indexed = true
	case Simple:
		if f.Encoding == nil {
			return invalid("%s has no encoding", name)
		}
		if f.OnDelete != Ignore || f.ForwardDelete || len(f.AllowedTypes) != 0 {
			return invalid("%s: delete settings apply to references only", name)
		}
	default:
		return invalid("%s: %s is not allowed here", name, f.Kind)
	}
	if f.Unique && (isSub || !f.Indexed) {
		return invalid("%s: unique needs an indexed top-level field", name)
	}
	return nil
}

func (s *Schema) addComposite(t *ObjType, ci *CompositeIndex, claim func(uint64, string) error) error {
	if err := claim(ci.StorageID, "index "+t.Name+"."+ci.Name); err != nil {
		return err
	}
	if n := len(ci.FieldNames); n < 2 || n > 4 {
		return invalid("composite index %s.%s needs 2 to 4 fields, has %d", t.Name, ci.Name, n)
	}
	ci.Fields = ci.Fields[:0]
	for i, name := range ci.FieldNames {
		if slices.Index(ci.FieldNames, name) != i {
			return invalid("composite index %s.%s repeats field %q", t.Name, ci.Name, name)
		}
		f, err := t.Field(name)
		if err != nil {
			return err
		}
		if f.Kind != Simple && f.Kind != Reference {
			return invalid("composite index %s.%s: %s field %q", t.Name, ci.Name, f.Kind, name)
		}
		ci.Fields = append(ci.Fields, f)
	}
	s.indexes[ci.StorageID] = &IndexInfo{Kind: IndexComposite, StorageID: ci.StorageID, Type: t, Composite: ci}
	return nil
}

func (s *Schema) Types() []*ObjType { return s.types }

func (s *Schema) Type(name string) (*ObjType, error) {
	if t, ok := s.byName[name]; ok {
		return t, nil
	}
	return nil, &kladov_errors.UnknownTypeError{Name: name}
}

func (s *Schema) TypeBySID(sid uint64) (*ObjType, error) {
	if t, ok := s.bySID[sid]; ok {
		return t, nil
	}
	return nil, &kladov_errors.UnknownTypeError{StorageID: sid}
}

func (s *Schema) TypeOf(id oid.ID) (*ObjType, error) {
	return s.TypeBySID(id.TypeSID())
}

func (s *Schema) Index(sid uint64) (*IndexInfo, error) {
	if ix, ok := s.indexes[sid]; ok {
		return ix, nil
	}
	return nil, &kladov_errors.UnknownIndexError{StorageID: sid}
}

// CompositeIndex finds a composite index by type and index name.
func (s *Schema) CompositeIndex(typeName, name string) (*IndexInfo, error) {
	t, err := s.Type(typeName)
	if err != nil {
		return nil, err
	}
	for _, ci := range t.Indexes {
		if ci.Name == name {
			return s.indexes[ci.StorageID], nil
		}
	}
	return nil, &kladov_errors.UnknownIndexError{Name: typeName + "." + name}
}

// Indexes lists every index ordered by storage id.
func (s *Schema) Indexes() []*IndexInfo { return s.sorted }

// Referrers lists the reference indexes, ordered by storage id.
func (s *Schema) Referrers() []*IndexInfo { return s.referrers }

// TypeIndexes lists the indexes holding entries for objects of t.
func (s *Schema) TypeIndexes(t *ObjType) []*IndexInfo {
	var out []*IndexInfo
	for _, ix := range s.sorted {
		if ix.Type == t {
			out = append(out, ix)
		}
	}
	return out
}
