package schema

import (
	"fmt"

	"github.com/drpcorg/kladov/encodings"
	"gopkg.in/yaml.v3"
)

type yamlSchema struct {
	Types []yamlType `yaml:"types"`
}

type yamlType struct {
	Name    string      `yaml:"name"`
	SID     uint64      `yaml:"sid"`
	Fields  []yamlField `yaml:"fields"`
	Indexes []yamlIndex `yaml:"indexes"`
}

type yamlField struct {
	Name          string     `yaml:"name"`
	SID           uint64     `yaml:"sid"`
	Kind          string     `yaml:"kind"`
	Encoding      string     `yaml:"encoding"`
	Indexed       bool       `yaml:"indexed"`
	Unique        bool       `yaml:"unique"`
	OnDelete      string     `yaml:"on_delete"`
	ForwardDelete bool       `yaml:"forward_delete"`
	AllowDeleted  *bool      `yaml:"allow_deleted"`
	Allowed       []string   `yaml:"allowed"`
	Element       *yamlField `yaml:"element"`
	Key           *yamlField `yaml:"key"`
	Value         *yamlField `yaml:"value"`
}

type yamlIndex struct {
	Name   string   `yaml:"name"`
	SID    uint64   `yaml:"sid"`
	Fields []string `yaml:"fields"`
}

// LoadYAML reads a schema document:
//
//	types:
//	  - name: Person
//	    sid: 10
//	    fields:
//	      - {name: name, sid: 11, kind: simple, encoding: string, indexed: true}
//	      - {name: friend, sid: 12, kind: reference, allowed: [Person], on_delete: nullify}
//	      - name: tags
//	        sid: 13
//	        kind: set
//	        element: {sid: 14, kind: simple, encoding: string, indexed: true}
//	    indexes:
//	      - {name: by_name_friend, sid: 20, fields: [name, friend]}
//
// Encodings are resolved through reg. References default to on_delete
// exception and allow_deleted true.
func LoadYAML(data []byte, reg *encodings.Registry) (*Schema, error) {
	var doc yamlSchema
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, invalid("parse schema: %v", err)
	}
	typeSIDs := make(map[string]uint64, len(doc.Types))
	for _, yt := range doc.Types {
		typeSIDs[yt.Name] = yt.SID
	}
	types := make([]*ObjType, 0, len(doc.Types))
	for _, yt := range doc.Types {
		t := &ObjType{Name: yt.Name, StorageID: yt.SID}
		for i := range yt.Fields {
			f, err := yt.Fields[i].build(reg, typeSIDs)
			if err != nil {
				return nil, fmt.Errorf("type %s: %w", yt.Name, err)
			}
			t.Fields = append(t.Fields, f)
		}
		for _, yi := range yt.Indexes {
			t.Indexes = append(t.Indexes, &CompositeIndex{Name: yi.Name, StorageID: yi.SID, FieldNames: yi.Fields})
		}
		types = append(types, t)
	}
	return New(types...)
}

func (yf *yamlField) build(reg *encodings.Registry, typeSIDs map[string]uint64) (*Field, error) {
	kind, err := ParseFieldKind(yf.Kind)
	if err != nil {
		return nil, invalid("field %q: %v", yf.Name, err)
	}
	f := &Field{
		Name:      yf.Name,
		StorageID: yf.SID,
		Kind:      kind,
		Indexed:   yf.Indexed,
		Unique:    yf.Unique,
	}
	if yf.Encoding != "" {
		if f.Encoding, err = reg.Lookup(encodings.ID(yf.Encoding)); err != nil {
			return nil, err
		}
	}
	if kind == Reference {
		if f.OnDelete, err = ParseDeleteAction(yf.OnDelete); err != nil {
			return nil, invalid("field %q: %v", yf.Name, err)
		}
		f.ForwardDelete = yf.ForwardDelete
		f.AllowDeleted = yf.AllowDeleted == nil || *yf.AllowDeleted
		for _, name := range yf.Allowed {
			sid, ok := typeSIDs[name]
			if !ok {
				return nil, invalid("field %q allows unknown type %q", yf.Name, name)
			}
			f.AllowedTypes = append(f.AllowedTypes, sid)
		}
	}
	for _, sub := range []*yamlField{yf.Element, yf.Key, yf.Value} {
		if sub == nil {
			continue
		}
		sf, err := sub.build(reg, typeSIDs)
		if err != nil {
			return nil, err
		}
		f.Sub = append(f.Sub, sf)
	}
	return f, nil
}
