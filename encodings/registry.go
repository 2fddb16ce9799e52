package encodings

import (
	"errors"
	"fmt"
	"strings"

	"github.com/drpcorg/kladov/kladov_errors"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/puzpuzpuz/xsync/v3"
)

// Registry resolves encoding ids. Plain ids are registered explicitly;
// parametric ids (nullable<..>, array<..>, tuple<..>, enum(..)) are built on
// demand and cached.
type Registry struct {
	byID   *xsync.MapOf[ID, Encoding]
	parsed *lru.Cache[ID, Encoding]
}

const parsedCacheSize = 1024

// NewRegistry returns a registry holding the built-in encodings.
func NewRegistry() *Registry {
	cache, _ := lru.New[ID, Encoding](parsedCacheSize)
	r := &Registry{
		byID:   xsync.NewMapOf[ID, Encoding](),
		parsed: cache,
	}
	for _, e := range []Encoding{
		Erase(Bool),
		Erase(Int8),
		Erase(Int16),
		Erase(Int32),
		Erase(Int64),
		Erase(FixedInt64),
		Erase(Uint64),
		Erase(Float64),
		Erase(String),
		Erase(Bytes),
		Erase(Time),
		Erase(UUID),
		Erase(ObjID),
		Reference.Genericize(),
	} {
		r.byID.Store(e.ID(), e)
	}
	return r
}

func (r *Registry) Register(e Encoding) error {
	if strings.ContainsAny(string(e.ID()), "<>()") {
		return errors.Join(kladov_errors.ErrInvalidValue, fmt.Errorf("encoding id %q is reserved", e.ID()))
	}
	if _, loaded := r.byID.LoadOrStore(e.ID(), e); loaded {
		return errors.Join(kladov_errors.ErrDuplicateEncoding, fmt.Errorf("encoding %q", e.ID()))
	}
	return nil
}

func (r *Registry) Lookup(id ID) (Encoding, error) {
	if e, ok := r.byID.Load(id); ok {
		return e, nil
	}
	if e, ok := r.parsed.Get(id); ok {
		return e, nil
	}
	e, err := r.parse(string(id))
	if err != nil {
		return nil, err
	}
	r.parsed.Add(id, e)
	return e, nil
}

func (r *Registry) MustLookup(id ID) Encoding {
	e, err := r.Lookup(id)
	if err != nil {
		panic(err)
	}
	return e
}

func (r *Registry) IDs() []ID {
	var ids []ID
	r.byID.Range(func(id ID, _ Encoding) bool {
		ids = append(ids, id)
		return true
	})
	return ids
}

func unknown(id string) error {
	return errors.Join(kladov_errors.ErrUnknownEncoding, fmt.Errorf("encoding %q", id))
}

func (r *Registry) parse(id string) (Encoding, error) {
	if strings.HasPrefix(id, "enum(") && strings.HasSuffix(id, ")") {
		names := strings.Split(id[len("enum("):len(id)-1], ",")
		e, err := NewEnum(names...)
		if err != nil {
			return nil, errors.Join(unknown(id), err)
		}
		return Erase[EnumValue](e), nil
	}
	open := strings.IndexByte(id, '<')
	if open <= 0 || !strings.HasSuffix(id, ">") {
		return nil, unknown(id)
	}
	args, err := splitArgs(id[open+1 : len(id)-1])
	if err != nil {
		return nil, errors.Join(unknown(id), err)
	}
	params := make([]Encoding, len(args))
	for i, a := range args {
		if params[i], err = r.Lookup(ID(a)); err != nil {
			return nil, err
		}
	}
	switch id[:open] {
	case "nullable":
		if len(params) == 1 {
			return Nullable(params[0]), nil
		}
	case "array":
		if len(params) == 1 {
			return Erase[[]any](NewArray(Untyped(params[0]))), nil
		}
	case "tuple":
		if len(params) >= 2 {
			return Erase[[]any](NewTuple(params...)), nil
		}
	}
	return nil, unknown(id)
}

// splitArgs splits a comma separated list at nesting depth zero.
func splitArgs(s string) ([]string, error) {
	var out []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<', '(':
			depth++
		case '>', ')':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced %q", s)
			}
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced %q", s)
	}
	out = append(out, s[start:])
	for _, a := range out {
		if a == "" {
			return nil, fmt.Errorf("empty argument in %q", s)
		}
	}
	return out, nil
}
