package index

import (
	"fmt"

	"github.com/drpcorg/kladov/encodings"
	"github.com/drpcorg/kladov/keys"
)

// view is the arity independent part of every index view: a key prefix, the
// component encodings (values then target) and one optional filter per
// component. Views are values; every method returns a new one.
type view struct {
	prefix     []byte
	prefixMode bool
	encodings  []encodings.Encoding
	filters    []keys.KeyFilter
}

func newView(prefix []byte, prefixMode bool, encs ...encodings.Encoding) view {
	return view{
		prefix:     keys.Clone(prefix),
		prefixMode: prefixMode,
		encodings:  encs,
		filters:    make([]keys.KeyFilter, len(encs)),
	}
}

func (v view) Prefix() []byte { return v.prefix }

// PrefixMode reports whether stored keys may carry more components after
// the ones this view describes.
func (v view) PrefixMode() bool { return v.prefixMode }

func (v view) Encoding(i int) encodings.Encoding { return v.encodings[i] }

func (v view) ComponentFilter(i int) keys.KeyFilter { return v.filters[i] }

func (v view) String() string {
	return fmt.Sprintf("view{prefix=%s, prefixMode=%v, encodings=%v}", keys.String(v.prefix), v.prefixMode, v.encodings)
}

func (v view) filter(i int, f keys.KeyFilter) view {
	if i < 0 || i >= len(v.encodings) {
		panic(fmt.Sprintf("index: component %d out of range for %d components", i, len(v.encodings)))
	}
	if keys.IsFull(f) {
		return v
	}
	filters := append([]keys.KeyFilter(nil), v.filters...)
	filters[i] = keys.Intersect(filters[i], f)
	v.filters = filters
	return v
}

// leadingFilter filters full keys on the first n components only.
func (v view) leadingFilter(n int) keys.KeyFilter {
	last := -1
	for i := 0; i < n; i++ {
		if v.filters[i] != nil {
			last = i
		}
	}
	switch {
	case last < 0:
		return nil
	case last == 0:
		if rs, ok := v.filters[0].(keys.KeyRanges); ok {
			return rs.Prefixed(v.prefix)
		}
	}
	return NewEncodingsFilter(v.prefix, v.encodings[:last+1], v.filters[:last+1])
}

func (v view) keyFilter() keys.KeyFilter { return v.leadingFilter(len(v.encodings)) }

func (v view) dropLast() view {
	n := len(v.encodings) - 1
	return view{
		prefix:     v.prefix,
		prefixMode: true,
		encodings:  v.encodings[:n:n],
		filters:    v.filters[:n:n],
	}
}

// dropFirst removes the first n components, whose concrete encoded bytes
// are appended to the prefix.
func (v view) dropFirst(n int, valueBytes []byte) view {
	return view{
		prefix:     keys.Concat(v.prefix, valueBytes),
		prefixMode: v.prefixMode,
		encodings:  v.encodings[n:],
		filters:    v.filters[n:],
	}
}

// collapse merges the first n components into one tuple component.
func (v view) collapse(n int) view {
	encs := make([]encodings.Encoding, 0, len(v.encodings)-n+1)
	encs = append(encs, encodings.Erase[[]any](encodings.NewTuple(v.encodings[:n]...)))
	encs = append(encs, v.encodings[n:]...)
	filters := make([]keys.KeyFilter, 0, len(encs))
	var merged keys.KeyFilter
	for _, f := range v.filters[:n] {
		if f != nil {
			merged = NewEncodingsFilter(nil, v.encodings[:n], v.filters[:n])
			break
		}
	}
	filters = append(filters, merged)
	filters = append(filters, v.filters[n:]...)
	return view{prefix: v.prefix, prefixMode: v.prefixMode, encodings: encs, filters: filters}
}

// encodeValues writes up to n leading components; more values than n
// panic.
func (v view) encodeValues(n int, values []any) []byte {
	if len(values) > n {
		panic(fmt.Sprintf("index: %d values given for %d components", len(values), n))
	}
	w := keys.NewWriter(len(v.prefix) + 16)
	w.Put(v.prefix...)
	for i, val := range values {
		if err := v.encodings[i].WriteAny(w, val); err != nil {
			panic(fmt.Sprintf("index: component %d: %v", i, err))
		}
	}
	return w.Bytes()
}

// TargetView describes the targets stored under one concrete value.
type TargetView struct {
	view
}

func (t TargetView) KeyFilter() keys.KeyFilter { return t.keyFilter() }

// View1 has one value component and a target.
type View1 struct{ view }

func NewView1(prefix []byte, prefixMode bool, value, target encodings.Encoding) View1 {
	return View1{newView(prefix, prefixMode, value, target)}
}

func (v View1) Filter(i int, f keys.KeyFilter) View1 { return View1{v.filter(i, f)} }

func (v View1) KeyFilter() keys.KeyFilter { return v.keyFilter() }

// TargetView is the view of the targets under valueBytes.
func (v View1) TargetView(valueBytes []byte) TargetView {
	return TargetView{v.dropFirst(1, valueBytes)}
}

// View2 has two value components and a target.
type View2 struct{ view }

func NewView2(prefix []byte, prefixMode bool, v1, v2, target encodings.Encoding) View2 {
	return View2{newView(prefix, prefixMode, v1, v2, target)}
}

func (v View2) Filter(i int, f keys.KeyFilter) View2 { return View2{v.filter(i, f)} }

func (v View2) KeyFilter() keys.KeyFilter { return v.keyFilter() }

// AsView1 drops the target; the second value becomes the target.
func (v View2) AsView1() View1 { return View1{v.dropLast()} }

// AsView1WithPrefix fixes the first value to the encoded v1.
func (v View2) AsView1WithPrefix(v1 []byte) View1 { return View1{v.dropFirst(1, v1)} }

func (v View2) AsTuple2View1() View1 { return View1{v.collapse(2)} }

// View3 has three value components and a target.
type View3 struct{ view }

func NewView3(prefix []byte, prefixMode bool, v1, v2, v3, target encodings.Encoding) View3 {
	return View3{newView(prefix, prefixMode, v1, v2, v3, target)}
}

func (v View3) Filter(i int, f keys.KeyFilter) View3 { return View3{v.filter(i, f)} }

func (v View3) KeyFilter() keys.KeyFilter { return v.keyFilter() }

func (v View3) AsView2() View2 { return View2{v.dropLast()} }

func (v View3) AsView2WithPrefix(v1 []byte) View2 { return View2{v.dropFirst(1, v1)} }

func (v View3) AsTuple3View1() View1 { return View1{v.collapse(3)} }

func (v View3) AsTuple2View2() View2 { return View2{v.collapse(2)} }

// View4 has four value components and a target.
type View4 struct{ view }

func NewView4(prefix []byte, prefixMode bool, v1, v2, v3, v4, target encodings.Encoding) View4 {
	return View4{newView(prefix, prefixMode, v1, v2, v3, v4, target)}
}

func (v View4) Filter(i int, f keys.KeyFilter) View4 { return View4{v.filter(i, f)} }

func (v View4) KeyFilter() keys.KeyFilter { return v.keyFilter() }

func (v View4) AsView3() View3 { return View3{v.dropLast()} }

func (v View4) AsView3WithPrefix(v1 []byte) View3 { return View3{v.dropFirst(1, v1)} }

func (v View4) AsTuple4View1() View1 { return View1{v.collapse(4)} }

func (v View4) AsTuple3View2() View2 { return View2{v.collapse(3)} }

func (v View4) AsTuple2View3() View3 { return View3{v.collapse(2)} }
