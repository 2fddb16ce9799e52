package index

import (
	"errors"

	"github.com/drpcorg/kladov/encodings"
	"github.com/drpcorg/kladov/keys"
)

// EncodingsFilter accepts keys made of prefix followed by one value of each
// encoding, where every component is accepted by its own filter. Component
// filters see only the bytes of their component; trailing bytes after the
// last component are ignored.
type EncodingsFilter struct {
	prefix    []byte
	encodings []encodings.Encoding
	filters   []keys.KeyFilter
}

// NewEncodingsFilter panics when the filter count differs from the encoding
// count. Nil entries accept anything.
func NewEncodingsFilter(prefix []byte, encs []encodings.Encoding, filters []keys.KeyFilter) *EncodingsFilter {
	if len(encs) != len(filters) {
		panic("index: encodings and filters differ in length")
	}
	if len(encs) == 0 {
		panic("index: empty encodings filter")
	}
	return &EncodingsFilter{
		prefix:    keys.Clone(prefix),
		encodings: append([]encodings.Encoding(nil), encs...),
		filters:   append([]keys.KeyFilter(nil), filters...),
	}
}

func (f *EncodingsFilter) Prefix() []byte { return f.prefix }

func (f *EncodingsFilter) Encodings() []encodings.Encoding { return f.encodings }

func (f *EncodingsFilter) Filter(i int) keys.KeyFilter { return f.filters[i] }

func (f *EncodingsFilter) Contains(key []byte) bool {
	if !keys.HasPrefix(key, f.prefix) {
		return false
	}
	r := keys.NewReader(key)
	_ = r.Skip(len(f.prefix))
	for i, enc := range f.encodings {
		start := r.Offset()
		if err := enc.Skip(r); err != nil {
			return false
		}
		if sub := f.filters[i]; sub != nil && !sub.Contains(key[start:r.Offset()]) {
			return false
		}
	}
	return true
}

func (f *EncodingsFilter) SeekHigher(key []byte) ([]byte, bool) {
	if !keys.HasPrefix(key, f.prefix) {
		if keys.Compare(key, f.prefix) < 0 {
			return keys.Clone(f.prefix), true
		}
		return nil, false
	}
	r := keys.NewReader(key)
	_ = r.Skip(len(f.prefix))
	for i, enc := range f.encodings {
		start := r.Offset()
		if r.Remain() == 0 {
			return keys.Next(key), true
		}
		if err := enc.Skip(r); err != nil {
			if errors.Is(err, encodings.ErrTruncated) {
				return keys.Next(key), true
			}
			end := keys.PrefixEnd(key)
			return end, end != nil
		}
		sub := f.filters[i]
		if sub == nil {
			continue
		}
		comp := key[start:r.Offset()]
		if sub.Contains(comp) {
			continue
		}
		next, ok := sub.SeekHigher(comp)
		if !ok {
			if i == 0 {
				return nil, false
			}
			end := keys.PrefixEnd(key[:start])
			return end, end != nil
		}
		spliced := keys.Concat(key[:start], next)
		if keys.Compare(spliced, key) <= 0 {
			return keys.Next(key), true
		}
		return spliced, true
	}
	return key, true
}

// SeekLower only skips backward when a component filter proves there is
// nothing to find; undecodable keys are returned unchanged.
func (f *EncodingsFilter) SeekLower(key []byte) ([]byte, bool) {
	if key == nil || !keys.HasPrefix(key, f.prefix) {
		if key != nil && keys.Compare(key, f.prefix) < 0 {
			return nil, false
		}
		return keys.PrefixEnd(f.prefix), true
	}
	r := keys.NewReader(key)
	_ = r.Skip(len(f.prefix))
	for i, enc := range f.encodings {
		start := r.Offset()
		if err := enc.Skip(r); err != nil {
			return key, true
		}
		sub := f.filters[i]
		if sub == nil {
			continue
		}
		comp := key[start:r.Offset()]
		if sub.Contains(comp) {
			continue
		}
		prev, ok := sub.SeekLower(comp)
		if !ok {
			if i == 0 {
				return nil, false
			}
			return keys.Clone(key[:start]), true
		}
		if prev == nil {
			return key, true
		}
		spliced := keys.Concat(key[:start], prev)
		if keys.Compare(spliced, key) > 0 {
			return key, true
		}
		return spliced, true
	}
	return key, true
}
