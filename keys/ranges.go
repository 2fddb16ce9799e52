package keys

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
)

// KeyRange is the half-open interval [Min, Max). A nil Max means no upper
// limit; Min is never nil for a normalized range.
type KeyRange struct {
	Min []byte
	Max []byte
}

func Full() KeyRange { return KeyRange{Min: []byte{}} }

// ForPrefix is the range of all keys starting with prefix.
func ForPrefix(prefix []byte) KeyRange {
	return KeyRange{Min: Clone(prefix), Max: PrefixEnd(prefix)}
}

func (r KeyRange) Contains(key []byte) bool {
	return bytes.Compare(key, r.Min) >= 0 && (r.Max == nil || bytes.Compare(key, r.Max) < 0)
}

func (r KeyRange) IsEmpty() bool {
	return r.Max != nil && bytes.Compare(r.Min, r.Max) >= 0
}

func (r KeyRange) IsFull() bool {
	return len(r.Min) == 0 && r.Max == nil
}

func (r KeyRange) Intersect(o KeyRange) KeyRange {
	out := KeyRange{Min: r.Min, Max: r.Max}
	if bytes.Compare(o.Min, out.Min) > 0 {
		out.Min = o.Min
	}
	if CompareMax(o.Max, out.Max) < 0 {
		out.Max = o.Max
	}
	if out.Min == nil {
		out.Min = []byte{}
	}
	return out
}

func (r KeyRange) String() string {
	max := "+inf"
	if r.Max != nil {
		max = String(r.Max)
	}
	return fmt.Sprintf("[%s,%s)", String(r.Min), max)
}

// KeyRanges is a sorted list of disjoint, non-adjacent, non-empty ranges.
// It is the exact KeyFilter: Contains and both seeks are precise.
type KeyRanges struct {
	ranges []KeyRange
}

// NewKeyRanges normalizes arbitrary ranges: empties dropped, overlaps merged.
func NewKeyRanges(ranges ...KeyRange) KeyRanges {
	list := make([]KeyRange, 0, len(ranges))
	for _, r := range ranges {
		if r.Min == nil {
			r.Min = []byte{}
		}
		if !r.IsEmpty() {
			list = append(list, r)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		return bytes.Compare(list[i].Min, list[j].Min) < 0
	})
	out := list[:0]
	for _, r := range list {
		if n := len(out); n > 0 && out[n-1].Max != nil && bytes.Compare(r.Min, out[n-1].Max) <= 0 {
			if CompareMax(r.Max, out[n-1].Max) > 0 {
				out[n-1].Max = r.Max
			}
			continue
		}
		if n := len(out); n > 0 && out[n-1].Max == nil {
			continue
		}
		out = append(out, r)
	}
	return KeyRanges{ranges: out}
}

func FullRanges() KeyRanges { return KeyRanges{ranges: []KeyRange{Full()}} }

func EmptyRanges() KeyRanges { return KeyRanges{} }

func PrefixRanges(prefix []byte) KeyRanges { return NewKeyRanges(ForPrefix(prefix)) }

func (rs KeyRanges) Ranges() []KeyRange { return rs.ranges }

func (rs KeyRanges) Len() int { return len(rs.ranges) }

func (rs KeyRanges) IsEmpty() bool { return len(rs.ranges) == 0 }

func (rs KeyRanges) IsFull() bool { return len(rs.ranges) == 1 && rs.ranges[0].IsFull() }

// Span is the smallest single range covering every range.
func (rs KeyRanges) Span() KeyRange {
	if len(rs.ranges) == 0 {
		return KeyRange{Min: []byte{}, Max: []byte{}}
	}
	return KeyRange{Min: rs.ranges[0].Min, Max: rs.ranges[len(rs.ranges)-1].Max}
}

// search returns the index of the first range whose Max is after key.
func (rs KeyRanges) search(key []byte) int {
	return sort.Search(len(rs.ranges), func(i int) bool {
		m := rs.ranges[i].Max
		return m == nil || bytes.Compare(m, key) > 0
	})
}

func (rs KeyRanges) Contains(key []byte) bool {
	i := rs.search(key)
	return i < len(rs.ranges) && bytes.Compare(rs.ranges[i].Min, key) <= 0
}

func (rs KeyRanges) SeekHigher(key []byte) ([]byte, bool) {
	i := rs.search(key)
	if i == len(rs.ranges) {
		return nil, false
	}
	if bytes.Compare(rs.ranges[i].Min, key) <= 0 {
		return key, true
	}
	return rs.ranges[i].Min, true
}

func (rs KeyRanges) SeekLower(key []byte) ([]byte, bool) {
	// last range with Min < key
	i := len(rs.ranges)
	if key != nil {
		i = sort.Search(len(rs.ranges), func(i int) bool {
			return bytes.Compare(rs.ranges[i].Min, key) >= 0
		})
	}
	if i == 0 {
		return nil, false
	}
	r := rs.ranges[i-1]
	if key == nil {
		return r.Max, true
	}
	if r.Max == nil || bytes.Compare(key, r.Max) <= 0 {
		return key, true
	}
	return r.Max, true
}

func (rs KeyRanges) Intersect(o KeyRanges) KeyRanges {
	var out []KeyRange
	i, j := 0, 0
	for i < len(rs.ranges) && j < len(o.ranges) {
		r := rs.ranges[i].Intersect(o.ranges[j])
		if !r.IsEmpty() {
			out = append(out, r)
		}
		if CompareMax(rs.ranges[i].Max, o.ranges[j].Max) < 0 {
			i++
		} else {
			j++
		}
	}
	return KeyRanges{ranges: out}
}

func (rs KeyRanges) Union(o KeyRanges) KeyRanges {
	all := make([]KeyRange, 0, len(rs.ranges)+len(o.ranges))
	all = append(all, rs.ranges...)
	all = append(all, o.ranges...)
	return NewKeyRanges(all...)
}

// Inverse is the complement within the full key space.
func (rs KeyRanges) Inverse() KeyRanges {
	var out []KeyRange
	prev := []byte{}
	for _, r := range rs.ranges {
		if bytes.Compare(prev, r.Min) < 0 {
			out = append(out, KeyRange{Min: prev, Max: r.Min})
		}
		if r.Max == nil {
			return KeyRanges{ranges: out}
		}
		prev = r.Max
	}
	out = append(out, KeyRange{Min: prev})
	return KeyRanges{ranges: out}
}

// Prefixed maps every range into the key space under prefix.
func (rs KeyRanges) Prefixed(prefix []byte) KeyRanges {
	out := make([]KeyRange, 0, len(rs.ranges))
	for _, r := range rs.ranges {
		pr := KeyRange{Min: Concat(prefix, r.Min), Max: PrefixEnd(prefix)}
		if r.Max != nil {
			pr.Max = Concat(prefix, r.Max)
		}
		out = append(out, pr)
	}
	return NewKeyRanges(out...)
}

func (rs KeyRanges) String() string {
	parts := make([]string, len(rs.ranges))
	for i, r := range rs.ranges {
		parts[i] = r.String()
	}
	return "{" + strings.Join(parts, ",") + "}"
}
