package keys

import "bytes"

// KeyFilter describes a possibly infinite set of keys that can be walked by
// seeking rather than by testing every key.
//
// SeekHigher returns a key no greater than the smallest contained key that is
// >= key, or false when no contained key exists at or after key. It returns
// key itself exactly when key is contained.
//
// SeekLower returns an exclusive upper bound b <= key such that no contained
// key lies in [b, key), or false when no contained key sorts before key. A nil
// key stands for "past every key"; a nil bound with true means no limit.
type KeyFilter interface {
	Contains(key []byte) bool
	SeekHigher(key []byte) ([]byte, bool)
	SeekLower(key []byte) ([]byte, bool)
}

// IsFull reports filters that accept every key.
func IsFull(f KeyFilter) bool {
	if f == nil {
		return true
	}
	if rs, ok := f.(KeyRanges); ok {
		return rs.IsFull()
	}
	return false
}

// Intersect combines filters; nil and full filters are ignored. Two KeyRanges
// intersect exactly, anything else is walked by alternating seeks.
func Intersect(filters ...KeyFilter) KeyFilter {
	var list []KeyFilter
	for _, f := range filters {
		if IsFull(f) {
			continue
		}
		if in, ok := f.(intersection); ok {
			list = append(list, in...)
			continue
		}
		list = append(list, f)
	}
	var ranges *KeyRanges
	others := list[:0]
	for _, f := range list {
		if rs, ok := f.(KeyRanges); ok {
			if ranges == nil {
				ranges = &rs
			} else {
				merged := ranges.Intersect(rs)
				ranges = &merged
			}
			continue
		}
		others = append(others, f)
	}
	if ranges != nil {
		others = append(intersection{*ranges}, others...)
	}
	switch len(others) {
	case 0:
		return nil
	case 1:
		return others[0]
	}
	return intersection(others)
}

// maxSeekRounds bounds the alternation between filters. Stopping early still
// yields a valid lower bound, and it has moved past key unless key is
// contained.
const maxSeekRounds = 64

type intersection []KeyFilter

func (in intersection) Contains(key []byte) bool {
	for _, f := range in {
		if !f.Contains(key) {
			return false
		}
	}
	return true
}

func (in intersection) SeekHigher(key []byte) ([]byte, bool) {
	for round := 0; round < maxSeekRounds; round++ {
		moved := false
		for _, f := range in {
			next, ok := f.SeekHigher(key)
			if !ok {
				return nil, false
			}
			if bytes.Compare(next, key) > 0 {
				key = next
				moved = true
			}
		}
		if !moved {
			break
		}
	}
	return key, true
}

func (in intersection) SeekLower(key []byte) ([]byte, bool) {
	for round := 0; round < maxSeekRounds; round++ {
		moved := false
		for _, f := range in {
			prev, ok := f.SeekLower(key)
			if !ok {
				return nil, false
			}
			if prev != nil && CompareMax(prev, key) < 0 {
				key = prev
				moved = true
			}
		}
		if !moved {
			break
		}
	}
	return key, true
}
