// Package keys holds the byte-level key algebra shared by encodings, indexes
// and stores. Keys compare as unsigned byte strings.
package keys

import (
	"bytes"
	"encoding/hex"
	"errors"
)

var (
	ErrTruncated = errors.New("kladov: truncated encoded value")
	ErrInvalid   = errors.New("kladov: invalid encoded value")
)

// Next returns the smallest key sorting strictly after key.
func Next(key []byte) []byte {
	next := make([]byte, len(key)+1)
	copy(next, key)
	return next
}

// PrefixEnd returns the smallest key sorting after every key that starts with
// prefix, or nil when no such key exists (empty prefix or all 0xff bytes).
func PrefixEnd(prefix []byte) []byte {
	for i := len(prefix) - 1; i >= 0; i-- {
		if prefix[i] != 0xff {
			end := make([]byte, i+1)
			copy(end, prefix)
			end[i]++
			return end
		}
	}
	return nil
}

// Concat allocates a fresh key holding all parts in order.
func Concat(parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func Clone(key []byte) []byte {
	if key == nil {
		return nil
	}
	return append(make([]byte, 0, len(key)), key...)
}

func HasPrefix(key, prefix []byte) bool {
	return bytes.HasPrefix(key, prefix)
}

func Compare(a, b []byte) int {
	return bytes.Compare(a, b)
}

// CompareMax compares upper bounds where nil stands for "no limit".
func CompareMax(a, b []byte) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return bytes.Compare(a, b)
}

// String renders a key for logs and error messages.
func String(key []byte) string {
	if key == nil {
		return "<nil>"
	}
	return hex.EncodeToString(key)
}
