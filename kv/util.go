package kv

import (
	"encoding/binary"

	"github.com/cespare/xxhash"
)

// First returns the first pair in [min, max), or nil when the range is empty.
func First(r Reader, min, max []byte) (key, value []byte, err error) {
	return edge(r, min, max, false)
}

// Last returns the last pair in [min, max), or nil when the range is empty.
func Last(r Reader, min, max []byte) (key, value []byte, err error) {
	return edge(r, min, max, true)
}

func edge(r Reader, min, max []byte, reverse bool) ([]byte, []byte, error) {
	it, err := r.GetRange(min, max, reverse)
	if err != nil {
		return nil, nil, err
	}
	defer it.Close()
	if !it.Next() {
		return nil, nil, it.Err()
	}
	return it.Key(), it.Value(), nil
}

// Count walks the range and counts its pairs.
func Count(r Reader, min, max []byte) (int, error) {
	it, err := r.GetRange(min, max, false)
	if err != nil {
		return 0, err
	}
	defer it.Close()
	n := 0
	for it.Next() {
		n++
	}
	return n, it.Err()
}

// Checksum digests every pair in [min, max) with xxhash. Equal ranges give
// equal digests; used to verify that an aborted operation wrote nothing.
func Checksum(r Reader, min, max []byte) (uint64, error) {
	it, err := r.GetRange(min, max, false)
	if err != nil {
		return 0, err
	}
	defer it.Close()
	h := xxhash.New()
	var lenbuf [binary.MaxVarintLen64]byte
	for it.Next() {
		k, v := it.Key(), it.Value()
		_, _ = h.Write(binary.AppendUvarint(lenbuf[:0], uint64(len(k))))
		_, _ = h.Write(k)
		_, _ = h.Write(binary.AppendUvarint(lenbuf[:0], uint64(len(v))))
		_, _ = h.Write(v)
	}
	return h.Sum64(), it.Err()
}
