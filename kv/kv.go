// Defines the narrow ordered key-value interfaces kladov is built on.
package kv

import (
	"encoding/binary"
	"errors"
)

var ErrBadCounter = errors.New("kladov: malformed counter value")

type Reader interface {
	// Get returns nil, nil when the key is absent.
	Get(key []byte) ([]byte, error)
	// GetRange iterates keys in [min, max); a nil max means no upper limit.
	GetRange(min, max []byte, reverse bool) (Iterator, error)
}

type Writer interface {
	Put(key, value []byte) error
	Remove(key []byte) error
	// RemoveRange removes keys in [min, max); a nil max means no upper limit.
	RemoveRange(min, max []byte) error
	// Adjust adds delta to the counter stored at key.
	Adjust(key []byte, delta int64) error
}

type Store interface {
	Reader
	Writer
}

// Iterator is positioned before the first pair until Next is called.
// Key and Value return copies owned by the caller.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Err() error
	Close() error
}

type Transaction interface {
	Store
	Commit() error
	Rollback() error
}

type Database interface {
	Begin() (Transaction, error)
	Close() error
}

func EncodeCounter(v int64) []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(v))
}

func DecodeCounter(b []byte) (int64, error) {
	if len(b) != 8 {
		return 0, ErrBadCounter
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}
