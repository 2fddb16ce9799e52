package oid

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/drpcorg/kladov/keys"
	"github.com/google/uuid"
)

/*
ID is the 64-bit object identifier. The leading bytes hold the object type
storage id as an ascending uvarint, the rest is random:

	0.......8......16......24......32......40......48......56......64
	+-------+-------+-------+-------+-------+-------+-------+-------+
	| type sid (1..4 bytes)  |..............random..................|

Sorting by ID therefore groups objects by type.
*/
type ID [Size]byte

const Size = 8

// MaxTypeSID keeps the type prefix within four bytes.
const MaxTypeSID = 0xffffff

var Nil ID

var ErrBadID = errors.New("kladov: malformed object id")

// New allocates a random id for an object of the given type.
func New(typeSID uint64) ID {
	if typeSID == 0 || typeSID > MaxTypeSID {
		panic(fmt.Sprintf("oid: type storage id %d out of range", typeSID))
	}
	var id ID
	prefix := keys.Uvarint(typeSID)
	n := copy(id[:], prefix)
	rnd := uuid.New()
	copy(id[n:], rnd[:])
	return id
}

func FromBytes(b []byte) (ID, error) {
	var id ID
	if len(b) != Size {
		return id, ErrBadID
	}
	copy(id[:], b)
	if _, err := id.typeSID(); err != nil {
		return Nil, err
	}
	return id, nil
}

func FromUint64(v uint64) ID {
	var id ID
	binary.BigEndian.PutUint64(id[:], v)
	return id
}

func Parse(s string) (ID, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Nil, errors.Join(ErrBadID, err)
	}
	return FromBytes(b)
}

func (id ID) typeSID() (uint64, error) {
	r := keys.NewReader(id[:])
	sid, err := r.ReadUvarint()
	if err != nil || sid == 0 || sid > MaxTypeSID {
		return 0, ErrBadID
	}
	return sid, nil
}

// TypeSID returns the storage id of the object's type; zero for invalid ids.
func (id ID) TypeSID() uint64 {
	sid, _ := id.typeSID()
	return sid
}

func (id ID) Valid() bool {
	_, err := id.typeSID()
	return err == nil
}

func (id ID) IsNil() bool { return id == Nil }

func (id ID) Bytes() []byte { return id[:] }

// Uint64 maps the id onto an integer with the same ordering.
func (id ID) Uint64() uint64 { return binary.BigEndian.Uint64(id[:]) }

func (id ID) Compare(other ID) int { return bytes.Compare(id[:], other[:]) }

func (id ID) String() string {
	if id.IsNil() {
		return "null"
	}
	return hex.EncodeToString(id[:])
}

// TypeRange covers the ids of every object of one type.
func TypeRange(typeSID uint64) keys.KeyRange {
	return keys.ForPrefix(keys.Uvarint(typeSID))
}
