package kladov

import (
	"github.com/drpcorg/kladov/encodings"
	"github.com/drpcorg/kladov/keys"
	"github.com/drpcorg/kladov/oid"
)

/*
Content layout. Every key of an object starts with its id, so one range
delete drops the whole object:

	object        id                          -> flags
	simple field  id + fieldSID               -> value (absent: default)
	counter       id + fieldSID               -> 8 byte big-endian sum
	list element  id + fieldSID + uvarint(i)  -> value
	set element   id + fieldSID + element     -> empty
	map entry     id + fieldSID + key         -> value

Index entries have empty values and start with the storage id of the index:

	simple        fieldSID + value + id
	composite     indexSID + v1 + ... + vN + id
	list element  elemSID + value + id + uvarint(i)
	set element   elemSID + value + id
	map key       keySID + key + id
	map value     valueSID + value + id + key
*/

var liveFlags = []byte{0x01}

func objectKey(id oid.ID) []byte { return keys.Clone(id[:]) }

func objectEnd(id oid.ID) []byte { return keys.PrefixEnd(id[:]) }

func fieldKey(id oid.ID, sid uint64) []byte {
	return keys.AppendUvarint(keys.Clone(id[:]), sid)
}

func listPos(i uint64) []byte { return encodings.MustEncode(encodings.Uint64, i) }

func sidPrefix(sid uint64) []byte { return keys.Uvarint(sid) }

// entryKey joins an index storage id with encoded components.
func entryKey(sid uint64, parts ...[]byte) []byte {
	return keys.Concat(append([][]byte{sidPrefix(sid)}, parts...)...)
}

var objEnc = encodings.Erase(encodings.ObjID)
