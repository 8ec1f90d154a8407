// Package storagekey defines the composite key and tagged value types that
// address every version of every page in the store.
package storagekey

import (
	"encoding/binary"
	"encoding/hex"
	"strings"
)

// EncodedLen is the size in bytes of a Key's big-endian wire encoding.
const EncodedLen = 1 + 4 + 4 + 4 + 1 + 4

// Key is the 144-bit (18-byte) composite address of a stored value:
// a six-field tuple serialized big-endian so that byte order equals
// field-major order. F1 is the tag byte that partitions the keyspace
// (relation space, SLRU, two-phase state, control file/checkpoint); the
// remaining fields are interpreted according to the tag, see package
// keyspace.
type Key struct {
	F1 uint8
	F2 uint32
	F3 uint32
	F4 uint32
	F5 uint8
	F6 uint32
}

// Bytes encodes the key to its big-endian wire form.
func (k Key) Bytes() [EncodedLen]byte {
	var buf [EncodedLen]byte
	buf[0] = k.F1
	binary.BigEndian.PutUint32(buf[1:5], k.F2)
	binary.BigEndian.PutUint32(buf[5:9], k.F3)
	binary.BigEndian.PutUint32(buf[9:13], k.F4)
	buf[13] = k.F5
	binary.BigEndian.PutUint32(buf[14:18], k.F6)
	return buf
}

// FromBytes decodes a key from its big-endian wire form.
func FromBytes(b [EncodedLen]byte) Key {
	return Key{
		F1: b[0],
		F2: binary.BigEndian.Uint32(b[1:5]),
		F3: binary.BigEndian.Uint32(b[5:9]),
		F4: binary.BigEndian.Uint32(b[9:13]),
		F5: b[13],
		F6: binary.BigEndian.Uint32(b[14:18]),
	}
}

// Compare returns -1, 0, or 1 as k is less than, equal to, or greater
// than other, under field-major lexicographic order (equivalently, the
// byte order of Bytes()).
func (k Key) Compare(other Key) int {
	a, b := k.Bytes(), other.Bytes()
	for i := range a {
		if a[i] < b[i] {
			return -1
		}
		if a[i] > b[i] {
			return 1
		}
	}
	return 0
}

// Less reports whether k sorts before other.
func (k Key) Less(other Key) bool {
	return k.Compare(other) < 0
}

// Range is a half-open key interval [Start, End).
type Range struct {
	Start Key
	End   Key
}

// Contains reports whether key falls within the half-open range.
func (r Range) Contains(key Key) bool {
	return !key.Less(r.Start) && key.Less(r.End)
}

// String renders the key as fixed-width uppercase hex, matching the form
// used inside image layer filenames.
func (k Key) String() string {
	b := k.Bytes()
	return strings.ToUpper(hex.EncodeToString(b[:]))
}
