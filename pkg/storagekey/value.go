package storagekey

import "fmt"

// Value is the tagged variant stored at each (key, lsn): either a full
// base image or an opaque WAL record consumed later by walredo. It
// replaces a class hierarchy with a closed type switch, matching the
// original's Image|WalRecord enum.
type Value interface {
	isValue()
}

// Image is a complete page or metadata blob (typically 8 KiB for a page,
// variable length for directory/control-file blobs).
type Image []byte

func (Image) isValue() {}

// WalRecord is an opaque payload later applied to a preceding Image by
// walredo to reconstruct a page. The storage layer never interprets its
// contents.
type WalRecord []byte

func (WalRecord) isValue() {}

// AsImage returns the bytes and true if v is an Image, else nil and false.
func AsImage(v Value) ([]byte, bool) {
	img, ok := v.(Image)
	if !ok {
		return nil, false
	}
	return []byte(img), true
}

// IsImage reports whether v carries a base image rather than a WAL record.
func IsImage(v Value) bool {
	_, ok := v.(Image)
	return ok
}

// valueTagImage and valueTagWalRecord distinguish Image from WalRecord in
// EncodeValue's wire form; a bare byte slice on its own carries no type
// information.
const (
	valueTagImage     = 0
	valueTagWalRecord = 1
)

// EncodeValue serializes v as a one-byte type tag followed by its raw
// bytes, for callers that persist a Value outside the Timeline interface
// (a durability log, a test fixture).
func EncodeValue(v Value) []byte {
	switch val := v.(type) {
	case Image:
		return append([]byte{valueTagImage}, val...)
	case WalRecord:
		return append([]byte{valueTagWalRecord}, val...)
	default:
		panic(fmt.Sprintf("storagekey: unknown Value type %T", v))
	}
}

// DecodeValue is EncodeValue's inverse.
func DecodeValue(buf []byte) (Value, error) {
	if len(buf) == 0 {
		return nil, fmt.Errorf("storagekey: empty encoded value")
	}
	payload := append([]byte(nil), buf[1:]...)
	switch buf[0] {
	case valueTagImage:
		return Image(payload), nil
	case valueTagWalRecord:
		return WalRecord(payload), nil
	default:
		return nil, fmt.Errorf("storagekey: unknown value tag %d", buf[0])
	}
}
