package wal

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"time"

	"github.com/nainya/pageserver/pkg/storagekey"
)

// OpType is the kind of change one Entry records.
type OpType byte

const (
	// OpPut represents a put of Value at Key.
	OpPut OpType = 1

	// OpDelete represents a range delete from Key (inclusive) to EndKey
	// (exclusive).
	OpDelete OpType = 2

	// OpCommit marks every entry sharing its TxnID as committed.
	OpCommit OpType = 3

	// OpCheckpoint marks the LSN below which every transaction is
	// already durable elsewhere.
	OpCheckpoint OpType = 4
)

// EntryHeaderSize is the fixed size of the entry header: LSN(8) +
// TxnID(8) + OpType(1) + Reserved(7) + ValLen(4) + Timestamp(8) +
// Key(storagekey.EncodedLen) + EndKey(storagekey.EncodedLen). Key and
// EndKey ride in the header itself, rather than after it as
// variable-length fields, because every Key in this store is the same
// fixed width.
const EntryHeaderSize = 8 + 8 + 1 + 7 + 4 + 8 + 2*storagekey.EncodedLen

// Entry is a single record in the durability log: a put of Value at Key
// effective at LSN, a range delete from Key to EndKey effective at LSN,
// or a transaction boundary marker (OpCommit/OpCheckpoint) carrying no
// key or value. Key, EndKey, and Value only apply to the OpType they're
// documented against; reading them on the other OpTypes gives a
// meaningless zero value rather than an error.
type Entry struct {
	LSN       uint64
	TxnID     uint64
	OpType    OpType
	Key       storagekey.Key    // OpPut, OpDelete (range start)
	EndKey    storagekey.Key    // OpDelete (range end) only
	Value     storagekey.Value  // OpPut only
	Timestamp time.Time
}

// Encode serializes the entry to bytes with a CRC32 checksum.
// Format: [Header(EntryHeaderSize)] [Value] [CRC32(4)]
func (e *Entry) Encode() []byte {
	var valBytes []byte
	if e.OpType == OpPut {
		valBytes = storagekey.EncodeValue(e.Value)
	}
	valLen := len(valBytes)
	buf := make([]byte, EntryHeaderSize+valLen+4)

	binary.BigEndian.PutUint64(buf[0:8], e.LSN)
	binary.BigEndian.PutUint64(buf[8:16], e.TxnID)
	buf[16] = byte(e.OpType)
	// bytes 17-23 are reserved (padding)
	binary.BigEndian.PutUint32(buf[24:28], uint32(valLen))
	binary.BigEndian.PutUint64(buf[28:36], uint64(e.Timestamp.Unix()))
	kb := e.Key.Bytes()
	copy(buf[36:36+storagekey.EncodedLen], kb[:])
	eb := e.EndKey.Bytes()
	copy(buf[36+storagekey.EncodedLen:EntryHeaderSize], eb[:])

	offset := EntryHeaderSize
	copy(buf[offset:], valBytes)
	offset += valLen

	crc := crc32.ChecksumIEEE(buf[:offset])
	binary.BigEndian.PutUint32(buf[offset:offset+4], crc)

	return buf
}

// DecodeEntry deserializes a WAL entry from bytes.
func DecodeEntry(data []byte) (*Entry, error) {
	if len(data) < EntryHeaderSize+4 {
		return nil, ErrTruncated
	}

	dataLen := len(data)
	storedCRC := binary.BigEndian.Uint32(data[dataLen-4:])
	computedCRC := crc32.ChecksumIEEE(data[:dataLen-4])
	if storedCRC != computedCRC {
		return nil, ErrCorrupted
	}

	entry := &Entry{
		LSN:    binary.BigEndian.Uint64(data[0:8]),
		TxnID:  binary.BigEndian.Uint64(data[8:16]),
		OpType: OpType(data[16]),
	}

	valLen := binary.BigEndian.Uint32(data[24:28])
	timestamp := binary.BigEndian.Uint64(data[28:36])
	entry.Timestamp = time.Unix(int64(timestamp), 0)

	var kb, eb [storagekey.EncodedLen]byte
	copy(kb[:], data[36:36+storagekey.EncodedLen])
	copy(eb[:], data[36+storagekey.EncodedLen:EntryHeaderSize])
	entry.Key = storagekey.FromBytes(kb)
	entry.EndKey = storagekey.FromBytes(eb)

	expectedSize := EntryHeaderSize + int(valLen) + 4
	if len(data) < expectedSize {
		return nil, ErrTruncated
	}

	if valLen > 0 {
		v, err := storagekey.DecodeValue(data[EntryHeaderSize : EntryHeaderSize+int(valLen)])
		if err != nil {
			return nil, err
		}
		entry.Value = v
	}

	return entry, nil
}

// String returns a human-readable representation of the entry.
func (e *Entry) String() string {
	opName := "UNKNOWN"
	switch e.OpType {
	case OpPut:
		opName = "PUT"
	case OpDelete:
		opName = "DELETE"
	case OpCommit:
		opName = "COMMIT"
	case OpCheckpoint:
		opName = "CHECKPOINT"
	}
	switch e.OpType {
	case OpPut:
		return fmt.Sprintf("WAL[LSN=%d TxnID=%d Op=%s Key=%s]", e.LSN, e.TxnID, opName, e.Key)
	case OpDelete:
		return fmt.Sprintf("WAL[LSN=%d TxnID=%d Op=%s Key=%s EndKey=%s]", e.LSN, e.TxnID, opName, e.Key, e.EndKey)
	default:
		return fmt.Sprintf("WAL[LSN=%d TxnID=%d Op=%s]", e.LSN, e.TxnID, opName)
	}
}
