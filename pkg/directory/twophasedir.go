package directory

import "encoding/binary"

// TwoPhaseDirectory is the set of xids with a live prepared-transaction
// state file.
type TwoPhaseDirectory struct {
	xids orderedSet[uint32]
}

// NewTwoPhaseDirectory returns an empty TwoPhaseDirectory, as written by
// datadir.InitEmpty for a fresh timeline.
func NewTwoPhaseDirectory() *TwoPhaseDirectory {
	return &TwoPhaseDirectory{xids: newOrderedSet(lessUint32)}
}

// Insert adds xid and reports whether it was newly added.
func (d *TwoPhaseDirectory) Insert(xid uint32) bool {
	return d.xids.insert(xid)
}

// Remove deletes xid and reports whether it was present.
func (d *TwoPhaseDirectory) Remove(xid uint32) bool {
	return d.xids.remove(xid)
}

// Contains reports whether xid is tracked.
func (d *TwoPhaseDirectory) Contains(xid uint32) bool {
	return d.xids.contains(xid)
}

// Len reports the number of tracked xids.
func (d *TwoPhaseDirectory) Len() int { return d.xids.len() }

// List returns every tracked xid in sorted order.
func (d *TwoPhaseDirectory) List() []uint32 {
	out := make([]uint32, 0, d.xids.len())
	d.xids.ascend(func(x uint32) bool {
		out = append(out, x)
		return true
	})
	return out
}

// Serialize encodes the directory as a uint32 count followed by that many
// uint32 xids in sorted order.
func (d *TwoPhaseDirectory) Serialize() []byte {
	buf := make([]byte, 4, 4+d.xids.len()*4)
	binary.BigEndian.PutUint32(buf, uint32(d.xids.len()))
	d.xids.ascend(func(x uint32) bool {
		var entry [4]byte
		binary.BigEndian.PutUint32(entry[:], x)
		buf = append(buf, entry[:]...)
		return true
	})
	return buf
}

// DeserializeTwoPhaseDirectory decodes a blob written by Serialize.
func DeserializeTwoPhaseDirectory(buf []byte) (*TwoPhaseDirectory, error) {
	if len(buf) < 4 {
		return nil, ErrCorruptDirectory
	}
	count := binary.BigEndian.Uint32(buf[:4])
	d := NewTwoPhaseDirectory()
	off := 4
	for i := uint32(0); i < count; i++ {
		if off+4 > len(buf) {
			return nil, ErrCorruptDirectory
		}
		d.xids.insert(binary.BigEndian.Uint32(buf[off : off+4]))
		off += 4
	}
	return d, nil
}
