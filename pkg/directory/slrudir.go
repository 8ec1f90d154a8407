package directory

import "encoding/binary"

func lessUint32(a, b uint32) bool { return a < b }

// SlruSegmentDirectory is the set of segment numbers that exist for one
// SLRU kind (clog, multixact members, multixact offsets).
type SlruSegmentDirectory struct {
	segments orderedSet[uint32]
}

// NewSlruSegmentDirectory returns an empty SlruSegmentDirectory, as
// written by datadir.InitEmpty for each of the three SLRU kinds.
func NewSlruSegmentDirectory() *SlruSegmentDirectory {
	return &SlruSegmentDirectory{segments: newOrderedSet(lessUint32)}
}

// Insert adds segno and reports whether it was newly added.
func (d *SlruSegmentDirectory) Insert(segno uint32) bool {
	return d.segments.insert(segno)
}

// Remove deletes segno and reports whether it was present.
func (d *SlruSegmentDirectory) Remove(segno uint32) bool {
	return d.segments.remove(segno)
}

// Contains reports whether segno is tracked.
func (d *SlruSegmentDirectory) Contains(segno uint32) bool {
	return d.segments.contains(segno)
}

// Len reports the number of tracked segments.
func (d *SlruSegmentDirectory) Len() int { return d.segments.len() }

// List returns every tracked segment number in sorted order.
func (d *SlruSegmentDirectory) List() []uint32 {
	out := make([]uint32, 0, d.segments.len())
	d.segments.ascend(func(s uint32) bool {
		out = append(out, s)
		return true
	})
	return out
}

// Serialize encodes the directory as a uint32 count followed by that many
// uint32 segment numbers in sorted order.
func (d *SlruSegmentDirectory) Serialize() []byte {
	buf := make([]byte, 4, 4+d.segments.len()*4)
	binary.BigEndian.PutUint32(buf, uint32(d.segments.len()))
	d.segments.ascend(func(s uint32) bool {
		var entry [4]byte
		binary.BigEndian.PutUint32(entry[:], s)
		buf = append(buf, entry[:]...)
		return true
	})
	return buf
}

// DeserializeSlruSegmentDirectory decodes a blob written by Serialize.
func DeserializeSlruSegmentDirectory(buf []byte) (*SlruSegmentDirectory, error) {
	if len(buf) < 4 {
		return nil, ErrCorruptDirectory
	}
	count := binary.BigEndian.Uint32(buf[:4])
	d := NewSlruSegmentDirectory()
	off := 4
	for i := uint32(0); i < count; i++ {
		if off+4 > len(buf) {
			return nil, ErrCorruptDirectory
		}
		d.segments.insert(binary.BigEndian.Uint32(buf[off : off+4]))
		off += 4
	}
	return d, nil
}
