package directory

import "encoding/binary"

// dbEntry is one (tablespace, database) pair tracked by DbDirectory.
type dbEntry struct {
	SpcNode uint32
	DbNode  uint32
}

func lessDBEntry(a, b dbEntry) bool {
	if a.SpcNode != b.SpcNode {
		return a.SpcNode < b.SpcNode
	}
	return a.DbNode < b.DbNode
}

// DbDirectory is the set of (spcnode, dbnode) pairs that have a relmap
// file; datadir.Writer.PutRelMapFile adds them.
type DbDirectory struct {
	dbs orderedSet[dbEntry]
}

// NewDbDirectory returns an empty DbDirectory, as written by
// datadir.InitEmpty for a fresh timeline.
func NewDbDirectory() *DbDirectory {
	return &DbDirectory{dbs: newOrderedSet(lessDBEntry)}
}

// Insert adds (spcnode, dbnode) and reports whether it was newly added.
func (d *DbDirectory) Insert(spcnode, dbnode uint32) bool {
	return d.dbs.insert(dbEntry{SpcNode: spcnode, DbNode: dbnode})
}

// Remove deletes (spcnode, dbnode) and reports whether it was present.
func (d *DbDirectory) Remove(spcnode, dbnode uint32) bool {
	return d.dbs.remove(dbEntry{SpcNode: spcnode, DbNode: dbnode})
}

// Contains reports whether (spcnode, dbnode) is tracked.
func (d *DbDirectory) Contains(spcnode, dbnode uint32) bool {
	return d.dbs.contains(dbEntry{SpcNode: spcnode, DbNode: dbnode})
}

// Len reports the number of tracked databases.
func (d *DbDirectory) Len() int { return d.dbs.len() }

// List returns every tracked (spcnode, dbnode) pair in sorted order.
func (d *DbDirectory) List() [][2]uint32 {
	out := make([][2]uint32, 0, d.dbs.len())
	d.dbs.ascend(func(e dbEntry) bool {
		out = append(out, [2]uint32{e.SpcNode, e.DbNode})
		return true
	})
	return out
}

// Serialize encodes the directory as a stable big-endian blob: a uint32
// count followed by that many 8-byte (spcnode, dbnode) entries in sorted
// order.
func (d *DbDirectory) Serialize() []byte {
	buf := make([]byte, 4, 4+d.dbs.len()*8)
	binary.BigEndian.PutUint32(buf, uint32(d.dbs.len()))
	d.dbs.ascend(func(e dbEntry) bool {
		var entry [8]byte
		binary.BigEndian.PutUint32(entry[0:4], e.SpcNode)
		binary.BigEndian.PutUint32(entry[4:8], e.DbNode)
		buf = append(buf, entry[:]...)
		return true
	})
	return buf
}

// DeserializeDbDirectory decodes a blob written by Serialize.
func DeserializeDbDirectory(buf []byte) (*DbDirectory, error) {
	if len(buf) < 4 {
		return nil, ErrCorruptDirectory
	}
	count := binary.BigEndian.Uint32(buf[:4])
	d := NewDbDirectory()
	off := 4
	for i := uint32(0); i < count; i++ {
		if off+8 > len(buf) {
			return nil, ErrCorruptDirectory
		}
		spc := binary.BigEndian.Uint32(buf[off : off+4])
		db := binary.BigEndian.Uint32(buf[off+4 : off+8])
		d.dbs.insert(dbEntry{SpcNode: spc, DbNode: db})
		off += 8
	}
	return d, nil
}
