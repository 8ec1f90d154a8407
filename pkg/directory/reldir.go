package directory

import "encoding/binary"

// relEntry is one (relnode, forknum) pair tracked by RelDirectory.
type relEntry struct {
	RelNode uint32
	ForkNum uint8
}

func lessRelEntry(a, b relEntry) bool {
	if a.RelNode != b.RelNode {
		return a.RelNode < b.RelNode
	}
	return a.ForkNum < b.ForkNum
}

// RelDirectory is the set of (relnode, forknum) pairs for relations that
// exist under one (tablespace, database) pair.
type RelDirectory struct {
	rels orderedSet[relEntry]
}

// NewRelDirectory returns an empty RelDirectory, as written by
// datadir.Writer.PutDbDirCreation for a new database.
func NewRelDirectory() *RelDirectory {
	return &RelDirectory{rels: newOrderedSet(lessRelEntry)}
}

// Insert adds (relnode, forknum) and reports whether it was newly added.
func (d *RelDirectory) Insert(relnode uint32, forknum uint8) bool {
	return d.rels.insert(relEntry{RelNode: relnode, ForkNum: forknum})
}

// Remove deletes (relnode, forknum) and reports whether it was present.
func (d *RelDirectory) Remove(relnode uint32, forknum uint8) bool {
	return d.rels.remove(relEntry{RelNode: relnode, ForkNum: forknum})
}

// Contains reports whether (relnode, forknum) is tracked.
func (d *RelDirectory) Contains(relnode uint32, forknum uint8) bool {
	return d.rels.contains(relEntry{RelNode: relnode, ForkNum: forknum})
}

// Len reports the number of tracked relation forks.
func (d *RelDirectory) Len() int { return d.rels.len() }

// List returns every tracked (relnode, forknum) pair in sorted order.
func (d *RelDirectory) List() []struct {
	RelNode uint32
	ForkNum uint8
} {
	out := make([]struct {
		RelNode uint32
		ForkNum uint8
	}, 0, d.rels.len())
	d.rels.ascend(func(e relEntry) bool {
		out = append(out, struct {
			RelNode uint32
			ForkNum uint8
		}{e.RelNode, e.ForkNum})
		return true
	})
	return out
}

// Serialize encodes the directory as a uint32 count followed by that many
// 5-byte (relnode, forknum) entries in sorted order.
func (d *RelDirectory) Serialize() []byte {
	buf := make([]byte, 4, 4+d.rels.len()*5)
	binary.BigEndian.PutUint32(buf, uint32(d.rels.len()))
	d.rels.ascend(func(e relEntry) bool {
		var entry [5]byte
		binary.BigEndian.PutUint32(entry[0:4], e.RelNode)
		entry[4] = e.ForkNum
		buf = append(buf, entry[:]...)
		return true
	})
	return buf
}

// DeserializeRelDirectory decodes a blob written by Serialize.
func DeserializeRelDirectory(buf []byte) (*RelDirectory, error) {
	if len(buf) < 4 {
		return nil, ErrCorruptDirectory
	}
	count := binary.BigEndian.Uint32(buf[:4])
	d := NewRelDirectory()
	off := 4
	for i := uint32(0); i < count; i++ {
		if off+5 > len(buf) {
			return nil, ErrCorruptDirectory
		}
		relnode := binary.BigEndian.Uint32(buf[off : off+4])
		forknum := buf[off+4]
		d.rels.insert(relEntry{RelNode: relnode, ForkNum: forknum})
		off += 5
	}
	return d, nil
}
