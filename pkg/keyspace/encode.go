package keyspace

import "github.com/nainya/pageserver/pkg/storagekey"

// Tag bytes partitioning the keyspace (storagekey.Key.F1).
const (
	tagRelation  uint8 = 0x00
	tagSlru      uint8 = 0x01
	tagTwoPhase  uint8 = 0x02
	tagControl   uint8 = 0x03
)

// DBDirKey is the well-known singleton key holding the serialized
// DbDirectory.
func DBDirKey() storagekey.Key {
	return storagekey.Key{F1: tagRelation}
}

// TwoPhaseDirKey is the well-known singleton key holding the serialized
// TwoPhaseDirectory.
func TwoPhaseDirKey() storagekey.Key {
	return storagekey.Key{F1: tagTwoPhase}
}

// ControlFileKey is the well-known singleton key holding the raw control
// file bytes.
func ControlFileKey() storagekey.Key {
	return storagekey.Key{F1: tagControl}
}

// CheckpointKey is the well-known singleton key holding the raw
// checkpoint bytes.
func CheckpointKey() storagekey.Key {
	return storagekey.Key{F1: tagControl, F6: 1}
}

// RelMapFileKey addresses the relmap file for one (tablespace, database).
func RelMapFileKey(spcnode, dbnode uint32) storagekey.Key {
	return storagekey.Key{F1: tagRelation, F2: spcnode, F3: dbnode}
}

// RelDirKey addresses the serialized RelDirectory for one
// (tablespace, database) pair.
func RelDirKey(spcnode, dbnode uint32) storagekey.Key {
	return storagekey.Key{F1: tagRelation, F2: spcnode, F3: dbnode, F6: 1}
}

// RelBlockToKey addresses one block of one relation fork.
func RelBlockToKey(rel RelTag, blknum uint32) storagekey.Key {
	return storagekey.Key{
		F1: tagRelation,
		F2: rel.SpcNode,
		F3: rel.DbNode,
		F4: rel.RelNode,
		F5: rel.ForkNum,
		F6: blknum,
	}
}

// RelSizeToKey addresses the nblocks size entry for one relation fork.
// F6 is the all-ones sentinel so every block key of the fork sorts before
// the size key.
func RelSizeToKey(rel RelTag) storagekey.Key {
	return storagekey.Key{
		F1: tagRelation,
		F2: rel.SpcNode,
		F3: rel.DbNode,
		F4: rel.RelNode,
		F5: rel.ForkNum,
		F6: sizeSentinel,
	}
}

// RelKeyRange spans every block and the size key of one relation fork:
// [forknum, forknum+1) at F5, full F6 range.
func RelKeyRange(rel RelTag) storagekey.Range {
	start := storagekey.Key{F1: tagRelation, F2: rel.SpcNode, F3: rel.DbNode, F4: rel.RelNode, F5: rel.ForkNum}
	end := storagekey.Key{F1: tagRelation, F2: rel.SpcNode, F3: rel.DbNode, F4: rel.RelNode, F5: rel.ForkNum + 1}
	return storagekey.Range{Start: start, End: end}
}

// DBDirKeyRange spans every rel directory, relmap file, relation, fork,
// and block under one (tablespace, database) pair.
func DBDirKeyRange(spcnode, dbnode uint32) storagekey.Range {
	start := storagekey.Key{F1: tagRelation, F2: spcnode, F3: dbnode}
	end := storagekey.Key{F1: tagRelation, F2: spcnode, F3: dbnode, F4: 0xFFFFFFFF, F5: 0xFF, F6: 0xFFFFFFFF}
	return storagekey.Range{Start: start, End: end}
}

// SlruDirKey addresses the serialized SlruSegmentDirectory for one kind.
func SlruDirKey(kind SlruKind) storagekey.Key {
	return storagekey.Key{F1: tagSlru, F2: uint32(kind)}
}

// SlruBlockToKey addresses one block of one SLRU segment.
func SlruBlockToKey(kind SlruKind, segno, blknum uint32) storagekey.Key {
	return storagekey.Key{F1: tagSlru, F2: uint32(kind), F3: 1, F4: segno, F6: blknum}
}

// SlruSegmentSizeToKey addresses the nblocks size entry for one SLRU
// segment.
func SlruSegmentSizeToKey(kind SlruKind, segno uint32) storagekey.Key {
	return storagekey.Key{F1: tagSlru, F2: uint32(kind), F3: 1, F4: segno, F6: sizeSentinel}
}

// SlruSegmentKeyRange spans every block and the size key of one SLRU
// segment.
//
// Known discrepancy (preserved, not fixed — see DESIGN.md): this range
// packs segno into F3, while SlruBlockToKey and SlruSegmentSizeToKey
// above pack segno into F4. The two encodings do not line up
// key-for-key; a caller relying on this range to bound the exact set of
// block/size keys for a segment will not get what they expect. Left as
// in the source this was translated from, pending a reconciliation
// that would unify on F4.
func SlruSegmentKeyRange(kind SlruKind, segno uint32) storagekey.Range {
	start := storagekey.Key{F1: tagSlru, F2: uint32(kind), F3: segno}
	end := storagekey.Key{F1: tagSlru, F2: uint32(kind), F3: segno, F5: 1}
	return storagekey.Range{Start: start, End: end}
}

// TwoPhaseFileKey addresses the serialized 2PC state file for one xid.
func TwoPhaseFileKey(xid uint32) storagekey.Key {
	return storagekey.Key{F1: tagTwoPhase, F6: xid}
}

// TwoPhaseKeyRange spans exactly one xid's key. The upper bound uses a
// wrapping increment on xid and bumps F5 on overflow, so the range
// remains well-formed (End strictly greater than Start) even when
// xid == 0xFFFFFFFF.
func TwoPhaseKeyRange(xid uint32) storagekey.Range {
	nextXid := xid + 1
	overflowed := nextXid < xid

	start := storagekey.Key{F1: tagTwoPhase, F6: xid}
	end := storagekey.Key{F1: tagTwoPhase, F6: nextXid}
	if overflowed {
		end.F5 = 1
	}
	return storagekey.Range{Start: start, End: end}
}
