// Package keyspace maps PostgreSQL-level concepts (relations, forks, SLRU
// segments, two-phase state, control file, checkpoint) onto the
// storagekey.Key space, and builds the half-open ranges used for bulk
// range deletes.
package keyspace

import "fmt"

// Standard PostgreSQL fork numbers. Values match PostgreSQL's own
// ForkNumber enum; only FSM and VISIBILITYMAP are referenced by the
// datadir package's size-tolerance rule, but all four are named so
// callers can build RelTag values without reaching for a different
// package.
const (
	MainForkNum          uint8 = 0
	FSMForkNum           uint8 = 1
	VisibilityMapForkNum uint8 = 2
	InitForkNum          uint8 = 3
)

// RelTag identifies one fork of one PostgreSQL relation.
type RelTag struct {
	SpcNode uint32
	DbNode  uint32
	RelNode uint32
	ForkNum uint8
}

// String renders the tag the way log lines and errors reference it:
// "spc/db/relnode fork".
func (t RelTag) String() string {
	return fmt.Sprintf("%d/%d/%d fork %d", t.SpcNode, t.DbNode, t.RelNode, t.ForkNum)
}

// SlruKind enumerates PostgreSQL's "simple LRU" segmented metadata stores.
type SlruKind uint8

const (
	SlruClog              SlruKind = 0
	SlruMultiXactMembers   SlruKind = 1
	SlruMultiXactOffsets  SlruKind = 2
)

func (k SlruKind) String() string {
	switch k {
	case SlruClog:
		return "clog"
	case SlruMultiXactMembers:
		return "multixact_members"
	case SlruMultiXactOffsets:
		return "multixact_offsets"
	default:
		return "unknown"
	}
}

// sizeSentinel is the f6 value marking a size key rather than a block key;
// chosen so every block key of a relation/segment sorts before its size
// sentinel, letting one range enclose both.
const sizeSentinel uint32 = 0xFFFFFFFF
