package keyspace

import (
	"fmt"

	"github.com/nainya/pageserver/pkg/storagekey"
)

// KeyToRelBlock decodes a relation-space key back to its (RelTag, blknum)
// pair. It fails if the key's tag byte is not the relation-space tag.
func KeyToRelBlock(key storagekey.Key) (RelTag, uint32, error) {
	if key.F1 != tagRelation {
		return RelTag{}, 0, fmt.Errorf("%w: 0x%02x", ErrInvalidKey, key.F1)
	}
	return RelTag{
		SpcNode: key.F2,
		DbNode:  key.F3,
		RelNode: key.F4,
		ForkNum: key.F5,
	}, key.F6, nil
}

// KeyToSLRUBlock decodes an SLRU-space key back to its
// (kind, segno, blknum) triple.
func KeyToSLRUBlock(key storagekey.Key) (SlruKind, uint32, uint32, error) {
	if key.F1 != tagSlru {
		return 0, 0, 0, fmt.Errorf("%w: 0x%02x", ErrInvalidKey, key.F1)
	}
	kind, err := slruKindFromField2(key.F2)
	if err != nil {
		return 0, 0, 0, err
	}
	return kind, key.F4, key.F6, nil
}

// RelishTag is the decoded target of a key usable by a walredo-style
// reconstruction step: either a relation fork or an SLRU segment.
type RelishTag struct {
	IsSlru  bool
	Rel     RelTag
	Slru    SlruKind
	SlruSeg uint32
}

// KeyToRelishBlock decodes a key into the (RelishTag, blknum) pair it
// addresses. Only relation-space and SLRU-space keys decode; any other
// tag byte is an error. Callers should not assume the remaining fields
// are zeroed for tags this function does not special-case.
func KeyToRelishBlock(key storagekey.Key) (RelishTag, uint32, error) {
	switch key.F1 {
	case tagRelation:
		return RelishTag{
			Rel: RelTag{
				SpcNode: key.F2,
				DbNode:  key.F3,
				RelNode: key.F4,
				ForkNum: key.F5,
			},
		}, key.F6, nil
	case tagSlru:
		kind, err := slruKindFromField2(key.F2)
		if err != nil {
			return RelishTag{}, 0, err
		}
		return RelishTag{
			IsSlru:  true,
			Slru:    kind,
			SlruSeg: key.F4,
		}, key.F6, nil
	default:
		return RelishTag{}, 0, fmt.Errorf("%w: 0x%02x", ErrInvalidKey, key.F1)
	}
}

func slruKindFromField2(f2 uint32) (SlruKind, error) {
	switch f2 {
	case uint32(SlruClog):
		return SlruClog, nil
	case uint32(SlruMultiXactMembers):
		return SlruMultiXactMembers, nil
	case uint32(SlruMultiXactOffsets):
		return SlruMultiXactOffsets, nil
	default:
		return 0, fmt.Errorf("%w: 0x%02x", ErrUnrecognizedSlruKind, f2)
	}
}
