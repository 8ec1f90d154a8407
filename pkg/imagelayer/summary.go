package imagelayer

import (
	"encoding/binary"
	"fmt"

	"github.com/nainya/pageserver/pkg/ids"
	"github.com/nainya/pageserver/pkg/storagekey"
)

const summaryLen = 16 + 16 + storagekey.EncodedLen*2 + 8

// Summary is the SUMMARY chapter: the layer's full identity, stored
// alongside the data so a reader can confirm it opened the file it
// thinks it opened.
type Summary struct {
	TenantID   ids.TenantID
	TimelineID ids.TimelineID
	KeyRange   storagekey.Range
	LSN        uint64
}

func (s Summary) encode() []byte {
	buf := make([]byte, 0, summaryLen)
	buf = append(buf, s.TenantID[:]...)
	buf = append(buf, s.TimelineID[:]...)
	startBytes := s.KeyRange.Start.Bytes()
	endBytes := s.KeyRange.End.Bytes()
	buf = append(buf, startBytes[:]...)
	buf = append(buf, endBytes[:]...)
	var lsn [8]byte
	binary.BigEndian.PutUint64(lsn[:], s.LSN)
	buf = append(buf, lsn[:]...)
	return buf
}

func decodeSummary(buf []byte) (Summary, error) {
	if len(buf) != summaryLen {
		return Summary{}, fmt.Errorf("%w: summary chapter has length %d, want %d", ErrCorruptLayer, len(buf), summaryLen)
	}
	var s Summary
	copy(s.TenantID[:], buf[0:16])
	copy(s.TimelineID[:], buf[16:32])
	off := 32
	var startBytes, endBytes [storagekey.EncodedLen]byte
	copy(startBytes[:], buf[off:off+storagekey.EncodedLen])
	off += storagekey.EncodedLen
	copy(endBytes[:], buf[off:off+storagekey.EncodedLen])
	off += storagekey.EncodedLen
	s.KeyRange = storagekey.Range{Start: storagekey.FromBytes(startBytes), End: storagekey.FromBytes(endBytes)}
	s.LSN = binary.BigEndian.Uint64(buf[off : off+8])
	return s, nil
}

// matchesIdentity reports whether s describes the same (tenant, timeline,
// key range, lsn) as the given fields, independent of file path.
func (s Summary) matchesIdentity(tenantID ids.TenantID, timelineID ids.TimelineID, keyRange storagekey.Range, lsn uint64) bool {
	return s.TenantID == tenantID &&
		s.TimelineID == timelineID &&
		s.KeyRange.Start.Compare(keyRange.Start) == 0 &&
		s.KeyRange.End.Compare(keyRange.End) == 0 &&
		s.LSN == lsn
}
