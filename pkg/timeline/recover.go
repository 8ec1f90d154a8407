package timeline

import (
	"fmt"

	"github.com/nainya/pageserver/pkg/storagekey"
	"github.com/nainya/pageserver/pkg/wal"
)

// RecoverMemTimeline rebuilds a MemTimeline from every committed
// transaction in w: each OpPut/OpDelete entry txbuffer.Buffer.writeLog
// wrote is replayed at its original LSN, and the timeline's last-record
// LSN is advanced to the highest LSN seen. An empty or absent WAL yields
// an empty MemTimeline at LSN 0, matching a fresh InitEmpty target.
func RecoverMemTimeline(w *wal.WAL) (*MemTimeline, error) {
	tl := NewMemTimeline()
	var maxLSN uint64
	var sawAny bool

	replay := func(e *wal.Entry) error {
		sawAny = true
		if e.LSN > maxLSN {
			maxLSN = e.LSN
		}
		switch e.OpType {
		case wal.OpPut:
			return tl.Put(e.Key, e.LSN, e.Value)
		case wal.OpDelete:
			return tl.Delete(storagekey.Range{Start: e.Key, End: e.EndKey}, e.LSN)
		default:
			return fmt.Errorf("timeline: recover: unexpected wal op %v", e.OpType)
		}
	}

	if err := wal.NewRecovery(w).Recover(replay); err != nil {
		return nil, fmt.Errorf("timeline: recover: %w", err)
	}
	if sawAny {
		if err := tl.AdvanceLastRecordLSN(maxLSN); err != nil {
			return nil, fmt.Errorf("timeline: recover: %w", err)
		}
	}
	return tl, nil
}
