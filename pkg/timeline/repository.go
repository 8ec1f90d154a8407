package timeline

import (
	"fmt"
	"time"

	"github.com/nainya/pageserver/pkg/wal"
)

// MemTimelineRepository adapts a MemTimeline and the WAL durably backing
// it to the tenant package's Repository interface. A MemTimeline has
// nothing to spill on checkpoint — every committed transaction is
// already durable in w by the time txbuffer.Buffer.Finish returns, via
// NewDurable's writeLog — so CheckpointIteration here reduces to exactly
// what wal.Checkpointer itself does: stamp w with tl.LastRecordLSN and
// reclaim the WAL segments that LSN makes redundant.
type MemTimelineRepository struct {
	tl *MemTimeline
	cp *wal.Checkpointer
}

// NewMemTimelineRepository returns a Repository checkpointing w against
// tl's own last-record LSN.
func NewMemTimelineRepository(tl *MemTimeline, w *wal.WAL) *MemTimelineRepository {
	return &MemTimelineRepository{
		tl: tl,
		cp: wal.NewCheckpointer(w, tl),
	}
}

// CheckpointIteration ignores distance: MemTimeline keeps no notion of
// bytes accumulated since the last checkpoint, so every call
// checkpoints unconditionally.
func (r *MemTimelineRepository) CheckpointIteration(distance uint64) error {
	if err := r.cp.Checkpoint(); err != nil {
		return fmt.Errorf("timeline: checkpoint iteration: %w", err)
	}
	return nil
}

// GCIteration is a no-op: MemTimeline retains every version of every key
// forever and has no on-disk layers to collect.
func (r *MemTimelineRepository) GCIteration(horizon uint64, pitrInterval time.Duration, compact bool) error {
	return nil
}
