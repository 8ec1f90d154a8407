package wal

import (
	"fmt"
	"time"
)

// DefaultCheckpointInterval is how often checkpoints are created.
const DefaultCheckpointInterval = 10 * time.Minute

// LSNSource is the minimal view of a Timeline a Checkpointer needs: how
// far it has durably advanced. *timeline.MemTimeline satisfies this
// without pkg/wal importing pkg/timeline.
type LSNSource interface {
	LastRecordLSN() uint64
}

// Checkpointer periodically stamps wal with tl's current last-record
// LSN and reclaims the segment files that precede it: once tl has
// advanced past a segment's highest LSN, every write in that segment is
// already visible in tl and the segment is redundant.
type Checkpointer struct {
	wal      *WAL
	tl       LSNSource
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewCheckpointer returns a Checkpointer that stamps wal with tl's
// last-record LSN on each checkpoint.
func NewCheckpointer(wal *WAL, tl LSNSource) *Checkpointer {
	return &Checkpointer{
		wal:      wal,
		tl:       tl,
		interval: DefaultCheckpointInterval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start starts the background checkpointing process.
func (c *Checkpointer) Start() {
	go c.run()
}

// Stop stops the checkpointer.
func (c *Checkpointer) Stop() {
	close(c.stopCh)
	<-c.doneCh // Wait for goroutine to finish
}

// run is the main checkpointing loop.
func (c *Checkpointer) run() {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Checkpoint(); err != nil {
				// Log error but continue
				// In production, use proper logging
			}

		case <-c.stopCh:
			return
		}
	}
}

// Checkpoint writes and fsyncs a checkpoint marker entry (its LSN is the
// WAL's own next LSN), then reclaims any segment file that tl's current
// last-record LSN makes redundant.
func (c *Checkpointer) Checkpoint() error {
	lsn := c.tl.LastRecordLSN()

	entry := Entry{
		LSN:       c.wal.NextLSN(),
		TxnID:     0, // Checkpoint doesn't belong to a transaction
		OpType:    OpCheckpoint,
		Timestamp: time.Now(),
	}

	if err := c.wal.Write(entry); err != nil {
		return fmt.Errorf("write checkpoint entry failed: %w", err)
	}

	if err := c.wal.Fsync(); err != nil {
		return fmt.Errorf("fsync checkpoint failed: %w", err)
	}

	if err := c.wal.TruncateBefore(lsn); err != nil {
		return fmt.Errorf("truncate failed: %w", err)
	}

	return nil
}

// SetInterval changes the checkpoint interval.
func (c *Checkpointer) SetInterval(interval time.Duration) {
	c.interval = interval
}
