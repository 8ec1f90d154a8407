// Package txbuffer implements the write transaction buffer: it batches
// key-value puts and range deletes at a single LSN and atomically hands
// them to the underlying timeline.
package txbuffer

import (
	"fmt"

	"github.com/nainya/pageserver/internal/metrics"
	"github.com/nainya/pageserver/pkg/storagekey"
	"github.com/nainya/pageserver/pkg/timeline"
	"github.com/nainya/pageserver/pkg/wal"
)

// Buffer accumulates writes for a single LSN before handing them to a
// Timeline. Puts and deletes are independent: a delete does not rewrite
// pending puts, so a put of a key inside a previously buffered delete
// range is still recorded as a pending put. Finish then applies puts
// before deletes, so if a delete range covers a key just put in the
// same buffer, the delete wins (see DESIGN.md's open-question note on
// this ordering).
type Buffer struct {
	tl  timeline.Timeline
	lsn uint64

	pendingPuts    map[storagekey.Key]storagekey.Value
	pendingDeletes []storagekey.Range

	finished bool

	metrics *metrics.Metrics
	log     *wal.WAL
}

// New returns a Buffer that will commit at lsn into tl. metrics may be
// nil.
func New(tl timeline.Timeline, lsn uint64, m *metrics.Metrics) *Buffer {
	return &Buffer{
		tl:          tl,
		lsn:         lsn,
		pendingPuts: make(map[storagekey.Key]storagekey.Value),
		metrics:     m,
	}
}

// NewDurable returns a Buffer like New, additionally appending every
// pending put and delete to log as a committed transaction before
// applying them to tl, so the transaction survives a crash between
// Finish's write to tl and the next checkpoint. log may be nil, in
// which case NewDurable behaves exactly like New.
func NewDurable(tl timeline.Timeline, lsn uint64, m *metrics.Metrics, log *wal.WAL) *Buffer {
	b := New(tl, lsn, m)
	b.log = log
	return b
}

// Put buffers value for key. A second put for the same key within this
// buffer replaces the first.
func (b *Buffer) Put(key storagekey.Key, value storagekey.Value) error {
	if b.finished {
		return ErrAlreadyFinished
	}
	b.pendingPuts[key] = value
	b.observePending()
	return nil
}

// Delete buffers a range delete. It is appended independently of
// pendingPuts; see the type doc comment.
func (b *Buffer) Delete(r storagekey.Range) error {
	if b.finished {
		return ErrAlreadyFinished
	}
	b.pendingDeletes = append(b.pendingDeletes, r)
	b.observePending()
	return nil
}

// Get reads through the buffer: a buffered Image is returned directly;
// a buffered WalRecord cannot be read back before being applied and
// reconstructed by walredo, so it fails with ErrWalRecordInRMW;
// anything not buffered falls back to the timeline at its current
// last-record LSN.
func (b *Buffer) Get(key storagekey.Key) ([]byte, error) {
	if b.finished {
		return nil, ErrAlreadyFinished
	}
	if v, ok := b.pendingPuts[key]; ok {
		if img, ok := storagekey.AsImage(v); ok {
			return img, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrWalRecordInRMW, key)
	}
	return b.tl.Get(key, b.tl.LastRecordLSN())
}

// Finish applies every pending put, then every pending delete, then
// advances the timeline's last-record LSN to the buffer's lsn. Puts
// before deletes is the order the reference implementation commits in;
// combined with a delete range that includes a key just put in the same
// buffer, the delete wins — see the Buffer type doc comment. The three
// steps are expected to be atomic from a reader's perspective; that
// guarantee is the underlying Timeline's responsibility, not this
// buffer's. The buffer is unusable afterward.
func (b *Buffer) Finish() error {
	if b.finished {
		return ErrAlreadyFinished
	}
	b.finished = true

	if b.log != nil {
		if err := b.writeLog(); err != nil {
			return fmt.Errorf("txbuffer: wal append @%d: %w", b.lsn, err)
		}
	}

	for key, value := range b.pendingPuts {
		if err := b.tl.Put(key, b.lsn, value); err != nil {
			return fmt.Errorf("txbuffer: put %s @%d: %w", key, b.lsn, err)
		}
	}
	for _, r := range b.pendingDeletes {
		if err := b.tl.Delete(r, b.lsn); err != nil {
			return fmt.Errorf("txbuffer: delete %s-%s @%d: %w", r.Start, r.End, b.lsn, err)
		}
	}
	if err := b.tl.AdvanceLastRecordLSN(b.lsn); err != nil {
		return fmt.Errorf("txbuffer: advance last record lsn to %d: %w", b.lsn, err)
	}

	if b.metrics != nil {
		b.metrics.TxBufferCommitsTotal.Inc()
		b.metrics.TxBufferPendingPuts.Set(0)
		b.metrics.TxBufferPendingDeletes.Set(0)
	}
	return nil
}

// LSN returns the buffer's target LSN.
func (b *Buffer) LSN() uint64 { return b.lsn }

// writeLog appends every pending put and delete as one WAL transaction
// at b.lsn (entry LSN and TxnID are the same value: every operation in
// a buffer commits atomically at one LSN, so the buffer's LSN already
// identifies the transaction), followed by a commit marker, then
// fsyncs. Entries are written in the same puts-then-deletes order
// Finish itself applies them in.
func (b *Buffer) writeLog() error {
	for key, value := range b.pendingPuts {
		entry := wal.Entry{LSN: b.lsn, TxnID: b.lsn, OpType: wal.OpPut, Key: key, Value: value}
		if err := b.log.Write(entry); err != nil {
			return err
		}
	}
	for _, r := range b.pendingDeletes {
		entry := wal.Entry{LSN: b.lsn, TxnID: b.lsn, OpType: wal.OpDelete, Key: r.Start, EndKey: r.End}
		if err := b.log.Write(entry); err != nil {
			return err
		}
	}
	if err := b.log.Write(wal.Entry{LSN: b.lsn, TxnID: b.lsn, OpType: wal.OpCommit}); err != nil {
		return err
	}
	return b.log.Fsync()
}

func (b *Buffer) observePending() {
	if b.metrics == nil {
		return
	}
	b.metrics.TxBufferPendingPuts.Set(float64(len(b.pendingPuts)))
	b.metrics.TxBufferPendingDeletes.Set(float64(len(b.pendingDeletes)))
}
