// Package timeline defines the Timeline collaborator the rest of the
// store is built against: an append-only logical stream of
// (key, lsn, value) triples, with its own last-record-LSN monotonicity
// and writer exclusivity. The log-structured timeline writer, the
// layer map, and remote-storage replication that would back a real
// Timeline are out of scope here; this package only fixes the
// interface and supplies an in-memory reference implementation for
// tests.
package timeline

import (
	"github.com/nainya/pageserver/pkg/storagekey"
)

// Timeline is the lower-level collaborator the transaction buffer and
// datadir facade are built against.
type Timeline interface {
	// Get returns the value stored for key as of lsn (the latest write
	// at or before lsn).
	Get(key storagekey.Key, lsn uint64) ([]byte, error)
	// Put stores value for key, effective at lsn.
	Put(key storagekey.Key, lsn uint64, value storagekey.Value) error
	// Delete removes every key in the half-open range, effective at lsn.
	Delete(r storagekey.Range, lsn uint64) error
	// AdvanceLastRecordLSN strictly increases the timeline's last-record
	// LSN; readers at lsn' < lsn never observe writes made at lsn.
	AdvanceLastRecordLSN(lsn uint64) error
	// LastRecordLSN returns the most recently advanced-to LSN.
	LastRecordLSN() uint64
}
