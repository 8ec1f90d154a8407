// Package wal implements the durability log the transaction buffer
// appends to and the timeline recovers from: a sequence of typed
// put/delete/commit/checkpoint entries over storagekey.Key and
// storagekey.Value, rotated across segment files and truncated once a
// checkpoint LSN makes a segment's entries redundant.
package wal

import "errors"

var (
	// ErrCorrupted indicates a corrupted WAL entry (CRC mismatch).
	ErrCorrupted = errors.New("wal: corrupted entry")

	// ErrLogClosed indicates an operation on a closed WAL.
	ErrLogClosed = errors.New("wal: log closed")

	// ErrLogNotFound indicates WAL files don't exist.
	ErrLogNotFound = errors.New("wal: log not found")

	// ErrTruncated indicates a truncated WAL entry.
	ErrTruncated = errors.New("wal: truncated entry")
)
