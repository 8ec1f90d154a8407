package datadir

import "errors"

// ErrLSNOutOfScope is returned when a read targets an lsn below the
// timeline's retained history: the data needed to answer it may already
// have been garbage collected.
var ErrLSNOutOfScope = errors.New("datadir: lsn out of scope")

// ErrKeyNotFound is returned by non-page reads (control file, checkpoint,
// relmap file, two-phase file, directory lookups) when the underlying
// key has no value at the requested lsn. Page reads past end-of-relation
// return the zero page instead of this error.
var ErrKeyNotFound = errors.New("datadir: key not found")
