package imagelayer

import "errors"

var (
	// ErrCorruptLayer is returned when a file's on-disk structure (magic,
	// trailer, chapter lengths) is inconsistent.
	ErrCorruptLayer = errors.New("imagelayer: corrupt layer file")

	// ErrSummaryMismatch is returned by the strict, tenant-path loader when
	// the SUMMARY chapter disagrees with the identity the layer was opened
	// with (tenant, timeline, key range, LSN).
	ErrSummaryMismatch = errors.New("imagelayer: summary does not match expected layer identity")

	// ErrDuplicateKey is returned by Writer.PutImage when the same key is
	// put twice into one layer.
	ErrDuplicateKey = errors.New("imagelayer: duplicate key in layer")

	// ErrKeyOutOfRange is returned by Writer.PutImage when the key falls
	// outside the layer's declared key range.
	ErrKeyOutOfRange = errors.New("imagelayer: key outside layer's key range")

	// ErrWriterClosed is returned by writer methods called after Finish or
	// Abort.
	ErrWriterClosed = errors.New("imagelayer: writer already finished or aborted")

	// ErrPreconditionViolated is returned when a caller violates a
	// documented precondition of a reader method (LSN ordering, key range
	// membership) rather than letting the library assert and panic.
	ErrPreconditionViolated = errors.New("imagelayer: precondition violated")

	// ErrInvalidFilename is returned when a layer filename does not match
	// the "<key_start>-<key_end>__<lsn>" pattern.
	ErrInvalidFilename = errors.New("imagelayer: malformed layer filename")
)
