package directory

import "errors"

// ErrCorruptDirectory is returned when a directory blob is too short or
// has a count inconsistent with its remaining length.
var ErrCorruptDirectory = errors.New("directory: corrupt serialized directory blob")

// ErrDuplicateInsert is returned by callers wrapping Insert when the
// entry being added is already a member of the directory.
var ErrDuplicateInsert = errors.New("directory: entry already exists")
