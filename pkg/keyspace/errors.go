package keyspace

import "errors"

// ErrInvalidKey is returned by the inverse decoders when a key's tag byte
// (F1) does not match what the decoder expects.
var ErrInvalidKey = errors.New("keyspace: unrecognized tag byte")

// ErrUnrecognizedSlruKind is returned when a key's F2 field does not
// decode to a known SlruKind.
var ErrUnrecognizedSlruKind = errors.New("keyspace: unrecognized slru kind")
