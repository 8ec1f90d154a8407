package txbuffer

import "errors"

// ErrWalRecordInRMW is returned by Get when the buffered value for a
// key is a WalRecord: a transaction cannot read back its own
// not-yet-applied WAL record, only a full image.
var ErrWalRecordInRMW = errors.New("txbuffer: cannot read own WalRecord before it is applied")

// ErrAlreadyFinished is returned when Put, Delete, Get, or Finish is
// called on a buffer that has already been finished.
var ErrAlreadyFinished = errors.New("txbuffer: buffer already finished")
