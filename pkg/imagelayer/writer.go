package imagelayer

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/nainya/pageserver/pkg/ids"
	"github.com/nainya/pageserver/pkg/storagekey"
)

// Writer builds one image layer file. It moves through a strict state
// machine: Writing, then exactly one of Finished or Aborted. There is no
// destructor in Go, so a caller that does not reach Finish must call
// Abort itself to unlink the partial file and release the write lock;
// see Abort's doc comment.
type Writer struct {
	path       string
	tenantID   ids.TenantID
	timelineID ids.TimelineID
	keyRange   storagekey.Range
	lsn        uint64

	file *os.File
	lock *flock.Flock

	insertOrder []storagekey.Key
	offsets     map[storagekey.Key]uint64
	valuesEnd   uint64 // bytes written to the VALUES chapter so far

	finished bool
	aborted  bool
}

// NewWriter creates path and begins writing an image layer covering
// keyRange as of lsn. The file is created with O_EXCL: image layers are
// named after their own content, so a second writer for the same name
// indicates a logic error upstream, not a legitimate overwrite.
func NewWriter(path string, tenantID ids.TenantID, timelineID ids.TimelineID, keyRange storagekey.Range, lsn uint64) (*Writer, error) {
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("imagelayer: lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("imagelayer: %s is already being written", path)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
	if err != nil {
		lock.Unlock()
		os.Remove(path + ".lock")
		return nil, fmt.Errorf("imagelayer: create %s: %w", path, err)
	}

	var magic [4]byte
	binary.BigEndian.PutUint32(magic[:], Magic)
	if _, err := f.Write(magic[:]); err != nil {
		f.Close()
		os.Remove(path)
		lock.Unlock()
		os.Remove(path + ".lock")
		return nil, fmt.Errorf("imagelayer: write magic to %s: %w", path, err)
	}

	return &Writer{
		path:       path,
		tenantID:   tenantID,
		timelineID: timelineID,
		keyRange:   keyRange,
		lsn:        lsn,
		file:       f,
		lock:       lock,
		offsets:    make(map[storagekey.Key]uint64),
	}, nil
}

// PutImage adds one page image to the layer. Keys must be put in the
// caller's own order (typically block order); the writer does not sort
// and does not accept the same key twice.
func (w *Writer) PutImage(key storagekey.Key, img []byte) error {
	if w.finished || w.aborted {
		return ErrWriterClosed
	}
	if !w.keyRange.Contains(key) {
		return fmt.Errorf("%w: key %s not in range [%s, %s)", ErrKeyOutOfRange, key, w.keyRange.Start, w.keyRange.End)
	}
	if _, exists := w.offsets[key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, key)
	}

	blob := encodeBlob(img)
	if _, err := w.file.Write(blob); err != nil {
		return fmt.Errorf("imagelayer: write value for %s: %w", key, err)
	}
	w.offsets[key] = w.valuesEnd
	w.insertOrder = append(w.insertOrder, key)
	w.valuesEnd += uint64(len(blob))
	return nil
}

// Finish closes out the chapters in order (VALUES, already written;
// then INDEX, then SUMMARY, then the trailer and footer), fsyncs, and
// returns an Unloaded Reader for the new file. The writer is unusable
// afterward.
func (w *Writer) Finish() (*Reader, error) {
	if w.finished || w.aborted {
		return nil, ErrWriterClosed
	}

	valuesOffset := uint64(magicLen)
	valuesLen := w.valuesEnd

	indexBuf := encodeIndex(w.insertOrder, w.offsets)
	indexOffset := valuesOffset + valuesLen
	if _, err := w.file.Write(indexBuf); err != nil {
		return nil, fmt.Errorf("imagelayer: write index chapter: %w", err)
	}

	summary := Summary{TenantID: w.tenantID, TimelineID: w.timelineID, KeyRange: w.keyRange, LSN: w.lsn}
	summaryBuf := summary.encode()
	summaryOffset := indexOffset + uint64(len(indexBuf))
	if _, err := w.file.Write(summaryBuf); err != nil {
		return nil, fmt.Errorf("imagelayer: write summary chapter: %w", err)
	}

	trailerOffset := summaryOffset + uint64(len(summaryBuf))
	trailer := encodeTrailer([]trailerEntry{
		{ID: ChapterValues, Offset: valuesOffset, Length: valuesLen},
		{ID: ChapterIndex, Offset: indexOffset, Length: uint64(len(indexBuf))},
		{ID: ChapterSummary, Offset: summaryOffset, Length: uint64(len(summaryBuf))},
	})
	if _, err := w.file.Write(trailer); err != nil {
		return nil, fmt.Errorf("imagelayer: write trailer: %w", err)
	}

	var footer [footerLen]byte
	binary.BigEndian.PutUint64(footer[:], trailerOffset)
	if _, err := w.file.Write(footer[:]); err != nil {
		return nil, fmt.Errorf("imagelayer: write footer: %w", err)
	}

	if err := w.file.Sync(); err != nil {
		return nil, fmt.Errorf("imagelayer: fsync %s: %w", w.path, err)
	}
	if err := w.file.Close(); err != nil {
		return nil, fmt.Errorf("imagelayer: close %s: %w", w.path, err)
	}
	w.lock.Unlock()
	os.Remove(w.path + ".lock")
	w.finished = true

	return NewReaderFromIdentity(w.path, w.tenantID, w.timelineID, w.keyRange, w.lsn), nil
}

// Abort discards a partially written layer: it unlinks the file and
// releases the write lock. Callers that construct a Writer and then
// decide not to call Finish (an error mid-build, a cancelled checkpoint)
// must call Abort to avoid leaking a half-written file and a held lock.
func (w *Writer) Abort() error {
	if w.finished || w.aborted {
		return nil
	}
	w.aborted = true
	var errs []error
	if err := w.file.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := os.Remove(w.path); err != nil && !os.IsNotExist(err) {
		errs = append(errs, err)
	}
	w.lock.Unlock()
	if err := os.Remove(w.path + ".lock"); err != nil && !os.IsNotExist(err) {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("imagelayer: abort %s: %v", w.path, errs)
	}
	return nil
}

// Dir returns the directory the writer's file lives in, for callers
// that need to fsync the containing directory after a rename.
func (w *Writer) Dir() string { return filepath.Dir(w.path) }
