package imagelayer

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/edsrzf/mmap-go"

	"github.com/nainya/pageserver/internal/logger"
	"github.com/nainya/pageserver/pkg/ids"
	"github.com/nainya/pageserver/pkg/storagekey"
)

// ReconstructResult is the outcome of GetValueReconstructData.
type ReconstructResult int

const (
	// ReconstructComplete means state now holds a full image; no older
	// layer needs to be consulted.
	ReconstructComplete ReconstructResult = iota
	// ReconstructMissing means this layer has no image for the key; the
	// caller must continue searching older layers.
	ReconstructMissing
)

// ReconstructState threads a page reconstruction search across layers,
// from newest to oldest, carrying forward a cached image once one layer
// supplies one.
type ReconstructState struct {
	Key       storagekey.Key
	LSN       uint64
	HasCached bool
	CachedLSN uint64
	CachedImg []byte
}

// Reader is a handle to one image layer file. It starts Unloaded (no
// index in memory; a NewReaderFromIdentity reader also has no file open
// yet) and transitions to Loaded on
// first use; the transition is idempotent and guarded by mu so
// concurrent callers share one load.
type Reader struct {
	mu sync.Mutex

	path   string
	strict bool // true: tenant-path loader, mismatch is fatal. false: bare-path debug loader, mismatch is a warning.
	log    *logger.Logger

	tenantID   ids.TenantID
	timelineID ids.TimelineID
	keyRange   storagekey.Range
	lsn        uint64

	loaded       bool
	file         *os.File
	data         mmap.MMap
	valuesOffset uint64
	index        map[storagekey.Key]uint64
}

// NewReaderFromIdentity builds the strict, tenant-path loader: the
// caller supplies the layer's identity (as parsed from the filename it
// found in the tenant's timeline directory), and load() will fail with
// ErrSummaryMismatch if the file's SUMMARY chapter disagrees.
func NewReaderFromIdentity(path string, tenantID ids.TenantID, timelineID ids.TimelineID, keyRange storagekey.Range, lsn uint64) *Reader {
	return &Reader{
		path:       path,
		strict:     true,
		tenantID:   tenantID,
		timelineID: timelineID,
		keyRange:   keyRange,
		lsn:        lsn,
	}
}

// NewReaderFromPath builds the bare-path debug loader: it reads the
// SUMMARY chapter immediately to learn the layer's identity (there is no
// tenant context to trust instead), and logs a warning here, rather than
// failing, if the file's actual name disagrees with the name its own
// summary implies. The file stays open and mapped for the later load().
func NewReaderFromPath(path string, log *logger.Logger) (*Reader, error) {
	r := &Reader{path: path, strict: false, log: log}
	if err := r.openAndMap(); err != nil {
		return nil, err
	}
	entries, err := r.readTrailer()
	if err != nil {
		r.closeMapping()
		return nil, err
	}
	summaryEntry, ok := chapterByID(entries, ChapterSummary)
	if !ok {
		r.closeMapping()
		return nil, fmt.Errorf("%w: no summary chapter in %s", ErrCorruptLayer, path)
	}
	summary, err := decodeSummary(r.data[summaryEntry.Offset : summaryEntry.Offset+summaryEntry.Length])
	if err != nil {
		r.closeMapping()
		return nil, err
	}
	r.tenantID = summary.TenantID
	r.timelineID = summary.TimelineID
	r.keyRange = summary.KeyRange
	r.lsn = summary.LSN

	expectedName := FormatFilename(r.keyRange, r.lsn)
	actualName := filepath.Base(path)
	if actualName != expectedName && r.log != nil {
		r.log.Warn("imagelayer: filename disagrees with summary").
			Str("path", path).
			Str("expected", expectedName).
			Str("actual", actualName).
			Send()
	}
	return r, nil
}

func (r *Reader) openAndMap() error {
	f, err := os.Open(r.path)
	if err != nil {
		return fmt.Errorf("imagelayer: open %s: %w", r.path, err)
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return fmt.Errorf("imagelayer: mmap %s: %w", r.path, err)
	}
	r.file = f
	r.data = data
	return nil
}

func (r *Reader) closeMapping() {
	if r.data != nil {
		r.data.Unmap()
		r.data = nil
	}
	if r.file != nil {
		r.file.Close()
		r.file = nil
	}
}

func (r *Reader) readTrailer() ([]trailerEntry, error) {
	if len(r.data) < magicLen+footerLen {
		return nil, fmt.Errorf("%w: %s too short to contain a footer", ErrCorruptLayer, r.path)
	}
	magic := binary.BigEndian.Uint32(r.data[:magicLen])
	if magic != Magic {
		return nil, fmt.Errorf("%w: %s has bad magic %08x", ErrCorruptLayer, r.path, magic)
	}

	footer := r.data[len(r.data)-footerLen:]
	trailerOffset := binary.BigEndian.Uint64(footer)
	trailerEnd := uint64(len(r.data)) - footerLen
	if trailerOffset > trailerEnd {
		return nil, fmt.Errorf("%w: %s trailer offset out of range", ErrCorruptLayer, r.path)
	}
	return decodeTrailer(r.data[trailerOffset:trailerEnd])
}

// load makes the reader Loaded: it is a no-op if already loaded.
func (r *Reader) load() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded {
		return nil
	}

	if r.data == nil {
		if err := r.openAndMap(); err != nil {
			return err
		}
	}

	entries, err := r.readTrailer()
	if err != nil {
		r.closeMapping()
		return err
	}

	summaryEntry, ok := chapterByID(entries, ChapterSummary)
	if !ok {
		r.closeMapping()
		return fmt.Errorf("%w: no summary chapter in %s", ErrCorruptLayer, r.path)
	}
	summary, err := decodeSummary(r.data[summaryEntry.Offset : summaryEntry.Offset+summaryEntry.Length])
	if err != nil {
		r.closeMapping()
		return err
	}
	if !summary.matchesIdentity(r.tenantID, r.timelineID, r.keyRange, r.lsn) {
		if r.strict {
			r.closeMapping()
			return fmt.Errorf("%w: %s", ErrSummaryMismatch, r.path)
		}
		if r.log != nil {
			r.log.Warn("imagelayer: summary does not match layer identity").Str("path", r.path).Send()
		}
	}

	indexEntry, ok := chapterByID(entries, ChapterIndex)
	if !ok {
		r.closeMapping()
		return fmt.Errorf("%w: no index chapter in %s", ErrCorruptLayer, r.path)
	}
	index, err := decodeIndex(r.data[indexEntry.Offset : indexEntry.Offset+indexEntry.Length])
	if err != nil {
		r.closeMapping()
		return err
	}

	valuesEntry, ok := chapterByID(entries, ChapterValues)
	if !ok {
		r.closeMapping()
		return fmt.Errorf("%w: no values chapter in %s", ErrCorruptLayer, r.path)
	}

	r.valuesOffset = valuesEntry.Offset
	r.index = index
	r.loaded = true
	return nil
}

// GetValueReconstructData looks up state.Key in this layer. lsnFloor must
// be <= the layer's own LSN, state.Key must fall in the layer's key
// range, and state.LSN must be >= the layer's LSN; violating any of
// these is a caller bug and returns ErrPreconditionViolated rather than
// a lookup result.
func (r *Reader) GetValueReconstructData(lsnFloor uint64, state *ReconstructState) (ReconstructResult, error) {
	if lsnFloor > r.lsn || !r.keyRange.Contains(state.Key) || state.LSN < r.lsn {
		return ReconstructMissing, ErrPreconditionViolated
	}
	if state.HasCached && state.CachedLSN >= r.lsn {
		state.LSN = state.CachedLSN
		return ReconstructComplete, nil
	}

	if err := r.load(); err != nil {
		return ReconstructMissing, err
	}

	r.mu.Lock()
	offset, ok := r.index[state.Key]
	data := r.data
	valuesOffset := r.valuesOffset
	r.mu.Unlock()

	if !ok {
		state.LSN = r.lsn
		return ReconstructMissing, nil
	}
	blob, err := decodeBlobAt(data[valuesOffset:], offset)
	if err != nil {
		return ReconstructMissing, err
	}
	state.CachedImg = blob
	state.CachedLSN = r.lsn
	state.HasCached = true
	state.LSN = r.lsn
	return ReconstructComplete, nil
}

// CollectKeys adds every key this layer holds within keyRange to out.
func (r *Reader) CollectKeys(keyRange storagekey.Range, out map[storagekey.Key]struct{}) error {
	if err := r.load(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.index {
		if keyRange.Contains(k) {
			out[k] = struct{}{}
		}
	}
	return nil
}

// Unload drops the in-memory index and releases the file mapping,
// keeping the handle (identity, path) alive; the next call that needs
// data reloads it.
func (r *Reader) Unload() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.loaded {
		return
	}
	r.index = nil
	r.loaded = false
	r.closeMapping()
}

// Delete removes the layer's file from disk. The handle must not be used
// afterward.
func (r *Reader) Delete() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeMapping()
	r.loaded = false
	if err := os.Remove(r.path); err != nil {
		return fmt.Errorf("imagelayer: delete %s: %w", r.path, err)
	}
	return nil
}

// Dump renders the layer's index in VALUES-offset order, for
// diagnostics.
func (r *Reader) Dump() (string, error) {
	if err := r.load(); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	type entry struct {
		key    storagekey.Key
		offset uint64
	}
	entries := make([]entry, 0, len(r.index))
	for k, off := range r.index {
		entries = append(entries, entry{k, off})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].offset < entries[j].offset })

	out := fmt.Sprintf("image layer %s: tenant=%s timeline=%s range=[%s,%s) lsn=%d\n",
		r.path, r.tenantID, r.timelineID, r.keyRange.Start, r.keyRange.End, r.lsn)
	for _, e := range entries {
		out += fmt.Sprintf("  %s @ offset %d\n", e.key, e.offset)
	}
	return out, nil
}

// IsIncremental reports whether this layer needs an older layer
// consulted to reconstruct a page; image layers never do.
func (r *Reader) IsIncremental() bool { return false }

// LSNRange returns the single LSN this layer is a snapshot as of, as a
// half-open range [lsn, lsn+1) to match the incremental layer interface.
func (r *Reader) LSNRange() (uint64, uint64) { return r.lsn, r.lsn + 1 }

// KeyRange returns the layer's declared key range.
func (r *Reader) KeyRange() storagekey.Range { return r.keyRange }

// Path returns the file path backing this reader.
func (r *Reader) Path() string { return r.path }
