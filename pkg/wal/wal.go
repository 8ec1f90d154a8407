package wal

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
)

const (
	// MaxLogFileSize is the maximum size of a single WAL segment file.
	MaxLogFileSize = 100 << 20

	// WALFilePrefix is the prefix for WAL files.
	WALFilePrefix = "wal"
)

// WAL is the on-disk durability log: a sequence of segment files, each
// holding length-prefixed, CRC-checked Entry records, rotated by size
// and reclaimed once a checkpoint LSN outdates them.
type WAL struct {
	// Path is the base path for WAL files (e.g., "/data/db.wal").
	Path string

	// fd is the current log file descriptor.
	fd *os.File

	// mu protects concurrent access to WAL.
	mu sync.Mutex

	// lsn is the current Log Sequence Number (atomic).
	lsn uint64

	// checkpointLSN is the highest LSN a checkpoint has certified
	// durable elsewhere; segment files entirely below it are safe to
	// remove. Zero means no checkpoint has run yet.
	checkpointLSN uint64

	// fileSize is the current log file size.
	fileSize int64

	// fileIndex is the current log file index (0, 1, 2, ...).
	fileIndex int

	// closed indicates whether the WAL is closed.
	closed bool
}

// Open opens or creates the WAL.
func (w *WAL) Open() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	files, err := w.findLogFiles()
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	if len(files) > 0 {
		latestFile := files[len(files)-1]
		fd, err := os.OpenFile(latestFile, os.O_RDWR|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		w.fd = fd

		stat, err := fd.Stat()
		if err != nil {
			return err
		}
		w.fileSize = stat.Size()

		_, err = fmt.Sscanf(filepath.Base(latestFile), w.baseName()+".%d", &w.fileIndex)
		if err != nil {
			w.fileIndex = 0
		}

		maxLSN, err := w.scanForHighestLSN(files)
		if err != nil {
			return err
		}
		atomic.StoreUint64(&w.lsn, maxLSN)
	} else {
		logPath := w.logFilePath(0)
		if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
			return err
		}
		fd, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		w.fd = fd
		w.fileSize = 0
		w.fileIndex = 0
		atomic.StoreUint64(&w.lsn, 0)
	}

	w.closed = false
	return nil
}

// NextLSN returns the next Log Sequence Number.
func (w *WAL) NextLSN() uint64 {
	return atomic.AddUint64(&w.lsn, 1)
}

// Write appends an entry to the WAL, rotating to a new segment first if
// it would overflow the current one.
func (w *WAL) Write(entry Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrLogClosed
	}

	data := entry.Encode()

	if w.fileSize+int64(len(data)) > MaxLogFileSize {
		if err := w.rotateNoLock(); err != nil {
			return err
		}
	}

	n, err := w.fd.Write(data)
	if err != nil {
		return err
	}

	w.fileSize += int64(n)
	return nil
}

// Fsync ensures all written data is persisted to disk.
func (w *WAL) Fsync() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrLogClosed
	}

	return w.fd.Sync()
}

// Close closes the WAL.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	err := w.fd.Close()
	w.closed = true
	return err
}

// TruncateBefore records lsn as the point below which every
// transaction is already durable elsewhere (a Timeline's
// LastRecordLSN at the moment a checkpoint succeeds), then removes
// every rotated-away segment file whose highest LSN is at or below it.
// The current segment is never removed.
func (w *WAL) TruncateBefore(lsn uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	atomic.StoreUint64(&w.checkpointLSN, lsn)
	return w.reclaimSegmentsNoLock()
}

// rotateNoLock rotates to a new log file (caller must hold mu).
func (w *WAL) rotateNoLock() error {
	if err := w.fd.Sync(); err != nil {
		return err
	}

	if err := w.fd.Close(); err != nil {
		return err
	}

	w.fileIndex++
	logPath := w.logFilePath(w.fileIndex)
	fd, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return err
	}

	w.fd = fd
	w.fileSize = 0

	return w.reclaimSegmentsNoLock()
}

// reclaimSegmentsNoLock removes every non-current segment file whose
// highest LSN is at or below the last checkpoint LSN (caller must hold
// mu). Before the first checkpoint, checkpointLSN is 0 and nothing is
// removed: every segment may still hold un-checkpointed writes.
func (w *WAL) reclaimSegmentsNoLock() error {
	files, err := w.findLogFiles()
	if err != nil {
		return err
	}
	if len(files) <= 1 {
		return nil
	}

	checkpointLSN := atomic.LoadUint64(&w.checkpointLSN)
	for _, f := range files[:len(files)-1] {
		maxLSN, err := w.scanForHighestLSN([]string{f})
		if err != nil {
			continue
		}
		if maxLSN > 0 && maxLSN <= checkpointLSN {
			os.Remove(f) // Ignore errors
		}
	}

	return nil
}

// baseName returns the base filename for WAL files (e.g., "mydb.db.wal"
// from "/path/to/mydb.db.wal").
func (w *WAL) baseName() string {
	return filepath.Base(w.Path)
}

// logFilePath returns the path for a log file with the given index.
func (w *WAL) logFilePath(index int) string {
	dir := filepath.Dir(w.Path)
	name := fmt.Sprintf("%s.%03d", w.baseName(), index)
	return filepath.Join(dir, name)
}

// findLogFiles returns all WAL files sorted by index.
func (w *WAL) findLogFiles() ([]string, error) {
	dir := filepath.Dir(w.Path)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && w.isWALFile(entry.Name()) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}

	sort.Slice(files, func(i, j int) bool {
		var idxI, idxJ int
		pattern := w.baseName() + ".%d"
		fmt.Sscanf(filepath.Base(files[i]), pattern, &idxI)
		fmt.Sscanf(filepath.Base(files[j]), pattern, &idxJ)
		return idxI < idxJ
	})

	return files, nil
}

// isWALFile returns true if the filename is a WAL file for this database.
func (w *WAL) isWALFile(name string) bool {
	var index int
	pattern := w.baseName() + ".%d"
	_, err := fmt.Sscanf(name, pattern, &index)
	return err == nil
}

// scanForHighestLSN scans all WAL files and returns the highest LSN.
func (w *WAL) scanForHighestLSN(files []string) (uint64, error) {
	var maxLSN uint64

	for _, file := range files {
		fd, err := os.Open(file)
		if err != nil {
			return 0, err
		}

		for {
			entry, err := w.readEntry(fd)
			if err == io.EOF {
				break
			}
			if err != nil {
				// Skip corrupted entries by seeking forward. This
				// prevents infinite loops when corruption occurs.
				fd.Seek(1024, io.SeekCurrent)
				continue
			}

			if entry.LSN > maxLSN {
				maxLSN = entry.LSN
			}
		}

		fd.Close()
	}

	return maxLSN, nil
}

// readEntry reads a single entry from the reader.
func (w *WAL) readEntry(r io.Reader) (*Entry, error) {
	header := make([]byte, EntryHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	valLen := binary.BigEndian.Uint32(header[24:28])

	dataLen := int(valLen) + 4
	data := make([]byte, EntryHeaderSize+dataLen)
	copy(data, header)
	if _, err := io.ReadFull(r, data[EntryHeaderSize:]); err != nil {
		return nil, err
	}

	return DecodeEntry(data)
}
