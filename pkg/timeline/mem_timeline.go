package timeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/btree"

	"github.com/nainya/pageserver/pkg/storagekey"
)

// ErrKeyNotFound is returned by Get when no version of key exists at or
// before the requested LSN (including the case where the key was
// deleted at or before that LSN).
var ErrKeyNotFound = errors.New("timeline: key not found at requested lsn")

// ErrNonMonotonicLSN is returned by AdvanceLastRecordLSN when lsn does
// not strictly exceed the timeline's current last-record LSN.
var ErrNonMonotonicLSN = errors.New("timeline: last-record lsn must strictly increase")

// ErrWalRecordUnsupported is returned by Get when the latest version at
// or before lsn is a WalRecord: MemTimeline has no walredo collaborator
// to materialize it into a page image.
var ErrWalRecordUnsupported = errors.New("timeline: cannot reconstruct a WalRecord without walredo")

type version struct {
	lsn     uint64
	value   storagekey.Value
	deleted bool
}

func lessVersion(a, b version) bool { return a.lsn < b.lsn }

// MemTimeline is an in-memory Timeline used by tests, RecoverMemTimeline
// and MemTimelineRepository. It keeps every version of every key (as the real
// log-structured timeline would, before compaction), ordered per-key by
// LSN, so Get can answer any point-in-time read.
type MemTimeline struct {
	mu       sync.RWMutex
	versions map[storagekey.Key]*btree.BTreeG[version]
	keys     *btree.BTreeG[storagekey.Key]
	lastLSN  uint64
}

// NewMemTimeline returns an empty MemTimeline.
func NewMemTimeline() *MemTimeline {
	return &MemTimeline{
		versions: make(map[storagekey.Key]*btree.BTreeG[version]),
		keys:     btree.NewG(32, storagekey.Key.Less),
	}
}

// Get returns the value stored for key as of lsn: the value from the
// latest put at or before lsn, unless the key was deleted at or before
// lsn with no later put, in which case it reports ErrKeyNotFound.
func (t *MemTimeline) Get(key storagekey.Key, lsn uint64) ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	tree, ok := t.versions[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s@%d", ErrKeyNotFound, key, lsn)
	}

	var found *version
	tree.DescendLessOrEqual(version{lsn: lsn}, func(v version) bool {
		found = &v
		return false
	})
	if found == nil || found.deleted {
		return nil, fmt.Errorf("%w: %s@%d", ErrKeyNotFound, key, lsn)
	}
	img, ok := storagekey.AsImage(found.value)
	if !ok {
		return nil, fmt.Errorf("%w: %s@%d", ErrWalRecordUnsupported, key, lsn)
	}
	return img, nil
}

// Put stores value for key, effective at lsn. A second put for the same
// (key, lsn) replaces the first: last write wins within one LSN.
func (t *MemTimeline) Put(key storagekey.Key, lsn uint64, value storagekey.Value) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	tree, ok := t.versions[key]
	if !ok {
		tree = btree.NewG(32, lessVersion)
		t.versions[key] = tree
		t.keys.ReplaceOrInsert(key)
	}
	tree.ReplaceOrInsert(version{lsn: lsn, value: value})
	return nil
}

// Delete marks every key within r as absent as of lsn.
func (t *MemTimeline) Delete(r storagekey.Range, lsn uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var toDelete []storagekey.Key
	t.keys.AscendRange(r.Start, r.End, func(k storagekey.Key) bool {
		toDelete = append(toDelete, k)
		return true
	})
	for _, k := range toDelete {
		t.versions[k].ReplaceOrInsert(version{lsn: lsn, deleted: true})
	}
	return nil
}

// AdvanceLastRecordLSN strictly increases the timeline's last-record
// LSN.
func (t *MemTimeline) AdvanceLastRecordLSN(lsn uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if lsn <= t.lastLSN {
		return fmt.Errorf("%w: current %d, got %d", ErrNonMonotonicLSN, t.lastLSN, lsn)
	}
	t.lastLSN = lsn
	return nil
}

// LastRecordLSN returns the most recently advanced-to LSN.
func (t *MemTimeline) LastRecordLSN() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastLSN
}
