package imagelayer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nainya/pageserver/pkg/ids"
	"github.com/nainya/pageserver/pkg/storagekey"
)

func testKeyRange() storagekey.Range {
	return storagekey.Range{
		Start: storagekey.Key{F1: 0x00},
		End:   storagekey.Key{F1: 0x01},
	}
}

func mustTenant(t *testing.T) ids.TenantID {
	t.Helper()
	id, err := ids.NewTenantID()
	if err != nil {
		t.Fatalf("NewTenantID: %v", err)
	}
	return id
}

func mustTimeline(t *testing.T) ids.TimelineID {
	t.Helper()
	id, err := ids.NewTimelineID()
	if err != nil {
		t.Fatalf("NewTimelineID: %v", err)
	}
	return id
}

func buildLayer(t *testing.T, dir string, keyRange storagekey.Range, lsn uint64, images map[storagekey.Key][]byte, order []storagekey.Key) (string, *Reader) {
	t.Helper()
	tenantID, timelineID := mustTenant(t), mustTimeline(t)
	path := filepath.Join(dir, FormatFilename(keyRange, lsn))
	w, err := NewWriter(path, tenantID, timelineID, keyRange, lsn)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	for _, k := range order {
		if err := w.PutImage(k, images[k]); err != nil {
			t.Fatalf("PutImage(%s): %v", k, err)
		}
	}
	r, err := w.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	return path, r
}

func TestWriterReaderRoundTrip(t *testing.T) {
	dir := t.TempDir()
	keyRange := testKeyRange()
	k1 := storagekey.Key{F1: 0x00, F2: 1}
	k2 := storagekey.Key{F1: 0x00, F2: 2}
	images := map[storagekey.Key][]byte{
		k1: []byte("page one"),
		k2: []byte("page two, a bit longer"),
	}
	_, r := buildLayer(t, dir, keyRange, 100, images, []storagekey.Key{k1, k2})

	for _, k := range []storagekey.Key{k1, k2} {
		state := &ReconstructState{Key: k, LSN: 200}
		result, err := r.GetValueReconstructData(100, state)
		if err != nil {
			t.Fatalf("GetValueReconstructData(%s): %v", k, err)
		}
		if result != ReconstructComplete {
			t.Fatalf("GetValueReconstructData(%s) = %v, want Complete", k, result)
		}
		if string(state.CachedImg) != string(images[k]) {
			t.Errorf("GetValueReconstructData(%s) image = %q, want %q", k, state.CachedImg, images[k])
		}
		if state.LSN != 100 {
			t.Errorf("state.LSN = %d, want 100", state.LSN)
		}
	}
}

func TestReaderMissingKeyReportsMissing(t *testing.T) {
	dir := t.TempDir()
	keyRange := testKeyRange()
	k1 := storagekey.Key{F1: 0x00, F2: 1}
	absent := storagekey.Key{F1: 0x00, F2: 99}
	_, r := buildLayer(t, dir, keyRange, 100, map[storagekey.Key][]byte{k1: []byte("x")}, []storagekey.Key{k1})

	state := &ReconstructState{Key: absent, LSN: 200}
	result, err := r.GetValueReconstructData(100, state)
	if err != nil {
		t.Fatalf("GetValueReconstructData: %v", err)
	}
	if result != ReconstructMissing {
		t.Fatalf("result = %v, want Missing", result)
	}
}

func TestCachedImageShortCircuitsLoad(t *testing.T) {
	dir := t.TempDir()
	keyRange := testKeyRange()
	k1 := storagekey.Key{F1: 0x00, F2: 1}
	_, r := buildLayer(t, dir, keyRange, 100, map[storagekey.Key][]byte{k1: []byte("x")}, []storagekey.Key{k1})

	state := &ReconstructState{Key: k1, LSN: 200, HasCached: true, CachedLSN: 150, CachedImg: []byte("cached")}
	result, err := r.GetValueReconstructData(50, state)
	if err != nil {
		t.Fatalf("GetValueReconstructData: %v", err)
	}
	if result != ReconstructComplete {
		t.Fatalf("result = %v, want Complete", result)
	}
	if string(state.CachedImg) != "cached" {
		t.Errorf("cached image was overwritten: %q", state.CachedImg)
	}
	if r.loaded {
		t.Error("reader should not have loaded when the cache already satisfied the request")
	}
}

func TestPutImageRejectsOutOfRangeAndDuplicateKeys(t *testing.T) {
	dir := t.TempDir()
	keyRange := testKeyRange()
	path := filepath.Join(dir, FormatFilename(keyRange, 1))
	w, err := NewWriter(path, mustTenant(t), mustTimeline(t), keyRange, 1)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	defer w.Abort()

	outOfRange := storagekey.Key{F1: 0x02}
	if err := w.PutImage(outOfRange, []byte("x")); err == nil {
		t.Fatal("expected an error for a key outside the layer's range")
	}

	inRange := storagekey.Key{F1: 0x00, F2: 1}
	if err := w.PutImage(inRange, []byte("x")); err != nil {
		t.Fatalf("PutImage: %v", err)
	}
	if err := w.PutImage(inRange, []byte("y")); err == nil {
		t.Fatal("expected an error for a duplicate key")
	}
}

func TestAbortUnlinksPartialFile(t *testing.T) {
	dir := t.TempDir()
	keyRange := testKeyRange()
	path := filepath.Join(dir, FormatFilename(keyRange, 1))
	w, err := NewWriter(path, mustTenant(t), mustTimeline(t), keyRange, 1)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.Abort(); err != nil {
		t.Fatalf("Abort: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected %s to be removed after Abort", path)
	}
}

func TestCollectKeys(t *testing.T) {
	dir := t.TempDir()
	keyRange := testKeyRange()
	k1 := storagekey.Key{F1: 0x00, F2: 1}
	k2 := storagekey.Key{F1: 0x00, F2: 2}
	_, r := buildLayer(t, dir, keyRange, 1, map[storagekey.Key][]byte{k1: []byte("a"), k2: []byte("b")}, []storagekey.Key{k1, k2})

	out := make(map[storagekey.Key]struct{})
	if err := r.CollectKeys(keyRange, out); err != nil {
		t.Fatalf("CollectKeys: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("CollectKeys found %d keys, want 2", len(out))
	}
}

func TestUnloadThenReload(t *testing.T) {
	dir := t.TempDir()
	keyRange := testKeyRange()
	k1 := storagekey.Key{F1: 0x00, F2: 1}
	_, r := buildLayer(t, dir, keyRange, 1, map[storagekey.Key][]byte{k1: []byte("x")}, []storagekey.Key{k1})

	state := &ReconstructState{Key: k1, LSN: 5}
	if _, err := r.GetValueReconstructData(1, state); err != nil {
		t.Fatalf("GetValueReconstructData: %v", err)
	}
	r.Unload()
	if r.loaded {
		t.Fatal("Unload should clear loaded")
	}

	state2 := &ReconstructState{Key: k1, LSN: 5}
	result, err := r.GetValueReconstructData(1, state2)
	if err != nil {
		t.Fatalf("GetValueReconstructData after reload: %v", err)
	}
	if result != ReconstructComplete {
		t.Fatalf("result after reload = %v, want Complete", result)
	}
}

func TestRenamedFileFailsStrictButWarnsBarePath(t *testing.T) {
	dir := t.TempDir()
	keyRange := testKeyRange()
	k1 := storagekey.Key{F1: 0x00, F2: 1}
	tenantID, timelineID := mustTenant(t), mustTimeline(t)
	originalPath := filepath.Join(dir, FormatFilename(keyRange, 1))
	w, err := NewWriter(originalPath, tenantID, timelineID, keyRange, 1)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.PutImage(k1, []byte("x")); err != nil {
		t.Fatalf("PutImage: %v", err)
	}
	if _, err := w.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	renamedPath := filepath.Join(dir, "renamed-file")
	if err := os.Rename(originalPath, renamedPath); err != nil {
		t.Fatalf("Rename: %v", err)
	}

	wrongTenant := mustTenant(t)
	strict := NewReaderFromIdentity(renamedPath, wrongTenant, timelineID, keyRange, 1)
	state := &ReconstructState{Key: k1, LSN: 5}
	_, err = strict.GetValueReconstructData(1, state)
	if err == nil {
		t.Fatal("expected the strict tenant-path loader to fail on a mismatched identity")
	}

	debug, err := NewReaderFromPath(renamedPath, nil)
	if err != nil {
		t.Fatalf("NewReaderFromPath should succeed under the bare-path loader: %v", err)
	}
	state2 := &ReconstructState{Key: k1, LSN: 5}
	result, err := debug.GetValueReconstructData(1, state2)
	if err != nil {
		t.Fatalf("bare-path loader GetValueReconstructData: %v", err)
	}
	if result != ReconstructComplete {
		t.Fatalf("result = %v, want Complete", result)
	}
}

func TestFilenameRoundTrip(t *testing.T) {
	keyRange := storagekey.Range{
		Start: storagekey.Key{F1: 0x00, F2: 1, F3: 2, F4: 3, F5: 4, F6: 5},
		End:   storagekey.Key{F1: 0x01, F2: 6, F3: 7, F4: 8, F5: 9, F6: 10},
	}
	name := FormatFilename(keyRange, 0xDEADBEEF)
	gotRange, gotLSN, err := ParseFilename(name)
	if err != nil {
		t.Fatalf("ParseFilename(%q): %v", name, err)
	}
	if gotRange.Start.Compare(keyRange.Start) != 0 || gotRange.End.Compare(keyRange.End) != 0 {
		t.Errorf("ParseFilename range = %+v, want %+v", gotRange, keyRange)
	}
	if gotLSN != 0xDEADBEEF {
		t.Errorf("ParseFilename lsn = %x, want %x", gotLSN, 0xDEADBEEF)
	}
}

func TestParseFilenameRejectsMalformedNames(t *testing.T) {
	for _, name := range []string{"", "not-a-layer-name", "deadbeef__1234", "AA-BB__nothex"} {
		if _, _, err := ParseFilename(name); err == nil {
			t.Errorf("ParseFilename(%q) should have failed", name)
		}
	}
}
