package timeline

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/c2h5oh/datasize"

	"github.com/nainya/pageserver/pkg/ids"
	"github.com/nainya/pageserver/pkg/tenant"
	"github.com/nainya/pageserver/pkg/wal"
)

func TestMemTimelineRepositoryCheckpoints(t *testing.T) {
	w := &wal.WAL{Path: filepath.Join(t.TempDir(), "repo.wal")}
	if err := w.Open(); err != nil {
		t.Fatalf("WAL.Open: %v", err)
	}
	defer w.Close()

	repo := NewMemTimelineRepository(NewMemTimeline(), w)

	if err := repo.CheckpointIteration(0); err != nil {
		t.Fatalf("CheckpointIteration: %v", err)
	}
	if err := repo.GCIteration(0, time.Hour, false); err != nil {
		t.Fatalf("GCIteration: %v", err)
	}
}

// countingRepo wraps a MemTimelineRepository so the test can observe how
// many times the tenant loop actually drives it, without racing on the
// wal's own internal counters.
type countingRepo struct {
	*MemTimelineRepository
	hit chan struct{}
}

func (r *countingRepo) CheckpointIteration(distance uint64) error {
	err := r.MemTimelineRepository.CheckpointIteration(distance)
	select {
	case r.hit <- struct{}{}:
	default:
	}
	return err
}

func TestMemTimelineRepositoryDrivenByTenantCheckpointLoop(t *testing.T) {
	w := &wal.WAL{Path: filepath.Join(t.TempDir(), "tenant.wal")}
	if err := w.Open(); err != nil {
		t.Fatalf("WAL.Open: %v", err)
	}
	defer w.Close()

	repo := &countingRepo{
		MemTimelineRepository: NewMemTimelineRepository(NewMemTimeline(), w),
		hit:                   make(chan struct{}, 1),
	}

	mgr := tenant.NewManager(nil, nil)
	id, err := ids.NewTenantID()
	if err != nil {
		t.Fatalf("NewTenantID: %v", err)
	}
	conf := tenant.Conf{
		CheckpointDistance: 1 * datasize.MB,
		CheckpointPeriod:   10 * time.Millisecond,
		GCHorizon:          0,
		GCPeriod:           time.Hour,
	}
	if err := mgr.Register(id, conf, repo); err != nil {
		t.Fatalf("Register: %v", err)
	}

	select {
	case <-repo.hit:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the tenant checkpoint loop to call CheckpointIteration")
	}

	if err := mgr.Shutdown(id); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}
