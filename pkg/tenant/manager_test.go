package tenant

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/c2h5oh/datasize"

	"github.com/nainya/pageserver/pkg/ids"
)

type fakeRepo struct {
	checkpointCalls atomic.Int32
	gcCalls         atomic.Int32
	checkpointErr   error
	gcErr           error
	checkpointHit   chan struct{}
}

func (f *fakeRepo) CheckpointIteration(distance uint64) error {
	f.checkpointCalls.Add(1)
	if f.checkpointHit != nil {
		select {
		case f.checkpointHit <- struct{}{}:
		default:
		}
	}
	return f.checkpointErr
}

func (f *fakeRepo) GCIteration(horizon uint64, pitrInterval time.Duration, compact bool) error {
	f.gcCalls.Add(1)
	return f.gcErr
}

func testConf() Conf {
	return Conf{
		CheckpointDistance: 1 * datasize.MB,
		CheckpointPeriod:   2 * time.Millisecond,
		GCHorizon:          0,
		GCPeriod:           0,
		PitrInterval:       time.Hour,
	}
}

func mustTenantID(t *testing.T) ids.TenantID {
	t.Helper()
	id, err := ids.NewTenantID()
	if err != nil {
		t.Fatalf("NewTenantID: %v", err)
	}
	return id
}

func TestCheckpointLoopRunsUntilShutdown(t *testing.T) {
	mgr := NewManager(nil, nil)
	id := mustTenantID(t)
	repo := &fakeRepo{checkpointHit: make(chan struct{}, 1)}

	if err := mgr.Register(id, testConf(), repo); err != nil {
		t.Fatalf("Register: %v", err)
	}

	select {
	case <-repo.checkpointHit:
	case <-time.After(time.Second):
		t.Fatal("checkpoint loop never ran an iteration")
	}

	if err := mgr.Shutdown(id); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if _, err := mgr.GetState(id); !errors.Is(err, ErrUnknownTenant) {
		t.Fatalf("GetState after Shutdown = %v, want ErrUnknownTenant", err)
	}
}

func TestGCLoopSkipsIterationWhenHorizonIsZero(t *testing.T) {
	mgr := NewManager(nil, nil)
	id := mustTenantID(t)
	conf := testConf()
	conf.GCHorizon = 0
	repo := &fakeRepo{}

	if err := mgr.Register(id, conf, repo); err != nil {
		t.Fatalf("Register: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if err := mgr.Shutdown(id); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if repo.gcCalls.Load() != 0 {
		t.Fatalf("GCIteration called %d times, want 0 with GCHorizon=0", repo.gcCalls.Load())
	}
}

func TestGCLoopRunsWhenHorizonIsPositive(t *testing.T) {
	mgr := NewManager(nil, nil)
	id := mustTenantID(t)
	conf := testConf()
	conf.GCHorizon = 1024
	repo := &fakeRepo{}

	if err := mgr.Register(id, conf, repo); err != nil {
		t.Fatalf("Register: %v", err)
	}
	for i := 0; i < 200 && repo.gcCalls.Load() == 0; i++ {
		time.Sleep(time.Millisecond)
	}
	if err := mgr.Shutdown(id); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if repo.gcCalls.Load() == 0 {
		t.Fatal("GCIteration was never called with GCHorizon > 0")
	}
}

func TestShutdownPropagatesLoopErrorAndMarksBroken(t *testing.T) {
	mgr := NewManager(nil, nil)
	id := mustTenantID(t)
	repo := &fakeRepo{checkpointErr: errors.New("disk full")}

	if err := mgr.Register(id, testConf(), repo); err != nil {
		t.Fatalf("Register: %v", err)
	}

	e, err := mgr.lookup(id)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}

	// Give the checkpoint loop time to run its first (failing) iteration
	// before requesting shutdown.
	time.Sleep(20 * time.Millisecond)

	if err := mgr.Shutdown(id); err == nil {
		t.Fatal("Shutdown after a loop error returned nil, want the wrapped error")
	}
	if got := e.tenant.State(); got != StateBroken {
		t.Fatalf("state after failed Shutdown = %v, want %v", got, StateBroken)
	}
}

func TestRegisterDuplicateTenantFails(t *testing.T) {
	mgr := NewManager(nil, nil)
	id := mustTenantID(t)
	repo := &fakeRepo{}

	if err := mgr.Register(id, testConf(), repo); err != nil {
		t.Fatalf("Register: %v", err)
	}
	defer mgr.Shutdown(id)

	if err := mgr.Register(id, testConf(), repo); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("second Register = %v, want ErrAlreadyRegistered", err)
	}
}

func TestUnknownTenantOperationsFail(t *testing.T) {
	mgr := NewManager(nil, nil)
	id := mustTenantID(t)

	if _, err := mgr.GetState(id); !errors.Is(err, ErrUnknownTenant) {
		t.Fatalf("GetState = %v, want ErrUnknownTenant", err)
	}
	if _, err := mgr.GetRepository(id); !errors.Is(err, ErrUnknownTenant) {
		t.Fatalf("GetRepository = %v, want ErrUnknownTenant", err)
	}
	if err := mgr.Shutdown(id); !errors.Is(err, ErrUnknownTenant) {
		t.Fatalf("Shutdown = %v, want ErrUnknownTenant", err)
	}
}
