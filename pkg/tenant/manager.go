package tenant

import (
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nainya/pageserver/internal/logger"
	"github.com/nainya/pageserver/internal/metrics"
	"github.com/nainya/pageserver/pkg/ids"
)

// entry bundles a running Tenant with the goroutine group running its
// checkpoint and gc loops, and the channel that signals them to stop.
type entry struct {
	tenant *Tenant
	stop   chan struct{}
	group  *errgroup.Group
}

// Manager is the process-wide, narrow interface onto tenant lifecycle:
// register, look up state and repository, and shut down. It replaces a
// global singleton with an explicit collaborator any caller can hold.
type Manager struct {
	mu      sync.Mutex
	entries map[ids.TenantID]*entry
	log     *logger.Logger
	metrics *metrics.Metrics
}

// NewManager returns an empty Manager. log and m may both be nil.
func NewManager(log *logger.Logger, m *metrics.Metrics) *Manager {
	return &Manager{
		entries: make(map[ids.TenantID]*entry),
		log:     log,
		metrics: m,
	}
}

// Register adds a tenant and starts its checkpoint and gc loops as a
// goroutine pair. It fails if id is already registered.
func (mgr *Manager) Register(id ids.TenantID, conf Conf, repo Repository) error {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	if _, exists := mgr.entries[id]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, id)
	}

	t := New(id, conf, repo, mgr.log, mgr.metrics)
	stop := make(chan struct{})
	var g errgroup.Group
	g.Go(func() error { return t.checkpointLoop(stop) })
	g.Go(func() error { return t.gcLoop(stop) })

	mgr.entries[id] = &entry{tenant: t, stop: stop, group: &g}
	return nil
}

// GetState reports id's current lifecycle state.
func (mgr *Manager) GetState(id ids.TenantID) (State, error) {
	e, err := mgr.lookup(id)
	if err != nil {
		return 0, err
	}
	return e.tenant.State(), nil
}

// GetRepository returns the Repository registered for id.
func (mgr *Manager) GetRepository(id ids.TenantID) (Repository, error) {
	e, err := mgr.lookup(id)
	if err != nil {
		return nil, err
	}
	return e.tenant.Repo, nil
}

// Shutdown marks id as stopping, signals its loops, and waits for both
// to return, propagating the first error either reported.
func (mgr *Manager) Shutdown(id ids.TenantID) error {
	e, err := mgr.lookup(id)
	if err != nil {
		return err
	}

	e.tenant.setState(StateStopping)
	close(e.stop)
	err = e.group.Wait()

	mgr.mu.Lock()
	delete(mgr.entries, id)
	mgr.mu.Unlock()

	if err != nil {
		e.tenant.setState(StateBroken)
		return fmt.Errorf("tenant: loops for %s: %w", id, err)
	}
	return nil
}

func (mgr *Manager) lookup(id ids.TenantID) (*entry, error) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	e, ok := mgr.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTenant, id)
	}
	return e, nil
}
