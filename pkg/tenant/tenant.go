package tenant

import (
	"sync/atomic"
	"time"

	"github.com/nainya/pageserver/internal/logger"
	"github.com/nainya/pageserver/internal/metrics"
	"github.com/nainya/pageserver/pkg/ids"
)

// Tenant is one tenant's background-loop state: its id, configuration,
// repository collaborator, and current lifecycle state.
type Tenant struct {
	ID   ids.TenantID
	Conf Conf
	Repo Repository

	state   atomic.Int32
	log     *logger.Logger
	metrics *metrics.Metrics
}

// New returns a Tenant in StateActive. log and m may both be nil.
func New(id ids.TenantID, conf Conf, repo Repository, log *logger.Logger, m *metrics.Metrics) *Tenant {
	t := &Tenant{ID: id, Conf: conf, Repo: repo, log: log, metrics: m}
	t.state.Store(int32(StateActive))
	return t
}

// State returns the tenant's current lifecycle state.
func (t *Tenant) State() State {
	return State(t.state.Load())
}

func (t *Tenant) setState(s State) {
	t.state.Store(int32(s))
}

// checkpointLoop sleeps CheckpointPeriod, then runs one checkpoint
// iteration, repeating until the tenant leaves StateActive or stop is
// closed. It returns the first error CheckpointIteration reports.
func (t *Tenant) checkpointLoop(stop <-chan struct{}) error {
	for {
		if t.State() != StateActive {
			return nil
		}

		select {
		case <-time.After(t.Conf.CheckpointPeriod):
		case <-stop:
			return nil
		}

		start := time.Now()
		err := t.Repo.CheckpointIteration(t.Conf.CheckpointDistance.Bytes())
		if t.log != nil {
			t.log.LogCheckpointIteration(t.ID.String(), time.Since(start), err)
		}
		if t.metrics != nil {
			status := "ok"
			if err != nil {
				status = "error"
			}
			t.metrics.RecordCheckpointIteration(t.ID.String(), status, time.Since(start))
		}
		if err != nil {
			return err
		}
	}
}

// gcLoop runs one gc iteration (when GCHorizon > 0), then sleeps
// GCPeriod in one-second increments — checking the tenant's state on
// every tick so shutdown latency is bounded — repeating until the
// tenant leaves StateActive or stop is closed.
//
// TODO: the one-second polling sleep should use a condition variable or
// timer reset instead; preserved as-is from the loop this was modeled
// on.
func (t *Tenant) gcLoop(stop <-chan struct{}) error {
	for {
		if t.State() != StateActive {
			return nil
		}

		if t.Conf.GCHorizon > 0 {
			start := time.Now()
			err := t.Repo.GCIteration(t.Conf.GCHorizon, t.Conf.PitrInterval, false)
			if t.log != nil {
				t.log.LogGCIteration(t.ID.String(), time.Since(start), err)
			}
			if t.metrics != nil {
				status := "ok"
				if err != nil {
					status = "error"
				}
				t.metrics.RecordGCIteration(t.ID.String(), status, time.Since(start))
			}
			if err != nil {
				return err
			}
		}

		remaining := t.Conf.GCPeriod
		for remaining > 0 && t.State() == StateActive {
			select {
			case <-time.After(time.Second):
			case <-stop:
				return nil
			}
			remaining -= time.Second
		}
	}
}
