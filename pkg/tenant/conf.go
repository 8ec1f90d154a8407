// Package tenant implements the per-tenant background workers: a
// checkpoint loop and a garbage-collection loop, driven by a narrow
// Repository collaborator, plus the process-wide manager that starts,
// stops, and looks up tenants.
package tenant

import (
	"time"

	"github.com/c2h5oh/datasize"
)

// Conf holds one tenant's background-loop configuration.
type Conf struct {
	// CheckpointDistance is the amount of accumulated WAL that triggers
	// a checkpoint of a timeline's frozen memtable.
	CheckpointDistance datasize.ByteSize
	// CheckpointPeriod is how long the checkpoint loop sleeps between
	// iterations while the tenant remains active.
	CheckpointPeriod time.Duration
	// GCHorizon is the LSN distance behind the latest record that the gc
	// loop retains; zero disables GC entirely.
	GCHorizon uint64
	// GCPeriod is how long the gc loop sleeps between iterations,
	// polled in one-second increments so shutdown is bounded.
	GCPeriod time.Duration
	// PitrInterval is the point-in-time-recovery window the gc loop
	// must not collect data out from under.
	PitrInterval time.Duration
}

// DefaultConf returns the configuration a freshly created tenant uses
// absent an explicit TenantCreateRequest override.
func DefaultConf() Conf {
	return Conf{
		CheckpointDistance: 256 * datasize.MB,
		CheckpointPeriod:   1 * time.Minute,
		GCHorizon:          64 * 1024 * 1024,
		GCPeriod:           100 * time.Second,
		PitrInterval:       30 * 24 * time.Hour,
	}
}
