package tenant

import "time"

// Repository is the lower-level collaborator the checkpoint and gc loops
// drive. Its actual implementation (timeline freezing, layer writing,
// layer-map range index, remote-storage replication) is out of scope
// here; the loops only need these two entry points.
type Repository interface {
	// CheckpointIteration flushes any timeline whose frozen memtable has
	// accumulated more than distance bytes of WAL since its last
	// checkpoint.
	CheckpointIteration(distance uint64) error
	// GCIteration collects layers no longer needed to serve any read
	// within horizon LSNs of the latest record or within pitrInterval of
	// now, whichever retains more. compact additionally folds small
	// layers together; the loop always calls this with compact=false.
	GCIteration(horizon uint64, pitrInterval time.Duration, compact bool) error
}
