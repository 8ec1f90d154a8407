package tenant

// State is a tenant's lifecycle state, observed by its background loops
// on every iteration.
type State int32

const (
	// StateActive is the only state in which the checkpoint and gc loops
	// keep running.
	StateActive State = iota
	// StateStopping means a shutdown was requested; loops exit at their
	// next poll.
	StateStopping
	// StateBroken means a loop returned an unrecoverable error; the
	// manager will not restart it automatically.
	StateBroken
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateStopping:
		return "stopping"
	case StateBroken:
		return "broken"
	default:
		return "unknown"
	}
}
