// Package job owns the cancellable paginated fetch loop, the
// per-context job registry, and the state machine the UI observes.
package job

// State is the externally visible job status. The numeric values are
// part of the UI wire contract and must not change.
type State int

const (
	StateNotStarted State = 0
	StateRunning    State = 1
	StateFinished   State = 2
	StateAborted    State = 3
	// StateNotReady is registry-level: no credential has been captured
	// yet, so no job exists and none can be created.
	StateNotReady State = 4
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "NOT_STARTED"
	case StateRunning:
		return "RUNNING"
	case StateFinished:
		return "FINISHED"
	case StateAborted:
		return "ABORTED"
	case StateNotReady:
		return "NOT_READY"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether the job can never run again. A finished or
// aborted job is not restarted; a new job must be created.
func (s State) Terminal() bool {
	return s == StateFinished || s == StateAborted
}
