package slurm

// JobState is a coarse view of the scheduler's job lifecycle. It is derived
// from the raw status string on every query, never stored.
type JobState int

const (
	StateUnknown JobState = iota
	StatePending
	StateRunning
	StateCompleted
	StateFailed
)

func (s JobState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Classify maps a raw SLURM status token onto a JobState. Tokens outside the
// table (including the empty string) are StateUnknown; the scheduler reports
// nothing useful for a job it has not started bookkeeping for yet.
func Classify(raw string) JobState {
	switch raw {
	case "RUNNING":
		return StateRunning
	case "COMPLETED", "DEADLINE":
		return StateCompleted
	case "PENDING", "REQUEUED":
		return StatePending
	case "FAILED", "BOOT_FAIL", "CANCELLED", "NODE_FAIL", "OUT_OF_MEMORY", "PREEMPTED", "TIMEOUT":
		return StateFailed
	default:
		return StateUnknown
	}
}
