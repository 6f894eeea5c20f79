package scheduler

import "fmt"

// CycleState represents a pipeline cycle state in the state machine.
type CycleState string

const (
	StateIdle       CycleState = "idle"
	StateCollecting CycleState = "collecting"
	StateAnalyzing  CycleState = "analyzing"
	StatePersisting CycleState = "persisting"
	StateBackoff    CycleState = "backoff"
)

// ValidateStateTransition checks if a state transition is valid.
// Returns an error if the transition is not allowed.
func ValidateStateTransition(from, to CycleState) error {
	validTransitions := map[CycleState][]CycleState{
		StateIdle: {
			StateCollecting, // Interval reached or manual trigger
		},
		StateCollecting: {
			StateAnalyzing, // Sources fetched, at least partially
			StateBackoff,   // Collection failed entirely
			StateIdle,      // Cancelled, partial work discarded
		},
		StateAnalyzing: {
			StatePersisting, // Scoring, clustering and aggregation done
			StateBackoff,    // Analysis failed
			StateIdle,       // Cancelled, partial work discarded
		},
		StatePersisting: {
			StateIdle,    // Cycle committed
			StateBackoff, // Persistence failed
		},
		StateBackoff: {
			StateCollecting, // Retry after the backoff delay
			StateIdle,       // Shutdown during backoff
		},
	}

	allowedStates, exists := validTransitions[from]
	if !exists {
		return fmt.Errorf("unknown source state: %s", from)
	}

	for _, allowed := range allowedStates {
		if allowed == to {
			return nil
		}
	}

	return fmt.Errorf("invalid state transition from %s to %s", from, to)
}

// IsActiveState checks if a cycle is currently executing.
func IsActiveState(state CycleState) bool {
	return state == StateCollecting || state == StateAnalyzing || state == StatePersisting
}
