package pipeline

// State is the per-URL lifecycle position.
type State string

// Per-URL states. Every URL ends in StateDone or StateFailed.
const (
	StatePending        State = "pending"
	StateSessionOpening State = "session_opening"
	StateNavigating     State = "navigating"
	StateCollecting     State = "collecting"
	StateAggregating    State = "aggregating"
	StateDone           State = "done"
	StateFailed         State = "failed"
)

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
