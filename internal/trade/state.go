package trade

// State is a step in the life of a single trade attempt.
//
//	Pending → Validating → LockingSeller → LockingBuyer → Applying → Committed
//
// The two locking states follow the order rows are locked in, which is by
// ascending player id, so LockingBuyer comes first when the buyer has the lower id.
// Rejected is reachable from Validating and both locking states, Failed from
// any state after Pending. Committed, Rejected and Failed are terminal.
type State int

const (
	StatePending State = iota
	StateValidating
	StateLockingSeller
	StateLockingBuyer
	StateApplying
	StateCommitted
	StateRejected
	StateFailed
)

var stateNames = [...]string{
	StatePending:       "pending",
	StateValidating:    "validating",
	StateLockingSeller: "locking_seller",
	StateLockingBuyer:  "locking_buyer",
	StateApplying:      "applying",
	StateCommitted:     "committed",
	StateRejected:      "rejected",
	StateFailed:        "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCommitted || s == StateRejected || s == StateFailed
}
