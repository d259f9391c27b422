package voting

// State is the lifecycle state of a Session.
type State string

const (
	StateOpen      State = "open"
	StateWon       State = "won"
	StateExhausted State = "exhausted"
)

// ValidTransitions defines allowed state transitions.
var ValidTransitions = map[State][]State{
	StateOpen:      {StateWon, StateExhausted},
	StateWon:       {}, // terminal
	StateExhausted: {}, // terminal
}

// CanTransitionTo checks if a transition from the current state to target is valid.
func (s State) CanTransitionTo(target State) bool {
	for _, t := range ValidTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true for WON and EXHAUSTED.
func (s State) IsTerminal() bool {
	return s == StateWon || s == StateExhausted
}

// OutcomeKind distinguishes a decided step from one that ran out of samples.
type OutcomeKind string

const (
	OutcomeWinner    OutcomeKind = "winner"
	OutcomeExhausted OutcomeKind = "exhausted"
)

// Outcome is the terminal result of a Session. For OutcomeExhausted, Value is
// the leader at the cap; callers decide whether to use it.
type Outcome[V comparable] struct {
	Kind        OutcomeKind `json:"kind"`
	Value       V           `json:"value"`
	SamplesUsed int         `json:"samples_used"`
	Votes       int         `json:"votes"`
	Lead        int         `json:"lead"`
	Distinct    int         `json:"distinct"`
}

// Won reports whether the outcome is a winner.
func (o Outcome[V]) Won() bool {
	return o.Kind == OutcomeWinner
}

// Count is one row of a tally snapshot.
type Count[V comparable] struct {
	Value V   `json:"value"`
	Votes int `json:"votes"`
}
