package voting

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/maker/internal/candidate"
)

// Session is a first-to-ahead-by-k tally for one step.
type Session[V comparable] struct {
	k         int
	sampleCap int
	canonical func(V) V

	tally   *Tally[V]
	state   State
	outcome Outcome[V]
}

// SessionOption configures a Session.
type SessionOption[V comparable] func(*Session[V])

// WithCanonical groups values by canonical(v) instead of v itself. The value
// reported for a group is the first one observed.
func WithCanonical[V comparable](canonical func(V) V) SessionOption[V] {
	return func(s *Session[V]) {
		s.canonical = canonical
	}
}

// NormalizeText is a canonical function for text votes: values that differ
// only in case or surrounding whitespace count as one.
func NormalizeText(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// NewSession creates an open session with margin k and a cap on accepted samples.
func NewSession[V comparable](k, sampleCap int, opts ...SessionOption[V]) (*Session[V], error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: margin k must be >= 1, got %d", ErrInvalidSession, k)
	}
	if sampleCap < 1 {
		return nil, fmt.Errorf("%w: sample cap must be >= 1, got %d", ErrInvalidSession, sampleCap)
	}
	s := &Session[V]{
		k:         k,
		sampleCap: sampleCap,
		tally:     newTally[V](),
		state:     StateOpen,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// K returns the margin the session was built with.
func (s *Session[V]) K() int { return s.k }

// SampleCap returns the maximum number of accepted observations.
func (s *Session[V]) SampleCap() int { return s.sampleCap }

// State returns the current lifecycle state.
func (s *Session[V]) State() State { return s.state }

// Total returns the number of accepted observations so far.
func (s *Session[V]) Total() int { return s.tally.Total() }

// Counts returns the current tally in first-observed order.
func (s *Session[V]) Counts() []Count[V] { return s.tally.Counts() }

// Lead returns the current leader and its margin over the runner-up.
// ok is false before the first observation.
func (s *Session[V]) Lead() (leader V, lead int, ok bool) {
	i, first, second := s.tally.top()
	if i < 0 {
		return leader, 0, false
	}
	return s.tally.entries[i].rep, first - second, true
}

// Observe records one accepted candidate and returns the resulting state.
func (s *Session[V]) Observe(c candidate.Candidate[V]) (State, error) {
	return s.ObserveValue(c.Value)
}

// ObserveValue records one vote for v and returns the resulting state.
func (s *Session[V]) ObserveValue(v V) (State, error) {
	if s.state != StateOpen {
		return s.state, &MisuseError{Op: "observe", State: s.state}
	}

	key := v
	if s.canonical != nil {
		key = s.canonical(v)
	}
	s.tally.add(key, v)

	i, first, second := s.tally.top()
	lead := first - second
	switch {
	case lead >= s.k:
		s.finish(StateWon, i, first, lead)
	case s.tally.Total() >= s.sampleCap:
		s.finish(StateExhausted, i, first, lead)
	}
	return s.state, nil
}

// Exhaust ends an open session early with its current leader, used when the
// caller runs out of draws before the sample cap. It needs at least one vote.
func (s *Session[V]) Exhaust() error {
	if s.state != StateOpen || s.tally.Total() == 0 {
		return &MisuseError{Op: "exhaust", State: s.state}
	}
	i, first, second := s.tally.top()
	s.finish(StateExhausted, i, first, first-second)
	return nil
}

// Result returns the outcome once the session is terminal.
func (s *Session[V]) Result() (Outcome[V], error) {
	if !s.state.IsTerminal() {
		return Outcome[V]{}, &MisuseError{Op: "result", State: s.state}
	}
	return s.outcome, nil
}

func (s *Session[V]) finish(target State, leader, votes, lead int) {
	if !s.state.CanTransitionTo(target) {
		return
	}
	kind := OutcomeWinner
	if target == StateExhausted {
		kind = OutcomeExhausted
	}
	s.state = target
	s.outcome = Outcome[V]{
		Kind:        kind,
		Value:       s.tally.entries[leader].rep,
		SamplesUsed: s.tally.Total(),
		Votes:       votes,
		Lead:        lead,
		Distinct:    s.tally.Distinct(),
	}
}

// Decide feeds values into a fresh session until it is terminal. ok is false
// when the values run out first.
func Decide[V comparable](values []V, k, sampleCap int, opts ...SessionOption[V]) (Outcome[V], bool, error) {
	s, err := NewSession(k, sampleCap, opts...)
	if err != nil {
		return Outcome[V]{}, false, err
	}
	for _, v := range values {
		state, err := s.ObserveValue(v)
		if err != nil {
			return Outcome[V]{}, false, err
		}
		if state.IsTerminal() {
			out, err := s.Result()
			return out, err == nil, err
		}
	}
	return Outcome[V]{}, false, nil
}
