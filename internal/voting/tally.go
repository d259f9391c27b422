package voting

// entry is one distinct value in a tally. rep is the first original value
// observed for the key.
type entry[V comparable] struct {
	key   V
	rep   V
	votes int
}

// Tally counts votes per distinct value. Entries are kept in first-observed
// order, which is the tie-break order.
type Tally[V comparable] struct {
	entries []entry[V]
	index   map[V]int
	total   int
}

func newTally[V comparable]() *Tally[V] {
	return &Tally[V]{index: make(map[V]int)}
}

// add records one vote for key, remembering rep if the key is new.
func (t *Tally[V]) add(key, rep V) {
	i, ok := t.index[key]
	if !ok {
		i = len(t.entries)
		t.index[key] = i
		t.entries = append(t.entries, entry[V]{key: key, rep: rep})
	}
	t.entries[i].votes++
	t.total++
}

// Total returns the number of votes recorded.
func (t *Tally[V]) Total() int {
	return t.total
}

// Distinct returns the number of distinct values seen.
func (t *Tally[V]) Distinct() int {
	return len(t.entries)
}

// top returns the leader index and the top and second-highest counts.
// The leader is the earliest-observed value among those with the top count.
// Returns -1 for an empty tally.
func (t *Tally[V]) top() (leader, first, second int) {
	leader = -1
	for i, e := range t.entries {
		switch {
		case e.votes > first:
			second = first
			first = e.votes
			leader = i
		case e.votes > second:
			second = e.votes
		}
	}
	return leader, first, second
}

// Counts returns a snapshot of the tally in first-observed order.
func (t *Tally[V]) Counts() []Count[V] {
	out := make([]Count[V], len(t.entries))
	for i, e := range t.entries {
		out[i] = Count[V]{Value: e.rep, Votes: e.votes}
	}
	return out
}
