package action

import (
	"fmt"
	"time"
)

// Buffer is a bounded, ordered, append-only window over recent actions.
// It owns every Action exclusively: records are copied in on Append and
// never mutated afterwards. The buffer has exactly one writer; readers
// consume immutable snapshots.
type Buffer struct {
	capacity int
	span     time.Duration // 0 disables the time bound
	actions  []Action
	nextSeq  int
}

// NewBuffer creates a buffer bounded by capacity (action count) and span
// (wall-clock window, 0 to disable). A non-positive capacity is a
// configuration error, not a runtime fault.
func NewBuffer(capacity int, span time.Duration) (*Buffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("buffer capacity must be positive, got %d", capacity)
	}
	if span < 0 {
		return nil, fmt.Errorf("buffer span must be non-negative, got %s", span)
	}
	return &Buffer{
		capacity: capacity,
		span:     span,
		actions:  make([]Action, 0, capacity),
	}, nil
}

// Append assigns the next sequence number, inserts the action at the tail,
// and evicts from the head while the capacity or span bound is violated.
// Returns the sequence number assigned.
func (b *Buffer) Append(a Action) int {
	a.Sequence = b.nextSeq
	b.nextSeq++

	if len(a.Content) > MaxContentBytes {
		a.Content = a.Content[:MaxContentBytes]
	}

	b.actions = append(b.actions, a)

	for len(b.actions) > b.capacity {
		b.actions = b.actions[1:]
	}
	if b.span > 0 {
		cutoff := a.Timestamp.Add(-b.span)
		for len(b.actions) > 1 && b.actions[0].Timestamp.Before(cutoff) {
			b.actions = b.actions[1:]
		}
	}

	return a.Sequence
}

// Len returns the number of actions currently held.
func (b *Buffer) Len() int { return len(b.actions) }

// NextSequence returns the sequence number the next Append will assign.
func (b *Buffer) NextSequence() int { return b.nextSeq }

// Snapshot returns an immutable, consistent view of the current contents.
// The returned snapshot is safe to read after further appends; it never
// observes a partially-evicted or partially-inserted state.
func (b *Buffer) Snapshot() Snapshot {
	out := make([]Action, len(b.actions))
	copy(out, b.actions)
	return Snapshot{actions: out}
}

// Snapshot is a read-only, ordered view over buffer contents at one point
// in time. Detectors receive a Snapshot and must not retain it past their
// own evaluation call.
type Snapshot struct {
	actions []Action
}

// SnapshotOf builds a snapshot directly from a slice. Sequence numbers are
// assigned positionally when unset. Test and adapter helper.
func SnapshotOf(actions ...Action) Snapshot {
	out := make([]Action, len(actions))
	copy(out, actions)
	for i := range out {
		if out[i].Sequence == 0 && i > 0 {
			out[i].Sequence = out[i-1].Sequence + 1
		}
	}
	return Snapshot{actions: out}
}

// Len returns the number of actions in the snapshot.
func (s Snapshot) Len() int { return len(s.actions) }

// All returns the full ordered sequence.
func (s Snapshot) All() []Action { return s.actions }

// At returns the i-th action in buffer order.
func (s Snapshot) At(i int) Action { return s.actions[i] }

// Last returns the most recent k actions in buffer order. k larger than
// the snapshot returns everything.
func (s Snapshot) Last(k int) []Action {
	if k >= len(s.actions) {
		return s.actions
	}
	return s.actions[len(s.actions)-k:]
}

// First returns the oldest k actions in buffer order.
func (s Snapshot) First(k int) []Action {
	if k >= len(s.actions) {
		return s.actions
	}
	return s.actions[:k]
}

// ByKind returns actions of the given kind, preserving order.
func (s Snapshot) ByKind(k Kind) []Action {
	return s.Window(func(a Action) bool { return a.Kind == k })
}

// ByTarget returns actions whose target matches exactly, preserving order.
func (s Snapshot) ByTarget(target string) []Action {
	return s.Window(func(a Action) bool { return a.Target == target })
}

// Window produces the actions satisfying the predicate, preserving buffer
// order. Finite and restartable per call.
func (s Snapshot) Window(pred func(Action) bool) []Action {
	var out []Action
	for _, a := range s.actions {
		if pred(a) {
			out = append(out, a)
		}
	}
	return out
}

// Tail returns the most recent action and true, or the zero Action and
// false for an empty snapshot.
func (s Snapshot) Tail() (Action, bool) {
	if len(s.actions) == 0 {
		return Action{}, false
	}
	return s.actions[len(s.actions)-1], true
}

// ScaledWindow returns an action-count window that grows with snapshot
// size: max(base, min(cap, len*fraction)). Longer sessions scan a
// proportionally larger history so short fixed windows do not miss
// patterns buried hundreds of actions back.
func (s Snapshot) ScaledWindow(base int, fraction float64, limit int) int {
	n := int(float64(len(s.actions)) * fraction)
	if n > limit {
		n = limit
	}
	if n < base {
		n = base
	}
	return n
}
