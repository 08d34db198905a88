// Package action defines the canonical record of one agent event and the
// bounded in-memory window of recent events that detectors evaluate.
package action

import "time"

// Kind classifies what an agent action did.
type Kind string

const (
	KindRead        Kind = "read"
	KindWrite       Kind = "write"
	KindEdit        Kind = "edit"
	KindTest        Kind = "test"
	KindCommand     Kind = "command"
	KindNetwork     Kind = "network"
	KindMessage     Kind = "message"
	KindSkillInvoke Kind = "skill_invoke"
)

// Outcome is the observed result of an action.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeUnknown Outcome = "unknown"
)

// MaxContentBytes bounds the Content payload carried per action. Adapters
// truncate before insertion; the buffer enforces it again on Append.
const MaxContentBytes = 64 * 1024

// Action is one immutable event performed by or observed from the monitored
// agent. Sequence is assigned by the buffer on insertion and is strictly
// increasing and dense within a buffer instance. Detectors order by
// Sequence, never by Timestamp: adapters may deliver skewed clocks, but
// insertion order is authoritative.
type Action struct {
	Sequence  int
	Timestamp time.Time
	Kind      Kind
	// Target is a file path for read/write/edit, a command string for
	// command/test, a URL or host for network, a skill name for
	// skill_invoke, and a channel or peer for message.
	Target string
	// Content is an optional size-bounded payload: command output, a file
	// excerpt, or message text.
	Content string
	Outcome Outcome
	// Metadata carries auxiliary adapter fields (exit code, bytes
	// transferred, remote host, skill attribution).
	Metadata map[string]string
}

// IsFileKind reports whether the action's target names a file.
func (a Action) IsFileKind() bool {
	switch a.Kind {
	case KindRead, KindWrite, KindEdit:
		return true
	}
	return false
}

// Failed reports whether the action's outcome was a failure.
func (a Action) Failed() bool { return a.Outcome == OutcomeFailure }

// Meta returns a metadata value, or "" when absent.
func (a Action) Meta(key string) string {
	if a.Metadata == nil {
		return ""
	}
	return a.Metadata[key]
}
