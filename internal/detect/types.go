// Package detect holds the warning vocabulary, the detector abstraction,
// and the battery of health and security detectors that evaluate a buffer
// snapshot of agent activity.
package detect

import (
	"fmt"

	"github.com/gzhole/agentwatch/internal/action"
)

// Category groups detectors by what they watch for.
type Category string

const (
	CategoryHealth   Category = "health"
	CategorySecurity Category = "security"
)

// Severity orders warnings by impact: Info < Warning < Critical.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityCritical:
		return "critical"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// Warning is a single structured finding from a detector.
type Warning struct {
	Category Category `json:"category"`
	Severity Severity `json:"severity"`
	// Signal is the stable short identifier naming the finding type,
	// e.g. "loop" or "data_exfiltration".
	Signal  string `json:"signal"`
	Message string `json:"message"`
	// Evidence is the minimal list of action sequence numbers that
	// justify the finding.
	Evidence []int `json:"evidence"`
	// DetectedAt is the sequence number of the triggering action.
	DetectedAt int `json:"detected_at"`
}

// Detector is one unit of detection logic. Implementations are pure
// functions of the snapshot: no hidden state, so replay is deterministic
// and each detector can be unit tested in isolation. Check returns nil
// when the pattern is absent; a detector fires at most once per call.
type Detector interface {
	Name() string
	Category() Category
	Check(snap action.Snapshot) *Warning
}

// Diagnostic records an internal detector fault contained during a pass.
// Faults never surface as warnings and never abort the evaluation.
type Diagnostic struct {
	Detector string
	Err      error
}

// ConfigurationError indicates an invalid configuration value. It is fatal
// and surfaced before any processing begins.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// ConflictError indicates a duplicate detector registration. Fatal at
// registration time.
type ConflictError struct {
	Name string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("detector %q already registered", e.Name)
}
