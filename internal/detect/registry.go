package detect

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/gzhole/agentwatch/internal/action"
)

// Mode selects which detector categories a registry runs.
type Mode string

const (
	ModeHealth   Mode = "health"
	ModeSecurity Mode = "security"
	ModeAll      Mode = "all"
)

// Registry holds the active detector set for a chosen mode and runs them
// against one snapshot per pass. Registries are constructed per run and
// passed by reference through the evaluation call chain; there is no
// process-wide instance.
type Registry struct {
	detectors []Detector
	names     map[string]struct{}
	logger    *zap.Logger

	// diagnostics from the most recent CheckAll pass.
	diagnostics []Diagnostic
}

// NewRegistry builds a registry populated with the built-in detectors for
// the given mode. An unrecognized mode is a ConfigurationError.
func NewRegistry(mode Mode, th Thresholds, logger *zap.Logger) (*Registry, error) {
	th = th.withDefaults()
	if err := th.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var detectors []Detector
	switch mode {
	case ModeHealth:
		detectors = healthDetectors(th)
	case ModeSecurity:
		detectors = securityDetectors(th)
	case ModeAll:
		detectors = append(healthDetectors(th), securityDetectors(th)...)
	default:
		return nil, &ConfigurationError{Field: "mode", Reason: fmt.Sprintf("unrecognized mode %q", mode)}
	}

	r := &Registry{
		names:  make(map[string]struct{}, len(detectors)),
		logger: logger.Named("registry"),
	}
	for _, d := range detectors {
		if err := r.Add(d); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// healthDetectors returns the built-in health set in registration order.
func healthDetectors(th Thresholds) []Detector {
	return []Detector{
		&loopDetector{th: th},
		&thrashDetector{th: th},
		&rereadDetector{th: th},
		&stallDetector{th: th},
		&errorSpiralDetector{th: th},
		&errorBlindnessDetector{},
		&contextRotDetector{th: th},
		&contextPressureDetector{th: th},
	}
}

// securityDetectors returns the built-in security set in registration order.
func securityDetectors(th Thresholds) []Detector {
	sensitive := newSensitiveMatcher(th.SensitivePaths)
	approved := newHostSet(th.ApprovedHosts)
	return []Detector{
		&credentialAccessDetector{sensitive: sensitive},
		&secretInOutputDetector{},
		&promptInjectionDetector{},
		&hiddenInstructionDetector{},
		&privilegeEscalationDetector{},
		&dangerousCommandDetector{},
		&networkAnomalyDetector{approved: approved},
		&dataExfiltrationDetector{th: th, sensitive: sensitive, approved: approved},
		&maliciousSkillDetector{sensitive: sensitive},
	}
}

// Add registers an additional detector. A duplicate name is a
// ConflictError.
func (r *Registry) Add(d Detector) error {
	if _, exists := r.names[d.Name()]; exists {
		return &ConflictError{Name: d.Name()}
	}
	r.names[d.Name()] = struct{}{}
	r.detectors = append(r.detectors, d)
	return nil
}

// Detectors returns the registered detectors in registration order.
func (r *Registry) Detectors() []Detector { return r.detectors }

// Diagnostics returns the internal faults recorded during the most recent
// CheckAll pass.
func (r *Registry) Diagnostics() []Diagnostic { return r.diagnostics }

// CheckAll invokes every registered detector exactly once against the same
// snapshot and returns the non-empty results ordered by severity
// descending, then registration order. Consumers rely on this ordering for
// display and exit-code derivation. A panicking detector does not abort
// the pass: the fault is contained, logged, and recorded as a diagnostic.
func (r *Registry) CheckAll(snap action.Snapshot) []Warning {
	r.diagnostics = nil

	type ranked struct {
		w     Warning
		order int
	}
	var results []ranked

	for i, d := range r.detectors {
		w := r.checkOne(d, snap)
		if w == nil {
			continue
		}
		results = append(results, ranked{w: *w, order: i})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].w.Severity != results[j].w.Severity {
			return results[i].w.Severity > results[j].w.Severity
		}
		return results[i].order < results[j].order
	})

	warnings := make([]Warning, 0, len(results))
	for _, res := range results {
		warnings = append(warnings, res.w)
	}
	return warnings
}

// checkOne runs a single detector with fault isolation.
func (r *Registry) checkOne(d Detector, snap action.Snapshot) (w *Warning) {
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("detector panic: %v", rec)
			r.diagnostics = append(r.diagnostics, Diagnostic{Detector: d.Name(), Err: err})
			r.logger.Warn("detector fault contained",
				zap.String("detector", d.Name()),
				zap.Error(err))
			w = nil
		}
	}()
	return d.Check(snap)
}
