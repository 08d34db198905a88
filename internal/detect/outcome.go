package detect

// Outcome reduces a warning set to a single exit signal.
type Outcome int

const (
	OutcomeHealthy Outcome = iota
	OutcomeWarnings
	OutcomeCritical
)

func (o Outcome) String() string {
	switch o {
	case OutcomeHealthy:
		return "healthy"
	case OutcomeWarnings:
		return "warnings"
	case OutcomeCritical:
		return "critical"
	}
	return "unknown"
}

// ExitCode maps the outcome to the conventional process exit code:
// 0 healthy, 1 warnings present, 2 critical.
func (o Outcome) ExitCode() int { return int(o) }

// Aggregate reduces warnings to an outcome by maximum severity. Info-only
// findings still count as warnings present.
func Aggregate(warnings []Warning) Outcome {
	if len(warnings) == 0 {
		return OutcomeHealthy
	}
	for _, w := range warnings {
		if w.Severity == SeverityCritical {
			return OutcomeCritical
		}
	}
	return OutcomeWarnings
}
