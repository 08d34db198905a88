package detect

import (
	"fmt"

	"github.com/gzhole/agentwatch/internal/action"
)

// ---------------------------------------------------------------------------
// context_rot: editing a file whose contents the agent last saw long ago
// ---------------------------------------------------------------------------

type contextRotDetector struct{ th Thresholds }

func (d *contextRotDetector) Name() string       { return "context_rot" }
func (d *contextRotDetector) Category() Category { return CategoryHealth }

// Check looks for a file read in the first ContextRotEarlyFraction of the
// buffer that is later edited more than ContextRotStaleActions after its
// last read. The agent is operating on a memory of the file, not the file.
func (d *contextRotDetector) Check(snap action.Snapshot) *Warning {
	all := snap.All()
	earlyCount := int(float64(len(all)) * d.th.ContextRotEarlyFraction)
	if earlyCount == 0 {
		return nil
	}

	earlyReads := make(map[string]bool)
	for _, a := range all[:earlyCount] {
		if a.Kind == action.KindRead && a.Target != "" {
			earlyReads[a.Target] = true
		}
	}
	if len(earlyReads) == 0 {
		return nil
	}

	lastRead := make(map[string]int) // target -> snapshot index of last read
	for i, a := range all {
		if a.Kind == action.KindRead && earlyReads[a.Target] {
			lastRead[a.Target] = i
			continue
		}
		if a.Kind != action.KindEdit || !earlyReads[a.Target] {
			continue
		}
		readIdx, ok := lastRead[a.Target]
		if !ok {
			continue
		}
		if i-readIdx > d.th.ContextRotStaleActions {
			return &Warning{
				Category: CategoryHealth,
				Severity: SeverityWarning,
				Signal:   "context_rot",
				Message: fmt.Sprintf("%q edited %d actions after it was last read; its contents may have rotted out of context",
					a.Target, i-readIdx),
				Evidence:   []int{all[readIdx].Sequence, a.Sequence},
				DetectedAt: a.Sequence,
			}
		}
		// The edit itself refreshes the agent's view of the file.
		lastRead[a.Target] = i
	}
	return nil
}

// ---------------------------------------------------------------------------
// context_pressure: the session is close to filling the agent's context
// ---------------------------------------------------------------------------

// estimatedTokens approximates token usage for one action: roughly four
// bytes per token of content plus a fixed overhead for the tool-call
// framing itself.
func estimatedTokens(a action.Action) int {
	const perActionOverhead = 50
	return perActionOverhead + (len(a.Content)+len(a.Target))/4
}

// ContextUsage estimates the fraction of a context capacity the buffered
// session has consumed.
func ContextUsage(snap action.Snapshot, capacity int) float64 {
	if capacity <= 0 {
		return 0
	}
	var total int
	for _, a := range snap.All() {
		total += estimatedTokens(a)
	}
	return float64(total) / float64(capacity)
}

type contextPressureDetector struct{ th Thresholds }

func (d *contextPressureDetector) Name() string       { return "context_pressure" }
func (d *contextPressureDetector) Category() Category { return CategoryHealth }

// Check accumulates estimated token usage across the buffer and fires when
// the total crosses ContextPressureFraction of ContextCapacity. Above 95%
// the severity is critical: the next compaction or truncation is imminent.
func (d *contextPressureDetector) Check(snap action.Snapshot) *Warning {
	var total int
	for _, a := range snap.All() {
		total += estimatedTokens(a)
	}

	usage := float64(total) / float64(d.th.ContextCapacity)
	if usage < d.th.ContextPressureFraction {
		return nil
	}

	severity := SeverityWarning
	if usage >= 0.95 {
		severity = SeverityCritical
	}
	tail, ok := snap.Tail()
	if !ok {
		return nil
	}
	return &Warning{
		Category: CategoryHealth,
		Severity: severity,
		Signal:   "context_pressure",
		Message: fmt.Sprintf("estimated context usage at %.0f%% of capacity (~%d tokens)",
			usage*100, total),
		Evidence:   []int{tail.Sequence},
		DetectedAt: tail.Sequence,
	}
}
