package detect

import (
	"fmt"
	"strings"

	"github.com/gzhole/agentwatch/internal/action"
)

// Adaptive window parameters shared by the trailing-window health
// detectors. Windows grow with session length (see Snapshot.ScaledWindow).
const (
	windowBase     = 20
	windowFraction = 0.15
	windowCap      = 100
)

// fingerprint reduces an action to its structural identity: kind plus
// normalized target, ignoring volatile fields like content and outcome.
func fingerprint(a action.Action) string {
	return string(a.Kind) + "\x00" + normalizeTarget(a.Target)
}

// normalizeTarget collapses whitespace runs so trivially re-quoted or
// re-spaced commands share a fingerprint.
func normalizeTarget(target string) string {
	return strings.Join(strings.Fields(target), " ")
}

// ---------------------------------------------------------------------------
// loop: the agent repeats the same action over and over
// ---------------------------------------------------------------------------

type loopDetector struct{ th Thresholds }

func (d *loopDetector) Name() string       { return "loop" }
func (d *loopDetector) Category() Category { return CategoryHealth }

// Check fires when one fingerprint repeats at least LoopRepeats times with
// no distinct fingerprint breaking the run. Repeats scattered across the
// window do not count; the run must be unbroken.
func (d *loopDetector) Check(snap action.Snapshot) *Warning {
	window := snap.Last(snap.ScaledWindow(windowBase, windowFraction, windowCap))
	if len(window) < d.th.LoopRepeats {
		return nil
	}

	runStart := 0
	var best []action.Action
	for i := 1; i <= len(window); i++ {
		if i == len(window) || fingerprint(window[i]) != fingerprint(window[runStart]) {
			if i-runStart >= d.th.LoopRepeats {
				best = window[runStart:i] // most recent qualifying run wins
			}
			runStart = i
		}
	}
	if best == nil {
		return nil
	}

	evidence := make([]int, len(best))
	for i, a := range best {
		evidence[i] = a.Sequence
	}
	last := best[len(best)-1]
	return &Warning{
		Category: CategoryHealth,
		Severity: SeverityWarning,
		Signal:   "loop",
		Message: fmt.Sprintf("agent repeated %s %q %d times in a row",
			last.Kind, last.Target, len(best)),
		Evidence:   evidence,
		DetectedAt: last.Sequence,
	}
}

// ---------------------------------------------------------------------------
// thrash: edit, fail the tests, edit, fail the tests, ...
// ---------------------------------------------------------------------------

type thrashDetector struct{ th Thresholds }

func (d *thrashDetector) Name() string       { return "thrash" }
func (d *thrashDetector) Category() Category { return CategoryHealth }

// Check fires when at least ThrashCycles consecutive edit→failing-test
// pairs occur without an intervening passing test. Unrelated actions
// between the edit and the test do not break a pair.
func (d *thrashDetector) Check(snap action.Snapshot) *Warning {
	window := snap.Last(snap.ScaledWindow(windowBase, windowFraction, windowCap))

	var (
		evidence []int
		cycles   int
		editSeq  = -1
	)
	for _, a := range window {
		switch {
		case a.Kind == action.KindEdit || a.Kind == action.KindWrite:
			editSeq = a.Sequence
		case a.Kind == action.KindTest && a.Failed():
			if editSeq >= 0 {
				cycles++
				evidence = append(evidence, editSeq, a.Sequence)
				editSeq = -1
			}
		case a.Kind == action.KindTest && a.Outcome == action.OutcomeSuccess:
			// A green test ends the thrash run.
			cycles = 0
			evidence = nil
			editSeq = -1
		}
	}
	if cycles < d.th.ThrashCycles {
		return nil
	}

	return &Warning{
		Category: CategoryHealth,
		Severity: SeverityWarning,
		Signal:   "thrash",
		Message: fmt.Sprintf("%d consecutive edit→failing-test cycles without a passing test",
			cycles),
		Evidence:   evidence,
		DetectedAt: evidence[len(evidence)-1],
	}
}

// ---------------------------------------------------------------------------
// reread: the same unchanged file read again and again
// ---------------------------------------------------------------------------

type rereadDetector struct{ th Thresholds }

func (d *rereadDetector) Name() string       { return "reread" }
func (d *rereadDetector) Category() Category { return CategoryHealth }

// Check counts reads per target within the window; an edit to a target
// resets its counter, since rereading after a change is legitimate.
func (d *rereadDetector) Check(snap action.Snapshot) *Warning {
	window := snap.Last(snap.ScaledWindow(windowBase, windowFraction, windowCap))

	reads := make(map[string][]int)
	for _, a := range window {
		switch a.Kind {
		case action.KindRead:
			if a.Target != "" {
				reads[a.Target] = append(reads[a.Target], a.Sequence)
			}
		case action.KindEdit, action.KindWrite:
			delete(reads, a.Target)
		}
	}

	var worst string
	for target, seqs := range reads {
		if len(seqs) >= d.th.RereadCount && (worst == "" || len(seqs) > len(reads[worst])) {
			worst = target
		}
	}
	if worst == "" {
		return nil
	}

	seqs := reads[worst]
	return &Warning{
		Category: CategoryHealth,
		Severity: SeverityInfo,
		Signal:   "reread",
		Message: fmt.Sprintf("%q read %d times with no edit in between",
			worst, len(seqs)),
		Evidence:   seqs,
		DetectedAt: seqs[len(seqs)-1],
	}
}

// ---------------------------------------------------------------------------
// stall: lots of looking, no doing
// ---------------------------------------------------------------------------

type stallDetector struct{ th Thresholds }

func (d *stallDetector) Name() string       { return "stall" }
func (d *stallDetector) Category() Category { return CategoryHealth }

// Check compares read+message volume against write+edit+command volume over
// the trailing StallWindow actions. Sessions shorter than StallMinActions
// never fire; an early exploration phase is normal.
func (d *stallDetector) Check(snap action.Snapshot) *Warning {
	if snap.Len() < d.th.StallMinActions {
		return nil
	}
	window := snap.Last(d.th.StallWindow)

	var investigating, producing int
	var evidence []int
	for _, a := range window {
		switch a.Kind {
		case action.KindRead, action.KindMessage:
			investigating++
			evidence = append(evidence, a.Sequence)
		case action.KindWrite, action.KindEdit, action.KindCommand:
			producing++
		}
	}
	if investigating == 0 {
		return nil
	}

	divisor := producing
	if divisor == 0 {
		divisor = 1
	}
	ratio := float64(investigating) / float64(divisor)
	if ratio <= d.th.StallRatio {
		return nil
	}

	tail, _ := snap.Tail()
	return &Warning{
		Category: CategoryHealth,
		Severity: SeverityInfo,
		Signal:   "stall",
		Message: fmt.Sprintf("%d reads/messages against %d writes/edits/commands in the last %d actions",
			investigating, producing, len(window)),
		Evidence:   evidence,
		DetectedAt: tail.Sequence,
	}
}
