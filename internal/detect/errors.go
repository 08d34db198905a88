package detect

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gzhole/agentwatch/internal/action"
)

// ---------------------------------------------------------------------------
// error_spiral: failures piling up back to back
// ---------------------------------------------------------------------------

type errorSpiralDetector struct{ th Thresholds }

func (d *errorSpiralDetector) Name() string       { return "error_spiral" }
func (d *errorSpiralDetector) Category() Category { return CategoryHealth }

// Check fires when the trailing run of consecutive failing actions reaches
// ErrorSpiralRun.
func (d *errorSpiralDetector) Check(snap action.Snapshot) *Warning {
	all := snap.All()

	var run []int
	for i := len(all) - 1; i >= 0; i-- {
		if !all[i].Failed() {
			break
		}
		run = append([]int{all[i].Sequence}, run...)
	}
	if len(run) < d.th.ErrorSpiralRun {
		return nil
	}

	return &Warning{
		Category:   CategoryHealth,
		Severity:   SeverityWarning,
		Signal:     "error_spiral",
		Message:    fmt.Sprintf("%d consecutive failures and counting", len(run)),
		Evidence:   run,
		DetectedAt: run[len(run)-1],
	}
}

// ---------------------------------------------------------------------------
// error_blindness: hitting the same error twice without changing anything
// ---------------------------------------------------------------------------

var (
	hexRun       = regexp.MustCompile(`0x[0-9a-fA-F]+`)
	digitRun     = regexp.MustCompile(`\d+`)
	pathLike     = regexp.MustCompile(`(/[\w.\-]+)+`)
	spaceRun     = regexp.MustCompile(`\s+`)
	maxSignature = 160
)

// errorSignature normalizes an error payload so that reoccurrences of the
// same failure compare equal despite volatile addresses, line numbers, and
// paths.
func errorSignature(a action.Action) string {
	text := a.Content
	if text == "" {
		text = a.Meta("error")
	}
	if text == "" {
		return ""
	}
	// First line carries the error class in practically every toolchain.
	if idx := strings.IndexByte(text, '\n'); idx > 0 {
		text = text[:idx]
	}
	text = strings.ToLower(text)
	text = hexRun.ReplaceAllString(text, "#")
	text = pathLike.ReplaceAllString(text, "<path>")
	text = digitRun.ReplaceAllString(text, "#")
	text = spaceRun.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)
	if len(text) > maxSignature {
		text = text[:maxSignature]
	}
	return text
}

type errorBlindnessDetector struct{}

func (d *errorBlindnessDetector) Name() string       { return "error_blindness" }
func (d *errorBlindnessDetector) Category() Category { return CategoryHealth }

// Check fires when the same normalized error signature appears twice with
// no edit to the implicated target between the occurrences: the agent saw
// the error and changed nothing relevant before retrying.
func (d *errorBlindnessDetector) Check(snap action.Snapshot) *Warning {
	all := snap.All()

	type occurrence struct {
		idx    int
		target string
	}
	seen := make(map[string]occurrence)

	for i, a := range all {
		if !a.Failed() {
			continue
		}
		sig := errorSignature(a)
		if sig == "" {
			continue
		}

		prev, ok := seen[sig]
		if !ok {
			seen[sig] = occurrence{idx: i, target: a.Target}
			continue
		}

		if editedBetween(all, prev.idx, i, prev.target) {
			// Something relevant changed; restart tracking from here.
			seen[sig] = occurrence{idx: i, target: a.Target}
			continue
		}

		return &Warning{
			Category: CategoryHealth,
			Severity: SeverityWarning,
			Signal:   "error_blindness",
			Message: fmt.Sprintf("error %q repeated without an intervening fix attempt",
				truncate(sig, 80)),
			Evidence:   []int{all[prev.idx].Sequence, a.Sequence},
			DetectedAt: a.Sequence,
		}
	}
	return nil
}

// editedBetween reports whether an edit or write to target occurred in
// (from, to) exclusive. An empty target accepts any edit.
func editedBetween(all []action.Action, from, to int, target string) bool {
	for i := from + 1; i < to; i++ {
		a := all[i]
		if a.Kind != action.KindEdit && a.Kind != action.KindWrite {
			continue
		}
		if target == "" || a.Target == target {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
