// Package health turns a warning set into display scores. Scores are
// advisory output for the report surface; exit signals stay derived from
// warning severity alone.
package health

import (
	"github.com/gzhole/agentwatch/internal/action"
	"github.com/gzhole/agentwatch/internal/detect"
)

// Deductions applied per warning when scoring a category.
func severityImpact(s detect.Severity) int {
	switch s {
	case detect.SeverityCritical:
		return 40
	case detect.SeverityWarning:
		return 15
	default:
		return 5
	}
}

// Status buckets for a 0-100 score.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

func statusOf(score int) Status {
	switch {
	case score >= 80:
		return StatusHealthy
	case score >= 50:
		return StatusWarning
	default:
		return StatusCritical
	}
}

// CategoryScore is the 0-100 score for one warning category.
type CategoryScore struct {
	Category detect.Category  `json:"category"`
	Score    int              `json:"score"`
	Warnings []detect.Warning `json:"warnings,omitempty"`
}

func (c CategoryScore) Status() Status { return statusOf(c.Score) }

// Report is the session health summary.
type Report struct {
	Overall    int                               `json:"overall_score"`
	Security   int                               `json:"security_score"`
	Categories map[detect.Category]CategoryScore `json:"categories"`
	Efficiency Efficiency                        `json:"efficiency"`
	Warnings   []detect.Warning                  `json:"warnings"`
}

func (r Report) Status() Status { return statusOf(r.Overall) }

// Blend weights for the overall score.
const (
	detectorWeight   = 0.60
	efficiencyWeight = 0.20
	pressureWeight   = 0.20
)

// Calculate builds the health report for a warning set over the buffered
// session. Each category starts at 100 and loses points per warning by
// severity; the overall score blends the worst category with the
// efficiency score and remaining context headroom.
func Calculate(warnings []detect.Warning, snap action.Snapshot, capacity int) Report {
	byCategory := make(map[detect.Category][]detect.Warning)
	for _, w := range warnings {
		byCategory[w.Category] = append(byCategory[w.Category], w)
	}

	categories := make(map[detect.Category]CategoryScore, 2)
	for _, cat := range []detect.Category{detect.CategoryHealth, detect.CategorySecurity} {
		score := 100
		for _, w := range byCategory[cat] {
			score -= severityImpact(w.Severity)
		}
		if score < 0 {
			score = 0
		}
		categories[cat] = CategoryScore{
			Category: cat,
			Score:    score,
			Warnings: byCategory[cat],
		}
	}

	detectorScore := categories[detect.CategoryHealth].Score
	if s := categories[detect.CategorySecurity].Score; s < detectorScore {
		detectorScore = s
	}

	eff := CalculateEfficiency(warnings, snap, capacity)

	usage := detect.ContextUsage(snap, capacity)
	if usage > 1 {
		usage = 1
	}
	headroom := int((1 - usage) * 100)

	overall := int(float64(detectorScore)*detectorWeight +
		float64(eff.Score)*efficiencyWeight +
		float64(headroom)*pressureWeight)
	overall = clampScore(overall)

	return Report{
		Overall:    overall,
		Security:   SecurityScore(warnings),
		Categories: categories,
		Efficiency: eff,
		Warnings:   warnings,
	}
}

// SecurityScore scores the security posture alone. Any critical security
// warning zeroes it outright.
func SecurityScore(warnings []detect.Warning) int {
	score := 100
	seen := false
	for _, w := range warnings {
		if w.Category != detect.CategorySecurity {
			continue
		}
		if w.Severity == detect.SeverityCritical {
			return 0
		}
		seen = true
		score -= severityImpact(w.Severity)
	}
	if !seen {
		return 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

// Efficiency measures how much useful runway the session has left before a
// fresh session would be more productive.
type Efficiency struct {
	Score           int     `json:"score"`
	Status          string  `json:"status"`
	ContextUsagePct float64 `json:"context_usage_pct"`
	WasteRatio      float64 `json:"waste_ratio"`
	Recommendation  string  `json:"recommendation"`
}

// Penalty weights for efficiency scoring. Sum to 1.0.
const (
	pressurePenaltyWeight    = 0.45
	rotPenaltyWeight         = 0.20
	rediscoveryPenaltyWeight = 0.10
	wastePenaltyWeight       = 0.25
)

const duplicateReadWindow = 50

// CalculateEfficiency scores session runway from context usage, rot and
// rediscovery warnings, and the fraction of actions that were wasted work.
func CalculateEfficiency(warnings []detect.Warning, snap action.Snapshot, capacity int) Efficiency {
	usage := detect.ContextUsage(snap, capacity)
	if usage > 1 {
		usage = 1
	}
	pressurePenalty := usage

	var rotCount, rediscoveryCount float64
	for _, w := range warnings {
		switch w.Signal {
		case "context_rot":
			rotCount++
		case "reread":
			rediscoveryCount++
		}
	}
	rotPenalty := capPenalty(rotCount / 5)
	rediscoveryPenalty := capPenalty(rediscoveryCount / 4)

	wasteRatio := wasteRatioOf(snap)
	wastePenalty := capPenalty(wasteRatio / 0.3)

	totalPenalty := pressurePenalty*pressurePenaltyWeight +
		rotPenalty*rotPenaltyWeight +
		rediscoveryPenalty*rediscoveryPenaltyWeight +
		wastePenalty*wastePenaltyWeight

	score := clampScore(int(100 * (1 - totalPenalty)))

	return Efficiency{
		Score:           score,
		Status:          efficiencyStatus(score),
		ContextUsagePct: usage * 100,
		WasteRatio:      wasteRatio,
		Recommendation:  recommendation(score),
	}
}

// wasteRatioOf is the fraction of buffered actions spent on failed commands
// or re-reading files already read within the trailing window.
func wasteRatioOf(snap action.Snapshot) float64 {
	all := snap.All()
	if len(all) == 0 {
		return 0
	}

	wasted := 0
	for i, a := range all {
		if (a.Kind == action.KindCommand || a.Kind == action.KindTest) && a.Failed() {
			wasted++
			continue
		}
		if a.Kind != action.KindRead || a.Target == "" {
			continue
		}
		start := i - duplicateReadWindow
		if start < 0 {
			start = 0
		}
		for j := start; j < i; j++ {
			if all[j].Kind == action.KindRead && all[j].Target == a.Target {
				wasted++
				break
			}
		}
	}
	return float64(wasted) / float64(len(all))
}

func efficiencyStatus(score int) string {
	switch {
	case score >= 70:
		return "efficient"
	case score >= 40:
		return "degraded"
	default:
		return "wasteful"
	}
}

func recommendation(score int) string {
	switch {
	case score >= 80:
		return "session is healthy"
	case score >= 60:
		return "efficiency declining, consider wrapping up soon"
	case score >= 40:
		return "session degraded, start planning a fresh session"
	default:
		return "consider starting a fresh session"
	}
}

func capPenalty(p float64) float64 {
	if p > 1 {
		return 1
	}
	return p
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
