package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/gzhole/agentwatch/internal/detect"
	"github.com/gzhole/agentwatch/internal/health"
)

var (
	criticalColor = color.New(color.FgRed, color.Bold)
	warningColor  = color.New(color.FgYellow)
	infoColor     = color.New(color.FgCyan)
	okColor       = color.New(color.FgGreen)
	dimColor      = color.New(color.Faint)
)

func severityColor(s detect.Severity) *color.Color {
	switch s {
	case detect.SeverityCritical:
		return criticalColor
	case detect.SeverityWarning:
		return warningColor
	default:
		return infoColor
	}
}

func printWarning(w detect.Warning) {
	c := severityColor(w.Severity)
	fmt.Printf("%s [%s] %s\n", c.Sprintf("%-8s", strings.ToUpper(w.Severity.String())), w.Signal, w.Message)
	if len(w.Evidence) > 0 {
		dimColor.Printf("         evidence: actions %v\n", w.Evidence)
	}
}

func printReport(warnings []detect.Warning, outcome detect.Outcome, report health.Report, skipped int) {
	if len(warnings) == 0 {
		okColor.Println("No warnings. Session looks healthy.")
	} else {
		for _, w := range warnings {
			printWarning(w)
		}
	}

	fmt.Println()
	fmt.Printf("Health score: %s  (%s)\n", scoreString(report.Overall), report.Status())
	for _, cat := range []detect.Category{detect.CategoryHealth, detect.CategorySecurity} {
		cs := report.Categories[cat]
		fmt.Printf("  %-10s %s\n", cat, scoreString(cs.Score))
	}
	fmt.Printf("Security:     %s\n", scoreString(report.Security))
	eff := report.Efficiency
	fmt.Printf("Efficiency:   %s  (%s, context %.0f%%, waste %.0f%%)\n",
		scoreString(eff.Score), eff.Status, eff.ContextUsagePct, eff.WasteRatio*100)
	if eff.Score < 80 {
		dimColor.Printf("  %s\n", eff.Recommendation)
	}
	if skipped > 0 {
		dimColor.Printf("%d malformed log lines skipped\n", skipped)
	}

	fmt.Println()
	switch outcome {
	case detect.OutcomeCritical:
		criticalColor.Println("Outcome: CRITICAL")
	case detect.OutcomeWarnings:
		warningColor.Println("Outcome: warnings present")
	default:
		okColor.Println("Outcome: healthy")
	}
}

func scoreString(score int) string {
	switch {
	case score >= 80:
		return okColor.Sprintf("%3d/100", score)
	case score >= 50:
		return warningColor.Sprintf("%3d/100", score)
	default:
		return criticalColor.Sprintf("%3d/100", score)
	}
}
