package health

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gzhole/agentwatch/internal/action"
	"github.com/gzhole/agentwatch/internal/detect"
)

const testCapacity = 200000

func TestCalculate_CleanSession(t *testing.T) {
	snap := action.SnapshotOf(
		action.Action{Kind: action.KindRead, Target: "main.go"},
		action.Action{Kind: action.KindEdit, Target: "main.go"},
		action.Action{Kind: action.KindTest, Target: "go test", Outcome: action.OutcomeSuccess},
	)

	r := Calculate(nil, snap, testCapacity)
	assert.Equal(t, StatusHealthy, r.Status())
	assert.GreaterOrEqual(t, r.Overall, 90)
	assert.Equal(t, 100, r.Categories[detect.CategoryHealth].Score)
	assert.Equal(t, 100, r.Categories[detect.CategorySecurity].Score)
	assert.Equal(t, 100, r.Security)
}

func TestCalculate_CriticalSecurityWarningSinksScore(t *testing.T) {
	snap := action.SnapshotOf(action.Action{Kind: action.KindRead, Target: ".env"})
	warnings := []detect.Warning{
		{Category: detect.CategorySecurity, Severity: detect.SeverityCritical, Signal: "credential_access"},
	}

	r := Calculate(warnings, snap, testCapacity)
	assert.Equal(t, 60, r.Categories[detect.CategorySecurity].Score)
	assert.Equal(t, 100, r.Categories[detect.CategoryHealth].Score)
	assert.Less(t, r.Overall, 80)
	// The posture score zeroes on any critical security warning.
	assert.Equal(t, 0, r.Security)
}

func TestCalculate_ScoreFloorsAtZero(t *testing.T) {
	snap := action.SnapshotOf(action.Action{Kind: action.KindRead, Target: "a.go"})
	warnings := make([]detect.Warning, 5)
	for i := range warnings {
		warnings[i] = detect.Warning{
			Category: detect.CategoryHealth,
			Severity: detect.SeverityCritical,
			Signal:   "error_spiral",
		}
	}

	r := Calculate(warnings, snap, testCapacity)
	assert.Equal(t, 0, r.Categories[detect.CategoryHealth].Score)
	assert.GreaterOrEqual(t, r.Overall, 0)
}

func TestSecurityScore(t *testing.T) {
	assert.Equal(t, 100, SecurityScore(nil))

	assert.Equal(t, 0, SecurityScore([]detect.Warning{
		{Category: detect.CategorySecurity, Severity: detect.SeverityCritical},
	}))

	assert.Equal(t, 85, SecurityScore([]detect.Warning{
		{Category: detect.CategorySecurity, Severity: detect.SeverityWarning},
	}))

	// Health warnings do not touch the security score.
	assert.Equal(t, 100, SecurityScore([]detect.Warning{
		{Category: detect.CategoryHealth, Severity: detect.SeverityCritical},
	}))
}

func TestEfficiency_CleanSessionIsEfficient(t *testing.T) {
	snap := action.SnapshotOf(
		action.Action{Kind: action.KindRead, Target: "a.go"},
		action.Action{Kind: action.KindEdit, Target: "a.go"},
		action.Action{Kind: action.KindTest, Outcome: action.OutcomeSuccess},
	)

	eff := CalculateEfficiency(nil, snap, testCapacity)
	assert.Equal(t, "efficient", eff.Status)
	assert.GreaterOrEqual(t, eff.Score, 90)
	assert.Zero(t, eff.WasteRatio)
}

func TestEfficiency_WasteFromFailuresAndRereads(t *testing.T) {
	var actions []action.Action
	for i := 0; i < 5; i++ {
		actions = append(actions, action.Action{Kind: action.KindCommand, Target: "make", Outcome: action.OutcomeFailure})
	}
	for i := 0; i < 5; i++ {
		actions = append(actions, action.Action{Kind: action.KindRead, Target: "config.go"})
	}

	eff := CalculateEfficiency(nil, action.SnapshotOf(actions...), testCapacity)
	// 5 failures + 4 duplicate reads out of 10 actions.
	assert.InDelta(t, 0.9, eff.WasteRatio, 0.001)
	assert.Less(t, eff.Score, 80)
}

func TestEfficiency_RotAndRediscoveryPenalties(t *testing.T) {
	snap := action.SnapshotOf(action.Action{Kind: action.KindRead, Target: "a.go"})
	warnings := []detect.Warning{
		{Category: detect.CategoryHealth, Signal: "context_rot"},
		{Category: detect.CategoryHealth, Signal: "reread"},
	}

	with := CalculateEfficiency(warnings, snap, testCapacity)
	without := CalculateEfficiency(nil, snap, testCapacity)
	assert.Less(t, with.Score, without.Score)
}

func TestStatusBuckets(t *testing.T) {
	assert.Equal(t, StatusHealthy, statusOf(80))
	assert.Equal(t, StatusWarning, statusOf(79))
	assert.Equal(t, StatusWarning, statusOf(50))
	assert.Equal(t, StatusCritical, statusOf(49))
}
