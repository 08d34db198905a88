package detect

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gzhole/agentwatch/internal/action"
)

func newTestRegistry(t *testing.T, mode Mode) *Registry {
	t.Helper()
	r, err := NewRegistry(mode, Thresholds{}, nil)
	require.NoError(t, err)
	return r
}

func TestNewRegistry_ModeSelectsCategories(t *testing.T) {
	health := newTestRegistry(t, ModeHealth)
	for _, d := range health.Detectors() {
		assert.Equal(t, CategoryHealth, d.Category())
	}

	security := newTestRegistry(t, ModeSecurity)
	for _, d := range security.Detectors() {
		assert.Equal(t, CategorySecurity, d.Category())
	}

	all := newTestRegistry(t, ModeAll)
	assert.Len(t, all.Detectors(), len(health.Detectors())+len(security.Detectors()))
	assert.Len(t, all.Detectors(), 17)
}

func TestNewRegistry_UnknownMode(t *testing.T) {
	_, err := NewRegistry("paranoid", Thresholds{}, nil)
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "mode", cfgErr.Field)
}

func TestNewRegistry_InvalidThresholds(t *testing.T) {
	_, err := NewRegistry(ModeAll, Thresholds{LoopRepeats: 1}, nil)
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

type stubDetector struct {
	name     string
	category Category
	warning  *Warning
	panicMsg string
}

func (d *stubDetector) Name() string       { return d.name }
func (d *stubDetector) Category() Category { return d.category }
func (d *stubDetector) Check(action.Snapshot) *Warning {
	if d.panicMsg != "" {
		panic(d.panicMsg)
	}
	return d.warning
}

func TestRegistry_AddRejectsDuplicateName(t *testing.T) {
	r := newTestRegistry(t, ModeHealth)

	err := r.Add(&stubDetector{name: "loop", category: CategoryHealth})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "loop", conflict.Name)

	require.NoError(t, r.Add(&stubDetector{name: "custom", category: CategoryHealth}))
}

func TestCheckAll_EmptySnapshot(t *testing.T) {
	r := newTestRegistry(t, ModeAll)
	warnings := r.CheckAll(action.SnapshotOf())
	assert.Empty(t, warnings)
	assert.Equal(t, OutcomeHealthy, Aggregate(warnings))
}

func TestCheckAll_OrderingContract(t *testing.T) {
	r := &Registry{names: map[string]struct{}{}}
	require.NoError(t, r.Add(&stubDetector{name: "a", warning: &Warning{Signal: "a", Severity: SeverityInfo}}))
	require.NoError(t, r.Add(&stubDetector{name: "b", warning: &Warning{Signal: "b", Severity: SeverityCritical}}))
	require.NoError(t, r.Add(&stubDetector{name: "c", warning: &Warning{Signal: "c", Severity: SeverityWarning}}))
	require.NoError(t, r.Add(&stubDetector{name: "d", warning: &Warning{Signal: "d", Severity: SeverityCritical}}))

	warnings := r.CheckAll(action.SnapshotOf())
	require.Len(t, warnings, 4)
	// Severity descending, registration order breaking ties.
	assert.Equal(t, []string{"b", "d", "c", "a"},
		[]string{warnings[0].Signal, warnings[1].Signal, warnings[2].Signal, warnings[3].Signal})
}

func TestCheckAll_Deterministic(t *testing.T) {
	r := newTestRegistry(t, ModeAll)
	snap := action.SnapshotOf(
		action.Action{Kind: action.KindRead, Target: ".env"},
		action.Action{Kind: action.KindWrite, Target: "main.py"},
		action.Action{Kind: action.KindNetwork, Target: "https://webhook.site/x"},
	)

	first := r.CheckAll(snap)
	second := r.CheckAll(snap)
	assert.Equal(t, first, second)
}

func TestCheckAll_DetectorFaultIsolation(t *testing.T) {
	r := &Registry{names: map[string]struct{}{}}
	require.NoError(t, r.Add(&stubDetector{name: "boom", panicMsg: "index out of range"}))
	require.NoError(t, r.Add(&stubDetector{name: "ok", warning: &Warning{Signal: "ok", Severity: SeverityWarning}}))

	warnings := r.CheckAll(action.SnapshotOf())
	require.Len(t, warnings, 1)
	assert.Equal(t, "ok", warnings[0].Signal)

	diags := r.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, "boom", diags[0].Detector)
	assert.Error(t, diags[0].Err)
	assert.False(t, errors.Is(diags[0].Err, nil))
}

func TestCheckAll_ExfiltrationScenario(t *testing.T) {
	r := newTestRegistry(t, ModeSecurity)
	snap := action.SnapshotOf(
		action.Action{Kind: action.KindRead, Target: ".env"},
		action.Action{Kind: action.KindWrite, Target: "main.py"},
		action.Action{Kind: action.KindNetwork, Target: "https://webhook.site/x"},
	)

	warnings := r.CheckAll(snap)

	bySignal := map[string]Warning{}
	for _, w := range warnings {
		bySignal[w.Signal] = w
	}

	cred, ok := bySignal["credential_access"]
	require.True(t, ok, "credential_access missing from %+v", warnings)
	assert.Equal(t, SeverityCritical, cred.Severity)
	assert.Equal(t, []int{0}, cred.Evidence)

	exfil, ok := bySignal["data_exfiltration"]
	require.True(t, ok, "data_exfiltration missing from %+v", warnings)
	assert.Equal(t, []int{0, 2}, exfil.Evidence)

	assert.Equal(t, OutcomeCritical, Aggregate(warnings))
	assert.Equal(t, 2, Aggregate(warnings).ExitCode())
}

func TestAggregate(t *testing.T) {
	assert.Equal(t, OutcomeHealthy, Aggregate(nil))
	assert.Equal(t, 0, OutcomeHealthy.ExitCode())

	warnOnly := []Warning{{Severity: SeverityWarning}, {Severity: SeverityInfo}}
	assert.Equal(t, OutcomeWarnings, Aggregate(warnOnly))
	assert.Equal(t, 1, Aggregate(warnOnly).ExitCode())

	withCritical := append(warnOnly, Warning{Severity: SeverityCritical})
	assert.Equal(t, OutcomeCritical, Aggregate(withCritical))
}
