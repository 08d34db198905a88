package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gzhole/agentwatch/internal/action"
)

func TestErrorSpiral_FiresAtThreshold(t *testing.T) {
	d := &errorSpiralDetector{th: DefaultThresholds()}

	var actions []action.Action
	actions = append(actions, action.Action{Kind: action.KindEdit, Target: "a.go"})
	actions = append(actions, repeatActions(5, action.Action{
		Kind: action.KindTest, Target: "go test", Outcome: action.OutcomeFailure,
	})...)

	w := d.Check(action.SnapshotOf(actions...))
	require.NotNil(t, w)
	assert.Equal(t, "error_spiral", w.Signal)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, w.Evidence)
	assert.Equal(t, 5, w.DetectedAt)
}

func TestErrorSpiral_RunBrokenBySuccess(t *testing.T) {
	d := &errorSpiralDetector{th: DefaultThresholds()}

	var actions []action.Action
	actions = append(actions, repeatActions(4, action.Action{
		Kind: action.KindTest, Outcome: action.OutcomeFailure,
	})...)
	actions = append(actions, action.Action{Kind: action.KindTest, Outcome: action.OutcomeSuccess})
	actions = append(actions, repeatActions(4, action.Action{
		Kind: action.KindTest, Outcome: action.OutcomeFailure,
	})...)

	assert.Nil(t, d.Check(action.SnapshotOf(actions...)))
}

func TestErrorSignature_NormalizesVolatileFields(t *testing.T) {
	a := action.Action{Content: "Error: cannot find module at /home/user/proj/pkg/a.go line 42"}
	b := action.Action{Content: "Error: cannot find module at /tmp/build/pkg/b.go line 107"}
	assert.Equal(t, errorSignature(a), errorSignature(b))

	c := action.Action{Content: "Error: permission denied"}
	assert.NotEqual(t, errorSignature(a), errorSignature(c))
}

func TestErrorBlindness_RepeatedErrorWithoutFix(t *testing.T) {
	d := &errorBlindnessDetector{}

	snap := action.SnapshotOf(
		action.Action{Kind: action.KindTest, Target: "go test", Outcome: action.OutcomeFailure,
			Content: "FAIL: TestParse: unexpected token"},
		action.Action{Kind: action.KindRead, Target: "parser.go"},
		action.Action{Kind: action.KindTest, Target: "go test", Outcome: action.OutcomeFailure,
			Content: "FAIL: TestParse: unexpected token"},
	)

	w := d.Check(snap)
	require.NotNil(t, w)
	assert.Equal(t, "error_blindness", w.Signal)
	assert.Equal(t, []int{0, 2}, w.Evidence)
}

func TestErrorBlindness_EditBetweenOccurrencesResets(t *testing.T) {
	d := &errorBlindnessDetector{}

	snap := action.SnapshotOf(
		action.Action{Kind: action.KindTest, Target: "go test", Outcome: action.OutcomeFailure,
			Content: "FAIL: TestParse: unexpected token"},
		action.Action{Kind: action.KindEdit, Target: "go test"},
		action.Action{Kind: action.KindTest, Target: "go test", Outcome: action.OutcomeFailure,
			Content: "FAIL: TestParse: unexpected token"},
	)

	assert.Nil(t, d.Check(snap))
}

func TestContextRot_StaleEditAfterEarlyRead(t *testing.T) {
	th := DefaultThresholds()
	th.ContextRotStaleActions = 10
	d := &contextRotDetector{th: th}

	var actions []action.Action
	actions = append(actions, action.Action{Kind: action.KindRead, Target: "core.go"})
	for i := 0; i < 11; i++ {
		actions = append(actions, action.Action{Kind: action.KindRead, Target: "other.go"})
	}
	actions = append(actions, action.Action{Kind: action.KindEdit, Target: "core.go"})

	w := d.Check(action.SnapshotOf(actions...))
	require.NotNil(t, w)
	assert.Equal(t, "context_rot", w.Signal)
	assert.Equal(t, []int{0, 12}, w.Evidence)
}

func TestContextRot_RecentRereadKeepsQuiet(t *testing.T) {
	th := DefaultThresholds()
	th.ContextRotStaleActions = 10
	d := &contextRotDetector{th: th}

	var actions []action.Action
	actions = append(actions, action.Action{Kind: action.KindRead, Target: "core.go"})
	for i := 0; i < 11; i++ {
		actions = append(actions, action.Action{Kind: action.KindRead, Target: "other.go"})
	}
	// Refresh just before editing.
	actions = append(actions, action.Action{Kind: action.KindRead, Target: "core.go"})
	actions = append(actions, action.Action{Kind: action.KindEdit, Target: "core.go"})

	assert.Nil(t, d.Check(action.SnapshotOf(actions...)))
}

func TestContextPressure_FiresNearCapacity(t *testing.T) {
	th := DefaultThresholds()
	th.ContextCapacity = 1000
	d := &contextPressureDetector{th: th}

	big := make([]byte, 3600) // ~900 tokens of content
	for i := range big {
		big[i] = 'x'
	}
	snap := action.SnapshotOf(action.Action{Kind: action.KindRead, Target: "big.txt", Content: string(big)})

	w := d.Check(snap)
	require.NotNil(t, w)
	assert.Equal(t, "context_pressure", w.Signal)
	assert.Equal(t, SeverityCritical, w.Severity)
}

func TestContextPressure_QuietWhenRoomy(t *testing.T) {
	d := &contextPressureDetector{th: DefaultThresholds()}
	snap := action.SnapshotOf(action.Action{Kind: action.KindRead, Target: "a.go", Content: "short"})
	assert.Nil(t, d.Check(snap))
}
