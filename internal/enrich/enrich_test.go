package enrich

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gzhole/agentwatch/internal/action"
	"github.com/gzhole/agentwatch/internal/detect"
)

func TestNoop(t *testing.T) {
	a, err := Noop{}.Assess(context.Background(), []detect.Warning{{Signal: "loop"}}, action.SnapshotOf())
	assert.NoError(t, err)
	assert.Nil(t, a)
}

func TestParseAssessment(t *testing.T) {
	a, err := parseAssessment(`{"confirmed": true, "confidence": 0.9, "reasoning": "repeated credential reads"}`)
	require.NoError(t, err)
	assert.True(t, a.Confirmed)
	assert.InDelta(t, 0.9, a.Confidence, 0.001)

	// Code fences and prose around the object are tolerated.
	a, err = parseAssessment("Here is my judgement:\n```json\n{\"confirmed\": false, \"confidence\": 0.4, \"reasoning\": \"looks benign\"}\n```\n")
	require.NoError(t, err)
	assert.False(t, a.Confirmed)

	_, err = parseAssessment("no json here")
	assert.Error(t, err)
}

func TestBuildContext_ExcludesRawContent(t *testing.T) {
	snap := action.SnapshotOf(action.Action{
		Kind:    action.KindCommand,
		Target:  "env",
		Content: "AWS_SECRET_ACCESS_KEY=wJalrXUtnFEMI",
	})
	out := buildContext([]detect.Warning{{Signal: "secret_in_output", Message: "redacted"}}, snap)
	assert.Contains(t, out, "secret_in_output")
	assert.NotContains(t, out, "wJalrXUtnFEMI")
}
