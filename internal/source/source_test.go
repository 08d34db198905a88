package source

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gzhole/agentwatch/internal/action"
)

func TestDecodeLine(t *testing.T) {
	a, err := decodeLine(`{"ts":"2026-08-29T10:00:00Z","kind":"read","target":"main.go","outcome":"success","meta":{"tool":"Read"}}`)
	require.NoError(t, err)
	assert.Equal(t, action.KindRead, a.Kind)
	assert.Equal(t, "main.go", a.Target)
	assert.Equal(t, action.OutcomeSuccess, a.Outcome)
	assert.Equal(t, "Read", a.Meta("tool"))
	assert.Equal(t, 2026, a.Timestamp.Year())
}

func TestDecodeLine_MissingOutcomeDefaultsUnknown(t *testing.T) {
	a, err := decodeLine(`{"kind":"command","target":"go build"}`)
	require.NoError(t, err)
	assert.Equal(t, action.OutcomeUnknown, a.Outcome)
}

func TestDecodeLine_Rejects(t *testing.T) {
	_, err := decodeLine(`{"kind":"teleport","target":"x"}`)
	assert.Error(t, err)

	_, err = decodeLine(`{"kind":"read","outcome":"maybe"}`)
	assert.Error(t, err)

	_, err = decodeLine(`{"kind":"read",`)
	assert.Error(t, err)
}

func TestSliceSource(t *testing.T) {
	s := NewSliceSource(
		action.Action{Kind: action.KindRead, Target: "a.go"},
		action.Action{Kind: action.KindEdit, Target: "a.go"},
	)
	ctx := context.Background()

	a, err := s.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a.go", a.Target)

	_, err = s.Next(ctx)
	require.NoError(t, err)

	_, err = s.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReaderSource_SkipsMalformedAndBlankLines(t *testing.T) {
	log := strings.Join([]string{
		`{"kind":"read","target":"main.go"}`,
		``,
		`not json at all`,
		`{"kind":"bogus","target":"x"}`,
		`{"kind":"edit","target":"main.go"}`,
	}, "\n")

	s := NewReaderSource(strings.NewReader(log))
	ctx := context.Background()

	a, err := s.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, action.KindRead, a.Kind)

	a, err = s.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, action.KindEdit, a.Kind)

	_, err = s.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 2, s.Skipped())
}

func TestReaderSource_CancelledContext(t *testing.T) {
	s := NewReaderSource(strings.NewReader(`{"kind":"read","target":"a"}`))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
