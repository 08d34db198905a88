package action

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBuffer_RejectsBadBounds(t *testing.T) {
	_, err := NewBuffer(0, 0)
	require.Error(t, err)

	_, err = NewBuffer(-5, 0)
	require.Error(t, err)

	_, err = NewBuffer(10, -time.Second)
	require.Error(t, err)
}

func TestBuffer_SequenceStartsAtZeroAndIsDense(t *testing.T) {
	buf, err := NewBuffer(10, 0)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		seq := buf.Append(Action{Kind: KindRead, Target: "main.go"})
		assert.Equal(t, i, seq)
	}

	snap := buf.Snapshot()
	for i, a := range snap.All() {
		assert.Equal(t, i, a.Sequence)
	}
}

func TestBuffer_EvictsOldestFirst(t *testing.T) {
	buf, err := NewBuffer(3, 0)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		buf.Append(Action{Kind: KindRead})
	}

	snap := buf.Snapshot()
	require.Equal(t, 3, snap.Len())
	// Appending capacity+1 leaves exactly the most recent capacity actions.
	assert.Equal(t, 1, snap.At(0).Sequence)
	assert.Equal(t, 3, snap.At(2).Sequence)
	// Sequence numbering keeps climbing past eviction.
	assert.Equal(t, 4, buf.NextSequence())
}

func TestBuffer_SpanEviction(t *testing.T) {
	buf, err := NewBuffer(100, time.Minute)
	require.NoError(t, err)

	base := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	buf.Append(Action{Kind: KindRead, Timestamp: base})
	buf.Append(Action{Kind: KindRead, Timestamp: base.Add(90 * time.Second)})
	buf.Append(Action{Kind: KindRead, Timestamp: base.Add(2 * time.Minute)})

	// The first action is 120s behind the newest and falls out; the second
	// is 30s behind and stays.
	snap := buf.Snapshot()
	require.Equal(t, 2, snap.Len())
	assert.Equal(t, 1, snap.At(0).Sequence)
}

func TestBuffer_SpanEvictsAllButNewest(t *testing.T) {
	buf, err := NewBuffer(100, time.Minute)
	require.NoError(t, err)

	base := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	buf.Append(Action{Kind: KindRead, Timestamp: base})
	buf.Append(Action{Kind: KindRead, Timestamp: base.Add(30 * time.Second)})
	buf.Append(Action{Kind: KindRead, Timestamp: base.Add(2 * time.Minute)})

	snap := buf.Snapshot()
	require.Equal(t, 1, snap.Len())
	assert.Equal(t, 2, snap.At(0).Sequence)
}

func TestBuffer_SnapshotIsStableAcrossAppends(t *testing.T) {
	buf, err := NewBuffer(10, 0)
	require.NoError(t, err)

	buf.Append(Action{Kind: KindRead, Target: "a.go"})
	snap := buf.Snapshot()
	buf.Append(Action{Kind: KindEdit, Target: "b.go"})

	require.Equal(t, 1, snap.Len())
	assert.Equal(t, "a.go", snap.At(0).Target)
}

func TestBuffer_ContentIsBounded(t *testing.T) {
	buf, err := NewBuffer(10, 0)
	require.NoError(t, err)

	big := make([]byte, MaxContentBytes+100)
	for i := range big {
		big[i] = 'x'
	}
	buf.Append(Action{Kind: KindCommand, Content: string(big)})

	snap := buf.Snapshot()
	assert.Len(t, snap.At(0).Content, MaxContentBytes)
}

func TestSnapshot_Views(t *testing.T) {
	buf, err := NewBuffer(10, 0)
	require.NoError(t, err)

	buf.Append(Action{Kind: KindRead, Target: "a.go"})
	buf.Append(Action{Kind: KindEdit, Target: "a.go"})
	buf.Append(Action{Kind: KindRead, Target: "b.go"})
	buf.Append(Action{Kind: KindTest, Target: "go test ./...", Outcome: OutcomeFailure})

	snap := buf.Snapshot()

	assert.Len(t, snap.ByKind(KindRead), 2)
	assert.Len(t, snap.ByTarget("a.go"), 2)
	assert.Len(t, snap.Last(2), 2)
	assert.Equal(t, KindTest, snap.Last(1)[0].Kind)
	assert.Len(t, snap.First(1), 1)

	failed := snap.Window(func(a Action) bool { return a.Failed() })
	require.Len(t, failed, 1)
	assert.Equal(t, 3, failed[0].Sequence)
}

func TestSnapshot_ScaledWindow(t *testing.T) {
	tests := []struct {
		size int
		want int
	}{
		{20, 20},   // below base
		{200, 30},  // fraction applies
		{500, 75},  // fraction applies
		{900, 100}, // capped
	}

	for _, tt := range tests {
		actions := make([]Action, tt.size)
		snap := SnapshotOf(actions...)
		assert.Equal(t, tt.want, snap.ScaledWindow(20, 0.15, 100), "size %d", tt.size)
	}
}
