package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobLifecycle(t *testing.T) {
	job := NewJob("photo.png")
	assert.Equal(t, StateReceived, job.State)
	assert.False(t, job.Terminal())

	for _, next := range []JobState{StateValidated, StateStored, StateTransformed, StateResponded} {
		require.NoError(t, job.Advance(next))
	}

	assert.True(t, job.Terminal())
	assert.ErrorIs(t, job.Advance(StateFailed), ErrInvalidTransition)
}

func TestJobFailFromAnyNonTerminalState(t *testing.T) {
	path := []JobState{StateReceived, StateValidated, StateStored, StateTransformed}

	for i, state := range path {
		job := NewJob("doc.pdf")
		for _, next := range path[1 : i+1] {
			require.NoError(t, job.Advance(next))
		}

		require.Equal(t, state, job.State)
		require.NoError(t, job.Advance(StateFailed))
		assert.True(t, job.Terminal())
	}
}

func TestJobRejectsSkippingStates(t *testing.T) {
	job := NewJob("a.jpg")

	err := job.Advance(StateTransformed)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StateReceived, job.State)
}

func TestJobIDsAreUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := NewJob("x").ID.String()
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
}

func TestJobPaths(t *testing.T) {
	job := NewJob("a.jpg")
	assert.Empty(t, job.Paths())

	job.SourcePath = "/tmp/uploads/in"
	job.ResultPath = "/tmp/processed/out"
	assert.Equal(t, []string{"/tmp/uploads/in", "/tmp/processed/out"}, job.Paths())
}
