package trace

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_LogStepAccumulates(t *testing.T) {
	rec := NewRecorder(10)
	s := rec.Start("req-1")

	s.LogStep(4, StepCompleted, map[string]any{"image_count": 2}, "")
	s.LogStep(5, StepStarted, nil, "")
	s.LogStep(5, StepCompleted, nil, "")

	require.Len(t, s.Steps, 3)
	assert.Equal(t, 5, s.StepsCompleted)
	assert.Equal(t, "Client sends form data to backend", s.Steps[0].StepName)
	assert.Equal(t, map[string]any{"image_count": 2}, s.Steps[0].Details)
	assert.Empty(t, s.Errors)
	assert.GreaterOrEqual(t, s.Steps[2].DurationFromStartMS, int64(0))
}

func TestSession_FailedStepCollectsError(t *testing.T) {
	rec := NewRecorder(10)
	s := rec.Start("req-2")

	s.LogStep(5, StepFailed, nil, "image too large")
	rec.Finalize(s, false)

	require.Len(t, s.Errors, 1)
	assert.Equal(t, 5, s.Errors[0].Step)
	assert.Equal(t, "image too large", s.Errors[0].Error)
	assert.Equal(t, StatusFailed, s.Status)
	assert.Equal(t, 1, s.ErrorCount)
	assert.Equal(t, 0, s.StepsCompleted)
}

func TestRecorder_StartGeneratesRequestID(t *testing.T) {
	rec := NewRecorder(10)
	s := rec.Start("")
	assert.NotEmpty(t, s.RequestID)

	other := rec.Start("")
	assert.NotEqual(t, s.RequestID, other.RequestID)
}

func TestRecorder_FinalizeSuccess(t *testing.T) {
	rec := NewRecorder(10)
	s := rec.Start("req-3")
	s.LogStep(13, StepCompleted, nil, "")
	rec.Finalize(s, true)

	got, ok := rec.Get("req-3")
	require.True(t, ok)
	assert.Equal(t, StatusSuccess, got.Status)
	assert.False(t, got.EndedAt.IsZero())
	assert.GreaterOrEqual(t, got.TotalDurationMS, int64(0))
}

func TestRecorder_GetUnknownID(t *testing.T) {
	rec := NewRecorder(10)
	_, ok := rec.Get("missing")
	assert.False(t, ok)
}

func TestRecorder_EvictsOldestAtCapacity(t *testing.T) {
	rec := NewRecorder(50)
	for i := 0; i < 51; i++ {
		s := rec.Start(fmt.Sprintf("req-%d", i))
		rec.Finalize(s, true)
	}

	_, ok := rec.Get("req-0")
	assert.False(t, ok, "oldest session should be evicted")

	_, ok = rec.Get("req-1")
	assert.True(t, ok)
	_, ok = rec.Get("req-50")
	assert.True(t, ok)

	assert.Len(t, rec.Recent(100), 50)
}

func TestRecorder_RecentOrderAndLimit(t *testing.T) {
	rec := NewRecorder(10)
	for i := 0; i < 5; i++ {
		s := rec.Start(fmt.Sprintf("req-%d", i))
		rec.Finalize(s, true)
	}

	recent := rec.Recent(3)
	require.Len(t, recent, 3)
	assert.Equal(t, "req-4", recent[0].RequestID)
	assert.Equal(t, "req-3", recent[1].RequestID)
	assert.Equal(t, "req-2", recent[2].RequestID)

	assert.Len(t, rec.Recent(0), 5)
	assert.Len(t, rec.Recent(-1), 5)
}

func TestRecorder_SnapshotIsolation(t *testing.T) {
	rec := NewRecorder(10)
	s := rec.Start("req-iso")
	s.LogStep(4, StepCompleted, nil, "")
	rec.Finalize(s, true)

	// Mutating the live session must not reach the stored snapshot.
	s.LogStep(5, StepFailed, nil, "late failure")

	got, ok := rec.Get("req-iso")
	require.True(t, ok)
	assert.Len(t, got.Steps, 1)
	assert.Empty(t, got.Errors)
}

func TestStepLabel(t *testing.T) {
	assert.Equal(t, "Backend calls the vision model", StepLabel(9))
	assert.Equal(t, "Unknown step", StepLabel(99))
}
