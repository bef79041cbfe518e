package job

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/audio-slicer/internal/audio"
)

func TestNew(t *testing.T) {
	j := New("batch-1", "/in/a.wav")

	assert.True(t, strings.HasPrefix(j.ID, "job-"))
	assert.Equal(t, "batch-1", j.BatchID)
	assert.Equal(t, "/in/a.wav", j.InputPath)
	assert.Equal(t, StatusPending, j.Status)
	assert.NotNil(t, j.Clips)
	assert.False(t, j.CreatedAt.IsZero())
	assert.Equal(t, j.CreatedAt, j.UpdatedAt)
}

func TestJob_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		wantErr bool
	}{
		{"pending to running", StatusPending, StatusRunning, false},
		{"pending to cancelled", StatusPending, StatusCancelled, false},
		{"pending to completed", StatusPending, StatusCompleted, true},
		{"pending to failed", StatusPending, StatusFailed, true},
		{"running to completed", StatusRunning, StatusCompleted, false},
		{"running to failed", StatusRunning, StatusFailed, false},
		{"running to cancelled", StatusRunning, StatusCancelled, false},
		{"running to pending", StatusRunning, StatusPending, true},
		{"completed is terminal", StatusCompleted, StatusRunning, true},
		{"failed is terminal", StatusFailed, StatusRunning, true},
		{"cancelled is terminal", StatusCancelled, StatusRunning, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := NewWithID("job-1", "batch-1", "a.wav")
			j.Status = tt.from

			err := j.TransitionTo(tt.to)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				assert.Equal(t, tt.from, j.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, j.Status)
		})
	}
}

func TestJob_Lifecycle(t *testing.T) {
	j := New("batch-1", "a.wav")

	require.NoError(t, j.Start())
	assert.False(t, j.StartedAt.IsZero())
	assert.False(t, j.IsTerminal())

	clips := []audio.Clip{{Index: 0, Start: 0, End: 100, SampleRate: 16000, Location: "/out/a_0.wav"}}
	require.NoError(t, j.Complete(clips))
	assert.Equal(t, StatusCompleted, j.GetStatus())
	assert.Equal(t, clips, j.Clips)
	assert.False(t, j.CompletedAt.IsZero())
	assert.True(t, j.IsTerminal())

	clips[0].Location = "mutated"
	assert.Equal(t, "/out/a_0.wav", j.Clips[0].Location)
}

func TestJob_Fail(t *testing.T) {
	j := New("batch-1", "a.wav")

	assert.ErrorIs(t, j.Fail("too early"), ErrInvalidTransition)
	assert.Empty(t, j.Error)

	require.NoError(t, j.Start())
	require.NoError(t, j.Fail("decode failed"))
	assert.Equal(t, StatusFailed, j.Status)
	assert.Equal(t, "decode failed", j.Error)
}

func TestJob_CompleteRequiresRunning(t *testing.T) {
	j := New("batch-1", "a.wav")

	err := j.Complete([]audio.Clip{{Index: 0}})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Empty(t, j.Clips)
}

func TestJob_Clone(t *testing.T) {
	j := New("batch-1", "a.wav")
	require.NoError(t, j.Start())
	require.NoError(t, j.Complete([]audio.Clip{{Index: 0, Location: "x"}}))

	c := j.Clone()
	assert.Equal(t, j.ID, c.ID)
	assert.Equal(t, j.BatchID, c.BatchID)
	assert.Equal(t, j.Status, c.Status)
	assert.Equal(t, j.Clips, c.Clips)

	c.Clips[0].Location = "changed"
	assert.Equal(t, "x", j.Clips[0].Location)
}

func TestJob_ConcurrentReads(t *testing.T) {
	j := New("batch-1", "a.wav")
	require.NoError(t, j.Start())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = j.Clone()
			_ = j.GetStatus()
		}()
	}
	require.NoError(t, j.Complete(nil))
	wg.Wait()
	assert.Equal(t, StatusCompleted, j.GetStatus())
}
