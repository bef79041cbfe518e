package job

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository_SaveAndFind(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	j := New("batch-1", "a.wav")

	require.NoError(t, repo.Save(ctx, j))

	saved, err := repo.FindByID(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, j.ID, saved.ID)
	assert.Equal(t, StatusPending, saved.Status)
}

func TestMemoryRepository_SaveUpdates(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	j := New("batch-1", "a.wav")
	require.NoError(t, repo.Save(ctx, j))

	require.NoError(t, j.Start())
	require.NoError(t, repo.Save(ctx, j))

	saved, err := repo.FindByID(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, saved.Status)
}

func TestMemoryRepository_StoresCopies(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	j := New("batch-1", "a.wav")
	require.NoError(t, repo.Save(ctx, j))

	// Mutating the original after save must not leak into the repository.
	require.NoError(t, j.Start())
	saved, err := repo.FindByID(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, saved.Status)

	// Mutating a read copy must not leak either.
	saved.Status = StatusFailed
	again, err := repo.FindByID(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, again.Status)
}

func TestMemoryRepository_FindByID_NotFound(t *testing.T) {
	_, err := NewMemoryRepository().FindByID(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestMemoryRepository_List(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Now()

	jobs := []*Job{
		NewWithID("job-3", "batch-b", "c.wav"),
		NewWithID("job-1", "batch-a", "b.wav"),
		NewWithID("job-2", "batch-a", "a.wav"),
	}
	jobs[0].CreatedAt = base.Add(time.Second)
	jobs[1].CreatedAt = base
	jobs[2].CreatedAt = base
	for _, j := range jobs {
		require.NoError(t, repo.Save(ctx, j))
	}

	t.Run("all jobs oldest first", func(t *testing.T) {
		list, err := repo.List(ctx, "")
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "job-2", list[0].ID)
		assert.Equal(t, "job-1", list[1].ID)
		assert.Equal(t, "job-3", list[2].ID)
	})

	t.Run("filtered by batch", func(t *testing.T) {
		list, err := repo.List(ctx, "batch-a")
		require.NoError(t, err)
		require.Len(t, list, 2)
		for _, j := range list {
			assert.Equal(t, "batch-a", j.BatchID)
		}
	})

	t.Run("unknown batch", func(t *testing.T) {
		list, err := repo.List(ctx, "batch-z")
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}
