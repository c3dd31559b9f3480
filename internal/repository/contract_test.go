package repository

import (
	"context"
	"fmt"
	"testing"

	"todo_app/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runTaskStoreContract exercises the behaviour every TaskStore must share.
func runTaskStoreContract(t *testing.T, newStore func(t *testing.T) domain.TaskStore) {
	t.Run("InsertAssignsIDAndTimestamps", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		created, err := store.Insert(ctx, domain.Task{Title: "Test Task", Description: "Test Description"})
		require.NoError(t, err)

		assert.True(t, created.IsPersisted())
		assert.Equal(t, "Test Task", created.Title)
		assert.Equal(t, "Test Description", created.Description)
		assert.False(t, created.Completed)
		assert.False(t, created.CreatedAt.IsZero())
		assert.True(t, created.UpdatedAt.Equal(created.CreatedAt))
	})

	t.Run("InsertAssignsUniqueIDs", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		seen := map[int64]bool{}
		for i := 0; i < 5; i++ {
			created, err := store.Insert(ctx, domain.Task{Title: fmt.Sprintf("Task %d", i)})
			require.NoError(t, err)
			assert.False(t, seen[created.ID], "id %d reused", created.ID)
			seen[created.ID] = true
		}
	})

	t.Run("FetchRecentIncompleteEmpty", func(t *testing.T) {
		store := newStore(t)

		tasks, err := store.FetchRecentIncomplete(context.Background(), 5)
		require.NoError(t, err)
		assert.NotNil(t, tasks)
		assert.Empty(t, tasks)
	})

	t.Run("FetchRecentIncompleteReturnsOnlyIncomplete", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		_, err := store.Insert(ctx, domain.Task{Title: "Task 1", Description: "Description 1"})
		require.NoError(t, err)
		_, err = store.Insert(ctx, domain.Task{Title: "Task 2", Description: "Description 2"})
		require.NoError(t, err)
		done, err := store.Insert(ctx, domain.Task{Title: "Task 3", Description: "Description 3"})
		require.NoError(t, err)

		ok, err := store.MarkCompleted(ctx, done.ID)
		require.NoError(t, err)
		require.True(t, ok)

		tasks, err := store.FetchRecentIncomplete(ctx, 10)
		require.NoError(t, err)
		require.Len(t, tasks, 2)
		for _, task := range tasks {
			assert.False(t, task.Completed)
			assert.NotEqual(t, done.ID, task.ID)
		}
	})

	t.Run("FetchRecentIncompleteRespectsLimitAndOrder", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		var ids []int64
		for i := 1; i <= 10; i++ {
			created, err := store.Insert(ctx, domain.Task{Title: fmt.Sprintf("Task %d", i)})
			require.NoError(t, err)
			ids = append(ids, created.ID)
		}

		tasks, err := store.FetchRecentIncomplete(ctx, 5)
		require.NoError(t, err)
		require.Len(t, tasks, 5)
		for i, task := range tasks {
			assert.Equal(t, ids[len(ids)-1-i], task.ID)
		}
	})

	t.Run("FetchRecentIncompleteRejectsNonPositiveLimit", func(t *testing.T) {
		store := newStore(t)

		_, err := store.FetchRecentIncomplete(context.Background(), 0)
		assert.ErrorIs(t, err, domain.ErrInvalidLimit)
	})

	t.Run("MarkCompletedUnknownID", func(t *testing.T) {
		store := newStore(t)

		ok, err := store.MarkCompleted(context.Background(), 999)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("MarkCompletedIsIdempotent", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		created, err := store.Insert(ctx, domain.Task{Title: "Task"})
		require.NoError(t, err)

		ok, err := store.MarkCompleted(ctx, created.ID)
		require.NoError(t, err)
		require.True(t, ok)

		first, found, err := store.FindByID(ctx, created.ID)
		require.NoError(t, err)
		require.True(t, found)
		assert.True(t, first.Completed)
		assert.False(t, first.UpdatedAt.Before(first.CreatedAt))

		ok, err = store.MarkCompleted(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		second, found, err := store.FindByID(ctx, created.ID)
		require.NoError(t, err)
		require.True(t, found)
		assert.True(t, second.UpdatedAt.Equal(first.UpdatedAt))

		tasks, err := store.FetchRecentIncomplete(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, tasks)
	})

	t.Run("FindByIDRoundTrip", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		created, err := store.Insert(ctx, domain.Task{Title: "Test Task", Description: "Description"})
		require.NoError(t, err)

		found, ok, err := store.FindByID(ctx, created.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, created.ID, found.ID)
		assert.Equal(t, created.Title, found.Title)
		assert.Equal(t, created.Description, found.Description)
		assert.False(t, found.Completed)
	})

	t.Run("FindByIDMissing", func(t *testing.T) {
		store := newStore(t)

		_, ok, err := store.FindByID(context.Background(), 999)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
