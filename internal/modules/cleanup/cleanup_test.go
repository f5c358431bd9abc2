package cleanup

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filevault/internal/blob"
	"filevault/internal/database"
	"filevault/internal/domain"
	"filevault/internal/repository"
)

func TestSweeper_DeletesAndRetainsFailures(t *testing.T) {
	ctx := context.Background()
	repos := repository.New(database.OpenTest(t))
	store := blob.NewMemoryStore()
	for _, k := range []string{"a", "b"} {
		require.NoError(t, store.Put(ctx, k, strings.NewReader(k), 1, ""))
	}

	queue := NewQueue(repos)
	// "c" was never written; missing blobs count as deleted.
	require.NoError(t, queue.Enqueue(ctx, []string{"a", "b", "c"}, domain.CleanupReasonDeleteFailed))

	store.FailDelete = func(key string) error {
		if key == "b" {
			return errors.New("permission denied")
		}
		return nil
	}

	sweeper := NewSweeper(repos, store, zerolog.Nop())
	res, err := sweeper.Run(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, Result{Attempted: 3, Deleted: 2, Failed: 1}, res)
	assert.False(t, store.Has("a"))
	assert.True(t, store.Has("b"))

	rows, err := repos.BlobCleanups.Oldest(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "b", rows[0].BlobKey)
	assert.Equal(t, 1, rows[0].Attempts)
	assert.Equal(t, "permission denied", rows[0].LastError)

	store.FailDelete = nil
	res, err = sweeper.Run(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Deleted)

	n, err := repos.BlobCleanups.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSweeper_EmptyQueue(t *testing.T) {
	repos := repository.New(database.OpenTest(t))
	res, err := NewSweeper(repos, blob.NewMemoryStore(), zerolog.Nop()).Run(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
}
