package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "2024/01/02/1_a.txt", strings.NewReader("hello"), 5, "text/plain"))

	rc, err := store.Get(ctx, "2024/01/02/1_a.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = store.Get(ctx, "2024/01/02/missing")
	assert.ErrorIs(t, err, ErrNotFound)

	// Missing keys count as deleted.
	require.NoError(t, store.DeleteMany(ctx, []string{"2024/01/02/1_a.txt", "2024/01/02/never"}))

	_, err = store.Get(ctx, "2024/01/02/1_a.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFilesystemStore(t *testing.T) {
	store, err := NewFilesystemStore(t.TempDir())
	require.NoError(t, err)
	exerciseStore(t, store)

	err = store.Put(context.Background(), "../escape", bytes.NewReader(nil), 0, "")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStore_PartialDeleteFailure(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, store.Put(ctx, k, strings.NewReader(k), 1, ""))
	}
	store.FailDelete = func(key string) error {
		if key == "b" {
			return errors.New("io timeout")
		}
		return nil
	}

	err := store.DeleteMany(ctx, []string{"a", "b", "c"})
	require.Error(t, err)

	var de *DeleteError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, []string{"b"}, de.Keys())
	assert.Equal(t, []string{"b"}, FailedKeys(err, []string{"a", "b", "c"}))
	assert.True(t, store.Has("b"))
	assert.False(t, store.Has("a"))
}

func TestFailedKeys_UnknownErrorMeansAll(t *testing.T) {
	keys := []string{"x", "y"}
	assert.Nil(t, FailedKeys(nil, keys))
	assert.Equal(t, keys, FailedKeys(errors.New("network"), keys))
}

func TestNewKey(t *testing.T) {
	now := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)
	key := NewKey(now, ".PDF")

	pattern := regexp.MustCompile(`^2024/03/09/\d+_[0-9a-f]{16}\.pdf$`)
	assert.Regexp(t, pattern, key)
	assert.NoError(t, ValidateKey(key))
	assert.NotEqual(t, key, NewKey(now, ".pdf"))

	assert.Regexp(t, regexp.MustCompile(`_[0-9a-f]{16}$`), NewKey(now, "/etc"))
}

func TestValidateKey(t *testing.T) {
	for _, bad := range []string{"", "/abs", "a/../b", "./a", `a\b`, "a//b", ".."} {
		assert.ErrorIs(t, ValidateKey(bad), ErrInvalidKey, bad)
	}
	assert.NoError(t, ValidateKey("2024/01/01/1_x.txt"))
}
