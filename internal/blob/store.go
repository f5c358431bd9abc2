package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("blob not found")
	ErrInvalidKey = errors.New("invalid blob key")
)

// Store persists opaque blobs under caller-chosen keys. It shares no
// transaction with the relational store; callers treat every operation as
// independently retryable.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Get returns ErrNotFound (wrapped) for unknown keys. The caller closes the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// DeleteMany removes keys; keys that do not exist count as deleted.
	// Partial failure is reported as *DeleteError.
	DeleteMany(ctx context.Context, keys []string) error
}

// DeleteError lists the keys a DeleteMany call could not remove.
type DeleteError struct {
	Failed map[string]error
}

func (e *DeleteError) Error() string {
	keys := e.Keys()
	if len(keys) == 1 {
		return fmt.Sprintf("delete blob %s: %v", keys[0], e.Failed[keys[0]])
	}
	return fmt.Sprintf("delete blobs: %d of the requested keys failed", len(keys))
}

// Keys returns the failed keys in stable order.
func (e *DeleteError) Keys() []string {
	keys := make([]string, 0, len(e.Failed))
	for k := range e.Failed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FailedKeys extracts the keys that still exist after a DeleteMany error.
// Errors other than *DeleteError mean nothing is known, so all keys are returned.
func FailedKeys(err error, requested []string) []string {
	if err == nil {
		return nil
	}
	var de *DeleteError
	if errors.As(err, &de) {
		return de.Keys()
	}
	return requested
}

// NewKey builds a collision-resistant key: YYYY/MM/DD/<unixmillis>_<random><ext>.
// The user-supplied name never appears in it.
func NewKey(now time.Time, ext string) string {
	ext = strings.ToLower(ext)
	if len(ext) > 16 || strings.ContainsAny(ext, `/\ `) {
		ext = ""
	}
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	return fmt.Sprintf("%04d/%02d/%02d/%d_%s%s",
		now.Year(), now.Month(), now.Day(), now.UnixMilli(), random, ext)
}

// ValidateKey rejects keys that could escape a store's namespace.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if path.Clean(key) != key {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}
