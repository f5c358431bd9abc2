package cleanup

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"filevault/internal/blob"
	"filevault/internal/repository"
)

// Queue records blob keys whose deletion is still owed. It is the hook the
// orchestrator calls when the blob store and the database disagree.
type Queue struct {
	repos *repository.Repositories
	log   zerolog.Logger
}

func NewQueue(repos *repository.Repositories) *Queue {
	return &Queue{repos: repos, log: zerolog.Nop()}
}

func (q *Queue) SetLogger(log zerolog.Logger) {
	q.log = log
}

func (q *Queue) Enqueue(ctx context.Context, keys []string, reason string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := q.repos.BlobCleanups.Enqueue(ctx, keys, reason); err != nil {
		return fmt.Errorf("enqueue blob cleanup: %w", err)
	}
	q.log.Warn().Strs("blob_keys", keys).Str("reason", reason).Msg("blob cleanup enqueued")
	return nil
}

// Result summarizes one sweep pass.
type Result struct {
	Attempted int
	Deleted   int
	Failed    int
}

// Sweeper retries queued deletions against the blob store.
type Sweeper struct {
	repos *repository.Repositories
	blobs blob.Store
	log   zerolog.Logger
}

func NewSweeper(repos *repository.Repositories, blobs blob.Store, log zerolog.Logger) *Sweeper {
	return &Sweeper{repos: repos, blobs: blobs, log: log}
}

// Run processes up to batch of the oldest queued keys.
func (s *Sweeper) Run(ctx context.Context, batch int) (Result, error) {
	rows, err := s.repos.BlobCleanups.Oldest(ctx, batch)
	if err != nil {
		return Result{}, fmt.Errorf("load cleanup queue: %w", err)
	}
	if len(rows) == 0 {
		return Result{}, nil
	}

	keys := make([]string, len(rows))
	for i, r := range rows {
		keys[i] = r.BlobKey
	}

	delErr := s.blobs.DeleteMany(ctx, keys)
	failed := blob.FailedKeys(delErr, keys)
	failedSet := make(map[string]struct{}, len(failed))
	for _, k := range failed {
		failedSet[k] = struct{}{}
	}

	done := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, bad := failedSet[k]; !bad {
			done = append(done, k)
		}
	}
	if err := s.repos.BlobCleanups.DeleteByKeys(ctx, done); err != nil {
		return Result{}, fmt.Errorf("clear cleanup rows: %w", err)
	}

	for _, k := range failed {
		msg := delErr.Error()
		if de, ok := delErr.(*blob.DeleteError); ok {
			if e := de.Failed[k]; e != nil {
				msg = e.Error()
			}
		}
		if err := s.repos.BlobCleanups.MarkFailed(ctx, k, msg); err != nil {
			return Result{}, fmt.Errorf("record cleanup failure: %w", err)
		}
	}

	res := Result{Attempted: len(keys), Deleted: len(done), Failed: len(failed)}
	s.log.Info().
		Int("attempted", res.Attempted).
		Int("deleted", res.Deleted).
		Int("failed", res.Failed).
		Msg("blob sweep pass complete")
	return res, nil
}
