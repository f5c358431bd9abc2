package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"filevault/internal/domain"
	"filevault/internal/repository"
)

// DatabaseStore keeps sessions in the relational sessions table. Expired rows
// are invisible to Load and removed by the sweep command.
type DatabaseStore struct {
	repo *repository.SessionRepository
	now  func() time.Time
}

func NewDatabaseStore(repo *repository.SessionRepository) *DatabaseStore {
	return &DatabaseStore{repo: repo, now: time.Now}
}

func (s *DatabaseStore) Load(ctx context.Context, id string) (*Data, error) {
	rec, err := s.repo.Get(ctx, id, s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	var data Data
	if err := json.Unmarshal(rec.Data, &data); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &data, nil
}

func (s *DatabaseStore) Save(ctx context.Context, id string, data Data, ttl time.Duration) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.repo.Upsert(ctx, &domain.SessionRecord{
		ID:        id,
		Data:      raw,
		ExpiresAt: s.now().Add(ttl),
	})
}

func (s *DatabaseStore) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// PruneExpired deletes rows past their expiry.
func (s *DatabaseStore) PruneExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, s.now())
}
