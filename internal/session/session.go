package session

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("session not found")

// Data is the per-caller bag persisted server-side.
type Data struct {
	UserID    string `json:"uid,omitempty"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	UsedSpace int64  `json:"used_space"`
}

// Session is the explicit request context handed to every orchestration
// call. It is populated once by middleware and never read from globals.
type Session struct {
	ID   string
	Data Data

	// IsNew is true until the session has been persisted at least once.
	IsNew bool
}

func (s *Session) Authenticated() bool {
	return s != nil && s.Data.UserID != ""
}

func (s *Session) UserID() string {
	if s == nil {
		return ""
	}
	return s.Data.UserID
}

// Store persists session bags by id.
type Store interface {
	Load(ctx context.Context, id string) (*Data, error)
	Save(ctx context.Context, id string, data Data, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// Saver is what orchestration code needs to push a refreshed bag back.
type Saver interface {
	Save(ctx context.Context, s *Session) error
}
