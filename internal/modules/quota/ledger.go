package quota

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"filevault/internal/repository"
)

// Ledger enforces the per-user storage ceiling over users.used_space.
type Ledger struct {
	repos *repository.Repositories
	limit int64
	log   zerolog.Logger
}

func NewLedger(repos *repository.Repositories, limit int64) *Ledger {
	return &Ledger{repos: repos, limit: limit, log: zerolog.Nop()}
}

func (l *Ledger) SetLogger(log zerolog.Logger) {
	l.log = log
}

func (l *Ledger) Limit() int64 { return l.limit }

// Check is a read-only pre-flight so callers can fail before doing expensive
// work. It does not reserve anything; Reserve is authoritative.
func (l *Ledger) Check(ctx context.Context, userID string, delta int64) error {
	if delta < 0 {
		return ErrInvalidDelta
	}
	u, err := l.repos.Users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("load user for quota check: %w", err)
	}
	if u.UsedSpace+delta > l.limit {
		return ErrInsufficientSpace
	}
	return nil
}

// Reserve charges delta bytes to userID inside tx. The ceiling test and the
// increment are one conditional UPDATE, so concurrent uploads cannot both
// pass a stale check.
func (l *Ledger) Reserve(ctx context.Context, tx *repository.Repositories, userID string, delta int64) error {
	if delta < 0 {
		return ErrInvalidDelta
	}
	ok, err := tx.Users.AddUsedSpaceWithin(ctx, userID, delta, l.limit)
	if err != nil {
		return fmt.Errorf("reserve quota: %w", err)
	}
	if ok {
		return nil
	}

	// Zero rows: either over the ceiling or no such user.
	if _, err := tx.Users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("reserve quota: %w", err)
	}
	return ErrInsufficientSpace
}

// Release returns delta bytes to userID inside tx and reports the new
// figure. used_space never goes below zero; hitting the floor means the
// ledger had drifted and is logged.
func (l *Ledger) Release(ctx context.Context, tx *repository.Repositories, userID string, delta int64) (int64, error) {
	if delta < 0 {
		return 0, ErrInvalidDelta
	}
	u, err := tx.Users.GetByIDForUpdate(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("release quota: %w", err)
	}

	next := u.UsedSpace - delta
	if next < 0 {
		l.log.Error().
			Str("user_id", userID).
			Int64("used_space", u.UsedSpace).
			Int64("release", delta).
			Msg("quota ledger drift: release exceeds used space, clamping to zero")
		next = 0
	}
	if err := tx.Users.SetUsedSpace(ctx, userID, next); err != nil {
		return 0, fmt.Errorf("release quota: %w", err)
	}
	return next, nil
}

// Usage is a display snapshot of a user's consumption.
type Usage struct {
	Used           int64   `json:"used"`
	Quota          int64   `json:"quota"`
	Available      int64   `json:"available"`
	Percent        float64 `json:"percent"`
	UsedHuman      string  `json:"used_human"`
	QuotaHuman     string  `json:"quota_human"`
	AvailableHuman string  `json:"available_human"`
}

func (l *Ledger) UsageFor(used int64) Usage {
	available := l.limit - used
	if available < 0 {
		available = 0
	}
	var percent float64
	if l.limit > 0 {
		percent = float64(used) * 100 / float64(l.limit)
	}
	return Usage{
		Used:           used,
		Quota:          l.limit,
		Available:      available,
		Percent:        percent,
		UsedHuman:      humanize.IBytes(uint64(used)),
		QuotaHuman:     humanize.IBytes(uint64(l.limit)),
		AvailableHuman: humanize.IBytes(uint64(available)),
	}
}

func (l *Ledger) Usage(ctx context.Context, userID string) (Usage, error) {
	u, err := l.repos.Users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return Usage{}, ErrUserNotFound
	}
	if err != nil {
		return Usage{}, fmt.Errorf("load usage: %w", err)
	}
	return l.UsageFor(u.UsedSpace), nil
}
