package quota

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filevault/internal/database"
	"filevault/internal/domain"
	"filevault/internal/repository"
)

const mib = 1024 * 1024

func setupLedger(t *testing.T, used int64) (*Ledger, *repository.Repositories, *domain.User) {
	t.Helper()
	repos := repository.New(database.OpenTest(t))
	u := &domain.User{Name: "Q", Email: "q@example.com", PasswordHash: "x", UsedSpace: used}
	require.NoError(t, repos.Users.Create(context.Background(), u))
	return NewLedger(repos, 50*mib), repos, u
}

func usedSpace(t *testing.T, repos *repository.Repositories, id string) int64 {
	t.Helper()
	u, err := repos.Users.GetByID(context.Background(), id)
	require.NoError(t, err)
	return u.UsedSpace
}

func TestCheck(t *testing.T) {
	ledger, _, u := setupLedger(t, 49*mib)
	ctx := context.Background()

	assert.ErrorIs(t, ledger.Check(ctx, u.ID, 2*mib), ErrInsufficientSpace)
	assert.NoError(t, ledger.Check(ctx, u.ID, 1*mib))
	assert.ErrorIs(t, ledger.Check(ctx, "missing", 1), ErrUserNotFound)
	assert.ErrorIs(t, ledger.Check(ctx, u.ID, -1), ErrInvalidDelta)
}

func TestReserve_DeniesWithoutPartialAdmission(t *testing.T) {
	ledger, repos, u := setupLedger(t, 49*mib)
	ctx := context.Background()

	err := repos.Transaction(ctx, func(tx *repository.Repositories) error {
		return ledger.Reserve(ctx, tx, u.ID, 2*mib)
	})
	assert.ErrorIs(t, err, ErrInsufficientSpace)
	assert.Equal(t, int64(49*mib), usedSpace(t, repos, u.ID))

	err = repos.Transaction(ctx, func(tx *repository.Repositories) error {
		return ledger.Reserve(ctx, tx, u.ID, 1*mib)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(50*mib), usedSpace(t, repos, u.ID))

	err = repos.Transaction(ctx, func(tx *repository.Repositories) error {
		return ledger.Reserve(ctx, tx, "missing", 1)
	})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestReserve_RolledBackWithTransaction(t *testing.T) {
	ledger, repos, u := setupLedger(t, 0)
	ctx := context.Background()

	err := repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := ledger.Reserve(ctx, tx, u.ID, 10); err != nil {
			return err
		}
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, int64(0), usedSpace(t, repos, u.ID))
}

func TestRelease_ClampsAndLogsDrift(t *testing.T) {
	ledger, repos, u := setupLedger(t, 100)
	var buf bytes.Buffer
	ledger.SetLogger(zerolog.New(&buf))
	ctx := context.Background()

	var after int64
	err := repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		after, err = ledger.Release(ctx, tx, u.ID, 40)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(60), after)
	assert.Empty(t, buf.String())

	err = repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		after, err = ledger.Release(ctx, tx, u.ID, 100)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), after)
	assert.Equal(t, int64(0), usedSpace(t, repos, u.ID))
	assert.Contains(t, buf.String(), "drift")
}

func TestUsage(t *testing.T) {
	ledger, _, u := setupLedger(t, 25*mib)

	usage, err := ledger.Usage(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(25*mib), usage.Used)
	assert.Equal(t, int64(25*mib), usage.Available)
	assert.InDelta(t, 50.0, usage.Percent, 0.001)
	assert.Equal(t, "25 MiB", usage.UsedHuman)
	assert.Equal(t, "50 MiB", usage.QuotaHuman)

	over := ledger.UsageFor(60 * mib)
	assert.Equal(t, int64(0), over.Available)
}
