package access

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filevault/internal/database"
	"filevault/internal/domain"
	"filevault/internal/repository"
)

func TestAuthorize(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	folderID := "f-1"
	otherFolder := "f-2"
	folder := Resource{OwnerID: "owner", FolderID: &folderID, FolderOwnerID: "owner"}
	rootFile := Resource{OwnerID: "owner"}

	valid := &domain.Share{ID: "s-1", FolderID: folderID, Expiration: now.Add(time.Hour)}
	expired := &domain.Share{ID: "s-1", FolderID: folderID, Expiration: now.Add(-time.Second)}
	exactlyNow := &domain.Share{ID: "s-1", FolderID: folderID, Expiration: now}
	wrongFolder := &domain.Share{ID: "s-1", FolderID: otherFolder, Expiration: now.Add(time.Hour)}

	tests := []struct {
		name   string
		req    Request
		reason error
	}{
		{"owner reads", Request{CallerID: "owner", Resource: folder, Mode: Read}, nil},
		{"owner writes", Request{CallerID: "owner", Resource: folder, Mode: Write}, nil},
		{"folder owner reads another uploader's file", Request{
			CallerID: "owner",
			Resource: Resource{OwnerID: "guest", FolderID: &folderID, FolderOwnerID: "owner"},
			Mode:     Write,
		}, nil},
		{"owner with stale share still allowed", Request{CallerID: "owner", Resource: folder, ShareID: "s-1", Share: expired, Mode: Write}, nil},
		{"anonymous without share", Request{Resource: folder, Mode: Read}, ErrUnauthenticated},
		{"non owner without share", Request{CallerID: "intruder", Resource: folder, Mode: Read}, ErrNotFound},
		{"valid share reads", Request{Resource: folder, ShareID: "s-1", Share: valid, Mode: Read}, nil},
		{"valid share cannot write", Request{Resource: folder, ShareID: "s-1", Share: valid, Mode: Write}, ErrForbidden},
		{"logged in stranger with valid share reads", Request{CallerID: "x", Resource: folder, ShareID: "s-1", Share: valid, Mode: Read}, nil},
		{"expired share", Request{Resource: folder, ShareID: "s-1", Share: expired, Mode: Read}, ErrShareInvalid},
		{"share expiring this instant", Request{Resource: folder, ShareID: "s-1", Share: exactlyNow, Mode: Read}, ErrShareInvalid},
		{"unknown share", Request{Resource: folder, ShareID: "s-9", Mode: Read}, ErrShareInvalid},
		{"share for another folder", Request{Resource: folder, ShareID: "s-1", Share: wrongFolder, Mode: Read}, ErrShareInvalid},
		{"share never covers root files", Request{Resource: rootFile, ShareID: "s-1", Share: valid, Mode: Read}, ErrShareInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Now = now
			d := Authorize(tt.req)
			if tt.reason == nil {
				assert.True(t, d.Allowed)
				assert.NoError(t, d.Err())
				return
			}
			assert.False(t, d.Allowed)
			assert.ErrorIs(t, d.Err(), tt.reason)
		})
	}
}

func TestErrShareInvalidIsNotFound(t *testing.T) {
	assert.ErrorIs(t, ErrShareInvalid, ErrNotFound)
}

type fixture struct {
	guard  *Guard
	repos  *repository.Repositories
	owner  *domain.User
	other  *domain.User
	folder *domain.Folder
	inside *domain.File
	root   *domain.File
	now    time.Time
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	repos := repository.New(database.OpenTest(t))

	owner := &domain.User{Name: "O", Email: "o@example.com", PasswordHash: "x"}
	other := &domain.User{Name: "X", Email: "x@example.com", PasswordHash: "x"}
	require.NoError(t, repos.Users.Create(ctx, owner))
	require.NoError(t, repos.Users.Create(ctx, other))

	folder := &domain.Folder{Name: "Shared", OwnerID: owner.ID}
	require.NoError(t, repos.Folders.Create(ctx, folder))

	inside := &domain.File{Name: "in.txt", Type: "text/plain", Size: 1, BlobKey: "k1", UploaderID: owner.ID, FolderID: &folder.ID}
	root := &domain.File{Name: "root.txt", Type: "text/plain", Size: 1, BlobKey: "k2", UploaderID: owner.ID}
	require.NoError(t, repos.Files.Create(ctx, inside))
	require.NoError(t, repos.Files.Create(ctx, root))

	now := time.Now()
	g := NewGuard(repos).WithClock(func() time.Time { return now })
	return &fixture{guard: g, repos: repos, owner: owner, other: other, folder: folder, inside: inside, root: root, now: now}
}

func (f *fixture) share(t *testing.T, expiresIn time.Duration) *domain.Share {
	t.Helper()
	s := &domain.Share{FolderID: f.folder.ID, Expiration: f.now.Add(expiresIn)}
	require.NoError(t, f.repos.Shares.Create(context.Background(), s))
	return s
}

func TestGuard_Folder(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	got, err := f.guard.Folder(ctx, f.owner.ID, f.folder.ID, "", Write)
	require.NoError(t, err)
	assert.Equal(t, f.folder.ID, got.ID)

	_, err = f.guard.Folder(ctx, f.other.ID, f.folder.ID, "", Read)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.guard.Folder(ctx, "", f.folder.ID, "", Read)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = f.guard.Folder(ctx, f.owner.ID, "not-a-uuid", "", Read)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGuard_ShareExpiry(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	expired := f.share(t, -time.Second)
	_, err := f.guard.Folder(ctx, "", f.folder.ID, expired.ID, Read)
	assert.ErrorIs(t, err, ErrShareInvalid)
	_, err = f.guard.File(ctx, "", f.inside.ID, expired.ID, Read)
	assert.ErrorIs(t, err, ErrShareInvalid)

	live := f.share(t, time.Hour)
	_, err = f.guard.Folder(ctx, "", f.folder.ID, live.ID, Read)
	assert.NoError(t, err)
	file, err := f.guard.File(ctx, "", f.inside.ID, live.ID, Read)
	require.NoError(t, err)
	assert.Equal(t, f.inside.ID, file.ID)

	_, err = f.guard.Folder(ctx, "", f.folder.ID, live.ID, Write)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.guard.File(ctx, f.other.ID, f.inside.ID, live.ID, Write)
	assert.ErrorIs(t, err, ErrForbidden)

	// The share names a folder; root files stay private.
	_, err = f.guard.File(ctx, "", f.root.ID, live.ID, Read)
	assert.ErrorIs(t, err, ErrShareInvalid)

	_, err = f.guard.Folder(ctx, "", f.folder.ID, "00000000-0000-0000-0000-000000000000", Read)
	assert.ErrorIs(t, err, ErrShareInvalid)

	_, err = f.guard.Share(ctx, expired.ID)
	assert.ErrorIs(t, err, ErrShareInvalid)
	s, err := f.guard.Share(ctx, live.ID)
	require.NoError(t, err)
	assert.Equal(t, f.folder.ID, s.FolderID)
}

func TestGuard_FileOwnership(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.guard.File(ctx, f.owner.ID, f.root.ID, "", Write)
	assert.NoError(t, err)

	_, err = f.guard.File(ctx, f.other.ID, f.root.ID, "", Read)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.guard.File(ctx, f.owner.ID, "00000000-0000-0000-0000-000000000000", "", Read)
	assert.ErrorIs(t, err, ErrNotFound)
}
