package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"filevault/internal/domain"
	"filevault/internal/repository"
)

type Mode int

const (
	Read Mode = iota
	Write
)

func (m Mode) String() string {
	if m == Write {
		return "write"
	}
	return "read"
}

// Resource is the ownership view of a folder or file. For a folder,
// FolderID is its own id; for a root file it is nil.
type Resource struct {
	OwnerID       string
	FolderID      *string
	FolderOwnerID string
}

func FolderResource(f *domain.Folder) Resource {
	id := f.ID
	return Resource{OwnerID: f.OwnerID, FolderID: &id, FolderOwnerID: f.OwnerID}
}

func FileResource(f *domain.File, folder *domain.Folder) Resource {
	r := Resource{OwnerID: f.UploaderID, FolderID: f.FolderID}
	if folder != nil {
		r.FolderOwnerID = folder.OwnerID
	}
	return r
}

// Request is everything Authorize needs. ShareID is what the caller
// presented; Share is the loaded row, nil when no such share exists.
type Request struct {
	CallerID string
	Resource Resource
	ShareID  string
	Share    *domain.Share
	Mode     Mode
	Now      time.Time
}

type Decision struct {
	Allowed bool
	Reason  error
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason error) Decision { return Decision{Reason: reason} }

func (d Decision) Err() error { return d.Reason }

// Authorize is a pure predicate over caller, ownership and share validity.
//
// Owners may read and write. A presented share must exist, be unexpired and
// point at the resource's folder, and then grants read only. Without a share
// an anonymous caller is unauthenticated and a non-owner sees not-found.
func Authorize(req Request) Decision {
	if req.CallerID != "" && ownsResource(req.CallerID, req.Resource) {
		return allow()
	}

	if req.ShareID != "" {
		s := req.Share
		if s == nil || s.ID != req.ShareID || !s.ValidAt(req.Now) ||
			req.Resource.FolderID == nil || *req.Resource.FolderID != s.FolderID {
			return deny(ErrShareInvalid)
		}
		if req.Mode != Read {
			return deny(ErrForbidden)
		}
		return allow()
	}

	if req.CallerID == "" {
		return deny(ErrUnauthenticated)
	}
	return deny(ErrNotFound)
}

func ownsResource(callerID string, r Resource) bool {
	if r.OwnerID == callerID {
		return true
	}
	return r.FolderOwnerID != "" && r.FolderOwnerID == callerID
}

// Guard loads resources and shares, then applies Authorize.
type Guard struct {
	repos *repository.Repositories
	now   func() time.Time
}

func NewGuard(repos *repository.Repositories) *Guard {
	return &Guard{repos: repos, now: time.Now}
}

// WithClock replaces the time source; used by tests.
func (g *Guard) WithClock(now func() time.Time) *Guard {
	g.now = now
	return g
}

func (g *Guard) Now() time.Time { return g.now() }

// Folder returns the folder if callerID (possibly empty) may access it in
// mode, optionally through shareID.
func (g *Guard) Folder(ctx context.Context, callerID, folderID, shareID string, mode Mode) (*domain.Folder, error) {
	if callerID == "" && shareID == "" {
		return nil, ErrUnauthenticated
	}

	share, err := g.loadShare(ctx, shareID)
	if err != nil {
		return nil, err
	}

	folder, err := g.loadFolder(ctx, folderID)
	if err != nil {
		return nil, g.missing(err, shareID)
	}

	d := Authorize(Request{
		CallerID: callerID,
		Resource: FolderResource(folder),
		ShareID:  shareID,
		Share:    share,
		Mode:     mode,
		Now:      g.now(),
	})
	if !d.Allowed {
		return nil, d.Err()
	}
	return folder, nil
}

// File returns the file if callerID may access it in mode, optionally
// through shareID.
func (g *Guard) File(ctx context.Context, callerID, fileID, shareID string, mode Mode) (*domain.File, error) {
	if callerID == "" && shareID == "" {
		return nil, ErrUnauthenticated
	}

	share, err := g.loadShare(ctx, shareID)
	if err != nil {
		return nil, err
	}

	if _, err := uuid.Parse(fileID); err != nil {
		return nil, g.missing(ErrNotFound, shareID)
	}
	file, err := g.repos.Files.GetByID(ctx, fileID)
	if err != nil {
		return nil, g.missing(err, shareID)
	}

	var folder *domain.Folder
	if file.FolderID != nil {
		folder, err = g.repos.Folders.GetByID(ctx, *file.FolderID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("load parent folder: %w", err)
		}
	}

	d := Authorize(Request{
		CallerID: callerID,
		Resource: FileResource(file, folder),
		ShareID:  shareID,
		Share:    share,
		Mode:     mode,
		Now:      g.now(),
	})
	if !d.Allowed {
		return nil, d.Err()
	}
	return file, nil
}

// Share returns a share that is valid right now.
func (g *Guard) Share(ctx context.Context, shareID string) (*domain.Share, error) {
	share, err := g.loadShare(ctx, shareID)
	if err != nil {
		return nil, err
	}
	if share == nil || !share.ValidAt(g.now()) {
		return nil, ErrShareInvalid
	}
	return share, nil
}

func (g *Guard) loadShare(ctx context.Context, shareID string) (*domain.Share, error) {
	if shareID == "" {
		return nil, nil
	}
	if _, err := uuid.Parse(shareID); err != nil {
		return nil, nil
	}
	share, err := g.repos.Shares.GetByID(ctx, shareID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load share: %w", err)
	}
	return share, nil
}

func (g *Guard) loadFolder(ctx context.Context, folderID string) (*domain.Folder, error) {
	if _, err := uuid.Parse(folderID); err != nil {
		return nil, ErrNotFound
	}
	return g.repos.Folders.GetByID(ctx, folderID)
}

// missing maps a load failure to the caller-facing error.
func (g *Guard) missing(err error, shareID string) error {
	if errors.Is(err, repository.ErrNotFound) || errors.Is(err, ErrNotFound) {
		if shareID != "" {
			return ErrShareInvalid
		}
		return ErrNotFound
	}
	return fmt.Errorf("load resource: %w", err)
}
