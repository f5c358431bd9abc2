package drive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"filevault/internal/blob"
	"filevault/internal/domain"
	"filevault/internal/modules/access"
	"filevault/internal/modules/cleanup"
	"filevault/internal/modules/events"
	"filevault/internal/modules/naming"
	"filevault/internal/modules/quota"
	"filevault/internal/pkg/utils"
	"filevault/internal/pkg/validator"
	"filevault/internal/repository"
	"filevault/internal/session"
)

const (
	maxNameLength = 255
	sniffLength   = 3072
)

// Deps are the collaborators of Service. Sessions and Events may be nil.
type Deps struct {
	Repos       *repository.Repositories
	Guard       *access.Guard
	Names       *naming.Resolver
	Ledger      *quota.Ledger
	Blobs       blob.Store
	Cleanup     *cleanup.Queue
	Sessions    session.Saver
	Events      events.Publisher
	MaxFileSize int64
}

// Service orchestrates uploads, deletes and listings across the relational
// store, the blob store and the quota ledger.
type Service struct {
	repos       *repository.Repositories
	guard       *access.Guard
	names       *naming.Resolver
	ledger      *quota.Ledger
	blobs       blob.Store
	cleanup     *cleanup.Queue
	sessions    session.Saver
	events      events.Publisher
	maxFileSize int64
	log         zerolog.Logger
}

func NewService(d Deps) *Service {
	ev := d.Events
	if ev == nil {
		ev = events.Nop()
	}
	return &Service{
		repos:       d.Repos,
		guard:       d.Guard,
		names:       d.Names,
		ledger:      d.Ledger,
		blobs:       d.Blobs,
		cleanup:     d.Cleanup,
		sessions:    d.Sessions,
		events:      ev,
		maxFileSize: d.MaxFileSize,
		log:         zerolog.Nop(),
	}
}

func (s *Service) SetLogger(log zerolog.Logger) {
	s.log = log
}

func (s *Service) MaxFileSize() int64 { return s.maxFileSize }

// Upload stores a new file for the session's user.
//
// The blob is written before the metadata transaction. If the transaction
// fails the blob is removed again, and queued for the sweeper when even that
// fails, so the ledger is never charged without a file row.
func (s *Service) Upload(ctx context.Context, sess *session.Session, in UploadInput) (*domain.File, error) {
	userID := sess.UserID()
	if userID == "" {
		return nil, access.ErrUnauthenticated
	}
	if in.Size <= 0 || in.Body == nil {
		return nil, ErrEmptyFile
	}
	if s.maxFileSize > 0 && in.Size > s.maxFileSize {
		return nil, ErrFileTooLarge
	}

	var folderID *string
	if strings.TrimSpace(in.FolderID) != "" {
		folder, err := s.guard.Folder(ctx, userID, strings.TrimSpace(in.FolderID), "", access.Write)
		if err != nil {
			if errors.Is(err, access.ErrNotFound) {
				return nil, ErrFolderNotFound
			}
			return nil, err
		}
		folderID = &folder.ID
	}

	declared := in.DeclaredName
	if err := validateName(ctx, &declared); err != nil {
		return nil, err
	}

	if err := s.ledger.Check(ctx, userID, in.Size); err != nil {
		return nil, err
	}

	name, err := s.names.Resolve(ctx, declared, naming.FileScope{UploaderID: userID, FolderID: folderID})
	if err != nil {
		return nil, err
	}

	// One byte past the declared size is enough to notice a longer body.
	counted := &countingReader{r: io.LimitReader(in.Body, in.Size+1)}
	body, contentType, err := sniff(counted, in.ContentType)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	key := blob.NewKey(s.guard.Now().UTC(), utils.Extension(in.Filename))
	if err := s.blobs.Put(ctx, key, body, in.Size, contentType); err != nil {
		if counted.eof && counted.n != in.Size {
			return nil, ErrSizeMismatch
		}
		return nil, fmt.Errorf("store blob: %w", err)
	}
	if counted.n != in.Size {
		s.discardBlobs(ctx, []string{key}, domain.CleanupReasonOrphaned)
		return nil, ErrSizeMismatch
	}

	file := &domain.File{
		Name:       name,
		Type:       contentType,
		Size:       in.Size,
		BlobKey:    key,
		UploaderID: userID,
		FolderID:   folderID,
	}

	var used int64
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		// The folder may have been deleted since the guard check.
		if folderID != nil {
			if _, err := tx.Folders.GetByIDForUpdate(ctx, *folderID); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return ErrFolderNotFound
				}
				return fmt.Errorf("lock folder: %w", err)
			}
		}
		if err := s.ledger.Reserve(ctx, tx, userID, in.Size); err != nil {
			return err
		}
		if err := tx.Files.Create(ctx, file); err != nil {
			return fmt.Errorf("create file record: %w", err)
		}
		u, err := tx.Users.GetByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("reload user: %w", err)
		}
		used = u.UsedSpace
		return nil
	})
	if err != nil {
		s.discardBlobs(ctx, []string{key}, domain.CleanupReasonOrphaned)
		return nil, err
	}

	s.log.Info().
		Str("user_id", userID).
		Str("file_id", file.ID).
		Int64("size", file.Size).
		Str("blob_key", key).
		Msg("file uploaded")

	s.usageChanged(ctx, sess, used)
	s.events.Publish(userID, events.Event{Type: events.TypeFileUploaded, FolderID: folderID, FileID: file.ID})
	return file, nil
}

// DeleteFile removes a file the caller owns. The metadata commit is
// authoritative; blob removal afterwards is best-effort.
func (s *Service) DeleteFile(ctx context.Context, sess *session.Session, fileID string) error {
	userID := sess.UserID()
	file, err := s.guard.File(ctx, userID, fileID, "", access.Write)
	if err != nil {
		return err
	}

	var used int64
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Files.Delete(ctx, file.ID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return access.ErrNotFound
			}
			return fmt.Errorf("delete file record: %w", err)
		}
		used, err = s.ledger.Release(ctx, tx, file.UploaderID, file.Size)
		return err
	})
	if err != nil {
		return err
	}

	s.discardBlobs(ctx, []string{file.BlobKey}, domain.CleanupReasonDeleteFailed)

	s.log.Info().Str("user_id", userID).Str("file_id", file.ID).Int64("size", file.Size).Msg("file deleted")
	s.usageChanged(ctx, sess, used)
	s.events.Publish(userID, events.Event{Type: events.TypeFileDeleted, FolderID: file.FolderID, FileID: file.ID})
	return nil
}

// DeleteFolder removes a folder with every file in it and returns their
// aggregate size to the owner's quota.
func (s *Service) DeleteFolder(ctx context.Context, sess *session.Session, folderID string) error {
	userID := sess.UserID()
	folder, err := s.guard.Folder(ctx, userID, folderID, "", access.Write)
	if err != nil {
		return err
	}

	var (
		contents repository.FolderContents
		used     int64
	)
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		// Uploads lock the same row, so no file can land between the sum
		// and the delete below.
		if _, err := tx.Folders.GetByIDForUpdate(ctx, folder.ID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return access.ErrNotFound
			}
			return fmt.Errorf("lock folder: %w", err)
		}
		contents, err = tx.Files.ContentsOfFolder(ctx, folder.ID)
		if err != nil {
			return fmt.Errorf("collect folder contents: %w", err)
		}
		if _, err := tx.Files.DeleteByFolder(ctx, folder.ID); err != nil {
			return fmt.Errorf("delete folder files: %w", err)
		}
		// Shares go with the folder through the foreign key cascade.
		if err := tx.Folders.Delete(ctx, folder.ID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return access.ErrNotFound
			}
			return fmt.Errorf("delete folder: %w", err)
		}
		used, err = s.ledger.Release(ctx, tx, folder.OwnerID, contents.TotalSize)
		return err
	})
	if err != nil {
		return err
	}

	s.discardBlobs(ctx, contents.BlobKeys, domain.CleanupReasonDeleteFailed)

	s.log.Info().
		Str("user_id", userID).
		Str("folder_id", folder.ID).
		Int("files", len(contents.BlobKeys)).
		Int64("released", contents.TotalSize).
		Msg("folder deleted")

	s.usageChanged(ctx, sess, used)
	id := folder.ID
	s.events.Publish(userID, events.Event{Type: events.TypeFolderDeleted, FolderID: &id})
	return nil
}

func (s *Service) CreateFolder(ctx context.Context, sess *session.Session, requested string) (*domain.Folder, error) {
	userID := sess.UserID()
	if userID == "" {
		return nil, access.ErrUnauthenticated
	}
	if err := validateName(ctx, &requested); err != nil {
		return nil, err
	}

	name, err := s.names.Resolve(ctx, requested, naming.FolderScope{OwnerID: userID})
	if err != nil {
		return nil, err
	}

	folder := &domain.Folder{Name: name, OwnerID: userID}
	if err := s.repos.Folders.Create(ctx, folder); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrNameConflict
		}
		return nil, fmt.Errorf("create folder: %w", err)
	}

	id := folder.ID
	s.events.Publish(userID, events.Event{Type: events.TypeFolderCreated, FolderID: &id})
	return folder, nil
}

// RenameFolder resolves requested against the owner's other folders.
// Renaming a folder to its current name is a no-op.
func (s *Service) RenameFolder(ctx context.Context, sess *session.Session, folderID, requested string) (*domain.Folder, error) {
	userID := sess.UserID()
	folder, err := s.guard.Folder(ctx, userID, folderID, "", access.Write)
	if err != nil {
		return nil, err
	}
	if err := validateName(ctx, &requested); err != nil {
		return nil, err
	}

	if naming.Normalize(requested) == folder.Name {
		return folder, nil
	}

	name, err := s.names.Resolve(ctx, requested, naming.FolderScope{OwnerID: userID, ExcludeID: folder.ID})
	if err != nil {
		return nil, err
	}

	if err := s.repos.Folders.Rename(ctx, folder.ID, name); err != nil {
		switch {
		case repository.IsUniqueViolation(err):
			return nil, ErrNameConflict
		case errors.Is(err, repository.ErrNotFound):
			return nil, access.ErrNotFound
		}
		return nil, fmt.Errorf("rename folder: %w", err)
	}
	folder.Name = name

	id := folder.ID
	s.events.Publish(userID, events.Event{Type: events.TypeFolderRenamed, FolderID: &id})
	return folder, nil
}

func (s *Service) RootListing(ctx context.Context, sess *session.Session) (*RootListing, error) {
	userID := sess.UserID()
	if userID == "" {
		return nil, access.ErrUnauthenticated
	}

	folders, err := s.repos.Folders.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	files, err := s.repos.Files.ListRoot(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list root files: %w", err)
	}
	usage, err := s.ledger.Usage(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &RootListing{Folders: folders, Files: files, Usage: usage}, nil
}

// FolderListing returns a folder and its files to its owner, or to anyone
// presenting a valid share for it.
func (s *Service) FolderListing(ctx context.Context, callerID, folderID, shareID string) (*FolderListing, error) {
	folder, err := s.guard.Folder(ctx, callerID, folderID, shareID, access.Read)
	if err != nil {
		return nil, err
	}
	files, err := s.repos.Files.ListByFolder(ctx, folder.ID)
	if err != nil {
		return nil, fmt.Errorf("list folder files: %w", err)
	}
	return &FolderListing{Folder: *folder, Files: files, ShareID: shareID}, nil
}

func (s *Service) File(ctx context.Context, callerID, fileID, shareID string) (*domain.File, error) {
	return s.guard.File(ctx, callerID, fileID, shareID, access.Read)
}

// OpenFile authorizes a read and opens the blob. A file row whose blob is
// gone is reported as not found.
func (s *Service) OpenFile(ctx context.Context, callerID, fileID, shareID string) (*Download, error) {
	file, err := s.guard.File(ctx, callerID, fileID, shareID, access.Read)
	if err != nil {
		return nil, err
	}
	body, err := s.blobs.Get(ctx, file.BlobKey)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			s.log.Error().Str("file_id", file.ID).Str("blob_key", file.BlobKey).Msg("file record without blob")
			return nil, access.ErrNotFound
		}
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return &Download{File: file, Body: body}, nil
}

// discardBlobs deletes keys and queues whatever could not be deleted. It
// ignores cancellation of ctx: the metadata is already committed.
func (s *Service) discardBlobs(ctx context.Context, keys []string, reason string) {
	if len(keys) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)

	err := s.blobs.DeleteMany(ctx, keys)
	failed := blob.FailedKeys(err, keys)
	if len(failed) == 0 {
		return
	}
	s.log.Error().Err(err).Strs("blob_keys", failed).Msg("blob deletion failed")

	if s.cleanup == nil {
		return
	}
	if qerr := s.cleanup.Enqueue(ctx, failed, reason); qerr != nil {
		s.log.Error().Err(qerr).Strs("blob_keys", failed).Msg("could not queue blob cleanup")
	}
}

// usageChanged refreshes the session's cached figure and notifies
// subscribers. Failing to save the session does not undo the operation.
func (s *Service) usageChanged(ctx context.Context, sess *session.Session, used int64) {
	sess.Data.UsedSpace = used
	if s.sessions != nil {
		if err := s.sessions.Save(context.WithoutCancel(ctx), sess); err != nil {
			s.log.Warn().Err(err).Str("session_id", sess.ID).Msg("failed to save session usage")
		}
	}
	s.events.Publish(sess.UserID(), events.Event{
		Type:      events.TypeQuotaChanged,
		UsedSpace: &used,
		At:        time.Now().UTC(),
	})
}

func validateName(ctx context.Context, name *string) error {
	p := validator.New()
	validator.Field(p, "name", name,
		validator.TrimSpace(),
		validator.MaxLength(maxNameLength, fmt.Sprintf("Name must be at most %d characters", maxNameLength)),
		noSeparators(),
	)
	return p.Run(ctx)
}

func noSeparators() validator.Rule[string] {
	return func(_ context.Context, v string) (string, error) {
		if strings.ContainsAny(v, "/\\\x00") {
			return v, validator.Fail("Name must not contain slashes")
		}
		return v, nil
	}
}

// sniff peeks at the head of r to detect its content type when the client
// did not declare a useful one. The returned reader replays the peeked bytes.
type countingReader struct {
	r   io.Reader
	n   int64
	eof bool
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	if errors.Is(err, io.EOF) {
		c.eof = true
	}
	return n, err
}

func sniff(r io.Reader, declared string) (io.Reader, string, error) {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		return r, declared, nil
	}

	head := make([]byte, sniffLength)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, "", err
	}
	head = head[:n]
	return io.MultiReader(bytes.NewReader(head), r), mimetype.Detect(head).String(), nil
}
