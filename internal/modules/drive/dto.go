package drive

import (
	"io"

	"filevault/internal/domain"
	"filevault/internal/modules/quota"
)

// UploadInput is one received file. Body must yield exactly Size bytes.
type UploadInput struct {
	Filename     string
	DeclaredName string
	FolderID     string
	ContentType  string
	Size         int64
	Body         io.Reader
}

type FolderRequest struct {
	Name string `json:"name" form:"name"`
}

// RootListing is the caller's home view.
type RootListing struct {
	Folders []domain.Folder `json:"folders"`
	Files   []domain.File   `json:"files"`
	Usage   quota.Usage     `json:"usage"`
}

// FolderListing is a folder and its files. ShareID is set when the view was
// reached through a share link.
type FolderListing struct {
	Folder  domain.Folder `json:"folder"`
	Files   []domain.File `json:"files"`
	ShareID string        `json:"share_id,omitempty"`
}

// Download is an open blob plus the metadata needed to serve it. The caller
// closes Body.
type Download struct {
	File *domain.File
	Body io.ReadCloser
}
