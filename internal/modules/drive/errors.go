package drive

import (
	"errors"
	"fmt"

	"filevault/internal/modules/access"
)

var (
	ErrEmptyFile    = errors.New("uploaded file is empty")
	ErrFileTooLarge = errors.New("uploaded file exceeds the size limit")
	ErrNameConflict = errors.New("name already in use")
	ErrSizeMismatch = errors.New("upload body does not match its declared size")

	// ErrFolderNotFound is returned for an upload target the caller cannot
	// see; it still matches access.ErrNotFound.
	ErrFolderNotFound = fmt.Errorf("%w: folder", access.ErrNotFound)
)
