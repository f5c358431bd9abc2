package access

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("resource not found")
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("operation not permitted")

	// ErrShareInvalid covers both expired and unknown links so callers
	// cannot tell them apart. It matches ErrNotFound.
	ErrShareInvalid = fmt.Errorf("%w: share link invalid or expired", ErrNotFound)
)

// ShareInvalidMessage is the single user-facing text for a bad link.
const ShareInvalidMessage = "This link is invalid or has expired"
