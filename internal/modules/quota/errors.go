package quota

import "errors"

var (
	ErrInsufficientSpace = errors.New("insufficient storage space")
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidDelta      = errors.New("quota delta must not be negative")
)
