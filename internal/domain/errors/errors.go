package errors

import "errors"

var (
	ErrAlreadyExists      = errors.New("already exists")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidOrderNumber = errors.New("invalid order number")
	ErrInvalidInput       = errors.New("invalid input")
	ErrCreateFailed       = errors.New("record creation failed")
	// ErrConflict signals contention on a user's record; callers may retry with a fresh load.
	ErrConflict = errors.New("concurrent modification")
)

// IsRetryable reports whether err is a contention failure worth retrying.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}
