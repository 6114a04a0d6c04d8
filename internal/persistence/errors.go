package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("persistence: duplicate")
	// ErrAlreadyClaimed is returned when a meeting claim loses the race
	// against a concurrent claim for the same meeting.
	ErrAlreadyClaimed = errors.New("persistence: meeting already claimed")
	// ErrConstraintViolation is returned when a check constraint rejects a write.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrForeignKeyViolation is returned when a referenced record is missing.
	ErrForeignKeyViolation = errors.New("persistence: foreign key violation")
)
