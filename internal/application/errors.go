package application

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyAssigned is returned when a meeting claim loses the race:
	// someone else already took the meeting. Distinguishable from ErrNotFound
	// so callers can say so.
	ErrAlreadyAssigned = errors.New("application: meeting already assigned")
	// ErrAlreadyExists is returned when a unique attribute is already taken.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrUnauthorized is returned when the caller lacks a valid identity for
	// the operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrSessionExpired is returned when a presented session token is past
	// its expiry.
	ErrSessionExpired = errors.New("application: session expired")
)

// ValidationError captures field level validation issues that callers can
// surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
