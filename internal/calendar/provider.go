// Package calendar defines the external calendar capability the scheduler
// consumes and a Google Calendar backed implementation of it.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Credential bundles the stored tokens needed to act on a member's calendar.
type Credential struct {
	AccessToken  string
	RefreshToken string
	CalendarID   string
}

// EventDetails carries the fields needed to create an external calendar event.
type EventDetails struct {
	Title         string
	Description   string
	Start         time.Time
	End           time.Time
	CustomerEmail string
	MemberEmail   string
	MeetingID     string
}

// Provider is the external calendar capability.
//
// Both operations fail with a *ProviderError on network, auth, or provider
// side failure; callers treat those as non-fatal per the availability and
// assignment policies.
type Provider interface {
	// IsFree reports whether the credential's calendar has no busy interval
	// overlapping [start, end).
	IsFree(ctx context.Context, cred Credential, start, end time.Time) (bool, error)
	// CreateEvent creates an event on the credential's calendar and returns
	// the provider-assigned event ID.
	CreateEvent(ctx context.Context, cred Credential, details EventDetails) (string, error)
}

// ProviderError wraps a failed external calendar call.
type ProviderError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("calendar: %s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsProviderError reports whether err is (or wraps) a ProviderError.
func IsProviderError(err error) bool {
	var pErr *ProviderError
	return errors.As(err, &pErr)
}
