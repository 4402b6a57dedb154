package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrRateLimited   = errors.New("rate limited")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrInvalidOrder  = errors.New("invalid order parameters")
	ErrNoQuotes      = errors.New("no venue returned a usable quote")
	ErrWSDisconnect  = errors.New("websocket disconnected")
	ErrLockHeld      = errors.New("lock already held")
	ErrContextDone   = errors.New("context cancelled")
)

// ErrorKind classifies venue and routing failures into a stable set of
// machine-readable categories. The string values appear verbatim in API
// responses and persisted rows.
type ErrorKind string

const (
	KindVenueUnavailable    ErrorKind = "venue_unavailable"
	KindSymbolNotFound      ErrorKind = "symbol_not_found"
	KindBelowMinimumSize    ErrorKind = "below_min_size"
	KindAboveMaximumSize    ErrorKind = "above_max_size"
	KindInsufficientBalance ErrorKind = "insufficient_balance"
	KindNoGuardPrice        ErrorKind = "no_guard_price"
	KindOrderRejected       ErrorKind = "order_rejected"
	KindAllVenuesFailed     ErrorKind = "all_venues_failed"
	KindUnknown             ErrorKind = "unknown"
)

// VenueError wraps an underlying venue failure with the venue id and its
// classified kind so callers can branch without string matching.
type VenueError struct {
	Venue string
	Kind  ErrorKind
	Err   error
}

func (e *VenueError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Venue, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Venue, e.Kind, e.Err)
}

func (e *VenueError) Unwrap() error { return e.Err }

// NewVenueError builds a classified venue failure.
func NewVenueError(venue string, kind ErrorKind, err error) *VenueError {
	return &VenueError{Venue: venue, Kind: kind, Err: err}
}

// KindOf extracts the ErrorKind from err, walking the wrap chain.
// Returns KindUnknown for nil or unclassified errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var ve *VenueError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return KindUnknown
}
