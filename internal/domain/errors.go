package domain

import (
	"errors"
	"fmt"
)

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing resources.
var ErrNotFound = NotFoundError{}

var (
	// ErrUnknownFederation is returned when a federation id does not parse
	// or is not registered in the directory.
	ErrUnknownFederation = errors.New("unknown federation")

	// ErrUnknownUser is returned when a lightning address does not map to a
	// registered user.
	ErrUnknownUser = errors.New("unknown user")

	// ErrDuplicateTweak is returned by the backend when the tweaked key for
	// the requested index is already in use. The issuer retries internally.
	ErrDuplicateTweak = errors.New("tweak already in use")

	// ErrBackendUnavailable is returned when the federation gateway cannot
	// be reached or replies with a transport-level failure.
	ErrBackendUnavailable = errors.New("federation backend unavailable")

	// ErrTweakExhausted is returned when invoice creation keeps colliding
	// after the retry cap.
	ErrTweakExhausted = errors.New("tweak allocation exhausted")

	// ErrMalformedOperationID is returned for operation ids the backend
	// cannot parse. Recovery skips such entries.
	ErrMalformedOperationID = errors.New("malformed operation id")

	// ErrInvalidTransition is returned by the invoice store when an update
	// would move an invoice along an illegal lifecycle edge.
	ErrInvalidTransition = errors.New("invalid invoice state transition")
)
