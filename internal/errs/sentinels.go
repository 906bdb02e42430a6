// Package errs contains the client error taxonomy shared by the HTTP adapter,
// services and the CLI.
package errs

import "errors"

// Transport and response classes. Every error returned by the HTTP adapter
// matches exactly one of these via errors.Is.
var (
	// ErrNetwork indicates the request produced no response at all.
	ErrNetwork = errors.New("network error")

	// ErrTimeout indicates the request exceeded the adapter's fixed timeout.
	ErrTimeout = errors.New("request timed out")

	// ErrAuth indicates the server rejected the credentials (HTTP 401).
	ErrAuth = errors.New("authentication failed")

	// ErrValidation indicates a 4xx response carrying a field-level payload.
	ErrValidation = errors.New("validation failed")

	// ErrServer indicates a 5xx response.
	ErrServer = errors.New("server error")

	// ErrUnknown is the fallback class.
	ErrUnknown = errors.New("unknown error")
)

// Refinements. These are matched in addition to the class above.
var (
	// ErrNotFound indicates the requested entity does not exist (HTTP 404).
	ErrNotFound = errors.New("not found")

	// ErrForbidden indicates the action is not permitted for this user (HTTP 403).
	ErrForbidden = errors.New("forbidden")
)

// Client-side refusals. No request is issued when one of these is returned.
var (
	// ErrNoSeats indicates the ride cannot take the requested number of seats.
	ErrNoSeats = errors.New("not enough seats available")

	// ErrInvalidTransition indicates the local copy of a booking is in a state
	// this client does not transition from.
	ErrInvalidTransition = errors.New("invalid booking transition")

	// ErrNotAuthenticated indicates the operation needs a session and there is none.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrClosed indicates the view or poller was already closed.
	ErrClosed = errors.New("closed")
)
