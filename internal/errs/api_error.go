package errs

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// APIError is a failed response from the backend.
type APIError struct {
	Status  int                 // HTTP status, 0 when no response was received
	Kind    error               // one of the class sentinels
	Message string              // server-provided message, verbatim when present
	Fields  map[string][]string // field-level messages for validation failures
	Err     error               // underlying transport error, if any
}

// Error implements error.
func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (%d)", e.Status)
	}
	if msg := e.Detail(); msg != "" {
		b.WriteString(": ")
		b.WriteString(msg)
	}
	return b.String()
}

// Unwrap exposes the transport error.
func (e *APIError) Unwrap() error { return e.Err }

// Is matches the class sentinel and the status refinements.
func (e *APIError) Is(target error) bool {
	switch target {
	case e.Kind:
		return true
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	}
	return false
}

// Detail returns the most specific human message available: the server
// message, else the first field message, else "".
func (e *APIError) Detail() string {
	if e.Message != "" {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if msgs := e.Fields[k]; len(msgs) > 0 {
			if k == "non_field_errors" {
				return msgs[0]
			}
			return k + ": " + msgs[0]
		}
	}
	return ""
}

// NewValidation builds a validation error that never touched the network.
func NewValidation(fields map[string][]string) *APIError {
	return &APIError{Kind: ErrValidation, Fields: fields}
}

// Message extracts the user-facing message from err, falling back to generic.
func Message(err error, generic string) string {
	var ae *APIError
	if errors.As(err, &ae) {
		if d := ae.Detail(); d != "" {
			return d
		}
	}
	return generic
}

// FieldErrors returns field-level messages carried by err, or nil.
func FieldErrors(err error) map[string][]string {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Fields
	}
	return nil
}
