package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_IsMatchesKindAndStatus(t *testing.T) {
	t.Parallel()

	nf := &APIError{Status: http.StatusNotFound, Kind: ErrUnknown, Message: "Not found."}
	require.ErrorIs(t, nf, ErrUnknown)
	require.ErrorIs(t, nf, ErrNotFound)
	require.NotErrorIs(t, nf, ErrForbidden)
	require.NotErrorIs(t, nf, ErrAuth)

	wrapped := fmt.Errorf("get ride: %w", &APIError{Status: http.StatusForbidden, Kind: ErrUnknown})
	require.ErrorIs(t, wrapped, ErrForbidden)
}

func TestAPIError_UnwrapTransport(t *testing.T) {
	t.Parallel()

	base := errors.New("dial tcp: refused")
	e := &APIError{Kind: ErrNetwork, Err: base}
	require.ErrorIs(t, e, ErrNetwork)
	require.ErrorIs(t, e, base)
	assert.Equal(t, "network error", e.Error())
}

func TestAPIError_Detail(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Invalid credentials",
		(&APIError{Kind: ErrAuth, Message: "Invalid credentials"}).Detail())
	assert.Equal(t, "email: user with this email already exists.",
		NewValidation(map[string][]string{"email": {"user with this email already exists."}}).Detail())
	assert.Equal(t, "You already have a booking for this ride",
		NewValidation(map[string][]string{"non_field_errors": {"You already have a booking for this ride"}}).Detail())
	assert.Equal(t, "", (&APIError{Kind: ErrServer}).Detail())
}

func TestMessage_FallsBackToGeneric(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Not enough seats available",
		Message(&APIError{Status: 400, Kind: ErrValidation, Message: "Not enough seats available"}, "generic"))
	assert.Equal(t, "generic", Message(errors.New("boom"), "generic"))
	assert.Equal(t, "generic", Message(&APIError{Kind: ErrServer, Status: 500}, "generic"))
}

func TestFieldErrors(t *testing.T) {
	t.Parallel()

	f := map[string][]string{"password": {"too short"}}
	assert.Equal(t, f, FieldErrors(fmt.Errorf("x: %w", NewValidation(f))))
	assert.Nil(t, FieldErrors(errors.New("plain")))
}
