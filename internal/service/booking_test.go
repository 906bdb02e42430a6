package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/and161185/rideshare/internal/errs"
	"github.com/and161185/rideshare/internal/model"
)

const bookingJSON = `{"id":9,"ride":{"id":3,"origin":"NYC","destination":"Boston","status":"upcoming","seats_available":1,"total_seats":3,"price":"10.00","departure_time":"2030-01-01T09:00:00Z"},"passenger":{"id":2},"seats":1,"status":"Accepted","created_at":"2030-01-01T00:00:00Z"}`

func TestBookingService_ListFilters(t *testing.T) {
	t.Parallel()

	d := newFakeDoer().on("GET", "/bookings/", `[`+bookingJSON+`]`)
	out, err := NewBookingService(d).List(context.Background(),
		model.BookingFilter{As: model.AsDriver, Status: model.BookingPending, RideID: 3})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, model.BookingAccepted, out[0].Status)
	assert.Equal(t, int64(3), out[0].RideID())

	q := d.last().Query
	assert.Equal(t, "driver", q.Get("as"))
	assert.Equal(t, "pending", q.Get("status"))
	assert.Equal(t, "3", q.Get("ride"))
}

func TestBookingService_CreateValidatesSeats(t *testing.T) {
	t.Parallel()

	d := newFakeDoer()
	_, err := NewBookingService(d).Create(context.Background(), model.BookingInput{RideID: 3, Seats: 0})
	require.ErrorIs(t, err, errs.ErrValidation)
	assert.Zero(t, d.count())
}

func TestBookingService_Transitions(t *testing.T) {
	t.Parallel()

	d := newFakeDoer().
		on("PATCH", "/bookings/9/accept/", bookingJSON).
		fail("PATCH", "/bookings/9/decline/", &errs.APIError{Status: http.StatusBadRequest, Kind: errs.ErrValidation, Message: "Can only decline pending bookings"})
	svc := NewBookingService(d)

	b, err := svc.Accept(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, model.BookingAccepted, b.Status)

	_, err = svc.Decline(context.Background(), 9)
	require.ErrorIs(t, err, errs.ErrValidation)
	assert.Equal(t, "Can only decline pending bookings", errs.Message(err, ""))

	require.NoError(t, svc.Cancel(context.Background(), 9))
	assert.Equal(t, http.MethodDelete, d.last().Method)
	assert.Equal(t, "/bookings/9/", d.last().Path)
}

func TestBookingService_ForRideCompactShape(t *testing.T) {
	t.Parallel()

	d := newFakeDoer().on("GET", "/bookings/ride/3/",
		`[{"id":9,"ride_info":{"id":3,"origin":"NYC","destination":"Boston","departure_time":"2030-01-01T09:00:00Z"},"seats":2,"status":"pending","created_at":"2030-01-01T00:00:00Z"}]`)
	out, err := NewBookingService(d).ForRide(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(3), out[0].RideID())
	assert.Equal(t, "NYC", out[0].Ride.Origin)
}
