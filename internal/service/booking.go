package service

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/and161185/rideshare/internal/api"
	"github.com/and161185/rideshare/internal/convert"
	"github.com/and161185/rideshare/internal/errs"
	"github.com/and161185/rideshare/internal/model"
)

// BookingService covers the booking lifecycle. Every status change is
// decided server-side; callers reconcile by re-fetching.
type BookingService interface {
	// List returns the caller's bookings as passenger (default) or driver.
	List(ctx context.Context, f model.BookingFilter) ([]model.Booking, error)
	// Create requests seats on a ride.
	Create(ctx context.Context, in model.BookingInput) (*model.Booking, error)
	// Get returns one booking visible to the caller.
	Get(ctx context.Context, id int64) (*model.Booking, error)
	// Cancel cancels the caller's own booking.
	Cancel(ctx context.Context, id int64) error
	// Accept is the driver accepting a pending request.
	Accept(ctx context.Context, id int64) (*model.Booking, error)
	// Decline is the driver declining a pending request.
	Decline(ctx context.Context, id int64) (*model.Booking, error)
	// MyRequests lists every booking the caller made as passenger.
	MyRequests(ctx context.Context) ([]model.Booking, error)
	// ForRide lists the bookings on one of the caller's rides.
	ForRide(ctx context.Context, rideID int64) ([]model.Booking, error)
}

type BookingServiceImpl struct {
	api api.Doer
}

// NewBookingService constructs BookingService.
func NewBookingService(d api.Doer) *BookingServiceImpl { return &BookingServiceImpl{api: d} }

func (s *BookingServiceImpl) List(ctx context.Context, f model.BookingFilter) ([]model.Booking, error) {
	q := url.Values{}
	if f.As != "" {
		q.Set("as", string(f.As))
	}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.RideID > 0 {
		q.Set("ride", strconv.FormatInt(f.RideID, 10))
	}
	out, err := list[convert.Booking](ctx, s.api, "/bookings/", q)
	if err != nil {
		return nil, err
	}
	return convert.ToBookings(out), nil
}

func (s *BookingServiceImpl) Create(ctx context.Context, in model.BookingInput) (*model.Booking, error) {
	if in.RideID <= 0 {
		return nil, errs.NewValidation(map[string][]string{"ride": {"This field is required."}})
	}
	if in.Seats < 1 {
		return nil, errs.NewValidation(map[string][]string{"seats": {"Ensure this value is greater than or equal to 1."}})
	}
	var out convert.Booking
	if err := s.api.Do(ctx, api.Request{Method: http.MethodPost, Path: "/bookings/create/", Body: in}, &out); err != nil {
		return nil, err
	}
	return convert.ToBooking(&out), nil
}

func (s *BookingServiceImpl) Get(ctx context.Context, id int64) (*model.Booking, error) {
	var out convert.Booking
	if err := s.api.Do(ctx, api.Request{Method: http.MethodGet, Path: idPath("/bookings/", id, "")}, &out); err != nil {
		return nil, err
	}
	return convert.ToBooking(&out), nil
}

func (s *BookingServiceImpl) Cancel(ctx context.Context, id int64) error {
	return s.api.Do(ctx, api.Request{Method: http.MethodDelete, Path: idPath("/bookings/", id, "")}, nil)
}

func (s *BookingServiceImpl) Accept(ctx context.Context, id int64) (*model.Booking, error) {
	return s.transition(ctx, id, "accept/")
}

func (s *BookingServiceImpl) Decline(ctx context.Context, id int64) (*model.Booking, error) {
	return s.transition(ctx, id, "decline/")
}

func (s *BookingServiceImpl) transition(ctx context.Context, id int64, action string) (*model.Booking, error) {
	var out convert.Booking
	if err := s.api.Do(ctx, api.Request{Method: http.MethodPatch, Path: idPath("/bookings/", id, action)}, &out); err != nil {
		return nil, err
	}
	return convert.ToBooking(&out), nil
}

func (s *BookingServiceImpl) MyRequests(ctx context.Context) ([]model.Booking, error) {
	out, err := list[convert.Booking](ctx, s.api, "/bookings/my-requests/", nil)
	if err != nil {
		return nil, err
	}
	return convert.ToBookings(out), nil
}

func (s *BookingServiceImpl) ForRide(ctx context.Context, rideID int64) ([]model.Booking, error) {
	out, err := list[convert.Booking](ctx, s.api, idPath("/bookings/ride/", rideID, ""), nil)
	if err != nil {
		return nil, err
	}
	return convert.ToBookings(out), nil
}
