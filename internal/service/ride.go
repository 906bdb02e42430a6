package service

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/and161185/rideshare/internal/api"
	"github.com/and161185/rideshare/internal/convert"
	"github.com/and161185/rideshare/internal/errs"
	"github.com/and161185/rideshare/internal/model"
)

// RideService covers rides and the driver's car.
type RideService interface {
	// List returns rides matching f (all statuses unless f.Status is set).
	List(ctx context.Context, f model.RideFilter) ([]model.Ride, error)
	// Search returns upcoming rides matching f ordered by departure.
	Search(ctx context.Context, f model.RideFilter) ([]model.Ride, error)
	// Get returns the detail view of a ride.
	Get(ctx context.Context, id int64) (*model.Ride, error)
	// Create publishes a ride.
	Create(ctx context.Context, in model.RideInput) (*model.Ride, error)
	// Update replaces the editable fields of a ride.
	Update(ctx context.Context, id int64, in model.RideInput) (*model.Ride, error)
	// Cancel marks a ride cancelled. The backend never deletes rides.
	Cancel(ctx context.Context, id int64) error
	// MyRides lists rides offered by the authenticated user.
	MyRides(ctx context.Context) ([]model.Ride, error)
	// GetCar returns the authenticated user's car, created empty on first access.
	GetCar(ctx context.Context) (*model.Car, error)
	// UpsertCar patches the car record.
	UpsertCar(ctx context.Context, in model.CarInput) (*model.Car, error)
	// UploadCarImage replaces the car image.
	UploadCarImage(ctx context.Context, filename string, r io.Reader) (*model.Car, error)
}

type RideServiceImpl struct {
	api api.Doer
}

// NewRideService constructs RideService.
func NewRideService(d api.Doer) *RideServiceImpl { return &RideServiceImpl{api: d} }

func (s *RideServiceImpl) List(ctx context.Context, f model.RideFilter) ([]model.Ride, error) {
	out, err := list[convert.Ride](ctx, s.api, "/rides/", RideQuery(f))
	if err != nil {
		return nil, err
	}
	return convert.ToRides(out), nil
}

func (s *RideServiceImpl) Search(ctx context.Context, f model.RideFilter) ([]model.Ride, error) {
	out, err := list[convert.Ride](ctx, s.api, "/rides/search/", RideQuery(f))
	if err != nil {
		return nil, err
	}
	return convert.ToRides(out), nil
}

func (s *RideServiceImpl) Get(ctx context.Context, id int64) (*model.Ride, error) {
	var out convert.Ride
	if err := s.api.Do(ctx, api.Request{Method: http.MethodGet, Path: idPath("/rides/", id, "")}, &out); err != nil {
		return nil, err
	}
	return convert.ToRide(&out), nil
}

func (s *RideServiceImpl) Create(ctx context.Context, in model.RideInput) (*model.Ride, error) {
	if err := ValidateRide(in); err != nil {
		return nil, err
	}
	var out convert.Ride
	if err := s.api.Do(ctx, api.Request{Method: http.MethodPost, Path: "/rides/", Body: in}, &out); err != nil {
		return nil, err
	}
	return convert.ToRide(&out), nil
}

func (s *RideServiceImpl) Update(ctx context.Context, id int64, in model.RideInput) (*model.Ride, error) {
	if err := ValidateRideUpdate(in); err != nil {
		return nil, err
	}
	var out convert.Ride
	if err := s.api.Do(ctx, api.Request{Method: http.MethodPut, Path: idPath("/rides/", id, ""), Body: in}, &out); err != nil {
		return nil, err
	}
	return convert.ToRide(&out), nil
}

func (s *RideServiceImpl) Cancel(ctx context.Context, id int64) error {
	return s.api.Do(ctx, api.Request{Method: http.MethodDelete, Path: idPath("/rides/", id, "")}, nil)
}

func (s *RideServiceImpl) MyRides(ctx context.Context) ([]model.Ride, error) {
	out, err := list[convert.Ride](ctx, s.api, "/rides/my-rides/", nil)
	if err != nil {
		return nil, err
	}
	return convert.ToRides(out), nil
}

func (s *RideServiceImpl) GetCar(ctx context.Context) (*model.Car, error) {
	var out convert.Car
	if err := s.api.Do(ctx, api.Request{Method: http.MethodGet, Path: "/rides/car/"}, &out); err != nil {
		return nil, err
	}
	return convert.ToCar(&out), nil
}

func (s *RideServiceImpl) UpsertCar(ctx context.Context, in model.CarInput) (*model.Car, error) {
	if in.Year < 0 {
		return nil, errs.NewValidation(map[string][]string{"year": {"Ensure this value is greater than or equal to 0."}})
	}
	var out convert.Car
	if err := s.api.Do(ctx, api.Request{Method: http.MethodPatch, Path: "/rides/car/", Body: in}, &out); err != nil {
		return nil, err
	}
	return convert.ToCar(&out), nil
}

func (s *RideServiceImpl) UploadCarImage(ctx context.Context, filename string, r io.Reader) (*model.Car, error) {
	req := api.Request{
		Method:    http.MethodPatch,
		Path:      "/rides/car/",
		Multipart: &api.Multipart{FileField: "car_image", FileName: filename, File: r},
	}
	var out convert.Car
	if err := s.api.Do(ctx, req, &out); err != nil {
		return nil, err
	}
	return convert.ToCar(&out), nil
}

// RideQuery encodes the ride filters the backend understands. Zero values are omitted.
func RideQuery(f model.RideFilter) url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("origin", f.Origin)
	set("destination", f.Destination)
	set("departure_date", f.DepartureDate)
	set("departure_date_after", f.DepartureDateAfter)
	if f.MinPrice != nil {
		q.Set("min_price", strconv.FormatFloat(*f.MinPrice, 'f', -1, 64))
	}
	if f.MaxPrice != nil {
		q.Set("max_price", strconv.FormatFloat(*f.MaxPrice, 'f', -1, 64))
	}
	if f.MinSeats > 0 {
		q.Set("min_seats", strconv.Itoa(f.MinSeats))
	}
	if f.InstantBooking != nil {
		q.Set("instant_booking", strconv.FormatBool(*f.InstantBooking))
	}
	set("status", string(f.Status))
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	return q
}
