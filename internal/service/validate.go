package service

import (
	"regexp"
	"strings"

	"github.com/and161185/rideshare/internal/errs"
	"github.com/and161185/rideshare/internal/model"
)

// MinPasswordLen mirrors the backend's minimum length validator.
const MinPasswordLen = 8

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

type fieldErrors map[string][]string

func (f fieldErrors) add(field, msg string) { f[field] = append(f[field], msg) }

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return errs.NewValidation(f)
}

// ValidateRegister checks the registration form before it is sent.
func ValidateRegister(in model.RegisterInput) error {
	f := fieldErrors{}
	if !emailRegex.MatchString(strings.TrimSpace(in.Email)) {
		f.add("email", "Enter a valid email address.")
	}
	if strings.TrimSpace(in.Username) == "" {
		f.add("username", "This field may not be blank.")
	}
	if strings.TrimSpace(in.FirstName) == "" {
		f.add("first_name", "This field may not be blank.")
	}
	if strings.TrimSpace(in.LastName) == "" {
		f.add("last_name", "This field may not be blank.")
	}
	if len(in.Password) < MinPasswordLen {
		f.add("password", "This password is too short. It must contain at least 8 characters.")
	}
	if in.Password != in.PasswordConfirm {
		f.add("password_confirm", "Password fields didn't match.")
	}
	return f.err()
}

// ValidateRide checks a ride form: places present, a departure time,
// 1 <= seats_available <= total_seats and a non-negative price.
func ValidateRide(in model.RideInput) error {
	f := rideFields(in)
	if in.SeatsAvailable < 1 {
		f.add("non_field_errors", "Must have at least 1 available seat")
	} else if in.SeatsAvailable > in.TotalSeats {
		f.add("non_field_errors", "Available seats cannot exceed total seats")
	}
	return f.err()
}

// ValidateRideUpdate checks an edit of an existing ride. A fully booked ride
// stays editable, so 0 <= seats_available <= total_seats.
func ValidateRideUpdate(in model.RideInput) error {
	f := rideFields(in)
	if in.SeatsAvailable < 0 {
		f.add("seats_available", "Ensure this value is greater than or equal to 0.")
	} else if in.SeatsAvailable > in.TotalSeats {
		f.add("non_field_errors", "Available seats cannot exceed total seats")
	}
	return f.err()
}

// rideFields holds the checks shared by create and update.
func rideFields(in model.RideInput) fieldErrors {
	f := fieldErrors{}
	if strings.TrimSpace(in.Origin) == "" {
		f.add("origin", "This field may not be blank.")
	}
	if strings.TrimSpace(in.Destination) == "" {
		f.add("destination", "This field may not be blank.")
	}
	if in.DepartureTime.IsZero() {
		f.add("departure_time", "This field is required.")
	}
	if in.ArrivalTime != nil && !in.ArrivalTime.After(in.DepartureTime) {
		f.add("arrival_time", "Arrival time must be after departure time")
	}
	if in.Price < 0 {
		f.add("non_field_errors", "Price cannot be negative")
	}
	if in.TotalSeats < 1 {
		f.add("total_seats", "Ensure this value is greater than or equal to 1.")
	}
	return f
}

// ValidateReview checks the rating range and the target.
func ValidateReview(in model.ReviewInput) error {
	f := fieldErrors{}
	if in.RideID <= 0 {
		f.add("ride", "This field is required.")
	}
	if in.RevieweeID <= 0 {
		f.add("reviewee", "This field is required.")
	}
	if in.Rating < 1 || in.Rating > 5 {
		f.add("rating", "Rating must be between 1 and 5")
	}
	return f.err()
}
