package model

import "time"

// RegisterInput is the account creation form.
type RegisterInput struct {
	Email           string `json:"email"`
	Username        string `json:"username"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	PhoneNumber     string `json:"phone_number,omitempty"`
	Location        string `json:"location,omitempty"`
}

// Tokens is the credential pair issued on login.
type Tokens struct {
	Access  string
	Refresh string
}

// ProfileUpdate carries the editable profile fields. Nil means unchanged.
type ProfileUpdate struct {
	FirstName   *string `json:"first_name,omitempty"`
	LastName    *string `json:"last_name,omitempty"`
	Bio         *string `json:"bio,omitempty"`
	PhoneNumber *string `json:"phone_number,omitempty"`
	Location    *string `json:"location,omitempty"`
}

// Empty reports whether nothing would change.
func (p ProfileUpdate) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Bio == nil && p.PhoneNumber == nil && p.Location == nil
}

// RideInput is the publish/edit ride form.
type RideInput struct {
	Origin             string       `json:"origin"`
	OriginAddress      string       `json:"origin_address,omitempty"`
	Destination        string       `json:"destination"`
	DestinationAddress string       `json:"destination_address,omitempty"`
	DepartureTime      time.Time    `json:"departure_time"`
	ArrivalTime        *time.Time   `json:"arrival_time,omitempty"`
	Price              float64      `json:"price"`
	SeatsAvailable     int          `json:"seats_available"`
	TotalSeats         int          `json:"total_seats"`
	Description        string       `json:"description,omitempty"`
	InstantBooking     bool         `json:"instant_booking"`
	Preferences        *Preferences `json:"preferences,omitempty"`
}

// CarInput is the car profile form. Year 0 leaves it unset.
type CarInput struct {
	Make         string `json:"make"`
	Model        string `json:"model"`
	Color        string `json:"color,omitempty"`
	Year         int    `json:"year,omitempty"`
	LicensePlate string `json:"license_plate,omitempty"`
}

// BookingInput is a passenger's request for seats.
type BookingInput struct {
	RideID  int64  `json:"ride"`
	Seats   int    `json:"seats"`
	Message string `json:"message,omitempty"`
}

// ReviewInput is the review form.
type ReviewInput struct {
	RideID     int64  `json:"ride"`
	RevieweeID int64  `json:"reviewee"`
	Rating     int    `json:"rating"`
	Comment    string `json:"comment,omitempty"`
}

// RideFilter holds ride search and list filters. Zero values are omitted.
type RideFilter struct {
	Origin             string
	Destination        string
	DepartureDate      string // YYYY-MM-DD
	DepartureDateAfter string // YYYY-MM-DD
	MinPrice           *float64
	MaxPrice           *float64
	MinSeats           int
	InstantBooking     *bool
	Status             RideStatus
	Page               int
}

// BookingRole selects which side of a booking the caller is on.
type BookingRole string

const (
	AsPassenger BookingRole = "passenger"
	AsDriver    BookingRole = "driver"
)

// BookingFilter holds the /bookings/ list filters.
type BookingFilter struct {
	As     BookingRole
	Status BookingStatus
	RideID int64
}

// NotificationFilter holds the /notifications/ list filters.
type NotificationFilter struct {
	Type     NotificationType
	IsRead   *bool
	PageSize int
	Page     int
}

// ReviewFilter holds the /reviews/ list filters.
type ReviewFilter struct {
	UserID     int64 // reviewee
	RideID     int64
	ReviewerID int64
}
