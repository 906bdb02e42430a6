// Package model defines the client's copies of backend entities. The backend
// owns every entity; values here are the result of the last fetch.
package model

import "time"

// Session is the client's record of the authenticated user and credentials.
type Session struct {
	User         *User
	Token        string
	RefreshToken string
	Loading      bool // initial resolution still in flight
}

// Authenticated reports whether the session holds a resolved user.
func (s Session) Authenticated() bool { return !s.Loading && s.User != nil }

// User is a profile as returned by /users/me/ or /users/{id}/.
type User struct {
	ID            int64      `json:"id"`
	Email         string     `json:"email"`
	Username      string     `json:"username"`
	FirstName     string     `json:"first_name"`
	LastName      string     `json:"last_name"`
	FullName      string     `json:"full_name"`
	Avatar        string     `json:"avatar,omitempty"`
	Bio           string     `json:"bio,omitempty"`
	PhoneNumber   string     `json:"phone_number,omitempty"`
	Location      string     `json:"location,omitempty"`
	IsVerified    bool       `json:"is_verified"`
	Rating        float64    `json:"rating"`
	ReviewsCount  int        `json:"reviews_count"`
	RidesGiven    int        `json:"rides_given"`
	RidesTaken    int        `json:"rides_taken"`
	TotalDistance float64    `json:"total_distance"`
	TotalEarnings float64    `json:"total_earnings"`
	DateJoined    *time.Time `json:"date_joined,omitempty"`
}

// DisplayName prefers the full name, then first/last, then username, then email.
func (u *User) DisplayName() string {
	switch {
	case u == nil:
		return ""
	case u.FullName != "":
		return u.FullName
	case u.FirstName != "" || u.LastName != "":
		if u.LastName == "" {
			return u.FirstName
		}
		if u.FirstName == "" {
			return u.LastName
		}
		return u.FirstName + " " + u.LastName
	case u.Username != "":
		return u.Username
	}
	return u.Email
}

// UserStats is the public statistics block for a user.
type UserStats struct {
	ID            int64      `json:"id"`
	FullName      string     `json:"full_name"`
	Avatar        string     `json:"avatar,omitempty"`
	Rating        float64    `json:"rating"`
	ReviewsCount  int        `json:"reviews_count"`
	RidesGiven    int        `json:"rides_given"`
	RidesTaken    int        `json:"rides_taken"`
	TotalDistance float64    `json:"total_distance"`
	DateJoined    *time.Time `json:"date_joined,omitempty"`
}

// RideStatus is the server-driven lifecycle of a ride.
type RideStatus string

const (
	RideUpcoming   RideStatus = "upcoming"
	RideInProgress RideStatus = "in_progress"
	RideCompleted  RideStatus = "completed"
	RideCancelled  RideStatus = "cancelled"
)

// Ride is a driver-published trip offer.
type Ride struct {
	ID                 int64        `json:"id"`
	Driver             *User        `json:"driver,omitempty"`
	Origin             string       `json:"origin"`
	OriginAddress      string       `json:"origin_address,omitempty"`
	Destination        string       `json:"destination"`
	DestinationAddress string       `json:"destination_address,omitempty"`
	DepartureTime      time.Time    `json:"departure_time"`
	ArrivalTime        *time.Time   `json:"arrival_time,omitempty"`
	Price              float64      `json:"price"`
	SeatsAvailable     int          `json:"seats_available"`
	TotalSeats         int          `json:"total_seats"`
	SeatsBooked        int          `json:"seats_booked"`
	IsFull             bool         `json:"is_full"`
	Description        string       `json:"description,omitempty"`
	Status             RideStatus   `json:"status"`
	InstantBooking     bool         `json:"instant_booking"`
	Preferences        *Preferences `json:"preferences,omitempty"`
	Car                *Car         `json:"car,omitempty"`
}

// Bookable reports whether a booking request for seats may be issued at all.
func (r *Ride) Bookable(seats int) bool {
	if r == nil || seats < 1 {
		return false
	}
	if r.Status != "" && r.Status != RideUpcoming {
		return false
	}
	return r.SeatsAvailable > 0 && seats <= r.SeatsAvailable
}

// DrivenBy reports whether the ride's driver is the given user.
func (r *Ride) DrivenBy(userID int64) bool {
	return r != nil && r.Driver != nil && r.Driver.ID == userID
}

// Preferences are per-ride comfort settings.
type Preferences struct {
	SmokingAllowed bool `json:"smoking_allowed"`
	PetsAllowed    bool `json:"pets_allowed"`
	MusicAllowed   bool `json:"music_allowed"`
	ChatAllowed    bool `json:"chat_allowed"`
}

// Car is the single car record of a driver.
type Car struct {
	ID           int64  `json:"id,omitempty"`
	Make         string `json:"make"`
	Model        string `json:"model"`
	Color        string `json:"color,omitempty"`
	Year         int    `json:"year,omitempty"`
	LicensePlate string `json:"license_plate,omitempty"`
	Image        string `json:"car_image,omitempty"`
}

// Booking is a passenger's request to occupy seats on a ride.
type Booking struct {
	ID        int64         `json:"id"`
	Ride      *Ride         `json:"ride,omitempty"`
	Passenger *User         `json:"passenger,omitempty"`
	Seats     int           `json:"seats"`
	Message   string        `json:"message,omitempty"`
	Status    BookingStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt *time.Time    `json:"updated_at,omitempty"`
}

// RideID returns the owning ride id, or 0.
func (b *Booking) RideID() int64 {
	if b == nil || b.Ride == nil {
		return 0
	}
	return b.Ride.ID
}

// NotificationType classifies server-generated notifications.
type NotificationType string

const (
	NotifRideRequest      NotificationType = "ride_request"
	NotifRequestAccepted  NotificationType = "request_accepted"
	NotifRequestDeclined  NotificationType = "request_declined"
	NotifRideCancelled    NotificationType = "ride_cancelled"
	NotifBookingCancelled NotificationType = "booking_cancelled"
)

// Notification is created server-side on booking events.
type Notification struct {
	ID           int64            `json:"id"`
	Type         NotificationType `json:"notification_type"`
	Title        string           `json:"title"`
	Message      string           `json:"message"`
	SenderName   string           `json:"sender_name,omitempty"`
	SenderAvatar string           `json:"sender_avatar,omitempty"`
	RideID       int64            `json:"ride,omitempty"`
	BookingID    int64            `json:"booking,omitempty"`
	IsRead       bool             `json:"is_read"`
	CreatedAt    time.Time        `json:"created_at"`
}

// Review is a rating left by one ride participant for another.
type Review struct {
	ID        int64     `json:"id"`
	RideID    int64     `json:"ride,omitempty"`
	Ride      *Ride     `json:"ride_info,omitempty"`
	Reviewer  *User     `json:"reviewer,omitempty"`
	Reviewee  *User     `json:"reviewee,omitempty"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
