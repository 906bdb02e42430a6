// Package convert maps backend JSON shapes to model entities and back.
//
// The backend serialises the same entity in several shapes (full and compact
// rides, "ride" vs "ride_info", paginated vs bare lists, decimals as
// strings). Everything is normalised here so nothing downstream sees the
// difference.
package convert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/and161185/rideshare/internal/model"
)

// Decimal decodes a JSON number, a quoted decimal ("25.00") or null.
// It encodes as a quoted two-place decimal, as the backend does.
type Decimal float64

// UnmarshalJSON implements json.Unmarshaler.
func (d *Decimal) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*d = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*d = 0
			return nil
		}
		b = []byte(s)
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("decimal %q: %w", b, err)
	}
	*d = Decimal(f)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatFloat(float64(d), 'f', 2, 64))
}

// Ref decodes either a bare id or an object carrying an "id" field.
type Ref struct {
	ID     int64
	Object json.RawMessage // set when the payload was an object
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Ref) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*r = Ref{}
		return nil
	case b[0] == '{':
		var obj struct {
			ID int64 `json:"id"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		r.ID = obj.ID
		r.Object = append(json.RawMessage(nil), b...)
		return nil
	}
	return json.Unmarshal(b, &r.ID)
}

// MarshalJSON implements json.Marshaler.
func (r Ref) MarshalJSON() ([]byte, error) {
	if len(r.Object) > 0 {
		return r.Object, nil
	}
	if r.ID == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(r.ID)
}

// User is the wire shape of both the full and public user serializers.
type User struct {
	ID            int64      `json:"id"`
	Email         string     `json:"email,omitempty"`
	Username      string     `json:"username,omitempty"`
	FirstName     string     `json:"first_name,omitempty"`
	LastName      string     `json:"last_name,omitempty"`
	FullName      string     `json:"full_name,omitempty"`
	Avatar        *string    `json:"avatar"`
	Bio           string     `json:"bio,omitempty"`
	PhoneNumber   string     `json:"phone_number,omitempty"`
	Location      string     `json:"location,omitempty"`
	IsVerified    bool       `json:"is_verified"`
	Rating        Decimal    `json:"rating"`
	ReviewsCount  int        `json:"reviews_count"`
	RidesGiven    int        `json:"rides_given"`
	RidesTaken    int        `json:"rides_taken,omitempty"`
	TotalDistance Decimal    `json:"total_distance,omitempty"`
	TotalEarnings Decimal    `json:"total_earnings,omitempty"`
	DateJoined    *time.Time `json:"date_joined,omitempty"`
}

// RideInfo is the compact ride shape embedded in bookings and reviews.
type RideInfo struct {
	ID            int64     `json:"id"`
	Origin        string    `json:"origin"`
	Destination   string    `json:"destination"`
	DepartureTime time.Time `json:"departure_time"`
}

// Car is the wire shape of a driver's car.
type Car struct {
	ID           int64   `json:"id,omitempty"`
	Make         string  `json:"make"`
	Model        string  `json:"model"`
	Color        string  `json:"color"`
	Year         *int    `json:"year"`
	LicensePlate string  `json:"license_plate"`
	CarImage     *string `json:"car_image"`
}

// Ride covers both the list and the detail ride serializers.
type Ride struct {
	ID                 int64              `json:"id"`
	Driver             *User              `json:"driver,omitempty"`
	Origin             string             `json:"origin"`
	OriginAddress      string             `json:"origin_address,omitempty"`
	Destination        string             `json:"destination"`
	DestinationAddress string             `json:"destination_address,omitempty"`
	DepartureTime      time.Time          `json:"departure_time"`
	ArrivalTime        *time.Time         `json:"arrival_time,omitempty"`
	Price              Decimal            `json:"price"`
	SeatsAvailable     int                `json:"seats_available"`
	TotalSeats         int                `json:"total_seats"`
	SeatsBooked        int                `json:"seats_booked"`
	IsFull             bool               `json:"is_full"`
	Description        string             `json:"description,omitempty"`
	Status             string             `json:"status"`
	InstantBooking     bool               `json:"instant_booking"`
	Preferences        *model.Preferences `json:"preferences,omitempty"`
	Car                *Car               `json:"car,omitempty"`
}

// Booking covers the full (nested "ride") and compact ("ride_info") shapes.
type Booking struct {
	ID        int64      `json:"id"`
	Ride      *Ride      `json:"ride,omitempty"`
	RideInfo  *RideInfo  `json:"ride_info,omitempty"`
	Passenger *User      `json:"passenger,omitempty"`
	Seats     int        `json:"seats"`
	Status    string     `json:"status"`
	Message   string     `json:"message,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Notification covers the list and detail notification serializers.
type Notification struct {
	ID               int64     `json:"id"`
	NotificationType string    `json:"notification_type"`
	Title            string    `json:"title"`
	Message          string    `json:"message"`
	SenderName       string    `json:"sender_name,omitempty"`
	SenderAvatar     *string   `json:"sender_avatar,omitempty"`
	Sender           *User     `json:"sender,omitempty"`
	Ride             Ref       `json:"ride"`
	Booking          Ref       `json:"booking"`
	IsRead           bool      `json:"is_read"`
	CreatedAt        time.Time `json:"created_at"`
}

// Review covers the full and list review serializers.
type Review struct {
	ID        int64     `json:"id"`
	Ride      Ref       `json:"ride,omitempty"`
	RideInfo  *RideInfo `json:"ride_info,omitempty"`
	Reviewer  *User     `json:"reviewer,omitempty"`
	Reviewee  *User     `json:"reviewee,omitempty"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// LoginResponse is returned by /users/login/.
type LoginResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    *User  `json:"user,omitempty"`
}

// RefreshResponse is returned by /users/token/refresh/.
type RefreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// RegisterResponse is returned by /users/register/.
type RegisterResponse struct {
	User    *User  `json:"user"`
	Message string `json:"message"`
}

// UnreadCount is returned by /notifications/unread-count/.
type UnreadCount struct {
	Count int `json:"count"`
}

// MessageResponse is the generic {"message": "..."} body.
type MessageResponse struct {
	Message string `json:"message"`
}

// Page is the paginated list envelope.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// DecodeList decodes either a bare JSON array or a Page envelope.
func DecodeList[T any](raw []byte) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []T{}, nil
	}
	if raw[0] == '[' {
		var out []T
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, err
		}
		return out, nil
	}
	var p Page[T]
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	if p.Results == nil {
		return []T{}, nil
	}
	return p.Results, nil
}
