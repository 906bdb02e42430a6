package convert

import (
	"strings"

	"github.com/and161185/rideshare/internal/model"
)

// ToUser converts a wire user; nil stays nil.
func ToUser(u *User) *model.User {
	if u == nil {
		return nil
	}
	return &model.User{
		ID:            u.ID,
		Email:         u.Email,
		Username:      u.Username,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		FullName:      u.FullName,
		Avatar:        deref(u.Avatar),
		Bio:           u.Bio,
		PhoneNumber:   u.PhoneNumber,
		Location:      u.Location,
		IsVerified:    u.IsVerified,
		Rating:        float64(u.Rating),
		ReviewsCount:  u.ReviewsCount,
		RidesGiven:    u.RidesGiven,
		RidesTaken:    u.RidesTaken,
		TotalDistance: float64(u.TotalDistance),
		TotalEarnings: float64(u.TotalEarnings),
		DateJoined:    u.DateJoined,
	}
}

// ToUserStats converts the stats shape (same wire type as a user).
func ToUserStats(u *User) model.UserStats {
	if u == nil {
		return model.UserStats{}
	}
	return model.UserStats{
		ID:            u.ID,
		FullName:      u.FullName,
		Avatar:        deref(u.Avatar),
		Rating:        float64(u.Rating),
		ReviewsCount:  u.ReviewsCount,
		RidesGiven:    u.RidesGiven,
		RidesTaken:    u.RidesTaken,
		TotalDistance: float64(u.TotalDistance),
		DateJoined:    u.DateJoined,
	}
}

// ToCar converts a wire car; nil stays nil.
func ToCar(c *Car) *model.Car {
	if c == nil {
		return nil
	}
	out := &model.Car{
		ID:           c.ID,
		Make:         c.Make,
		Model:        c.Model,
		Color:        c.Color,
		LicensePlate: c.LicensePlate,
		Image:        deref(c.CarImage),
	}
	if c.Year != nil {
		out.Year = *c.Year
	}
	return out
}

// ToRide converts either ride serializer shape.
func ToRide(r *Ride) *model.Ride {
	if r == nil {
		return nil
	}
	out := &model.Ride{
		ID:                 r.ID,
		Driver:             ToUser(r.Driver),
		Origin:             r.Origin,
		OriginAddress:      r.OriginAddress,
		Destination:        r.Destination,
		DestinationAddress: r.DestinationAddress,
		DepartureTime:      r.DepartureTime,
		ArrivalTime:        r.ArrivalTime,
		Price:              float64(r.Price),
		SeatsAvailable:     r.SeatsAvailable,
		TotalSeats:         r.TotalSeats,
		SeatsBooked:        r.SeatsBooked,
		IsFull:             r.IsFull,
		Description:        r.Description,
		Status:             rideStatus(r.Status),
		InstantBooking:     r.InstantBooking,
		Car:                ToCar(r.Car),
	}
	if r.Preferences != nil {
		p := *r.Preferences
		out.Preferences = &p
	}
	if out.SeatsBooked == 0 && out.TotalSeats > out.SeatsAvailable {
		out.SeatsBooked = out.TotalSeats - out.SeatsAvailable
	}
	if !out.IsFull && out.TotalSeats > 0 && out.SeatsAvailable == 0 {
		out.IsFull = true
	}
	return out
}

// rideInfo lifts the compact shape into a partial ride.
func rideInfo(ri *RideInfo) *model.Ride {
	if ri == nil {
		return nil
	}
	return &model.Ride{
		ID:            ri.ID,
		Origin:        ri.Origin,
		Destination:   ri.Destination,
		DepartureTime: ri.DepartureTime,
	}
}

// ToBooking converts either booking shape. A nested "ride" wins over
// "ride_info" since it carries more.
func ToBooking(b *Booking) *model.Booking {
	if b == nil {
		return nil
	}
	out := &model.Booking{
		ID:        b.ID,
		Passenger: ToUser(b.Passenger),
		Seats:     b.Seats,
		Message:   b.Message,
		Status:    bookingStatus(b.Status),
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
	switch {
	case b.Ride != nil:
		out.Ride = ToRide(b.Ride)
	case b.RideInfo != nil:
		out.Ride = rideInfo(b.RideInfo)
	}
	return out
}

// ToNotification converts either notification shape.
func ToNotification(n *Notification) *model.Notification {
	if n == nil {
		return nil
	}
	out := &model.Notification{
		ID:           n.ID,
		Type:         model.NotificationType(n.NotificationType),
		Title:        n.Title,
		Message:      n.Message,
		SenderName:   n.SenderName,
		SenderAvatar: deref(n.SenderAvatar),
		RideID:       n.Ride.ID,
		BookingID:    n.Booking.ID,
		IsRead:       n.IsRead,
		CreatedAt:    n.CreatedAt,
	}
	if out.SenderName == "" && n.Sender != nil {
		out.SenderName = ToUser(n.Sender).DisplayName()
		out.SenderAvatar = deref(n.Sender.Avatar)
	}
	return out
}

// ToReview converts either review shape.
func ToReview(r *Review) *model.Review {
	if r == nil {
		return nil
	}
	out := &model.Review{
		ID:        r.ID,
		RideID:    r.Ride.ID,
		Ride:      rideInfo(r.RideInfo),
		Reviewer:  ToUser(r.Reviewer),
		Reviewee:  ToUser(r.Reviewee),
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
	}
	if out.RideID == 0 && out.Ride != nil {
		out.RideID = out.Ride.ID
	}
	return out
}

// ToBookings converts a list.
func ToBookings(in []Booking) []model.Booking {
	out := make([]model.Booking, 0, len(in))
	for i := range in {
		out = append(out, *ToBooking(&in[i]))
	}
	return out
}

// ToRides converts a list.
func ToRides(in []Ride) []model.Ride {
	out := make([]model.Ride, 0, len(in))
	for i := range in {
		out = append(out, *ToRide(&in[i]))
	}
	return out
}

// ToNotifications converts a list.
func ToNotifications(in []Notification) []model.Notification {
	out := make([]model.Notification, 0, len(in))
	for i := range in {
		out = append(out, *ToNotification(&in[i]))
	}
	return out
}

// ToReviews converts a list.
func ToReviews(in []Review) []model.Review {
	out := make([]model.Review, 0, len(in))
	for i := range in {
		out = append(out, *ToReview(&in[i]))
	}
	return out
}

func rideStatus(s string) model.RideStatus {
	return model.RideStatus(strings.ToLower(strings.TrimSpace(s)))
}

// bookingStatus normalises case and accepts the "rejected" and "canceled"
// spellings as aliases.
func bookingStatus(s string) model.BookingStatus {
	switch st := model.BookingStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case "rejected":
		return model.BookingDeclined
	case "canceled":
		return model.BookingCancelled
	default:
		return st
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
