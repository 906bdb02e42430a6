package convert

import "github.com/and161185/rideshare/internal/model"

// FromUser renders a user in wire shape. Public drops private profile fields.
func FromUser(u *model.User, public bool) *User {
	if u == nil {
		return nil
	}
	out := &User{
		ID:           u.ID,
		Email:        u.Email,
		Username:     u.Username,
		FullName:     u.FullName,
		Avatar:       ptr(u.Avatar),
		PhoneNumber:  u.PhoneNumber,
		IsVerified:   u.IsVerified,
		Rating:       Decimal(u.Rating),
		ReviewsCount: u.ReviewsCount,
		RidesGiven:   u.RidesGiven,
	}
	if public {
		return out
	}
	out.FirstName = u.FirstName
	out.LastName = u.LastName
	out.Bio = u.Bio
	out.Location = u.Location
	out.RidesTaken = u.RidesTaken
	out.TotalDistance = Decimal(u.TotalDistance)
	out.TotalEarnings = Decimal(u.TotalEarnings)
	out.DateJoined = u.DateJoined
	return out
}

// FromCar renders a car in wire shape.
func FromCar(c *model.Car) *Car {
	if c == nil {
		return nil
	}
	out := &Car{
		ID:           c.ID,
		Make:         c.Make,
		Model:        c.Model,
		Color:        c.Color,
		LicensePlate: c.LicensePlate,
		CarImage:     ptr(c.Image),
	}
	if c.Year != 0 {
		y := c.Year
		out.Year = &y
	}
	return out
}

// FromRide renders a ride. Detail adds addresses, description, preferences
// and car; otherwise the compact list shape is produced.
func FromRide(r *model.Ride, detail bool) *Ride {
	if r == nil {
		return nil
	}
	out := &Ride{
		ID:             r.ID,
		Driver:         FromUser(r.Driver, true),
		Origin:         r.Origin,
		Destination:    r.Destination,
		DepartureTime:  r.DepartureTime,
		Price:          Decimal(r.Price),
		SeatsAvailable: r.SeatsAvailable,
		TotalSeats:     r.TotalSeats,
		SeatsBooked:    r.TotalSeats - r.SeatsAvailable,
		IsFull:         r.SeatsAvailable == 0,
		Status:         string(r.Status),
		InstantBooking: r.InstantBooking,
	}
	if !detail {
		return out
	}
	out.OriginAddress = r.OriginAddress
	out.DestinationAddress = r.DestinationAddress
	out.ArrivalTime = r.ArrivalTime
	out.Description = r.Description
	if r.Preferences != nil {
		p := *r.Preferences
		out.Preferences = &p
	}
	out.Car = FromCar(r.Car)
	return out
}

// FromBooking renders a booking. Compact uses the "ride_info" shape.
func FromBooking(b *model.Booking, compact bool) *Booking {
	if b == nil {
		return nil
	}
	out := &Booking{
		ID:        b.ID,
		Passenger: FromUser(b.Passenger, true),
		Seats:     b.Seats,
		Status:    string(b.Status),
		CreatedAt: b.CreatedAt,
	}
	if compact {
		if b.Ride != nil {
			out.RideInfo = &RideInfo{
				ID:            b.Ride.ID,
				Origin:        b.Ride.Origin,
				Destination:   b.Ride.Destination,
				DepartureTime: b.Ride.DepartureTime,
			}
		}
		return out
	}
	out.Ride = FromRide(b.Ride, false)
	out.Message = b.Message
	out.UpdatedAt = b.UpdatedAt
	return out
}

// FromNotification renders the compact list shape.
func FromNotification(n *model.Notification) *Notification {
	if n == nil {
		return nil
	}
	return &Notification{
		ID:               n.ID,
		NotificationType: string(n.Type),
		Title:            n.Title,
		Message:          n.Message,
		SenderName:       n.SenderName,
		SenderAvatar:     ptr(n.SenderAvatar),
		Ride:             Ref{ID: n.RideID},
		Booking:          Ref{ID: n.BookingID},
		IsRead:           n.IsRead,
		CreatedAt:        n.CreatedAt,
	}
}

// FromReview renders the full review shape.
func FromReview(r *model.Review) *Review {
	if r == nil {
		return nil
	}
	out := &Review{
		ID:        r.ID,
		Ride:      Ref{ID: r.RideID},
		Reviewer:  FromUser(r.Reviewer, true),
		Reviewee:  FromUser(r.Reviewee, true),
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
	}
	if r.Ride != nil {
		out.RideInfo = &RideInfo{
			ID:            r.Ride.ID,
			Origin:        r.Ride.Origin,
			Destination:   r.Ride.Destination,
			DepartureTime: r.Ride.DepartureTime,
		}
	}
	return out
}
