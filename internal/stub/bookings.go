package stub

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/and161185/rideshare/internal/convert"
	"github.com/and161185/rideshare/internal/model"
)

// bookingView renders a booking with its ride and passenger. mu must be held.
func (s *Server) bookingView(b *booking) *model.Booking {
	out := &model.Booking{
		ID:        b.id,
		Passenger: s.userView(b.passengerID),
		Seats:     b.seats,
		Message:   b.message,
		Status:    b.status,
		CreatedAt: b.createdAt,
	}
	if !b.updatedAt.IsZero() {
		u := b.updatedAt
		out.UpdatedAt = &u
	}
	if rd, ok := s.rides[b.rideID]; ok {
		out.Ride = s.rideView(rd)
	}
	return out
}

// collectBookings renders matching bookings newest first. mu must not be held.
func (s *Server) collectBookings(keep func(*booking) bool, compact bool) []convert.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := make([]*booking, 0)
	for _, b := range s.bookings {
		if keep(b) {
			matched = append(matched, b)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].id > matched[j].id })
	out := make([]convert.Booking, 0, len(matched))
	for _, b := range matched {
		out = append(out, *convert.FromBooking(s.bookingView(b), compact))
	}
	return out
}

func (s *Server) listBookings(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserIDFromCtx(r.Context())
	q := r.URL.Query()
	asDriver := q.Get("as") == string(model.AsDriver)
	status := model.BookingStatus(q.Get("status"))
	rideID, _ := strconv.ParseInt(q.Get("ride"), 10, 64)

	keep := func(b *booking) bool {
		rd := s.rides[b.rideID]
		if asDriver {
			if rd == nil || rd.driverID != uid {
				return false
			}
		} else if b.passengerID != uid {
			return false
		}
		if status != "" && b.status != status {
			return false
		}
		return rideID == 0 || b.rideID == rideID
	}
	writeJSON(w, http.StatusOK, s.collectBookings(keep, false))
}

func (s *Server) myRequests(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserIDFromCtx(r.Context())
	writeJSON(w, http.StatusOK, s.collectBookings(func(b *booking) bool { return b.passengerID == uid }, false))
}

// rideBookings lists a ride's bookings for its driver; anyone else sees none.
func (s *Server) rideBookings(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserIDFromCtx(r.Context())
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	keep := func(b *booking) bool {
		rd := s.rides[b.rideID]
		return b.rideID == id && rd != nil && rd.driverID == uid
	}
	writeJSON(w, http.StatusOK, s.collectBookings(keep, true))
}

func (s *Server) getBooking(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserIDFromCtx(r.Context())
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	b, found := s.bookings[id]
	var (
		out     *convert.Booking
		allowed bool
	)
	if found {
		rd := s.rides[b.rideID]
		allowed = b.passengerID == uid || (rd != nil && rd.driverID == uid)
		out = convert.FromBooking(s.bookingView(b), false)
	}
	s.mu.Unlock()
	switch {
	case !found:
		notFound(w)
	case !allowed:
		forbidden(w, "")
	default:
		writeJSON(w, http.StatusOK, out)
	}
}

type bookingRequest struct {
	Ride    *int64 `json:"ride"`
	Seats   *int   `json:"seats"`
	Message string `json:"message"`
}

func (s *Server) createBooking(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserIDFromCtx(r.Context())
	var in bookingRequest
	if !decode(w, r, &in) {
		return
	}
	fields := map[string][]string{}
	if in.Ride == nil {
		fields["ride"] = []string{"This field is required."}
	}
	if in.Seats == nil {
		fields["seats"] = []string{"This field is required."}
	} else if *in.Seats < 1 {
		fields["seats"] = []string{"Ensure this value is greater than or equal to 1."}
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, fields)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rd, ok := s.rides[*in.Ride]
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string][]string{
			"ride": {fmt.Sprintf(`Invalid pk "%d" - object does not exist.`, *in.Ride)},
		})
		return
	}
	if msg := s.bookingRefusal(rd, uid, *in.Seats); msg != "" {
		writeJSON(w, http.StatusBadRequest, nonField(msg))
		return
	}

	b := &booking{
		id:          s.nextID(),
		rideID:      rd.ID,
		passengerID: uid,
		seats:       *in.Seats,
		message:     in.Message,
		status:      model.BookingPending,
		createdAt:   s.now(),
	}
	if rd.InstantBooking {
		b.status = model.BookingAccepted
		rd.SeatsAvailable -= b.seats
	}
	s.bookings[b.id] = b

	p := s.userView(uid)
	s.notify(rd.driverID, uid, model.NotifRideRequest, "New Ride Request",
		fmt.Sprintf("%s requested %d seat(s) for your ride from %s to %s.", p.FullName, b.seats, rd.Origin, rd.Destination),
		rd.ID, b.id)

	writeJSON(w, http.StatusCreated, convert.FromBooking(s.bookingView(b), false))
}

// bookingRefusal returns the backend's message for a booking that may not
// be created, or "". mu must be held.
func (s *Server) bookingRefusal(rd *ride, uid int64, seats int) string {
	if rd.Status != model.RideUpcoming {
		return "Cannot book seats on this ride"
	}
	if seats > rd.SeatsAvailable {
		return fmt.Sprintf("Only %d seats available", rd.SeatsAvailable)
	}
	if rd.driverID == uid {
		return "You cannot book your own ride"
	}
	for _, b := range s.bookings {
		if b.rideID == rd.ID && b.passengerID == uid && b.status != model.BookingCancelled {
			return "You already have a booking for this ride"
		}
	}
	return ""
}

// cancelBooking is passenger-only. Cancelling an accepted booking gives the
// seats back and tells the driver.
func (s *Server) cancelBooking(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserIDFromCtx(r.Context())
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, found := s.bookings[id]
	if !found {
		notFound(w)
		return
	}
	rd := s.rides[b.rideID]
	if b.passengerID != uid {
		if rd != nil && rd.driverID == uid {
			forbidden(w, "Only passenger can cancel booking")
			return
		}
		notFound(w)
		return
	}
	if b.status == model.BookingCancelled || b.status == model.BookingDeclined {
		writeJSON(w, http.StatusBadRequest, errorBody("Booking already cancelled or declined"))
		return
	}

	was := b.status
	b.status = model.BookingCancelled
	b.updatedAt = s.now()
	if was == model.BookingAccepted && rd != nil {
		rd.SeatsAvailable = min(rd.SeatsAvailable+b.seats, rd.TotalSeats)
		p := s.userView(uid)
		s.notify(rd.driverID, uid, model.NotifBookingCancelled, "Booking Cancelled",
			fmt.Sprintf("%s cancelled their booking for your ride from %s to %s.", p.FullName, rd.Origin, rd.Destination),
			rd.ID, b.id)
	}
	writeJSON(w, http.StatusOK, convert.MessageResponse{Message: "Booking cancelled successfully"})
}

func (s *Server) acceptBooking(w http.ResponseWriter, r *http.Request) {
	s.decide(w, r, model.BookingAccepted)
}

func (s *Server) declineBooking(w http.ResponseWriter, r *http.Request) {
	s.decide(w, r, model.BookingDeclined)
}

// decide applies a driver decision to a pending booking.
func (s *Server) decide(w http.ResponseWriter, r *http.Request, to model.BookingStatus) {
	uid, _ := UserIDFromCtx(r.Context())
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	verb := "accept"
	if to == model.BookingDeclined {
		verb = "decline"
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	b, found := s.bookings[id]
	if !found {
		notFound(w)
		return
	}
	rd := s.rides[b.rideID]
	if rd == nil || rd.driverID != uid {
		forbidden(w, "Only the driver can "+verb+" bookings")
		return
	}
	if b.status != model.BookingPending {
		writeJSON(w, http.StatusBadRequest, errorBody("Can only "+verb+" pending bookings"))
		return
	}

	if to == model.BookingAccepted {
		if b.seats > rd.SeatsAvailable {
			writeJSON(w, http.StatusBadRequest, errorBody("Not enough seats available"))
			return
		}
		rd.SeatsAvailable -= b.seats
		s.notify(b.passengerID, uid, model.NotifRequestAccepted, "Ride Request Accepted",
			fmt.Sprintf("Your ride request for %s to %s has been accepted!", rd.Origin, rd.Destination),
			rd.ID, b.id)
	} else {
		s.notify(b.passengerID, uid, model.NotifRequestDeclined, "Ride Request Declined",
			fmt.Sprintf("Your ride request for %s to %s was declined.", rd.Origin, rd.Destination),
			rd.ID, b.id)
	}
	b.status = to
	b.updatedAt = s.now()
	writeJSON(w, http.StatusOK, convert.FromBooking(s.bookingView(b), false))
}
