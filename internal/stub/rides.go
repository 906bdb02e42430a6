package stub

import (
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/and161185/rideshare/internal/convert"
	"github.com/and161185/rideshare/internal/errs"
	"github.com/and161185/rideshare/internal/model"
	"github.com/and161185/rideshare/internal/service"
)

const dateLayout = "2006-01-02"

// rideView renders a ride with its driver and car. mu must be held.
func (s *Server) rideView(r *ride) *model.Ride {
	out := r.Ride
	out.Driver = s.userView(r.driverID)
	if c, ok := s.cars[r.driverID]; ok {
		cc := *c
		out.Car = &cc
	}
	out.SeatsBooked = out.TotalSeats - out.SeatsAvailable
	out.IsFull = out.SeatsAvailable == 0
	if r.Preferences != nil {
		p := *r.Preferences
		out.Preferences = &p
	}
	return &out
}

type rideQuery struct {
	origin, destination string
	onDate, afterDate   *time.Time
	minPrice, maxPrice  *float64
	minSeats            *int
	instant             *bool
	status              model.RideStatus
}

func parseRideQuery(q url.Values) (rideQuery, map[string][]string) {
	var (
		f      rideQuery
		fields = map[string][]string{}
	)
	f.origin = strings.ToLower(strings.TrimSpace(q.Get("origin")))
	f.destination = strings.ToLower(strings.TrimSpace(q.Get("destination")))
	date := func(k string) *time.Time {
		v := q.Get(k)
		if v == "" {
			return nil
		}
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			fields[k] = []string{"Enter a valid date."}
			return nil
		}
		return &t
	}
	num := func(k string) *float64 {
		v := q.Get(k)
		if v == "" {
			return nil
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			fields[k] = []string{"Enter a number."}
			return nil
		}
		return &n
	}
	f.onDate = date("departure_date")
	f.afterDate = date("departure_date_after")
	f.minPrice = num("min_price")
	f.maxPrice = num("max_price")
	if ms := num("min_seats"); ms != nil {
		n := int(*ms)
		f.minSeats = &n
	}
	if v := q.Get("instant_booking"); v != "" {
		b := strings.EqualFold(v, "true") || v == "1"
		f.instant = &b
	}
	if v := q.Get("status"); v != "" {
		switch st := model.RideStatus(v); st {
		case model.RideUpcoming, model.RideInProgress, model.RideCompleted, model.RideCancelled:
			f.status = st
		default:
			fields["status"] = []string{"Select a valid choice. " + v + " is not one of the available choices."}
		}
	}
	return f, fields
}

func (f rideQuery) match(r *ride) bool {
	day := func(t time.Time) time.Time {
		y, m, d := t.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	switch {
	case f.origin != "" && !strings.Contains(strings.ToLower(r.Origin), f.origin):
		return false
	case f.destination != "" && !strings.Contains(strings.ToLower(r.Destination), f.destination):
		return false
	case f.onDate != nil && !day(r.DepartureTime).Equal(*f.onDate):
		return false
	case f.afterDate != nil && day(r.DepartureTime).Before(*f.afterDate):
		return false
	case f.minPrice != nil && r.Price < *f.minPrice:
		return false
	case f.maxPrice != nil && r.Price > *f.maxPrice:
		return false
	case f.minSeats != nil && r.SeatsAvailable < *f.minSeats:
		return false
	case f.instant != nil && r.InstantBooking != *f.instant:
		return false
	case f.status != "" && r.Status != f.status:
		return false
	}
	return true
}

// findRides returns the wire list shape of matching rides, ordered by
// departure (descending when desc).
func (s *Server) findRides(keep func(*ride) bool, desc bool) []convert.Ride {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := make([]*ride, 0, len(s.rides))
	for _, r := range s.rides {
		if keep(r) {
			matched = append(matched, r)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i].DepartureTime, matched[j].DepartureTime
		if a.Equal(b) {
			return matched[i].ID < matched[j].ID
		}
		if desc {
			return a.After(b)
		}
		return a.Before(b)
	})
	out := make([]convert.Ride, 0, len(matched))
	for _, r := range matched {
		out = append(out, *convert.FromRide(s.rideView(r), false))
	}
	return out
}

func (s *Server) listRides(w http.ResponseWriter, r *http.Request) {
	f, bad := parseRideQuery(r.URL.Query())
	if len(bad) > 0 {
		writeJSON(w, http.StatusBadRequest, bad)
		return
	}
	desc := r.URL.Query().Get("ordering") != "departure_time"
	paginate(w, r, s.findRides(f.match, desc), 0)
}

func (s *Server) searchRides(w http.ResponseWriter, r *http.Request) {
	f, bad := parseRideQuery(r.URL.Query())
	if len(bad) > 0 {
		writeJSON(w, http.StatusBadRequest, bad)
		return
	}
	keep := func(rd *ride) bool { return rd.Status == model.RideUpcoming && f.match(rd) }
	paginate(w, r, s.findRides(keep, false), 0)
}

func (s *Server) myRides(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserIDFromCtx(r.Context())
	writeJSON(w, http.StatusOK, s.findRides(func(rd *ride) bool { return rd.driverID == uid }, true))
}

func (s *Server) getRide(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	rd, found := s.rides[id]
	var out *convert.Ride
	if found {
		out = convert.FromRide(s.rideView(rd), true)
	}
	s.mu.Unlock()
	if !found {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

var defaultPreferences = model.Preferences{MusicAllowed: true, ChatAllowed: true}

func validationFields(err error) map[string][]string {
	var ae *errs.APIError
	if errors.As(err, &ae) {
		return ae.Fields
	}
	return nonField(err.Error())
}

func (s *Server) createRide(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserIDFromCtx(r.Context())
	var in model.RideInput
	if !decode(w, r, &in) {
		return
	}
	if err := service.ValidateRide(in); err != nil {
		writeJSON(w, http.StatusBadRequest, validationFields(err))
		return
	}

	s.mu.Lock()
	id := s.addRide(uid, in)
	out := convert.FromRide(s.rideView(s.rides[id]), true)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, out)
}

// addRide must be called with mu held.
func (s *Server) addRide(driverID int64, in model.RideInput) int64 {
	prefs := defaultPreferences
	if in.Preferences != nil {
		prefs = *in.Preferences
	}
	rd := &ride{driverID: driverID, createdAt: s.now()}
	rd.ID = s.nextID()
	rd.Status = model.RideUpcoming
	applyRideInput(rd, in)
	rd.Preferences = &prefs
	s.rides[rd.ID] = rd
	return rd.ID
}

func applyRideInput(rd *ride, in model.RideInput) {
	rd.Origin = in.Origin
	rd.OriginAddress = in.OriginAddress
	rd.Destination = in.Destination
	rd.DestinationAddress = in.DestinationAddress
	rd.DepartureTime = in.DepartureTime.UTC()
	rd.ArrivalTime = nil
	if in.ArrivalTime != nil {
		at := in.ArrivalTime.UTC()
		rd.ArrivalTime = &at
	}
	rd.Price = in.Price
	rd.SeatsAvailable = in.SeatsAvailable
	rd.TotalSeats = in.TotalSeats
	rd.Description = in.Description
	rd.InstantBooking = in.InstantBooking
	if in.Preferences != nil {
		p := *in.Preferences
		rd.Preferences = &p
	}
}

func inputFromRide(rd *ride) model.RideInput {
	in := model.RideInput{
		Origin:             rd.Origin,
		OriginAddress:      rd.OriginAddress,
		Destination:        rd.Destination,
		DestinationAddress: rd.DestinationAddress,
		DepartureTime:      rd.DepartureTime,
		ArrivalTime:        rd.ArrivalTime,
		Price:              rd.Price,
		SeatsAvailable:     rd.SeatsAvailable,
		TotalSeats:         rd.TotalSeats,
		Description:        rd.Description,
		InstantBooking:     rd.InstantBooking,
	}
	if rd.Preferences != nil {
		p := *rd.Preferences
		in.Preferences = &p
	}
	return in
}

// updateRide serves PUT and PATCH: the body is applied over the current
// values, so omitted fields keep them.
func (s *Server) updateRide(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserIDFromCtx(r.Context())
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	rd, found := s.rides[id]
	var in model.RideInput
	if found {
		in = inputFromRide(rd)
	}
	s.mu.Unlock()
	switch {
	case !found:
		notFound(w)
		return
	case rd.driverID != uid:
		forbidden(w, "")
		return
	}

	if !decode(w, r, &in) {
		return
	}
	if err := service.ValidateRideUpdate(in); err != nil {
		writeJSON(w, http.StatusBadRequest, validationFields(err))
		return
	}

	s.mu.Lock()
	applyRideInput(rd, in)
	out := convert.FromRide(s.rideView(rd), true)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

// cancelRide marks the ride cancelled; rides are never deleted.
func (s *Server) cancelRide(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserIDFromCtx(r.Context())
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	rd, found := s.rides[id]
	allowed := found && rd.driverID == uid
	if allowed {
		rd.Status = model.RideCancelled
	}
	s.mu.Unlock()
	switch {
	case !found:
		notFound(w)
	case !allowed:
		forbidden(w, "")
	default:
		writeJSON(w, http.StatusOK, convert.MessageResponse{Message: "Ride cancelled successfully"})
	}
}

// carFor returns the user's car, creating an empty one. mu must be held.
func (s *Server) carFor(uid int64) *model.Car {
	c, ok := s.cars[uid]
	if !ok {
		c = &model.Car{ID: s.nextID()}
		s.cars[uid] = c
	}
	return c
}

func (s *Server) getCar(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserIDFromCtx(r.Context())
	s.mu.Lock()
	out := convert.FromCar(s.carFor(uid))
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

type carPatch struct {
	Make         *string `json:"make"`
	Model        *string `json:"model"`
	Color        *string `json:"color"`
	Year         *int    `json:"year"`
	LicensePlate *string `json:"license_plate"`
}

func (s *Server) updateCar(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserIDFromCtx(r.Context())
	var (
		in    carPatch
		image string
	)
	if isMultipart(r) {
		fields, file, err := readMultipart(r, "car_image")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, detail(err.Error()))
			return
		}
		for k, dst := range map[string]**string{"make": &in.Make, "model": &in.Model, "color": &in.Color, "license_plate": &in.LicensePlate} {
			if v, ok := fields[k]; ok {
				*dst = &v
			}
		}
		if v, ok := fields["year"]; ok {
			y, err := strconv.Atoi(v)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string][]string{"year": {"A valid integer is required."}})
				return
			}
			in.Year = &y
		}
		if file != "" {
			image = mediaURL(r, "cars", file)
		}
	} else if !decode(w, r, &in) {
		return
	}
	if in.Year != nil && *in.Year < 0 {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"year": {"Ensure this value is greater than or equal to 0."}})
		return
	}

	s.mu.Lock()
	c := s.carFor(uid)
	for dst, v := range map[*string]*string{&c.Make: in.Make, &c.Model: in.Model, &c.Color: in.Color, &c.LicensePlate: in.LicensePlate} {
		if v != nil {
			*dst = *v
		}
	}
	if in.Year != nil {
		c.Year = *in.Year
	}
	if image != "" {
		c.Image = image
	}
	out := convert.FromCar(c)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}
