package stub

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/and161185/rideshare/internal/convert"
	"github.com/and161185/rideshare/internal/model"
)

// reviewView renders a review. mu must be held.
func (s *Server) reviewView(rv *review) *convert.Review {
	m := &model.Review{
		ID:        rv.id,
		RideID:    rv.rideID,
		Reviewer:  s.userView(rv.reviewerID),
		Reviewee:  s.userView(rv.revieweeID),
		Rating:    rv.rating,
		Comment:   rv.comment,
		CreatedAt: rv.createdAt,
	}
	if rd, ok := s.rides[rv.rideID]; ok {
		m.Ride = &model.Ride{ID: rd.ID, Origin: rd.Origin, Destination: rd.Destination, DepartureTime: rd.DepartureTime}
	}
	return convert.FromReview(m)
}

func (s *Server) collectReviews(keep func(*review) bool) []convert.Review {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := make([]*review, 0)
	for _, rv := range s.reviews {
		if keep(rv) {
			matched = append(matched, rv)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].id > matched[j].id })
	out := make([]convert.Review, 0, len(matched))
	for _, rv := range matched {
		out = append(out, *s.reviewView(rv))
	}
	return out
}

func (s *Server) listReviews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	param := func(k string) int64 {
		v, _ := strconv.ParseInt(q.Get(k), 10, 64)
		return v
	}
	user, rideID, reviewer := param("user"), param("ride"), param("reviewer")
	writeJSON(w, http.StatusOK, s.collectReviews(func(rv *review) bool {
		return (user == 0 || rv.revieweeID == user) &&
			(rideID == 0 || rv.rideID == rideID) &&
			(reviewer == 0 || rv.reviewerID == reviewer)
	}))
}

func (s *Server) userReviews(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.collectReviews(func(rv *review) bool { return rv.revieweeID == id }))
}

func (s *Server) rideReviews(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.collectReviews(func(rv *review) bool { return rv.rideID == id }))
}

func (s *Server) getReview(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	rv, found := s.reviews[id]
	var out *convert.Review
	if found {
		out = s.reviewView(rv)
	}
	s.mu.Unlock()
	if !found {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// participant reports whether uid drove the ride or holds an accepted
// booking on it. mu must be held.
func (s *Server) participant(rd *ride, uid int64) bool {
	if rd.driverID == uid {
		return true
	}
	for _, b := range s.bookings {
		if b.rideID == rd.ID && b.passengerID == uid && b.status == model.BookingAccepted {
			return true
		}
	}
	return false
}

func (s *Server) createReview(w http.ResponseWriter, r *http.Request) {
	uid, _ := UserIDFromCtx(r.Context())
	var in model.ReviewInput
	if !decode(w, r, &in) {
		return
	}
	if in.Rating < 1 || in.Rating > 5 {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"rating": {"Rating must be between 1 and 5"}})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rd, ok := s.rides[in.RideID]
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"ride": {`Invalid pk "` + strconv.FormatInt(in.RideID, 10) + `" - object does not exist.`}})
		return
	}
	if _, ok := s.users[in.RevieweeID]; !ok {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"reviewee": {`Invalid pk "` + strconv.FormatInt(in.RevieweeID, 10) + `" - object does not exist.`}})
		return
	}

	var msg string
	switch {
	case !s.participant(rd, uid):
		msg = "You must be a participant of this ride to leave a review"
	case !s.participant(rd, in.RevieweeID):
		msg = "Reviewee must be a participant of this ride"
	case s.reviewed(rd.ID, uid, in.RevieweeID):
		msg = "You have already reviewed this user for this ride"
	case uid == in.RevieweeID:
		msg = "Cannot review yourself"
	}
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, nonField(msg))
		return
	}

	rv := &review{
		id:         s.nextID(),
		rideID:     rd.ID,
		reviewerID: uid,
		revieweeID: in.RevieweeID,
		rating:     in.Rating,
		comment:    in.Comment,
		createdAt:  s.now(),
	}
	s.reviews[rv.id] = rv
	writeJSON(w, http.StatusCreated, s.reviewView(rv))
}

func (s *Server) reviewed(rideID, reviewer, reviewee int64) bool {
	for _, rv := range s.reviews {
		if rv.rideID == rideID && rv.reviewerID == reviewer && rv.revieweeID == reviewee {
			return true
		}
	}
	return false
}
