// Package stub is an in-memory RideShare REST backend. It reproduces the
// observable behaviour of the real backend closely enough to drive the
// client end to end: JWT auth, booking rules with seat accounting,
// notifications on booking events and review participation rules.
package stub

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/and161185/rideshare/internal/limiter"
	"github.com/and161185/rideshare/internal/model"
)

// Defaults for token lifetimes and login throttling.
const (
	DefaultAccessTTL  = 60 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour

	loginWindow   = 15 * time.Minute
	loginMaxFails = 5
	loginBlockFor = 15 * time.Minute

	pageSize    = 10
	maxPageSize = 100
)

type account struct {
	model.User
	salt, hash []byte
}

type ride struct {
	model.Ride
	driverID  int64
	createdAt time.Time
}

type booking struct {
	id          int64
	rideID      int64
	passengerID int64
	seats       int
	message     string
	status      model.BookingStatus
	createdAt   time.Time
	updatedAt   time.Time
}

type notification struct {
	model.Notification
	recipientID int64
	senderID    int64
}

type review struct {
	id         int64
	rideID     int64
	reviewerID int64
	revieweeID int64
	rating     int
	comment    string
	createdAt  time.Time
}

// Server holds the whole backend state behind one mutex.
type Server struct {
	key        []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	log        *zap.Logger
	lim        limiter.Limiter
	now        func() time.Time

	mu       sync.Mutex
	seq      int64
	users    map[int64]*account
	byEmail  map[string]int64
	cars     map[int64]*model.Car // by owner
	rides    map[int64]*ride
	bookings map[int64]*booking
	notifs   map[int64]*notification
	reviews  map[int64]*review
	revoked  map[string]struct{} // refresh token ids
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option { return func(s *Server) { s.log = l } }

// WithLimiter replaces the login limiter.
func WithLimiter(l limiter.Limiter) Option { return func(s *Server) { s.lim = l } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(s *Server) { s.now = now } }

// WithTokenTTL overrides the access and refresh token lifetimes.
func WithTokenTTL(access, refresh time.Duration) Option {
	return func(s *Server) {
		if access > 0 {
			s.accessTTL = access
		}
		if refresh > 0 {
			s.refreshTTL = refresh
		}
	}
}

// New creates an empty backend signing tokens with key.
func New(key []byte, opts ...Option) (*Server, error) {
	if len(key) == 0 {
		return nil, errors.New("stub: empty signing key")
	}
	s := &Server{
		key:        key,
		accessTTL:  DefaultAccessTTL,
		refreshTTL: DefaultRefreshTTL,
		log:        zap.NewNop(),
		lim:        limiter.NewMemory(loginWindow, loginMaxFails, loginBlockFor),
		now:        time.Now,
		users:      map[int64]*account{},
		byEmail:    map[string]int64{},
		cars:       map[int64]*model.Car{},
		rides:      map[int64]*ride{},
		bookings:   map[int64]*booking{},
		notifs:     map[int64]*notification{},
		reviews:    map[int64]*review{},
		revoked:    map[string]struct{}{},
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Handler returns the router. Every endpoint lives under /api.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(recoverer(s.log))
	r.Use(requestLogger(s.log))

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authenticate)

		r.Post("/users/register/", s.register)
		r.Post("/users/login/", s.login)
		r.Post("/users/token/refresh/", s.refreshToken)
		r.Get("/users/{id}/", s.getUser)
		r.Get("/users/{id}/stats/", s.userStats)

		r.Get("/rides/", s.listRides)
		r.Get("/rides/search/", s.searchRides)
		r.Get("/rides/{id}/", s.getRide)

		r.Get("/reviews/", s.listReviews)
		r.Get("/reviews/{id}/", s.getReview)
		r.Get("/reviews/user/{id}/", s.userReviews)
		r.Get("/reviews/ride/{id}/", s.rideReviews)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Post("/users/logout/", s.logout)
			r.Get("/users/me/", s.me)
			r.Patch("/users/me/", s.updateMe)
			r.Put("/users/me/", s.updateMe)

			r.Post("/rides/", s.createRide)
			r.Put("/rides/{id}/", s.updateRide)
			r.Patch("/rides/{id}/", s.updateRide)
			r.Delete("/rides/{id}/", s.cancelRide)
			r.Get("/rides/my-rides/", s.myRides)
			r.Get("/rides/car/", s.getCar)
			r.Patch("/rides/car/", s.updateCar)
			r.Put("/rides/car/", s.updateCar)

			r.Get("/bookings/", s.listBookings)
			r.Post("/bookings/create/", s.createBooking)
			r.Get("/bookings/my-requests/", s.myRequests)
			r.Get("/bookings/ride/{id}/", s.rideBookings)
			r.Get("/bookings/{id}/", s.getBooking)
			r.Delete("/bookings/{id}/", s.cancelBooking)
			r.Patch("/bookings/{id}/accept/", s.acceptBooking)
			r.Patch("/bookings/{id}/decline/", s.declineBooking)

			r.Get("/notifications/", s.listNotifications)
			r.Get("/notifications/unread-count/", s.unreadCount)
			r.Post("/notifications/mark-all-read/", s.markAllRead)
			r.Get("/notifications/{id}/", s.getNotification)
			r.Patch("/notifications/{id}/read/", s.markRead)

			r.Post("/reviews/create/", s.createReview)
		})
	})
	return r
}

// nextID must be called with mu held.
func (s *Server) nextID() int64 {
	s.seq++
	return s.seq
}
