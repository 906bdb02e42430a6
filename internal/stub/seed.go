package stub

import (
	"errors"
	"strings"
	"time"

	"github.com/and161185/rideshare/internal/crypto"
	"github.com/and161185/rideshare/internal/model"
)

// ErrUnknownRide is returned by fixture helpers for a missing ride id.
var ErrUnknownRide = errors.New("stub: unknown ride")

// AddUser creates an account directly, bypassing registration rules.
func (s *Server) AddUser(email, password, first, last string) (int64, error) {
	salt, hash, err := crypto.NewPasswordHash(password)
	if err != nil {
		return 0, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[email]; taken {
		return 0, errors.New("stub: email taken")
	}
	username, _, _ := strings.Cut(email, "@")
	return s.addAccount(model.User{Email: email, Username: username, FirstName: first, LastName: last}, salt, hash), nil
}

// AddRide publishes a ride for driverID without validation.
func (s *Server) AddRide(driverID int64, in model.RideInput) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addRide(driverID, in)
}

// SetRideStatus moves a ride through its server-driven lifecycle.
func (s *Server) SetRideStatus(id int64, st model.RideStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rd, ok := s.rides[id]
	if !ok {
		return ErrUnknownRide
	}
	rd.Status = st
	return nil
}

// SetSeatsAvailable overwrites a ride's free seats, as a concurrent booking
// elsewhere would.
func (s *Server) SetSeatsAvailable(id int64, seats int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rd, ok := s.rides[id]
	if !ok {
		return ErrUnknownRide
	}
	rd.SeatsAvailable = seats
	return nil
}

// Seed loads a small demo data set: two drivers, a passenger and a few
// rides between NYC and Boston. All passwords are "password123".
func (s *Server) Seed() error {
	const pw = "password123"
	alice, err := s.AddUser("alice@example.com", pw, "Alice", "Driver")
	if err != nil {
		return err
	}
	bob, err := s.AddUser("bob@example.com", pw, "Bob", "Driver")
	if err != nil {
		return err
	}
	if _, err := s.AddUser("carol@example.com", pw, "Carol", "Passenger"); err != nil {
		return err
	}

	day := s.now().UTC().Truncate(24*time.Hour).AddDate(0, 0, 1)
	s.AddRide(alice, model.RideInput{
		Origin: "NYC", Destination: "Boston", DepartureTime: day.Add(9 * time.Hour),
		Price: 35, SeatsAvailable: 3, TotalSeats: 3, Description: "Morning run, one stop for coffee.",
	})
	s.AddRide(alice, model.RideInput{
		Origin: "Boston", Destination: "NYC", DepartureTime: day.Add(18 * time.Hour),
		Price: 35, SeatsAvailable: 2, TotalSeats: 3,
	})
	s.AddRide(bob, model.RideInput{
		Origin: "NYC", Destination: "Philadelphia", DepartureTime: day.AddDate(0, 0, 1).Add(8 * time.Hour),
		Price: 20, SeatsAvailable: 4, TotalSeats: 4, InstantBooking: true,
	})
	return nil
}
