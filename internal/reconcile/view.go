package reconcile

import (
	"context"
	"sync"

	"github.com/and161185/rideshare/internal/errs"
	"github.com/and161185/rideshare/internal/model"
)

// RecentNotifications is how many notifications the dashboard shows.
const RecentNotifications = 5

// View is one page-local copy of server state.
//
// Load applies a response only if it belongs to the latest fetch issued and
// the view is still open; anything else is discarded. A failed Load keeps
// the previous data.
type View[T any] struct {
	key        Key
	fetch      func(ctx context.Context) (T, error)
	unregister func()

	mu     sync.Mutex
	data   T
	loaded bool
	err    error
	seq    uint64
	closed bool
}

func newView[T any](key Key, fetch func(ctx context.Context) (T, error)) *View[T] {
	return &View[T]{key: key, fetch: fetch}
}

// Key identifies the view.
func (v *View[T]) Key() Key { return v.key }

// Load fetches the view's data. Returns errs.ErrClosed after Close.
func (v *View[T]) Load(ctx context.Context) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return errs.ErrClosed
	}
	v.seq++
	seq := v.seq
	v.mu.Unlock()

	data, err := v.fetch(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || seq != v.seq {
		return nil
	}
	if err != nil {
		v.err = err
		return err
	}
	v.data, v.loaded, v.err = data, true, nil
	return nil
}

// Data returns the current copy and whether any load has succeeded.
func (v *View[T]) Data() (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.data, v.loaded
}

// Err returns the error of the latest applied load, if it failed.
func (v *View[T]) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

// Close detaches the view; in-flight loads are dropped on arrival.
func (v *View[T]) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	unregister := v.unregister
	v.mu.Unlock()
	if unregister != nil {
		unregister()
	}
}

func open[T any](h *Hub, key Key, fetch func(ctx context.Context) (T, error)) *View[T] {
	v := newView(key, fetch)
	v.unregister = h.register(v)
	return v
}

// Dashboard is the driver's summary page.
type Dashboard struct {
	Rides           []model.Ride
	PendingRequests []model.Booking
	Notifications   []model.Notification
}

// MyRides lists the rides offered and the bookings requested by the user.
type MyRides struct {
	Offered   []model.Ride
	Requested []model.Booking
}

// RideDetails is one ride with the user's booking on it, if any.
type RideDetails struct {
	Ride      *model.Ride
	MyBooking *model.Booking
	Reviews   []model.Review
}

// PendingRequests filters bookings still awaiting a driver decision.
func PendingRequests(in []model.Booking) []model.Booking {
	out := make([]model.Booking, 0, len(in))
	for _, b := range in {
		if b.Status == model.BookingPending {
			out = append(out, b)
		}
	}
	return out
}

// Dashboard opens the dashboard view.
func (h *Hub) Dashboard() *View[Dashboard] {
	return open(h, Key{Kind: KindDashboard}, func(ctx context.Context) (Dashboard, error) {
		var d Dashboard
		var err error
		if d.Rides, err = h.svc.Rides.MyRides(ctx); err != nil {
			return Dashboard{}, err
		}
		if d.PendingRequests, err = h.svc.Bookings.List(ctx, model.BookingFilter{
			As: model.AsDriver, Status: model.BookingPending,
		}); err != nil {
			return Dashboard{}, err
		}
		if d.Notifications, err = h.svc.Notifications.List(ctx, model.NotificationFilter{
			PageSize: RecentNotifications,
		}); err != nil {
			return Dashboard{}, err
		}
		return d, nil
	})
}

// RideRequests opens the driver's pending request list.
func (h *Hub) RideRequests() *View[[]model.Booking] {
	return open(h, Key{Kind: KindRideRequests}, func(ctx context.Context) ([]model.Booking, error) {
		return h.svc.Bookings.List(ctx, model.BookingFilter{As: model.AsDriver, Status: model.BookingPending})
	})
}

// MyRides opens the offered-and-requested page.
func (h *Hub) MyRides() *View[MyRides] {
	return open(h, Key{Kind: KindMyRides}, func(ctx context.Context) (MyRides, error) {
		offered, err := h.svc.Rides.MyRides(ctx)
		if err != nil {
			return MyRides{}, err
		}
		requested, err := h.svc.Bookings.MyRequests(ctx)
		if err != nil {
			return MyRides{}, err
		}
		return MyRides{Offered: offered, Requested: requested}, nil
	})
}

// RideDetails opens the detail page of rideID. The user's booking is the
// most recent non-cancelled one on that ride.
func (h *Hub) RideDetails(rideID int64) *View[RideDetails] {
	return open(h, Key{Kind: KindRideDetails, RideID: rideID}, func(ctx context.Context) (RideDetails, error) {
		r, err := h.svc.Rides.Get(ctx, rideID)
		if err != nil {
			return RideDetails{}, err
		}
		mine, err := h.svc.Bookings.List(ctx, model.BookingFilter{As: model.AsPassenger, RideID: rideID})
		if err != nil {
			return RideDetails{}, err
		}
		reviews, err := h.svc.Reviews.ForRide(ctx, rideID)
		if err != nil {
			return RideDetails{}, err
		}
		d := RideDetails{Ride: r, Reviews: reviews}
		for i := range mine {
			b := mine[i]
			if b.Status == model.BookingCancelled {
				continue
			}
			if d.MyBooking == nil || b.CreatedAt.After(d.MyBooking.CreatedAt) {
				d.MyBooking = &b
			}
		}
		return d, nil
	})
}

// RideBookings opens the driver's booking list for rideID.
func (h *Hub) RideBookings(rideID int64) *View[[]model.Booking] {
	return open(h, Key{Kind: KindRideBookings, RideID: rideID}, func(ctx context.Context) ([]model.Booking, error) {
		return h.svc.Bookings.ForRide(ctx, rideID)
	})
}
