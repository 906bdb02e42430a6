// Package reconcile keeps page-local views of bookings and rides consistent
// after mutations.
//
// There is no shared cache. Each View owns its copy and fetches it with its
// own Load. Every mutation goes through Hub: on success, every open view
// whose key is in the action's affected set is re-fetched in full; on
// failure nothing changes. That refetch is the only consistency mechanism.
package reconcile

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/and161185/rideshare/internal/errs"
	"github.com/and161185/rideshare/internal/observability"
	"github.com/and161185/rideshare/internal/service"
)

// Kind names a view type.
type Kind string

const (
	KindDashboard    Kind = "dashboard"
	KindRideRequests Kind = "ride_requests"
	KindMyRides      Kind = "my_rides"
	KindRideDetails  Kind = "ride_details"
	KindRideBookings Kind = "ride_bookings"
)

// Key identifies a view instance. RideID is zero for views not scoped to a ride.
type Key struct {
	Kind   Kind
	RideID int64
}

// matches reports whether an affected key selects the view key v. A zero
// ride id on a ride-scoped affected key selects every ride of that kind.
func (k Key) matches(v Key) bool {
	if k.Kind != v.Kind {
		return false
	}
	return k.RideID == 0 || k.RideID == v.RideID
}

// Action is a mutating user intent.
type Action string

const (
	ActionAccept        Action = "accept booking"
	ActionDecline       Action = "decline booking"
	ActionCreateBooking Action = "book ride"
	ActionCancelBooking Action = "cancel booking"
	ActionCancelRide    Action = "cancel ride"
	ActionUpdateRide    Action = "update ride"
	ActionCreateReview  Action = "submit review"
)

// Affected returns the views that must be re-fetched after action succeeds
// on rideID.
func Affected(a Action, rideID int64) []Key {
	switch a {
	case ActionAccept, ActionDecline:
		return []Key{
			{Kind: KindDashboard},
			{Kind: KindRideRequests},
			{Kind: KindRideBookings, RideID: rideID},
			{Kind: KindRideDetails, RideID: rideID},
		}
	case ActionCreateBooking, ActionCancelBooking:
		return []Key{
			{Kind: KindRideDetails, RideID: rideID},
			{Kind: KindMyRides},
			{Kind: KindRideBookings, RideID: rideID},
		}
	case ActionCancelRide, ActionUpdateRide:
		return []Key{
			{Kind: KindMyRides},
			{Kind: KindDashboard},
			{Kind: KindRideDetails, RideID: rideID},
		}
	case ActionCreateReview:
		return []Key{{Kind: KindRideDetails, RideID: rideID}}
	}
	return nil
}

// ActionError is a failed mutation. Message is what the user sees: the
// server's own message when it sent one, otherwise a generic one.
type ActionError struct {
	Action  Action
	Message string
	Err     error
}

func (e *ActionError) Error() string { return e.Message }

func (e *ActionError) Unwrap() error { return e.Err }

// GenericMessage is shown when the server gave no usable message.
func GenericMessage(a Action) string {
	return "Failed to " + string(a) + ". Please try again."
}

func actionError(a Action, err error) *ActionError {
	return &ActionError{Action: a, Message: messageFor(a, err), Err: err}
}

func messageFor(a Action, err error) string {
	var ae *ActionError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return errs.Message(err, GenericMessage(a))
}

// loader is the part of a View the hub drives.
type loader interface {
	Key() Key
	Load(ctx context.Context) error
}

// Hub issues mutations and re-fetches the open views they affect.
type Hub struct {
	svc     *service.Services
	log     *zap.Logger
	metrics *observability.Metrics

	mu     sync.Mutex
	views  map[int]loader
	nextID int
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(h *Hub) { h.log = l } }

// WithMetrics counts refetches per view kind.
func WithMetrics(m *observability.Metrics) Option { return func(h *Hub) { h.metrics = m } }

// New creates a Hub over svc.
func New(svc *service.Services, opts ...Option) *Hub {
	h := &Hub{svc: svc, log: zap.NewNop(), views: map[int]loader{}}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *Hub) register(l loader) (unregister func()) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.views[id] = l
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		delete(h.views, id)
		h.mu.Unlock()
	}
}

// Open returns the keys of every registered view.
func (h *Hub) Open() []Key {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Key, 0, len(h.views))
	for _, v := range h.views {
		out = append(out, v.Key())
	}
	return out
}

// refetch reloads every open view selected by keys. Load failures are
// recorded on the view and logged; the mutation already succeeded.
func (h *Hub) refetch(ctx context.Context, a Action, keys []Key) {
	h.mu.Lock()
	var targets []loader
	for _, v := range h.views {
		for _, k := range keys {
			if k.matches(v.Key()) {
				targets = append(targets, v)
				break
			}
		}
	}
	h.mu.Unlock()

	for _, v := range targets {
		k := v.Key()
		if h.metrics != nil {
			h.metrics.ReconcileFetches.WithLabelValues(string(k.Kind)).Inc()
		}
		if err := v.Load(ctx); err != nil {
			h.log.Warn("refetch after action",
				zap.String("action", string(a)),
				zap.String("view", string(k.Kind)),
				zap.Int64("ride_id", k.RideID),
				zap.Error(err),
			)
		}
	}
}
