package reconcile

import (
	"context"

	"go.uber.org/zap"

	"github.com/and161185/rideshare/internal/errs"
	"github.com/and161185/rideshare/internal/model"
)

// Accept accepts b on behalf of the driver. b is the caller's copy; it must
// still be pending there, otherwise no request is sent.
func (h *Hub) Accept(ctx context.Context, b model.Booking) (*model.Booking, error) {
	return h.decide(ctx, ActionAccept, b, model.BookingAccepted)
}

// Decline declines b on behalf of the driver.
func (h *Hub) Decline(ctx context.Context, b model.Booking) (*model.Booking, error) {
	return h.decide(ctx, ActionDecline, b, model.BookingDeclined)
}

func (h *Hub) decide(ctx context.Context, a Action, b model.Booking, to model.BookingStatus) (*model.Booking, error) {
	if !b.Status.CanTransition(to) {
		return nil, &ActionError{
			Action:  a,
			Message: "Booking is " + string(b.Status) + ", not pending",
			Err:     errs.ErrInvalidTransition,
		}
	}
	var (
		out *model.Booking
		err error
	)
	if to == model.BookingAccepted {
		out, err = h.svc.Bookings.Accept(ctx, b.ID)
	} else {
		out, err = h.svc.Bookings.Decline(ctx, b.ID)
	}
	if err != nil {
		return nil, h.failed(a, err)
	}
	rideID := b.RideID()
	if rideID == 0 {
		rideID = out.RideID()
	}
	h.refetch(ctx, a, Affected(a, rideID))
	return out, nil
}

// Book requests seats on ride. Nothing is sent when the ride, as the caller
// last saw it, is not upcoming or has too few seats.
func (h *Hub) Book(ctx context.Context, ride *model.Ride, seats int, message string) (*model.Booking, error) {
	if ride == nil {
		return nil, &ActionError{Action: ActionCreateBooking, Message: "Ride not found", Err: errs.ErrNotFound}
	}
	if seats >= 1 && !ride.Bookable(seats) {
		msg := "Not enough seats available"
		if ride.Status != "" && ride.Status != model.RideUpcoming {
			msg = "This ride is not available for booking"
		}
		return nil, &ActionError{Action: ActionCreateBooking, Message: msg, Err: errs.ErrNoSeats}
	}
	out, err := h.svc.Bookings.Create(ctx, model.BookingInput{RideID: ride.ID, Seats: seats, Message: message})
	if err != nil {
		return nil, h.failed(ActionCreateBooking, err)
	}
	h.refetch(ctx, ActionCreateBooking, Affected(ActionCreateBooking, ride.ID))
	return out, nil
}

// Cancel cancels the passenger's booking b.
func (h *Hub) Cancel(ctx context.Context, b model.Booking) error {
	if !b.Status.CanTransition(model.BookingCancelled) {
		return &ActionError{
			Action:  ActionCancelBooking,
			Message: "Booking is already " + string(b.Status),
			Err:     errs.ErrInvalidTransition,
		}
	}
	if err := h.svc.Bookings.Cancel(ctx, b.ID); err != nil {
		return h.failed(ActionCancelBooking, err)
	}
	h.refetch(ctx, ActionCancelBooking, Affected(ActionCancelBooking, b.RideID()))
	return nil
}

// CancelRide cancels one of the driver's rides.
func (h *Hub) CancelRide(ctx context.Context, rideID int64) error {
	if err := h.svc.Rides.Cancel(ctx, rideID); err != nil {
		return h.failed(ActionCancelRide, err)
	}
	h.refetch(ctx, ActionCancelRide, Affected(ActionCancelRide, rideID))
	return nil
}

// UpdateRide replaces the editable fields of one of the driver's rides.
func (h *Hub) UpdateRide(ctx context.Context, rideID int64, in model.RideInput) (*model.Ride, error) {
	out, err := h.svc.Rides.Update(ctx, rideID, in)
	if err != nil {
		return nil, h.failed(ActionUpdateRide, err)
	}
	h.refetch(ctx, ActionUpdateRide, Affected(ActionUpdateRide, rideID))
	return out, nil
}

// CreateReview rates another participant of a ride.
func (h *Hub) CreateReview(ctx context.Context, in model.ReviewInput) (*model.Review, error) {
	out, err := h.svc.Reviews.Create(ctx, in)
	if err != nil {
		return nil, h.failed(ActionCreateReview, err)
	}
	h.refetch(ctx, ActionCreateReview, Affected(ActionCreateReview, in.RideID))
	return out, nil
}

func (h *Hub) failed(a Action, err error) *ActionError {
	ae := actionError(a, err)
	h.log.Info("action failed", zap.String("action", string(a)), zap.Error(err))
	return ae
}
