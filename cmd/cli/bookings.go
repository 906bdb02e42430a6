package main

import (
	"github.com/and161185/rideshare/internal/model"
)

func cmdBook(a *app, args []string) error {
	fs := a.flags("book")
	rideID := fs.Int64("ride", 0, "ride id")
	seats := fs.Int("seats", 1, "seats to book")
	message := fs.String("message", "", "message to the driver")
	if err := fs.Parse(args); err != nil || *rideID <= 0 {
		return errUsage
	}
	ride, err := a.svc.Rides.Get(a.ctx, *rideID)
	if err != nil {
		return err
	}
	view := a.hub.RideDetails(*rideID)
	defer view.Close()
	b, err := a.hub.Book(a.ctx, ride, *seats, *message)
	if err != nil {
		return err
	}
	out := map[string]any{"booking": b}
	if d, ok := view.Data(); ok {
		out["ride"] = d.Ride
	}
	a.printJSON(out)
	return nil
}

func cmdCancelBooking(a *app, args []string) error {
	fs := a.flags("cancel-booking")
	id := fs.Int64("id", 0, "booking id")
	if err := fs.Parse(args); err != nil || *id <= 0 {
		return errUsage
	}
	b, err := a.svc.Bookings.Get(a.ctx, *id)
	if err != nil {
		return err
	}
	view := a.hub.MyRides()
	defer view.Close()
	if err := a.hub.Cancel(a.ctx, *b); err != nil {
		return err
	}
	if d, ok := view.Data(); ok {
		a.printJSON(d.Requested)
		return nil
	}
	a.println("ok")
	return nil
}

// cmdRequests lists booking requests on the caller's rides.
func cmdRequests(a *app, args []string) error {
	fs := a.flags("requests")
	status := fs.String("status", "", "pending, accepted, declined or cancelled")
	pending := fs.Bool("pending", false, "only requests awaiting a decision")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	f := model.BookingFilter{As: model.AsDriver, Status: model.BookingStatus(*status)}
	if *pending {
		f.Status = model.BookingPending
	}
	if f.Status != "" && !f.Status.Valid() {
		return errUsage
	}
	list, err := a.svc.Bookings.List(a.ctx, f)
	if err != nil {
		return err
	}
	a.printJSON(list)
	return nil
}

func cmdRideBookings(a *app, args []string) error {
	fs := a.flags("ride-bookings")
	rideID := fs.Int64("ride", 0, "ride id")
	if err := fs.Parse(args); err != nil || *rideID <= 0 {
		return errUsage
	}
	list, err := a.svc.Bookings.ForRide(a.ctx, *rideID)
	if err != nil {
		return err
	}
	a.printJSON(list)
	return nil
}

func cmdAccept(a *app, args []string) error { return decide(a, "accept", args) }

func cmdDecline(a *app, args []string) error { return decide(a, "decline", args) }

// decide accepts or declines a booking and prints it with the ride's
// refreshed booking list.
func decide(a *app, name string, args []string) error {
	fs := a.flags(name)
	id := fs.Int64("id", 0, "booking id")
	if err := fs.Parse(args); err != nil || *id <= 0 {
		return errUsage
	}
	b, err := a.svc.Bookings.Get(a.ctx, *id)
	if err != nil {
		return err
	}
	view := a.hub.RideBookings(b.RideID())
	defer view.Close()

	var out *model.Booking
	if name == "accept" {
		out, err = a.hub.Accept(a.ctx, *b)
	} else {
		out, err = a.hub.Decline(a.ctx, *b)
	}
	if err != nil {
		return err
	}
	res := map[string]any{"booking": out}
	if list, ok := view.Data(); ok {
		res["ride_bookings"] = list
	}
	a.printJSON(res)
	return nil
}

func cmdMyRequests(a *app, _ []string) error {
	list, err := a.svc.Bookings.MyRequests(a.ctx)
	if err != nil {
		return err
	}
	a.printJSON(list)
	return nil
}

func cmdReview(a *app, args []string) error {
	fs := a.flags("review")
	var in model.ReviewInput
	fs.Int64Var(&in.RideID, "ride", 0, "ride id")
	fs.Int64Var(&in.RevieweeID, "user", 0, "reviewed user id")
	fs.IntVar(&in.Rating, "rating", 0, "rating 1-5")
	fs.StringVar(&in.Comment, "comment", "", "comment")
	if err := fs.Parse(args); err != nil || in.RideID <= 0 || in.RevieweeID <= 0 {
		return errUsage
	}
	view := a.hub.RideDetails(in.RideID)
	defer view.Close()
	r, err := a.hub.CreateReview(a.ctx, in)
	if err != nil {
		return err
	}
	res := map[string]any{"review": r}
	if d, ok := view.Data(); ok {
		res["ride_reviews"] = d.Reviews
	}
	a.printJSON(res)
	return nil
}

func cmdReviews(a *app, args []string) error {
	fs := a.flags("reviews")
	var f model.ReviewFilter
	fs.Int64Var(&f.UserID, "user", 0, "reviews received by user")
	fs.Int64Var(&f.RideID, "ride", 0, "reviews left on ride")
	fs.Int64Var(&f.ReviewerID, "reviewer", 0, "reviews written by user")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	list, err := a.svc.Reviews.List(a.ctx, f)
	if err != nil {
		return err
	}
	a.printJSON(list)
	return nil
}
