package main

import (
	"errors"
	"flag"
	"os"
	"path/filepath"

	"github.com/and161185/rideshare/internal/model"
	"github.com/and161185/rideshare/internal/reconcile"
)

func rideFilterFlags(fs *flag.FlagSet, f *model.RideFilter) {
	fs.StringVar(&f.Origin, "origin", "", "origin contains")
	fs.StringVar(&f.Destination, "destination", "", "destination contains")
	fs.StringVar(&f.DepartureDate, "date", "", "departure date YYYY-MM-DD")
	fs.StringVar(&f.DepartureDateAfter, "after", "", "departing on or after YYYY-MM-DD")
	optFloat(fs, &f.MinPrice, "min-price", "minimum price")
	optFloat(fs, &f.MaxPrice, "max-price", "maximum price")
	fs.IntVar(&f.MinSeats, "seats", 0, "minimum free seats")
	optBool(fs, &f.InstantBooking, "instant", "instant booking only")
	fs.IntVar(&f.Page, "page", 0, "page number")
}

func parseRideFilter(a *app, name string, args []string) (model.RideFilter, error) {
	fs := a.flags(name)
	var f model.RideFilter
	rideFilterFlags(fs, &f)
	status := fs.String("status", "", "ride status")
	if err := fs.Parse(args); err != nil {
		return f, errUsage
	}
	if !validDate(f.DepartureDate) || !validDate(f.DepartureDateAfter) {
		return f, errors.New("dates must be YYYY-MM-DD")
	}
	f.Status = model.RideStatus(*status)
	return f, nil
}

func cmdRides(a *app, args []string) error {
	f, err := parseRideFilter(a, "rides", args)
	if err != nil {
		return err
	}
	rides, err := a.svc.Rides.List(a.ctx, f)
	if err != nil {
		return err
	}
	a.printJSON(rides)
	return nil
}

func cmdSearch(a *app, args []string) error {
	f, err := parseRideFilter(a, "search", args)
	if err != nil {
		return err
	}
	rides, err := a.svc.Rides.Search(a.ctx, f)
	if err != nil {
		return err
	}
	a.printJSON(rides)
	return nil
}

func cmdRide(a *app, args []string) error {
	fs := a.flags("ride")
	id := fs.Int64("id", 0, "ride id")
	if err := fs.Parse(args); err != nil || *id <= 0 {
		return errUsage
	}
	r, err := a.svc.Rides.Get(a.ctx, *id)
	if err != nil {
		return err
	}
	a.printJSON(r)
	return nil
}

// rideInputFlags binds the ride form. departure is parsed after Parse.
func rideInputFlags(fs *flag.FlagSet, in *model.RideInput, departure *string) {
	fs.StringVar(&in.Origin, "origin", in.Origin, "origin")
	fs.StringVar(&in.OriginAddress, "origin-address", in.OriginAddress, "origin address")
	fs.StringVar(&in.Destination, "destination", in.Destination, "destination")
	fs.StringVar(&in.DestinationAddress, "destination-address", in.DestinationAddress, "destination address")
	fs.StringVar(departure, "departure", *departure, "departure time")
	fs.Float64Var(&in.Price, "price", in.Price, "price per seat")
	fs.IntVar(&in.SeatsAvailable, "seats", in.SeatsAvailable, "seats offered")
	fs.IntVar(&in.TotalSeats, "total", in.TotalSeats, "total seats (default: -seats)")
	fs.StringVar(&in.Description, "description", in.Description, "description")
	fs.BoolVar(&in.InstantBooking, "instant", in.InstantBooking, "accept bookings automatically")
}

func cmdPublish(a *app, args []string) error {
	fs := a.flags("publish")
	var (
		in        model.RideInput
		departure string
	)
	rideInputFlags(fs, &in, &departure)
	if err := fs.Parse(args); err != nil || departure == "" {
		return errUsage
	}
	t, err := parseTime(departure)
	if err != nil {
		return err
	}
	in.DepartureTime = t
	if in.TotalSeats == 0 {
		in.TotalSeats = in.SeatsAvailable
	}
	r, err := a.svc.Rides.Create(a.ctx, in)
	if err != nil {
		return err
	}
	a.printJSON(r)
	return nil
}

// rideEdit holds the edit-ride flags; nil fields keep the current value.
type rideEdit struct {
	origin, originAddress, destination, destinationAddress *string
	departure, description                                  *string
	price                                                   *float64
	instant                                                 *bool
	seats, total                                            int
}

func (e *rideEdit) apply(in *model.RideInput) error {
	for dst, src := range map[*string]*string{
		&in.Origin:             e.origin,
		&in.OriginAddress:      e.originAddress,
		&in.Destination:        e.destination,
		&in.DestinationAddress: e.destinationAddress,
		&in.Description:        e.description,
	} {
		if src != nil {
			*dst = *src
		}
	}
	if e.departure != nil {
		t, err := parseTime(*e.departure)
		if err != nil {
			return err
		}
		in.DepartureTime = t
	}
	if e.price != nil {
		in.Price = *e.price
	}
	if e.instant != nil {
		in.InstantBooking = *e.instant
	}
	if e.seats > 0 {
		in.SeatsAvailable = e.seats
	}
	if e.total > 0 {
		in.TotalSeats = e.total
	}
	return nil
}

// cmdEditRide applies the given flags over the current ride and prints the
// driver's refreshed ride list.
func cmdEditRide(a *app, args []string) error {
	fs := a.flags("edit-ride")
	id := fs.Int64("id", 0, "ride id")
	var e rideEdit
	optString(fs, &e.origin, "origin", "origin")
	optString(fs, &e.originAddress, "origin-address", "origin address")
	optString(fs, &e.destination, "destination", "destination")
	optString(fs, &e.destinationAddress, "destination-address", "destination address")
	optString(fs, &e.departure, "departure", "departure time")
	optString(fs, &e.description, "description", "description")
	optFloat(fs, &e.price, "price", "price per seat")
	optBool(fs, &e.instant, "instant", "accept bookings automatically")
	fs.IntVar(&e.seats, "seats", 0, "seats available")
	fs.IntVar(&e.total, "total", 0, "total seats")
	if err := fs.Parse(args); err != nil || *id <= 0 {
		return errUsage
	}

	cur, err := a.svc.Rides.Get(a.ctx, *id)
	if err != nil {
		return err
	}
	in := inputFromRide(cur)
	if err := e.apply(&in); err != nil {
		return err
	}

	view := a.hub.MyRides()
	defer view.Close()
	if _, err := a.hub.UpdateRide(a.ctx, *id, in); err != nil {
		return err
	}
	a.printRides(view)
	return nil
}

func inputFromRide(r *model.Ride) model.RideInput {
	return model.RideInput{
		Origin:             r.Origin,
		OriginAddress:      r.OriginAddress,
		Destination:        r.Destination,
		DestinationAddress: r.DestinationAddress,
		DepartureTime:      r.DepartureTime,
		ArrivalTime:        r.ArrivalTime,
		Price:              r.Price,
		SeatsAvailable:     r.SeatsAvailable,
		TotalSeats:         r.TotalSeats,
		Description:        r.Description,
		InstantBooking:     r.InstantBooking,
		Preferences:        r.Preferences,
	}
}

func cmdCancelRide(a *app, args []string) error {
	fs := a.flags("cancel-ride")
	id := fs.Int64("id", 0, "ride id")
	if err := fs.Parse(args); err != nil || *id <= 0 {
		return errUsage
	}
	view := a.hub.MyRides()
	defer view.Close()
	if err := a.hub.CancelRide(a.ctx, *id); err != nil {
		return err
	}
	a.printRides(view)
	return nil
}

func (a *app) printRides(view *reconcile.View[reconcile.MyRides]) {
	if d, ok := view.Data(); ok {
		a.printJSON(d.Offered)
		return
	}
	a.println("ok")
}

func cmdMyRides(a *app, _ []string) error {
	view := a.hub.MyRides()
	defer view.Close()
	if err := view.Load(a.ctx); err != nil {
		return err
	}
	d, _ := view.Data()
	a.printJSON(d)
	return nil
}

func cmdCar(a *app, _ []string) error {
	c, err := a.svc.Rides.GetCar(a.ctx)
	if err != nil {
		return err
	}
	a.printJSON(c)
	return nil
}

func cmdSetCar(a *app, args []string) error {
	fs := a.flags("set-car")
	var in model.CarInput
	fs.StringVar(&in.Make, "make", "", "make")
	fs.StringVar(&in.Model, "model", "", "model")
	fs.StringVar(&in.Color, "color", "", "color")
	fs.IntVar(&in.Year, "year", 0, "year")
	fs.StringVar(&in.LicensePlate, "plate", "", "license plate")
	image := fs.String("image", "", "car image file")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	c, err := a.svc.Rides.UpsertCar(a.ctx, in)
	if err != nil {
		return err
	}
	if *image != "" {
		f, err := os.Open(*image)
		if err != nil {
			return err
		}
		defer f.Close()
		if c, err = a.svc.Rides.UploadCarImage(a.ctx, filepath.Base(*image), f); err != nil {
			return err
		}
	}
	a.printJSON(c)
	return nil
}
