// Package service holds one domain service per backend resource. Services
// translate intents into REST calls through the api adapter, normalise the
// responses via convert and never swallow errors.
package service

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/and161185/rideshare/internal/api"
	"github.com/and161185/rideshare/internal/convert"
)

// Services bundles every domain service over one adapter.
type Services struct {
	Users         UserService
	Rides         RideService
	Bookings      BookingService
	Notifications NotificationService
	Reviews       ReviewService
}

// New wires all services to d.
func New(d api.Doer) *Services {
	return &Services{
		Users:         NewUserService(d),
		Rides:         NewRideService(d),
		Bookings:      NewBookingService(d),
		Notifications: NewNotificationService(d),
		Reviews:       NewReviewService(d),
	}
}

// list fetches a list endpoint that may answer with a page envelope or a
// bare array.
func list[W any](ctx context.Context, d api.Doer, path string, q url.Values) ([]W, error) {
	var raw json.RawMessage
	if err := d.Do(ctx, api.Request{Method: "GET", Path: path, Query: q}, &raw); err != nil {
		return nil, err
	}
	return convert.DecodeList[W](raw)
}

func idPath(prefix string, id int64, suffix string) string {
	return prefix + strconv.FormatInt(id, 10) + "/" + suffix
}
