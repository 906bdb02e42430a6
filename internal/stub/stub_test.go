package stub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/and161185/rideshare/internal/api"
	"github.com/and161185/rideshare/internal/errs"
	"github.com/and161185/rideshare/internal/limiter"
	"github.com/and161185/rideshare/internal/model"
	"github.com/and161185/rideshare/internal/service"
	"github.com/and161185/rideshare/internal/storage"
)

const testPassword = "password123"

type env struct {
	t   *testing.T
	srv *Server
	url string
}

func newEnv(t *testing.T, opts ...Option) *env {
	t.Helper()
	opts = append([]Option{WithLimiter(limiter.NewMemory(time.Minute, 3, time.Minute))}, opts...)
	srv, err := New([]byte("test-signing-key"), opts...)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &env{t: t, srv: srv, url: ts.URL + "/api"}
}

func (e *env) user(email, first string) int64 {
	e.t.Helper()
	id, err := e.srv.AddUser(email, testPassword, first, "Test")
	require.NoError(e.t, err)
	return id
}

// anon returns services with an empty credential store.
func (e *env) anon() (*service.Services, storage.Store) {
	e.t.Helper()
	st := storage.NewMemory()
	c, err := api.New(e.url, st)
	require.NoError(e.t, err)
	return service.New(c), st
}

// as logs email in and returns services carrying its token.
func (e *env) as(email string) *service.Services {
	e.t.Helper()
	svcs, st := e.anon()
	ctx := context.Background()
	tok, _, err := svcs.Users.Login(ctx, email, testPassword)
	require.NoError(e.t, err)
	require.NoError(e.t, st.Set(ctx, storage.KeyToken, tok.Access))
	return svcs
}

func upcoming(origin, dest string, at time.Time, seats int) model.RideInput {
	return model.RideInput{
		Origin: origin, Destination: dest, DepartureTime: at,
		Price: 25, SeatsAvailable: seats, TotalSeats: seats,
	}
}

var day = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

func TestNew_RequiresKey(t *testing.T) {
	t.Parallel()

	_, err := New(nil)
	require.Error(t, err)
}

func TestAuth_RegisterLoginMe(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	svcs, st := e.anon()
	ctx := context.Background()

	u, err := svcs.Users.Register(ctx, model.RegisterInput{
		Email: "a@b.com", Username: "ab", FirstName: "Ann", LastName: "Bee",
		Password: "longenough1", PasswordConfirm: "longenough1",
	})
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", u.Email)

	_, err = svcs.Users.Register(ctx, model.RegisterInput{
		Email: "a@b.com", Username: "other", FirstName: "A", LastName: "B",
		Password: "longenough1", PasswordConfirm: "longenough1",
	})
	require.ErrorIs(t, err, errs.ErrValidation)
	assert.Equal(t, []string{"user with this email already exists."}, errs.FieldErrors(err)["email"])

	tok, lu, err := svcs.Users.Login(ctx, "a@b.com", "longenough1")
	require.NoError(t, err)
	assert.NotEmpty(t, tok.Access)
	assert.NotEmpty(t, tok.Refresh)
	assert.Equal(t, "Ann Bee", lu.FullName)

	require.NoError(t, st.Set(ctx, storage.KeyToken, tok.Access))
	me, err := svcs.Users.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", me.Email)
}

func TestAuth_LoginFailures(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.user("a@b.com", "Ann")
	svcs, _ := e.anon()
	ctx := context.Background()

	_, _, err := svcs.Users.Login(ctx, "a@b.com", "")
	require.ErrorIs(t, err, errs.ErrValidation)
	assert.Equal(t, "Please provide both email and password", errs.Message(err, ""))

	_, _, err = svcs.Users.Login(ctx, "a@b.com", "wrong-password")
	require.ErrorIs(t, err, errs.ErrAuth)
	assert.Equal(t, "Invalid credentials", errs.Message(err, ""))

	_, _, _ = svcs.Users.Login(ctx, "a@b.com", "wrong-password")
	_, _, err = svcs.Users.Login(ctx, "a@b.com", "wrong-password")
	var ae *errs.APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusTooManyRequests, ae.Status)

	_, _, err = svcs.Users.Login(ctx, "a@b.com", testPassword)
	require.Error(t, err, "still locked out")
}

func TestAuth_ProtectedAndBadToken(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	svcs, st := e.anon()
	ctx := context.Background()

	_, err := svcs.Users.Me(ctx)
	require.ErrorIs(t, err, errs.ErrAuth)

	require.NoError(t, st.Set(ctx, storage.KeyToken, "garbage"))
	_, err = svcs.Rides.Search(ctx, model.RideFilter{})
	require.ErrorIs(t, err, errs.ErrAuth, "invalid token is rejected on public endpoints too")
}

func TestAuth_RefreshAndLogout(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.user("a@b.com", "Ann")
	svcs, st := e.anon()
	ctx := context.Background()

	tok, _, err := svcs.Users.Login(ctx, "a@b.com", testPassword)
	require.NoError(t, err)
	require.NoError(t, st.Set(ctx, storage.KeyToken, tok.Access))

	next, err := svcs.Users.RefreshToken(ctx, tok.Refresh)
	require.NoError(t, err)
	assert.NotEmpty(t, next.Access)
	assert.Equal(t, tok.Refresh, next.Refresh)

	require.NoError(t, svcs.Users.Logout(ctx, tok.Refresh))
	_, err = svcs.Users.RefreshToken(ctx, tok.Refresh)
	require.ErrorIs(t, err, errs.ErrAuth, "revoked on logout")

	_, err = svcs.Users.RefreshToken(ctx, tok.Access)
	require.ErrorIs(t, err, errs.ErrAuth, "access token is not a refresh token")
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestAuth_ExpiredAccessToken(t *testing.T) {
	t.Parallel()

	clk := &testClock{t: time.Now()}
	e := newEnv(t, WithClock(clk.Now), WithTokenTTL(time.Minute, time.Hour))
	e.user("a@b.com", "Ann")
	svcs := e.as("a@b.com")

	clk.Advance(2 * time.Minute)
	_, err := svcs.Users.Me(context.Background())
	require.ErrorIs(t, err, errs.ErrAuth)
}

func TestRides_SearchFilters(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	d := e.user("d@x.com", "Dee")
	match := e.srv.AddRide(d, upcoming("NYC", "Boston", day, 3))
	e.srv.AddRide(d, upcoming("NYC", "Boston", day.AddDate(0, 0, 1), 3))
	e.srv.AddRide(d, upcoming("NYC", "Philadelphia", day, 3))
	e.srv.AddRide(d, upcoming("Albany", "Boston", day, 3))
	cancelled := e.srv.AddRide(d, upcoming("NYC", "Boston", day.Add(time.Hour), 3))
	require.NoError(t, e.srv.SetRideStatus(cancelled, model.RideCancelled))

	svcs, _ := e.anon()
	rides, err := svcs.Rides.Search(context.Background(), model.RideFilter{
		Origin: "NYC", Destination: "Boston", DepartureDate: "2024-01-01",
	})
	require.NoError(t, err)
	require.Len(t, rides, 1)
	assert.Equal(t, match, rides[0].ID)
	assert.Equal(t, "Dee Test", rides[0].Driver.FullName)

	all, err := svcs.Rides.List(context.Background(), model.RideFilter{Origin: "nyc", Status: model.RideCancelled})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, cancelled, all[0].ID)
}

func TestRides_CreateUpdateCancel(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.user("d@x.com", "Dee")
	e.user("p@x.com", "Pat")
	driver := e.as("d@x.com")
	other := e.as("p@x.com")
	ctx := context.Background()

	in := upcoming("NYC", "Boston", day, 3)
	in.Preferences = &model.Preferences{PetsAllowed: true}
	r, err := driver.Rides.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, model.RideUpcoming, r.Status)
	require.NotNil(t, r.Preferences)
	assert.True(t, r.Preferences.PetsAllowed)

	in.Price = 30
	_, err = other.Rides.Update(ctx, r.ID, in)
	require.ErrorIs(t, err, errs.ErrForbidden)

	up, err := driver.Rides.Update(ctx, r.ID, in)
	require.NoError(t, err)
	assert.InDelta(t, 30.0, up.Price, 1e-9)

	require.ErrorIs(t, other.Rides.Cancel(ctx, r.ID), errs.ErrForbidden)
	require.NoError(t, driver.Rides.Cancel(ctx, r.ID))
	got, err := driver.Rides.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RideCancelled, got.Status)

	mine, err := driver.Rides.MyRides(ctx)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	_, err = driver.Rides.Get(ctx, 999)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestRides_Car(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	e.user("d@x.com", "Dee")
	driver := e.as("d@x.com")
	ctx := context.Background()

	car, err := driver.Rides.GetCar(ctx)
	require.NoError(t, err)
	assert.Empty(t, car.Make)

	car, err = driver.Rides.UpsertCar(ctx, model.CarInput{Make: "VW", Model: "Golf", Year: 2019})
	require.NoError(t, err)
	assert.Equal(t, "VW", car.Make)
	assert.Equal(t, 2019, car.Year)
}

func TestBookings_Lifecycle(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	d := e.user("d@x.com", "Dee")
	e.user("p@x.com", "Pat")
	e.user("q@x.com", "Quinn")
	rideID := e.srv.AddRide(d, upcoming("NYC", "Boston", day, 2))
	driver, pat, quinn := e.as("d@x.com"), e.as("p@x.com"), e.as("q@x.com")
	ctx := context.Background()

	_, err := driver.Bookings.Create(ctx, model.BookingInput{RideID: rideID, Seats: 1})
	require.ErrorIs(t, err, errs.ErrValidation)
	assert.Equal(t, "You cannot book your own ride", errs.Message(err, ""))

	_, err = pat.Bookings.Create(ctx, model.BookingInput{RideID: rideID, Seats: 3})
	assert.Equal(t, "Only 2 seats available", errs.Message(err, ""))

	b, err := pat.Bookings.Create(ctx, model.BookingInput{RideID: rideID, Seats: 2, Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, model.BookingPending, b.Status)

	_, err = pat.Bookings.Create(ctx, model.BookingInput{RideID: rideID, Seats: 1})
	assert.Equal(t, "You already have a booking for this ride", errs.Message(err, ""))

	qb, err := quinn.Bookings.Create(ctx, model.BookingInput{RideID: rideID, Seats: 1})
	require.NoError(t, err)

	_, err = pat.Bookings.Accept(ctx, b.ID)
	require.ErrorIs(t, err, errs.ErrForbidden)

	acc, err := driver.Bookings.Accept(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingAccepted, acc.Status)
	assert.Equal(t, 0, acc.Ride.SeatsAvailable)

	_, err = driver.Bookings.Accept(ctx, b.ID)
	assert.Equal(t, "Can only accept pending bookings", errs.Message(err, ""))

	_, err = driver.Bookings.Accept(ctx, qb.ID)
	require.ErrorIs(t, err, errs.ErrValidation)
	assert.Equal(t, "Not enough seats available", errs.Message(err, ""))

	pending, err := driver.Bookings.List(ctx, model.BookingFilter{As: model.AsDriver, Status: model.BookingPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, qb.ID, pending[0].ID)

	require.ErrorIs(t, driver.Bookings.Cancel(ctx, b.ID), errs.ErrForbidden)
	require.NoError(t, pat.Bookings.Cancel(ctx, b.ID))
	err = pat.Bookings.Cancel(ctx, b.ID)
	assert.Equal(t, "Booking already cancelled or declined", errs.Message(err, ""))

	r, err := pat.Rides.Get(ctx, rideID)
	require.NoError(t, err)
	assert.Equal(t, 2, r.SeatsAvailable, "seats restored")

	forRide, err := driver.Bookings.ForRide(ctx, rideID)
	require.NoError(t, err)
	assert.Len(t, forRide, 2)

	none, err := quinn.Bookings.ForRide(ctx, rideID)
	require.NoError(t, err)
	assert.Empty(t, none)

	dec, err := driver.Bookings.Decline(ctx, qb.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingDeclined, dec.Status)

	mine, err := quinn.Bookings.MyRequests(ctx)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, model.BookingDeclined, mine[0].Status)
}

func TestBookings_InstantAndClosedRide(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	d := e.user("d@x.com", "Dee")
	e.user("p@x.com", "Pat")
	in := upcoming("NYC", "Boston", day, 3)
	in.InstantBooking = true
	instant := e.srv.AddRide(d, in)
	done := e.srv.AddRide(d, upcoming("NYC", "Boston", day, 3))
	require.NoError(t, e.srv.SetRideStatus(done, model.RideCompleted))
	pat := e.as("p@x.com")
	ctx := context.Background()

	b, err := pat.Bookings.Create(ctx, model.BookingInput{RideID: instant, Seats: 2})
	require.NoError(t, err)
	assert.Equal(t, model.BookingAccepted, b.Status)
	assert.Equal(t, 1, b.Ride.SeatsAvailable)

	_, err = pat.Bookings.Create(ctx, model.BookingInput{RideID: done, Seats: 1})
	assert.Equal(t, "Cannot book seats on this ride", errs.Message(err, ""))
}

func TestNotifications_Flow(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	d := e.user("d@x.com", "Dee")
	e.user("p@x.com", "Pat")
	driver, pat := e.as("d@x.com"), e.as("p@x.com")
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		rideID := e.srv.AddRide(d, upcoming("NYC", "Boston", day.AddDate(0, 0, i), 1))
		_, err := pat.Bookings.Create(ctx, model.BookingInput{RideID: rideID, Seats: 1})
		require.NoError(t, err)
	}

	c, err := driver.Notifications.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, c)

	page, err := driver.Notifications.List(ctx, model.NotificationFilter{PageSize: 5})
	require.NoError(t, err)
	require.Len(t, page, 5)
	assert.Equal(t, model.NotifRideRequest, page[0].Type)
	assert.Equal(t, "Pat Test", page[0].SenderName)
	assert.Equal(t, "Pat Test requested 1 seat(s) for your ride from NYC to Boston.", page[0].Message)

	n, err := driver.Notifications.MarkRead(ctx, page[0].ID)
	require.NoError(t, err)
	assert.True(t, n.IsRead)

	_, err = pat.Notifications.MarkRead(ctx, page[1].ID)
	require.ErrorIs(t, err, errs.ErrNotFound, "someone else's notification")

	unread := false
	left, err := driver.Notifications.List(ctx, model.NotificationFilter{IsRead: &unread, PageSize: 20})
	require.NoError(t, err)
	assert.Len(t, left, 6)

	msg, err := driver.Notifications.MarkAllRead(ctx)
	require.NoError(t, err)
	assert.Equal(t, "6 notifications marked as read", msg)

	c, err = driver.Notifications.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, c)

	mine, err := pat.Bookings.MyRequests(ctx)
	require.NoError(t, err)
	_, err = driver.Bookings.Accept(ctx, mine[0].ID)
	require.NoError(t, err)
	got, err := pat.Notifications.List(ctx, model.NotificationFilter{Type: model.NotifRequestAccepted})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Ride Request Accepted", got[0].Title)
}

func TestReviews_Participation(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	d := e.user("d@x.com", "Dee")
	pid := e.user("p@x.com", "Pat")
	e.user("x@x.com", "Xan")
	rideID := e.srv.AddRide(d, upcoming("NYC", "Boston", day, 2))
	driver, pat, stranger := e.as("d@x.com"), e.as("p@x.com"), e.as("x@x.com")
	ctx := context.Background()

	b, err := pat.Bookings.Create(ctx, model.BookingInput{RideID: rideID, Seats: 1})
	require.NoError(t, err)

	_, err = pat.Reviews.Create(ctx, model.ReviewInput{RideID: rideID, RevieweeID: d, Rating: 5})
	assert.Equal(t, "You must be a participant of this ride to leave a review", errs.Message(err, ""))

	_, err = driver.Bookings.Accept(ctx, b.ID)
	require.NoError(t, err)

	rv, err := pat.Reviews.Create(ctx, model.ReviewInput{RideID: rideID, RevieweeID: d, Rating: 4, Comment: "ok"})
	require.NoError(t, err)
	assert.Equal(t, rideID, rv.RideID)

	_, err = pat.Reviews.Create(ctx, model.ReviewInput{RideID: rideID, RevieweeID: d, Rating: 5})
	assert.Equal(t, "You have already reviewed this user for this ride", errs.Message(err, ""))

	_, err = stranger.Reviews.Create(ctx, model.ReviewInput{RideID: rideID, RevieweeID: d, Rating: 5})
	assert.Equal(t, "You must be a participant of this ride to leave a review", errs.Message(err, ""))

	_, err = driver.Reviews.Create(ctx, model.ReviewInput{RideID: rideID, RevieweeID: d, Rating: 5})
	assert.Equal(t, "Cannot review yourself", errs.Message(err, ""))

	_, err = driver.Reviews.Create(ctx, model.ReviewInput{RideID: rideID, RevieweeID: pid, Rating: 5})
	require.NoError(t, err)

	forDriver, err := stranger.Reviews.ForUser(ctx, d)
	require.NoError(t, err)
	require.Len(t, forDriver, 1)
	assert.Equal(t, 4, forDriver[0].Rating)

	forRide, err := stranger.Reviews.ForRide(ctx, rideID)
	require.NoError(t, err)
	assert.Len(t, forRide, 2)

	st, err := stranger.Users.Stats(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, 1, st.ReviewsCount)
	assert.InDelta(t, 4.0, st.Rating, 1e-9)
}

func TestSeed(t *testing.T) {
	t.Parallel()

	e := newEnv(t)
	require.NoError(t, e.srv.Seed())
	svcs, _ := e.anon()
	rides, err := svcs.Rides.Search(context.Background(), model.RideFilter{Origin: "NYC"})
	require.NoError(t, err)
	assert.Len(t, rides, 2)
	require.Error(t, e.srv.Seed(), "emails are unique")
}
