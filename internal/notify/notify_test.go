package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/rideshare/internal/api"
	"github.com/and161185/rideshare/internal/model"
	"github.com/and161185/rideshare/internal/observability"
	"github.com/and161185/rideshare/internal/service"
	"github.com/and161185/rideshare/internal/storage"
	"github.com/and161185/rideshare/internal/stub"
)

const (
	timeout = 2 * time.Second
	tick    = 5 * time.Millisecond
)

// fakeNotifications serves a fixed list and count.
type fakeNotifications struct {
	mu         sync.Mutex
	unread     int
	items      []model.Notification
	countErr   error
	markErr    error
	countCalls int
	marked     []int64
}

var _ Notifications = (*fakeNotifications)(nil)

func (f *fakeNotifications) UnreadCount(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countCalls++
	return f.unread, f.countErr
}

func (f *fakeNotifications) List(_ context.Context, nf model.NotificationFilter) ([]model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]model.Notification(nil), f.items...)
	if nf.PageSize > 0 && len(out) > nf.PageSize {
		out = out[:nf.PageSize]
	}
	return out, nil
}

func (f *fakeNotifications) MarkRead(_ context.Context, id int64) (*model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return nil, f.markErr
	}
	f.marked = append(f.marked, id)
	f.unread--
	return &model.Notification{ID: id, IsRead: true}, nil
}

func (f *fakeNotifications) MarkAllRead(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return "", f.markErr
	}
	f.unread = 0
	return "All notifications marked as read", nil
}

func (f *fakeNotifications) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.countCalls
}

func (f *fakeNotifications) setUnread(n int) {
	f.mu.Lock()
	f.unread = n
	f.mu.Unlock()
}

func unreadItems(n int) []model.Notification {
	out := make([]model.Notification, n)
	for i := range out {
		out[i] = model.Notification{ID: int64(i + 1), Type: model.NotifRideRequest, Title: "New Ride Request"}
	}
	return out
}

type recordingSink struct {
	mu      sync.Mutex
	updates []Update
}

func (s *recordingSink) Publish(_ context.Context, u Update) error {
	s.mu.Lock()
	s.updates = append(s.updates, u)
	s.mu.Unlock()
	return nil
}

func (s *recordingSink) all() []Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Update(nil), s.updates...)
}

func TestPoller_FetchesImmediatelyThenOnInterval(t *testing.T) {
	t.Parallel()

	f := &fakeNotifications{unread: 3}
	m := observability.New()
	ind := NewIndicator(7, WithGauge(m))
	p := Start(context.Background(), f, ind, WithInterval(time.Hour), WithMetrics(m))
	t.Cleanup(p.Stop)

	require.Eventually(t, func() bool { return f.calls() == 1 }, timeout, tick)
	n, ok := ind.Count()
	assert.True(t, ok)
	assert.Equal(t, 3, n)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.PollsTotal.WithLabelValues("ok")) == 1
	}, timeout, tick)
	assert.InDelta(t, 3, testutil.ToFloat64(m.UnreadNotifications), 0)

	fast := &fakeNotifications{unread: 1}
	p2 := Start(context.Background(), fast, NewIndicator(7), WithInterval(10*time.Millisecond))
	require.Eventually(t, func() bool { return fast.calls() >= 3 }, timeout, tick)
	p2.Stop()
}

func TestPoller_StopIsFinalAndIdempotent(t *testing.T) {
	t.Parallel()

	f := &fakeNotifications{}
	p := Start(context.Background(), f, NewIndicator(1), WithInterval(5*time.Millisecond))
	require.Eventually(t, func() bool { return f.calls() >= 2 }, timeout, tick)

	p.Stop()
	p.Stop()
	select {
	case <-p.Done():
	default:
		t.Fatal("done not closed after Stop")
	}
	after := f.calls()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, f.calls())
}

func TestPoller_ContextCancelStops(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	p := Start(ctx, &fakeNotifications{}, NewIndicator(1), WithInterval(5*time.Millisecond))
	cancel()
	select {
	case <-p.Done():
	case <-time.After(timeout):
		t.Fatal("poller still running after cancel")
	}
	p.Stop()
}

func TestPoller_ErrorsAreNotFatal(t *testing.T) {
	t.Parallel()

	f := &fakeNotifications{countErr: errors.New("boom")}
	m := observability.New()
	ind := NewIndicator(1)
	p := Start(context.Background(), f, ind,
		WithInterval(5*time.Millisecond), WithMetrics(m), WithLogger(zaptest.NewLogger(t)))
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.PollsTotal.WithLabelValues("error")) >= 2
	}, timeout, tick)
	p.Stop()

	_, ok := ind.Count()
	assert.False(t, ok)
}

func TestIndicator_PublishesOnChangeOnly(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	var fn []int
	ind := NewIndicator(42, WithSinks(sink, FuncSink(func(_ context.Context, u Update) error {
		fn = append(fn, u.Unread)
		return errors.New("ignored")
	})), WithIndicatorLogger(zaptest.NewLogger(t)))
	ctx := context.Background()

	ind.Set(ctx, 0)
	ind.Set(ctx, 0)
	ind.Set(ctx, 2)
	ind.Set(ctx, 2)
	ind.Set(ctx, -1)

	got := sink.all()
	require.Len(t, got, 3)
	assert.Equal(t, []int{0, 2, 0}, []int{got[0].Unread, got[1].Unread, got[2].Unread})
	assert.Equal(t, int64(42), got[0].UserID)
	assert.False(t, got[0].At.IsZero())
	assert.Equal(t, []int{0, 2, 0}, fn)

	require.NoError(t, LogSink{Log: zaptest.NewLogger(t)}.Publish(ctx, got[0]))
}

func TestDropdown_MarkReadPatchesOneAndRecounts(t *testing.T) {
	t.Parallel()

	f := &fakeNotifications{unread: 7, items: unreadItems(7)}
	ind := NewIndicator(1)
	d := NewDropdown(f, ind, 0)
	ctx := context.Background()

	require.NoError(t, d.Open(ctx))
	items := d.Items()
	require.Len(t, items, PageSize, "count and list may disagree")

	require.NoError(t, d.MarkRead(ctx, 2))
	for _, n := range d.Items() {
		assert.Equal(t, n.ID == 2, n.IsRead, "item %d", n.ID)
	}
	assert.Equal(t, 1, f.calls())
	n, _ := ind.Count()
	assert.Equal(t, 6, n)

	// Another notification arrived meanwhile: the count comes from the server.
	f.setUnread(9)
	require.NoError(t, d.MarkAllRead(ctx))
	for _, n := range d.Items() {
		assert.True(t, n.IsRead)
	}
	n, _ = ind.Count()
	assert.Equal(t, 0, n)
	assert.Equal(t, 2, f.calls())
}

func TestDropdown_FailureChangesNothing(t *testing.T) {
	t.Parallel()

	f := &fakeNotifications{unread: 2, items: unreadItems(2)}
	ind := NewIndicator(1)
	d := NewDropdown(f, ind, 0)
	ctx := context.Background()
	require.NoError(t, d.Open(ctx))

	f.markErr = errors.New("network down")
	require.Error(t, d.MarkRead(ctx, 1))
	require.Error(t, d.MarkAllRead(ctx))
	for _, n := range d.Items() {
		assert.False(t, n.IsRead)
	}
	assert.Zero(t, f.calls())

	d.Close()
	assert.Empty(t, d.Items())
	require.Error(t, d.Open(ctx))
}

type fakeWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaSink_Payload(t *testing.T) {
	t.Parallel()

	w := &fakeWriter{}
	s := &KafkaSink{w: w}
	at := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.Publish(context.Background(), Update{UserID: 5, Unread: 3, At: at}))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "5", string(w.msgs[0].Key))

	var got map[string]any
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, map[string]any{"user_id": float64(5), "unread": float64(3), "at": "2024-01-01T09:00:00Z"}, got)

	require.NoError(t, s.Close())
	assert.True(t, w.closed)
	assert.NotNil(t, NewKafkaSink([]string{"localhost:9092"}, "rideshare.unread"))
}

func TestDropdown_AgainstBackend(t *testing.T) {
	t.Parallel()

	backend, err := stub.New([]byte("notify-test-key"))
	require.NoError(t, err)
	ts := httptest.NewServer(backend.Handler())
	t.Cleanup(ts.Close)
	ctx := context.Background()

	login := func(email string) (*service.Services, int64) {
		id, err := backend.AddUser(email, "password123", "T", "User")
		require.NoError(t, err)
		kv := storage.NewMemory()
		c, err := api.New(ts.URL+"/api", kv)
		require.NoError(t, err)
		svc := service.New(c)
		tok, _, err := svc.Users.Login(ctx, email, "password123")
		require.NoError(t, err)
		require.NoError(t, kv.Set(ctx, storage.KeyToken, tok.Access))
		return svc, id
	}
	driver, driverID := login("driver@example.com")
	rider, _ := login("rider@example.com")

	for i := 0; i < 2; i++ {
		rideID := backend.AddRide(driverID, model.RideInput{
			Origin: "NYC", Destination: "Boston", DepartureTime: time.Now().Add(24 * time.Hour),
			Price: 10, SeatsAvailable: 2, TotalSeats: 2,
		})
		_, err := rider.Bookings.Create(ctx, model.BookingInput{RideID: rideID, Seats: 1})
		require.NoError(t, err)
	}

	sink := &recordingSink{}
	ind := NewIndicator(driverID, WithSinks(sink))
	p := Start(ctx, driver.Notifications, ind, WithInterval(time.Hour))
	require.Eventually(t, func() bool { n, ok := ind.Count(); return ok && n == 2 }, timeout, tick)
	p.Stop()

	d := NewDropdown(driver.Notifications, ind, 3)
	require.NoError(t, d.Open(ctx))
	items := d.Items()
	require.Len(t, items, 2)

	require.NoError(t, d.MarkRead(ctx, items[0].ID))
	n, _ := ind.Count()
	assert.Equal(t, 1, n)
	items = d.Items()
	assert.True(t, items[0].IsRead)
	assert.False(t, items[1].IsRead)

	require.NoError(t, d.MarkAllRead(ctx))
	n, _ = ind.Count()
	assert.Equal(t, 0, n)
	assert.Len(t, sink.all(), 3)
}
