// Package notify keeps an unread-notification indicator approximately
// current: a Poller refreshes the count on an interval, a Dropdown shows the
// most recent page and marks items read.
package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/rideshare/internal/observability"
)

// Counter fetches the unread count. service.NotificationService satisfies it.
type Counter interface {
	UnreadCount(ctx context.Context) (int, error)
}

// Update is published whenever the unread count changes.
type Update struct {
	UserID int64     `json:"user_id"`
	Unread int       `json:"unread"`
	At     time.Time `json:"at"`
}

// Sink receives count changes.
type Sink interface {
	Publish(ctx context.Context, u Update) error
}

// FuncSink adapts a function to Sink.
type FuncSink func(ctx context.Context, u Update) error

func (f FuncSink) Publish(ctx context.Context, u Update) error { return f(ctx, u) }

// LogSink writes every change to a logger.
type LogSink struct {
	Log *zap.Logger
}

func (s LogSink) Publish(_ context.Context, u Update) error {
	s.Log.Info("unread notifications", zap.Int64("user_id", u.UserID), zap.Int("unread", u.Unread))
	return nil
}

// Indicator holds the last observed unread count.
type Indicator struct {
	userID  int64
	sinks   []Sink
	log     *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time

	mu    sync.Mutex
	count int
	known bool
}

// IndicatorOption configures an Indicator.
type IndicatorOption func(*Indicator)

// WithSinks adds sinks notified on every change.
func WithSinks(s ...Sink) IndicatorOption {
	return func(i *Indicator) { i.sinks = append(i.sinks, s...) }
}

// WithIndicatorLogger sets the logger used for sink failures.
func WithIndicatorLogger(l *zap.Logger) IndicatorOption { return func(i *Indicator) { i.log = l } }

// WithGauge mirrors the count into the unread gauge.
func WithGauge(m *observability.Metrics) IndicatorOption { return func(i *Indicator) { i.metrics = m } }

// NewIndicator creates an indicator for userID with no count yet.
func NewIndicator(userID int64, opts ...IndicatorOption) *Indicator {
	i := &Indicator{userID: userID, log: zap.NewNop(), now: time.Now}
	for _, o := range opts {
		o(i)
	}
	return i
}

// Count returns the last count and whether one was ever observed.
func (i *Indicator) Count() (int, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.count, i.known
}

// Set records n. Sinks hear about it only when it differs from the previous
// value, or is the first one.
func (i *Indicator) Set(ctx context.Context, n int) {
	if n < 0 {
		n = 0
	}
	i.mu.Lock()
	changed := !i.known || i.count != n
	i.count, i.known = n, true
	i.mu.Unlock()

	if i.metrics != nil {
		i.metrics.UnreadNotifications.Set(float64(n))
	}
	if !changed {
		return
	}
	u := Update{UserID: i.userID, Unread: n, At: i.now().UTC()}
	for _, s := range i.sinks {
		if err := s.Publish(ctx, u); err != nil {
			i.log.Warn("publish unread count", zap.Error(err))
		}
	}
}

// Refresh fetches the count from c and records it. On failure the previous
// count stays.
func (i *Indicator) Refresh(ctx context.Context, c Counter) error {
	n, err := c.UnreadCount(ctx)
	if err != nil {
		return err
	}
	i.Set(ctx, n)
	return nil
}
