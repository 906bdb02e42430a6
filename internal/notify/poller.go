package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/rideshare/internal/observability"
)

// DefaultInterval is the unread-count poll period.
const DefaultInterval = 10 * time.Second

// Poller refreshes an Indicator on a fixed interval until stopped.
type Poller struct {
	counter  Counter
	ind      *Indicator
	interval time.Duration
	log      *zap.Logger
	metrics  *observability.Metrics

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithInterval overrides DefaultInterval.
func WithInterval(d time.Duration) PollerOption { return func(p *Poller) { p.interval = d } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) PollerOption { return func(p *Poller) { p.log = l } }

// WithMetrics counts polls by result.
func WithMetrics(m *observability.Metrics) PollerOption { return func(p *Poller) { p.metrics = m } }

// Start fetches the count once right away, then every interval, until Stop
// is called or ctx is done.
func Start(ctx context.Context, c Counter, ind *Indicator, opts ...PollerOption) *Poller {
	p := &Poller{
		counter:  c,
		ind:      ind,
		interval: DefaultInterval,
		log:      zap.NewNop(),
		done:     make(chan struct{}),
	}
	for _, o := range opts {
		o(p)
	}
	if p.interval <= 0 {
		p.interval = DefaultInterval
	}
	ctx, p.cancel = context.WithCancel(ctx)
	go p.run(ctx)
	return p
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)

	p.poll(ctx)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	err := p.ind.Refresh(ctx, p.counter)
	if ctx.Err() != nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
		p.log.Warn("poll unread count", zap.Error(err))
	}
	if p.metrics != nil {
		p.metrics.PollsTotal.WithLabelValues(result).Inc()
	}
}

// Stop ends polling and waits for the loop to exit. It is safe to call more
// than once; no fetch starts after it returns.
func (p *Poller) Stop() {
	p.once.Do(p.cancel)
	<-p.done
}

// Done is closed once the loop has exited.
func (p *Poller) Done() <-chan struct{} { return p.done }
