package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/rideshare/internal/errs"
	"github.com/and161185/rideshare/internal/model"
	"github.com/and161185/rideshare/internal/notify"
)

func cmdNotifications(a *app, args []string) error {
	fs := a.flags("notifications")
	typ := fs.String("type", "", "notification type")
	unread := fs.Bool("unread", false, "only unread")
	pageSize := fs.Int("page-size", 0, "page size")
	page := fs.Int("page", 0, "page number")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	f := model.NotificationFilter{Type: model.NotificationType(*typ), PageSize: *pageSize, Page: *page}
	if *unread {
		no := false
		f.IsRead = &no
	}
	list, err := a.svc.Notifications.List(a.ctx, f)
	if err != nil {
		return err
	}
	a.printJSON(list)
	return nil
}

// dropdown opens the recent-notifications list for the logged in user.
func (a *app) dropdown() (*notify.Dropdown, *notify.Indicator, error) {
	s, err := a.me()
	if err != nil {
		return nil, nil, err
	}
	ind := notify.NewIndicator(s.Snapshot().User.ID, notify.WithGauge(a.metrics))
	d := notify.NewDropdown(a.svc.Notifications, ind, a.cfg.DropdownSize)
	if err := d.Open(a.ctx); err != nil {
		return nil, nil, err
	}
	return d, ind, nil
}

func (a *app) printDropdown(d *notify.Dropdown, ind *notify.Indicator) {
	out := map[string]any{"recent": d.Items()}
	if n, ok := ind.Count(); ok {
		out["unread"] = n
	}
	a.printJSON(out)
}

func cmdRead(a *app, args []string) error {
	fs := a.flags("read")
	id := fs.Int64("id", 0, "notification id")
	if err := fs.Parse(args); err != nil || *id <= 0 {
		return errUsage
	}
	d, ind, err := a.dropdown()
	if err != nil {
		return err
	}
	defer d.Close()
	if err := d.MarkRead(a.ctx, *id); err != nil {
		return err
	}
	a.printDropdown(d, ind)
	return nil
}

func cmdReadAll(a *app, _ []string) error {
	d, ind, err := a.dropdown()
	if err != nil {
		return err
	}
	defer d.Close()
	if err := d.MarkAllRead(a.ctx); err != nil {
		return err
	}
	a.printDropdown(d, ind)
	return nil
}

func cmdUnread(a *app, _ []string) error {
	n, err := a.svc.Notifications.UnreadCount(a.ctx)
	if err != nil {
		return err
	}
	a.println(n)
	return nil
}

// cmdWatch polls the unread count and prints every change until -for
// elapses or the process is interrupted.
func cmdWatch(a *app, args []string) error {
	fs := a.flags("watch")
	interval := fs.Duration("interval", a.cfg.PollInterval, "poll interval")
	dur := fs.Duration("for", 0, "stop after this long (0: until interrupted)")
	metricsAddr := fs.String("metrics-addr", a.cfg.MetricsAddr, "serve Prometheus metrics on this address")
	useKafka := fs.Bool("kafka", len(a.cfg.KafkaBrokers) > 0, "publish changes to Kafka")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *interval <= 0 {
		return errUsage
	}
	s, err := a.me()
	if err != nil {
		return err
	}

	sinks := []notify.Sink{
		notify.FuncSink(func(_ context.Context, u notify.Update) error {
			_, err := fmt.Fprintf(a.out, "unread: %d\n", u.Unread)
			return err
		}),
		notify.LogSink{Log: a.log},
	}
	if *useKafka {
		if len(a.cfg.KafkaBrokers) == 0 {
			return errors.New("-kafka needs RIDESHARE_KAFKA_BROKERS")
		}
		ks := notify.NewKafkaSink(a.cfg.KafkaBrokers, a.cfg.KafkaTopic)
		defer func() {
			if err := ks.Close(); err != nil {
				a.log.Warn("close kafka writer", zap.Error(err))
			}
		}()
		sinks = append(sinks, ks)
	}

	if *metricsAddr != "" {
		srv := &http.Server{Addr: *metricsAddr, Handler: a.metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error("metrics server", zap.Error(err))
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	ctx := a.ctx
	if *dur > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *dur)
		defer cancel()
	}

	ind := notify.NewIndicator(s.Snapshot().User.ID,
		notify.WithSinks(sinks...),
		notify.WithIndicatorLogger(a.log),
		notify.WithGauge(a.metrics),
	)
	// A 401 on any poll clears the session; polling stops with it.
	ended := make(chan struct{})
	var once sync.Once
	unsubscribe := s.Subscribe(func(snap model.Session) {
		if !snap.Loading && !snap.Authenticated() {
			once.Do(func() { close(ended) })
		}
	})
	defer unsubscribe()

	p := notify.Start(ctx, a.svc.Notifications, ind,
		notify.WithInterval(*interval),
		notify.WithLogger(a.log),
		notify.WithMetrics(a.metrics),
	)
	defer p.Stop()
	select {
	case <-ctx.Done():
	case <-p.Done():
	case <-ended:
		return &errs.APIError{Kind: errs.ErrAuth, Message: "session ended"}
	}
	return nil
}
