package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/and161185/rideshare/internal/api"
	"github.com/and161185/rideshare/internal/config"
	"github.com/and161185/rideshare/internal/errs"
	"github.com/and161185/rideshare/internal/migrate"
	"github.com/and161185/rideshare/internal/observability"
	"github.com/and161185/rideshare/internal/reconcile"
	"github.com/and161185/rideshare/internal/service"
	"github.com/and161185/rideshare/internal/session"
	"github.com/and161185/rideshare/internal/storage"
	"github.com/and161185/rideshare/internal/storage/file"
	"github.com/and161185/rideshare/internal/storage/postgres"
	"github.com/and161185/rideshare/internal/storage/redisstore"
)

// app is the client stack of one invocation.
type app struct {
	ctx     context.Context
	cfg     config.ClientConfig
	log     *zap.Logger
	metrics *observability.Metrics

	kv      storage.Store
	client  *api.Client
	svc     *service.Services
	session *session.Store
	hub     *reconcile.Hub

	out    io.Writer
	errOut io.Writer
}

func newApp(ctx context.Context, cfg config.ClientConfig, log *zap.Logger, stdout, stderr io.Writer) (*app, error) {
	kv, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	m := observability.New()
	client, err := api.New(cfg.APIURL, kv,
		api.WithTimeout(cfg.Timeout),
		api.WithLogger(log),
		api.WithMetrics(m),
		api.WithUserAgent("rs/"+version),
	)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}
	svc := service.New(client)
	return &app{
		ctx:     ctx,
		cfg:     cfg,
		log:     log,
		metrics: m,
		kv:      kv,
		client:  client,
		svc:     svc,
		session: session.New(svc.Users, kv, session.WithLogger(log), session.WithAuthNotifier(client)),
		hub:     reconcile.New(svc, reconcile.WithLogger(log), reconcile.WithMetrics(m)),
		out:     stdout,
		errOut:  stderr,
	}, nil
}

func (a *app) close() {
	a.session.Close()
	if err := a.kv.Close(); err != nil {
		a.log.Warn("close store", zap.Error(err))
	}
}

// openStore selects the credential backend.
func openStore(ctx context.Context, cfg config.ClientConfig) (storage.Store, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return storage.NewMemory(), nil
	case config.StoreRedis:
		s := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisPrefix)
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("redis store: %w", err)
		}
		return s, nil
	case config.StorePostgres:
		if err := migrate.Up(ctx, cfg.PGDSN); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return postgres.New(ctx, cfg.PGDSN, cfg.APIURL)
	default:
		if err := os.MkdirAll(cfg.StoreDir, 0o700); err != nil {
			return nil, err
		}
		return file.New(cfg.StoreDir, cfg.StorePassphrase)
	}
}

// me resolves the persisted session; commands that act as the user call it
// before anything else.
func (a *app) me() (*session.Store, error) {
	if err := a.session.Init(a.ctx); err != nil {
		return nil, err
	}
	if !a.session.Snapshot().Authenticated() {
		return nil, errs.ErrNotAuthenticated
	}
	return a.session, nil
}

func (a *app) printJSON(v any) {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func (a *app) println(args ...any) { fmt.Fprintln(a.out, args...) }

// fail prints err the way a user should see it and returns the exit status.
func fail(w io.Writer, err error) int {
	switch {
	case errors.Is(err, errs.ErrNotAuthenticated), errors.Is(err, errs.ErrAuth):
		msg := errs.Message(err, "")
		if msg == "" || errors.Is(err, errs.ErrNotAuthenticated) {
			msg = "not logged in"
		}
		fmt.Fprintf(w, "%s (run rs login)\n", msg)
	case errors.Is(err, errs.ErrTimeout):
		fmt.Fprintln(w, "request timed out")
	case errors.Is(err, errs.ErrNetwork):
		fmt.Fprintln(w, "backend unreachable:", errors.Unwrap(err))
	default:
		fmt.Fprintln(w, errs.Message(err, err.Error()))
		printFields(w, errs.FieldErrors(err))
	}
	return 1
}

func printFields(w io.Writer, fields map[string][]string) {
	if len(fields) < 2 {
		return
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %s\n", k, strings.Join(fields[k], " "))
	}
}
