// Command rs-stub serves an in-memory RideShare REST backend for local runs.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/rideshare/internal/config"
	"github.com/and161185/rideshare/internal/crypto"
	"github.com/and161185/rideshare/internal/logging"
	"github.com/and161185/rideshare/internal/stub"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, optionally seeds demo data and serves until
// SIGINT or SIGTERM.
func main() {
	cfg, err := config.LoadStubConfig()
	if err != nil {
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(2)
	}

	addr := flag.String("addr", cfg.Addr, "listen address")
	jwtKey := flag.String("jwt-key", cfg.JWTKey, "HS256 signing key (random when empty)")
	accessTTL := flag.Duration("access-ttl", cfg.AccessTTL, "access token TTL")
	seed := flag.Bool("seed", false, "load demo users and rides")
	logLevel := flag.String("log-level", cfg.LogLevel, "log level")
	flag.Parse()

	logger, err := logging.New(*logLevel)
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", *addr),
	)

	key := []byte(*jwtKey)
	if len(key) == 0 {
		if key, err = crypto.RandBytes(32); err != nil {
			logger.Fatal("generate signing key", zap.Error(err))
		}
		logger.Warn("no signing key configured; tokens will not survive a restart")
	}

	backend, err := stub.New(key,
		stub.WithLogger(logger),
		stub.WithTokenTTL(*accessTTL, cfg.RefreshTTL),
	)
	if err != nil {
		logger.Fatal("stub.New", zap.Error(err))
	}
	if *seed {
		if err := backend.Seed(); err != nil {
			logger.Fatal("seed", zap.Error(err))
		}
		logger.Info("seeded demo data", zap.String("password", "password123"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              *addr,
		Handler:           backend.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", *addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shCtx); err != nil {
			logger.Warn("graceful shutdown", zap.Error(err))
			_ = srv.Close()
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}
