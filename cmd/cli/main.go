// Command rs is a CLI client for the RideShare backend.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"go.uber.org/zap"

	"github.com/and161185/rideshare/internal/config"
	"github.com/and161185/rideshare/internal/logging"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// errUsage makes run exit with status 2 after printing usage.
var errUsage = errors.New("usage")

type command struct {
	run     func(a *app, args []string) error
	summary string
}

var commands = map[string]command{
	"register":       {cmdRegister, "-email -username -first -last -password [-confirm]"},
	"login":          {cmdLogin, "-email -password"},
	"logout":         {cmdLogout, ""},
	"whoami":         {cmdWhoami, ""},
	"profile":        {cmdProfile, "[-id N]"},
	"update-profile": {cmdUpdateProfile, "[-first] [-last] [-bio] [-phone] [-location] [-avatar file]"},
	"stats":          {cmdStats, "-id N"},

	"rides":       {cmdRides, "[-origin] [-destination] [-date YYYY-MM-DD] [-status] [-page N]"},
	"search":      {cmdSearch, "[-origin] [-destination] [-date] [-after] [-min-price] [-max-price] [-seats N] [-instant]"},
	"ride":        {cmdRide, "-id N"},
	"publish":     {cmdPublish, "-origin -destination -departure TIME -price P -seats N [-total N] [-instant] [-description]"},
	"edit-ride":   {cmdEditRide, "-id N [same flags as publish]"},
	"cancel-ride": {cmdCancelRide, "-id N"},
	"my-rides":    {cmdMyRides, ""},
	"car":         {cmdCar, ""},
	"set-car":     {cmdSetCar, "[-make] [-model] [-color] [-year] [-plate] [-image file]"},

	"book":           {cmdBook, "-ride N [-seats N] [-message]"},
	"cancel-booking": {cmdCancelBooking, "-id N"},
	"requests":       {cmdRequests, "[-status pending]"},
	"ride-bookings":  {cmdRideBookings, "-ride N"},
	"accept":         {cmdAccept, "-id N"},
	"decline":        {cmdDecline, "-id N"},
	"my-requests":    {cmdMyRequests, ""},

	"notifications": {cmdNotifications, "[-type] [-unread] [-page-size N]"},
	"read":          {cmdRead, "-id N"},
	"read-all":      {cmdReadAll, ""},
	"unread":        {cmdUnread, ""},
	"watch":         {cmdWatch, "[-interval D] [-for D] [-metrics-addr ADDR] [-kafka]"},

	"review":  {cmdReview, "-ride N -user N -rating 1..5 [-comment]"},
	"reviews": {cmdReviews, "(-user N | -ride N)"},
}

func usage(w io.Writer) {
	fmt.Fprintf(w, `rs CLI
Usage:
  rs [-api URL] [-timeout D] [-store file|memory|redis|postgres] [-log-level L] <cmd> [args]

Commands:
  version
`)
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(w, "  %-15s %s\n", n, commands[n].summary)
	}
}

// main wires signals and exits with run's status.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run parses global flags, builds the client stack and dispatches one
// subcommand. It returns the process exit status.
func run(ctx context.Context, argv []string, stdout, stderr io.Writer) int {
	cfg, err := config.LoadClientConfig()
	if err != nil {
		fmt.Fprintln(stderr, "config:", err)
		return 2
	}

	fs := flag.NewFlagSet("rs", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { usage(stderr) }
	fs.StringVar(&cfg.APIURL, "api", cfg.APIURL, "backend base URL")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "per-request timeout")
	fs.StringVar(&cfg.Store, "store", cfg.Store, "credential store: file, memory, redis or postgres")
	fs.StringVar(&cfg.StoreDir, "store-dir", cfg.StoreDir, "directory of the file store")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	if err := fs.Parse(argv); err != nil {
		return 2
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		fmt.Fprintln(stderr, "config:", errors.Join(errs...))
		return 2
	}
	if fs.NArg() < 1 {
		usage(stderr)
		return 2
	}
	name, args := fs.Arg(0), fs.Args()[1:]

	if name == "version" {
		fmt.Fprintf(stdout, "rs %s (%s)\n", version, buildDate)
		return 0
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n", name)
		usage(stderr)
		return 2
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	defer func() { _ = logger.Sync() }()

	a, err := newApp(ctx, cfg, logger, stdout, stderr)
	if err != nil {
		logger.Debug("startup", zap.Error(err))
		return fail(stderr, err)
	}
	defer a.close()

	if err := cmd.run(a, args); err != nil {
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(stderr, "usage: rs %s %s\n", name, cmd.summary)
			return 2
		}
		return fail(stderr, err)
	}
	return 0
}
