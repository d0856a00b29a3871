package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/GregMSThompson/dockly/pkg/api"
	"github.com/GregMSThompson/dockly/pkg/logger"
)

const usage = `usage: dockly [flags] <command> [command flags]

commands:
  list     list markers
  add      add a marker
  edit     edit a marker
  open     show a marker as opened on the map
  me       show or update your profile
  verify   check, resend or wait for email verification

environment:
  DOCKLY_API        backend base URL (default http://localhost:8080)
  DOCKLY_TOKEN      Firebase ID token
  DOCKLY_LOG_LEVEL  debug, info, warn or error (default warn)
`

var errUsage = errors.New("usage")

type app struct {
	client *api.Client
	stdout io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Args[1:], os.Getenv, os.Stdout, os.Stderr)
	if errors.Is(err, errUsage) {
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "dockly:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, getenv func(string) string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("dockly", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	apiURL := fs.String("api", envOr(getenv, "DOCKLY_API", "http://localhost:8080"), "backend base URL")
	token := fs.String("token", getenv("DOCKLY_TOKEN"), "Firebase ID token")
	level := fs.String("log-level", envOr(getenv, "DOCKLY_LOG_LEVEL", "warn"), "log level")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}

	log := logger.New(*level, func(l slog.Level) slog.Handler {
		return logger.NewCloudRunHandlerWriter(l, stderr)
	})
	ctx = logger.ToContext(ctx, log)

	opts := []api.Option{api.WithLogger(log)}
	if *token != "" {
		opts = append(opts, api.WithTokenSource(api.StaticToken(*token)))
	}
	a := &app{
		client: api.New(*apiURL, opts...),
		stdout: stdout,
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "list":
		return a.list(ctx, rest)
	case "add":
		return a.add(ctx, rest)
	case "edit":
		return a.edit(ctx, rest)
	case "open":
		return a.open(ctx, rest)
	case "me":
		return a.me(ctx, rest)
	case "verify":
		return a.verify(ctx, rest)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", cmd)
		fs.Usage()
		return errUsage
	}
}

func envOr(getenv func(string) string, key, fallback string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return fallback
}
