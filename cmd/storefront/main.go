// Package main provides the storefront command line client.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/storefront/client/internal/domain/shared"
	"github.com/storefront/client/internal/infrastructure/config"
	"github.com/storefront/client/internal/infrastructure/httpclient"
	"github.com/storefront/client/internal/infrastructure/logger"
)

// Version information (populated at build time)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// Exit codes.
const (
	exitOK         = 0
	exitError      = 1
	exitUsage      = 2
	exitAuth       = 3
	exitNotFound   = 4
	exitDuplicated = 5
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run parses global flags, builds the client and dispatches the command.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet("storefront", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.SetInterspersed(false)
	flags.Usage = func() { printUsage(stderr) }

	flags.String("api-base-url", "", "Backend base URL (default http://localhost:8000)")
	flags.Duration("api-timeout", 0, "Per-request timeout")
	flags.Int("api-max-retries", 3, "Retries for server errors and network failures")
	flags.Float64("api-rate-limit", 0, "Client-side request rate limit per second (0 disables)")
	flags.String("session-store", "", "Where the session token is kept: file, redis, memory")
	flags.String("session-path", "", "Session file for the file store")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("log-format", "", "Log format (json, console)")
	output := flags.StringP("output", "o", "table", "Output format: table, json, yaml")
	metricsAddr := flags.String("prometheus", "", "Serve Prometheus metrics on this address while the command runs (e.g. :9091)")
	showVersion := flags.Bool("version", false, "Show version information")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if *showVersion {
		fmt.Fprintf(stdout, "storefront %s (commit %s, built %s)\n", version, gitCommit, buildTime)
		return exitOK
	}

	rest := flags.Args()
	if len(rest) == 0 {
		printUsage(stderr)
		return exitUsage
	}
	cmd, ok := lookupCommand(rest[0])
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", rest[0])
		printUsage(stderr)
		return exitUsage
	}

	p, err := newPrinter(stdout, *output)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	cfg, err := config.LoadWithFlags(flags)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return exitError
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: logger.DefaultConfig().TimeFormat,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Failed to initialize logger: %v\n", err)
		return exitError
	}
	defer logger.Sync(log)

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize client", zap.Error(err))
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitError
	}
	defer a.Close()

	if *metricsAddr != "" {
		stopMetrics := a.serveMetrics(*metricsAddr)
		defer stopMetrics()
	}

	if err := cmd.run(ctx, a, p, rest[1:]); err != nil {
		return reportError(stderr, err)
	}
	return exitOK
}

// reportError prints err for a human and maps it to an exit code.
func reportError(w io.Writer, err error) int {
	if errors.Is(err, pflag.ErrHelp) {
		return exitOK
	}
	var usage usageError
	if errors.As(err, &usage) {
		fmt.Fprintf(w, "usage: %s\n", usage.Error())
		return exitUsage
	}

	var verr *shared.ValidationError
	if errors.As(err, &verr) {
		fmt.Fprintln(w, "invalid input:")
		fields := make([]string, 0, len(verr.Fields))
		for f := range verr.Fields {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			fmt.Fprintf(w, "  %s: %s\n", f, verr.Fields[f])
		}
		return exitUsage
	}

	fmt.Fprintf(w, "error: %s\n", errorMessage(err))
	switch {
	case errors.Is(err, shared.ErrNotAuthenticated), httpclient.StatusOf(err) == http.StatusUnauthorized:
		fmt.Fprintln(w, "run `storefront login` to sign in")
		return exitAuth
	case errors.Is(err, shared.ErrNotFound), httpclient.StatusOf(err) == http.StatusNotFound:
		return exitNotFound
	case errors.Is(err, shared.ErrDuplicateSubmission):
		return exitDuplicated
	default:
		return exitError
	}
}

// errorMessage prefers the backend's detail over the wrapped chain.
func errorMessage(err error) string {
	var apiErr *httpclient.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

type usageError string

func (u usageError) Error() string { return string(u) }

func printUsage(w io.Writer) {
	fmt.Fprint(w, `storefront - command line client for the storefront backend

USAGE:
    storefront [global options] <command> [command options] [args]

ACCOUNT:
    login --email <e> --password <p> [--remember]
    register --first-name <f> --last-name <l> --email <e> --password <p> [--phone <n>]
    logout
    whoami
    addresses [list | add --file <addr.yaml> | default <id> | delete <id>]
    payments [list | add --type <t> [--card-number ...] | default <id> | delete <id>]

SHOPPING:
    products [--search <q>] [--category <c>]... [--min-price <n>] [--max-price <n>] [--page <n>]
    product <id>
    cart [show | add <product-id> | update <product-id> <qty> | remove <product-id> | import <file.yaml>]
    checkout [--shipping <method>] [--address <id>] [--payment <id>] [--friend-first-name ...]
    orders
    track <order id or number>

ADMIN:
    admin stats
    admin watch [--for <duration>]
    admin orders [--status <s>]... [--search <q>] [--page <n>]
    admin order-status <id> <status> [--tracking <no>] [--notes <text>]
    admin bulk-status <status> <id>...
    admin export [--file <path>]
    admin products [--status <s>] [--page <n>]
    admin product-status <id> <status>

GLOBAL OPTIONS:
    --api-base-url <url>     Backend base URL (env STOREFRONT_API_BASE_URL)
    --api-timeout <dur>      Per-request timeout
    --api-max-retries <n>    Retries for server errors and network failures
    --api-rate-limit <n>     Client-side requests per second (0 disables)
    --session-store <s>      file, redis or memory
    --session-path <path>    Session file for the file store
    --log-level <level>      debug, info, warn, error
    --log-format <fmt>       json or console
    -o, --output <fmt>       table, json or yaml
    --prometheus <addr>      Serve client metrics while the command runs
    --version                Show version information

Configuration is also read from ./config.toml or ~/.storefront/config.toml.
`)
}
