// book is a terminal front end for the seat booking shell: it restores or
// creates the guest identity, prints the seat map for one event, optionally
// selects seats and submits the booking.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"seatdesk/internal/booking"
	"seatdesk/internal/config"
	"seatdesk/internal/external"
	"seatdesk/internal/identity"
	"seatdesk/internal/logger"
	"seatdesk/internal/messaging"
	"seatdesk/internal/metrics"
	"seatdesk/internal/shell"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	var (
		seats    []int64
		submit   bool
		reset    bool
		logLevel string
	)

	flagSet := pflag.NewFlagSet("book", pflag.ContinueOnError)
	flagSet.StringVar(&cfg.API.BaseURL, "api-url", cfg.API.BaseURL, "base URL of the booking service")
	flagSet.Int64Var(&cfg.EventID, "event-id", cfg.EventID, "event to show")
	flagSet.Int64SliceVar(&seats, "seat", nil, "seat ID to toggle (repeatable)")
	flagSet.StringVar(&cfg.Identity.Backend, "backend", cfg.Identity.Backend, "identity store: memory, file, redis, valkey or postgres")
	flagSet.StringVar(&cfg.Identity.FilePath, "identity-file", cfg.Identity.FilePath, "identity file for the file backend")
	flagSet.BoolVar(&cfg.SessionExpiryCheck, "check-expiry", cfg.SessionExpiryCheck, "drop a stored token whose exp has passed")
	flagSet.BoolVar(&submit, "submit", false, "submit the selected seats")
	flagSet.BoolVar(&reset, "reset", false, "forget the stored guest identity first")
	flagSet.StringVar(&logLevel, "log-level", "warn", "log level for stderr")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	logger.InitWriter(os.Stderr, logLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := identity.Open(ctx, cfg.Identity)
	if err != nil {
		return fmt.Errorf("open identity store: %w", err)
	}
	defer backend.Close()

	creds := identity.NewCredentialStore(backend)
	if reset {
		if err := creds.Clear(ctx); err != nil {
			return fmt.Errorf("clear identity: %w", err)
		}
	}

	publisher, err := messaging.NewPublisher(cfg.NATS)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}

	app := shell.New(shell.Deps{
		API:         external.NewBookingClient(cfg.API),
		Credentials: creds,
		EventID:     cfg.EventID,
		CheckExpiry: cfg.SessionExpiryCheck,
		Logger:      logger.Get(),
		Metrics:     metrics.New(),
		Publisher:   publisher,
	})
	defer app.Close()

	if err := app.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	for _, id := range seats {
		if _, err := app.Toggle(id); err != nil {
			fmt.Fprintf(os.Stderr, "seat %d: %v\n", id, err)
		}
	}

	var outcome booking.Outcome
	if submit {
		outcome = app.Submit(ctx)
	}

	view := app.View()
	printView(os.Stdout, view)

	if submit && outcome != booking.OutcomeSuccess {
		return errors.New(submitFailure(outcome, view.Message))
	}
	return nil
}

func submitFailure(outcome booking.Outcome, message string) string {
	switch outcome {
	case booking.OutcomeSkipped:
		return "nothing to submit: select seats with --seat and make sure the guest session is ready"
	case booking.OutcomeReloaded:
		return "the guest session was rejected and has been renewed; run the command again"
	}
	if message != "" {
		return message
	}
	return fmt.Sprintf("booking %s", outcome)
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `book shows the seat map of an event and books seats as a guest.

The guest identity is created on first use and kept in the identity
store, so later runs reuse it. Flags override the environment (.env is
read first).

Usage:
  book [flags]

Examples:
  book --event-id 3
  book --event-id 3 --seat 12 --seat 13 --submit

Flags:
`)
	flagSet.PrintDefaults()
}
