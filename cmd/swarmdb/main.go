// Command swarmdb inspects and archives N-body simulation logs.
//
// Usage:
//
//	swarmdb <command> [flags] [args]
//
// Commands:
//
//	sort       sort a raw log by time and system
//	index      build or refresh the indexes of a sorted log
//	query      print the records matching a system and time range
//	snapshots  print the ensemble snapshots reconstructed from a log
//	energy     report energy conservation over a run
//	stats      summarize a log
//	push       archive sorted logs to the configured blob store
//	pull       restore an archived run
//	runs       list archived runs
//
// Configuration is read from swarmdb.yaml in the working directory or
// ~/.config/swarmdb, and from SWARMDB_* environment variables, e.g.
// SWARMDB_ARCHIVE_BUCKET.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/hupe1980/swarmdb"
)

type env struct {
	cfg    *Config
	logger *swarmdb.Logger
	stdout io.Writer
}

type command struct {
	name    string
	args    string
	summary string
	flags   func(fs *pflag.FlagSet)
	run     func(ctx context.Context, e *env, fs *pflag.FlagSet) error
}

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: swarmdb <command> [flags] [args]")
	fmt.Fprintln(w)
	for _, c := range commands() {
		fmt.Fprintf(w, "  %-10s %s\n", c.name, c.summary)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		usage(stderr)
		return 2
	}

	var cmd *command
	for _, c := range commands() {
		if c.name == args[0] {
			cmd = &c
			break
		}
	}
	if cmd == nil {
		fmt.Fprintf(stderr, "swarmdb: unknown command %q\n\n", args[0])
		usage(stderr)
		return 2
	}

	fs := pflag.NewFlagSet(cmd.name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: swarmdb %s [flags] %s\n\n%s\n\nflags:\n", cmd.name, cmd.args, cmd.summary)
		fs.PrintDefaults()
	}
	globalFlags(fs)
	if cmd.flags != nil {
		cmd.flags(fs)
	}
	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := loadConfig(fs)
	if err != nil {
		fmt.Fprintf(stderr, "swarmdb: %v\n", err)
		return 1
	}
	logger, err := cfg.logger()
	if err != nil {
		fmt.Fprintf(stderr, "swarmdb: %v\n", err)
		return 1
	}

	if err := cmd.run(ctx, &env{cfg: cfg, logger: logger, stdout: stdout}, fs); err != nil {
		if errors.Is(err, errUsage) {
			fs.Usage()
			return 2
		}
		logger.Error("command failed", "command", cmd.name, "error", err)
		return 1
	}
	return 0
}
