// Package main is the entry point for the tradefleet CLI.
//
// tradefleet deploys a fleet of trading instances to Hetzner Cloud in
// three phases: it creates the instances, hardens them over SSH and
// installs the trading services. Every created resource is journaled so
// a failed run can be rolled back, also from a later invocation.
//
// Commands: init, validate, plan, deploy, rollback, runs, report, destroy.
//
// For detailed usage information, run:
//
//	tradefleet --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/imamik/tradefleet/cmd/tradefleet/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
