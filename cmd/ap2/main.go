// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// ap2 is the operator CLI for the AP2 mandate service: it creates and
// validates mandate chains, settles payments, manages auto-checkout,
// and exports the audit log.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/bureau-foundation/ap2/cmd/ap2/cli"
)

func main() {
	if err := run(); err != nil {
		// Commands that print their own outcome (chain validate) return
		// an ExitError; no extra "error:" line is printed for those.
		var exitError *cli.ExitError
		if errors.As(err, &exitError) {
			os.Exit(exitError.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCommand().Execute(ctx, os.Args[1:])
}
