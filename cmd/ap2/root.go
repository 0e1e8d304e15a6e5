// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/ap2/cmd/ap2/cli"
	"github.com/bureau-foundation/ap2/lib/version"
)

func rootCommand() *cli.Command {
	return &cli.Command{
		Name:    "ap2",
		Summary: "Operate the AP2 mandate service",
		Description: `ap2 drives the AP2 mandate service over its Unix socket.

A purchase is an intent (what the user wants and the most they will
spend), a cart (the items a merchant offers, signed by the merchant),
and a payment mandate (the user's authorization of the cart total).
Each step is verified against the previous one; settle then charges
the payment mandate through the configured provider.`,
		Examples: []cli.Example{
			{Description: "Create an intent", Command: `ap2 intent create "Laptop for development" --budget 1500`},
			{Description: "Build a cart from a JSONC item file", Command: "ap2 cart create intent_... --items items.jsonc"},
			{Description: "Authorize and verify", Command: "ap2 payment create cart_... --method ideal && ap2 chain validate pay_..."},
		},
		Subcommands: []*cli.Command{
			intentCommand(),
			cartCommand(),
			paymentCommand(),
			chainCommand(),
			settleCommand(),
			receiptCommand(),
			recurringCommand(),
			statusCommand(),
			resetCommand(),
			killCommand(),
			auditCommand(),
			keyCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(ctx context.Context, args []string) error {
					fmt.Printf("ap2 %s\n", version.Info())
					return nil
				},
			},
		},
	}
}

// expectArgs checks the positional argument count.
func expectArgs(args []string, names ...string) error {
	if len(args) != len(names) {
		return fmt.Errorf("expected %d argument(s) (%v), got %d", len(names), names, len(args))
	}
	return nil
}
