// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/ap2/cmd/ap2/cli"
	"github.com/bureau-foundation/ap2/lib/recurring"
)

type recurringParams struct {
	cli.ServiceConnection
	cli.JSONOutput
}

type recurringSetupParams struct {
	cli.ServiceConnection
	cli.JSONOutput
	Method string `flag:"method,m" desc:"checkout method for the first payment" default:"ideal"`
}

func recurringCommand() *cli.Command {
	var (
		setupParams  recurringSetupParams
		toggleParams recurringParams
		methodParams recurringParams
		statusParams recurringParams
	)

	// summaryCommand builds a subcommand that sends action and prints
	// the resulting summary.
	summaryCommand := func(name, summary, usage string, params *recurringParams, fields func(args []string) (map[string]any, error)) *cli.Command {
		return &cli.Command{
			Name:    name,
			Summary: summary,
			Usage:   usage,
			Flags: func() *pflag.FlagSet {
				return cli.FlagsFromParams(name, params)
			},
			Run: func(ctx context.Context, args []string) error {
				request, err := fields(args)
				if err != nil {
					return err
				}
				var result recurring.Summary
				if err := params.Call(ctx, "recurring-"+name, request, &result); err != nil {
					return err
				}
				if done, err := params.EmitJSON(os.Stdout, result); done {
					return err
				}
				printRecurring(cli.NewPrinter(os.Stdout), result)
				return nil
			},
		}
	}
	noArgs := func(args []string) (map[string]any, error) {
		return nil, expectArgs(args)
	}

	return &cli.Command{
		Name:    "recurring",
		Summary: "Manage auto-checkout with a stored provider authorization",
		Description: `Auto-checkout charges later payments against a recurring
authorization captured from the customer's first paid checkout.

setup creates the provider customer (once) and enables auto-checkout.
The authorization is captured when the first payment's webhook reports
it paid; until then payments still need an interactive checkout.`,
		Subcommands: []*cli.Command{
			{
				Name:    "setup",
				Summary: "Create the customer profile and enable auto-checkout",
				Usage:   "ap2 recurring setup [--method ideal]",
				Flags: func() *pflag.FlagSet {
					return cli.FlagsFromParams("setup", &setupParams)
				},
				Run: func(ctx context.Context, args []string) error {
					if err := expectArgs(args); err != nil {
						return err
					}
					var result recurring.Summary
					if err := setupParams.Call(ctx, "recurring-setup", map[string]any{"method": setupParams.Method}, &result); err != nil {
						return err
					}
					if done, err := setupParams.EmitJSON(os.Stdout, result); done {
						return err
					}
					printRecurring(cli.NewPrinter(os.Stdout), result)
					return nil
				},
			},
			summaryCommand("toggle", "Enable or disable auto-checkout", "ap2 recurring toggle", &toggleParams, noArgs),
			summaryCommand("method", "Change the preferred checkout method", "ap2 recurring method <ideal|creditcard|bancontact>", &methodParams,
				func(args []string) (map[string]any, error) {
					if err := expectArgs(args, "method"); err != nil {
						return nil, err
					}
					return map[string]any{"method": args[0]}, nil
				}),
			summaryCommand("status", "Show the auto-checkout setup", "ap2 recurring status", &statusParams, noArgs),
		},
	}
}

func printRecurring(printer *cli.Printer, summary recurring.Summary) {
	if !summary.HasProfile {
		printer.Title("Auto-checkout: no customer profile")
		printer.Muted("Run 'ap2 recurring setup' to create one.")
		return
	}
	state := "disabled"
	if summary.Enabled {
		state = "enabled"
	}
	printer.Title("Auto-checkout %s", printer.Status(state))
	mandateState := "none captured yet"
	if summary.HasProviderMandate {
		mandateState = fmt.Sprintf("%s (%s)", summary.MandateID, summary.MandateStatus)
	}
	printer.Fields(
		cli.Field{Label: "Customer", Value: summary.CustomerID},
		cli.Field{Label: "Method", Value: string(summary.PreferredMethod)},
		cli.Field{Label: "Authorization", Value: mandateState},
		cli.Field{Label: "Fully active", Value: fmt.Sprint(summary.FullyActive)},
	)
}
