// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/ap2/cmd/ap2/cli"
	"github.com/bureau-foundation/ap2/lib/engine"
)

type chainValidateParams struct {
	cli.ServiceConnection
	cli.JSONOutput
}

func chainCommand() *cli.Command {
	var params chainValidateParams
	return &cli.Command{
		Name:    "chain",
		Summary: "Verify mandate chains",
		Subcommands: []*cli.Command{
			{
				Name:    "validate",
				Summary: "Re-verify payment → cart → intent",
				Description: `Resolve the chain behind a payment mandate, re-verify both
signatures, and re-check the budget. Exits 1 when the chain is
invalid.`,
				Usage: "ap2 chain validate <payment-id> [--json]",
				Flags: func() *pflag.FlagSet {
					return cli.FlagsFromParams("validate", &params)
				},
				Run: func(ctx context.Context, args []string) error {
					if err := expectArgs(args, "payment-id"); err != nil {
						return err
					}
					var validation engine.ChainValidation
					if err := params.Call(ctx, "validate-chain", map[string]any{"paymentMandateId": args[0]}, &validation); err != nil {
						return err
					}
					if done, err := params.EmitJSON(os.Stdout, validation); done {
						if err == nil && !validation.Valid {
							return &cli.ExitError{Code: 1}
						}
						return err
					}
					printValidation(cli.NewPrinter(os.Stdout), args[0], validation)
					if !validation.Valid {
						return &cli.ExitError{Code: 1}
					}
					return nil
				},
			},
		},
	}
}

func printValidation(printer *cli.Printer, paymentID string, validation engine.ChainValidation) {
	if !validation.Valid {
		printer.Title("Chain for %s is %s", paymentID, printer.Status("invalid"))
		printer.Fields(cli.Field{Label: "Reason", Value: validation.Error})
		return
	}
	chain := validation.Chain
	printer.Title("Chain for %s is %s", paymentID, printer.Status("valid"))
	printer.Fields(
		cli.Field{Label: "Intent", Value: fmt.Sprintf("%s %q, budget %s", chain.Intent.ID, chain.Intent.Description, chain.Intent.MaxBudget)},
		cli.Field{Label: "Cart", Value: fmt.Sprintf("%s, %d item(s), total %s", chain.Cart.ID, chain.Cart.ItemCount, chain.Cart.Total)},
		cli.Field{Label: "Payment", Value: fmt.Sprintf("%s, %s via %s", chain.Payment.ID, chain.Payment.Amount, chain.Payment.Method)},
		cli.Field{Label: "Within budget", Value: fmt.Sprint(chain.Intent.WithinBudget)},
		cli.Field{Label: "Cart signature", Value: fmt.Sprint(chain.Cart.SignatureValid)},
		cli.Field{Label: "Authorization", Value: fmt.Sprint(chain.Payment.AuthorizationValid)},
	)
	if len(validation.AuditTrail) > 0 {
		printer.Line("")
		printAuditEntries(printer, validation.AuditTrail)
	}
}
