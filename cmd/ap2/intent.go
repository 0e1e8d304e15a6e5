// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/ap2/cmd/ap2/cli"
	"github.com/bureau-foundation/ap2/lib/mandate"
)

type intentCreateParams struct {
	cli.ServiceConnection
	cli.JSONOutput
	Budget   decimal.Decimal `flag:"budget,b" desc:"maximum total spend (required)"`
	Currency string          `flag:"currency" desc:"ISO 4217 code (default: the service currency)"`
	Category string          `flag:"category" desc:"optional product category"`
	TTL      time.Duration   `flag:"ttl" desc:"how long the intent stays valid (default: 60m)"`
}

func intentCommand() *cli.Command {
	var params intentCreateParams
	return &cli.Command{
		Name:    "intent",
		Summary: "Manage intent mandates",
		Subcommands: []*cli.Command{
			{
				Name:    "create",
				Summary: "Record what the user wants to buy and the budget",
				Usage:   "ap2 intent create <description> --budget <amount> [flags]",
				Examples: []cli.Example{
					{Command: `ap2 intent create "Laptop for development" --budget 1500 --category electronics`},
				},
				Flags: func() *pflag.FlagSet {
					return cli.FlagsFromParams("create", &params)
				},
				Run: func(ctx context.Context, args []string) error {
					if err := expectArgs(args, "description"); err != nil {
						return err
					}
					fields := map[string]any{
						"description": args[0],
						"maxBudget":   params.Budget,
					}
					if params.Currency != "" {
						fields["currency"] = params.Currency
					}
					if params.Category != "" {
						fields["category"] = params.Category
					}
					if params.TTL > 0 {
						fields["ttl"] = params.TTL
					}

					var intent mandate.IntentMandate
					if err := params.Call(ctx, "create-intent", fields, &intent); err != nil {
						return err
					}
					if done, err := params.EmitJSON(os.Stdout, intent); done {
						return err
					}
					printIntent(cli.NewPrinter(os.Stdout), intent)
					return nil
				},
			},
		},
	}
}

func printIntent(printer *cli.Printer, intent mandate.IntentMandate) {
	printer.Title("Intent mandate %s", intent.ID)
	printer.Fields(
		cli.Field{Label: "Description", Value: intent.Description},
		cli.Field{Label: "Budget", Value: intent.MaxBudget.String()},
		cli.Field{Label: "Category", Value: intent.Category},
		cli.Field{Label: "Expires", Value: intent.Expiration.Format(time.RFC3339)},
		cli.Field{Label: "Confirmed", Value: fmt.Sprint(intent.UserConfirmation)},
	)
}
