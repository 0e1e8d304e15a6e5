// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/ap2/cmd/ap2/cli"
	"github.com/bureau-foundation/ap2/lib/mandate"
	"github.com/bureau-foundation/ap2/lib/settlement"
)

type settleParams struct {
	cli.ServiceConnection
	cli.JSONOutput
	Description string `flag:"description,d" desc:"payment description shown to the customer"`
	Method      string `flag:"method,m" desc:"override the mandate's payment method for checkout"`
}

func settleCommand() *cli.Command {
	var params settleParams
	return &cli.Command{
		Name:    "settle",
		Summary: "Charge a payment mandate through the provider",
		Description: `Create a provider payment for a payment mandate. The amount always
comes from the mandate.

Without an active recurring authorization the payment needs an
interactive checkout; its URL is printed. With auto-checkout fully
active the charge is made against the stored authorization and its
status is polled briefly.`,
		Usage: "ap2 settle <payment-id> [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("settle", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			if err := expectArgs(args, "payment-id"); err != nil {
				return err
			}
			fields := map[string]any{"paymentMandateId": args[0]}
			if params.Description != "" {
				fields["description"] = params.Description
			}
			if params.Method != "" {
				fields["method"] = params.Method
			}

			var result settlement.SettleResult
			if err := params.Call(ctx, "settle", fields, &result); err != nil {
				return err
			}
			if done, err := params.EmitJSON(os.Stdout, result); done {
				return err
			}

			printer := cli.NewPrinter(os.Stdout)
			printer.Title("Settlement %s", result.SettlementID)
			printer.Fields(
				cli.Field{Label: "Status", Value: printer.Status(string(result.Status))},
				cli.Field{Label: "Amount", Value: result.Amount.String()},
				cli.Field{Label: "Sequence", Value: string(result.Sequence)},
				cli.Field{Label: "Checkout", Value: result.CheckoutURL},
			)
			if result.PollTimedOut {
				printer.Muted("The charge had not completed when polling stopped; check again with 'ap2 payment status %s'.", result.SettlementID)
			}
			return nil
		},
	}
}

type receiptParams struct {
	cli.ServiceConnection
	cli.JSONOutput
}

func receiptCommand() *cli.Command {
	var params receiptParams
	return &cli.Command{
		Name:    "receipt",
		Summary: "Generate a receipt for a settled payment mandate",
		Usage:   "ap2 receipt <payment-id> <settlement-id>",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("receipt", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			if err := expectArgs(args, "payment-id", "settlement-id"); err != nil {
				return err
			}
			var receipt mandate.PaymentReceipt
			err := params.Call(ctx, "generate-receipt", map[string]any{
				"paymentMandateId": args[0],
				"settlementId":     args[1],
			}, &receipt)
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(os.Stdout, receipt); done {
				return err
			}

			printer := cli.NewPrinter(os.Stdout)
			printer.Title("Receipt for %s", receipt.MandateID)
			printer.Fields(
				cli.Field{Label: "Settlement", Value: receipt.SettlementID},
				cli.Field{Label: "Status", Value: printer.Status(string(receipt.Status))},
				cli.Field{Label: "Amount", Value: receipt.Amount.String()},
				cli.Field{Label: "Issued", Value: receipt.Timestamp.Format(time.RFC3339)},
			)
			if len(receipt.AuditTrail) > 0 {
				printer.Line("")
				printAuditEntries(printer, receipt.AuditTrail)
			}
			return nil
		},
	}
}
