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

type paymentCreateParams struct {
	cli.ServiceConnection
	cli.JSONOutput
	Method string `flag:"method,m" desc:"ideal, creditcard, or bancontact" default:"ideal"`
}

type settlementParams struct {
	cli.ServiceConnection
	cli.JSONOutput
}

type paymentCancelParams struct {
	cli.ServiceConnection
	cli.JSONOutput
	Reason string `flag:"reason" desc:"recorded in the audit log"`
}

func paymentCommand() *cli.Command {
	var (
		createParams paymentCreateParams
		statusParams settlementParams
		cancelParams paymentCancelParams
	)
	return &cli.Command{
		Name:    "payment",
		Summary: "Authorize carts and inspect provider payments",
		Subcommands: []*cli.Command{
			{
				Name:    "create",
				Summary: "Authorize payment of a cart's total",
				Usage:   "ap2 payment create <cart-id> [--method ideal]",
				Flags: func() *pflag.FlagSet {
					return cli.FlagsFromParams("create", &createParams)
				},
				Run: func(ctx context.Context, args []string) error {
					if err := expectArgs(args, "cart-id"); err != nil {
						return err
					}
					var payment mandate.PaymentMandate
					err := createParams.Call(ctx, "create-payment", map[string]any{
						"cartMandateId": args[0],
						"paymentMethod": createParams.Method,
					}, &payment)
					if err != nil {
						return err
					}
					if done, err := createParams.EmitJSON(os.Stdout, payment); done {
						return err
					}
					printer := cli.NewPrinter(os.Stdout)
					printer.Title("Payment mandate %s", payment.ID)
					printer.Fields(
						cli.Field{Label: "Cart", Value: payment.CartMandateID},
						cli.Field{Label: "Amount", Value: payment.Amount.String()},
						cli.Field{Label: "Method", Value: string(payment.PaymentMethod)},
						cli.Field{Label: "Authorized", Value: payment.Timestamp.Format(time.RFC3339)},
					)
					return nil
				},
			},
			{
				Name:    "status",
				Summary: "Show a provider payment's current status",
				Usage:   "ap2 payment status <settlement-id>",
				Flags: func() *pflag.FlagSet {
					return cli.FlagsFromParams("status", &statusParams)
				},
				Run: func(ctx context.Context, args []string) error {
					if err := expectArgs(args, "settlement-id"); err != nil {
						return err
					}
					var payment settlement.Payment
					if err := statusParams.Call(ctx, "payment-status", map[string]any{"settlementId": args[0]}, &payment); err != nil {
						return err
					}
					if done, err := statusParams.EmitJSON(os.Stdout, payment); done {
						return err
					}
					printProviderPayment(cli.NewPrinter(os.Stdout), payment)
					return nil
				},
			},
			{
				Name:    "cancel",
				Summary: "Cancel a provider payment",
				Usage:   "ap2 payment cancel <settlement-id> [--reason text]",
				Flags: func() *pflag.FlagSet {
					return cli.FlagsFromParams("cancel", &cancelParams)
				},
				Run: func(ctx context.Context, args []string) error {
					if err := expectArgs(args, "settlement-id"); err != nil {
						return err
					}
					var payment settlement.Payment
					err := cancelParams.Call(ctx, "cancel-payment", map[string]any{
						"settlementId": args[0],
						"reason":       cancelParams.Reason,
					}, &payment)
					if err != nil {
						return err
					}
					if done, err := cancelParams.EmitJSON(os.Stdout, payment); done {
						return err
					}
					printProviderPayment(cli.NewPrinter(os.Stdout), payment)
					return nil
				},
			},
		},
	}
}

func printProviderPayment(printer *cli.Printer, payment settlement.Payment) {
	printer.Title("Provider payment %s", payment.ID)
	printer.Fields(
		cli.Field{Label: "Status", Value: printer.Status(string(payment.Status))},
		cli.Field{Label: "Amount", Value: payment.Amount.String()},
		cli.Field{Label: "Method", Value: payment.Method},
		cli.Field{Label: "Checkout", Value: payment.CheckoutURL},
		cli.Field{Label: "Mandate", Value: payment.Metadata["paymentMandateId"]},
	)
}
