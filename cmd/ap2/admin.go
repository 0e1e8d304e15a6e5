// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/ap2/cmd/ap2/cli"
	"github.com/bureau-foundation/ap2/lib/recurring"
	"github.com/bureau-foundation/ap2/lib/settlement"
	"github.com/bureau-foundation/ap2/lib/store"
)

// serviceStatus mirrors the service's status response.
type serviceStatus struct {
	Version     string            `cbor:"version" json:"version"`
	Provider    string            `cbor:"provider" json:"provider"`
	Currency    string            `cbor:"currency" json:"currency"`
	Uptime      string            `cbor:"uptime" json:"uptime"`
	Subscribers int               `cbor:"subscribers" json:"subscribers"`
	Store       store.Counts      `cbor:"store" json:"store"`
	Recurring   recurring.Summary `cbor:"recurring" json:"recurring"`
}

type adminParams struct {
	cli.ServiceConnection
	cli.JSONOutput
}

type resetParams struct {
	cli.ServiceConnection
	Yes bool `flag:"yes,y" desc:"confirm discarding all mandates, receipts, and audit entries"`
}

func statusCommand() *cli.Command {
	var params adminParams
	return &cli.Command{
		Name:    "status",
		Summary: "Show service state",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("status", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			if err := expectArgs(args); err != nil {
				return err
			}
			var status serviceStatus
			if err := params.Call(ctx, "status", nil, &status); err != nil {
				return err
			}
			if done, err := params.EmitJSON(os.Stdout, status); done {
				return err
			}

			printer := cli.NewPrinter(os.Stdout)
			printer.Title("ap2-mandate-service %s", status.Version)
			active := status.Store.ActiveSettlementID
			if active == "" {
				active = "none"
			}
			printer.Fields(
				cli.Field{Label: "Provider", Value: status.Provider},
				cli.Field{Label: "Currency", Value: status.Currency},
				cli.Field{Label: "Uptime", Value: status.Uptime},
				cli.Field{Label: "Intents", Value: fmt.Sprint(status.Store.Intents)},
				cli.Field{Label: "Carts", Value: fmt.Sprint(status.Store.Carts)},
				cli.Field{Label: "Payments", Value: fmt.Sprint(status.Store.Payments)},
				cli.Field{Label: "Receipts", Value: fmt.Sprint(status.Store.Receipts)},
				cli.Field{Label: "Audit entries", Value: fmt.Sprint(status.Store.AuditEntries)},
				cli.Field{Label: "Active settlement", Value: active},
				cli.Field{Label: "Event subscribers", Value: fmt.Sprint(status.Subscribers)},
				cli.Field{Label: "Auto-checkout", Value: fmt.Sprint(status.Recurring.FullyActive)},
			)
			return nil
		},
	}
}

func resetCommand() *cli.Command {
	var params resetParams
	return &cli.Command{
		Name:    "reset",
		Summary: "Discard all service state",
		Description: `Clear every mandate, receipt, audit entry, the customer profile,
and the event history. Requires --yes.`,
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("reset", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			if err := expectArgs(args); err != nil {
				return err
			}
			if !params.Yes {
				return fmt.Errorf("reset discards all state; pass --yes to confirm")
			}
			if err := params.Call(ctx, "reset", nil, nil); err != nil {
				return err
			}
			fmt.Println("All mandates and events cleared.")
			return nil
		},
	}
}

func killCommand() *cli.Command {
	var params adminParams
	return &cli.Command{
		Name:    "kill",
		Summary: "Emergency stop: cancel the active settlement and all polling",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("kill", &params)
		},
		Run: func(ctx context.Context, args []string) error {
			if err := expectArgs(args); err != nil {
				return err
			}
			var result settlement.KillResult
			if err := params.Call(ctx, "kill", nil, &result); err != nil {
				return err
			}
			if done, err := params.EmitJSON(os.Stdout, result); done {
				return err
			}

			printer := cli.NewPrinter(os.Stdout)
			printer.Title("Kill switch activated at %s", result.Timestamp.Format(time.RFC3339))
			if result.SettlementID == "" {
				printer.Muted("No settlement was active.")
			}
			canceled := ""
			if result.SettlementID != "" {
				canceled = fmt.Sprint(result.Canceled)
			}
			printer.Fields(
				cli.Field{Label: "Settlement", Value: result.SettlementID},
				cli.Field{Label: "Canceled", Value: canceled},
				cli.Field{Label: "Polls stopped", Value: fmt.Sprint(result.PollsCancelled)},
				cli.Field{Label: "Error", Value: result.Error},
			)
			return nil
		},
	}
}
