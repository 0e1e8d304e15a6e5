// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/pflag"
	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/ap2/cmd/ap2/cli"
	"github.com/bureau-foundation/ap2/lib/mandate"
	"github.com/bureau-foundation/ap2/lib/money"
)

type cartCreateParams struct {
	cli.ServiceConnection
	cli.JSONOutput
	Items string `flag:"items,i" desc:"JSONC file with the cart items, or - for stdin (required)"`
}

func cartCommand() *cli.Command {
	var params cartCreateParams
	return &cli.Command{
		Name:    "cart",
		Summary: "Manage cart mandates",
		Subcommands: []*cli.Command{
			{
				Name:    "create",
				Summary: "Sign a cart of items against an intent",
				Description: `Create a merchant-signed cart mandate for an intent.

The items file is a JSON array that may contain // and /* */ comments
and trailing commas:

  [
    // the main purchase
    {"name": "Laptop", "quantity": 1, "unitPrice": "1299.99", "vendor": "TechStore"},
  ]

Unit prices are decimal strings or numbers. The cart total must not
exceed the intent's budget.`,
				Usage: "ap2 cart create <intent-id> --items <file> [flags]",
				Flags: func() *pflag.FlagSet {
					return cli.FlagsFromParams("create", &params)
				},
				Run: func(ctx context.Context, args []string) error {
					if err := expectArgs(args, "intent-id"); err != nil {
						return err
					}
					if params.Items == "" {
						return fmt.Errorf("--items is required")
					}
					items, err := readItems(params.Items, os.Stdin)
					if err != nil {
						return err
					}

					var cart mandate.CartMandate
					err = params.Call(ctx, "create-cart", map[string]any{
						"intentMandateId": args[0],
						"items":           items,
					}, &cart)
					if err != nil {
						return err
					}
					if done, err := params.EmitJSON(os.Stdout, cart); done {
						return err
					}
					printCart(cli.NewPrinter(os.Stdout), cart)
					return nil
				},
			},
		},
	}
}

// readItems reads an items file; "-" reads stdin.
func readItems(path string, stdin io.Reader) ([]mandate.CartItem, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading items: %w", err)
	}
	items, err := parseItems(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return items, nil
}

// parseItems strips JSONC comments and trailing commas and decodes an
// array of cart items. Unknown fields are rejected so a misspelled
// "unitPrice" does not silently become zero.
func parseItems(data []byte) ([]mandate.CartItem, error) {
	decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	decoder.DisallowUnknownFields()
	var items []mandate.CartItem
	if err := decoder.Decode(&items); err != nil {
		return nil, fmt.Errorf("parsing items: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("items file contains no items")
	}
	return items, nil
}

func printCart(printer *cli.Printer, cart mandate.CartMandate) {
	printer.Title("Cart mandate %s", cart.ID)
	printer.Fields(
		cli.Field{Label: "Intent", Value: cart.IntentMandateID},
		cli.Field{Label: "Total", Value: cart.Total.String()},
		cli.Field{Label: "Created", Value: cart.CreatedAt.Format(time.RFC3339)},
	)
	rows := make([][]string, 0, len(cart.Items))
	for _, item := range cart.Items {
		currency := item.Currency
		if currency == "" {
			currency = cart.Total.Currency
		}
		rows = append(rows, []string{
			item.Name,
			strconv.Itoa(item.Quantity),
			money.New(item.UnitPrice, currency).String(),
			money.New(money.LineTotal(item.UnitPrice, item.Quantity), currency).String(),
			item.Vendor,
		})
	}
	printer.Line("")
	printer.Table([]string{"item", "qty", "unit price", "line total", "vendor"}, rows)
}
