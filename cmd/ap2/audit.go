// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/ap2/cmd/ap2/cli"
	"github.com/bureau-foundation/ap2/lib/audit"
	"github.com/bureau-foundation/ap2/lib/mandate"
)

type auditShowParams struct {
	cli.ServiceConnection
	cli.JSONOutput
	File string `flag:"file,f" desc:"read entries from an export file instead of the service"`
}

type auditExportParams struct {
	cli.ServiceConnection
	Output      string `flag:"output,o" desc:"export file to write (required)"`
	Compression string `flag:"compression" desc:"none, lz4, or zstd" default:"zstd"`
}

// auditEntries mirrors the service's audit response.
type auditEntries struct {
	Entries []mandate.AuditEntry `cbor:"entries"`
}

func auditCommand() *cli.Command {
	var (
		showParams   auditShowParams
		exportParams auditExportParams
	)
	return &cli.Command{
		Name:    "audit",
		Summary: "Inspect and export the audit log",
		Subcommands: []*cli.Command{
			{
				Name:    "show",
				Summary: "Print audit entries, optionally for specific mandates",
				Usage:   "ap2 audit show [mandate-id...] [--file export.ap2audit] [--json]",
				Flags: func() *pflag.FlagSet {
					return cli.FlagsFromParams("show", &showParams)
				},
				Run: func(ctx context.Context, args []string) error {
					var entries []mandate.AuditEntry
					if showParams.File != "" {
						imported, err := readExport(showParams.File)
						if err != nil {
							return err
						}
						entries = filterEntries(imported, args)
					} else {
						var response auditEntries
						if err := showParams.Call(ctx, "audit", map[string]any{"mandateIds": args}, &response); err != nil {
							return err
						}
						entries = response.Entries
					}
					if done, err := showParams.EmitJSON(os.Stdout, entries); done {
						return err
					}
					printAuditEntries(cli.NewPrinter(os.Stdout), entries)
					return nil
				},
			},
			{
				Name:    "export",
				Summary: "Write the audit log to a compressed export file",
				Description: `Fetch audit entries from the service and write them as a CBOR
export. zstd is the default; lz4 is faster. A body that does not
compress is stored uncompressed and the header says so.`,
				Usage: "ap2 audit export --output <file> [mandate-id...] [--compression zstd]",
				Flags: func() *pflag.FlagSet {
					return cli.FlagsFromParams("export", &exportParams)
				},
				Run: func(ctx context.Context, args []string) error {
					if exportParams.Output == "" {
						return fmt.Errorf("--output is required")
					}
					compression, err := audit.ParseCompression(exportParams.Compression)
					if err != nil {
						return err
					}
					var response auditEntries
					if err := exportParams.Call(ctx, "audit", map[string]any{"mandateIds": args}, &response); err != nil {
						return err
					}
					if err := writeExport(exportParams.Output, response.Entries, compression); err != nil {
						return err
					}
					fmt.Printf("Exported %d audit entries to %s (%s).\n", len(response.Entries), exportParams.Output, compression)
					return nil
				},
			},
		},
	}
}

// writeExport writes entries to path via a temporary file in the same
// directory so a failed export never leaves a truncated file.
func writeExport(path string, entries []mandate.AuditEntry, compression audit.Compression) error {
	directory := filepath.Dir(path)
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", directory, err)
	}
	temporary, err := os.CreateTemp(directory, ".audit-export-*")
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	defer os.Remove(temporary.Name())

	if err := audit.Export(temporary, entries, compression); err != nil {
		temporary.Close()
		return fmt.Errorf("writing export: %w", err)
	}
	if err := temporary.Close(); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	if err := os.Rename(temporary.Name(), path); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	return nil
}

func readExport(path string) ([]mandate.AuditEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	entries, _, err := audit.Import(file)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return entries, nil
}

// filterEntries keeps entries for the given mandate ids, in order. No
// ids keeps everything.
func filterEntries(entries []mandate.AuditEntry, mandateIDs []string) []mandate.AuditEntry {
	if len(mandateIDs) == 0 {
		return entries
	}
	wanted := make(map[string]bool, len(mandateIDs))
	for _, id := range mandateIDs {
		wanted[id] = true
	}
	var filtered []mandate.AuditEntry
	for _, entry := range entries {
		if wanted[entry.MandateID] {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

func printAuditEntries(printer *cli.Printer, entries []mandate.AuditEntry) {
	if len(entries) == 0 {
		printer.Muted("No audit entries.")
		return
	}
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{
			fmt.Sprint(entry.Sequence),
			entry.Timestamp.Format(time.RFC3339),
			entry.Agent,
			entry.Action,
			entry.MandateID,
			entry.Details,
		})
	}
	printer.Table([]string{"#", "time", "agent", "action", "mandate", "details"}, rows)
}

