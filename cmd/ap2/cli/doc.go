// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command framework for the ap2 CLI.
//
// Commands form a tree of [Command] values. Flags are declared as
// tagged struct fields and bound with [FlagsFromParams]; see
// [BindFlags] for the tag format. Commands that talk to the mandate
// service embed [ServiceConnection], and commands with machine-readable
// output embed [JSONOutput].
//
// Human-readable output goes through a [Printer], which styles text
// with lipgloss only when stdout is a terminal.
package cli
