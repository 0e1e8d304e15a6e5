// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCommandTree(t *testing.T) {
	root := rootCommand()
	var help bytes.Buffer
	root.PrintHelp(&help)
	for _, name := range []string{"intent", "cart", "payment", "chain", "settle", "receipt",
		"recurring", "status", "reset", "kill", "audit", "key", "version"} {
		if !strings.Contains(help.String(), "  "+name+" ") {
			t.Errorf("root help does not list %q", name)
		}
	}
}

func TestArgumentValidation(t *testing.T) {
	root := rootCommand()
	root.Output = &bytes.Buffer{}

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"cart", "create"}, "expected 1 argument(s)"},
		{[]string{"cart", "create", "intent_1"}, "--items is required"},
		{[]string{"receipt", "pay_1"}, "expected 2 argument(s)"},
		{[]string{"reset"}, "pass --yes"},
		{[]string{"audit", "export"}, "--output is required"},
		{[]string{"key", "seal"}, "--recipient and --output are required"},
	}
	for _, test := range tests {
		err := root.Execute(t.Context(), test.args)
		if err == nil || !strings.Contains(err.Error(), test.want) {
			t.Errorf("%v: err = %v, want containing %q", test.args, err, test.want)
		}
	}
}
