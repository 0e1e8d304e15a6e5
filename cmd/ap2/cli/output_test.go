// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestEmitJSON(t *testing.T) {
	var buffer bytes.Buffer
	output := JSONOutput{}
	if done, err := output.EmitJSON(&buffer, map[string]int{"a": 1}); done || err != nil || buffer.Len() != 0 {
		t.Errorf("without --json: done=%v err=%v wrote %q", done, err, buffer.String())
	}

	output.OutputJSON = true
	var entries []string
	if done, err := output.EmitJSON(&buffer, entries); !done || err != nil {
		t.Fatalf("done=%v err=%v", done, err)
	}
	if strings.TrimSpace(buffer.String()) != "[]" {
		t.Errorf("nil slice encoded as %q", buffer.String())
	}
}

func TestPlainPrinter(t *testing.T) {
	var buffer bytes.Buffer
	printer := NewPlainPrinter(&buffer)

	printer.Title("Intent %s", "intent_1")
	printer.Fields(
		Field{Label: "Budget", Value: "EUR 1500.00"},
		Field{Label: "Category", Value: ""},
	)
	printer.Line("status: %s", printer.Status("paid"))
	printer.Table([]string{"id", "total"}, [][]string{{"cart_1", "EUR 10.00"}})

	output := buffer.String()
	if strings.Contains(output, "\x1b[") {
		t.Errorf("plain printer emitted escape codes: %q", output)
	}
	for _, want := range []string{"Intent intent_1\n", "Budget:", "EUR 1500.00", "status: paid", "ID", "cart_1"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
	if strings.Contains(output, "Category") {
		t.Errorf("empty field was printed:\n%s", output)
	}
}
