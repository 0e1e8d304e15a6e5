// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
)

type embeddedParams struct {
	Verbose bool `flag:"verbose,v" desc:"verbose output"`
}

type testParams struct {
	embeddedParams
	ServiceConnection
	Description string          `flag:"description,d" desc:"what to buy"`
	Budget      decimal.Decimal `flag:"budget" desc:"maximum spend" default:"100"`
	Quantity    int             `flag:"quantity" default:"1"`
	TTL         time.Duration   `flag:"ttl" default:"1h"`
	Labels      []string        `flag:"label"`
	Ignored     string
}

func TestBindFlags(t *testing.T) {
	var params testParams
	flagSet := FlagsFromParams("test", &params)

	if params.Budget.String() != "100" || params.Quantity != 1 || params.TTL != time.Hour {
		t.Errorf("defaults = %+v", params)
	}
	for _, name := range []string{"verbose", "socket", "config", "description", "budget", "quantity", "ttl", "label"} {
		if flagSet.Lookup(name) == nil {
			t.Errorf("flag --%s not registered", name)
		}
	}

	err := flagSet.Parse([]string{"-v", "-d", "laptop", "--budget", "1499.99", "--quantity=2",
		"--ttl", "30m", "--label", "a,b", "--socket", "/tmp/x.sock"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !params.Verbose || params.Description != "laptop" || params.Quantity != 2 || params.TTL != 30*time.Minute {
		t.Errorf("parsed = %+v", params)
	}
	if !params.Budget.Equal(decimal.RequireFromString("1499.99")) {
		t.Errorf("budget = %s", params.Budget)
	}
	if len(params.Labels) != 2 || params.SocketPath != "/tmp/x.sock" {
		t.Errorf("labels=%v socket=%q", params.Labels, params.SocketPath)
	}
}

func TestBindFlagsRejectsBadDecimal(t *testing.T) {
	var params testParams
	flagSet := FlagsFromParams("test", &params)
	if err := flagSet.Parse([]string{"--budget", "12,50"}); err == nil {
		t.Error("--budget 12,50 was accepted")
	}
}

func TestBindFlagsErrors(t *testing.T) {
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	if err := BindFlags(testParams{}, flagSet); err == nil {
		t.Error("non-pointer params accepted")
	}
	var unsupported struct {
		Rate float32 `flag:"rate"`
	}
	if err := BindFlags(&unsupported, flagSet); err == nil {
		t.Error("float32 field accepted")
	}
	var badDefault struct {
		Count int `flag:"count" default:"many"`
	}
	if err := BindFlags(&badDefault, pflag.NewFlagSet("test", pflag.ContinueOnError)); err == nil {
		t.Error("bad int default accepted")
	}
}

func TestServiceConnectionResolve(t *testing.T) {
	t.Setenv("AP2_SOCKET", "")
	t.Setenv("AP2_CONFIG", "")

	connection := ServiceConnection{SocketPath: "/run/flag.sock"}
	if path, err := connection.Resolve(); err != nil || path != "/run/flag.sock" {
		t.Errorf("flag: %q, %v", path, err)
	}

	t.Setenv("AP2_SOCKET", "/run/env.sock")
	connection = ServiceConnection{}
	if path, err := connection.Resolve(); err != nil || path != "/run/env.sock" {
		t.Errorf("env: %q, %v", path, err)
	}

	t.Setenv("AP2_SOCKET", "")
	connection = ServiceConnection{ConfigPath: "/nonexistent/ap2.yaml"}
	if _, err := connection.Resolve(); err == nil {
		t.Error("missing config file accepted")
	}
}
