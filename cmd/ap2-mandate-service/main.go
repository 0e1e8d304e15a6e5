// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/ap2/lib/clock"
	"github.com/bureau-foundation/ap2/lib/config"
	"github.com/bureau-foundation/ap2/lib/service"
	"github.com/bureau-foundation/ap2/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  string
		logLevel    string
		showVersion bool
	)
	flags := pflag.NewFlagSet("ap2-mandate-service", pflag.ContinueOnError)
	flags.StringVar(&configPath, "config", "", "path to the YAML config file (default: $AP2_CONFIG)")
	flags.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flags.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if showVersion {
		fmt.Printf("ap2-mandate-service %s\n", version.Full())
		return nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	signingSecret, err := loadSigningSecret(cfg)
	if err != nil {
		return err
	}
	provider, err := newProvider(cfg, logger)
	if err != nil {
		signingSecret.Close()
		return err
	}
	application, err := newApp(cfg, logger, clock.Real(), provider, signingSecret)
	if err != nil {
		return err
	}
	defer application.Close()

	logger.Info("mandate service starting",
		"version", version.Info(),
		"environment", string(cfg.Environment),
		"provider", cfg.Settlement.Provider,
		"socket", cfg.Service.SocketPath,
		"http_address", cfg.Service.HTTPAddress,
	)

	socketServer := service.NewSocketServer(cfg.Service.SocketPath, logger)
	application.registerActions(socketServer)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return socketServer.Serve(groupCtx)
	})
	if cfg.Service.HTTPAddress != "" {
		httpServer := service.NewHTTPServer(service.HTTPServerConfig{
			Address: cfg.Service.HTTPAddress,
			Handler: application.router(),
			Logger:  logger,
		})
		group.Go(func() error {
			return httpServer.Serve(groupCtx)
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}
	logger.Info("mandate service stopped")
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
