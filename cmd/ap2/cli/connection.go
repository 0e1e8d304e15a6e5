// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/ap2/lib/config"
	"github.com/bureau-foundation/ap2/lib/service"
)

// ServiceConnection is embedded in params of commands that call the
// mandate service.
//
// The socket is resolved in order: --socket, AP2_SOCKET, the
// service.socket_path of the file named by --config or AP2_CONFIG, and
// finally the built-in default.
type ServiceConnection struct {
	SocketPath string
	ConfigPath string
}

// AddFlags registers --socket and --config.
func (c *ServiceConnection) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&c.SocketPath, "socket", "", "mandate service socket (default: $AP2_SOCKET or config)")
	flagSet.StringVar(&c.ConfigPath, "config", "", "config file used to locate the socket (default: $AP2_CONFIG)")
}

// Resolve returns the socket path to dial.
func (c *ServiceConnection) Resolve() (string, error) {
	if c.SocketPath != "" {
		return c.SocketPath, nil
	}
	if socketPath := os.Getenv("AP2_SOCKET"); socketPath != "" {
		return socketPath, nil
	}
	configPath := c.ConfigPath
	if configPath == "" {
		configPath = os.Getenv("AP2_CONFIG")
	}
	if configPath != "" {
		cfg, err := config.LoadFile(configPath)
		if err != nil {
			return "", err
		}
		return cfg.Service.SocketPath, nil
	}
	return config.Default().Service.SocketPath, nil
}

// Call resolves the socket and sends action. Service-side failures are
// returned as *service.ServiceError with the kind attached to the
// message.
func (c *ServiceConnection) Call(ctx context.Context, action string, fields map[string]any, result any) error {
	socketPath, err := c.Resolve()
	if err != nil {
		return err
	}
	err = service.NewClient(socketPath).Call(ctx, action, fields, result)
	var serviceError *service.ServiceError
	if errors.As(err, &serviceError) && serviceError.Kind != "" {
		return fmt.Errorf("%w [%s]", err, serviceError.Kind)
	}
	return err
}
