// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bytes"
	"fmt"
	"os"
)

// FromEnv moves the value of the named environment variable into a
// Buffer and removes the variable from the process environment so
// child processes and /proc/self/environ readers never see it.
func FromEnv(name string) (*Buffer, error) {
	value, ok := os.LookupEnv(name)
	if !ok || value == "" {
		return nil, fmt.Errorf("secret: environment variable %s is not set", name)
	}
	buffer, err := NewFromBytes([]byte(value))
	if err != nil {
		return nil, err
	}
	if err := os.Unsetenv(name); err != nil {
		buffer.Close()
		return nil, fmt.Errorf("secret: clearing %s: %w", name, err)
	}
	return buffer, nil
}

// ReadFile reads a secret file, trims surrounding whitespace, and
// returns it in a Buffer. The heap copy is zeroed.
func ReadFile(path string) (*Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	defer Zero(data)

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("secret: %s is empty", path)
	}
	return NewFromBytes(trimmed)
}
