// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/ap2/cmd/ap2/cli"
	"github.com/bureau-foundation/ap2/lib/mandatetoken"
	"github.com/bureau-foundation/ap2/lib/sealed"
	"github.com/bureau-foundation/ap2/lib/secret"
)

type keyGenerateParams struct {
	Identity string `flag:"identity" desc:"file to write the age identity to (required)"`
}

type keySealParams struct {
	Recipients []string `flag:"recipient,r" desc:"age1... public key to seal to (repeatable, required)"`
	Output     string   `flag:"output,o" desc:"sealed file to write (required)"`
}

func keyCommand() *cli.Command {
	var (
		generateParams keyGenerateParams
		sealParams     keySealParams
	)
	return &cli.Command{
		Name:    "key",
		Summary: "Manage the sealed signing secret",
		Description: `The mandate signing secret can be stored encrypted at rest with age.
Generate an identity for the service host, seal the secret to its
public key, and point signing.sealed_file and signing.identity_file at
the two files.`,
		Subcommands: []*cli.Command{
			{
				Name:    "generate",
				Summary: "Create an age identity for the service",
				Usage:   "ap2 key generate --identity <file>",
				Flags: func() *pflag.FlagSet {
					return cli.FlagsFromParams("generate", &generateParams)
				},
				Run: func(ctx context.Context, args []string) error {
					if err := expectArgs(args); err != nil {
						return err
					}
					if generateParams.Identity == "" {
						return fmt.Errorf("--identity is required")
					}
					publicKey, err := generateIdentity(generateParams.Identity)
					if err != nil {
						return err
					}
					fmt.Printf("Identity written to %s\nPublic key: %s\n", generateParams.Identity, publicKey)
					return nil
				},
			},
			{
				Name:    "seal",
				Summary: "Encrypt a signing secret read from stdin",
				Description: `Read a signing secret from stdin and seal it to the given age
recipients. On a terminal the secret is read without echo.`,
				Usage: "ap2 key seal --recipient age1... --output <file> < secret",
				Flags: func() *pflag.FlagSet {
					return cli.FlagsFromParams("seal", &sealParams)
				},
				Run: func(ctx context.Context, args []string) error {
					if err := expectArgs(args); err != nil {
						return err
					}
					if len(sealParams.Recipients) == 0 || sealParams.Output == "" {
						return fmt.Errorf("--recipient and --output are required")
					}
					plaintext, err := readSecretInput(os.Stdin)
					if err != nil {
						return err
					}
					defer plaintext.Close()
					if err := sealSecret(plaintext, sealParams.Recipients, sealParams.Output); err != nil {
						return err
					}
					fmt.Printf("Sealed %d-byte secret to %s\n", plaintext.Len(), sealParams.Output)
					return nil
				},
			},
		},
	}
}

// generateIdentity writes a new age identity to path (mode 0600,
// refusing to overwrite) and returns its public key.
func generateIdentity(path string) (string, error) {
	keypair, err := sealed.GenerateKeypair()
	if err != nil {
		return "", err
	}
	defer keypair.Close()

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("creating identity file: %w", err)
	}
	if _, err := fmt.Fprintf(file, "# public key: %s\n%s\n", keypair.PublicKey, keypair.PrivateKey.Bytes()); err != nil {
		file.Close()
		return "", fmt.Errorf("writing identity file: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("writing identity file: %w", err)
	}
	return keypair.PublicKey, nil
}

// readSecretInput reads the secret from input, without echo when
// input is a terminal. Trailing newlines are dropped.
func readSecretInput(input *os.File) (*secret.Buffer, error) {
	var (
		data []byte
		err  error
	)
	if term.IsTerminal(int(input.Fd())) {
		fmt.Fprint(os.Stderr, "Signing secret: ")
		data, err = term.ReadPassword(int(input.Fd()))
		fmt.Fprintln(os.Stderr)
	} else {
		data, err = io.ReadAll(io.LimitReader(input, 64*1024))
	}
	if err != nil {
		return nil, fmt.Errorf("reading secret: %w", err)
	}
	return secretFromInput(data)
}

func secretFromInput(data []byte) (*secret.Buffer, error) {
	trimmed := bytes.TrimRight(data, "\r\n")
	if len(trimmed) < mandatetoken.MinSecretSize {
		secret.Zero(data)
		return nil, fmt.Errorf("signing secret must be at least %d bytes, got %d", mandatetoken.MinSecretSize, len(trimmed))
	}
	buffer, err := secret.NewFromBytes(trimmed)
	secret.Zero(data)
	return buffer, err
}

// sealSecret encrypts plaintext to recipients and writes it to path
// with mode 0600.
func sealSecret(plaintext *secret.Buffer, recipients []string, path string) error {
	for _, recipient := range recipients {
		if err := sealed.ParsePublicKey(recipient); err != nil {
			return fmt.Errorf("recipient %q: %w", recipient, err)
		}
	}
	ciphertext, err := sealed.Seal(plaintext.Bytes(), recipients)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, ciphertext, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
