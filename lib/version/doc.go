// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for the ap2 binaries.
//
// The variables are injected at build time:
//
//	go build -ldflags "-X github.com/bureau-foundation/ap2/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// Without ldflags the commit comes from the VCS stamp in the binary's
// build info, when present.
package version
