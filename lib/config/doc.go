// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the AP2
// mandate service and CLI.
//
// Configuration is loaded from a single file named by the AP2_CONFIG
// environment variable (via [Load]) or a --config flag (via
// [LoadFile]). There is no discovery and no fallback search.
//
// The file may carry development and production sections that
// override base values when [Config].Environment matches. Production
// refuses the in-memory settlement provider.
//
// ${HOME}, ${AP2_ROOT}, and ${VAR:-default} patterns are expanded in
// path and URL fields after loading. Environment variables do not
// otherwise override config values. Secrets are never stored in the
// file: it names the environment variable or sealed file that holds
// them.
package config
