// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// ap2-mandate-service hosts the mandate chain engine and settlement.
//
// It listens on two surfaces:
//
//   - a CBOR Unix socket (service.socket_path) carrying every engine,
//     settlement, and recurring-setup operation for the ap2 CLI;
//   - an optional HTTP listener (service.http_address) serving the
//     provider webhook, the Server-Sent Events stream of agent
//     activity, the admin reset/kill/status routes, and the
//     auto-checkout settings route.
//
// Configuration is read from the file named by --config or AP2_CONFIG.
// The signing secret is read from an age-sealed file when
// signing.sealed_file is set and from the environment variable named
// by signing.secret_env otherwise. State is held in memory and is lost
// on restart.
package main
