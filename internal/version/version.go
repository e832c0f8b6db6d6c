// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package version carries the build version stamped in at link time.
package version

// Version is overridden via -ldflags "-X .../internal/version.Version=v1.2.3".
var Version = "dev"
