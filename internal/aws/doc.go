// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package aws wraps AWS SDK v2 client construction for the snapshot
// fetcher, layering varctl's profile, region, and retry settings over
// the SDK's default credential chain.
package aws
