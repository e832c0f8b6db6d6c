// Copyright (c) 2025 Steve Taranto staranto@gmail.com.
// SPDX-License-Identifier: Apache-2.0

// Package source defines the variable-provider contract shared by the
// concrete providers (sim, feed, snap): a one-shot registration lookup plus
// a serial variable-changed event stream with explicit subscription handles.
package source
