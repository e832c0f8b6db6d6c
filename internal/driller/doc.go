// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package driller traverses snapshot and recording documents to extract
// values for commands that need deeper inspection.
package driller
