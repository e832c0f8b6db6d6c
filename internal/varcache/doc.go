// Copyright (c) 2025 Steve Taranto staranto@gmail.com.
// SPDX-License-Identifier: Apache-2.0

// Package varcache holds the per-variable display cache: one named plant
// variable's latest value/unit, a localized label, and three payload-free
// change signals (value, unit, label) for whoever is rendering it.  The
// cache never polls; it reacts to provider events and registers itself
// lazily on first read.
package varcache
