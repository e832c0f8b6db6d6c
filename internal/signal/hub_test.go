// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHubDelivery(t *testing.T) {
	var h Hub[string]
	var got []string

	a := h.Subscribe(func(s string) { got = append(got, "a:"+s) })
	b := h.Subscribe(func(s string) { got = append(got, "b:"+s) })

	h.Emit("x")
	assert.Equal(t, []string{"a:x", "b:x"}, got)

	a.Close()
	h.Emit("y")
	assert.Equal(t, []string{"a:x", "b:x", "b:y"}, got)

	b.Close()
	assert.Equal(t, 0, h.Len())
}

func TestHubCloseIdempotent(t *testing.T) {
	var h Hub[int]
	sub := h.Subscribe(func(int) {})
	sub.Close()
	sub.Close()
	assert.Equal(t, 0, h.Len())
}
