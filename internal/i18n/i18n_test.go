// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	c, err := Load("testdata", "en")
	assert.NoError(t, err)
	assert.Equal(t, "en", c.Language())
	assert.Equal(t, []string{"de", "en"}, c.Languages())
}

func TestLoad_MissingLanguage(t *testing.T) {
	_, err := Load("testdata", "fr")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), `"fr"`)
}

func TestLoad_MissingDir(t *testing.T) {
	_, err := Load("testdata/nope", "en")
	assert.Error(t, err)
}

func TestTranslate(t *testing.T) {
	c, err := Load("testdata", "en")
	assert.NoError(t, err)

	assert.Equal(t, "Tank Level", c.Translate("lbl.tanklevel"))
	// Unknown keys degrade to the raw key.
	assert.Equal(t, "lbl.unknown", c.Translate("lbl.unknown"))
}

func TestTranslate_FallbackToLoadLanguage(t *testing.T) {
	c, err := Load("testdata", "en")
	assert.NoError(t, err)
	assert.NoError(t, c.SetLanguage("de"))

	assert.Equal(t, "Tankfüllstand", c.Translate("lbl.tanklevel"))
	// de.yaml has no valvestate entry; en is the fallback.
	assert.Equal(t, "Valve State", c.Translate("lbl.valvestate"))
}

func TestSetLanguage(t *testing.T) {
	c, err := Load("testdata", "en")
	assert.NoError(t, err)

	fired := 0
	sub := c.Subscribe(func() { fired++ })
	defer sub.Close()

	assert.NoError(t, c.SetLanguage("de"))
	assert.Equal(t, 1, fired)
	assert.Equal(t, "de", c.Language())

	// Re-selecting the active language still signals.
	assert.NoError(t, c.SetLanguage("de"))
	assert.Equal(t, 2, fired)

	assert.Error(t, c.SetLanguage("fr"))
	assert.Equal(t, 2, fired, "failed switch must not signal")
	assert.Equal(t, "de", c.Language())
}
