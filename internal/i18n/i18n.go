// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package i18n resolves display labels for plant variables.  Catalogs are
// flat key/string YAML files, one per language, loaded from a locale
// directory.  Switching the active language fires a payload-free signal;
// consumers re-read their labels rather than caching translations.
package i18n

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/apex/log"
	"gopkg.in/yaml.v3"

	"github.com/varctl/varctlgo/internal/signal"
)

// Resolver is the minimal label-resolution contract consumed by varcache.
type Resolver interface {
	// Translate returns the localized string for key, or key itself when
	// no catalog covers it.
	Translate(key string) string

	// Subscribe registers fn on the language-changed signal.
	Subscribe(fn func()) *signal.Sub
}

// Catalog holds every language table found in a locale directory.
type Catalog struct {
	mu sync.RWMutex

	dir      string
	lang     string
	fallback string
	tables   map[string]map[string]string

	langChanged signal.Signal
}

var _ Resolver = (*Catalog)(nil)

// Load reads every *.yaml file under dir; the basename is the language tag.
// lang selects the active language and also serves as the fallback table.
// A missing table for lang is an error; empty dir is not.
func Load(dir, lang string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read locale dir: %w", err)
	}

	c := &Catalog{
		dir:      dir,
		lang:     lang,
		fallback: lang,
		tables:   map[string]map[string]string{},
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".yaml") {
			continue
		}
		tag := strings.TrimSuffix(name, ".yaml")

		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog %s: %w", name, err)
		}

		table := map[string]string{}
		if err := yaml.Unmarshal(raw, &table); err != nil {
			return nil, fmt.Errorf("failed to parse catalog %s: %w", name, err)
		}
		c.tables[tag] = table
		log.Debugf("i18n: loaded %s (%d keys)", name, len(table))
	}

	if _, ok := c.tables[lang]; !ok {
		return nil, fmt.Errorf("no catalog for language %q in %s", lang, dir)
	}

	return c, nil
}

// Translate resolves key against the active language, then the fallback,
// then degrades to the raw key.
func (c *Catalog) Translate(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if s, ok := c.tables[c.lang][key]; ok {
		return s
	}
	if s, ok := c.tables[c.fallback][key]; ok {
		return s
	}
	return key
}

// Language returns the active language tag.
func (c *Catalog) Language() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lang
}

// Languages lists the loaded language tags, sorted.
func (c *Catalog) Languages() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tags := make([]string, 0, len(c.tables))
	for tag := range c.tables {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// SetLanguage switches the active language and fires the language-changed
// signal.  Selecting the already-active language still fires; observers
// only re-read labels, so the extra signal is harmless and keeps the
// contract simple.
func (c *Catalog) SetLanguage(lang string) error {
	c.mu.Lock()
	if _, ok := c.tables[lang]; !ok {
		c.mu.Unlock()
		return fmt.Errorf("no catalog for language %q", lang)
	}
	c.lang = lang
	c.mu.Unlock()

	c.langChanged.Emit()
	return nil
}

// Subscribe registers fn on the language-changed signal.
func (c *Catalog) Subscribe(fn func()) *signal.Sub {
	return c.langChanged.Subscribe(fn)
}
