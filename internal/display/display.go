// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package display renders the live watch view.  It is a bubbletea model
// over a set of caches: value, unit and label changes pump a refresh
// channel, a ticker keeps the ages current, and the language can be cycled
// without restarting the view.
package display

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/varctl/varctlgo/internal/i18n"
	"github.com/varctl/varctlgo/internal/source"
	"github.com/varctl/varctlgo/internal/varcache"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	valueStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	unitStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	ageStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	statusOK    = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	statusBad   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	neverSeen   = "never"
)

type keyMap struct {
	Lang key.Binding
	Quit key.Binding
}

var keys = keyMap{
	Lang: key.NewBinding(
		key.WithKeys("l"),
		key.WithHelp("l", "cycle language"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c", "esc"),
		key.WithHelp("q", "quit"),
	),
}

type refreshMsg struct{}

type tickMsg time.Time

// Model is the bubbletea model for the watch view.
type Model struct {
	title   string
	caches  []*varcache.Cache
	catalog *i18n.Catalog
	mgr     *source.Manager

	mu       sync.Mutex
	lastSeen map[int]time.Time

	changes chan struct{}
	subs    []interface{ Close() }
}

// New wires a model to its caches.  catalog may be nil when no label
// catalog is loaded; mgr may be nil when the source has no lifecycle to
// report.
func New(title string, caches []*varcache.Cache, catalog *i18n.Catalog, mgr *source.Manager) *Model {
	m := &Model{
		title:    title,
		caches:   caches,
		catalog:  catalog,
		mgr:      mgr,
		lastSeen: make(map[int]time.Time),
		changes:  make(chan struct{}, 1),
	}

	for i, c := range caches {
		i := i
		m.subs = append(m.subs,
			c.OnValueChanged(func() { m.touch(i) }),
			c.OnUnitChanged(func() { m.touch(i) }),
			c.OnLabelChanged(m.poke),
		)
	}

	return m
}

// touch records a fresh reading for row i and pokes the view.
func (m *Model) touch(i int) {
	m.mu.Lock()
	m.lastSeen[i] = time.Now()
	m.mu.Unlock()
	m.poke()
}

// poke nudges the refresh channel without ever blocking a signal handler.
func (m *Model) poke() {
	select {
	case m.changes <- struct{}{}:
	default:
	}
}

// Close detaches the model from its caches.
func (m *Model) Close() {
	for _, s := range m.subs {
		s.Close()
	}
	m.subs = nil
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.listen(), tick())
}

func (m *Model) listen() tea.Cmd {
	return func() tea.Msg {
		<-m.changes
		return refreshMsg{}
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Lang):
			m.cycleLanguage()
			return m, nil
		}
	case refreshMsg:
		// Drain handled; just keep listening.
		return m, m.listen()
	case tickMsg:
		return m, tick()
	}
	return m, nil
}

// cycleLanguage switches the catalog to the next loaded language, which
// fires LabelChanged on every attached cache.
func (m *Model) cycleLanguage() {
	if m.catalog == nil {
		return
	}
	langs := m.catalog.Languages()
	if len(langs) < 2 {
		return
	}
	cur := m.catalog.Language()
	for i, l := range langs {
		if l == cur {
			_ = m.catalog.SetLanguage(langs[(i+1)%len(langs)])
			return
		}
	}
	_ = m.catalog.SetLanguage(langs[0])
}

func (m *Model) View() string {
	var b strings.Builder

	title := m.title
	if m.catalog != nil {
		title = fmt.Sprintf("%s [%s]", title, m.catalog.Language())
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	labelWidth := 0
	for _, c := range m.caches {
		if w := lipgloss.Width(c.Label()); w > labelWidth {
			labelWidth = w
		}
	}

	m.mu.Lock()
	for i, c := range m.caches {
		age := neverSeen
		if t, ok := m.lastSeen[i]; ok {
			age = humanize.Time(t)
		}

		val := c.FormattedValue()
		if !c.Populated() {
			val = "-"
		}

		b.WriteString(fmt.Sprintf("%s  %s %s  %s\n",
			labelStyle.Width(labelWidth).Render(c.Label()),
			valueStyle.Render(val),
			unitStyle.Render(c.Unit()),
			ageStyle.Render(age),
		))
	}
	m.mu.Unlock()

	if m.mgr != nil {
		st := m.mgr.Status()
		line := "disconnected"
		style := statusBad
		if st.Connected {
			line = "connected"
			style = statusOK
		}
		if st.LastError != "" {
			line = fmt.Sprintf("%s (%s)", line, st.LastError)
		}
		b.WriteString("\n")
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render(fmt.Sprintf("%s %s  %s %s",
		keys.Lang.Help().Key, keys.Lang.Help().Desc,
		keys.Quit.Help().Key, keys.Quit.Help().Desc)))
	b.WriteString("\n")

	return b.String()
}
