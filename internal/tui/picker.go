// Copyright (c) 2026 Keymaster Team
// SecureSSH - encrypted SSH identity vault
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/toeirei/securessh/internal/i18n"
	"github.com/toeirei/securessh/internal/model"
)

// ErrCancelled is returned by Pick when the user quits without choosing.
var ErrCancelled = errors.New("selection cancelled")

const defaultWidth = 60

type pickerKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Filter key.Binding
	Choose key.Binding
	Quit   key.Binding
}

func (km pickerKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{km.Up, km.Down, km.Filter, km.Choose, km.Quit}
}

func (km pickerKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{km.ShortHelp()}
}

var _ help.KeyMap = pickerKeyMap{}

func newPickerKeyMap() pickerKeyMap {
	return pickerKeyMap{
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", i18n.T("picker.help.up"))),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", i18n.T("picker.help.down"))),
		Filter: key.NewBinding(key.WithKeys("/"), key.WithHelp("/", i18n.T("picker.help.filter"))),
		Choose: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", i18n.T("picker.help.connect"))),
		Quit:   key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q/esc", i18n.T("picker.help.quit"))),
	}
}

type pickerModel struct {
	servers []model.Server
	visible []int // indexes into servers after filtering

	cursor      int
	filter      string
	isFiltering bool

	chosen    int // -1 until enter
	cancelled bool

	keys  pickerKeyMap
	help  help.Model
	width int
}

func newPickerModel(servers []model.Server) pickerModel {
	m := pickerModel{
		servers: servers,
		chosen:  -1,
		keys:    newPickerKeyMap(),
		help:    help.New(),
		width:   defaultWidth,
	}
	m.rebuild()
	return m
}

func (m *pickerModel) rebuild() {
	needle := strings.ToLower(m.filter)
	visible := make([]int, 0, len(m.servers))
	for i, s := range m.servers {
		if needle == "" || matchesServer(s, needle) {
			visible = append(visible, i)
		}
	}
	m.visible = visible
	if m.cursor >= len(m.visible) {
		m.cursor = 0
	}
}

func matchesServer(s model.Server, needle string) bool {
	for _, field := range []string{s.Name, s.Host, s.User, s.Description} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

func (m pickerModel) Init() tea.Cmd { return nil }

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = min(msg.Width, 100)
			m.help.Width = m.width
		}
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.cancelled = true
			return m, tea.Quit
		}
		if m.isFiltering {
			switch msg.Type {
			case tea.KeyEsc:
				m.isFiltering = false
				m.filter = ""
				m.rebuild()
			case tea.KeyEnter:
				m.isFiltering = false
			case tea.KeyBackspace:
				if r := []rune(m.filter); len(r) > 0 {
					m.filter = string(r[:len(r)-1])
					m.rebuild()
				}
			case tea.KeyRunes:
				m.filter += string(msg.Runes)
				m.rebuild()
			}
			return m, nil
		}

		switch {
		case key.Matches(msg, m.keys.Filter):
			m.isFiltering = true
			m.filter = ""
			m.rebuild()
		case key.Matches(msg, m.keys.Quit):
			if m.filter != "" {
				m.filter = ""
				m.rebuild()
				return m, nil
			}
			m.cancelled = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.visible)-1 {
				m.cursor++
			}
		case key.Matches(msg, m.keys.Choose):
			if len(m.visible) > 0 {
				m.chosen = m.visible[m.cursor]
				return m, tea.Quit
			}
		}
	}
	return m, nil
}

func (m pickerModel) View() string {
	if m.chosen >= 0 || m.cancelled {
		return ""
	}
	title := TitleStyle.Render(i18n.T("picker.title"))

	var rows []string
	if len(m.visible) == 0 {
		rows = append(rows, HelpStyle.Render(i18n.T("picker.empty")))
	}
	for i, idx := range m.visible {
		s := m.servers[idx]
		line := fmt.Sprintf("%s  %s", s.Name, HelpStyle.Render(s.String()))
		if s.Description != "" {
			line += HelpStyle.Render("  " + s.Description)
		}
		if i == m.cursor {
			rows = append(rows, selectedItemStyle.Render("▸ ")+line)
		} else {
			rows = append(rows, itemStyle.Render("  "+line))
		}
	}
	list := paneStyle.Width(m.width).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))

	var status string
	switch {
	case m.isFiltering:
		status = i18n.T("picker.filtering", m.filter)
	case m.filter != "":
		status = i18n.T("picker.filter_active", m.filter)
	}
	footer := footerStyle.Render(alignFooter(m.help.View(m.keys), status, m.width))
	return lipgloss.JoinVertical(lipgloss.Left, title, list, footer) + "\n"
}

// Pick shows an interactive list of servers on out and returns the one the
// user chose, or ErrCancelled.
func Pick(servers []model.Server, in io.Reader, out io.Writer) (model.Server, error) {
	if len(servers) == 0 {
		return model.Server{}, model.ErrNoServers
	}
	p := tea.NewProgram(newPickerModel(servers), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return model.Server{}, fmt.Errorf("run picker: %w", err)
	}
	m, ok := final.(pickerModel)
	if !ok || m.chosen < 0 {
		return model.Server{}, ErrCancelled
	}
	return m.servers[m.chosen], nil
}
