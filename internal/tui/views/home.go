package views

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/participium/civimap/internal/tui/styles"
)

type menuItem struct {
	key   string
	label string
	desc  string
}

type HomeModel struct {
	municipality string
	serverURL    string
	items        []menuItem
	cursor       int
}

func NewHomeModel(municipality, serverURL string) HomeModel {
	return HomeModel{
		municipality: municipality,
		serverURL:    serverURL,
		items: []menuItem{
			{key: "m", label: "Map", desc: "Browse reports and submit a new one"},
			{key: "r", label: "Reports", desc: "Search the report list"},
			{key: "q", label: "Quit", desc: "Exit civimap"},
		},
	}
}

func (m HomeModel) Init() tea.Cmd {
	return nil
}

func (m HomeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
		case "enter":
			return m, m.handleSelect()
		case "m":
			m.cursor = 0
			return m, m.handleSelect()
		case "r":
			m.cursor = 1
			return m, m.handleSelect()
		case "q":
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m HomeModel) handleSelect() tea.Cmd {
	switch m.cursor {
	case 0:
		return func() tea.Msg { return NavigateToMap{} }
	case 1:
		return func() tea.Msg { return NavigateToReports{} }
	case 2:
		return tea.Quit
	}
	return nil
}

func (m HomeModel) View() string {
	var b strings.Builder

	logo := lipgloss.NewStyle().
		Foreground(styles.Primary).
		Bold(true).
		Render("  civimap")

	version := lipgloss.NewStyle().
		Foreground(styles.Muted).
		Render(" v0.1.0")

	tagline := lipgloss.NewStyle().
		Foreground(styles.Secondary).
		Italic(true).
		Render("  Participium report map")

	b.WriteString(logo + version + "\n")
	b.WriteString(tagline + "\n")

	if m.municipality != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).
			Render(fmt.Sprintf("  %s · %s", m.municipality, m.serverURL)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	for i, item := range m.items {
		cursor := "  "
		style := styles.InactiveItem
		if i == m.cursor {
			cursor = "> "
			style = styles.ActiveItem
		}

		key := lipgloss.NewStyle().
			Foreground(styles.Secondary).
			Bold(true).
			Render(fmt.Sprintf("[%s]", item.key))

		label := style.Render(item.label)
		desc := lipgloss.NewStyle().
			Foreground(styles.Muted).
			Render(" - " + item.desc)

		b.WriteString(fmt.Sprintf("%s%s %s%s\n", cursor, key, label, desc))
	}

	b.WriteString("\n")
	b.WriteString(styles.StatusBar.Render("↑↓ navigate • enter select • q quit"))

	return styles.Border.Render(b.String())
}

// Navigation messages
type NavigateToHome struct{}
type NavigateToMap struct{}
type NavigateToReports struct{}
