package views

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/participium/civimap/internal/model"
	"github.com/participium/civimap/internal/tui/styles"
)

type reportsFocus int

const (
	focusTable reportsFocus = iota
	focusFilter
	focusDetail
)

// ReportsModel lists reports in a filterable table. Activating a row
// opens that report's marker popup on the map.
type ReportsModel struct {
	deps     *Deps
	reports  []model.Report
	filtered []model.Report
	table    table.Model
	filter   textinput.Model
	focus    reportsFocus
	selected int
	width    int
	height   int
	err      error
	stale    bool

	detailScrollY int
	detailLines   []string
}

type reportsLoadedMsg struct {
	Reports []model.Report
	Err     error
	Stale   bool
}

func NewReportsModel(deps *Deps) ReportsModel {
	filter := textinput.New()
	filter.Placeholder = "Type to filter..."
	filter.CharLimit = 50

	return ReportsModel{
		deps:     deps,
		filter:   filter,
		selected: -1,
	}
}

func (m ReportsModel) Init() tea.Cmd {
	deps := m.deps
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		fetched, err := deps.Client.FetchMapReports(ctx, nil)
		if err != nil {
			if deps.Snapshot != nil {
				if cached, serr := deps.Snapshot.LoadReports(); serr == nil {
					return reportsLoadedMsg{Reports: cached, Stale: true}
				}
			}
			return reportsLoadedMsg{Err: err}
		}
		return reportsLoadedMsg{Reports: fetched}
	}
}

func (m ReportsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()

	case tea.KeyMsg:
		key := msg.String()

		if key == "ctrl+c" {
			return m, tea.Quit
		}

		switch m.focus {
		case focusTable:
			switch key {
			case "esc", "q":
				return m, func() tea.Msg { return NavigateToHome{} }
			case "/", "tab":
				m.focus = focusFilter
				m.filter.Focus()
				return m, textinput.Blink
			case "d":
				m.focus = focusDetail
				m.table.SetStyles(unfocusedTableStyles())
				return m, nil
			case "enter":
				if m.selected >= 0 && m.selected < len(m.filtered) {
					id := m.filtered[m.selected].ID
					return m, func() tea.Msg { return OpenReportOnMap{ID: id} }
				}
			}

		case focusFilter:
			switch key {
			case "esc", "enter", "tab":
				m.focus = focusTable
				m.filter.Blur()
				return m, nil
			}

		case focusDetail:
			ph := m.panelHeight()
			maxScroll := len(m.detailLines) - ph
			if maxScroll < 0 {
				maxScroll = 0
			}
			switch key {
			case "esc":
				m.focus = focusTable
				m.table.SetStyles(focusedTableStyles())
				return m, nil
			case "up", "k":
				if m.detailScrollY > 0 {
					m.detailScrollY--
				}
				return m, nil
			case "down", "j":
				if m.detailScrollY < maxScroll {
					m.detailScrollY++
				}
				return m, nil
			}
		}

	case reportsLoadedMsg:
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.reports = msg.Reports
		m.filtered = msg.Reports
		m.stale = msg.Stale
		m.buildTable(m.reports)
		m.updateLayout()
		if len(m.filtered) > 0 {
			m.selected = 0
			m.cacheDetail()
		}
		return m, nil
	}

	var cmd tea.Cmd
	switch m.focus {
	case focusTable:
		m.table, cmd = m.table.Update(msg)
		cursor := m.table.Cursor()
		if cursor != m.selected && cursor < len(m.filtered) {
			m.selected = cursor
			m.detailScrollY = 0
			m.cacheDetail()
		}
	case focusFilter:
		m.filter, cmd = m.filter.Update(msg)
		m.applyFilter()
	}

	return m, cmd
}

func (m *ReportsModel) cacheDetail() {
	if m.selected < 0 || m.selected >= len(m.filtered) {
		m.detailLines = nil
		return
	}
	m.detailLines = buildDetailLines(m.filtered[m.selected])
}

func buildDetailLines(r model.Report) []string {
	var lines []string

	lines = append(lines, fmt.Sprintf("#%d %s", r.ID, r.Title))
	lines = append(lines, string(r.Status))
	lines = append(lines, "")

	addRow := func(label, value string) {
		if value != "" {
			lines = append(lines, fmt.Sprintf("%-10s %s", label, value))
		}
	}

	addRow("Category:", r.Category.Name)
	addRow("Address:", r.Address)
	if r.HasLocation() {
		addRow("Coords:", fmt.Sprintf("%.6f, %.6f", r.Location.Lat, r.Location.Lng))
	}
	addRow("Created:", r.CreatedAt)
	if len(r.Photos) > 0 {
		addRow("Photos:", fmt.Sprintf("%d", len(r.Photos)))
	}

	if r.Description != "" {
		lines = append(lines, "")
		lines = append(lines, r.Description)
	}

	return lines
}

func (m *ReportsModel) buildTable(reports []model.Report) {
	idW := 6
	titleW := 30
	catW := 18
	statusW := 16
	addrW := 24
	if m.width > 110 {
		extra := m.width - 110
		titleW += extra * 4 / 10
		addrW += extra * 4 / 10
		catW += extra * 2 / 10
	}

	columns := []table.Column{
		{Title: "ID", Width: idW},
		{Title: "Title", Width: titleW},
		{Title: "Category", Width: catW},
		{Title: "Status", Width: statusW},
		{Title: "Address", Width: addrW},
	}

	rows := make([]table.Row, len(reports))
	for i, r := range reports {
		rows[i] = table.Row{
			fmt.Sprintf("%d", r.ID),
			truncate(r.Title, titleW),
			truncate(r.Category.Name, catW),
			truncate(string(r.Status), statusW),
			truncate(r.Address, addrW),
		}
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	t.SetStyles(focusedTableStyles())
	m.table = t
}

func focusedTableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Muted).
		BorderBottom(true).
		Bold(true).
		Foreground(styles.Secondary)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(styles.Primary).
		Bold(true)
	return s
}

func unfocusedTableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Muted).
		BorderBottom(true).
		Bold(true).
		Foreground(styles.Muted)
	s.Selected = s.Selected.
		Foreground(styles.Text).
		Background(lipgloss.Color("#333333")).
		Bold(false)
	return s
}

func (m ReportsModel) panelHeight() int {
	h := m.height/2 - 6
	if h < 6 {
		h = 6
	}
	return h
}

func (m *ReportsModel) updateLayout() {
	if m.width <= 0 {
		return
	}
	tableH := m.height/2 - 4
	if tableH < 5 {
		tableH = 5
	}
	m.buildTable(m.filtered)
	m.table.SetHeight(tableH)
}

// normalizeText removes accents/diacritics and lowercases for fuzzy
// matching of street and category names.
func normalizeText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, strings.ToLower(s))
	return result
}

func (m *ReportsModel) applyFilter() {
	raw := strings.TrimSpace(m.filter.Value())
	if raw == "" {
		m.filtered = m.reports
		m.buildTable(m.filtered)
		if len(m.filtered) > 0 {
			m.selected = 0
			m.cacheDetail()
		}
		return
	}

	words := strings.Fields(normalizeText(raw))
	m.filtered = nil
	for _, r := range m.reports {
		haystack := normalizeText(strings.Join([]string{
			r.Title, r.Description, r.Category.Name,
			string(r.Status), r.Address,
		}, " "))
		match := true
		for _, w := range words {
			if !strings.Contains(haystack, w) {
				match = false
				break
			}
		}
		if match {
			m.filtered = append(m.filtered, r)
		}
	}
	m.buildTable(m.filtered)
	if len(m.filtered) > 0 {
		m.selected = 0
	} else {
		m.selected = -1
	}
	m.cacheDetail()
}

func (m ReportsModel) View() string {
	if m.err != nil {
		return styles.ErrorText.Render(fmt.Sprintf("Error loading reports: %v", m.err))
	}

	var b strings.Builder

	b.WriteString(styles.Title.Render(fmt.Sprintf("Reports: %d", len(m.reports))))
	if len(m.filtered) != len(m.reports) {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).
			Render(fmt.Sprintf(" (showing %d)", len(m.filtered))))
	}
	if m.stale {
		b.WriteString(styles.WarningText.Render("  [offline snapshot]"))
	}
	b.WriteString("\n\n")

	filterStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	if m.focus == focusFilter {
		filterStyle = lipgloss.NewStyle().Foreground(styles.Primary)
	}
	b.WriteString(filterStyle.Render("Filter: "))
	b.WriteString(m.filter.View())
	b.WriteString("\n")

	b.WriteString(m.table.View())
	b.WriteString("\n\n")

	detailW := m.width - 6
	if detailW < 40 {
		detailW = 40
	}
	panelH := m.panelHeight()

	detailBorderColor := styles.Muted
	if m.focus == focusDetail {
		detailBorderColor = styles.Primary
	}
	detailBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(detailBorderColor).
		Padding(0, 1).
		Width(detailW).
		Height(panelH).
		Render(m.viewDetailPanel(detailW-4, panelH))
	b.WriteString(detailBox)
	b.WriteString("\n")

	var statusText string
	switch m.focus {
	case focusTable:
		statusText = "↑↓ navigate • enter show on map • d details • / filter • esc back"
	case focusFilter:
		statusText = "type to filter • esc back"
	case focusDetail:
		statusText = "↑↓ scroll • esc back to table"
	}
	b.WriteString(styles.StatusBar.Render(statusText))

	return b.String()
}

func (m ReportsModel) viewDetailPanel(w, h int) string {
	if m.selected < 0 || m.selected >= len(m.filtered) || len(m.detailLines) == 0 {
		return lipgloss.NewStyle().Foreground(styles.Muted).Italic(true).
			Render("Select a report to view details")
	}

	lines := m.detailLines

	scrollY := m.detailScrollY
	if scrollY > len(lines)-h {
		scrollY = len(lines) - h
	}
	if scrollY < 0 {
		scrollY = 0
	}

	end := scrollY + h
	if end > len(lines) {
		end = len(lines)
	}
	visible := lines[scrollY:end]

	var sb strings.Builder
	labelStyle := lipgloss.NewStyle().Foreground(styles.Muted)
	valStyle := lipgloss.NewStyle().Foreground(styles.Text)

	for i, line := range visible {
		switch {
		case scrollY+i == 0:
			sb.WriteString(lipgloss.NewStyle().Bold(true).Foreground(styles.Text).
				Render(truncate(line, w)))
		case scrollY+i == 1:
			sb.WriteString(lipgloss.NewStyle().Foreground(styles.Warning).
				Render(truncate(line, w)))
		default:
			sb.WriteString(valStyle.Render(truncate(line, w)))
		}
		if i < len(visible)-1 {
			sb.WriteString("\n")
		}
	}

	if end < len(lines) {
		sb.WriteString("\n")
		sb.WriteString(labelStyle.Render("  ▼ more below"))
	}

	return sb.String()
}
