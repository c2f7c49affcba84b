package views

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/participium/civimap/internal/engine/geo"
	"github.com/participium/civimap/internal/model"
	"github.com/participium/civimap/internal/tui/components"
	"github.com/participium/civimap/internal/tui/styles"
)

const addressNotAvailable = "Not available"

// MapModel is the map interaction shell: it routes cursor picks through
// the boundary check, reclusters markers on zoom changes, and drives the
// selection -> reverse-geocode -> report-form flow.
type MapModel struct {
	deps *Deps

	mapview  components.MapView
	reports  []model.Report
	clusters []model.Cluster
	zoom     int

	// markerIdx maps a report id to the index of the cluster marker that
	// contains it, so opening a specific report's popup needs no scan over
	// the rendered layer.
	markerIdx map[int]int

	// Selection state for the report-creation flow.
	selected       *model.GeoPoint
	address        string
	addressPending bool
	lookupSeq      int

	boundaryWarning bool

	// popupReportID pins the open popup to a report across reclusters.
	popupReportID int

	form     ReportFormModel
	formOpen bool

	fetchErr     string
	staleMarkers bool
	submitNote   string

	width  int
	height int
}

// Messages
type mapReportsMsg struct {
	Reports      []model.Report
	Err          error
	FromSnapshot bool
}

type geocodeMsg struct {
	Seq     int
	Address string
	Err     error
}

type reportSubmittedMsg struct {
	Report model.Report
	Err    error
}

// OpenReportOnMap asks the map to open a specific report's popup and pan
// to it, without changing the zoom level. Sent by the reports table.
type OpenReportOnMap struct {
	ID int
}

func NewMapModel(deps *Deps) MapModel {
	m := MapModel{
		deps:    deps,
		mapview: components.NewMapView(60, 20),
	}

	var rings [][]components.Point
	for _, ring := range deps.Boundary.Rings() {
		pts := make([]components.Point, len(ring))
		for i, p := range ring {
			pts[i] = components.Point{Lat: p.Lat, Lng: p.Lng}
		}
		rings = append(rings, pts)
	}
	m.mapview.SetBoundary(rings)
	m.mapview.ShowCursor(true)
	m.zoom = geo.ZoomForLngSpan(m.mapview.LngSpan())
	return m
}

func (m MapModel) Init() tea.Cmd {
	return m.fetchReports()
}

func (m MapModel) fetchReports() tea.Cmd {
	deps := m.deps
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		fetched, err := deps.Client.FetchMapReports(ctx, nil)
		if err != nil {
			// Fall back to the last snapshot; the map shows a stale set
			// rather than an error page.
			if deps.Snapshot != nil {
				if cached, serr := deps.Snapshot.LoadReports(); serr == nil {
					return mapReportsMsg{Reports: cached, Err: err, FromSnapshot: true}
				}
			}
			return mapReportsMsg{Err: err}
		}
		if deps.Snapshot != nil {
			deps.Snapshot.ReplaceReports(fetched)
		}
		return mapReportsMsg{Reports: fetched}
	}
}

func (m MapModel) lookupAddress(seq int, p model.GeoPoint) tea.Cmd {
	geocoder := m.deps.Geocoder
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
		defer cancel()
		addr, err := geocoder.Lookup(ctx, p.Lat, p.Lng)
		return geocodeMsg{Seq: seq, Address: addr, Err: err}
	}
}

func (m MapModel) submitReport(payload model.NewReport) tea.Cmd {
	client := m.deps.Client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		created, err := client.SubmitReport(ctx, payload)
		return reportSubmittedMsg{Report: created, Err: err}
	}
}

func (m MapModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil

	case mapReportsMsg:
		if msg.Reports == nil && msg.Err != nil {
			m.fetchErr = fmt.Sprintf("Reports unavailable: %v", msg.Err)
			return m, nil
		}
		m.reports = msg.Reports
		m.staleMarkers = msg.FromSnapshot
		if msg.FromSnapshot {
			m.fetchErr = "Backend unreachable, showing last fetched reports"
		} else {
			m.fetchErr = ""
		}
		m.recluster()
		return m, nil

	case geocodeMsg:
		// Last-requested-wins: a result for an abandoned selection is
		// dropped, never applied to the current one.
		if msg.Seq != m.lookupSeq || m.selected == nil {
			return m, nil
		}
		m.addressPending = false
		if msg.Err != nil {
			m.address = addressNotAvailable
		} else {
			m.address = msg.Address
		}
		if m.formOpen {
			m.form.SetAddress(m.address, m.addressPending)
		}
		return m, nil

	case reportSubmittedMsg:
		m.form.submitting = false
		if msg.Err != nil {
			m.form.err = fmt.Sprintf("Submit failed: %v", msg.Err)
			return m, nil
		}
		m.submitNote = fmt.Sprintf("Report #%d submitted", msg.Report.ID)
		m.closeForm()
		m.reports = append(m.reports, msg.Report)
		m.recluster()
		return m, nil

	case OpenReportOnMap:
		return m.openReportPopup(msg.ID), nil

	case PhotoPicked:
		if m.formOpen {
			m.form.AddPhoto(msg.Path)
		}
		return m, nil

	case tea.KeyMsg:
		if m.formOpen {
			return m.updateForm(msg)
		}
		return m.updateMapKeys(msg)
	}

	return m, nil
}

func (m MapModel) updateMapKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		if m.popupReportID != 0 {
			m.popupReportID = 0
			m.syncMarkers()
			return m, nil
		}
		return m, func() tea.Msg { return NavigateToHome{} }

	case "up", "k":
		m.mapview.MoveCursor(0, -1)
	case "down", "j":
		m.mapview.MoveCursor(0, 1)
	case "left", "h":
		m.mapview.MoveCursor(-1, 0)
	case "right", "l":
		m.mapview.MoveCursor(1, 0)

	case "+", "=":
		m.mapview.ZoomIn()
		m.onZoomChanged()
	case "-", "_":
		m.mapview.ZoomOut()
		m.onZoomChanged()
	case "0":
		m.mapview.ZoomReset()
		m.onZoomChanged()

	case "r":
		m.submitNote = ""
		return m, m.fetchReports()

	case "enter", " ":
		return m.clickAt(m.cursorPoint())
	}
	return m, nil
}

func (m MapModel) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	form, cmd := m.form.Update(msg)
	m.form = form

	switch m.form.outcome {
	case formOutcomeCancel:
		// Cancelling the form clears the selection and everything that
		// hung off it: address, photos, warning.
		m.closeForm()
		m.clearSelection()
	case formOutcomeSubmit:
		payload := m.form.Payload()
		payload.Location = *m.selected
		if m.address != "" && m.address != addressNotAvailable {
			payload.Address = m.address
		}
		m.form.outcome = formOutcomeNone
		m.form.submitting = true
		return m, m.submitReport(payload)
	case formOutcomePickPhoto:
		m.form.outcome = formOutcomeNone
		return m, func() tea.Msg { return NavigateToPhotoPicker{} }
	}
	return m, cmd
}

// clickAt is the map click: the boundary checker gates the selection.
func (m MapModel) clickAt(p model.GeoPoint) (tea.Model, tea.Cmd) {
	m.submitNote = ""

	if !m.deps.Boundary.Contains(p) {
		// Rejected: selection reverts to empty and the warning is raised.
		m.clearSelection()
		m.boundaryWarning = true
		return m, nil
	}

	// A new valid click replaces any prior selection and clears the warning.
	m.boundaryWarning = false
	m.selected = &p
	m.address = ""
	m.addressPending = true
	m.lookupSeq++
	m.mapview.SetSelection(p.Lat, p.Lng)

	m.form = NewReportFormModel(p)
	m.form.SetAddress("", true)
	m.formOpen = true

	return m, m.lookupAddress(m.lookupSeq, p)
}

func (m *MapModel) clearSelection() {
	m.selected = nil
	m.address = ""
	m.addressPending = false
	m.mapview.ClearSelection()
}

func (m *MapModel) closeForm() {
	m.formOpen = false
	m.form = ReportFormModel{}
}

// onZoomChanged recomputes the cluster set for the new zoom level and
// replaces the marker layer. Panning alone never triggers this.
func (m *MapModel) onZoomChanged() {
	newZoom := geo.ZoomForLngSpan(m.mapview.LngSpan())
	if newZoom == m.zoom {
		return
	}
	m.zoom = newZoom
	m.recluster()
}

// recluster rebuilds clusters, markers and the report-id index from the
// current report list and zoom.
func (m *MapModel) recluster() {
	m.clusters = geo.ClusterReports(m.reports, m.zoom)
	m.markerIdx = make(map[int]int, len(m.reports))
	for i, c := range m.clusters {
		for _, r := range c.Members {
			m.markerIdx[r.ID] = i
		}
	}
	m.syncMarkers()
}

func (m *MapModel) syncMarkers() {
	highlighted := -1
	if m.popupReportID != 0 {
		if idx, ok := m.markerIdx[m.popupReportID]; ok {
			highlighted = idx
		}
	}

	markers := make([]components.Marker, len(m.clusters))
	for i, c := range m.clusters {
		mk := components.Marker{Lat: c.Centroid.Lat, Lng: c.Centroid.Lng}
		if c.IsAggregate() {
			mk.Kind = components.MarkerAggregate
			mk.Label = strconv.Itoa(len(c.Members))
		}
		if i == highlighted {
			mk.Kind = components.MarkerHighlighted
		}
		markers[i] = mk
	}
	m.mapview.SetMarkers(markers)
}

// openReportPopup opens the popup for an externally selected report and
// recenters the view on it. The zoom level stays as it was.
func (m MapModel) openReportPopup(id int) MapModel {
	var target *model.Report
	for i := range m.reports {
		if m.reports[i].ID == id {
			target = &m.reports[i]
			break
		}
	}
	if target == nil || !target.HasLocation() {
		return m
	}
	m.popupReportID = id
	m.mapview.CenterOn(target.Location.Lat, target.Location.Lng)
	// Panning kept the zoom, so the cluster set is still valid; only the
	// highlight changes.
	m.syncMarkers()
	return m
}

func (m MapModel) cursorPoint() model.GeoPoint {
	lat, lng := m.mapview.CursorLatLng()
	return model.GeoPoint{Lat: lat, Lng: lng}
}

func (m *MapModel) updateLayout() {
	mapW := m.width*2/3 - 4
	if mapW < 30 {
		mapW = 30
	}
	mapH := m.height - 7
	if mapH < 10 {
		mapH = 10
	}
	m.mapview.SetSize(mapW, mapH)
}

func (m MapModel) View() string {
	var b strings.Builder

	name := m.deps.Boundary.Name()
	if name == "" {
		name = "municipality"
	}
	b.WriteString(styles.Title.Render(fmt.Sprintf("Report map · %s", name)))
	b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).
		Render(fmt.Sprintf("  zoom %d · %d reports · %d markers", m.zoom, len(m.reports), len(m.clusters))))
	b.WriteString("\n\n")

	mapBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Muted).
		Render(m.mapview.View())

	side := m.viewSidePanel()

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, mapBox, " ", side))
	b.WriteString("\n")

	if m.boundaryWarning {
		b.WriteString(styles.WarningText.Render("Selected point is outside the municipal boundary"))
		b.WriteString("\n")
	}
	if m.fetchErr != "" {
		b.WriteString(styles.ErrorText.Render(m.fetchErr))
		b.WriteString("\n")
	}
	if m.submitNote != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(styles.Success).Render(m.submitNote))
		b.WriteString("\n")
	}

	var status string
	switch {
	case m.formOpen:
		status = "tab next field • ctrl+p add photo • ctrl+s submit • esc cancel"
	case m.popupReportID != 0:
		status = m.mapview.StatusLine() + " • esc close popup • ←↑↓→ move • +/- zoom"
	default:
		status = m.mapview.StatusLine() + " • enter select point • +/- zoom • 0 reset • r refresh • esc back"
	}
	b.WriteString(styles.StatusBar.Render(status))

	return b.String()
}

func (m MapModel) viewSidePanel() string {
	panelW := m.width/3 - 4
	if panelW < 28 {
		panelW = 28
	}

	var content string
	switch {
	case m.formOpen:
		content = m.form.View(panelW)
	case m.popupReportID != 0:
		content = m.viewPopup(panelW)
	default:
		content = m.viewSelectionInfo(panelW)
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Muted).
		Padding(0, 1).
		Width(panelW).
		Render(content)
}

func (m MapModel) viewSelectionInfo(w int) string {
	var sb strings.Builder
	sb.WriteString(styles.Subtitle.Render("New report"))
	sb.WriteString("\n\n")
	if m.selected == nil {
		sb.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).Italic(true).
			Render("Move the cursor and press enter\nto pick a location inside the\nboundary."))
		return sb.String()
	}
	sb.WriteString(fmt.Sprintf("Location: %.6f, %.6f\n", m.selected.Lat, m.selected.Lng))
	sb.WriteString("Address:  ")
	sb.WriteString(m.addressLine())
	return sb.String()
}

func (m MapModel) addressLine() string {
	if m.addressPending {
		return lipgloss.NewStyle().Foreground(styles.Muted).Italic(true).Render("looking up…")
	}
	if m.address == "" || m.address == addressNotAvailable {
		return lipgloss.NewStyle().Foreground(styles.Muted).Render(addressNotAvailable)
	}
	return m.address
}

// viewPopup renders the open marker's popup: a member summary for an
// aggregate marker, a detail card for a single report.
func (m MapModel) viewPopup(w int) string {
	idx, ok := m.markerIdx[m.popupReportID]
	if !ok || idx >= len(m.clusters) {
		return ""
	}
	c := m.clusters[idx]

	var sb strings.Builder
	if c.IsAggregate() {
		sb.WriteString(styles.Subtitle.Render(fmt.Sprintf("%d reports here", len(c.Members))))
		sb.WriteString("\n\n")
		for _, r := range c.Members {
			marker := "  "
			if r.ID == m.popupReportID {
				marker = "> "
			}
			sb.WriteString(marker)
			sb.WriteString(truncate(fmt.Sprintf("#%d %s", r.ID, r.Title), w-4))
			sb.WriteString("\n")
			sb.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).
				Render("    " + string(r.Status)))
			sb.WriteString("\n")
		}
		return sb.String()
	}

	r := c.Members[0]
	sb.WriteString(styles.Subtitle.Render(truncate(fmt.Sprintf("#%d %s", r.ID, r.Title), w-2)))
	sb.WriteString("\n\n")
	row := func(label, value string) {
		if value == "" {
			return
		}
		sb.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).Render(fmt.Sprintf("%-10s", label)))
		sb.WriteString(truncate(value, w-12))
		sb.WriteString("\n")
	}
	row("Status:", string(r.Status))
	row("Category:", r.Category.Name)
	row("Address:", r.Address)
	row("Coords:", fmt.Sprintf("%.5f, %.5f", r.Location.Lat, r.Location.Lng))
	if r.Description != "" {
		sb.WriteString("\n")
		sb.WriteString(truncate(r.Description, w*4))
	}
	if len(r.Photos) > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).
			Render(fmt.Sprintf("%d photo(s)", len(r.Photos))))
	}
	return sb.String()
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
