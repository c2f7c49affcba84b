package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/participium/civimap/internal/tui/styles"
)

// Point is a geographic point to plot.
type Point struct {
	Lat float64
	Lng float64
}

// MarkerKind selects how a marker is drawn.
type MarkerKind int

const (
	// MarkerSingle is one report.
	MarkerSingle MarkerKind = iota
	// MarkerAggregate is a cluster of several reports; its label carries
	// the member count.
	MarkerAggregate
	// MarkerHighlighted is the marker whose popup is open.
	MarkerHighlighted
)

// Marker is a rendered map marker at a geographic position.
type Marker struct {
	Lat   float64
	Lng   float64
	Label string
	Kind  MarkerKind
}

// MapView renders the municipal boundary and report markers on a Braille
// dot grid, with a movable cursor for picking a location.
type MapView struct {
	width   int
	height  int
	rings   [][]Point // boundary rings (outer rings and holes)
	markers []Marker

	cursorLat, cursorLng float64
	showCursor           bool

	selLat, selLng float64
	hasSelection   bool

	// Viewport bounds
	minLat, maxLat float64
	minLng, maxLng float64
	// Base bounds (zoom reference)
	basMinLat, basMaxLat float64
	basMinLng, basMaxLng float64
	zoomLevel            float64 // 1.0 = full base extent, >1 = zoomed in
	panLat, panLng       float64 // pan offset in degrees
}

func NewMapView(width, height int) MapView {
	return MapView{
		width:     width,
		height:    height,
		zoomLevel: 1.0,
	}
}

func (m *MapView) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// SetBoundary sets the boundary rings and fits the base viewport to them.
func (m *MapView) SetBoundary(rings [][]Point) {
	m.rings = rings
	m.fitBounds()
	m.cursorLat = (m.basMinLat + m.basMaxLat) / 2
	m.cursorLng = (m.basMinLng + m.basMaxLng) / 2
}

func (m *MapView) SetMarkers(markers []Marker) {
	m.markers = markers
}

func (m *MapView) ShowCursor(show bool) {
	m.showCursor = show
}

// CursorLatLng returns the current pick position.
func (m *MapView) CursorLatLng() (float64, float64) {
	return m.cursorLat, m.cursorLng
}

// SetSelection pins the confirmed selection crosshair.
func (m *MapView) SetSelection(lat, lng float64) {
	m.selLat = lat
	m.selLng = lng
	m.hasSelection = true
}

func (m *MapView) ClearSelection() {
	m.hasSelection = false
}

// MoveCursor shifts the cursor by whole character cells. The viewport pans
// when the cursor would leave it.
func (m *MapView) MoveCursor(cellsX, cellsY int) {
	latRange := m.maxLat - m.minLat
	lngRange := m.maxLng - m.minLng
	if m.height > 0 {
		m.cursorLat -= float64(cellsY) * latRange / float64(m.height)
	}
	if m.width > 0 {
		m.cursorLng += float64(cellsX) * lngRange / float64(m.width)
	}

	// Pan to follow the cursor past the viewport edge
	switch {
	case m.cursorLat > m.maxLat:
		m.panLat += m.cursorLat - m.maxLat
	case m.cursorLat < m.minLat:
		m.panLat -= m.minLat - m.cursorLat
	}
	switch {
	case m.cursorLng > m.maxLng:
		m.panLng += m.cursorLng - m.maxLng
	case m.cursorLng < m.minLng:
		m.panLng -= m.minLng - m.cursorLng
	}
	m.applyZoom()
}

func (m *MapView) ZoomIn() {
	m.zoomLevel *= 1.5
	if m.zoomLevel > 64 {
		m.zoomLevel = 64
	}
	m.applyZoom()
}

func (m *MapView) ZoomOut() {
	m.zoomLevel /= 1.5
	if m.zoomLevel < 0.5 {
		m.zoomLevel = 0.5
	}
	m.applyZoom()
}

func (m *MapView) ZoomReset() {
	m.zoomLevel = 1.0
	m.panLat = 0
	m.panLng = 0
	m.applyZoom()
	m.cursorLat = (m.basMinLat + m.basMaxLat) / 2
	m.cursorLng = (m.basMinLng + m.basMaxLng) / 2
}

// CenterOn pans the viewport so the point is centered. The zoom level is
// left untouched; opening a report popup must not change it.
func (m *MapView) CenterOn(lat, lng float64) {
	baseCenterLat := (m.basMinLat + m.basMaxLat) / 2
	baseCenterLng := (m.basMinLng + m.basMaxLng) / 2
	m.panLat = lat - baseCenterLat
	m.panLng = lng - baseCenterLng
	m.applyZoom()
}

// LngSpan returns the current viewport longitude span in degrees, used to
// derive the web-map zoom level feeding the clusterer.
func (m *MapView) LngSpan() float64 {
	return m.maxLng - m.minLng
}

func (m *MapView) applyZoom() {
	centerLat := (m.basMinLat+m.basMaxLat)/2 + m.panLat
	centerLng := (m.basMinLng+m.basMaxLng)/2 + m.panLng
	halfLat := (m.basMaxLat - m.basMinLat) / 2 / m.zoomLevel
	halfLng := (m.basMaxLng - m.basMinLng) / 2 / m.zoomLevel
	m.minLat = centerLat - halfLat
	m.maxLat = centerLat + halfLat
	m.minLng = centerLng - halfLng
	m.maxLng = centerLng + halfLng
}

func (m *MapView) fitBounds() {
	first := true
	for _, ring := range m.rings {
		for _, p := range ring {
			if first {
				m.basMinLat, m.basMaxLat = p.Lat, p.Lat
				m.basMinLng, m.basMaxLng = p.Lng, p.Lng
				first = false
				continue
			}
			m.basMinLat = math.Min(m.basMinLat, p.Lat)
			m.basMaxLat = math.Max(m.basMaxLat, p.Lat)
			m.basMinLng = math.Min(m.basMinLng, p.Lng)
			m.basMaxLng = math.Max(m.basMaxLng, p.Lng)
		}
	}
	if first {
		return
	}
	// Padding
	latPad := (m.basMaxLat - m.basMinLat) * 0.05
	lngPad := (m.basMaxLng - m.basMinLng) * 0.05
	if latPad == 0 {
		latPad = 0.01
	}
	if lngPad == 0 {
		lngPad = 0.01
	}
	m.basMinLat -= latPad
	m.basMaxLat += latPad
	m.basMinLng -= lngPad
	m.basMaxLng += lngPad
	m.applyZoom()
}

// Braille character encoding: each char is a 2x4 dot grid, unicode
// 0x2800 + the raised dot bits.
var brailleDots = [8]rune{0x01, 0x02, 0x04, 0x08, 0x10, 0x20, 0x40, 0x80}

var dotPositions = [8][2]int{
	{0, 0}, {1, 0}, {2, 0}, {0, 1},
	{1, 1}, {2, 1}, {3, 0}, {3, 1},
}

type overlayCell struct {
	ch    string
	style lipgloss.Style
}

func (m MapView) View() string {
	if m.width <= 0 || m.height <= 0 {
		return ""
	}

	cols := m.width
	rows := m.height
	dotW := cols * 2
	dotH := rows * 4

	latRange := m.maxLat - m.minLat
	lngRange := m.maxLng - m.minLng
	if latRange <= 0 || lngRange <= 0 {
		return strings.Repeat(strings.Repeat(" ", cols)+"\n", rows)
	}

	// Aspect ratio correction: 1 degree of longitude is shorter than one
	// of latitude away from the equator; braille dots are roughly square.
	avgLat := (m.minLat + m.maxLat) / 2
	cosLat := math.Cos(avgLat * math.Pi / 180)
	geoW := lngRange * cosLat
	geoH := latRange

	geoAspect := geoW / geoH
	dotAspect := float64(dotW) / float64(dotH)

	effectiveW, effectiveH := dotW, dotH
	offsetX, offsetY := 0, 0
	if geoAspect < dotAspect {
		effectiveW = int(float64(dotH) * geoAspect)
		if effectiveW < 4 {
			effectiveW = 4
		}
		offsetX = (dotW - effectiveW) / 2
	} else {
		effectiveH = int(float64(dotW) / geoAspect)
		if effectiveH < 4 {
			effectiveH = 4
		}
		offsetY = (dotH - effectiveH) / 2
	}

	borderGrid := make([][]bool, dotH)
	for i := range borderGrid {
		borderGrid[i] = make([]bool, dotW)
	}

	toDot := func(lat, lng float64) (int, int) {
		x := offsetX + int((lng-m.minLng)/lngRange*float64(effectiveW-1))
		y := offsetY + int((m.maxLat-lat)/latRange*float64(effectiveH-1))
		return x, y
	}

	// Boundary rings as connected segments (Bresenham). Rings are drawn
	// independently so no stray line joins a hole to its outer ring.
	for _, ring := range m.rings {
		for i := 0; i < len(ring); i++ {
			next := (i + 1) % len(ring)
			x0, y0 := toDot(ring[i].Lat, ring[i].Lng)
			x1, y1 := toDot(ring[next].Lat, ring[next].Lng)
			drawLine(borderGrid, x0, y0, x1, y1, dotW, dotH)
		}
	}

	// Markers, cursor and selection overlay whole character cells on top
	// of the braille layer.
	overlay := make(map[[2]int]overlayCell)

	markerStyle := lipgloss.NewStyle().Foreground(styles.Marker).Bold(true)
	aggregateStyle := lipgloss.NewStyle().Foreground(styles.Aggregate).Bold(true)
	highlightStyle := lipgloss.NewStyle().Foreground(styles.Highlight).Bold(true)

	for _, mk := range m.markers {
		x, y := toDot(mk.Lat, mk.Lng)
		col, row := x/2, y/4
		if col < 0 || col >= cols || row < 0 || row >= rows {
			continue
		}
		label := mk.Label
		style := markerStyle
		switch mk.Kind {
		case MarkerAggregate:
			if label == "" {
				label = "+"
			}
			style = aggregateStyle
		case MarkerHighlighted:
			if label == "" {
				label = "◉"
			}
			style = highlightStyle
		default:
			if label == "" {
				label = "●"
			}
		}
		for i, r := range label {
			c := col + i
			if c >= cols {
				break
			}
			overlay[[2]int{row, c}] = overlayCell{ch: string(r), style: style}
		}
	}

	if m.hasSelection {
		x, y := toDot(m.selLat, m.selLng)
		col, row := x/2, y/4
		if col >= 0 && col < cols && row >= 0 && row < rows {
			overlay[[2]int{row, col}] = overlayCell{
				ch:    "✚",
				style: lipgloss.NewStyle().Foreground(styles.Selection).Bold(true),
			}
		}
	}

	if m.showCursor {
		x, y := toDot(m.cursorLat, m.cursorLng)
		col, row := x/2, y/4
		if col >= 0 && col < cols && row >= 0 && row < rows {
			overlay[[2]int{row, col}] = overlayCell{
				ch:    "┼",
				style: lipgloss.NewStyle().Foreground(styles.Cursor).Bold(true),
			}
		}
	}

	borderStyle := lipgloss.NewStyle().Foreground(styles.Secondary)

	var sb strings.Builder
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			if cell, ok := overlay[[2]int{row, col}]; ok {
				sb.WriteString(cell.style.Render(cell.ch))
				continue
			}

			var borderVal rune = 0x2800
			for dot := 0; dot < 8; dot++ {
				dy := row*4 + dotPositions[dot][0]
				dx := col*2 + dotPositions[dot][1]
				if dy < dotH && dx < dotW && borderGrid[dy][dx] {
					borderVal |= brailleDots[dot]
				}
			}

			if borderVal != 0x2800 {
				sb.WriteString(borderStyle.Render(string(borderVal)))
			} else {
				sb.WriteRune(' ')
			}
		}
		if row < rows-1 {
			sb.WriteRune('\n')
		}
	}

	return sb.String()
}

// StatusLine summarizes the viewport for the map footer.
func (m MapView) StatusLine() string {
	return fmt.Sprintf("cursor %.5f, %.5f", m.cursorLat, m.cursorLng)
}

// drawLine draws a line between two dots using Bresenham's algorithm.
func drawLine(grid [][]bool, x0, y0, x1, y1, maxW, maxH int) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 >= x1 {
		sx = -1
	}
	sy := 1
	if y0 >= y1 {
		sy = -1
	}
	err := dx + dy

	for {
		if x0 >= 0 && x0 < maxW && y0 >= 0 && y0 < maxH {
			grid[y0][x0] = true
		}
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
