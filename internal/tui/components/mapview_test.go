package components

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func squareRing() [][]Point {
	return [][]Point{{
		{Lat: 45.0, Lng: 7.5},
		{Lat: 45.0, Lng: 7.8},
		{Lat: 45.2, Lng: 7.8},
		{Lat: 45.2, Lng: 7.5},
	}}
}

func TestSetBoundaryCentersCursor(t *testing.T) {
	m := NewMapView(60, 20)
	m.SetBoundary(squareRing())

	lat, lng := m.CursorLatLng()
	assert.InDelta(t, 45.1, lat, 1e-9)
	assert.InDelta(t, 7.65, lng, 1e-9)
	assert.Greater(t, m.LngSpan(), 0.3, "base viewport includes padding")
}

func TestZoomShrinksLngSpan(t *testing.T) {
	m := NewMapView(60, 20)
	m.SetBoundary(squareRing())

	base := m.LngSpan()
	m.ZoomIn()
	assert.InDelta(t, base/1.5, m.LngSpan(), 1e-9)

	m.ZoomOut()
	assert.InDelta(t, base, m.LngSpan(), 1e-9)
}

func TestZoomResetRestoresViewport(t *testing.T) {
	m := NewMapView(60, 20)
	m.SetBoundary(squareRing())
	base := m.LngSpan()

	m.ZoomIn()
	m.ZoomIn()
	m.MoveCursor(5, 3)
	m.ZoomReset()

	assert.InDelta(t, base, m.LngSpan(), 1e-9)
	lat, lng := m.CursorLatLng()
	assert.InDelta(t, 45.1, lat, 1e-9)
	assert.InDelta(t, 7.65, lng, 1e-9)
}

func TestCenterOnKeepsSpan(t *testing.T) {
	m := NewMapView(60, 20)
	m.SetBoundary(squareRing())
	m.ZoomIn()
	span := m.LngSpan()

	m.CenterOn(45.15, 7.75)
	assert.InDelta(t, span, m.LngSpan(), 1e-9, "panning must not change the zoom")

	// Viewport is centered on the target point.
	center := m.minLng + m.LngSpan()/2
	assert.InDelta(t, 7.75, center, 1e-9)
}

func TestMoveCursorPansPastEdge(t *testing.T) {
	m := NewMapView(20, 10)
	m.SetBoundary(squareRing())

	maxBefore := m.maxLng
	for range 40 {
		m.MoveCursor(1, 0)
	}
	_, lng := m.CursorLatLng()
	assert.Greater(t, lng, maxBefore, "cursor walked off the original viewport")
	assert.LessOrEqual(t, lng, m.maxLng+1e-9, "viewport followed the cursor")
}

func TestViewDimensions(t *testing.T) {
	m := NewMapView(30, 8)
	m.SetBoundary(squareRing())
	// Keep markers away from the center cell so the cursor does not
	// overdraw them.
	m.SetMarkers([]Marker{
		{Lat: 45.17, Lng: 7.55, Kind: MarkerAggregate, Label: "9"},
		{Lat: 45.03, Lng: 7.75},
	})
	m.ShowCursor(true)

	out := m.View()
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 8)
	assert.Contains(t, out, "9", "aggregate count is rendered")
	assert.Contains(t, out, "●", "single marker is rendered")
	assert.Contains(t, out, "┼", "cursor is rendered")
}

func TestViewEmpty(t *testing.T) {
	m := NewMapView(0, 0)
	assert.Empty(t, m.View())
}
