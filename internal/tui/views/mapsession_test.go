package views

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/participium/civimap/internal/engine/geo"
	"github.com/participium/civimap/internal/engine/reports"
	"github.com/participium/civimap/internal/model"
)

// testBoundary covers the Turin area used by the fixtures below.
const testBoundary = `{
	"type": "Feature",
	"properties": {"name": "Torino"},
	"geometry": {
		"type": "Polygon",
		"coordinates": [[[7.5,44.9],[7.8,44.9],[7.8,45.2],[7.5,45.2],[7.5,44.9]]]
	}
}`

func newTestDeps(t *testing.T) *Deps {
	t.Helper()
	boundary, err := geo.NewBoundaryStoreFromGeoJSON([]byte(testBoundary))
	require.NoError(t, err)
	return &Deps{
		Client:   reports.NewClient("http://127.0.0.1:0", ""),
		Boundary: boundary,
		Geocoder: geo.NewReverseGeocoder("http://127.0.0.1:0"),
	}
}

func testReports() []model.Report {
	return []model.Report{
		{ID: 1, Title: "Pothole", Status: model.StatusAssigned,
			Location: model.GeoPoint{Lat: 45.0000, Lng: 7.6000}},
		{ID: 2, Title: "Streetlight", Status: model.StatusInProgress,
			Location: model.GeoPoint{Lat: 45.0005, Lng: 7.6005}},
		{ID: 3, Title: "Graffiti", Status: model.StatusResolved,
			Location: model.GeoPoint{Lat: 45.1500, Lng: 7.7500}},
	}
}

func loadedMap(t *testing.T) MapModel {
	t.Helper()
	m := NewMapModel(newTestDeps(t))
	res, _ := m.Update(mapReportsMsg{Reports: testReports()})
	return res.(MapModel)
}

func TestClickOutsideBoundary(t *testing.T) {
	m := loadedMap(t)

	res, cmd := m.clickAt(model.GeoPoint{Lat: 46.0, Lng: 7.6})
	m = res.(MapModel)

	assert.Nil(t, cmd)
	assert.True(t, m.boundaryWarning)
	assert.Nil(t, m.selected)
	assert.False(t, m.formOpen)
}

func TestClickInsideBoundary(t *testing.T) {
	m := loadedMap(t)

	res, cmd := m.clickAt(model.GeoPoint{Lat: 45.05, Lng: 7.65})
	m = res.(MapModel)

	assert.NotNil(t, cmd, "a valid click starts an address lookup")
	assert.False(t, m.boundaryWarning)
	require.NotNil(t, m.selected)
	assert.Equal(t, 45.05, m.selected.Lat)
	assert.True(t, m.formOpen)
	assert.True(t, m.addressPending)
}

func TestClickInsideClearsEarlierWarning(t *testing.T) {
	m := loadedMap(t)

	res, _ := m.clickAt(model.GeoPoint{Lat: 46.0, Lng: 7.6})
	m = res.(MapModel)
	require.True(t, m.boundaryWarning)

	res, _ = m.clickAt(model.GeoPoint{Lat: 45.05, Lng: 7.65})
	m = res.(MapModel)
	assert.False(t, m.boundaryWarning)
	assert.NotNil(t, m.selected)
}

func TestStaleGeocodeResultDropped(t *testing.T) {
	m := loadedMap(t)

	res, _ := m.clickAt(model.GeoPoint{Lat: 45.05, Lng: 7.65})
	m = res.(MapModel)
	firstSeq := m.lookupSeq

	res, _ = m.clickAt(model.GeoPoint{Lat: 45.06, Lng: 7.66})
	m = res.(MapModel)
	require.Greater(t, m.lookupSeq, firstSeq)

	// Result for the abandoned first selection arrives late.
	res, _ = m.Update(geocodeMsg{Seq: firstSeq, Address: "Wrong Street 1"})
	m = res.(MapModel)
	assert.True(t, m.addressPending, "stale result must not resolve the pending lookup")
	assert.Empty(t, m.address)

	// The current one applies.
	res, _ = m.Update(geocodeMsg{Seq: m.lookupSeq, Address: "Via Garibaldi 5"})
	m = res.(MapModel)
	assert.False(t, m.addressPending)
	assert.Equal(t, "Via Garibaldi 5", m.address)
}

func TestGeocodeFailureDegrades(t *testing.T) {
	m := loadedMap(t)

	res, _ := m.clickAt(model.GeoPoint{Lat: 45.05, Lng: 7.65})
	m = res.(MapModel)

	res, _ = m.Update(geocodeMsg{Seq: m.lookupSeq, Err: assert.AnError})
	m = res.(MapModel)
	assert.False(t, m.addressPending)
	assert.Equal(t, addressNotAvailable, m.address)
}

func TestGeocodeAfterCancelDropped(t *testing.T) {
	m := loadedMap(t)

	res, _ := m.clickAt(model.GeoPoint{Lat: 45.05, Lng: 7.65})
	m = res.(MapModel)
	seq := m.lookupSeq

	// esc cancels the form, which clears the selection.
	res, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = res.(MapModel)
	require.Nil(t, m.selected)
	require.False(t, m.formOpen)

	res, _ = m.Update(geocodeMsg{Seq: seq, Address: "Via Po 9"})
	m = res.(MapModel)
	assert.Empty(t, m.address)
}

func TestReportsMsgClusters(t *testing.T) {
	m := loadedMap(t)

	require.NotEmpty(t, m.clusters)
	assert.Len(t, m.markerIdx, 3)
	// Every report id resolves to a cluster index.
	for _, r := range testReports() {
		idx, ok := m.markerIdx[r.ID]
		require.True(t, ok, "report %d missing from marker index", r.ID)
		assert.Less(t, idx, len(m.clusters))
	}
}

func TestFetchErrorWithoutSnapshot(t *testing.T) {
	m := NewMapModel(newTestDeps(t))

	res, _ := m.Update(mapReportsMsg{Err: assert.AnError})
	m = res.(MapModel)
	assert.NotEmpty(t, m.fetchErr)
	assert.Empty(t, m.reports)
}

func TestFetchErrorWithSnapshotShowsStale(t *testing.T) {
	m := NewMapModel(newTestDeps(t))

	res, _ := m.Update(mapReportsMsg{Reports: testReports(), Err: assert.AnError, FromSnapshot: true})
	m = res.(MapModel)
	assert.True(t, m.staleMarkers)
	assert.NotEmpty(t, m.fetchErr)
	assert.Len(t, m.reports, 3)
}

func TestZoomChangeReclusters(t *testing.T) {
	m := loadedMap(t)
	startZoom := m.zoom

	// Zoom in until the derived level changes, then verify the cluster set
	// was rebuilt for it.
	for range 4 {
		res, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'+'}})
		m = res.(MapModel)
	}
	require.NotEqual(t, startZoom, m.zoom)
	assert.Equal(t, len(geo.ClusterReports(m.reports, m.zoom)), len(m.clusters))
}

func TestOpenReportPopupKeepsZoom(t *testing.T) {
	m := loadedMap(t)
	startZoom := m.zoom

	res, _ := m.Update(OpenReportOnMap{ID: 3})
	m = res.(MapModel)

	assert.Equal(t, 3, m.popupReportID)
	assert.Equal(t, startZoom, m.zoom, "opening a popup pans but never zooms")
}

func TestOpenReportPopupUnknownID(t *testing.T) {
	m := loadedMap(t)

	res, _ := m.Update(OpenReportOnMap{ID: 999})
	m = res.(MapModel)
	assert.Zero(t, m.popupReportID)
}

func TestSubmitAppendsReport(t *testing.T) {
	m := loadedMap(t)

	res, _ := m.clickAt(model.GeoPoint{Lat: 45.05, Lng: 7.65})
	m = res.(MapModel)

	created := model.Report{ID: 42, Title: "New issue", Status: model.StatusPendingApproval,
		Location: model.GeoPoint{Lat: 45.05, Lng: 7.65}}
	res, _ = m.Update(reportSubmittedMsg{Report: created})
	m = res.(MapModel)

	assert.False(t, m.formOpen)
	assert.Contains(t, m.submitNote, "#42")
	assert.Len(t, m.reports, 4)
}
