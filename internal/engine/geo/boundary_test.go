package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/participium/civimap/internal/model"
)

// A 1x1 degree square around origin, as each accepted GeoJSON shape.
const squareGeometry = `{
	"type": "Polygon",
	"coordinates": [[[0,0],[1,0],[1,1],[0,1],[0,0]]]
}`

const squareFeature = `{
	"type": "Feature",
	"properties": {"name": "Squareville"},
	"geometry": {
		"type": "Polygon",
		"coordinates": [[[0,0],[1,0],[1,1],[0,1],[0,0]]]
	}
}`

const squareFeatureCollection = `{
	"type": "FeatureCollection",
	"features": [{
		"type": "Feature",
		"properties": {"name": "Squareville"},
		"geometry": {
			"type": "MultiPolygon",
			"coordinates": [[[[0,0],[1,0],[1,1],[0,1],[0,0]]]]
		}
	}]
}`

// Same square with a hole covering its central quarter.
const squareWithHole = `{
	"type": "Polygon",
	"coordinates": [
		[[0,0],[1,0],[1,1],[0,1],[0,0]],
		[[0.25,0.25],[0.75,0.25],[0.75,0.75],[0.25,0.75],[0.25,0.25]]
	]
}`

func TestBoundaryStoreShapeVariants(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bare geometry", squareGeometry},
		{"feature", squareFeature},
		{"feature collection", squareFeatureCollection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bs, err := NewBoundaryStoreFromGeoJSON([]byte(tt.data))
			require.NoError(t, err)

			assert.True(t, bs.Contains(model.GeoPoint{Lat: 0.5, Lng: 0.5}))
			assert.False(t, bs.Contains(model.GeoPoint{Lat: 1.5, Lng: 0.5}))
			assert.False(t, bs.Contains(model.GeoPoint{Lat: 0.5, Lng: -0.5}))
		})
	}
}

func TestBoundaryStoreName(t *testing.T) {
	bs, err := NewBoundaryStoreFromGeoJSON([]byte(squareFeature))
	require.NoError(t, err)
	assert.Equal(t, "Squareville", bs.Name())

	bare, err := NewBoundaryStoreFromGeoJSON([]byte(squareGeometry))
	require.NoError(t, err)
	assert.Empty(t, bare.Name())
}

func TestBoundaryStoreHoles(t *testing.T) {
	bs, err := NewBoundaryStoreFromGeoJSON([]byte(squareWithHole))
	require.NoError(t, err)

	// Inside outer ring but outside the hole
	assert.True(t, bs.Contains(model.GeoPoint{Lat: 0.1, Lng: 0.1}))
	// Inside the hole
	assert.False(t, bs.Contains(model.GeoPoint{Lat: 0.5, Lng: 0.5}))
	// Outside entirely
	assert.False(t, bs.Contains(model.GeoPoint{Lat: 2, Lng: 2}))
}

func TestBoundaryStoreFailSafe(t *testing.T) {
	var nilStore *BoundaryStore
	assert.False(t, nilStore.Contains(model.GeoPoint{Lat: 0.5, Lng: 0.5}))

	empty := &BoundaryStore{}
	assert.False(t, empty.Contains(model.GeoPoint{Lat: 0.5, Lng: 0.5}))
}

func TestBoundaryStoreInvalidInput(t *testing.T) {
	_, err := NewBoundaryStoreFromGeoJSON([]byte("not json"))
	assert.Error(t, err)

	// Valid GeoJSON but no polygonal geometry
	_, err = NewBoundaryStoreFromGeoJSON([]byte(`{"type":"Point","coordinates":[1,1]}`))
	assert.Error(t, err)
}

func TestBoundaryStoreInvalidPoint(t *testing.T) {
	bs, err := NewBoundaryStoreFromGeoJSON([]byte(squareGeometry))
	require.NoError(t, err)

	assert.False(t, bs.Contains(model.GeoPoint{Lat: 91, Lng: 0.5}))
	assert.False(t, bs.Contains(model.GeoPoint{Lat: 0.5, Lng: 181}))
}

func TestEmbeddedBoundary(t *testing.T) {
	bs, err := NewBoundaryStore()
	require.NoError(t, err)

	assert.Equal(t, "Torino", bs.Name())
	// City center is inside, Milan is not.
	assert.True(t, bs.Contains(model.GeoPoint{Lat: 45.07, Lng: 7.68}))
	assert.False(t, bs.Contains(model.GeoPoint{Lat: 45.4642, Lng: 9.19}))
}

func TestCountOutside(t *testing.T) {
	bs, err := NewBoundaryStoreFromGeoJSON([]byte(squareGeometry))
	require.NoError(t, err)

	reports := []model.Report{
		{ID: 1, Location: model.GeoPoint{Lat: 0.5, Lng: 0.5}},
		{ID: 2, Location: model.GeoPoint{Lat: 5, Lng: 5}},
		{ID: 3}, // no location, not counted
	}
	assert.Equal(t, 1, bs.CountOutside(reports))
}
