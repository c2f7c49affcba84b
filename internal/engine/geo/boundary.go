package geo

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/participium/civimap/internal/model"
)

//go:embed geodata/turin_boundary.geojson
var boundaryFS embed.FS

// BoundaryStore holds the municipal boundary the reporting area is
// constrained to. The geometry is normalized to a single MultiPolygon at
// load time; the containment test never sees input-shape variants.
//
// An empty store rejects every point: a missing or malformed dataset
// degrades to "everything out of bounds" instead of crashing the map.
type BoundaryStore struct {
	name string
	poly orb.MultiPolygon
}

// NewBoundaryStore loads the embedded municipal boundary.
func NewBoundaryStore() (*BoundaryStore, error) {
	data, err := boundaryFS.ReadFile("geodata/turin_boundary.geojson")
	if err != nil {
		return nil, fmt.Errorf("reading embedded geojson: %w", err)
	}
	return NewBoundaryStoreFromGeoJSON(data)
}

// NewBoundaryStoreFromGeoJSON builds a store from a caller-supplied GeoJSON
// document. Accepted shapes: FeatureCollection, Feature, or a bare
// Polygon/MultiPolygon geometry.
func NewBoundaryStoreFromGeoJSON(data []byte) (*BoundaryStore, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parsing geojson: %w", err)
	}

	store := &BoundaryStore{}

	switch probe.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("parsing feature collection: %w", err)
		}
		for _, f := range fc.Features {
			store.poly = append(store.poly, normalizeGeometry(f.Geometry)...)
			if name, ok := f.Properties["name"].(string); ok && store.name == "" {
				store.name = name
			}
		}
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("parsing feature: %w", err)
		}
		store.poly = normalizeGeometry(f.Geometry)
		if name, ok := f.Properties["name"].(string); ok {
			store.name = name
		}
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("parsing geometry: %w", err)
		}
		store.poly = normalizeGeometry(g.Geometry())
	}

	if len(store.poly) == 0 {
		return nil, fmt.Errorf("no polygon geometry in boundary dataset")
	}

	return store, nil
}

// normalizeGeometry collapses any supported geometry into a polygon list.
// Unsupported geometry types contribute nothing.
func normalizeGeometry(g orb.Geometry) orb.MultiPolygon {
	switch geom := g.(type) {
	case orb.Polygon:
		return orb.MultiPolygon{geom}
	case orb.MultiPolygon:
		return geom
	case orb.Collection:
		var out orb.MultiPolygon
		for _, sub := range geom {
			out = append(out, normalizeGeometry(sub)...)
		}
		return out
	default:
		return nil
	}
}

// Name returns the municipality name from the dataset, if present.
func (bs *BoundaryStore) Name() string {
	if bs == nil {
		return ""
	}
	return bs.name
}

// Contains reports whether the point lies inside the allowed area: inside
// the outer ring of at least one constituent polygon and not inside a hole.
// A nil or empty store returns false for every point.
func (bs *BoundaryStore) Contains(p model.GeoPoint) bool {
	if bs == nil || len(bs.poly) == 0 {
		return false
	}
	if !p.Valid() {
		return false
	}
	return planar.MultiPolygonContains(bs.poly, orb.Point{p.Lng, p.Lat}) // orb.Point is [lng, lat]
}

// Bounds returns the bounding box of the boundary for the initial viewport.
func (bs *BoundaryStore) Bounds() (minLat, minLng, maxLat, maxLng float64) {
	if bs == nil || len(bs.poly) == 0 {
		return 0, 0, 0, 0
	}
	b := bs.poly.Bound()
	return b.Min.Lat(), b.Min.Lon(), b.Max.Lat(), b.Max.Lon()
}

// Rings returns every linear ring of the boundary (outer rings and holes)
// as lat/lng sequences, for drawing the outline.
func (bs *BoundaryStore) Rings() [][]model.GeoPoint {
	if bs == nil {
		return nil
	}
	var rings [][]model.GeoPoint
	for _, poly := range bs.poly {
		for _, ring := range poly {
			pts := make([]model.GeoPoint, len(ring))
			for i, pt := range ring {
				pts[i] = model.GeoPoint{Lat: pt.Lat(), Lng: pt.Lon()}
			}
			rings = append(rings, pts)
		}
	}
	return rings
}

// CountOutside returns how many located reports fall outside the boundary.
// Used by the headless fetch to flag suspect data, not to drop it.
func (bs *BoundaryStore) CountOutside(reports []model.Report) int {
	outside := 0
	for _, r := range reports {
		if r.HasLocation() && !bs.Contains(r.Location) {
			outside++
		}
	}
	return outside
}
