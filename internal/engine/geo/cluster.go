package geo

import (
	"math"

	"github.com/participium/civimap/internal/model"
)

// maxClusterZoom is the zoom level at and above which clustering is
// disabled and every report gets its own marker.
const maxClusterZoom = 15

// ClusterRadius maps a zoom level to the grouping radius in decimal
// degrees, applied to latitude and longitude independently. The mapping is
// a non-increasing step function: the closer the view, the tighter the
// grouping. Returns 0 when clustering is disabled.
func ClusterRadius(zoom int) float64 {
	switch {
	case zoom >= maxClusterZoom:
		return 0
	case zoom >= 14:
		return 0.002
	case zoom >= 13:
		return 0.005
	case zoom >= 12:
		return 0.01
	case zoom >= 11:
		return 0.02
	default:
		return 0.05
	}
}

// ClusterReports partitions reports into proximity clusters for the given
// zoom level. Reports without a plottable location are dropped silently.
//
// Grouping is single-pass greedy agglomeration in input order: each
// unassigned report seeds a cluster and absorbs every other unassigned
// report within the radius of the seed (rectangular test, |dLat| and |dLng|
// both within radius). Membership is decided against the seed only, so a
// chain of near-but-not-mutually-near points may split across clusters.
// Output order follows the input order of each cluster's seed.
func ClusterReports(reports []model.Report, zoom int) []model.Cluster {
	located := make([]model.Report, 0, len(reports))
	for _, r := range reports {
		if r.HasLocation() {
			located = append(located, r)
		}
	}
	if len(located) == 0 {
		return nil
	}

	radius := ClusterRadius(zoom)
	if radius == 0 {
		clusters := make([]model.Cluster, len(located))
		for i, r := range located {
			clusters[i] = model.Cluster{
				Centroid: r.Location,
				Members:  []model.Report{r},
			}
		}
		return clusters
	}

	assigned := make([]bool, len(located))
	var clusters []model.Cluster

	for i, seed := range located {
		if assigned[i] {
			continue
		}
		assigned[i] = true
		members := []model.Report{seed}

		for j := i + 1; j < len(located); j++ {
			if assigned[j] {
				continue
			}
			other := located[j]
			if math.Abs(other.Location.Lat-seed.Location.Lat) <= radius &&
				math.Abs(other.Location.Lng-seed.Location.Lng) <= radius {
				assigned[j] = true
				members = append(members, other)
			}
		}

		clusters = append(clusters, model.Cluster{
			Centroid: centroid(members),
			Members:  members,
		})
	}

	return clusters
}

// centroid is the arithmetic mean of member coordinates, lat and lng
// independently. Not a geodesic centroid; fine at city scale.
func centroid(members []model.Report) model.GeoPoint {
	if len(members) == 1 {
		return members[0].Location
	}
	var sumLat, sumLng float64
	for _, r := range members {
		sumLat += r.Location.Lat
		sumLng += r.Location.Lng
	}
	n := float64(len(members))
	return model.GeoPoint{Lat: sumLat / n, Lng: sumLng / n}
}

// ZoomForLngSpan derives the integer web-map zoom level whose single tile
// span best matches the given viewport longitude span. Inverse of the
// usual 360/2^z tile width, clamped to the zoom range the radius table
// covers meaningfully.
func ZoomForLngSpan(lngSpan float64) int {
	if lngSpan <= 0 {
		return maxClusterZoom
	}
	zoom := int(math.Round(math.Log2(360.0 / lngSpan)))
	if zoom < 3 {
		zoom = 3
	}
	if zoom > 18 {
		zoom = 18
	}
	return zoom
}
