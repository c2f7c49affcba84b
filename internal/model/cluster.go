package model

// Cluster is a group of reports rendered as a single map marker at the
// current zoom level. Derived state: recomputed on every zoom change,
// never persisted.
type Cluster struct {
	Centroid GeoPoint
	Members  []Report
}

// IsAggregate reports whether the cluster stands for more than one report.
func (c Cluster) IsAggregate() bool {
	return len(c.Members) > 1
}
