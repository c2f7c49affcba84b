package views

import (
	"github.com/participium/civimap/internal/engine/geo"
	"github.com/participium/civimap/internal/engine/reports"
	"github.com/participium/civimap/internal/engine/storage"
)

// Deps bundles the collaborators the views share. The boundary store and
// geocoder live for the whole session; the snapshot store is optional.
type Deps struct {
	Client   *reports.Client
	Boundary *geo.BoundaryStore
	Geocoder *geo.ReverseGeocoder
	Snapshot *storage.Store
}
