package model

import "math"

// Status is the triage state of a report in the municipal workflow.
type Status string

const (
	StatusPendingApproval Status = "Pending Approval"
	StatusAssigned        Status = "Assigned"
	StatusInProgress      Status = "In Progress"
	StatusSuspended       Status = "Suspended"
	StatusResolved        Status = "Resolved"
	StatusRejected        Status = "Rejected"
)

// PublicMapStatuses are the statuses shown on citizen-facing map views.
// Pending Approval and Rejected reports stay hidden until triaged.
var PublicMapStatuses = []string{
	string(StatusAssigned),
	string(StatusInProgress),
	string(StatusSuspended),
	string(StatusResolved),
}

// GeoPoint is an immutable lat/lng pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether both coordinates are numeric and in range.
func (p GeoPoint) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Category is a report category managed by the municipality.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Photo is a reference to an uploaded report photo.
type Photo struct {
	ID  int    `json:"id"`
	URL string `json:"url"`
}

// Report is a citizen-submitted issue. Owned by the backend; the map
// treats it as read-only input, replaced wholesale on refetch.
type Report struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      Status   `json:"status"`
	Category    Category `json:"category"`
	Location    GeoPoint `json:"location"`
	Address     string   `json:"address,omitempty"`
	Photos      []Photo  `json:"photos,omitempty"`
	CreatedAt   string   `json:"created_at,omitempty"`
}

// HasLocation reports whether the report carries a plottable location.
// Reports without one are excluded from clustering, never rendered broken.
// A missing location field decodes to the zero point, so exact (0, 0) is
// treated as absent.
func (r Report) HasLocation() bool {
	if r.Location.Lat == 0 && r.Location.Lng == 0 {
		return false
	}
	return r.Location.Valid()
}

// NewReport is the submit payload for a new report. Location must have
// passed the boundary check before submission.
type NewReport struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	CategoryID  int      `json:"category_id"`
	Location    GeoPoint `json:"location"`
	Address     string   `json:"address,omitempty"`
	PhotoPaths  []string `json:"-"`
}
